// Package warehouse queries the daily top search terms table in BigQuery.
package warehouse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/marketlens/internal/common"
	"github.com/ternarybob/marketlens/internal/models"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

var tableName = regexp.MustCompile("^[A-Za-z0-9_\\-]+(\\.[A-Za-z0-9_\\-]+){1,2}$")

// BigQuery implements interfaces.Warehouse
type BigQuery struct {
	client *bigquery.Client
	table  string
	logger arbor.ILogger
}

type topTermRow struct {
	Day  civil.Date `bigquery:"day"`
	Term string     `bigquery:"term"`
	Rank int64      `bigquery:"rank"`
}

// NewBigQuery connects to BigQuery with service account credentials from config or GCP_* env vars,
// falling back to application default credentials.
func NewBigQuery(ctx context.Context, config *common.WarehouseConfig, logger arbor.ILogger) (*BigQuery, error) {
	if !tableName.MatchString(config.Table) {
		return nil, fmt.Errorf("invalid warehouse table name '%s'", config.Table)
	}

	creds, err := loadCredentials(ctx, config.CredentialsFile)
	if err != nil {
		return nil, err
	}

	projectID := config.ProjectID
	if projectID == "" {
		projectID = creds.ProjectID
	}
	if projectID == "" {
		return nil, fmt.Errorf("warehouse project_id is required")
	}

	client, err := bigquery.NewClient(ctx, projectID, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("failed to create BigQuery client: %w", err)
	}

	logger.Debug().Str("project", projectID).Str("table", config.Table).Msg("BigQuery warehouse connected")

	return &BigQuery{client: client, table: config.Table, logger: logger}, nil
}

func loadCredentials(ctx context.Context, credentialsFile string) (*google.Credentials, error) {
	var data []byte
	switch {
	case credentialsFile != "":
		b, err := os.ReadFile(credentialsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read credentials file: %w", err)
		}
		data = b
	default:
		b, err := serviceAccountFromEnv()
		if err != nil {
			return nil, err
		}
		data = b
	}

	if data == nil {
		creds, err := google.FindDefaultCredentials(ctx, bigquery.Scope)
		if err != nil {
			return nil, fmt.Errorf("no warehouse credentials configured: %w", err)
		}
		return creds, nil
	}

	creds, err := google.CredentialsFromJSON(ctx, data, bigquery.Scope)
	if err != nil {
		return nil, fmt.Errorf("invalid warehouse credentials: %w", err)
	}
	return creds, nil
}

// serviceAccountFromEnv assembles a service account key from GCP_* variables.
// Returns nil when GCP_PRIVATE_KEY is unset.
func serviceAccountFromEnv() ([]byte, error) {
	if os.Getenv("GCP_PRIVATE_KEY") == "" {
		return nil, nil
	}

	key := map[string]string{
		"type":                        envOr("GCP_TYPE", "service_account"),
		"project_id":                  os.Getenv("GCP_PROJECT_ID"),
		"private_key_id":              os.Getenv("GCP_PRIVATE_KEY_ID"),
		"private_key":                 unescapeNewlines(os.Getenv("GCP_PRIVATE_KEY")),
		"client_email":                os.Getenv("GCP_CLIENT_EMAIL"),
		"client_id":                   os.Getenv("GCP_CLIENT_ID"),
		"auth_uri":                    envOr("GCP_AUTH_URI", "https://accounts.google.com/o/oauth2/auth"),
		"token_uri":                   envOr("GCP_TOKEN_URI", "https://oauth2.googleapis.com/token"),
		"auth_provider_x509_cert_url": envOr("GCP_AUTH_PROVIDER_X509_CERT_URL", "https://www.googleapis.com/oauth2/v1/certs"),
		"client_x509_cert_url":        os.Getenv("GCP_CLIENT_X509_CERT_URL"),
	}
	if key["client_email"] == "" {
		return nil, errors.New("GCP_CLIENT_EMAIL is required when GCP_PRIVATE_KEY is set")
	}
	return json.Marshal(key)
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

// unescapeNewlines turns literal "\n" sequences (common in .env files) into newlines
func unescapeNewlines(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) && s[i+1] == 'n' {
			out = append(out, '\n')
			i++
			continue
		}
		out = append(out, s[i])
	}
	return string(out)
}

// topTermsQuery builds the snapshot query and its parameters
func topTermsQuery(table string, since time.Time, maxRank int) (string, []bigquery.QueryParameter) {
	sql := fmt.Sprintf("SELECT refresh_date AS day, term, rank\n"+
		"FROM `%s`\n"+
		"WHERE rank <= @max_rank AND refresh_date >= @since\n"+
		"GROUP BY day, term, rank\n"+
		"ORDER BY day DESC, rank ASC", table)

	return sql, []bigquery.QueryParameter{
		{Name: "max_rank", Value: maxRank},
		{Name: "since", Value: civil.DateOf(since)},
	}
}

// TopTerms returns the top terms refreshed on or after since with rank <= maxRank
func (w *BigQuery) TopTerms(ctx context.Context, since time.Time, maxRank int) ([]models.TopTerm, error) {
	sql, params := topTermsQuery(w.table, since, maxRank)
	q := w.client.Query(sql)
	q.Parameters = params

	start := time.Now()
	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("top terms query failed: %w", err)
	}

	var terms []models.TopTerm
	for {
		var row topTermRow
		err := it.Next(&row)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read top terms row: %w", err)
		}
		terms = append(terms, rowToTopTerm(row))
	}

	w.logger.Info().
		Int("rows", len(terms)).
		Dur("elapsed", time.Since(start)).
		Msg("Loaded top terms from warehouse")

	return terms, nil
}

func rowToTopTerm(row topTermRow) models.TopTerm {
	return models.TopTerm{
		Day:  row.Day.In(time.UTC),
		Term: row.Term,
		Rank: int(row.Rank),
	}
}

// Close releases the BigQuery client
func (w *BigQuery) Close() error {
	return w.client.Close()
}
