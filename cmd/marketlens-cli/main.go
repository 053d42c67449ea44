package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ternarybob/arbor"
	arbormodels "github.com/ternarybob/arbor/models"
	"github.com/ternarybob/marketlens/internal/app"
	"github.com/ternarybob/marketlens/internal/common"
)

var (
	configFiles common.ConfigPaths
	logLevel    = flag.String("log-level", "warn", "Console log level")
)

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func main() {
	flag.Parse()

	config, err := common.LoadFromFiles(common.DiscoverConfigFiles(configFiles)...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := arbor.NewLogger().WithConsoleWriter(arbormodels.WriterConfiguration{
		Type:       arbormodels.LogWriterTypeConsole,
		TimeFormat: "15:04:05",
		OutputType: arbormodels.OutputFormatLogfmt,
	}).WithLevelFromString(*logLevel)

	application, err := app.New(config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := &cli{
		in:       os.Stdin,
		out:      os.Stdout,
		sessions: application.Sessions,
		analysis: application.Analysis,
		router:   application.Dispatcher,
	}
	if err := c.run(ctx); err != nil {
		logger.Error().Err(err).Msg("CLI stopped")
	}
}
