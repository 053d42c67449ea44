// Package badger persists conversation sessions and the top terms snapshot in Badger via badgerhold.
package badger

import (
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/marketlens/internal/common"
	"github.com/timshannon/badgerhold/v4"
)

// valueLogFileSize keeps the value log small; sessions and snapshots are a few MB at most
const valueLogFileSize = 16 << 20

// BadgerDB owns the badgerhold store shared by the session and snapshot storages
type BadgerDB struct {
	store  *badgerhold.Store
	path   string
	logger arbor.ILogger
}

// NewBadgerDB opens the database at config.Path, wiping it first when reset_on_startup is set
func NewBadgerDB(logger arbor.ILogger, config *common.BadgerConfig) (*BadgerDB, error) {
	if config.Path == "" {
		return nil, fmt.Errorf("storage.badger.path is empty")
	}

	if config.ResetOnStartup {
		if err := os.RemoveAll(config.Path); err != nil {
			return nil, fmt.Errorf("reset database %s: %w", config.Path, err)
		}
		logger.Info().Str("path", config.Path).Msg("Database reset on startup")
	}

	if err := os.MkdirAll(config.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create database directory %s: %w", config.Path, err)
	}

	options := badgerhold.DefaultOptions
	// Badger's own logger is silenced; storage events go through arbor
	options.Options = badger.DefaultOptions(config.Path).
		WithLogger(nil).
		WithNumVersionsToKeep(1).
		WithValueLogFileSize(valueLogFileSize)

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("open badger database %s: %w", config.Path, err)
	}

	logger.Debug().Str("path", config.Path).Msg("Badger database open")

	return &BadgerDB{store: store, path: config.Path, logger: logger}, nil
}

// Store returns the underlying badgerhold store
func (b *BadgerDB) Store() *badgerhold.Store {
	return b.store
}

// Path is the database directory
func (b *BadgerDB) Path() string {
	return b.path
}

// Close flushes and closes the store. Safe to call on a nil or already closed DB.
func (b *BadgerDB) Close() error {
	if b == nil || b.store == nil {
		return nil
	}
	err := b.store.Close()
	b.store = nil
	if err != nil {
		return fmt.Errorf("close badger database %s: %w", b.path, err)
	}
	return nil
}
