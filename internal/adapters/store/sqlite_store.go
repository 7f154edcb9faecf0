package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Options are the behavior settings shared by every store backend
type Options struct {
	Overwrite        bool
	AlertRetention   time.Duration
	CleanupFrequency time.Duration
}

// NewSQLiteStore creates a new SQLite store
func NewSQLiteStore(dbPath string, opts Options, logger *zap.Logger) (*SQLStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	// A single connection keeps writes serialized and :memory: databases shared.
	db.SetMaxOpenConns(1)

	return newSQLStore(db, sqliteDialect, opts, logger)
}
