package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// DB wraps the canonical store connection.
type DB struct {
	conn *sql.DB
	path string
}

// Open creates the database connection and applies the schema.
func Open(dbPath string) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// WAL mode keeps concurrent transform+load writers out of each
	// other's way; the UNIQUE constraint does the real coordination.
	conn, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(8)
	conn.SetMaxIdleConns(2)

	db := &DB{conn: conn, path: dbPath}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

// migrate applies the schema. Statements are idempotent so opening an
// existing store is a no-op.
func (db *DB) migrate() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS trades (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			politician_name TEXT NOT NULL,
			chamber TEXT NOT NULL DEFAULT '',
			transaction_date TEXT NOT NULL,
			filing_date TEXT NOT NULL,
			ticker TEXT,
			asset_name TEXT NOT NULL DEFAULT '',
			asset_type TEXT NOT NULL DEFAULT 'Stock',
			transaction_type TEXT NOT NULL,
			amount_range TEXT NOT NULL,
			owner TEXT,
			comment TEXT,
			source_url TEXT NOT NULL,
			source_format TEXT NOT NULL,
			extraction_confidence REAL NOT NULL,
			date_corrected INTEGER NOT NULL DEFAULT 0,
			dedup_hash TEXT NOT NULL UNIQUE,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_politician ON trades(politician_name)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_ticker ON trades(ticker)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_tx_date ON trades(transaction_date)`,
		`CREATE TABLE IF NOT EXISTS extraction_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			source_type TEXT NOT NULL,
			source_url TEXT NOT NULL,
			confidence REAL NOT NULL,
			raw_record_count INTEGER NOT NULL,
			extracted_count INTEGER NOT NULL,
			status TEXT NOT NULL,
			error_message TEXT,
			created_at TEXT NOT NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.conn.Exec(stmt); err != nil {
			return fmt.Errorf("migration statement failed: %w", err)
		}
	}
	return nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the underlying sql.DB connection.
func (db *DB) Conn() *sql.DB {
	return db.conn
}
