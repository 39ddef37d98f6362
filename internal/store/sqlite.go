package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3" // SQLite driver
	"go.uber.org/zap"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
)

// timeLayout is fixed width so stored timestamps compare correctly as text.
const timeLayout = "2006-01-02 15:04:05.000000000"

type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLiteStore opens (creating if needed) the database file at path and
// applies the schema. ":memory:" is accepted for throwaway databases.
func NewSQLiteStore(path string, logger *zap.Logger) (*SQLiteStore, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps :memory: databases shared and writes serialized.
	db.SetMaxOpenConns(1)
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{db: db, logger: logger}
	if err = store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	logger.Info("Database ready", zap.String("path", path))
	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS users (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        name TEXT UNIQUE NOT NULL,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );

    CREATE TABLE IF NOT EXISTS user_metrics (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        user_id INTEGER NOT NULL,
        metric_name TEXT NOT NULL,
        enabled BOOLEAN NOT NULL DEFAULT TRUE,
        display_order INTEGER NOT NULL DEFAULT 0,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        UNIQUE (user_id, metric_name),
        FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE
    );

    CREATE TABLE IF NOT EXISTS metric_entries (
        id TEXT PRIMARY KEY, -- UUID
        user_id INTEGER NOT NULL,
        metric_name TEXT NOT NULL,
        timestamp TEXT NOT NULL, -- UTC, timeLayout
        value_type TEXT NOT NULL CHECK (value_type IN ('boolean', 'integer', 'decimal', 'text')),
        value_boolean BOOLEAN,
        value_integer INTEGER,
        value_decimal REAL,
        value_text TEXT,
        metadata TEXT, -- JSON object
        FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE,
        CHECK (
            (value_boolean IS NOT NULL) + (value_integer IS NOT NULL) +
            (value_decimal IS NOT NULL) + (value_text IS NOT NULL) = 1
        )
    );
    CREATE INDEX IF NOT EXISTS idx_entries_user_metric ON metric_entries (user_id, metric_name);
    CREATE INDEX IF NOT EXISTS idx_entries_timestamp ON metric_entries (timestamp);
    CREATE INDEX IF NOT EXISTS idx_entries_user_timestamp ON metric_entries (user_id, timestamp);

    CREATE TABLE IF NOT EXISTS daily_summary_cache (
        id TEXT PRIMARY KEY, -- UUID
        user_id INTEGER NOT NULL,
        cache_date TEXT NOT NULL, -- YYYY-MM-DD
        summary_content TEXT NOT NULL,
        generated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        UNIQUE (user_id, cache_date),
        FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE
    );
    `
	_, err := s.db.Exec(schema)
	return err
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.ParseInLocation(timeLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp %q: %w", s, err)
	}
	return t, nil
}

// dayBounds returns the UTC text bounds of the local calendar day holding t.
func dayBounds(t time.Time) (string, string) {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return formatTime(start), formatTime(start.AddDate(0, 0, 1))
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
