package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// FileName is the name of the catalog database inside its directory.
const FileName = "sigscan.db"

// Catalog provides SQLite-based storage for items, their binaries and the
// results recorded by scans.
type Catalog struct {
	db     *sql.DB
	dbPath string
	logger *slog.Logger
}

// Options configures Catalog behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool

	// Logger receives diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
}

// DefaultOptions returns the default catalog options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the catalog in dir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dir string, opts Options) (*Catalog, error) {
	dbPath := filepath.Join(dir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("catalog not found at %s (run 'sigscan import' first)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check catalog path: %w", err)
		}
	} else if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create catalog directory: %w", err)
	}

	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}

	// SQLite only supports one writer; annotate and export share it.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	c := &Catalog{db: db, dbPath: dbPath, logger: logger}

	// Other sigscan processes may hold the write lock for a moment.
	if _, err := db.ExecContext(context.Background(), "PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}
	if _, err := db.ExecContext(context.Background(), "PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := c.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return c, nil
}

// Path returns the database file path.
func (c *Catalog) Path() string {
	return c.dbPath
}

// Close closes the database connection.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (c *Catalog) createTables() error {
	schema := `
	-- Items form a tree through parent_guid; seq keeps import order
	CREATE TABLE IF NOT EXISTS items (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		guid TEXT NOT NULL UNIQUE,
		parent_guid TEXT,
		name TEXT NOT NULL,
		path TEXT NOT NULL,
		path_names TEXT NOT NULL,
		kind TEXT,
		mime_type TEXT,
		md5 TEXT,
		audited_size INTEGER DEFAULT 0,
		extension TEXT,
		has_binary INTEGER NOT NULL DEFAULT 0,
		imported_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_items_parent ON items(parent_guid);
	CREATE INDEX IF NOT EXISTS idx_items_path ON items(path);

	-- Inline binaries; items kept in an object store have no row here
	CREATE TABLE IF NOT EXISTS blobs (
		guid TEXT PRIMARY KEY REFERENCES items(guid) ON DELETE CASCADE,
		content BLOB NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tags (
		guid TEXT NOT NULL REFERENCES items(guid) ON DELETE CASCADE,
		label TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (guid, label)
	);

	CREATE INDEX IF NOT EXISTS idx_tags_label ON tags(label);

	CREATE TABLE IF NOT EXISTS custom_metadata (
		guid TEXT NOT NULL REFERENCES items(guid) ON DELETE CASCADE,
		field TEXT NOT NULL,
		value TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (guid, field)
	);

	-- Runs store the final counters of every scan
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at DATETIME NOT NULL,
		finished_at DATETIME NOT NULL,
		concurrency INTEGER NOT NULL,
		rules TEXT NOT NULL,
		summary_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	CREATE TABLE IF NOT EXISTS run_matches (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		guid TEXT NOT NULL,
		rule TEXT NOT NULL,
		PRIMARY KEY (run_id, guid, rule)
	);
	`

	_, err := c.db.ExecContext(context.Background(), schema)
	return err
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	timestampLayout,
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
}

// parseTimestamp parses a timestamp column. It returns the zero time when
// no format matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// timestampLayout is fixed width so stored timestamps sort as text.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// formatTimestamp is the inverse of parseTimestamp for values we write.
func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}
