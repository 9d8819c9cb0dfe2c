package metastore

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteBackend stores records in a single SQLite database. Each Write is one
// upsert statement, so the atomicity guarantee comes from the database rather
// than a rename.
type SQLiteBackend struct {
	db *sql.DB
}

// NewSQLiteBackend opens (or creates) the database at path.
func NewSQLiteBackend(path string) (*SQLiteBackend, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating metadata directory: %w", err)
	}

	dsn := path + "?" + url.Values{
		"_pragma": []string{
			"busy_timeout(5000)",
			"journal_mode(WAL)",
			"synchronous(NORMAL)",
		},
	}.Encode()

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening metadata db: %w", err)
	}
	db.SetMaxOpenConns(1)

	b := &SQLiteBackend{db: db}
	if err := b.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return b, nil
}

func (b *SQLiteBackend) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sync_records (
		key TEXT PRIMARY KEY,
		record TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);`
	if _, err := b.db.Exec(schema); err != nil {
		return fmt.Errorf("initializing metadata schema: %w", err)
	}
	return nil
}

func (b *SQLiteBackend) Read(key string) ([]byte, error) {
	var record string
	err := b.db.QueryRow(`SELECT record FROM sync_records WHERE key = ?`, key).Scan(&record)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading record %s: %w", key, err)
	}
	return []byte(record), nil
}

func (b *SQLiteBackend) Write(key string, data []byte) error {
	_, err := b.db.Exec(`
		INSERT INTO sync_records (key, record, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET record = excluded.record, updated_at = excluded.updated_at`,
		key, string(data), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("writing record %s: %w", key, err)
	}
	return nil
}

func (b *SQLiteBackend) Delete(key string) error {
	if _, err := b.db.Exec(`DELETE FROM sync_records WHERE key = ?`, key); err != nil {
		return fmt.Errorf("deleting record %s: %w", key, err)
	}
	return nil
}

func (b *SQLiteBackend) Close() error { return b.db.Close() }
