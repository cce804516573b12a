package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore keeps buckets and assets as rows in a single database file.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore opens the database at dbPath and runs migrations.
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	// Open with DSN options for SQLite pragmas
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := runMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

// runMigrations creates all necessary tables
func runMigrations(ctx context.Context, db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS buckets (
		name TEXT PRIMARY KEY,
		data BLOB NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS assets (
		path TEXT PRIMARY KEY,
		category TEXT NOT NULL,
		original_name TEXT,
		data BLOB NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		CHECK(category IN ('images', 'pdfs'))
	);

	CREATE TABLE IF NOT EXISTS backups (
		key TEXT PRIMARY KEY,
		bucket TEXT NOT NULL,
		data BLOB NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_assets_category ON assets(category);
	CREATE INDEX IF NOT EXISTS idx_backups_bucket ON backups(bucket);
	`

	_, err := db.ExecContext(ctx, schema)
	return err
}

func (s *SQLiteStore) LoadBucket(ctx context.Context, name string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM buckets WHERE name = ?`, name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("bucket %s: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return data, nil
}

func (s *SQLiteStore) SaveBucket(ctx context.Context, name string, data []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO buckets (name, data, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(name) DO UPDATE SET data = excluded.data, updated_at = CURRENT_TIMESTAMP
	`, name, data)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

// EnsureAssetDirs is a no-op; assets live in the assets table.
func (s *SQLiteStore) EnsureAssetDirs(_ context.Context) error {
	return nil
}

func (s *SQLiteStore) SaveBinaryAsset(ctx context.Context, category Category, originalName string, data []byte) (string, error) {
	if err := validCategory(category); err != nil {
		return "", err
	}
	for {
		key := AssetPath(category, UniqueAssetName(originalName, s.now()))
		res, err := s.db.ExecContext(ctx, `
			INSERT INTO assets (path, category, original_name, data) VALUES (?, ?, ?, ?)
			ON CONFLICT(path) DO NOTHING
		`, key, string(category), originalName, data)
		if err != nil {
			return "", fmt.Errorf("failed to save %s asset: %w", category, err)
		}
		if n, _ := res.RowsAffected(); n == 1 {
			return key, nil
		}
	}
}

func (s *SQLiteStore) LoadAssetAsRenderable(ctx context.Context, relPath string) (string, bool) {
	key, err := cleanAssetPath(relPath)
	if err != nil {
		return "", false
	}
	var data []byte
	if err := s.db.QueryRowContext(ctx, `SELECT data FROM assets WHERE path = ?`, key).Scan(&data); err != nil {
		return "", false
	}
	return DataURI(data), true
}

func (s *SQLiteStore) BackupBucket(ctx context.Context, name, stamp string) (string, error) {
	data, err := s.LoadBucket(ctx, name)
	if err != nil {
		return "", err
	}
	key := backupKey(name, stamp)
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO backups (key, bucket, data) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET data = excluded.data, created_at = CURRENT_TIMESTAMP
	`, key, name, data)
	if err != nil {
		return "", fmt.Errorf("failed to back up %s: %w", name, err)
	}
	return key, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
