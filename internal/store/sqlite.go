package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Arminmow/weather-dashboard-nadin-soft/internal/logger"
	"github.com/Arminmow/weather-dashboard-nadin-soft/internal/weather"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TEXT NOT NULL
);`

// SQLiteStore persists the result cache in a single-file sqlite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path and applies the schema.
// A nil logger discards output.
func NewSQLiteStore(path string, l *logger.Logger) (*SQLiteStore, error) {
	if l == nil {
		l = logger.Nop()
	}
	if path == "" {
		path = "data/weather.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One writer at a time keeps sqlite free of SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	var mode string
	if err := db.QueryRow("PRAGMA journal_mode=WAL;").Scan(&mode); err != nil {
		l.Warning("could not set WAL mode", map[string]any{"path": path, "err": err.Error()})
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	l.Info("sqlite cache opened", map[string]any{"path": path, "journal_mode": mode})

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Load(ctx context.Context) (weather.CacheEntry, error) {
	return load(ctx, s)
}

func (s *SQLiteStore) Save(ctx context.Context, snapshot *weather.WeatherSnapshot, averages weather.MonthlyAverages) error {
	return save(ctx, s, snapshot, averages)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

// put writes every slot in one transaction so a reader never sees half a save.
func (s *SQLiteStore) put(ctx context.Context, values map[string]string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)
	for k, v := range values {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO kv(key, value, updated_at) VALUES(?,?,?)`, k, v, now); err != nil {
			return fmt.Errorf("write %s: %w", k, err)
		}
	}

	return tx.Commit()
}
