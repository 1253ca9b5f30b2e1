// Package sqlite implements the seen-item store on a local SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // pure-Go driver registered as "sqlite"

	"github.com/JakeFAU/weibo-relay/internal/storage"
)

// Config controls where the store lives on disk.
type Config struct {
	Path        string
	Table       string
	BusyTimeout time.Duration
}

// Store is a durable set of notified item ids backed by a single-column table.
type Store struct {
	db    *sql.DB
	table string
}

// Open creates (if needed) and opens the database file, applying the schema.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	table, err := storage.TableName(cfg.Table)
	if err != nil {
		return nil, err
	}
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer, one connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds())); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set busy timeout: %w", err)
		}
	}
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable wal: %w", err)
	}

	s := &Store{db: db, table: table}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (id INTEGER PRIMARY KEY)`, s.table)
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// HasSeen reports whether id has been recorded.
func (s *Store) HasSeen(ctx context.Context, id int64) (bool, error) {
	if s == nil || s.db == nil {
		return false, errors.New("store is not initialized")
	}
	var one int
	err := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT 1 FROM %s WHERE id = ?`, s.table), id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, storage.Wrap("query seen", err)
	}
	return true, nil
}

// MarkSeen records id. An existing record is left untouched.
func (s *Store) MarkSeen(ctx context.Context, id int64) error {
	if s == nil || s.db == nil {
		return errors.New("store is not initialized")
	}
	stmt := fmt.Sprintf(`INSERT INTO %s (id) VALUES (?) ON CONFLICT(id) DO NOTHING`, s.table)
	if _, err := s.db.ExecContext(ctx, stmt, id); err != nil {
		return storage.Wrap("insert seen", err)
	}
	return nil
}

// Count returns the number of recorded ids.
func (s *Store) Count(ctx context.Context) (int64, error) {
	if s == nil || s.db == nil {
		return 0, errors.New("store is not initialized")
	}
	var n int64
	if err := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, s.table)).Scan(&n); err != nil {
		return 0, storage.Wrap("count seen", err)
	}
	return n, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close sqlite: %w", err)
	}
	return nil
}
