// Package postgres provides a Postgres-backed seen-item store.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/weibo-relay/internal/storage"
)

// Config controls the Postgres connection pool used for seen rows.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MaxConnLifetime time.Duration
}

type pool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	Close()
}

// Store writes seen ids into a single BIGINT-keyed table.
type Store struct {
	pool  pool
	table string
}

// New connects to Postgres and ensures the table exists.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("store.dsn is required")
	}
	table, err := storage.TableName(cfg.Table)
	if err != nil {
		return nil, err
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	s := &Store{pool: p, table: table}
	if err := s.EnsureSchema(ctx); err != nil {
		p.Close()
		return nil, err
	}
	return s, nil
}

// NewWithPool constructs a store from an existing pool (primarily for testing).
func NewWithPool(p pool, table string) (*Store, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	name, err := storage.TableName(table)
	if err != nil {
		return nil, err
	}
	return &Store{pool: p, table: name}, nil
}

// EnsureSchema creates the seen table when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (id BIGINT PRIMARY KEY)`, s.table)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create seen table: %w", err)
	}
	return nil
}

// HasSeen reports whether id has been recorded.
func (s *Store) HasSeen(ctx context.Context, id int64) (bool, error) {
	var one int
	err := s.pool.QueryRow(ctx, fmt.Sprintf(`SELECT 1 FROM %s WHERE id = $1`, s.table), id).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, storage.Wrap("query seen", err)
	}
	return true, nil
}

// MarkSeen inserts id, ignoring conflicts.
func (s *Store) MarkSeen(ctx context.Context, id int64) error {
	query := fmt.Sprintf(`INSERT INTO %s (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`, s.table)
	if _, err := s.pool.Exec(ctx, query, id); err != nil {
		return storage.Wrap("insert seen", err)
	}
	return nil
}

// Count returns the number of recorded ids.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, s.table)).Scan(&n); err != nil {
		return 0, storage.Wrap("count seen", err)
	}
	return n, nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	s.pool.Close()
	return nil
}
