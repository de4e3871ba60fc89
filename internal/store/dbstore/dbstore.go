// Package dbstore implements the interface in package store backed by a
// PostgreSQL database.
package dbstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/osbuild/preseed-composer/internal/common/slogger"
	"github.com/osbuild/preseed-composer/internal/store"
)

const (
	// https://www.postgresql.org/docs/current/errcodes-appendix.html
	pgUniqueViolation = "23505"

	sqlCreateTable = `
		CREATE TABLE IF NOT EXISTS preseeds (
		  id uuid PRIMARY KEY,
		  hash_id varchar(12) NOT NULL UNIQUE,
		  name varchar(255) NOT NULL,
		  content text NOT NULL,
		  created_at timestamptz NOT NULL,
		  updated_at timestamptz NOT NULL
		)`

	sqlExists = `SELECT EXISTS(SELECT 1 FROM preseeds WHERE hash_id = $1)`
	sqlInsert = `
		INSERT INTO preseeds(id, hash_id, name, content, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	sqlQuery = `
		SELECT id, hash_id, name, content, created_at, updated_at
		FROM preseeds
		WHERE hash_id = $1`
)

type DBStore struct {
	logger store.SimpleLogger
	pool   *pgxpool.Pool
}

// Config allows more detailed customization of store behavior
type Config struct {
	// Logger is used for all logging of the store, when not provided, the
	// standard global logger (logrus) is used.
	Logger store.SimpleLogger
}

// New creates a new DBStore object for `url` with default configuration.
func New(ctx context.Context, url string) (*DBStore, error) {
	return NewWithConfig(ctx, url, Config{})
}

// NewWithConfig creates a new DBStore object for `url` with specific
// configuration. The preseeds table is created if it does not exist yet.
func NewWithConfig(ctx context.Context, url string, config Config) (*DBStore, error) {
	if config.Logger == nil {
		config.Logger = slogger.NewLogrusLogger(logrus.StandardLogger())
	}

	pool, err := pgxpool.Connect(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("error establishing connection: %v", err)
	}

	_, err = pool.Exec(ctx, sqlCreateTable)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("error creating preseeds table: %v", err)
	}

	config.Logger.Info("Connected to preseed database", "host", pool.Config().ConnConfig.Host)

	return &DBStore{
		logger: config.Logger,
		pool:   pool,
	}, nil
}

func (s *DBStore) Close() {
	s.pool.Close()
}

func (s *DBStore) Exists(ctx context.Context, hashID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, sqlExists, hashID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("error querying preseed %s: %v", hashID, err)
	}
	return exists, nil
}

func (s *DBStore) Insert(ctx context.Context, p *store.Preseed) error {
	_, err := s.pool.Exec(ctx, sqlInsert, p.ID, p.HashID, p.Name, p.Content, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			s.logger.Info("Identifier collision on insert", "hash_id", p.HashID)
			return store.ErrIdentifierTaken
		}
		s.logger.Error(err, "Error inserting preseed", "hash_id", p.HashID)
		return fmt.Errorf("error inserting preseed %s: %w", p.HashID, err)
	}
	return nil
}

func (s *DBStore) Get(ctx context.Context, hashID string) (*store.Preseed, error) {
	var p store.Preseed
	err := s.pool.QueryRow(ctx, sqlQuery, hashID).Scan(&p.ID, &p.HashID, &p.Name, &p.Content, &p.CreatedAt, &p.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, store.ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("error querying preseed %s: %v", hashID, err)
	}
	return &p, nil
}
