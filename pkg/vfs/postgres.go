package vfs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresStore keeps project files in a postgres table, one row per file.
type PostgresStore struct {
	db      *sql.DB
	project string

	schemaOnce sync.Once
	schemaErr  error
}

// OpenPostgresStore connects to dsn with the pgx driver.
func OpenPostgresStore(ctx context.Context, dsn, project string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", strings.TrimSpace(dsn))
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}
	return NewPostgresStore(db, project)
}

// NewPostgresStore wraps an open database.  Files are scoped by project.
func NewPostgresStore(db *sql.DB, project string) (*PostgresStore, error) {
	project = strings.TrimSpace(project)
	if project == "" {
		return nil, fmt.Errorf("project is required")
	}
	return &PostgresStore{db: db, project: project}, nil
}

// Close closes the underlying database.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("db is nil")
	}
	s.schemaOnce.Do(func() {
		_, s.schemaErr = s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS project_files (
    project TEXT NOT NULL,
    path TEXT NOT NULL,
    content BYTEA NOT NULL DEFAULT ''::bytea,
    updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
    PRIMARY KEY (project, path)
);
`)
	})
	return s.schemaErr
}

// Exists implements PrimaryStore.
func (s *PostgresStore) Exists(ctx context.Context, name string) (bool, error) {
	name, err := cleanName(name)
	if err != nil {
		return false, err
	}
	if err := s.ensureSchema(ctx); err != nil {
		return false, err
	}
	var exists bool
	err = s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM project_files WHERE project=$1 AND path=$2)`,
		s.project, name).Scan(&exists)
	return exists, err
}

// ReadFile implements PrimaryStore.
func (s *PostgresStore) ReadFile(ctx context.Context, name string) ([]byte, error) {
	name, err := cleanName(name)
	if err != nil {
		return nil, err
	}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	var content []byte
	err = s.db.QueryRowContext(ctx,
		`SELECT content FROM project_files WHERE project=$1 AND path=$2`,
		s.project, name).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notExist(name)
	}
	return content, err
}

// WriteFile implements PrimaryStore and StagingStore.
func (s *PostgresStore) WriteFile(ctx context.Context, name string, data []byte) error {
	name, err := cleanName(name)
	if err != nil {
		return err
	}
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}
	if data == nil {
		data = []byte{}
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO project_files (project, path, content, updated_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (project, path)
DO UPDATE SET content=EXCLUDED.content, updated_at=EXCLUDED.updated_at
`, s.project, name, data, time.Now())
	return err
}

// Walk implements Walker.
func (s *PostgresStore) Walk(ctx context.Context, fn WalkFunc) error {
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT path, content FROM project_files WHERE project=$1 ORDER BY path`, s.project)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		var content []byte
		if err := rows.Scan(&name, &content); err != nil {
			return err
		}
		if err := fn(name, content); err != nil {
			return err
		}
	}
	return rows.Err()
}
