// internal/common/database/postgres.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"fleet-assistant/internal/common/config"

	_ "github.com/lib/pq"
)

// PostgresClient wraps the hosted relational store used for mirrored conversations and survey responses.
type PostgresClient struct {
	DB *sql.DB
}

func NewPostgres(cfg config.PostgresConfig) (*PostgresClient, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdle)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return &PostgresClient{DB: db}, nil
}

func (c *PostgresClient) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

func (c *PostgresClient) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS chat_conversations (
		session_id    TEXT PRIMARY KEY,
		messages      JSONB NOT NULL DEFAULT '[]',
		user_context  JSONB NOT NULL DEFAULT '{}',
		lead_score    INTEGER NOT NULL DEFAULT 0,
		last_activity TIMESTAMPTZ NOT NULL,
		is_active     BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_chat_conversations_last_activity ON chat_conversations (last_activity)`,
	`CREATE TABLE IF NOT EXISTS survey_responses (
		id           TEXT PRIMARY KEY,
		company_name TEXT NOT NULL,
		contact_name TEXT NOT NULL,
		email        TEXT NOT NULL,
		phone        TEXT,
		fleet_size   TEXT NOT NULL,
		experience   TEXT,
		challenges   JSONB NOT NULL DEFAULT '[]',
		interests    JSONB NOT NULL DEFAULT '[]',
		lead_score   INTEGER NOT NULL,
		submitted_at TIMESTAMPTZ NOT NULL
	)`,
}

// EnsureSchema creates the tables this service writes to when they are missing.
func (c *PostgresClient) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := c.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
