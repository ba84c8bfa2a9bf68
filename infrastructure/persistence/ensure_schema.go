package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// EnsureTaskSchema creates scheduled_posts if missing and adds the columns
// the dispatcher needs to tables created by older content stores.
// Safe to call at startup.
func EnsureTaskSchema(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ddl := `CREATE TABLE IF NOT EXISTS scheduled_posts (
		id BIGSERIAL PRIMARY KEY,
		user_id VARCHAR(128) NOT NULL,
		platform VARCHAR(32) NOT NULL,
		content TEXT NOT NULL,
		status VARCHAR(16) NOT NULL DEFAULT 'scheduled',
		scheduled_for TIMESTAMPTZ NOT NULL,
		published_at TIMESTAMPTZ NULL,
		attempts INT NOT NULL DEFAULT 0,
		next_retry_at TIMESTAMPTZ NULL,
		last_error TEXT NULL,
		external_id VARCHAR(255) NULL,
		external_url VARCHAR(512) NULL,
		claimed_at TIMESTAMPTZ NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create scheduled_posts: %w", err)
	}

	checks := []struct {
		column string
		ddl    string
	}{
		{"attempts", "ALTER TABLE scheduled_posts ADD COLUMN attempts INT NOT NULL DEFAULT 0"},
		{"next_retry_at", "ALTER TABLE scheduled_posts ADD COLUMN next_retry_at TIMESTAMPTZ NULL"},
		{"last_error", "ALTER TABLE scheduled_posts ADD COLUMN last_error TEXT NULL"},
		{"external_id", "ALTER TABLE scheduled_posts ADD COLUMN external_id VARCHAR(255) NULL"},
		{"external_url", "ALTER TABLE scheduled_posts ADD COLUMN external_url VARCHAR(512) NULL"},
		{"claimed_at", "ALTER TABLE scheduled_posts ADD COLUMN claimed_at TIMESTAMPTZ NULL"},
	}
	for _, c := range checks {
		exists, err := columnExists(ctx, db, "scheduled_posts", c.column)
		if err != nil {
			return err
		}
		if !exists {
			if _, err := db.ExecContext(ctx, c.ddl); err != nil {
				return fmt.Errorf("adding column scheduled_posts.%s failed: %w", c.column, err)
			}
		}
	}

	if _, err := db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_scheduled_posts_due ON scheduled_posts (status, scheduled_for)`); err != nil {
		return fmt.Errorf("create idx_scheduled_posts_due: %w", err)
	}
	return nil
}

// EnsureOAuthTokenSchema creates the oauth_tokens table if it does not exist.
func EnsureOAuthTokenSchema(db *sql.DB) error {
	ddl := `CREATE TABLE IF NOT EXISTS oauth_tokens (
		id BIGSERIAL PRIMARY KEY,
		user_id VARCHAR(128) NOT NULL,
		platform VARCHAR(32) NOT NULL,
		access_token TEXT NOT NULL,
		refresh_token TEXT NULL,
		expires_at TIMESTAMPTZ NULL,
		scopes TEXT NOT NULL DEFAULT '',
		subject_id VARCHAR(128) NULL,
		display_name VARCHAR(255) NULL,
		token_type VARCHAR(32) NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		UNIQUE (user_id, platform)
	)`
	if _, err := db.Exec(ddl); err != nil {
		return fmt.Errorf("create oauth_tokens: %w", err)
	}
	return nil
}

func columnExists(ctx context.Context, db *sql.DB, table, column string) (bool, error) {
	row := db.QueryRowContext(ctx, `SELECT 1 FROM information_schema.columns WHERE table_name=$1 AND column_name=$2`, table, column)
	var one int
	if err := row.Scan(&one); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
