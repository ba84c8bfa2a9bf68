package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// EnsureTaskSchemaMSSQL creates dbo.scheduled_posts and its due index when missing.
func EnsureTaskSchemaMSSQL(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ddl := `IF NOT EXISTS (SELECT * FROM sys.objects WHERE object_id = OBJECT_ID(N'dbo.scheduled_posts') AND type in (N'U'))
BEGIN
    CREATE TABLE dbo.[scheduled_posts] (
        id BIGINT IDENTITY(1,1) PRIMARY KEY,
        user_id NVARCHAR(128) NOT NULL,
        platform NVARCHAR(32) NOT NULL,
        content NVARCHAR(MAX) NOT NULL,
        status NVARCHAR(16) NOT NULL DEFAULT 'scheduled',
        scheduled_for DATETIME2 NOT NULL,
        published_at DATETIME2 NULL,
        attempts INT NOT NULL DEFAULT 0,
        next_retry_at DATETIME2 NULL,
        last_error NVARCHAR(MAX) NULL,
        external_id NVARCHAR(255) NULL,
        external_url NVARCHAR(512) NULL,
        claimed_at DATETIME2 NULL,
        created_at DATETIME2 NOT NULL,
        updated_at DATETIME2 NOT NULL
    );
    CREATE INDEX IX_scheduled_posts_due ON dbo.[scheduled_posts](status, scheduled_for);
END`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create scheduled_posts (mssql): %w", err)
	}

	// Helper to add a column if missing via COL_LENGTH check
	addIfMissing := func(column, ddl string) error {
		q := fmt.Sprintf(`IF COL_LENGTH('dbo.scheduled_posts', '%s') IS NULL BEGIN %s END`, column, ddl)
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure column scheduled_posts.%s: %w", column, err)
		}
		return nil
	}
	if err := addIfMissing("next_retry_at", "ALTER TABLE dbo.[scheduled_posts] ADD next_retry_at DATETIME2 NULL"); err != nil {
		return err
	}
	if err := addIfMissing("claimed_at", "ALTER TABLE dbo.[scheduled_posts] ADD claimed_at DATETIME2 NULL"); err != nil {
		return err
	}
	return addIfMissing("attempts", "ALTER TABLE dbo.[scheduled_posts] ADD attempts INT NOT NULL DEFAULT 0")
}

// EnsureOAuthTokenSchemaMSSQL creates the oauth_tokens table for SQL Server if it does not exist.
func EnsureOAuthTokenSchemaMSSQL(db *sql.DB) error {
	ddl := `IF NOT EXISTS (SELECT * FROM sys.objects WHERE object_id = OBJECT_ID(N'dbo.oauth_tokens') AND type in (N'U'))
BEGIN
    CREATE TABLE dbo.[oauth_tokens] (
        id BIGINT IDENTITY(1,1) PRIMARY KEY,
        user_id NVARCHAR(128) NOT NULL,
        platform NVARCHAR(32) NOT NULL,
        access_token NVARCHAR(MAX) NOT NULL,
        refresh_token NVARCHAR(MAX) NULL,
        expires_at DATETIME2 NULL,
        scopes NVARCHAR(MAX) NOT NULL,
        subject_id NVARCHAR(128) NULL,
        display_name NVARCHAR(255) NULL,
        token_type NVARCHAR(32) NULL,
        created_at DATETIME2 NOT NULL,
        updated_at DATETIME2 NOT NULL
    );
    CREATE UNIQUE INDEX UX_oauth_tokens_user_platform ON dbo.[oauth_tokens](user_id, platform);
END`
	if _, err := db.Exec(ddl); err != nil {
		return fmt.Errorf("create oauth_tokens (mssql): %w", err)
	}
	return nil
}
