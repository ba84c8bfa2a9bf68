package persistence

import (
	"context"
	"database/sql"
	"time"

	"publish-scheduler/domain/model"
)

type OAuthTokenRepositoryMSSQL struct{ db *sql.DB }

func NewOAuthTokenRepositoryMSSQL(db *sql.DB) *OAuthTokenRepositoryMSSQL {
	return &OAuthTokenRepositoryMSSQL{db: db}
}

func (r *OAuthTokenRepositoryMSSQL) UpsertToken(ctx context.Context, t *model.OAuthToken) error {
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
	// MERGE upsert by (user_id, platform)
	q := `MERGE dbo.[oauth_tokens] AS target
USING (VALUES (@p1, @p2)) AS src(user_id, platform)
ON target.user_id = src.user_id AND target.platform = src.platform
WHEN MATCHED THEN UPDATE SET
    access_token=@p3,
    refresh_token=@p4,
    expires_at=@p5,
    scopes=@p6,
    subject_id=@p7,
    display_name=@p8,
    token_type=@p9,
    updated_at=@p11
WHEN NOT MATCHED THEN
    INSERT (user_id, platform, access_token, refresh_token, expires_at, scopes, subject_id, display_name, token_type, created_at, updated_at)
    VALUES (@p1,@p2,@p3,@p4,@p5,@p6,@p7,@p8,@p9,@p10,@p11);`
	_, err := r.db.ExecContext(ctx, q,
		t.UserID, string(t.Platform),
		t.AccessToken,
		t.RefreshToken,
		toNullTime(t.ExpiresAt),
		t.Scopes,
		toNullString(t.SubjectID),
		toNullString(t.DisplayName),
		toNullString(t.TokenType),
		t.CreatedAt,
		t.UpdatedAt,
	)
	return err
}

func (r *OAuthTokenRepositoryMSSQL) GetToken(ctx context.Context, userID string, platform model.Platform) (*model.OAuthToken, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+oauthTokenColumns+` FROM dbo.[oauth_tokens] WHERE user_id=@p1 AND platform=@p2`, userID, string(platform))
	return scanOAuthToken(row)
}
