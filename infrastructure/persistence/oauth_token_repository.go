package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"publish-scheduler/domain/model"
)

const oauthTokenColumns = `id, user_id, platform, access_token, refresh_token, expires_at, scopes, subject_id, display_name, token_type, created_at, updated_at`

type OAuthTokenRepository struct{ db *sql.DB }

func NewOAuthTokenRepository(db *sql.DB) *OAuthTokenRepository { return &OAuthTokenRepository{db: db} }

func (r *OAuthTokenRepository) UpsertToken(ctx context.Context, t *model.OAuthToken) error {
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
	q := `INSERT INTO oauth_tokens (user_id, platform, access_token, refresh_token, expires_at, scopes, subject_id, display_name, token_type, created_at, updated_at)
		  VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		  ON CONFLICT (user_id, platform) DO UPDATE SET
			access_token=EXCLUDED.access_token,
			refresh_token=EXCLUDED.refresh_token,
			expires_at=EXCLUDED.expires_at,
			scopes=EXCLUDED.scopes,
			subject_id=EXCLUDED.subject_id,
			display_name=EXCLUDED.display_name,
			token_type=EXCLUDED.token_type,
			updated_at=EXCLUDED.updated_at`
	_, err := r.db.ExecContext(ctx, q, t.UserID, string(t.Platform), t.AccessToken, t.RefreshToken, toNullTime(t.ExpiresAt), t.Scopes,
		toNullString(t.SubjectID), toNullString(t.DisplayName), toNullString(t.TokenType), t.CreatedAt, t.UpdatedAt)
	return err
}

// GetToken returns (nil, nil) when the user has not linked the platform.
func (r *OAuthTokenRepository) GetToken(ctx context.Context, userID string, platform model.Platform) (*model.OAuthToken, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+oauthTokenColumns+` FROM oauth_tokens WHERE user_id=$1 AND platform=$2`, userID, string(platform))
	return scanOAuthToken(row)
}

func scanOAuthToken(row rowScanner) (*model.OAuthToken, error) {
	tok := &model.OAuthToken{}
	var platform string
	var refresh sql.NullString
	var exp sql.NullTime
	var subjectID, displayName, tokenType sql.NullString
	err := row.Scan(&tok.ID, &tok.UserID, &platform, &tok.AccessToken, &refresh, &exp, &tok.Scopes, &subjectID, &displayName, &tokenType, &tok.CreatedAt, &tok.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	tok.Platform = model.Platform(platform)
	tok.RefreshToken = refresh.String
	tok.ExpiresAt = nullTime(exp)
	tok.SubjectID = nullString(subjectID)
	tok.DisplayName = nullString(displayName)
	tok.TokenType = nullString(tokenType)
	return tok, nil
}
