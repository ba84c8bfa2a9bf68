package repository

import (
	"context"

	"publish-scheduler/domain/model"
)

// IOAuthToken reads and stores platform credentials. GetToken returns
// (nil, nil) when the user has no credential for the platform.
type IOAuthToken interface {
	GetToken(ctx context.Context, userID string, platform model.Platform) (*model.OAuthToken, error)
	UpsertToken(ctx context.Context, token *model.OAuthToken) error
}
