package repository

import (
	"context"

	"publish-scheduler/domain/model"
)

// IPlatformAdapter wraps the protocol of one external platform.
type IPlatformAdapter interface {
	Platform() model.Platform
	Authenticate(ctx context.Context, code string) (*model.OAuthToken, error)
	ResolveSubject(ctx context.Context, accessToken string) (*model.PlatformProfile, error)
	Publish(ctx context.Context, accessToken, subjectID, content string) (*model.PublishResult, error)
}

// IPlatformRegistry maps a platform to its adapter. Get never returns nil.
type IPlatformRegistry interface {
	Get(platform model.Platform) IPlatformAdapter
	Supported(platform model.Platform) bool
}
