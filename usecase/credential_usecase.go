package usecase

import (
	"context"
	"errors"
	"fmt"

	"publish-scheduler/domain/dto"
	"publish-scheduler/domain/model"
	"publish-scheduler/domain/repository"
	"publish-scheduler/infrastructure/logger"
	"publish-scheduler/infrastructure/utils"

	"github.com/sirupsen/logrus"
)

type ICredentialUsecase interface {
	Link(ctx context.Context, userID string, platform model.Platform, code string) (*model.OAuthToken, error)
	Status(ctx context.Context, userID string, platform model.Platform) (*dto.CredentialStatus, error)
}

// CredentialUsecase turns an OAuth authorization code into a stored
// credential that the dispatcher can publish with.
type CredentialUsecase struct {
	tokenRepo repository.IOAuthToken
	registry  repository.IPlatformRegistry
}

func NewCredentialUsecase(tokenRepo repository.IOAuthToken, registry repository.IPlatformRegistry) *CredentialUsecase {
	return &CredentialUsecase{tokenRepo: tokenRepo, registry: registry}
}

func (u *CredentialUsecase) Link(ctx context.Context, userID string, platform model.Platform, code string) (*model.OAuthToken, error) {
	if userID == "" {
		return nil, errors.New("user id required")
	}
	if !u.registry.Supported(platform) {
		return nil, fmt.Errorf("%w: %s", model.ErrUnsupportedPlatform, platform)
	}
	adapter := u.registry.Get(platform)

	token, err := adapter.Authenticate(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}
	profile, err := adapter.ResolveSubject(ctx, token.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("resolve subject: %w", err)
	}

	token.UserID = userID
	token.Platform = platform
	token.SubjectID = &profile.SubjectID
	if profile.DisplayName != "" {
		token.DisplayName = &profile.DisplayName
	}
	if err := u.tokenRepo.UpsertToken(ctx, token); err != nil {
		return nil, fmt.Errorf("store credential: %w", err)
	}
	logger.GetLogger().WithFields(logrus.Fields{
		"user_id":    userID,
		"platform":   platform,
		"subject_id": profile.SubjectID,
	}).Info("Platform credential linked")
	return token, nil
}

func (u *CredentialUsecase) Status(ctx context.Context, userID string, platform model.Platform) (*dto.CredentialStatus, error) {
	status := &dto.CredentialStatus{Platform: string(platform)}
	token, err := u.tokenRepo.GetToken(ctx, userID, platform)
	if err != nil {
		return nil, err
	}
	if token == nil {
		return status, nil
	}
	status.Connected = true
	status.Usable = token.Usable(utils.GetCurrentTime())
	status.SubjectID = token.SubjectID
	status.DisplayName = token.DisplayName
	status.ExpiresAt = token.ExpiresAt
	return status, nil
}
