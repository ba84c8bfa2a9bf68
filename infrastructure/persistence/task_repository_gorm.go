package persistence

import (
	"context"
	"errors"
	"time"

	"publish-scheduler/domain/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TaskRepositoryGorm is the task store for MySQL deployments.
type TaskRepositoryGorm struct{ db *gorm.DB }

func NewTaskRepositoryGorm(db *gorm.DB) *TaskRepositoryGorm { return &TaskRepositoryGorm{db: db} }

func (r *TaskRepositoryGorm) FindDue(ctx context.Context, now time.Time, limit int) ([]*model.Task, error) {
	var tasks []*model.Task
	err := r.db.WithContext(ctx).
		Where("status = ? AND scheduled_for <= ? AND (next_retry_at IS NULL OR next_retry_at <= ?)", model.TaskStatusScheduled, now, now).
		Order("scheduled_for ASC").Order("id ASC").
		Limit(limit).
		Find(&tasks).Error
	return tasks, err
}

func (r *TaskRepositoryGorm) Claim(ctx context.Context, id int64, now time.Time) (bool, error) {
	res := r.transition(ctx, id, model.TaskStatusScheduled, map[string]interface{}{
		"status":     model.TaskStatusProcessing,
		"claimed_at": now,
		"updated_at": now,
	})
	return res.RowsAffected == 1, res.Error
}

func (r *TaskRepositoryGorm) MarkPublished(ctx context.Context, id int64, publishedAt time.Time, result *model.PublishResult) error {
	updates := map[string]interface{}{
		"status":       model.TaskStatusPublished,
		"published_at": publishedAt,
		"last_error":   nil,
		"updated_at":   publishedAt,
	}
	if result != nil {
		updates["external_id"] = result.ExternalID
		updates["external_url"] = result.URL
	}
	return rowsToErr(r.transition(ctx, id, model.TaskStatusProcessing, updates))
}

func (r *TaskRepositoryGorm) MarkFailed(ctx context.Context, id int64, reason string, failedAt time.Time) error {
	return rowsToErr(r.transition(ctx, id, model.TaskStatusProcessing, map[string]interface{}{
		"status":     model.TaskStatusFailed,
		"last_error": reason,
		"claimed_at": nil,
		"updated_at": failedAt,
	}))
}

func (r *TaskRepositoryGorm) ScheduleRetry(ctx context.Context, id int64, attempts int, nextRetryAt time.Time, reason string, now time.Time) error {
	return rowsToErr(r.transition(ctx, id, model.TaskStatusProcessing, map[string]interface{}{
		"status":        model.TaskStatusScheduled,
		"attempts":      attempts,
		"next_retry_at": nextRetryAt,
		"last_error":    reason,
		"claimed_at":    nil,
		"updated_at":    now,
	}))
}

func (r *TaskRepositoryGorm) ReleaseStale(ctx context.Context, claimedBefore, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("status = ? AND claimed_at < ?", model.TaskStatusProcessing, claimedBefore).
		Updates(map[string]interface{}{"status": model.TaskStatusScheduled, "claimed_at": nil, "updated_at": now})
	return res.RowsAffected, res.Error
}

func (r *TaskRepositoryGorm) GetByID(ctx context.Context, id int64) (*model.Task, error) {
	var t model.Task
	err := r.db.WithContext(ctx).First(&t, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, model.ErrTaskNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TaskRepositoryGorm) Create(ctx context.Context, t *model.Task) error {
	if t.Status == "" {
		t.Status = model.TaskStatusScheduled
	}
	return r.db.WithContext(ctx).Create(t).Error
}

// transition applies updates only while the task is still in status from.
func (r *TaskRepositoryGorm) transition(ctx context.Context, id int64, from model.TaskStatus, updates map[string]interface{}) *gorm.DB {
	return r.db.WithContext(ctx).Model(&model.Task{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
}

func rowsToErr(res *gorm.DB) error {
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != 1 {
		return model.ErrClaimLost
	}
	return nil
}

// OAuthTokenRepositoryGorm is the credential store for MySQL deployments.
type OAuthTokenRepositoryGorm struct{ db *gorm.DB }

func NewOAuthTokenRepositoryGorm(db *gorm.DB) *OAuthTokenRepositoryGorm {
	return &OAuthTokenRepositoryGorm{db: db}
}

func (r *OAuthTokenRepositoryGorm) GetToken(ctx context.Context, userID string, platform model.Platform) (*model.OAuthToken, error) {
	var tok model.OAuthToken
	err := r.db.WithContext(ctx).Where("user_id = ? AND platform = ?", userID, platform).First(&tok).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tok, nil
}

func (r *OAuthTokenRepositoryGorm) UpsertToken(ctx context.Context, t *model.OAuthToken) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "platform"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"access_token", "refresh_token", "expires_at", "scopes",
			"subject_id", "display_name", "token_type", "updated_at",
		}),
	}).Create(t).Error
}
