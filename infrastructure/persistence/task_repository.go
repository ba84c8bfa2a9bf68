package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"publish-scheduler/domain/model"
)

// TaskRepository is the PostgreSQL task store.
type TaskRepository struct{ db *sql.DB }

func NewTaskRepository(db *sql.DB) *TaskRepository { return &TaskRepository{db: db} }

func (r *TaskRepository) FindDue(ctx context.Context, now time.Time, limit int) ([]*model.Task, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+taskColumns+` FROM scheduled_posts
		WHERE status=$1 AND scheduled_for <= $2 AND (next_retry_at IS NULL OR next_retry_at <= $2)
		ORDER BY scheduled_for ASC, id ASC LIMIT $3`, model.TaskStatusScheduled, now, limit)
	if err != nil {
		return nil, err
	}
	return scanTasks(rows)
}

func (r *TaskRepository) Claim(ctx context.Context, id int64, now time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE scheduled_posts SET status=$1, claimed_at=$2, updated_at=$2 WHERE id=$3 AND status=$4`,
		model.TaskStatusProcessing, now, id, model.TaskStatusScheduled)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *TaskRepository) MarkPublished(ctx context.Context, id int64, publishedAt time.Time, result *model.PublishResult) error {
	var externalID, url sql.NullString
	if result != nil {
		externalID = sql.NullString{String: result.ExternalID, Valid: result.ExternalID != ""}
		url = sql.NullString{String: result.URL, Valid: result.URL != ""}
	}
	return exactlyOne(r.db.ExecContext(ctx, `UPDATE scheduled_posts SET status=$1, published_at=$2, external_id=$3, external_url=$4, last_error=NULL, updated_at=$2 WHERE id=$5 AND status=$6`,
		model.TaskStatusPublished, publishedAt, externalID, url, id, model.TaskStatusProcessing))
}

func (r *TaskRepository) MarkFailed(ctx context.Context, id int64, reason string, failedAt time.Time) error {
	return exactlyOne(r.db.ExecContext(ctx, `UPDATE scheduled_posts SET status=$1, last_error=$2, claimed_at=NULL, updated_at=$3 WHERE id=$4 AND status=$5`,
		model.TaskStatusFailed, reason, failedAt, id, model.TaskStatusProcessing))
}

func (r *TaskRepository) ScheduleRetry(ctx context.Context, id int64, attempts int, nextRetryAt time.Time, reason string, now time.Time) error {
	return exactlyOne(r.db.ExecContext(ctx, `UPDATE scheduled_posts SET status=$1, attempts=$2, next_retry_at=$3, last_error=$4, claimed_at=NULL, updated_at=$5 WHERE id=$6 AND status=$7`,
		model.TaskStatusScheduled, attempts, nextRetryAt, reason, now, id, model.TaskStatusProcessing))
}

func (r *TaskRepository) ReleaseStale(ctx context.Context, claimedBefore, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE scheduled_posts SET status=$1, claimed_at=NULL, updated_at=$2 WHERE status=$3 AND claimed_at < $4`,
		model.TaskStatusScheduled, now, model.TaskStatusProcessing, claimedBefore)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *TaskRepository) GetByID(ctx context.Context, id int64) (*model.Task, error) {
	t, err := scanTask(r.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM scheduled_posts WHERE id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrTaskNotFound
	}
	return t, err
}

func (r *TaskRepository) Create(ctx context.Context, t *model.Task) error {
	if t.Status == "" {
		t.Status = model.TaskStatusScheduled
	}
	now := time.Now().UTC()
	t.CreatedAt, t.UpdatedAt = now, now
	return r.db.QueryRowContext(ctx, `INSERT INTO scheduled_posts (user_id, platform, content, status, scheduled_for, attempts, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id`,
		t.UserID, t.Platform, t.Content, t.Status, t.ScheduledFor, t.Attempts, t.CreatedAt, t.UpdatedAt).Scan(&t.ID)
}
