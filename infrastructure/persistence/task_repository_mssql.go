package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"publish-scheduler/domain/model"
)

// TaskRepositoryMSSQL is the SQL Server / Azure SQL task store.
type TaskRepositoryMSSQL struct{ db *sql.DB }

func NewTaskRepositoryMSSQL(db *sql.DB) *TaskRepositoryMSSQL { return &TaskRepositoryMSSQL{db: db} }

func (r *TaskRepositoryMSSQL) FindDue(ctx context.Context, now time.Time, limit int) ([]*model.Task, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT TOP (@p1) `+taskColumns+` FROM dbo.[scheduled_posts]
WHERE status=@p2 AND scheduled_for <= @p3 AND (next_retry_at IS NULL OR next_retry_at <= @p3)
ORDER BY scheduled_for ASC, id ASC`, limit, string(model.TaskStatusScheduled), now)
	if err != nil {
		return nil, err
	}
	return scanTasks(rows)
}

func (r *TaskRepositoryMSSQL) Claim(ctx context.Context, id int64, now time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE dbo.[scheduled_posts] SET status=@p1, claimed_at=@p2, updated_at=@p2 WHERE id=@p3 AND status=@p4`,
		string(model.TaskStatusProcessing), now, id, string(model.TaskStatusScheduled))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *TaskRepositoryMSSQL) MarkPublished(ctx context.Context, id int64, publishedAt time.Time, result *model.PublishResult) error {
	var externalID, url sql.NullString
	if result != nil {
		externalID = sql.NullString{String: result.ExternalID, Valid: result.ExternalID != ""}
		url = sql.NullString{String: result.URL, Valid: result.URL != ""}
	}
	return exactlyOne(r.db.ExecContext(ctx, `UPDATE dbo.[scheduled_posts] SET status=@p1, published_at=@p2, external_id=@p3, external_url=@p4, last_error=NULL, updated_at=@p2 WHERE id=@p5 AND status=@p6`,
		string(model.TaskStatusPublished), publishedAt, externalID, url, id, string(model.TaskStatusProcessing)))
}

func (r *TaskRepositoryMSSQL) MarkFailed(ctx context.Context, id int64, reason string, failedAt time.Time) error {
	return exactlyOne(r.db.ExecContext(ctx, `UPDATE dbo.[scheduled_posts] SET status=@p1, last_error=@p2, claimed_at=NULL, updated_at=@p3 WHERE id=@p4 AND status=@p5`,
		string(model.TaskStatusFailed), reason, failedAt, id, string(model.TaskStatusProcessing)))
}

func (r *TaskRepositoryMSSQL) ScheduleRetry(ctx context.Context, id int64, attempts int, nextRetryAt time.Time, reason string, now time.Time) error {
	return exactlyOne(r.db.ExecContext(ctx, `UPDATE dbo.[scheduled_posts] SET status=@p1, attempts=@p2, next_retry_at=@p3, last_error=@p4, claimed_at=NULL, updated_at=@p5 WHERE id=@p6 AND status=@p7`,
		string(model.TaskStatusScheduled), attempts, nextRetryAt, reason, now, id, string(model.TaskStatusProcessing)))
}

func (r *TaskRepositoryMSSQL) ReleaseStale(ctx context.Context, claimedBefore, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE dbo.[scheduled_posts] SET status=@p1, claimed_at=NULL, updated_at=@p2 WHERE status=@p3 AND claimed_at < @p4`,
		string(model.TaskStatusScheduled), now, string(model.TaskStatusProcessing), claimedBefore)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *TaskRepositoryMSSQL) GetByID(ctx context.Context, id int64) (*model.Task, error) {
	t, err := scanTask(r.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM dbo.[scheduled_posts] WHERE id=@p1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrTaskNotFound
	}
	return t, err
}

func (r *TaskRepositoryMSSQL) Create(ctx context.Context, t *model.Task) error {
	if t.Status == "" {
		t.Status = model.TaskStatusScheduled
	}
	now := time.Now().UTC()
	t.CreatedAt, t.UpdatedAt = now, now
	return r.db.QueryRowContext(ctx, `INSERT INTO dbo.[scheduled_posts] (user_id, platform, content, status, scheduled_for, attempts, created_at, updated_at)
OUTPUT INSERTED.id
VALUES (@p1,@p2,@p3,@p4,@p5,@p6,@p7,@p8)`,
		t.UserID, string(t.Platform), t.Content, string(t.Status), t.ScheduledFor, t.Attempts, t.CreatedAt, t.UpdatedAt).Scan(&t.ID)
}
