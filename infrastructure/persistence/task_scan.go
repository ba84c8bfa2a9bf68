package persistence

import (
	"database/sql"
	"time"

	"publish-scheduler/domain/model"
)

// taskColumns is shared by the PostgreSQL and SQL Server stores so that
// scanTask can read either.
const taskColumns = `id, user_id, platform, content, status, scheduled_for, published_at, attempts, next_retry_at, last_error, external_id, external_url, claimed_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTask(row rowScanner) (*model.Task, error) {
	t := &model.Task{}
	var platform, status string
	var publishedAt, nextRetryAt, claimedAt sql.NullTime
	var lastError, externalID, externalURL sql.NullString
	if err := row.Scan(&t.ID, &t.UserID, &platform, &t.Content, &status, &t.ScheduledFor, &publishedAt, &t.Attempts, &nextRetryAt, &lastError, &externalID, &externalURL, &claimedAt, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.Platform = model.Platform(platform)
	t.Status = model.TaskStatus(status)
	t.PublishedAt = nullTime(publishedAt)
	t.NextRetryAt = nullTime(nextRetryAt)
	t.ClaimedAt = nullTime(claimedAt)
	t.LastError = nullString(lastError)
	t.ExternalID = nullString(externalID)
	t.ExternalURL = nullString(externalURL)
	return t, nil
}

func scanTasks(rows *sql.Rows) ([]*model.Task, error) {
	defer rows.Close()
	var out []*model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func nullTime(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func toNullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func toNullTime(v *time.Time) sql.NullTime {
	if v == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *v, Valid: true}
}

// exactlyOne turns a conditional UPDATE that matched nothing into ErrClaimLost.
func exactlyOne(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != 1 {
		return model.ErrClaimLost
	}
	return nil
}
