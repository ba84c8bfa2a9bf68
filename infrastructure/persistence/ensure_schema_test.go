package persistence

import (
	"context"
	"regexp"
	"testing"

	"publish-scheduler/domain/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureTaskSchema_AddsMissingColumns(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS scheduled_posts`)).WillReturnResult(sqlmock.NewResult(0, 0))
	for _, column := range []string{"attempts", "next_retry_at", "last_error", "external_id", "external_url", "claimed_at"} {
		q := mock.ExpectQuery(regexp.QuoteMeta(`SELECT 1 FROM information_schema.columns`)).WithArgs("scheduled_posts", column)
		if column == "claimed_at" {
			q.WillReturnRows(sqlmock.NewRows([]string{"?column?"}))
			continue
		}
		q.WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	}
	mock.ExpectExec(regexp.QuoteMeta(`ALTER TABLE scheduled_posts ADD COLUMN claimed_at`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`CREATE INDEX IF NOT EXISTS idx_scheduled_posts_due`)).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, EnsureTaskSchema(db))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationLogMongo_WithoutClient(t *testing.T) {
	log := NewNotificationLogMongo(nil, "publish_scheduler")
	assert.NotNil(t, log)

	err := log.Save(context.Background(), &model.NotificationRecord{})
	assert.Error(t, err)

	_, err = log.Recent(context.Background(), 10)
	assert.Error(t, err)
}
