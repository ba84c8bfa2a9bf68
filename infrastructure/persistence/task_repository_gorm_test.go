package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"publish-scheduler/domain/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func newGormMock(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, *sql.DB) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := OpenGorm(mysql.New(mysql.Config{
		Conn:                      db,
		SkipInitializeWithVersion: true,
	}))
	require.NoError(t, err)
	return gormDB, mock, db
}

func TestTaskRepositoryGorm_FindDue(t *testing.T) {
	gormDB, mock, db := newGormMock(t)
	defer db.Close()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT \\* FROM `scheduled_posts` WHERE .*ORDER BY scheduled_for ASC,id ASC LIMIT").
		WillReturnRows(sqlmock.NewRows(taskColumnNames).
			AddRow(taskRow(1, "u1", "linkedin", "scheduled", now.Add(-time.Hour))...).
			AddRow(taskRow(2, "u1", "linkedin", "scheduled", now.Add(-time.Minute))...))

	tasks, err := NewTaskRepositoryGorm(gormDB).FindDue(context.Background(), now, 10)

	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, int64(1), tasks[0].ID)
	assert.Equal(t, model.TaskStatusScheduled, tasks[1].Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepositoryGorm_Claim(t *testing.T) {
	gormDB, mock, db := newGormMock(t)
	defer db.Close()

	mock.ExpectExec("UPDATE `scheduled_posts` SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE `scheduled_posts` SET").WillReturnResult(sqlmock.NewResult(0, 0))

	repository := NewTaskRepositoryGorm(gormDB)
	ok, err := repository.Claim(context.Background(), 1, time.Now())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repository.Claim(context.Background(), 1, time.Now())
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepositoryGorm_MarkPublished_NotClaimed(t *testing.T) {
	gormDB, mock, db := newGormMock(t)
	defer db.Close()

	mock.ExpectExec("UPDATE `scheduled_posts` SET").WillReturnResult(sqlmock.NewResult(0, 0))

	err := NewTaskRepositoryGorm(gormDB).MarkPublished(context.Background(), 1, time.Now(), &model.PublishResult{ExternalID: "x"})

	require.ErrorIs(t, err, model.ErrClaimLost)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepositoryGorm_ReleaseStale_StampsCallerTime(t *testing.T) {
	gormDB, mock, db := newGormMock(t)
	defer db.Close()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cutoff := now.Add(-10 * time.Minute)
	mock.ExpectExec("UPDATE `scheduled_posts` SET `claimed_at`=\\?,`status`=\\?,`updated_at`=\\?").
		WithArgs(nil, "scheduled", now, "processing", cutoff).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := NewTaskRepositoryGorm(gormDB).ReleaseStale(context.Background(), cutoff, now)

	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepositoryGorm_Create(t *testing.T) {
	gormDB, mock, db := newGormMock(t)
	defer db.Close()

	mock.ExpectExec("INSERT INTO `scheduled_posts`").WillReturnResult(sqlmock.NewResult(42, 1))

	task := &model.Task{UserID: "u1", Platform: model.PlatformLinkedIn, Content: "hi", ScheduledFor: time.Now()}
	err := NewTaskRepositoryGorm(gormDB).Create(context.Background(), task)

	require.NoError(t, err)
	assert.Equal(t, int64(42), task.ID)
	assert.Equal(t, model.TaskStatusScheduled, task.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOAuthTokenRepositoryGorm_GetToken_Missing(t *testing.T) {
	gormDB, mock, db := newGormMock(t)
	defer db.Close()

	mock.ExpectQuery("SELECT \\* FROM `oauth_tokens` WHERE").WillReturnRows(sqlmock.NewRows(oauthTokenColumnNames))

	tok, err := NewOAuthTokenRepositoryGorm(gormDB).GetToken(context.Background(), "u1", model.PlatformLinkedIn)

	require.NoError(t, err)
	assert.Nil(t, tok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOAuthTokenRepositoryGorm_UpsertToken(t *testing.T) {
	gormDB, mock, db := newGormMock(t)
	defer db.Close()

	mock.ExpectExec("INSERT INTO `oauth_tokens` .* ON DUPLICATE KEY UPDATE").WillReturnResult(sqlmock.NewResult(3, 1))

	tok := &model.OAuthToken{UserID: "u1", Platform: model.PlatformLinkedIn, AccessToken: "tok"}
	require.NoError(t, NewOAuthTokenRepositoryGorm(gormDB).UpsertToken(context.Background(), tok))
	require.NoError(t, mock.ExpectationsWereMet())
}
