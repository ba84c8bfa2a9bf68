package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"publish-scheduler/domain/dto"
	"publish-scheduler/domain/model"
	"publish-scheduler/domain/repository"
	"publish-scheduler/infrastructure/logger"
	"publish-scheduler/infrastructure/utils"

	"github.com/cenkalti/backoff/v5"
	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
)

const reasonInternal = "internal error"

type Outcome string

const (
	OutcomePublished Outcome = "published"
	OutcomeFailed    Outcome = "failed"
	OutcomeRetried   Outcome = "retried"
	OutcomeSkipped   Outcome = "skipped"
)

type PublishOptions struct {
	BatchSize            int
	AdapterTimeout       time.Duration
	MaxAttempts          int
	RetryInitialInterval time.Duration
	RetryMaxInterval     time.Duration
	ClaimLease           time.Duration
	NotifySuccess        bool
}

func DefaultPublishOptions() PublishOptions {
	return PublishOptions{
		BatchSize:            10,
		AdapterTimeout:       30 * time.Second,
		MaxAttempts:          3,
		RetryInitialInterval: time.Minute,
		RetryMaxInterval:     30 * time.Minute,
		ClaimLease:           10 * time.Minute,
		NotifySuccess:        true,
	}
}

type IPublishUsecase interface {
	RunCycle(ctx context.Context) (*model.CycleReport, error)
	ProcessTask(ctx context.Context, task *model.Task) (Outcome, error)
	CreateTask(ctx context.Context, userID string, req dto.CreateTaskRequest) (*model.Task, error)
	GetTask(ctx context.Context, userID string, id int64) (*model.Task, error)
}

// PublishUsecase moves due tasks through claim, publish and outcome.
type PublishUsecase struct {
	taskRepo  repository.ITask
	tokenRepo repository.IOAuthToken
	registry  repository.IPlatformRegistry
	notifier  repository.INotifier
	opts      PublishOptions
	now       func() time.Time
	broadcast func(*model.Task)
}

func NewPublishUsecase(
	taskRepo repository.ITask,
	tokenRepo repository.IOAuthToken,
	registry repository.IPlatformRegistry,
	notifier repository.INotifier,
	opts PublishOptions,
) *PublishUsecase {
	def := DefaultPublishOptions()
	if opts.BatchSize <= 0 {
		opts.BatchSize = def.BatchSize
	}
	if opts.AdapterTimeout <= 0 {
		opts.AdapterTimeout = def.AdapterTimeout
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = def.MaxAttempts
	}
	if opts.RetryInitialInterval <= 0 {
		opts.RetryInitialInterval = def.RetryInitialInterval
	}
	if opts.RetryMaxInterval < opts.RetryInitialInterval {
		opts.RetryMaxInterval = def.RetryMaxInterval
	}
	if opts.ClaimLease <= 0 {
		opts.ClaimLease = def.ClaimLease
	}
	return &PublishUsecase{
		taskRepo:  taskRepo,
		tokenRepo: tokenRepo,
		registry:  registry,
		notifier:  notifier,
		opts:      opts,
		now:       utils.GetCurrentTime,
	}
}

// WithBroadcaster registers a callback invoked after each committed transition.
func (u *PublishUsecase) WithBroadcaster(fn func(*model.Task)) *PublishUsecase {
	u.broadcast = fn
	return u
}

// WithClock replaces the time source.
func (u *PublishUsecase) WithClock(now func() time.Time) *PublishUsecase {
	u.now = now
	return u
}

// RunCycle releases stale claims, then processes up to BatchSize due tasks
// one at a time. A task that fails or panics never stops the rest.
func (u *PublishUsecase) RunCycle(ctx context.Context) (*model.CycleReport, error) {
	lg := logger.GetLogger()
	began := time.Now()
	report := &model.CycleReport{StartedAt: u.now()}
	defer func() { report.Duration = time.Since(began).String() }()

	released, err := u.taskRepo.ReleaseStale(ctx, report.StartedAt.Add(-u.opts.ClaimLease), report.StartedAt)
	if err != nil {
		lg.WithField("error", err).Warn("Failed to release stale claims")
	} else if released > 0 {
		lg.WithField("released", released).Warn("Released tasks left in processing past their lease")
	}
	report.Released = released

	tasks, err := u.taskRepo.FindDue(ctx, report.StartedAt, u.opts.BatchSize)
	if err != nil {
		return report, fmt.Errorf("find due tasks: %w", err)
	}
	report.Due = len(tasks)

	for _, task := range tasks {
		switch u.processSafely(ctx, task) {
		case OutcomePublished:
			report.Published++
		case OutcomeFailed:
			report.Failed++
		case OutcomeRetried:
			report.Retried++
		default:
			report.Skipped++
		}
	}
	return report, nil
}

func (u *PublishUsecase) processSafely(ctx context.Context, task *model.Task) (outcome Outcome) {
	lg := logger.GetLogger().WithFields(logrus.Fields{"task_id": task.ID, "platform": task.Platform})
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		sentry.CurrentHub().Recover(r)
		lg.WithField("panic", r).Error("Task processing panicked")
		if err := u.taskRepo.MarkFailed(ctx, task.ID, reasonInternal, u.now()); err != nil {
			if !errors.Is(err, model.ErrClaimLost) {
				lg.WithField("error", err).Error("Failed to mark panicked task as failed")
			}
			outcome = OutcomeSkipped
			return
		}
		u.committed(task, model.TaskStatusFailed, reasonInternal)
		u.notifyFailure(ctx, task, reasonInternal)
		outcome = OutcomeFailed
	}()

	outcome, err := u.ProcessTask(ctx, task)
	if err != nil {
		lg.WithField("error", err).Error("Task processing error")
	}
	return outcome
}

// ProcessTask runs one task through claim, credential lookup and publish,
// then commits the outcome. The returned error is a store failure only;
// platform failures are recorded on the task.
func (u *PublishUsecase) ProcessTask(ctx context.Context, task *model.Task) (Outcome, error) {
	lg := logger.GetLogger().WithFields(logrus.Fields{"task_id": task.ID, "platform": task.Platform, "user_id": task.UserID})

	claimedAt := u.now()
	claimed, err := u.taskRepo.Claim(ctx, task.ID, claimedAt)
	if err != nil {
		return OutcomeSkipped, fmt.Errorf("claim task %d: %w", task.ID, err)
	}
	if !claimed {
		lg.Debug("Task claimed elsewhere, skipping")
		return OutcomeSkipped, nil
	}
	task.Status = model.TaskStatusProcessing
	task.ClaimedAt = &claimedAt

	if !u.registry.Supported(task.Platform) {
		return u.fail(ctx, task, model.ErrUnsupportedPlatform.Error())
	}
	adapter := u.registry.Get(task.Platform)

	token, err := u.tokenRepo.GetToken(ctx, task.UserID, task.Platform)
	if err != nil {
		return u.retryOrFail(ctx, task, fmt.Errorf("load credential: %w", err), true)
	}
	if token == nil || !token.Usable(u.now()) {
		return u.fail(ctx, task, model.ErrCredentialUnavailable.Error())
	}

	subjectID := ""
	if token.SubjectID != nil {
		subjectID = *token.SubjectID
	}
	if subjectID == "" {
		subjectID, err = u.resolveSubject(ctx, adapter, token)
		if err != nil {
			return u.retryOrFail(ctx, task, err, model.IsRetryable(err))
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, u.opts.AdapterTimeout)
	result, err := adapter.Publish(callCtx, token.AccessToken, subjectID, task.Content)
	cancel()
	if err != nil {
		return u.retryOrFail(ctx, task, err, model.IsRetryable(err))
	}
	if result == nil || result.ExternalID == "" {
		return u.fail(ctx, task, fmt.Sprintf("%s returned no post id", task.Platform))
	}

	publishedAt := u.now()
	if err := u.taskRepo.MarkPublished(ctx, task.ID, publishedAt, result); err != nil {
		// The post is live; the row will be picked up again only through a
		// stale-lease release.
		return OutcomeSkipped, fmt.Errorf("mark task %d published (external id %s): %w", task.ID, result.ExternalID, err)
	}
	task.PublishedAt = &publishedAt
	task.ExternalID = &result.ExternalID
	task.ExternalURL = &result.URL
	u.committed(task, model.TaskStatusPublished, "")
	lg.WithField("external_id", result.ExternalID).Info("Task published")

	if u.opts.NotifySuccess {
		u.notify(ctx, model.Notification{
			Title:    fmt.Sprintf("Published to %s", task.Platform),
			Body:     fmt.Sprintf("Scheduled post %d is live: %s", task.ID, result.URL),
			Priority: model.PriorityLow,
		})
	}
	return OutcomePublished, nil
}

func (u *PublishUsecase) resolveSubject(ctx context.Context, adapter repository.IPlatformAdapter, token *model.OAuthToken) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, u.opts.AdapterTimeout)
	defer cancel()
	profile, err := adapter.ResolveSubject(callCtx, token.AccessToken)
	if err != nil {
		return "", err
	}
	token.SubjectID = &profile.SubjectID
	if profile.DisplayName != "" {
		token.DisplayName = &profile.DisplayName
	}
	if err := u.tokenRepo.UpsertToken(ctx, token); err != nil {
		logger.GetLogger().WithField("error", err).Warn("Failed to store resolved subject")
	}
	return profile.SubjectID, nil
}

// retryOrFail schedules another attempt for retryable errors while attempts
// remain, and fails the task otherwise.
func (u *PublishUsecase) retryOrFail(ctx context.Context, task *model.Task, cause error, retryable bool) (Outcome, error) {
	reason := cause.Error()
	attempts := task.Attempts + 1
	if !retryable || attempts >= u.opts.MaxAttempts {
		return u.fail(ctx, task, reason)
	}

	now := u.now()
	next := now.Add(u.retryDelay(attempts))
	if err := u.taskRepo.ScheduleRetry(ctx, task.ID, attempts, next, reason, now); err != nil {
		return OutcomeSkipped, fmt.Errorf("schedule retry for task %d: %w", task.ID, err)
	}
	task.Attempts = attempts
	task.NextRetryAt = &next
	task.ClaimedAt = nil
	u.committed(task, model.TaskStatusScheduled, reason)
	logger.GetLogger().WithFields(logrus.Fields{
		"task_id":       task.ID,
		"attempts":      attempts,
		"next_retry_at": next,
		"error":         reason,
	}).Warn("Publish failed, retry scheduled")
	return OutcomeRetried, nil
}

// retryDelay is the wait before the given attempt: InitialInterval doubled
// per prior attempt, capped at MaxInterval.
func (u *PublishUsecase) retryDelay(attempt int) time.Duration {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     u.opts.RetryInitialInterval,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         u.opts.RetryMaxInterval,
	}
	b.Reset()
	d := b.NextBackOff()
	for i := 1; i < attempt; i++ {
		d = b.NextBackOff()
	}
	return d
}

func (u *PublishUsecase) fail(ctx context.Context, task *model.Task, reason string) (Outcome, error) {
	if err := u.taskRepo.MarkFailed(ctx, task.ID, reason, u.now()); err != nil {
		return OutcomeSkipped, fmt.Errorf("mark task %d failed: %w", task.ID, err)
	}
	u.committed(task, model.TaskStatusFailed, reason)
	logger.GetLogger().WithFields(logrus.Fields{"task_id": task.ID, "platform": task.Platform, "reason": reason}).Error("Task failed")

	u.notifyFailure(ctx, task, reason)
	return OutcomeFailed, nil
}

// notifyFailure tells the operator a task reached failed.
func (u *PublishUsecase) notifyFailure(ctx context.Context, task *model.Task, reason string) {
	u.notify(ctx, model.Notification{
		Title: fmt.Sprintf("Publishing to %s failed", task.Platform),
		Body: fmt.Sprintf("Scheduled post %d for user %s could not be published to %s: %s. Manual intervention may be required.",
			task.ID, task.UserID, task.Platform, reason),
		Priority: model.PriorityHigh,
	})
}

// committed mirrors a stored transition onto the in-memory task and
// broadcasts it.
func (u *PublishUsecase) committed(task *model.Task, status model.TaskStatus, reason string) {
	task.Status = status
	task.UpdatedAt = u.now()
	if reason != "" {
		task.LastError = &reason
	} else if status == model.TaskStatusPublished {
		task.LastError = nil
	}
	if status.Terminal() {
		task.ClaimedAt = nil
	}
	if u.broadcast != nil {
		u.broadcast(task)
	}
}

func (u *PublishUsecase) notify(ctx context.Context, n model.Notification) {
	if u.notifier == nil {
		return
	}
	if !u.notifier.Notify(ctx, n) {
		logger.GetLogger().WithField("title", n.Title).Warn("Notification not delivered")
	}
}

func (u *PublishUsecase) CreateTask(ctx context.Context, userID string, req dto.CreateTaskRequest) (*model.Task, error) {
	if userID == "" {
		return nil, errors.New("user id required")
	}
	platform := model.Platform(strings.ToLower(strings.TrimSpace(req.Platform)))
	if !platform.Valid() {
		return nil, fmt.Errorf("%w: %s", model.ErrUnsupportedPlatform, req.Platform)
	}
	if strings.TrimSpace(req.Content) == "" {
		return nil, errors.New("content required")
	}
	status := model.TaskStatusScheduled
	if req.Draft {
		status = model.TaskStatusDraft
	}
	task := &model.Task{
		UserID:       userID,
		Platform:     platform,
		Content:      req.Content,
		Status:       status,
		ScheduledFor: req.ScheduledFor.UTC(),
	}
	if err := u.taskRepo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return task, nil
}

// GetTask returns the caller's task; tasks of other users are reported as
// not found.
func (u *PublishUsecase) GetTask(ctx context.Context, userID string, id int64) (*model.Task, error) {
	task, err := u.taskRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if task.UserID != userID {
		return nil, model.ErrTaskNotFound
	}
	return task, nil
}
