package usecase_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"publish-scheduler/domain/model"

	"github.com/stretchr/testify/mock"
)

type MockAdapter struct {
	mock.Mock
	platform model.Platform
}

func (m *MockAdapter) Platform() model.Platform { return m.platform }

func (m *MockAdapter) Authenticate(ctx context.Context, code string) (*model.OAuthToken, error) {
	args := m.Called(ctx, code)
	tok, _ := args.Get(0).(*model.OAuthToken)
	return tok, args.Error(1)
}

func (m *MockAdapter) ResolveSubject(ctx context.Context, accessToken string) (*model.PlatformProfile, error) {
	args := m.Called(ctx, accessToken)
	p, _ := args.Get(0).(*model.PlatformProfile)
	return p, args.Error(1)
}

func (m *MockAdapter) Publish(ctx context.Context, accessToken, subjectID, content string) (*model.PublishResult, error) {
	args := m.Called(ctx, accessToken, subjectID, content)
	r, _ := args.Get(0).(*model.PublishResult)
	return r, args.Error(1)
}

type MockOAuthTokenRepo struct {
	mock.Mock
}

func (m *MockOAuthTokenRepo) GetToken(ctx context.Context, userID string, platform model.Platform) (*model.OAuthToken, error) {
	args := m.Called(ctx, userID, platform)
	tok, _ := args.Get(0).(*model.OAuthToken)
	return tok, args.Error(1)
}

func (m *MockOAuthTokenRepo) UpsertToken(ctx context.Context, token *model.OAuthToken) error {
	return m.Called(ctx, token).Error(0)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, n model.Notification) bool {
	return m.Called(ctx, n).Bool(0)
}

type MockLeaderLock struct {
	mock.Mock
}

func (m *MockLeaderLock) Acquire(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *MockLeaderLock) Release(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// memTaskStore is an in-memory task store with the same conditional
// update rules as the SQL stores.
type memTaskStore struct {
	mu      sync.Mutex
	tasks   map[int64]*model.Task
	nextID  int64
	claimed map[int64]int
	// stealClaims makes every Claim lose the race.
	stealClaims bool
}

func newMemTaskStore() *memTaskStore {
	return &memTaskStore{tasks: map[int64]*model.Task{}, claimed: map[int64]int{}}
}

func (s *memTaskStore) add(t model.Task) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	t.ID = s.nextID
	s.tasks[t.ID] = &t
	return t.ID
}

func (s *memTaskStore) get(id int64) model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.tasks[id]
}

func (s *memTaskStore) FindDue(_ context.Context, now time.Time, limit int) ([]*model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var due []*model.Task
	for _, t := range s.tasks {
		if t.Status != model.TaskStatusScheduled || t.ScheduledFor.After(now) {
			continue
		}
		if t.NextRetryAt != nil && t.NextRetryAt.After(now) {
			continue
		}
		c := *t
		due = append(due, &c)
	}
	sort.Slice(due, func(i, j int) bool {
		if !due[i].ScheduledFor.Equal(due[j].ScheduledFor) {
			return due[i].ScheduledFor.Before(due[j].ScheduledFor)
		}
		return due[i].ID < due[j].ID
	})
	if len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (s *memTaskStore) Claim(_ context.Context, id int64, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok || t.Status != model.TaskStatusScheduled || s.stealClaims {
		return false, nil
	}
	t.Status = model.TaskStatusProcessing
	t.ClaimedAt = &now
	t.UpdatedAt = now
	s.claimed[id]++
	return true, nil
}

func (s *memTaskStore) processing(id int64) (*model.Task, error) {
	t, ok := s.tasks[id]
	if !ok || t.Status != model.TaskStatusProcessing {
		return nil, model.ErrClaimLost
	}
	return t, nil
}

func (s *memTaskStore) MarkPublished(_ context.Context, id int64, publishedAt time.Time, result *model.PublishResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.processing(id)
	if err != nil {
		return err
	}
	t.Status = model.TaskStatusPublished
	t.PublishedAt = &publishedAt
	t.ExternalID = &result.ExternalID
	t.ExternalURL = &result.URL
	t.LastError = nil
	t.ClaimedAt = nil
	t.UpdatedAt = publishedAt
	return nil
}

func (s *memTaskStore) MarkFailed(_ context.Context, id int64, reason string, failedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.processing(id)
	if err != nil {
		return err
	}
	t.Status = model.TaskStatusFailed
	t.LastError = &reason
	t.ClaimedAt = nil
	t.UpdatedAt = failedAt
	return nil
}

func (s *memTaskStore) ScheduleRetry(_ context.Context, id int64, attempts int, nextRetryAt time.Time, reason string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.processing(id)
	if err != nil {
		return err
	}
	t.Status = model.TaskStatusScheduled
	t.Attempts = attempts
	t.NextRetryAt = &nextRetryAt
	t.LastError = &reason
	t.ClaimedAt = nil
	t.UpdatedAt = now
	return nil
}

func (s *memTaskStore) ReleaseStale(_ context.Context, claimedBefore, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, t := range s.tasks {
		if t.Status == model.TaskStatusProcessing && t.ClaimedAt != nil && t.ClaimedAt.Before(claimedBefore) {
			t.Status = model.TaskStatusScheduled
			t.ClaimedAt = nil
			t.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

func (s *memTaskStore) GetByID(_ context.Context, id int64) (*model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, model.ErrTaskNotFound
	}
	c := *t
	return &c, nil
}

func (s *memTaskStore) Create(_ context.Context, t *model.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	t.ID = s.nextID
	c := *t
	s.tasks[t.ID] = &c
	return nil
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
