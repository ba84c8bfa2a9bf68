package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"publish-scheduler/domain/dto"
	"publish-scheduler/domain/model"
	httpHandler "publish-scheduler/interfaces/http"
	"publish-scheduler/usecase"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockPublishUsecase struct {
	mock.Mock
}

func (m *MockPublishUsecase) RunCycle(ctx context.Context) (*model.CycleReport, error) {
	args := m.Called(ctx)
	r, _ := args.Get(0).(*model.CycleReport)
	return r, args.Error(1)
}

func (m *MockPublishUsecase) ProcessTask(ctx context.Context, task *model.Task) (usecase.Outcome, error) {
	args := m.Called(ctx, task)
	return args.Get(0).(usecase.Outcome), args.Error(1)
}

func (m *MockPublishUsecase) CreateTask(ctx context.Context, userID string, req dto.CreateTaskRequest) (*model.Task, error) {
	args := m.Called(ctx, userID, req)
	t, _ := args.Get(0).(*model.Task)
	return t, args.Error(1)
}

func (m *MockPublishUsecase) GetTask(ctx context.Context, userID string, id int64) (*model.Task, error) {
	args := m.Called(ctx, userID, id)
	t, _ := args.Get(0).(*model.Task)
	return t, args.Error(1)
}

type MockCredentialUsecase struct {
	mock.Mock
}

func (m *MockCredentialUsecase) Link(ctx context.Context, userID string, platform model.Platform, code string) (*model.OAuthToken, error) {
	args := m.Called(ctx, userID, platform, code)
	t, _ := args.Get(0).(*model.OAuthToken)
	return t, args.Error(1)
}

func (m *MockCredentialUsecase) Status(ctx context.Context, userID string, platform model.Platform) (*dto.CredentialStatus, error) {
	args := m.Called(ctx, userID, platform)
	s, _ := args.Get(0).(*dto.CredentialStatus)
	return s, args.Error(1)
}

type stubTrigger struct {
	report *model.CycleReport
	err    error
}

func (s stubTrigger) TriggerOnce(context.Context) (*model.CycleReport, error) { return s.report, s.err }

type stubPlatforms struct{}

func (stubPlatforms) Platforms() []dto.PlatformCapability {
	return []dto.PlatformCapability{{Platform: "linkedin", Implemented: true}, {Platform: "twitter"}}
}

type stubConsent struct{}

func (stubConsent) AuthCodeURL(state string) string {
	return "https://www.linkedin.com/oauth/v2/authorization?state=" + state
}

type MockNotificationLog struct {
	mock.Mock
}

func (m *MockNotificationLog) Save(ctx context.Context, record *model.NotificationRecord) error {
	return m.Called(ctx, record).Error(0)
}

func (m *MockNotificationLog) Recent(ctx context.Context, limit int64) ([]model.NotificationRecord, error) {
	args := m.Called(ctx, limit)
	r, _ := args.Get(0).([]model.NotificationRecord)
	return r, args.Error(1)
}

// asUser stands in for the auth middleware.
func asUser(userID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", userID)
		c.Next()
	}
}

func do(r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) dto.Res {
	t.Helper()
	var res dto.Res
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	return res
}

func init() {
	gin.SetMode(gin.TestMode)
}

func TestTaskHandler_Create(t *testing.T) {
	uc := new(MockPublishUsecase)
	at := time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)
	uc.On("CreateTask", mock.Anything, "u1", dto.CreateTaskRequest{Platform: "linkedin", Content: "hello", ScheduledFor: at}).
		Return(&model.Task{ID: 5, UserID: "u1", Platform: model.PlatformLinkedIn, Status: model.TaskStatusScheduled, ScheduledFor: at}, nil)
	h := httpHandler.NewTaskHandler(uc)
	r := gin.New()
	r.POST("/tasks", asUser("u1"), h.Create)

	w := do(r, http.MethodPost, "/tasks", `{"platform":"linkedin","content":"hello","scheduled_for":"2026-07-01T09:00:00Z"}`)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "201", decode(t, w).ResponseCode)
	uc.AssertExpectations(t)
}

func TestTaskHandler_CreateValidation(t *testing.T) {
	uc := new(MockPublishUsecase)
	uc.On("CreateTask", mock.Anything, "u1", mock.Anything).Return(nil, model.ErrUnsupportedPlatform)
	h := httpHandler.NewTaskHandler(uc)
	r := gin.New()
	r.POST("/tasks", asUser("u1"), h.Create)

	w := do(r, http.MethodPost, "/tasks", `{"platform":"linkedin"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPost, "/tasks", `{"platform":"myspace","content":"x","scheduled_for":"2026-07-01T09:00:00Z"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w).ResponseMessage, "unsupported platform")
}

func TestTaskHandler_Get(t *testing.T) {
	uc := new(MockPublishUsecase)
	url := "https://www.linkedin.com/feed/update/urn:li:share:1/"
	uc.On("GetTask", mock.Anything, "u1", int64(5)).Return(&model.Task{ID: 5, Status: model.TaskStatusPublished, ExternalURL: &url}, nil)
	uc.On("GetTask", mock.Anything, "u1", int64(6)).Return(nil, model.ErrTaskNotFound)
	uc.On("GetTask", mock.Anything, "u1", int64(7)).Return(nil, errors.New("db down"))
	h := httpHandler.NewTaskHandler(uc)
	r := gin.New()
	r.GET("/tasks/:id", asUser("u1"), h.Get)

	w := do(r, http.MethodGet, "/tasks/5", "")
	assert.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w).Data.(map[string]interface{})
	assert.Equal(t, "published", data["status"])
	assert.Equal(t, url, data["external_url"])

	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/tasks/6", "").Code)
	assert.Equal(t, http.StatusInternalServerError, do(r, http.MethodGet, "/tasks/7", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/tasks/abc", "").Code)
}

func TestOpsHandler(t *testing.T) {
	audit := new(MockNotificationLog)
	audit.On("Recent", mock.Anything, int64(5)).Return([]model.NotificationRecord{{Notification: model.Notification{Title: "Publishing to linkedin failed"}}}, nil)
	h := httpHandler.NewOpsHandler(stubTrigger{report: &model.CycleReport{CycleID: "c-1", Due: 2, Published: 2}}, stubPlatforms{}, audit)
	r := gin.New()
	r.GET("/healthz", h.Healthz)
	r.POST("/trigger", h.Trigger)
	r.GET("/platforms", h.Platforms)
	r.GET("/notifications", h.Notifications)

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/healthz", "").Code)

	w := do(r, http.MethodPost, "/trigger", "")
	require.Equal(t, http.StatusOK, w.Code)
	report := decode(t, w).Data.(map[string]interface{})
	assert.Equal(t, "c-1", report["cycle_id"])
	assert.Equal(t, float64(2), report["published"])

	w = do(r, http.MethodGet, "/platforms", "")
	assert.Len(t, decode(t, w).Data, 2)

	w = do(r, http.MethodGet, "/notifications?limit=5", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/notifications?limit=0", "").Code)
}

func TestOpsHandler_TriggerErrorAndNoLog(t *testing.T) {
	h := httpHandler.NewOpsHandler(stubTrigger{err: errors.New("find due tasks: timeout")}, stubPlatforms{}, nil)
	r := gin.New()
	r.POST("/trigger", h.Trigger)
	r.GET("/notifications", h.Notifications)

	assert.Equal(t, http.StatusInternalServerError, do(r, http.MethodPost, "/trigger", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(r, http.MethodGet, "/notifications", "").Code)
}

func TestCredentialHandler_ConsentRoundTrip(t *testing.T) {
	uc := new(MockCredentialUsecase)
	sub := "782bbtaQ"
	uc.On("Link", mock.Anything, "u1", model.PlatformLinkedIn, "the-code").Return(&model.OAuthToken{SubjectID: &sub}, nil).Once()
	h := httpHandler.NewCredentialHandler(uc, map[model.Platform]httpHandler.AuthURLBuilder{model.PlatformLinkedIn: stubConsent{}})
	r := gin.New()
	r.GET("/api/auth/:platform", asUser("u1"), h.GetAuthURL)
	r.GET("/auth/:platform/callback", h.Callback)

	w := do(r, http.MethodGet, "/api/auth/linkedin", "")
	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w).Data.(map[string]interface{})
	state := data["state"].(string)
	assert.Contains(t, data["auth_url"], "state="+state)

	w = do(r, http.MethodGet, "/auth/linkedin/callback?code=the-code&state="+state, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w).Data.(map[string]interface{})["connected"])

	w = do(r, http.MethodGet, "/auth/linkedin/callback?code=the-code&state="+state, "")
	assert.Equal(t, http.StatusBadRequest, w.Code, "state is single use")
	uc.AssertExpectations(t)
}

func TestCredentialHandler_CallbackErrors(t *testing.T) {
	uc := new(MockCredentialUsecase)
	uc.On("Link", mock.Anything, "u1", model.PlatformLinkedIn, "stale").
		Return(nil, &model.AdapterError{Platform: model.PlatformLinkedIn, Op: "authenticate", StatusCode: 400, Body: "invalid_grant"})
	h := httpHandler.NewCredentialHandler(uc, map[model.Platform]httpHandler.AuthURLBuilder{model.PlatformLinkedIn: stubConsent{}})
	r := gin.New()
	r.GET("/api/auth/:platform", asUser("u1"), h.GetAuthURL)
	r.GET("/auth/:platform/callback", h.Callback)

	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/api/auth/twitter", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/auth/linkedin/callback?state=x", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/auth/linkedin/callback?code=c&state=unknown", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/auth/linkedin/callback?error=user_cancelled_login", "").Code)

	state := decode(t, do(r, http.MethodGet, "/api/auth/linkedin", "")).Data.(map[string]interface{})["state"].(string)
	w := do(r, http.MethodGet, "/auth/linkedin/callback?code=stale&state="+state, "")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "invalid_grant")
}

func TestCredentialHandler_Status(t *testing.T) {
	uc := new(MockCredentialUsecase)
	uc.On("Status", mock.Anything, "u1", model.PlatformLinkedIn).Return(&dto.CredentialStatus{Platform: "linkedin", Connected: true, Usable: true}, nil)
	h := httpHandler.NewCredentialHandler(uc, nil)
	r := gin.New()
	r.GET("/credentials/:platform/status", asUser("u1"), h.Status)

	w := do(r, http.MethodGet, "/credentials/LinkedIn/status", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w).Data.(map[string]interface{})["usable"])
}
