package server_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"publish-scheduler/domain/dto"
	"publish-scheduler/domain/model"
	"publish-scheduler/infrastructure/utils"
	httpHandler "publish-scheduler/interfaces/http"
	"publish-scheduler/server"
	"publish-scheduler/usecase"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noopTrigger struct{}

func (noopTrigger) TriggerOnce(context.Context) (*model.CycleReport, error) {
	return &model.CycleReport{CycleID: "c"}, nil
}

type noPlatforms struct{}

func (noPlatforms) Platforms() []dto.PlatformCapability { return nil }

type nilPublish struct{ usecase.IPublishUsecase }

type nilCredential struct{ usecase.ICredentialUsecase }

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return server.InitiateRouter(server.Handlers{
		Ops:        httpHandler.NewOpsHandler(noopTrigger{}, noPlatforms{}, nil),
		Task:       httpHandler.NewTaskHandler(nilPublish{}),
		Credential: httpHandler.NewCredentialHandler(nilCredential{}, nil),
		Stream:     func(c *gin.Context) { c.String(http.StatusOK, c.GetString("user_id")) },
	}, "router-secret", []string{"http://localhost:4200"})
}

func TestRouter_PublicAndProtectedRoutes(t *testing.T) {
	r := newRouter()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/scheduler/trigger", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, err := utils.GenerateToken("u9", "ops", "router-secret", time.Hour)
	require.NoError(t, err)

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/scheduler/trigger", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/tasks/stream", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	assert.Equal(t, "u9", w.Body.String())
}

func TestRouter_CORSPreflight(t *testing.T) {
	r := newRouter()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/api/tasks", nil)
	req.Header.Set("Origin", "http://localhost:4200")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	r.ServeHTTP(w, req)

	assert.Equal(t, "http://localhost:4200", w.Header().Get("Access-Control-Allow-Origin"))
}
