package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"publish-scheduler/infrastructure/utils"
	"publish-scheduler/interfaces/middleware"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", middleware.Auth(secret), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("user_id"))
	})
	return r
}

func call(r *gin.Engine, authorization string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestAuth_ValidToken(t *testing.T) {
	token, err := utils.GenerateToken("user-7", "ada", secret, time.Hour)
	require.NoError(t, err)

	w := call(newRouter(), "Bearer "+token)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user-7", w.Body.String())
}

func TestAuth_Rejects(t *testing.T) {
	expired, err := utils.GenerateToken("user-7", "ada", secret, -time.Minute)
	require.NoError(t, err)
	forged, err := utils.GenerateToken("user-7", "ada", "other-secret", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		msg    string
	}{
		{name: "missing", header: ""},
		{name: "not_bearer", header: "Basic dXNlcjpwYXNz"},
		{name: "malformed", header: "Bearer not.a.jwt", msg: "That's not even a token"},
		{name: "expired", header: "Bearer " + expired, msg: "Timing is everything"},
		{name: "bad_signature", header: "Bearer " + forged},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := call(newRouter(), tt.header)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			if tt.msg != "" {
				assert.Contains(t, w.Body.String(), tt.msg)
			}
		})
	}
}
