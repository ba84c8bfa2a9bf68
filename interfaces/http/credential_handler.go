package http

import (
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"publish-scheduler/domain/model"
	"publish-scheduler/infrastructure/logger"
	"publish-scheduler/infrastructure/utils"
	"publish-scheduler/usecase"

	"github.com/gin-gonic/gin"
)

const stateTTL = 10 * time.Minute

// AuthURLBuilder produces a platform's consent URL.
type AuthURLBuilder interface {
	AuthCodeURL(state string) string
}

type ICredentialHandler interface {
	GetAuthURL(c *gin.Context)
	Callback(c *gin.Context)
	Status(c *gin.Context)
}

type pendingState struct {
	userID   string
	platform model.Platform
	expires  time.Time
}

type CredentialHandler struct {
	credentialUsecase usecase.ICredentialUsecase
	consent           map[model.Platform]AuthURLBuilder

	stateMu sync.Mutex
	states  map[string]pendingState
}

func NewCredentialHandler(credentialUsecase usecase.ICredentialUsecase, consent map[model.Platform]AuthURLBuilder) ICredentialHandler {
	return &CredentialHandler{credentialUsecase: credentialUsecase, consent: consent, states: map[string]pendingState{}}
}

func platformParam(c *gin.Context) model.Platform {
	return model.Platform(strings.ToLower(c.Param("platform")))
}

// GetAuthURL starts consent for the caller. The returned state binds the
// callback to this user.
func (h *CredentialHandler) GetAuthURL(c *gin.Context) {
	p := platformParam(c)
	builder, found := h.consent[p]
	if !found {
		respond(c, http.StatusNotFound, model.ErrUnsupportedPlatform.Error(), nil)
		return
	}
	state := utils.RandomState()
	now := utils.GetCurrentTime()
	h.stateMu.Lock()
	for k, v := range h.states {
		if now.After(v.expires) {
			delete(h.states, k)
		}
	}
	h.states[state] = pendingState{userID: userID(c), platform: p, expires: now.Add(stateTTL)}
	h.stateMu.Unlock()

	ok(c, gin.H{"auth_url": builder.AuthCodeURL(state), "state": state})
}

func (h *CredentialHandler) takeState(state string, p model.Platform) (string, bool) {
	h.stateMu.Lock()
	defer h.stateMu.Unlock()
	pending, found := h.states[state]
	if !found {
		return "", false
	}
	delete(h.states, state)
	if utils.GetCurrentTime().After(pending.expires) || pending.platform != p {
		return "", false
	}
	return pending.userID, true
}

// Callback exchanges the authorization code and stores the credential.
func (h *CredentialHandler) Callback(c *gin.Context) {
	lg := logger.GetLogger()
	p := platformParam(c)
	if denied := c.Query("error"); denied != "" {
		respond(c, http.StatusBadRequest, denied+": "+c.Query("error_description"), nil)
		return
	}
	code := c.Query("code")
	if code == "" {
		respond(c, http.StatusBadRequest, "missing code", nil)
		return
	}
	uid, valid := h.takeState(c.Query("state"), p)
	if !valid {
		respond(c, http.StatusBadRequest, "invalid_state", nil)
		return
	}

	token, err := h.credentialUsecase.Link(c.Request.Context(), uid, p, code)
	if err != nil {
		lg.WithField("platform", p).WithField("error", err).Error("Failed to link platform credential")
		var adapterErr *model.AdapterError
		switch {
		case errors.Is(err, model.ErrUnsupportedPlatform):
			respond(c, http.StatusNotFound, err.Error(), nil)
		case errors.As(err, &adapterErr):
			respond(c, http.StatusBadGateway, "token_exchange_failed", gin.H{"status": adapterErr.StatusCode, "body": adapterErr.Body})
		default:
			respond(c, http.StatusInternalServerError, "store_token_failed", nil)
		}
		return
	}
	ok(c, gin.H{"connected": true, "platform": p, "subject_id": token.SubjectID, "display_name": token.DisplayName})
}

func (h *CredentialHandler) Status(c *gin.Context) {
	status, err := h.credentialUsecase.Status(c.Request.Context(), userID(c), platformParam(c))
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Failed to read credential status")
		respond(c, http.StatusInternalServerError, "failed to read credential", nil)
		return
	}
	ok(c, status)
}
