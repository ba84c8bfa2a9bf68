package http

import (
	"context"
	"net/http"
	"strconv"

	"publish-scheduler/domain/dto"
	"publish-scheduler/domain/model"
	"publish-scheduler/domain/repository"
	"publish-scheduler/infrastructure/logger"

	"github.com/gin-gonic/gin"
)

type IOpsHandler interface {
	Healthz(c *gin.Context)
	Trigger(c *gin.Context)
	Platforms(c *gin.Context)
	Notifications(c *gin.Context)
}

type triggerer interface {
	TriggerOnce(ctx context.Context) (*model.CycleReport, error)
}

type platformLister interface {
	Platforms() []dto.PlatformCapability
}

type OpsHandler struct {
	scheduler triggerer
	platforms platformLister
	log       repository.INotificationLog
}

// NewOpsHandler wires the operator endpoints. notificationLog may be nil.
func NewOpsHandler(scheduler triggerer, platforms platformLister, notificationLog repository.INotificationLog) IOpsHandler {
	return &OpsHandler{scheduler: scheduler, platforms: platforms, log: notificationLog}
}

func (h *OpsHandler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Trigger runs one dispatch cycle and returns its report.
func (h *OpsHandler) Trigger(c *gin.Context) {
	report, err := h.scheduler.TriggerOnce(c.Request.Context())
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Manual cycle failed")
		respond(c, http.StatusInternalServerError, err.Error(), report)
		return
	}
	ok(c, report)
}

func (h *OpsHandler) Platforms(c *gin.Context) {
	ok(c, h.platforms.Platforms())
}

func (h *OpsHandler) Notifications(c *gin.Context) {
	if h.log == nil {
		respond(c, http.StatusServiceUnavailable, "notification log not configured", nil)
		return
	}
	limit, err := strconv.ParseInt(c.DefaultQuery("limit", "20"), 10, 64)
	if err != nil || limit <= 0 || limit > 200 {
		respond(c, http.StatusBadRequest, "limit must be between 1 and 200", nil)
		return
	}
	records, err := h.log.Recent(c.Request.Context(), limit)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Failed to read notification log")
		respond(c, http.StatusInternalServerError, "failed to read notification log", nil)
		return
	}
	ok(c, records)
}
