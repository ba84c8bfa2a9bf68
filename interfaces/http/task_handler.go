package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"publish-scheduler/domain/dto"
	"publish-scheduler/domain/model"
	"publish-scheduler/infrastructure/logger"
	"publish-scheduler/usecase"

	"github.com/gin-gonic/gin"
)

type ITaskHandler interface {
	Create(c *gin.Context)
	Get(c *gin.Context)
}

type TaskHandler struct {
	publishUsecase usecase.IPublishUsecase
}

func NewTaskHandler(publishUsecase usecase.IPublishUsecase) ITaskHandler {
	return &TaskHandler{publishUsecase: publishUsecase}
}

func (h *TaskHandler) Create(c *gin.Context) {
	var req dto.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.GetLogger().WithField("error", err).Error(ErrorUnmarshal)
		respond(c, http.StatusBadRequest, fmt.Sprintf("%s %v", ErrorUnmarshal, err.Error()), nil)
		return
	}
	task, err := h.publishUsecase.CreateTask(c.Request.Context(), userID(c), req)
	if err != nil {
		if errors.Is(err, model.ErrUnsupportedPlatform) {
			respond(c, http.StatusBadRequest, err.Error(), nil)
			return
		}
		logger.GetLogger().WithField("error", err).Error("Failed to create task")
		respond(c, http.StatusUnprocessableEntity, err.Error(), nil)
		return
	}
	respond(c, http.StatusCreated, "Created", task)
}

// Get returns the task's current status for polling clients.
func (h *TaskHandler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respond(c, http.StatusBadRequest, "invalid task id", nil)
		return
	}
	task, err := h.publishUsecase.GetTask(c.Request.Context(), userID(c), id)
	if errors.Is(err, model.ErrTaskNotFound) {
		respond(c, http.StatusNotFound, err.Error(), nil)
		return
	}
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Failed to load task")
		respond(c, http.StatusInternalServerError, "failed to load task", nil)
		return
	}
	ok(c, task)
}
