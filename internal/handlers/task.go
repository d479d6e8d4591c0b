package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	infralogger "github.com/jonesrussell/task-registry/infrastructure/logger"
	"github.com/jonesrussell/task-registry/internal/models"
)

// TaskService is the task API surface the handler serves.
type TaskService interface {
	Create(ctx context.Context, req models.CreateTaskRequest) (*models.Task, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Task, error)
	Update(ctx context.Context, id uuid.UUID, patch models.TaskPatch) (*models.Task, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter models.ListFilter) (*models.TaskList, error)
}

type TaskHandler struct {
	service TaskService
	logger  infralogger.Logger
}

func NewTaskHandler(service TaskService, log infralogger.Logger) *TaskHandler {
	return &TaskHandler{
		service: service,
		logger:  log,
	}
}

// Register mounts the task routes on group.
func (h *TaskHandler) Register(group gin.IRouter) {
	tasks := group.Group("/tasks")
	tasks.POST("", h.Create)
	tasks.GET("", h.List)
	tasks.GET("/:id", h.GetByID)
	tasks.PATCH("/:id", h.Update)
	tasks.DELETE("/:id", h.Delete)
}

func (h *TaskHandler) Create(c *gin.Context) {
	var req models.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Debug("Invalid request body", infralogger.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	task, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err, "create task")
		return
	}

	c.JSON(http.StatusCreated, task)
}

func (h *TaskHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	task, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err, "get task")
		return
	}

	c.JSON(http.StatusOK, task)
}

func (h *TaskHandler) List(c *gin.Context) {
	filter := models.ListFilter{
		Status:   models.Status(c.Query("status")),
		SiteType: models.SiteType(c.Query("site_type")),
		Query:    c.Query("q"),
		Limit:    models.DefaultListLimit,
	}

	var err error
	if raw := c.Query("limit"); raw != "" {
		if filter.Limit, err = strconv.Atoi(raw); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit", "details": "limit must be an integer"})
			return
		}
	}
	if raw := c.Query("offset"); raw != "" {
		if filter.Offset, err = strconv.Atoi(raw); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid offset", "details": "offset must be an integer"})
			return
		}
	}

	page, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.writeError(c, err, "list tasks")
		return
	}

	c.JSON(http.StatusOK, page)
}

func (h *TaskHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var patch models.TaskPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		h.logger.Debug("Invalid request body",
			infralogger.String("task_id", id.String()),
			infralogger.Error(err),
		)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	task, err := h.service.Update(c.Request.Context(), id, patch)
	if err != nil {
		h.writeError(c, err, "update task")
		return
	}

	c.JSON(http.StatusOK, task)
}

func (h *TaskHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		h.writeError(c, err, "delete task")
		return
	}

	c.Status(http.StatusNoContent)
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid task id", "details": err.Error()})
		return uuid.Nil, false
	}
	return id, true
}

// writeError maps service errors to status codes: validation 400, not found
// 404, store unavailable 503, anything else 500.
func (h *TaskHandler) writeError(c *gin.Context, err error, action string) {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed", "details": verr.Error()})
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
	case errors.Is(err, models.ErrStoreUnavailable):
		h.log(c).Error("Task store unavailable",
			infralogger.String("action", action),
			infralogger.Error(err),
		)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Task store unavailable"})
	default:
		h.log(c).Error("Unexpected error",
			infralogger.String("action", action),
			infralogger.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// log prefers the request-scoped logger carrying the request id.
func (h *TaskHandler) log(c *gin.Context) infralogger.Logger {
	return infralogger.FromContextOr(c.Request.Context(), h.logger)
}
