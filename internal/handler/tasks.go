package handler

import (
	"context"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/capitalize-ai/taskform-bot/internal/model"
	"github.com/capitalize-ai/taskform-bot/pkg/logger"
)

// TaskLister reads stored task records.
type TaskLister interface {
	List(ctx context.Context, limit int) ([]model.TaskRecord, error)
}

// TaskHandler exposes stored tasks to operators.
type TaskHandler struct {
	tasks  TaskLister
	logger *logger.Logger
}

// NewTaskHandler creates a new task handler.
func NewTaskHandler(tasks TaskLister, log *logger.Logger) *TaskHandler {
	return &TaskHandler{
		tasks:  tasks,
		logger: log,
	}
}

// List handles GET /api/v1/tasks
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 500 {
			limit = parsed
		}
	}

	tasks, err := h.tasks.List(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list tasks", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list tasks")
		return
	}

	writeJSON(w, http.StatusOK, &model.ListTasksResponse{
		Tasks: tasks,
		Total: len(tasks),
	})
}
