package handlers

import (
	"net/http"

	"tareas_api/internal/domain"
	"tareas_api/internal/service"

	"github.com/gin-gonic/gin"
)

// ListTasks returns the caller's tasks, newest first.
func (h *Handler) ListTasks(c *gin.Context, u *domain.User) {
	tasks, err := h.Tasks.List(c.Request.Context(), u.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

func (h *Handler) GetTask(c *gin.Context, u *domain.User) {
	id, ok := taskID(c)
	if !ok {
		return
	}

	t, err := h.Tasks.Get(c.Request.Context(), u.ID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *Handler) CreateTask(c *gin.Context, u *domain.User) {
	var in service.TaskPatch
	if !bindJSON(c, &in) {
		return
	}

	t, err := h.Tasks.Create(c.Request.Context(), u.ID, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

// UpdateTask applies a partial update; fields left out keep their values.
func (h *Handler) UpdateTask(c *gin.Context, u *domain.User) {
	id, ok := taskID(c)
	if !ok {
		return
	}

	var in service.TaskPatch
	if !bindJSON(c, &in) {
		return
	}

	t, err := h.Tasks.Update(c.Request.Context(), u.ID, id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *Handler) DeleteTask(c *gin.Context, u *domain.User) {
	id, ok := taskID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if err := h.Tasks.Delete(ctx, u.ID, id); err != nil {
		respondError(c, err)
		return
	}

	h.Audit.Log(ctx, u.ID, domain.AuditActionTaskDelete, domain.AuditCategoryTask, map[string]any{"task_id": id})
	c.Status(http.StatusNoContent)
}
