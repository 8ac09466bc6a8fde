package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sorahane/guildserver/task"
)

// TaskHandler handles guild task REST endpoints.
type TaskHandler struct {
	tasks *task.Service
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(tasks *task.Service) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

// Active handles GET /api/guilds/:id/tasks.
func (h *TaskHandler) Active(c *gin.Context) {
	guildID, ok := idParam(c, "id")
	if !ok {
		return
	}
	tasks, err := h.tasks.ActiveTasks(c.Request.Context(), guildID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

// Generate handles POST /api/guilds/:id/tasks. A fresh task is rolled
// for the guild if it has no active one.
func (h *TaskHandler) Generate(c *gin.Context) {
	guildID, ok := idParam(c, "id")
	if !ok {
		return
	}
	t, err := h.tasks.Generate(c.Request.Context(), guildID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}
