package rest

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sorahane/guildserver/guild"
	"github.com/sorahane/guildserver/relation"
	"github.com/sorahane/guildserver/scheduler"
	"github.com/sorahane/guildserver/task"
	"go.uber.org/zap"
)

// AdminHandler handles admin-only REST endpoints.
// Routes should be protected by the AdminKey middleware.
type AdminHandler struct {
	guilds    *guild.Service
	relations *relation.Service
	tasks     *task.Service
	sched     *scheduler.Scheduler
	logger    *zap.Logger
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(
	guilds *guild.Service,
	relations *relation.Service,
	tasks *task.Service,
	sched *scheduler.Scheduler,
	logger *zap.Logger,
) *AdminHandler {
	return &AdminHandler{guilds: guilds, relations: relations, tasks: tasks, sched: sched, logger: logger}
}

// Metrics returns server health metrics.
// GET /api/admin/metrics
func (h *AdminHandler) Metrics(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"scheduler_tasks": h.sched.Names(),
		"time":            time.Now().UTC(),
	})
}

// AdvanceWars forces a war phase advancement pass.
// POST /api/admin/wars/advance
func (h *AdminHandler) AdvanceWars(c *gin.Context) {
	if err := h.relations.AdvanceWars(c.Request.Context(), time.Now()); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "advanced"})
}

type addExpRequest struct {
	Amount int64 `json:"amount" binding:"required,gt=0"`
}

// AddExperience grants experience to a guild.
// POST /api/admin/guilds/:id/exp
func (h *AdminHandler) AddExperience(c *gin.Context) {
	guildID, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req addExpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	levels, err := h.guilds.AddExperience(c.Request.Context(), guildID, req.Amount)
	if err != nil {
		respondErr(c, err)
		return
	}
	h.logger.Info("admin granted guild exp",
		zap.Int64("guild_id", guildID),
		zap.Int64("amount", req.Amount),
		zap.Int("levels_gained", levels))
	c.JSON(http.StatusOK, gin.H{"levels_gained": levels})
}

// GenerateTasks rolls tasks for every guild without an active one.
// POST /api/admin/tasks/generate
func (h *AdminHandler) GenerateTasks(c *gin.Context) {
	if err := h.tasks.GenerateAll(c.Request.Context()); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "generated"})
}

// PruneTasks expires overdue uncompleted tasks.
// POST /api/admin/tasks/prune
func (h *AdminHandler) PruneTasks(c *gin.Context) {
	pruned, err := h.tasks.PruneExpired(c.Request.Context())
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pruned": pruned})
}
