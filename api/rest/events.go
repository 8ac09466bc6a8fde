package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sorahane/guildserver/guild"
	"github.com/sorahane/guildserver/relation"
	"github.com/sorahane/guildserver/task"
)

// EventHandler ingests combat and progression events reported by the
// game server. These routes sit behind the admin key, not player auth.
type EventHandler struct {
	guilds    *guild.Service
	relations *relation.Service
	tasks     *task.Service
}

// NewEventHandler creates a new EventHandler.
func NewEventHandler(guilds *guild.Service, relations *relation.Service, tasks *task.Service) *EventHandler {
	return &EventHandler{guilds: guilds, relations: relations, tasks: tasks}
}

type killEvent struct {
	KillerID int64 `json:"killer_id" binding:"required"`
	VictimID int64 `json:"victim_id" binding:"required"`
}

// Kill handles POST /api/events/kill. The war is resolved from the two
// players' guilds; kills outside a mutual ONGOING war are dropped.
func (h *EventHandler) Kill(c *gin.Context) {
	var ev killEvent
	if err := c.ShouldBindJSON(&ev); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	killerGuild, err := h.guilds.GetPlayerGuild(ctx, ev.KillerID)
	if err != nil {
		h.dropOrFail(c, err)
		return
	}
	victimGuild, err := h.guilds.GetPlayerGuild(ctx, ev.VictimID)
	if err != nil {
		h.dropOrFail(c, err)
		return
	}

	war, err := h.relations.ActiveWarBetween(ctx, killerGuild.ID, victimGuild.ID)
	if err != nil {
		respondErr(c, err)
		return
	}
	if war == nil {
		c.JSON(http.StatusOK, gin.H{"scored": false})
		return
	}

	scored, err := h.relations.RecordKill(ctx, war.ID, ev.KillerID, ev.VictimID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"scored": scored, "war_id": war.ID})
}

type progressEvent struct {
	PlayerID int64  `json:"player_id" binding:"required"`
	Type     string `json:"type" binding:"required"`
	Subtype  string `json:"subtype"`
	Delta    int    `json:"delta" binding:"required,gt=0"`
}

// Progress handles POST /api/events/progress, advancing the active
// guild task matching the event type.
func (h *EventHandler) Progress(c *gin.Context) {
	var ev progressEvent
	if err := c.ShouldBindJSON(&ev); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	g, err := h.guilds.GetPlayerGuild(ctx, ev.PlayerID)
	if err != nil {
		h.dropOrFail(c, err)
		return
	}

	t, err := h.tasks.UpdateProgress(ctx, g.ID, ev.Type, ev.Subtype, ev.Delta)
	if err != nil {
		respondErr(c, err)
		return
	}
	if t == nil {
		c.JSON(http.StatusOK, gin.H{"matched": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"matched": true, "task": t})
}

// CanDamage handles GET /api/events/candamage.
func (h *EventHandler) CanDamage(c *gin.Context) {
	attackerID, ok := idQuery(c, "attacker")
	if !ok {
		return
	}
	victimID, ok := idQuery(c, "victim")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	attackerGuild, err := h.guilds.GetPlayerGuild(ctx, attackerID)
	if err != nil {
		// Guildless combatants fall outside guild rules entirely.
		h.allowOrFail(c, err)
		return
	}
	victimGuild, err := h.guilds.GetPlayerGuild(ctx, victimID)
	if err != nil {
		h.allowOrFail(c, err)
		return
	}

	allowed, err := h.relations.CanDamage(ctx, attackerGuild.ID, victimGuild.ID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"allowed": allowed})
}

// dropOrFail answers a benign no-op for players without a guild and a
// real error otherwise.
func (h *EventHandler) dropOrFail(c *gin.Context, err error) {
	if errors.Is(err, guild.ErrNotMember) || errors.Is(err, guild.ErrNotFound) {
		c.JSON(http.StatusOK, gin.H{"scored": false, "matched": false})
		return
	}
	respondErr(c, err)
}

func (h *EventHandler) allowOrFail(c *gin.Context, err error) {
	if errors.Is(err, guild.ErrNotMember) || errors.Is(err, guild.ErrNotFound) {
		c.JSON(http.StatusOK, gin.H{"allowed": true})
		return
	}
	respondErr(c, err)
}
