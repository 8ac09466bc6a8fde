package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sorahane/guildserver/audit"
	"github.com/sorahane/guildserver/guild"
	mw "github.com/sorahane/guildserver/middleware"
	"github.com/sorahane/guildserver/model"
	"github.com/sorahane/guildserver/relation"
)

// RelationHandler handles alliance, war and ceasefire REST endpoints.
type RelationHandler struct {
	guilds    *guild.Service
	relations *relation.Service
	audit     *audit.Service
}

// NewRelationHandler creates a new RelationHandler.
func NewRelationHandler(guilds *guild.Service, relations *relation.Service, auditSvc *audit.Service) *RelationHandler {
	return &RelationHandler{guilds: guilds, relations: relations, audit: auditSvc}
}

type targetGuildRequest struct {
	GuildID int64 `json:"guild_id" binding:"required"`
}

// SubmitAlliance handles POST /api/relations/alliances/requests.
func (h *RelationHandler) SubmitAlliance(c *gin.Context) {
	playerID := mw.GetPlayerID(c)

	var req targetGuildRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	g, ok := h.actorGuild(c, playerID, model.RoleAdmin)
	if !ok {
		return
	}
	ar, err := h.relations.SubmitAllianceRequest(c.Request.Context(), g.ID, req.GuildID)
	if err != nil {
		respondErr(c, err)
		return
	}
	h.audit.Log(audit.Entry{
		TraceID:  mw.GetTraceID(c),
		PlayerID: &playerID,
		GuildID:  &g.ID,
		Action:   "alliance.request",
		Request:  req,
		IP:       c.ClientIP(),
	})
	c.JSON(http.StatusCreated, ar)
}

// ListAllianceRequests handles GET /api/relations/alliances/requests.
func (h *RelationHandler) ListAllianceRequests(c *gin.Context) {
	playerID := mw.GetPlayerID(c)
	g, ok := h.actorGuild(c, playerID, model.RoleAdmin)
	if !ok {
		return
	}
	reqs, err := h.relations.ListAllianceRequests(c.Request.Context(), g.ID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": reqs})
}

// ResolveAlliance handles POST /api/relations/alliances/requests/:rid/accept
// and /reject. Only the targeted guild's admins may resolve.
func (h *RelationHandler) ResolveAlliance(accept bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		playerID := mw.GetPlayerID(c)
		requestID, ok := idParam(c, "rid")
		if !ok {
			return
		}
		ctx := c.Request.Context()
		ar, err := h.relations.GetAllianceRequest(ctx, requestID)
		if err != nil {
			respondErr(c, err)
			return
		}
		g, ok := h.actorGuild(c, playerID, model.RoleAdmin)
		if !ok {
			return
		}
		if ar.TargetID != g.ID {
			c.JSON(http.StatusForbidden, gin.H{"error": "request not addressed to your guild"})
			return
		}
		if accept {
			err = h.relations.AcceptAllianceRequest(ctx, requestID)
		} else {
			err = h.relations.RejectAllianceRequest(ctx, requestID)
		}
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "resolved"})
	}
}

// DissolveAlliance handles DELETE /api/relations/alliances/:gid.
func (h *RelationHandler) DissolveAlliance(c *gin.Context) {
	playerID := mw.GetPlayerID(c)
	otherID, ok := idParam(c, "gid")
	if !ok {
		return
	}
	g, ok := h.actorGuild(c, playerID, model.RoleAdmin)
	if !ok {
		return
	}
	if err := h.relations.DissolveAlliance(c.Request.Context(), g.ID, otherID); err != nil {
		respondErr(c, err)
		return
	}
	h.audit.Log(audit.Entry{
		TraceID:  mw.GetTraceID(c),
		PlayerID: &playerID,
		GuildID:  &g.ID,
		Action:   "alliance.dissolve",
		Request:  gin.H{"other_guild_id": otherID},
		IP:       c.ClientIP(),
	})
	c.JSON(http.StatusOK, gin.H{"message": "dissolved"})
}

// Allies handles GET /api/guilds/:id/allies.
func (h *RelationHandler) Allies(c *gin.Context) {
	guildID, ok := idParam(c, "id")
	if !ok {
		return
	}
	allies, err := h.relations.AlliesOf(c.Request.Context(), guildID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"allies": allies})
}

// DeclareWar handles POST /api/relations/wars.
func (h *RelationHandler) DeclareWar(c *gin.Context) {
	playerID := mw.GetPlayerID(c)

	var req targetGuildRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	g, ok := h.actorGuild(c, playerID, model.RoleOwner)
	if !ok {
		return
	}
	war, err := h.relations.DeclareWar(c.Request.Context(), g.ID, req.GuildID)
	if err != nil {
		respondErr(c, err)
		return
	}
	h.audit.Log(audit.Entry{
		TraceID:  mw.GetTraceID(c),
		PlayerID: &playerID,
		GuildID:  &g.ID,
		Action:   "war.declare",
		Request:  req,
		IP:       c.ClientIP(),
	})
	c.JSON(http.StatusCreated, war)
}

// GetWar handles GET /api/relations/wars/:wid.
func (h *RelationHandler) GetWar(c *gin.Context) {
	warID, ok := idParam(c, "wid")
	if !ok {
		return
	}
	war, err := h.relations.GetWar(c.Request.Context(), warID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, war)
}

// Wars handles GET /api/guilds/:id/wars.
func (h *RelationHandler) Wars(c *gin.Context) {
	guildID, ok := idParam(c, "id")
	if !ok {
		return
	}
	wars, err := h.relations.WarsOf(c.Request.Context(), guildID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"wars": wars})
}

// Kills handles GET /api/relations/wars/:wid/kills.
func (h *RelationHandler) Kills(c *gin.Context) {
	warID, ok := idParam(c, "wid")
	if !ok {
		return
	}
	kills, err := h.relations.KillsOf(c.Request.Context(), warID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"kills": kills})
}

// SubmitCeasefire handles POST /api/relations/wars/:wid/ceasefire.
func (h *RelationHandler) SubmitCeasefire(c *gin.Context) {
	playerID := mw.GetPlayerID(c)
	warID, ok := idParam(c, "wid")
	if !ok {
		return
	}
	g, ok := h.actorGuild(c, playerID, model.RoleAdmin)
	if !ok {
		return
	}
	cr, err := h.relations.SubmitCeasefireRequest(c.Request.Context(), warID, g.ID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, cr)
}

// ResolveCeasefire handles POST /api/relations/ceasefires/:rid/accept
// and /reject. Only the targeted guild's admins may resolve.
func (h *RelationHandler) ResolveCeasefire(accept bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		playerID := mw.GetPlayerID(c)
		requestID, ok := idParam(c, "rid")
		if !ok {
			return
		}
		ctx := c.Request.Context()
		cr, err := h.relations.GetCeasefireRequest(ctx, requestID)
		if err != nil {
			respondErr(c, err)
			return
		}
		g, ok := h.actorGuild(c, playerID, model.RoleAdmin)
		if !ok {
			return
		}
		if cr.TargetID != g.ID {
			c.JSON(http.StatusForbidden, gin.H{"error": "request not addressed to your guild"})
			return
		}
		if accept {
			err = h.relations.AcceptCeasefireRequest(ctx, requestID)
		} else {
			err = h.relations.RejectCeasefireRequest(ctx, requestID)
		}
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "resolved"})
	}
}

// actorGuild resolves the caller's guild and checks their role.
func (h *RelationHandler) actorGuild(c *gin.Context, playerID int64, role model.Role) (*model.Guild, bool) {
	ctx := c.Request.Context()
	g, err := h.guilds.GetPlayerGuild(ctx, playerID)
	if err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "not in a guild"})
		return nil, false
	}
	member, err := h.guilds.GetGuildMember(ctx, g.ID, playerID)
	if err != nil || !member.Role.AtLeast(role) {
		c.JSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
		return nil, false
	}
	return g, true
}
