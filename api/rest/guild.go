package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sorahane/guildserver/audit"
	"github.com/sorahane/guildserver/db"
	"github.com/sorahane/guildserver/guild"
	mw "github.com/sorahane/guildserver/middleware"
	"github.com/sorahane/guildserver/model"
)

// GuildHandler handles guild REST endpoints.
type GuildHandler struct {
	store  *db.Store
	guilds *guild.Service
	audit  *audit.Service
}

// NewGuildHandler creates a new GuildHandler.
func NewGuildHandler(store *db.Store, guilds *guild.Service, auditSvc *audit.Service) *GuildHandler {
	return &GuildHandler{store: store, guilds: guilds, audit: auditSvc}
}

type createGuildRequest struct {
	Name string `json:"name" binding:"required,min=2,max=32"`
	Tag  string `json:"tag"  binding:"required,min=2,max=6"`
}

// Create handles POST /api/guilds.
func (h *GuildHandler) Create(c *gin.Context) {
	playerID := mw.GetPlayerID(c)

	var req createGuildRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	gdb, err := h.store.DB(ctx)
	if err != nil {
		respondErr(c, err)
		return
	}

	g, err := h.guilds.CreateGuild(ctx, req.Name, req.Tag, playerID, playerName(gdb, playerID))
	if err != nil {
		respondErr(c, err)
		return
	}
	h.audit.Log(audit.Entry{
		TraceID:  mw.GetTraceID(c),
		PlayerID: &playerID,
		GuildID:  &g.ID,
		Action:   "guild.create",
		Request:  req,
		IP:       c.ClientIP(),
	})
	c.JSON(http.StatusCreated, g)
}

// List handles GET /api/guilds.
func (h *GuildHandler) List(c *gin.Context) {
	guilds, err := h.guilds.ListPublicGuilds(c.Request.Context(), 0, 50)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"guilds": guilds})
}

// Detail handles GET /api/guilds/:id.
func (h *GuildHandler) Detail(c *gin.Context) {
	guildID, ok := idParam(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	g, err := h.guilds.GetGuild(ctx, guildID)
	if err != nil {
		respondErr(c, err)
		return
	}
	members, err := h.guilds.GetGuildMembers(ctx, guildID)
	if err != nil {
		respondErr(c, err)
		return
	}
	bank, err := h.guilds.GetBank(ctx, guildID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"guild": g, "members": members, "bank": bank})
}

// Disband handles DELETE /api/guilds/:id. Owner only.
func (h *GuildHandler) Disband(c *gin.Context) {
	playerID := mw.GetPlayerID(c)
	guildID, ok := idParam(c, "id")
	if !ok {
		return
	}
	if !h.requireRole(c, guildID, playerID, model.RoleOwner) {
		return
	}
	if err := h.guilds.DeleteGuild(c.Request.Context(), guildID); err != nil {
		respondErr(c, err)
		return
	}
	h.audit.Log(audit.Entry{
		TraceID:  mw.GetTraceID(c),
		PlayerID: &playerID,
		GuildID:  &guildID,
		Action:   "guild.disband",
		IP:       c.ClientIP(),
	})
	c.JSON(http.StatusOK, gin.H{"message": "disbanded"})
}

// Apply handles POST /api/guilds/:id/apply.
func (h *GuildHandler) Apply(c *gin.Context) {
	playerID := mw.GetPlayerID(c)
	guildID, ok := idParam(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	gdb, err := h.store.DB(ctx)
	if err != nil {
		respondErr(c, err)
		return
	}
	req, err := h.guilds.SubmitJoinRequest(ctx, playerID, playerName(gdb, playerID), guildID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, req)
}

// ListRequests handles GET /api/guilds/:id/requests. Admin or owner.
func (h *GuildHandler) ListRequests(c *gin.Context) {
	playerID := mw.GetPlayerID(c)
	guildID, ok := idParam(c, "id")
	if !ok {
		return
	}
	if !h.requireRole(c, guildID, playerID, model.RoleAdmin) {
		return
	}
	reqs, err := h.guilds.ListJoinRequests(c.Request.Context(), guildID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": reqs})
}

// ResolveRequest handles POST /api/guilds/requests/:rid/accept and /reject.
func (h *GuildHandler) ResolveRequest(accept bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		playerID := mw.GetPlayerID(c)
		requestID, ok := idParam(c, "rid")
		if !ok {
			return
		}
		ctx := c.Request.Context()
		req, err := h.guilds.GetJoinRequest(ctx, requestID)
		if err != nil {
			respondErr(c, err)
			return
		}
		if !h.requireRole(c, req.GuildID, playerID, model.RoleAdmin) {
			return
		}
		if accept {
			err = h.guilds.AcceptJoinRequest(ctx, requestID)
		} else {
			err = h.guilds.RejectJoinRequest(ctx, requestID)
		}
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "resolved"})
	}
}

// Leave handles POST /api/guilds/leave.
func (h *GuildHandler) Leave(c *gin.Context) {
	playerID := mw.GetPlayerID(c)
	if err := h.guilds.Leave(c.Request.Context(), playerID); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "left"})
}

// Kick handles DELETE /api/guilds/:id/members/:pid. Admin or owner.
func (h *GuildHandler) Kick(c *gin.Context) {
	playerID := mw.GetPlayerID(c)
	guildID, ok := idParam(c, "id")
	if !ok {
		return
	}
	targetID, ok := idParam(c, "pid")
	if !ok {
		return
	}
	if !h.requireRole(c, guildID, playerID, model.RoleAdmin) {
		return
	}
	if err := h.guilds.RemoveMember(c.Request.Context(), guildID, targetID); err != nil {
		respondErr(c, err)
		return
	}
	h.audit.Log(audit.Entry{
		TraceID:  mw.GetTraceID(c),
		PlayerID: &playerID,
		GuildID:  &guildID,
		Action:   "guild.kick",
		Request:  gin.H{"target_id": targetID},
		IP:       c.ClientIP(),
	})
	c.JSON(http.StatusOK, gin.H{"message": "kicked"})
}

type setRoleRequest struct {
	Role model.Role `json:"role" binding:"required"`
}

// SetRole handles PUT /api/guilds/:id/members/:pid/role. Owner only.
func (h *GuildHandler) SetRole(c *gin.Context) {
	playerID := mw.GetPlayerID(c)
	guildID, ok := idParam(c, "id")
	if !ok {
		return
	}
	targetID, ok := idParam(c, "pid")
	if !ok {
		return
	}
	var req setRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !h.requireRole(c, guildID, playerID, model.RoleOwner) {
		return
	}
	if err := h.guilds.SetRole(c.Request.Context(), guildID, targetID, req.Role); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "updated"})
}

// SetAnnouncement handles PUT /api/guilds/:id/announcement. Admin or owner.
func (h *GuildHandler) SetAnnouncement(c *gin.Context) {
	playerID := mw.GetPlayerID(c)
	guildID, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		Announcement string `json:"announcement" binding:"max=500"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !h.requireRole(c, guildID, playerID, model.RoleAdmin) {
		return
	}
	if err := h.guilds.SetAnnouncement(c.Request.Context(), guildID, req.Announcement); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "updated"})
}

// SetPublic handles PUT /api/guilds/:id/public. Owner only.
func (h *GuildHandler) SetPublic(c *gin.Context) {
	playerID := mw.GetPlayerID(c)
	guildID, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		Public *bool `json:"public" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !h.requireRole(c, guildID, playerID, model.RoleOwner) {
		return
	}
	if err := h.guilds.SetPublic(c.Request.Context(), guildID, *req.Public); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "updated"})
}

type bankRequest struct {
	Amount int64 `json:"amount" binding:"required,gt=0"`
}

// Deposit handles POST /api/guilds/:id/bank/deposit. Any member.
func (h *GuildHandler) Deposit(c *gin.Context) {
	playerID := mw.GetPlayerID(c)
	guildID, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req bankRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !h.requireRole(c, guildID, playerID, model.RoleMember) {
		return
	}
	balance, err := h.guilds.Deposit(c.Request.Context(), guildID, req.Amount)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"balance": balance})
}

// Withdraw handles POST /api/guilds/:id/bank/withdraw. Admin or owner.
func (h *GuildHandler) Withdraw(c *gin.Context) {
	playerID := mw.GetPlayerID(c)
	guildID, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req bankRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !h.requireRole(c, guildID, playerID, model.RoleAdmin) {
		return
	}
	balance, err := h.guilds.Withdraw(c.Request.Context(), guildID, req.Amount)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"balance": balance})
}

// requireRole checks the actor holds at least the given role in the
// guild, writing the error response itself when not.
func (h *GuildHandler) requireRole(c *gin.Context, guildID, playerID int64, role model.Role) bool {
	member, err := h.guilds.GetGuildMember(c.Request.Context(), guildID, playerID)
	if err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a guild member"})
		return false
	}
	if !member.Role.AtLeast(role) {
		c.JSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
		return false
	}
	return true
}
