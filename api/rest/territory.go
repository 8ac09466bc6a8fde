package rest

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sorahane/guildserver/audit"
	"github.com/sorahane/guildserver/guild"
	mw "github.com/sorahane/guildserver/middleware"
	"github.com/sorahane/guildserver/model"
	"github.com/sorahane/guildserver/territory"
)

// TerritoryHandler handles land claim REST endpoints.
type TerritoryHandler struct {
	guilds    *guild.Service
	territory *territory.Service
	audit     *audit.Service
}

// NewTerritoryHandler creates a new TerritoryHandler.
func NewTerritoryHandler(guilds *guild.Service, terr *territory.Service, auditSvc *audit.Service) *TerritoryHandler {
	return &TerritoryHandler{guilds: guilds, territory: terr, audit: auditSvc}
}

type chunkRequest struct {
	World  string `json:"world" binding:"required"`
	ChunkX int    `json:"chunk_x"`
	ChunkZ int    `json:"chunk_z"`
}

func (r chunkRequest) chunk() territory.Chunk {
	return territory.Chunk{World: r.World, X: r.ChunkX, Z: r.ChunkZ}
}

// Claim handles POST /api/territory/claim. Admin or owner of the guild.
func (h *TerritoryHandler) Claim(c *gin.Context) {
	playerID := mw.GetPlayerID(c)

	var req chunkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	g, _, ok := h.memberWithRole(c, playerID, model.RoleAdmin)
	if !ok {
		return
	}

	if err := h.territory.Claim(ctx, g.ID, req.chunk()); err != nil {
		respondErr(c, err)
		return
	}
	h.audit.Log(audit.Entry{
		TraceID:  mw.GetTraceID(c),
		PlayerID: &playerID,
		GuildID:  &g.ID,
		Action:   "territory.claim",
		Request:  req,
		IP:       c.ClientIP(),
	})
	c.JSON(http.StatusCreated, gin.H{"message": "claimed"})
}

// Unclaim handles POST /api/territory/unclaim. Admin or owner of the guild.
func (h *TerritoryHandler) Unclaim(c *gin.Context) {
	playerID := mw.GetPlayerID(c)

	var req chunkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	g, _, ok := h.memberWithRole(c, playerID, model.RoleAdmin)
	if !ok {
		return
	}

	if err := h.territory.Unclaim(ctx, g.ID, req.chunk()); err != nil {
		respondErr(c, err)
		return
	}
	h.audit.Log(audit.Entry{
		TraceID:  mw.GetTraceID(c),
		PlayerID: &playerID,
		GuildID:  &g.ID,
		Action:   "territory.unclaim",
		Request:  req,
		IP:       c.ClientIP(),
	})
	c.JSON(http.StatusOK, gin.H{"message": "unclaimed"})
}

// Owner handles GET /api/territory/owner.
func (h *TerritoryHandler) Owner(c *gin.Context) {
	chunk, ok := chunkQuery(c)
	if !ok {
		return
	}
	ownerID, err := h.territory.OwnerOf(c.Request.Context(), chunk)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"guild_id": ownerID, "claimed": ownerID != 0})
}

// Permission handles GET /api/territory/permission.
func (h *TerritoryHandler) Permission(c *gin.Context) {
	playerID := mw.GetPlayerID(c)
	chunk, ok := chunkQuery(c)
	if !ok {
		return
	}
	allowed, err := h.territory.HasPermission(c.Request.Context(), playerID, chunk)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"allowed": allowed})
}

type moveRequest struct {
	World string `json:"world" binding:"required"`
	FromX int    `json:"from_x"`
	FromZ int    `json:"from_z"`
	ToX   int    `json:"to_x"`
	ToZ   int    `json:"to_z"`
}

// Move handles POST /api/territory/move, reporting boundary crossings.
func (h *TerritoryHandler) Move(c *gin.Context) {
	playerID := mw.GetPlayerID(c)

	var req moveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	from := territory.Chunk{World: req.World, X: req.FromX, Z: req.FromZ}
	to := territory.Chunk{World: req.World, X: req.ToX, Z: req.ToZ}
	if err := h.territory.CrossedBoundary(c.Request.Context(), playerID, from, to); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}

// Claims handles GET /api/guilds/:id/territory.
func (h *TerritoryHandler) Claims(c *gin.Context) {
	guildID, ok := idParam(c, "id")
	if !ok {
		return
	}
	claims, err := h.territory.ClaimsOf(c.Request.Context(), guildID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"claims": claims})
}

// memberWithRole resolves the actor's guild and checks role, writing
// the error response itself when the check fails.
func (h *TerritoryHandler) memberWithRole(c *gin.Context, playerID int64, role model.Role) (*model.Guild, *model.GuildMember, bool) {
	ctx := c.Request.Context()
	g, err := h.guilds.GetPlayerGuild(ctx, playerID)
	if err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "not in a guild"})
		return nil, nil, false
	}
	member, err := h.guilds.GetGuildMember(ctx, g.ID, playerID)
	if err != nil || !member.Role.AtLeast(role) {
		c.JSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
		return nil, nil, false
	}
	return g, member, true
}

func chunkQuery(c *gin.Context) (territory.Chunk, bool) {
	world := c.Query("world")
	if world == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "world is required"})
		return territory.Chunk{}, false
	}
	x, errX := strconv.Atoi(c.Query("x"))
	z, errZ := strconv.Atoi(c.Query("z"))
	if errX != nil || errZ != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chunk coordinates"})
		return territory.Chunk{}, false
	}
	return territory.Chunk{World: world, X: x, Z: z}, true
}
