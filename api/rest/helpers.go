package rest

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sorahane/guildserver/db"
	"github.com/sorahane/guildserver/guild"
	"github.com/sorahane/guildserver/relation"
	"github.com/sorahane/guildserver/territory"
)

// notFoundErrs map to 404.
var notFoundErrs = []error{
	guild.ErrNotFound,
	guild.ErrRequestNotFound,
	relation.ErrGuildNotFound,
	relation.ErrRequestNotFound,
	relation.ErrWarNotFound,
	territory.ErrGuildNotFound,
}

// conflictErrs map to 409: the request was well-formed but collides
// with existing state.
var conflictErrs = []error{
	guild.ErrDuplicateName,
	guild.ErrDuplicateTag,
	guild.ErrAlreadyInGuild,
	guild.ErrRequestResolved,
	relation.ErrDuplicateRequest,
	relation.ErrAlreadyAllied,
	relation.ErrActiveWar,
	relation.ErrAlliedGuilds,
	relation.ErrRequestResolved,
	relation.ErrWarEnded,
	territory.ErrAlreadyClaimed,
}

// badRequestErrs map to 400.
var badRequestErrs = []error{
	guild.ErrInvalidName,
	guild.ErrInvalidTag,
	guild.ErrInvalidRole,
	guild.ErrInvalidAmount,
	guild.ErrLastOwner,
	guild.ErrNotMember,
	guild.ErrBankFull,
	guild.ErrInsufficientGold,
	relation.ErrSelfRelation,
	relation.ErrNotAllied,
	relation.ErrNotParticipant,
	territory.ErrNotOwner,
	territory.ErrClaimLimit,
}

// respondErr translates engine errors to HTTP statuses. Validation
// errors carry their message to the caller; storage failures do not.
func respondErr(c *gin.Context, err error) {
	for _, e := range notFoundErrs {
		if errors.Is(err, e) {
			c.JSON(http.StatusNotFound, gin.H{"error": e.Error()})
			return
		}
	}
	for _, e := range conflictErrs {
		if errors.Is(err, e) {
			c.JSON(http.StatusConflict, gin.H{"error": e.Error()})
			return
		}
	}
	for _, e := range badRequestErrs {
		if errors.Is(err, e) {
			c.JSON(http.StatusBadRequest, gin.H{"error": e.Error()})
			return
		}
	}
	if errors.Is(err, db.ErrStorage) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage unavailable"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

func idParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

func idQuery(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Query(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}
