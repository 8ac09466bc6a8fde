package rest

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sorahane/guildserver/cache"
	"github.com/sorahane/guildserver/config"
	"github.com/sorahane/guildserver/db"
	mw "github.com/sorahane/guildserver/middleware"
	"github.com/sorahane/guildserver/model"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// AuthHandler handles player registration and login.
type AuthHandler struct {
	store  *db.Store
	cache  cache.Cache
	sec    config.SecurityConfig
	logger *zap.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(store *db.Store, c cache.Cache, sec config.SecurityConfig, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{store: store, cache: c, sec: sec, logger: logger}
}

type credentials struct {
	Name     string `json:"name"     binding:"required,min=2,max=32"`
	Password string `json:"password" binding:"required,min=6,max=64"`
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	gdb, err := h.store.DB(c.Request.Context())
	if err != nil {
		respondErr(c, err)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	player := model.Player{Name: req.Name, PasswordHash: string(hash)}
	if err := gdb.WithContext(c.Request.Context()).Create(&player).Error; err != nil {
		if db.IsUniqueViolation(err) {
			c.JSON(http.StatusConflict, gin.H{"error": "name already taken"})
			return
		}
		h.logger.Error("player create failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": player.ID, "name": player.Name})
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	gdb, err := h.store.DB(c.Request.Context())
	if err != nil {
		respondErr(c, err)
		return
	}

	var player model.Player
	if err := gdb.WithContext(c.Request.Context()).
		Where("name = ?", req.Name).First(&player).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "bad credentials"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(player.PasswordHash), []byte(req.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "bad credentials"})
		return
	}

	token, err := mw.GenerateToken(player.ID, h.sec.JWTSecret, h.sec.JWTTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token error"})
		return
	}
	sessionKey := "session:" + token
	_ = h.cache.Set(c.Request.Context(), sessionKey,
		strconv.FormatInt(player.ID, 10), h.sec.JWTTTL)

	now := time.Now()
	gdb.WithContext(c.Request.Context()).Model(&model.Player{}).
		Where("id = ?", player.ID).Update("last_login_at", &now)

	c.JSON(http.StatusOK, gin.H{"token": token, "id": player.ID, "name": player.Name})
}

// playerName resolves a player's registered name; falls back to an
// id-derived placeholder if the row is missing.
func playerName(gdb *gorm.DB, playerID int64) string {
	var player model.Player
	if err := gdb.Where("id = ?", playerID).First(&player).Error; err != nil {
		return "player-" + strconv.FormatInt(playerID, 10)
	}
	return player.Name
}
