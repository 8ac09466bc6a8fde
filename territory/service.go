package territory

import (
	"context"
	"errors"
	"strconv"

	"github.com/sorahane/guildserver/config"
	"github.com/sorahane/guildserver/db"
	"github.com/sorahane/guildserver/keylock"
	"github.com/sorahane/guildserver/model"
	"github.com/sorahane/guildserver/notify"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Validation errors.
var (
	ErrAlreadyClaimed = errors.New("territory: chunk already claimed")
	ErrNotOwner       = errors.New("territory: chunk not owned by guild")
	ErrClaimLimit     = errors.New("territory: claim limit reached")
	ErrGuildNotFound  = errors.New("territory: guild not found")
)

// Chunk identifies one world-coordinate cell.
type Chunk struct {
	World string
	X     int
	Z     int
}

// Authorizer is the external permission collaborator. Elevated actors
// bypass ownership checks.
type Authorizer interface {
	IsElevated(ctx context.Context, playerID int64) bool
}

// NopAuthorizer grants no elevation.
type NopAuthorizer struct{}

func (NopAuthorizer) IsElevated(context.Context, int64) bool { return false }

// Service is the territory index: chunk ownership and permission checks.
type Service struct {
	store    *db.Store
	cfg      config.GuildConfig
	auth     Authorizer
	notifier notify.Notifier
	locks    *keylock.KeyLock
	logger   *zap.Logger
}

func claimKey(guildID int64) string { return "claims:" + strconv.FormatInt(guildID, 10) }

// NewService creates a territory Service.
func NewService(store *db.Store, cfg config.GuildConfig, auth Authorizer, notifier notify.Notifier, logger *zap.Logger) *Service {
	if auth == nil {
		auth = NopAuthorizer{}
	}
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Service{store: store, cfg: cfg, auth: auth, notifier: notifier, locks: keylock.New(), logger: logger}
}

// Claim takes ownership of a chunk for a guild. The unique index on
// (world, chunk_x, chunk_z) is the arbiter under concurrent claims: the
// losing insert surfaces as ErrAlreadyClaimed, never an overwrite. The
// per-guild lock keeps the claim count honest when a guild claims
// several different chunks at once.
func (svc *Service) Claim(ctx context.Context, guildID int64, chunk Chunk) error {
	gdb, err := svc.store.DB(ctx)
	if err != nil {
		return err
	}

	unlock := svc.locks.Lock(claimKey(guildID))
	defer unlock()

	return gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var guild model.Guild
		if err := tx.First(&guild, guildID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrGuildNotFound
			}
			return err
		}

		var count int64
		tx.Model(&model.LandClaim{}).Where("guild_id = ?", guildID).Count(&count)
		if count >= int64(svc.cfg.ClaimLimit(guild.Level)) {
			return ErrClaimLimit
		}

		claim := model.LandClaim{
			GuildID: guildID,
			World:   chunk.World,
			ChunkX:  chunk.X,
			ChunkZ:  chunk.Z,
		}
		if err := tx.Create(&claim).Error; err != nil {
			if db.IsUniqueViolation(err) {
				return ErrAlreadyClaimed
			}
			return err
		}
		return nil
	})
}

// Unclaim releases a chunk the guild owns.
func (svc *Service) Unclaim(ctx context.Context, guildID int64, chunk Chunk) error {
	gdb, err := svc.store.DB(ctx)
	if err != nil {
		return err
	}

	res := gdb.WithContext(ctx).
		Where("guild_id = ? AND world = ? AND chunk_x = ? AND chunk_z = ?",
			guildID, chunk.World, chunk.X, chunk.Z).
		Delete(&model.LandClaim{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotOwner
	}
	return nil
}

// OwnerOf returns the owning guild id, or 0 if the chunk is unclaimed.
func (svc *Service) OwnerOf(ctx context.Context, chunk Chunk) (int64, error) {
	gdb, err := svc.store.DB(ctx)
	if err != nil {
		return 0, err
	}

	var claim model.LandClaim
	err = gdb.WithContext(ctx).
		Where("world = ? AND chunk_x = ? AND chunk_z = ?", chunk.World, chunk.X, chunk.Z).
		First(&claim).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return claim.GuildID, nil
}

// HasPermission reports whether a player may build or interact in a
// chunk: unclaimed land is open, claimed land requires membership in
// the owning guild or out-of-band elevation.
func (svc *Service) HasPermission(ctx context.Context, playerID int64, chunk Chunk) (bool, error) {
	owner, err := svc.OwnerOf(ctx, chunk)
	if err != nil {
		return false, err
	}
	if owner == 0 {
		return true, nil
	}

	gdb, err := svc.store.DB(ctx)
	if err != nil {
		return false, err
	}
	var count int64
	if err := gdb.WithContext(ctx).Model(&model.GuildMember{}).
		Where("guild_id = ? AND player_id = ?", owner, playerID).
		Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return true, nil
	}
	return svc.auth.IsElevated(ctx, playerID), nil
}

// CrossedBoundary compares two chunk positions and emits territory
// entry/exit outcomes when the owning guild changes. Movement adapters
// call this on every chunk transition.
func (svc *Service) CrossedBoundary(ctx context.Context, playerID int64, from, to Chunk) error {
	if from == to {
		return nil
	}
	prev, err := svc.OwnerOf(ctx, from)
	if err != nil {
		return err
	}
	next, err := svc.OwnerOf(ctx, to)
	if err != nil {
		return err
	}
	if prev == next {
		return nil
	}
	if prev != 0 {
		svc.notifier.Emit(notify.TerritoryLeft{
			PlayerID: playerID, GuildID: prev,
			World: from.World, ChunkX: from.X, ChunkZ: from.Z,
		})
	}
	if next != 0 {
		svc.notifier.Emit(notify.TerritoryEntered{
			PlayerID: playerID, GuildID: next,
			World: to.World, ChunkX: to.X, ChunkZ: to.Z,
		})
	}
	return nil
}

// ClaimsOf lists every chunk a guild owns.
func (svc *Service) ClaimsOf(ctx context.Context, guildID int64) ([]model.LandClaim, error) {
	gdb, err := svc.store.DB(ctx)
	if err != nil {
		return nil, err
	}
	var claims []model.LandClaim
	err = gdb.WithContext(ctx).Where("guild_id = ?", guildID).
		Order("world, chunk_x, chunk_z").Find(&claims).Error
	return claims, err
}

// ClaimCount returns how many chunks a guild owns.
func (svc *Service) ClaimCount(ctx context.Context, guildID int64) (int64, error) {
	gdb, err := svc.store.DB(ctx)
	if err != nil {
		return 0, err
	}
	var count int64
	err = gdb.WithContext(ctx).Model(&model.LandClaim{}).
		Where("guild_id = ?", guildID).Count(&count).Error
	return count, err
}
