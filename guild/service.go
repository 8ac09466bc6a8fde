package guild

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/sorahane/guildserver/config"
	"github.com/sorahane/guildserver/db"
	"github.com/sorahane/guildserver/keylock"
	"github.com/sorahane/guildserver/model"
	"github.com/sorahane/guildserver/notify"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ThresholdFunc maps a guild level to the experience required to reach
// the next level. Must be monotonically increasing.
type ThresholdFunc func(level int) int64

// Service is the guild registry: identity, membership, leveling, bank.
type Service struct {
	store     *db.Store
	cfg       config.GuildConfig
	threshold ThresholdFunc
	notifier  notify.Notifier
	locks     *keylock.KeyLock
	logger    *zap.Logger
}

// NewService creates a guild Service. A nil threshold falls back to the
// one derived from cfg.
func NewService(store *db.Store, cfg config.GuildConfig, threshold ThresholdFunc, notifier notify.Notifier, logger *zap.Logger) *Service {
	if threshold == nil {
		threshold = cfg.ThresholdFunc()
	}
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Service{
		store:     store,
		cfg:       cfg,
		threshold: threshold,
		notifier:  notifier,
		locks:     keylock.New(),
		logger:    logger,
	}
}

func guildKey(id int64) string { return "guild:" + strconv.FormatInt(id, 10) }

// CreateGuild founds a guild: the guild row, its single OWNER member and
// a zero-balance bank are created in one transaction.
func (svc *Service) CreateGuild(ctx context.Context, name, tag string, founderID int64, founderName string) (*model.Guild, error) {
	if name == "" || len(name) > svc.cfg.NameMaxLen {
		return nil, ErrInvalidName
	}
	if tag == "" || len(tag) > svc.cfg.TagMaxLen {
		return nil, ErrInvalidTag
	}

	gdb, err := svc.store.DB(ctx)
	if err != nil {
		return nil, err
	}

	var guild model.Guild
	err = gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		tx.Model(&model.GuildMember{}).Where("player_id = ?", founderID).Count(&count)
		if count > 0 {
			return ErrAlreadyInGuild
		}

		guild = model.Guild{Name: name, Tag: tag, OwnerID: founderID, Level: 1}
		if err := tx.Create(&guild).Error; err != nil {
			if db.IsUniqueViolation(err) {
				return svc.dupError(tx, name, tag)
			}
			return err
		}
		member := model.GuildMember{
			GuildID:     guild.ID,
			PlayerID:    founderID,
			DisplayName: founderName,
			Role:        model.RoleOwner,
		}
		if err := tx.Create(&member).Error; err != nil {
			if db.IsUniqueViolation(err) {
				return ErrAlreadyInGuild
			}
			return err
		}
		bank := model.GuildBank{
			GuildID:  guild.ID,
			Balance:  0,
			Capacity: svc.cfg.BankCapacity(1),
		}
		return tx.Create(&bank).Error
	})
	if err != nil {
		return nil, err
	}
	svc.logger.Info("guild founded",
		zap.Int64("guild_id", guild.ID),
		zap.String("name", name),
		zap.Int64("owner_id", founderID))
	return &guild, nil
}

// dupError decides which uniqueness constraint a failed create hit.
func (svc *Service) dupError(tx *gorm.DB, name, tag string) error {
	var count int64
	tx.Model(&model.Guild{}).Where("name = ?", name).Count(&count)
	if count > 0 {
		return ErrDuplicateName
	}
	return ErrDuplicateTag
}

// DeleteGuild removes a guild and everything hanging off it in one
// transaction, in dependency order: lands, bank, members, requests,
// alliances, wars (with kills and ceasefire requests), tasks, guild.
func (svc *Service) DeleteGuild(ctx context.Context, guildID int64) error {
	gdb, err := svc.store.DB(ctx)
	if err != nil {
		return err
	}

	unlock := svc.locks.Lock(guildKey(guildID))
	defer unlock()

	var guild model.Guild
	err = gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&guild, guildID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		if err := tx.Where("guild_id = ?", guildID).Delete(&model.LandClaim{}).Error; err != nil {
			return err
		}
		if err := tx.Where("guild_id = ?", guildID).Delete(&model.GuildBank{}).Error; err != nil {
			return err
		}
		if err := tx.Where("guild_id = ?", guildID).Delete(&model.GuildMember{}).Error; err != nil {
			return err
		}
		if err := tx.Where("guild_id = ?", guildID).Delete(&model.JoinRequest{}).Error; err != nil {
			return err
		}
		if err := tx.Where("requester_id = ? OR target_id = ?", guildID, guildID).
			Delete(&model.AllianceRequest{}).Error; err != nil {
			return err
		}
		if err := tx.Where("guild1_id = ? OR guild2_id = ?", guildID, guildID).
			Delete(&model.Alliance{}).Error; err != nil {
			return err
		}

		var warIDs []int64
		if err := tx.Model(&model.War{}).
			Where("attacker_id = ? OR defender_id = ?", guildID, guildID).
			Pluck("id", &warIDs).Error; err != nil {
			return err
		}
		if len(warIDs) > 0 {
			if err := tx.Where("war_id IN ?", warIDs).Delete(&model.WarKill{}).Error; err != nil {
				return err
			}
			if err := tx.Where("war_id IN ?", warIDs).Delete(&model.CeasefireRequest{}).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", warIDs).Delete(&model.War{}).Error; err != nil {
				return err
			}
		}
		// A disbanded guild can no longer be a winner on record.
		if err := tx.Model(&model.War{}).Where("winner_id = ?", guildID).
			Update("winner_id", nil).Error; err != nil {
			return err
		}

		if err := tx.Where("guild_id = ?", guildID).Delete(&model.GuildTask{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Guild{}, guildID).Error
	})
	if err != nil {
		return err
	}
	svc.notifier.Emit(notify.GuildDisbanded{GuildID: guildID, Name: guild.Name})
	svc.logger.Info("guild disbanded", zap.Int64("guild_id", guildID))
	return nil
}

// AddExperience adds experience to a guild and applies any level-ups.
// Multiple thresholds may be crossed in a single call; one LevelUp
// outcome is emitted per crossed threshold. Returns levels gained.
func (svc *Service) AddExperience(ctx context.Context, guildID int64, amount int64) (int, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	gdb, err := svc.store.DB(ctx)
	if err != nil {
		return 0, err
	}

	unlock := svc.locks.Lock(guildKey(guildID))
	defer unlock()

	var levelsGained int
	var finalLevel int
	err = gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var guild model.Guild
		if err := tx.First(&guild, guildID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		guild.Exp += amount
		levelsGained = 0
		for guild.Exp >= svc.threshold(guild.Level) {
			guild.Exp -= svc.threshold(guild.Level)
			guild.Level++
			levelsGained++
		}
		finalLevel = guild.Level

		if err := tx.Model(&model.Guild{}).Where("id = ?", guildID).
			Updates(map[string]interface{}{"exp": guild.Exp, "level": guild.Level}).Error; err != nil {
			return err
		}
		if levelsGained > 0 {
			// Bank ceiling grows with level.
			return tx.Model(&model.GuildBank{}).Where("guild_id = ?", guildID).
				Update("capacity", svc.cfg.BankCapacity(guild.Level)).Error
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for i := levelsGained; i > 0; i-- {
		svc.notifier.Emit(notify.LevelUp{GuildID: guildID, NewLevel: finalLevel - i + 1})
	}
	return levelsGained, nil
}

// SetRole changes a member's role. Promoting a member to OWNER transfers
// ownership: the current owner is demoted to ADMIN in the same
// transaction, so the guild always has exactly one OWNER. Demoting the
// only OWNER fails with ErrLastOwner.
func (svc *Service) SetRole(ctx context.Context, guildID, playerID int64, role model.Role) error {
	if !role.Valid() {
		return ErrInvalidRole
	}

	gdb, err := svc.store.DB(ctx)
	if err != nil {
		return err
	}

	unlock := svc.locks.Lock(guildKey(guildID))
	defer unlock()

	return gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var member model.GuildMember
		if err := tx.Where("guild_id = ? AND player_id = ?", guildID, playerID).
			First(&member).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotMember
			}
			return err
		}
		if member.Role == role {
			return nil
		}

		if member.Role == model.RoleOwner && role != model.RoleOwner {
			return ErrLastOwner
		}

		if role == model.RoleOwner {
			if err := tx.Model(&model.GuildMember{}).
				Where("guild_id = ? AND role = ?", guildID, model.RoleOwner).
				Update("role", model.RoleAdmin).Error; err != nil {
				return err
			}
			if err := tx.Model(&model.Guild{}).Where("id = ?", guildID).
				Update("owner_id", playerID).Error; err != nil {
				return err
			}
		}
		return tx.Model(&model.GuildMember{}).
			Where("guild_id = ? AND player_id = ?", guildID, playerID).
			Update("role", role).Error
	})
}

// AddMember inserts a player into a guild with the MEMBER role. Used by
// join-request acceptance; fails if the player belongs to any guild.
func (svc *Service) AddMember(ctx context.Context, guildID, playerID int64, displayName string) error {
	gdb, err := svc.store.DB(ctx)
	if err != nil {
		return err
	}
	return svc.addMemberTx(gdb.WithContext(ctx), guildID, playerID, displayName)
}

func (svc *Service) addMemberTx(tx *gorm.DB, guildID, playerID int64, displayName string) error {
	var count int64
	tx.Model(&model.GuildMember{}).Where("player_id = ?", playerID).Count(&count)
	if count > 0 {
		return ErrAlreadyInGuild
	}
	member := model.GuildMember{
		GuildID:     guildID,
		PlayerID:    playerID,
		DisplayName: displayName,
		Role:        model.RoleMember,
	}
	if err := tx.Create(&member).Error; err != nil {
		if db.IsUniqueViolation(err) {
			return ErrAlreadyInGuild
		}
		return err
	}
	return nil
}

// RemoveMember kicks a member. The OWNER cannot be removed.
func (svc *Service) RemoveMember(ctx context.Context, guildID, playerID int64) error {
	gdb, err := svc.store.DB(ctx)
	if err != nil {
		return err
	}

	unlock := svc.locks.Lock(guildKey(guildID))
	defer unlock()

	return gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var member model.GuildMember
		if err := tx.Where("guild_id = ? AND player_id = ?", guildID, playerID).
			First(&member).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotMember
			}
			return err
		}
		if member.Role == model.RoleOwner {
			return ErrLastOwner
		}
		return tx.Where("guild_id = ? AND player_id = ?", guildID, playerID).
			Delete(&model.GuildMember{}).Error
	})
}

// Leave removes the player from their guild. An owner may only leave a
// guild they are the sole member of, which disbands it.
func (svc *Service) Leave(ctx context.Context, playerID int64) error {
	gdb, err := svc.store.DB(ctx)
	if err != nil {
		return err
	}

	var member model.GuildMember
	if err := gdb.WithContext(ctx).Where("player_id = ?", playerID).
		First(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotMember
		}
		return err
	}

	if member.Role == model.RoleOwner {
		var count int64
		gdb.WithContext(ctx).Model(&model.GuildMember{}).
			Where("guild_id = ?", member.GuildID).Count(&count)
		if count > 1 {
			return ErrLastOwner
		}
		return svc.DeleteGuild(ctx, member.GuildID)
	}

	return gdb.WithContext(ctx).
		Where("guild_id = ? AND player_id = ?", member.GuildID, playerID).
		Delete(&model.GuildMember{}).Error
}

// SetAnnouncement updates the guild announcement.
func (svc *Service) SetAnnouncement(ctx context.Context, guildID int64, text string) error {
	gdb, err := svc.store.DB(ctx)
	if err != nil {
		return err
	}
	res := gdb.WithContext(ctx).Model(&model.Guild{}).Where("id = ?", guildID).
		Update("announcement", text)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetPublic toggles whether the guild is open to browsing.
func (svc *Service) SetPublic(ctx context.Context, guildID int64, public bool) error {
	gdb, err := svc.store.DB(ctx)
	if err != nil {
		return err
	}
	res := gdb.WithContext(ctx).Model(&model.Guild{}).Where("id = ?", guildID).
		Update("public", public)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Deposit adds gold to the guild bank, bounded by its capacity.
func (svc *Service) Deposit(ctx context.Context, guildID int64, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	return svc.adjustBank(ctx, guildID, amount)
}

// Withdraw removes gold from the guild bank.
func (svc *Service) Withdraw(ctx context.Context, guildID int64, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	return svc.adjustBank(ctx, guildID, -amount)
}

func (svc *Service) adjustBank(ctx context.Context, guildID int64, delta int64) (int64, error) {
	gdb, err := svc.store.DB(ctx)
	if err != nil {
		return 0, err
	}

	unlock := svc.locks.Lock(guildKey(guildID))
	defer unlock()

	var balance int64
	err = gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var bank model.GuildBank
		if err := tx.Where("guild_id = ?", guildID).First(&bank).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		next := bank.Balance + delta
		if next < 0 {
			return ErrInsufficientGold
		}
		if next > bank.Capacity {
			return ErrBankFull
		}
		balance = next
		return tx.Model(&model.GuildBank{}).Where("guild_id = ?", guildID).
			Update("balance", next).Error
	})
	if err != nil {
		return 0, err
	}
	return balance, nil
}

// GetBank returns the guild's bank row.
func (svc *Service) GetBank(ctx context.Context, guildID int64) (*model.GuildBank, error) {
	gdb, err := svc.store.DB(ctx)
	if err != nil {
		return nil, err
	}
	var bank model.GuildBank
	if err := gdb.WithContext(ctx).Where("guild_id = ?", guildID).First(&bank).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &bank, nil
}

// ---- Join requests ----

// SubmitJoinRequest files a PENDING application. Multiple pending
// applications from one player to one guild are permitted.
func (svc *Service) SubmitJoinRequest(ctx context.Context, playerID int64, playerName string, guildID int64) (*model.JoinRequest, error) {
	gdb, err := svc.store.DB(ctx)
	if err != nil {
		return nil, err
	}

	var guild model.Guild
	if err := gdb.WithContext(ctx).First(&guild, guildID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	req := model.JoinRequest{
		PlayerID:   playerID,
		PlayerName: playerName,
		GuildID:    guildID,
		Status:     model.RequestPending,
	}
	if err := gdb.WithContext(ctx).Create(&req).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

// AcceptJoinRequest admits the applicant and marks the request ACCEPTED.
func (svc *Service) AcceptJoinRequest(ctx context.Context, requestID int64) error {
	return svc.resolveJoinRequest(ctx, requestID, true)
}

// RejectJoinRequest marks the request REJECTED.
func (svc *Service) RejectJoinRequest(ctx context.Context, requestID int64) error {
	return svc.resolveJoinRequest(ctx, requestID, false)
}

func (svc *Service) resolveJoinRequest(ctx context.Context, requestID int64, accept bool) error {
	gdb, err := svc.store.DB(ctx)
	if err != nil {
		return err
	}

	return gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var req model.JoinRequest
		if err := tx.First(&req, requestID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRequestNotFound
			}
			return err
		}
		if req.Status != model.RequestPending {
			return ErrRequestResolved
		}

		status := model.RequestRejected
		if accept {
			if err := svc.addMemberTx(tx, req.GuildID, req.PlayerID, req.PlayerName); err != nil {
				return err
			}
			status = model.RequestAccepted
		}
		now := time.Now()
		return tx.Model(&model.JoinRequest{}).Where("id = ?", requestID).
			Updates(map[string]interface{}{"status": status, "resolved_at": &now}).Error
	})
}

// GetJoinRequest returns one join request by id.
func (svc *Service) GetJoinRequest(ctx context.Context, requestID int64) (*model.JoinRequest, error) {
	gdb, err := svc.store.DB(ctx)
	if err != nil {
		return nil, err
	}
	var req model.JoinRequest
	if err := gdb.WithContext(ctx).First(&req, requestID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	return &req, nil
}

// ListJoinRequests returns a guild's pending applications.
func (svc *Service) ListJoinRequests(ctx context.Context, guildID int64) ([]model.JoinRequest, error) {
	gdb, err := svc.store.DB(ctx)
	if err != nil {
		return nil, err
	}
	var reqs []model.JoinRequest
	err = gdb.WithContext(ctx).
		Where("guild_id = ? AND status = ?", guildID, model.RequestPending).
		Order("created_at").Find(&reqs).Error
	return reqs, err
}

// ---- Queries ----

// GetGuild returns the guild with the given id.
func (svc *Service) GetGuild(ctx context.Context, guildID int64) (*model.Guild, error) {
	gdb, err := svc.store.DB(ctx)
	if err != nil {
		return nil, err
	}
	var guild model.Guild
	if err := gdb.WithContext(ctx).First(&guild, guildID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &guild, nil
}

// GetGuildByName looks a guild up by its unique name.
func (svc *Service) GetGuildByName(ctx context.Context, name string) (*model.Guild, error) {
	gdb, err := svc.store.DB(ctx)
	if err != nil {
		return nil, err
	}
	var guild model.Guild
	if err := gdb.WithContext(ctx).Where("name = ?", name).First(&guild).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &guild, nil
}

// GetGuildByTag looks a guild up by its unique tag.
func (svc *Service) GetGuildByTag(ctx context.Context, tag string) (*model.Guild, error) {
	gdb, err := svc.store.DB(ctx)
	if err != nil {
		return nil, err
	}
	var guild model.Guild
	if err := gdb.WithContext(ctx).Where("tag = ?", tag).First(&guild).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &guild, nil
}

// GetPlayerGuild returns the guild a player belongs to, or ErrNotMember.
func (svc *Service) GetPlayerGuild(ctx context.Context, playerID int64) (*model.Guild, error) {
	gdb, err := svc.store.DB(ctx)
	if err != nil {
		return nil, err
	}
	var member model.GuildMember
	if err := gdb.WithContext(ctx).Where("player_id = ?", playerID).
		First(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotMember
		}
		return nil, err
	}
	return svc.GetGuild(ctx, member.GuildID)
}

// GetGuildMember returns one membership row.
func (svc *Service) GetGuildMember(ctx context.Context, guildID, playerID int64) (*model.GuildMember, error) {
	gdb, err := svc.store.DB(ctx)
	if err != nil {
		return nil, err
	}
	var member model.GuildMember
	if err := gdb.WithContext(ctx).
		Where("guild_id = ? AND player_id = ?", guildID, playerID).
		First(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotMember
		}
		return nil, err
	}
	return &member, nil
}

// GetGuildMembers returns the full roster ordered by role then join time.
func (svc *Service) GetGuildMembers(ctx context.Context, guildID int64) ([]model.GuildMember, error) {
	gdb, err := svc.store.DB(ctx)
	if err != nil {
		return nil, err
	}
	var members []model.GuildMember
	err = gdb.WithContext(ctx).Where("guild_id = ?", guildID).
		Order("role, joined_at").Find(&members).Error
	return members, err
}

// ListPublicGuilds pages through guilds open to browsing.
func (svc *Service) ListPublicGuilds(ctx context.Context, offset, limit int) ([]model.Guild, error) {
	gdb, err := svc.store.DB(ctx)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var guilds []model.Guild
	err = gdb.WithContext(ctx).Where("public = ?", true).
		Order("level DESC, name").Offset(offset).Limit(limit).Find(&guilds).Error
	return guilds, err
}
