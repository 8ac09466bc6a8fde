package relation

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

// Service is the relationship engine: alliance and ceasefire request
// workflows, the war state machine, kill scoring and damage arbitration.
//
// Check-then-create transitions run under a per-pair lock plus a
// transaction, so a second concurrent submission cannot slip past the
// same check before the first commits. Alliance pair uniqueness is
// additionally backed by the store's unique index.
type Service struct {
	store    *db.Store
	cfg      config.WarConfig
	notifier notify.Notifier
	locks    *keylock.KeyLock
	logger   *zap.Logger
}

// NewService creates a relation Service.
func NewService(store *db.Store, cfg config.WarConfig, notifier notify.Notifier, logger *zap.Logger) *Service {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Service{
		store:    store,
		cfg:      cfg,
		notifier: notifier,
		locks:    keylock.New(),
		logger:   logger,
	}
}

func pairKey(a, b int64) string {
	a, b = model.NormalizePair(a, b)
	return "pair:" + strconv.FormatInt(a, 10) + ":" + strconv.FormatInt(b, 10)
}

func warKey(id int64) string { return "war:" + strconv.FormatInt(id, 10) }

// ---- helpers shared by workflows (run inside a transaction) ----

func alliedTx(tx *gorm.DB, a, b int64) (bool, error) {
	g1, g2 := model.NormalizePair(a, b)
	var count int64
	err := tx.Model(&model.Alliance{}).
		Where("guild1_id = ? AND guild2_id = ?", g1, g2).Count(&count).Error
	return count > 0, err
}

func activeWarTx(tx *gorm.DB, a, b int64) (*model.War, error) {
	var war model.War
	err := tx.Where(
		"status <> ? AND ((attacker_id = ? AND defender_id = ?) OR (attacker_id = ? AND defender_id = ?))",
		model.WarEnded, a, b, b, a,
	).First(&war).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &war, nil
}

func guildExistsTx(tx *gorm.DB, id int64) error {
	var count int64
	if err := tx.Model(&model.Guild{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrGuildNotFound
	}
	return nil
}

// ---- Alliance request workflow ----

// SubmitAllianceRequest files a PENDING alliance proposal from one
// guild to another.
func (svc *Service) SubmitAllianceRequest(ctx context.Context, requesterID, targetID int64) (*model.AllianceRequest, error) {
	if requesterID == targetID {
		return nil, ErrSelfRelation
	}
	gdb, err := svc.store.DB(ctx)
	if err != nil {
		return nil, err
	}

	unlock := svc.locks.Lock(pairKey(requesterID, targetID))
	defer unlock()

	var req model.AllianceRequest
	err = gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := guildExistsTx(tx, requesterID); err != nil {
			return err
		}
		if err := guildExistsTx(tx, targetID); err != nil {
			return err
		}

		var count int64
		tx.Model(&model.AllianceRequest{}).
			Where("requester_id = ? AND target_id = ? AND status = ?",
				requesterID, targetID, model.RequestPending).
			Count(&count)
		if count > 0 {
			return ErrDuplicateRequest
		}

		allied, err := alliedTx(tx, requesterID, targetID)
		if err != nil {
			return err
		}
		if allied {
			return ErrAlreadyAllied
		}
		war, err := activeWarTx(tx, requesterID, targetID)
		if err != nil {
			return err
		}
		if war != nil {
			return ErrActiveWar
		}

		req = model.AllianceRequest{
			RequesterID: requesterID,
			TargetID:    targetID,
			Status:      model.RequestPending,
		}
		return tx.Create(&req).Error
	})
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// AcceptAllianceRequest re-validates the pair state and creates the
// Alliance. The pre-conditions are re-checked under the pair lock: the
// world may have changed since submission.
func (svc *Service) AcceptAllianceRequest(ctx context.Context, requestID int64) error {
	gdb, err := svc.store.DB(ctx)
	if err != nil {
		return err
	}

	var req model.AllianceRequest
	if err := gdb.WithContext(ctx).First(&req, requestID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRequestNotFound
		}
		return err
	}

	unlock := svc.locks.Lock(pairKey(req.RequesterID, req.TargetID))
	defer unlock()

	err = gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&req, requestID).Error; err != nil {
			return err
		}
		if req.Status != model.RequestPending {
			return ErrRequestResolved
		}

		allied, err := alliedTx(tx, req.RequesterID, req.TargetID)
		if err != nil {
			return err
		}
		if allied {
			return ErrAlreadyAllied
		}
		war, err := activeWarTx(tx, req.RequesterID, req.TargetID)
		if err != nil {
			return err
		}
		if war != nil {
			return ErrActiveWar
		}

		g1, g2 := model.NormalizePair(req.RequesterID, req.TargetID)
		if err := tx.Create(&model.Alliance{Guild1ID: g1, Guild2ID: g2}).Error; err != nil {
			if db.IsUniqueViolation(err) {
				return ErrAlreadyAllied
			}
			return err
		}
		now := time.Now()
		return tx.Model(&model.AllianceRequest{}).Where("id = ?", requestID).
			Updates(map[string]interface{}{
				"status":      model.RequestAccepted,
				"resolved_at": &now,
			}).Error
	})
	if err != nil {
		return err
	}

	g1, g2 := model.NormalizePair(req.RequesterID, req.TargetID)
	svc.notifier.Emit(notify.AllianceFormed{Guild1ID: g1, Guild2ID: g2})
	svc.logger.Info("alliance formed",
		zap.Int64("guild1_id", g1), zap.Int64("guild2_id", g2))
	return nil
}

// RejectAllianceRequest discards a pending proposal.
func (svc *Service) RejectAllianceRequest(ctx context.Context, requestID int64) error {
	gdb, err := svc.store.DB(ctx)
	if err != nil {
		return err
	}
	return gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var req model.AllianceRequest
		if err := tx.First(&req, requestID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRequestNotFound
			}
			return err
		}
		if req.Status != model.RequestPending {
			return ErrRequestResolved
		}
		now := time.Now()
		return tx.Model(&model.AllianceRequest{}).Where("id = ?", requestID).
			Updates(map[string]interface{}{
				"status":      model.RequestRejected,
				"resolved_at": &now,
			}).Error
	})
}

// DissolveAlliance breaks an alliance between two guilds.
func (svc *Service) DissolveAlliance(ctx context.Context, a, b int64) error {
	gdb, err := svc.store.DB(ctx)
	if err != nil {
		return err
	}

	unlock := svc.locks.Lock(pairKey(a, b))
	defer unlock()

	g1, g2 := model.NormalizePair(a, b)
	res := gdb.WithContext(ctx).
		Where("guild1_id = ? AND guild2_id = ?", g1, g2).
		Delete(&model.Alliance{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotAllied
	}
	svc.notifier.Emit(notify.AllianceDissolved{Guild1ID: g1, Guild2ID: g2})
	return nil
}

// AlliedWith reports whether two guilds hold an alliance.
func (svc *Service) AlliedWith(ctx context.Context, a, b int64) (bool, error) {
	gdb, err := svc.store.DB(ctx)
	if err != nil {
		return false, err
	}
	return alliedTx(gdb.WithContext(ctx), a, b)
}

// GetAllianceRequest returns one alliance request by id.
func (svc *Service) GetAllianceRequest(ctx context.Context, requestID int64) (*model.AllianceRequest, error) {
	gdb, err := svc.store.DB(ctx)
	if err != nil {
		return nil, err
	}
	var req model.AllianceRequest
	if err := gdb.WithContext(ctx).First(&req, requestID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	return &req, nil
}

// ListAllianceRequests returns pending proposals targeting a guild.
func (svc *Service) ListAllianceRequests(ctx context.Context, targetID int64) ([]model.AllianceRequest, error) {
	gdb, err := svc.store.DB(ctx)
	if err != nil {
		return nil, err
	}
	var reqs []model.AllianceRequest
	err = gdb.WithContext(ctx).
		Where("target_id = ? AND status = ?", targetID, model.RequestPending).
		Order("created_at").Find(&reqs).Error
	return reqs, err
}

// AlliesOf returns the guild ids allied with the given guild.
func (svc *Service) AlliesOf(ctx context.Context, guildID int64) ([]int64, error) {
	gdb, err := svc.store.DB(ctx)
	if err != nil {
		return nil, err
	}
	var alliances []model.Alliance
	if err := gdb.WithContext(ctx).
		Where("guild1_id = ? OR guild2_id = ?", guildID, guildID).
		Find(&alliances).Error; err != nil {
		return nil, err
	}
	allies := make([]int64, 0, len(alliances))
	for _, a := range alliances {
		if a.Guild1ID == guildID {
			allies = append(allies, a.Guild2ID)
		} else {
			allies = append(allies, a.Guild1ID)
		}
	}
	return allies, nil
}

// ---- War lifecycle ----

// DeclareWar opens a war in PENDING status. The phase deadlines are
// absolute times computed here; the advance tick moves the machine.
func (svc *Service) DeclareWar(ctx context.Context, attackerID, defenderID int64) (*model.War, error) {
	if attackerID == defenderID {
		return nil, ErrSelfRelation
	}
	gdb, err := svc.store.DB(ctx)
	if err != nil {
		return nil, err
	}

	unlock := svc.locks.Lock(pairKey(attackerID, defenderID))
	defer unlock()

	var war model.War
	err = gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := guildExistsTx(tx, attackerID); err != nil {
			return err
		}
		if err := guildExistsTx(tx, defenderID); err != nil {
			return err
		}

		allied, err := alliedTx(tx, attackerID, defenderID)
		if err != nil {
			return err
		}
		if allied {
			return ErrAlliedGuilds
		}
		existing, err := activeWarTx(tx, attackerID, defenderID)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrActiveWar
		}

		now := time.Now()
		prepEnds := now.Add(svc.cfg.PreparationWindow)
		war = model.War{
			AttackerID:    attackerID,
			DefenderID:    defenderID,
			Status:        model.WarPending,
			PrepareEndsAt: prepEnds,
			EndsAt:        prepEnds.Add(svc.cfg.OngoingWindow),
		}
		return tx.Create(&war).Error
	})
	if err != nil {
		return nil, err
	}

	svc.notifier.Emit(notify.WarStateChanged{
		WarID:      war.ID,
		AttackerID: attackerID,
		DefenderID: defenderID,
		Status:     war.Status.String(),
	})
	svc.logger.Info("war declared",
		zap.Int64("war_id", war.ID),
		zap.Int64("attacker_id", attackerID),
		zap.Int64("defender_id", defenderID))
	return &war, nil
}

// AdvanceWars moves every overdue war forward one or more phases:
// PENDING wars become PREPARING, PREPARING becomes ONGOING once the
// preparation deadline passes, and ONGOING wars past their end deadline
// are resolved by kill count (equal counts end in a draw). Driven by a
// scheduler tick; transitions never move backward.
func (svc *Service) AdvanceWars(ctx context.Context, now time.Time) error {
	gdb, err := svc.store.DB(ctx)
	if err != nil {
		return err
	}

	var wars []model.War
	if err := gdb.WithContext(ctx).
		Where("status <> ?", model.WarEnded).Find(&wars).Error; err != nil {
		return err
	}

	for i := range wars {
		if err := svc.advanceWar(ctx, gdb, wars[i].ID, now); err != nil {
			svc.logger.Error("war advance failed",
				zap.Int64("war_id", wars[i].ID), zap.Error(err))
		}
	}
	return nil
}

func (svc *Service) advanceWar(ctx context.Context, gdb *gorm.DB, warID int64, now time.Time) error {
	unlock := svc.locks.Lock(warKey(warID))
	defer unlock()

	var changed *model.War
	err := gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var war model.War
		if err := tx.First(&war, warID).Error; err != nil {
			return err
		}
		next := nextStatus(&war, now)
		if next == war.Status {
			return nil
		}

		updates := map[string]interface{}{"status": next}
		if next == model.WarEnded {
			winner := resolveWinner(&war)
			updates["winner_id"] = winner
			updates["ended_at"] = &now
			war.WinnerID = winner
			war.EndedAt = &now
		}
		if err := tx.Model(&model.War{}).Where("id = ?", warID).
			Updates(updates).Error; err != nil {
			return err
		}
		war.Status = next
		changed = &war
		return nil
	})
	if err != nil || changed == nil {
		return err
	}

	svc.notifier.Emit(notify.WarStateChanged{
		WarID:      changed.ID,
		AttackerID: changed.AttackerID,
		DefenderID: changed.DefenderID,
		Status:     changed.Status.String(),
		WinnerID:   changed.WinnerID,
	})
	svc.logger.Info("war advanced",
		zap.Int64("war_id", changed.ID),
		zap.String("status", changed.Status.String()))
	return nil
}

// nextStatus computes the furthest phase a war has reached by now.
func nextStatus(war *model.War, now time.Time) model.WarStatus {
	switch {
	case !now.Before(war.EndsAt):
		return model.WarEnded
	case !now.Before(war.PrepareEndsAt):
		return model.WarOngoing
	case war.Status == model.WarPending:
		return model.WarPreparing
	default:
		return war.Status
	}
}

// resolveWinner picks the guild with more kills; equal counts are a draw.
func resolveWinner(war *model.War) *int64 {
	switch {
	case war.AttackerKills > war.DefenderKills:
		id := war.AttackerID
		return &id
	case war.DefenderKills > war.AttackerKills:
		id := war.DefenderID
		return &id
	default:
		return nil
	}
}

// RecordKill scores one kill. Accepted only while the war is ONGOING and
// the two players belong to the opposing sides; anything else is a
// silent no-op — callers are expected to have already checked
// participation. Returns whether the kill was scored.
func (svc *Service) RecordKill(ctx context.Context, warID, killerPlayerID, victimPlayerID int64) (bool, error) {
	gdb, err := svc.store.DB(ctx)
	if err != nil {
		return false, err
	}

	unlock := svc.locks.Lock(warKey(warID))
	defer unlock()

	var scored *model.War
	err = gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var war model.War
		if err := tx.First(&war, warID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil // unknown war: no-op
			}
			return err
		}
		if war.Status != model.WarOngoing {
			return nil
		}

		killerGuild := memberGuildTx(tx, killerPlayerID)
		victimGuild := memberGuildTx(tx, victimPlayerID)
		attackerSide := killerGuild == war.AttackerID && victimGuild == war.DefenderID
		defenderSide := killerGuild == war.DefenderID && victimGuild == war.AttackerID
		if !attackerSide && !defenderSide {
			return nil
		}

		kill := model.WarKill{WarID: warID, KillerID: killerPlayerID, VictimID: victimPlayerID}
		if err := tx.Create(&kill).Error; err != nil {
			return err
		}

		column := "attacker_kills"
		if defenderSide {
			column = "defender_kills"
		}
		if err := tx.Model(&model.War{}).Where("id = ?", warID).
			Update(column, gorm.Expr(column+" + 1")).Error; err != nil {
			return err
		}
		if attackerSide {
			war.AttackerKills++
		} else {
			war.DefenderKills++
		}
		scored = &war
		return nil
	})
	if err != nil || scored == nil {
		return false, err
	}

	svc.notifier.Emit(notify.KillRecorded{
		WarID:         warID,
		KillerID:      killerPlayerID,
		VictimID:      victimPlayerID,
		AttackerKills: scored.AttackerKills,
		DefenderKills: scored.DefenderKills,
	})
	return true, nil
}

// memberGuildTx returns the guild a player belongs to, or 0.
func memberGuildTx(tx *gorm.DB, playerID int64) int64 {
	var member model.GuildMember
	if err := tx.Where("player_id = ?", playerID).First(&member).Error; err != nil {
		return 0
	}
	return member.GuildID
}

// CanDamage arbitrates guild-vs-guild combat for the combat-event
// collaborator. The three tiers are checked in order: same guild is
// always blocked, an alliance always blocks (even with a dormant war
// record on file), and cross-guild damage is permitted only during a
// mutual ONGOING war.
func (svc *Service) CanDamage(ctx context.Context, guildA, guildB int64) (bool, error) {
	if guildA == guildB {
		return false, nil
	}
	gdb, err := svc.store.DB(ctx)
	if err != nil {
		return false, err
	}
	tx := gdb.WithContext(ctx)

	allied, err := alliedTx(tx, guildA, guildB)
	if err != nil {
		return false, err
	}
	if allied {
		return false, nil
	}

	war, err := activeWarTx(tx, guildA, guildB)
	if err != nil {
		return false, err
	}
	return war != nil && war.Status == model.WarOngoing, nil
}

// ActiveWarBetween returns the non-ENDED war between two guilds, if any.
func (svc *Service) ActiveWarBetween(ctx context.Context, a, b int64) (*model.War, error) {
	gdb, err := svc.store.DB(ctx)
	if err != nil {
		return nil, err
	}
	return activeWarTx(gdb.WithContext(ctx), a, b)
}

// GetWar returns a war by id.
func (svc *Service) GetWar(ctx context.Context, warID int64) (*model.War, error) {
	gdb, err := svc.store.DB(ctx)
	if err != nil {
		return nil, err
	}
	var war model.War
	if err := gdb.WithContext(ctx).First(&war, warID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWarNotFound
		}
		return nil, err
	}
	return &war, nil
}

// WarsOf lists every war a guild participates in, newest first.
func (svc *Service) WarsOf(ctx context.Context, guildID int64) ([]model.War, error) {
	gdb, err := svc.store.DB(ctx)
	if err != nil {
		return nil, err
	}
	var wars []model.War
	err = gdb.WithContext(ctx).
		Where("attacker_id = ? OR defender_id = ?", guildID, guildID).
		Order("created_at DESC").Find(&wars).Error
	return wars, err
}

// KillsOf returns the append-only kill log for a war.
func (svc *Service) KillsOf(ctx context.Context, warID int64) ([]model.WarKill, error) {
	gdb, err := svc.store.DB(ctx)
	if err != nil {
		return nil, err
	}
	var kills []model.WarKill
	err = gdb.WithContext(ctx).Where("war_id = ?", warID).
		Order("created_at").Find(&kills).Error
	return kills, err
}

// ---- Ceasefire workflow ----

// SubmitCeasefireRequest proposes ending a specific war in a draw. One
// PENDING request per (war, requester) is allowed at a time.
func (svc *Service) SubmitCeasefireRequest(ctx context.Context, warID, requesterID int64) (*model.CeasefireRequest, error) {
	gdb, err := svc.store.DB(ctx)
	if err != nil {
		return nil, err
	}

	unlock := svc.locks.Lock(warKey(warID))
	defer unlock()

	var req model.CeasefireRequest
	err = gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var war model.War
		if err := tx.First(&war, warID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrWarNotFound
			}
			return err
		}
		if war.Status == model.WarEnded {
			return ErrWarEnded
		}

		var targetID int64
		switch requesterID {
		case war.AttackerID:
			targetID = war.DefenderID
		case war.DefenderID:
			targetID = war.AttackerID
		default:
			return ErrNotParticipant
		}

		var count int64
		tx.Model(&model.CeasefireRequest{}).
			Where("war_id = ? AND requester_id = ? AND status = ?",
				warID, requesterID, model.RequestPending).
			Count(&count)
		if count > 0 {
			return ErrDuplicateRequest
		}

		req = model.CeasefireRequest{
			WarID:       warID,
			RequesterID: requesterID,
			TargetID:    targetID,
			Status:      model.RequestPending,
		}
		return tx.Create(&req).Error
	})
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// AcceptCeasefireRequest ends the war immediately as a draw: status
// ENDED with no winner, distinguishing it from a combat-resolved end.
func (svc *Service) AcceptCeasefireRequest(ctx context.Context, requestID int64) error {
	gdb, err := svc.store.DB(ctx)
	if err != nil {
		return err
	}

	var req model.CeasefireRequest
	if err := gdb.WithContext(ctx).First(&req, requestID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRequestNotFound
		}
		return err
	}

	unlock := svc.locks.Lock(warKey(req.WarID))
	defer unlock()

	var ended *model.War
	err = gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&req, requestID).Error; err != nil {
			return err
		}
		if req.Status != model.RequestPending {
			return ErrRequestResolved
		}

		var war model.War
		if err := tx.First(&war, req.WarID).Error; err != nil {
			return err
		}
		if war.Status == model.WarEnded {
			return ErrWarEnded
		}

		now := time.Now()
		if err := tx.Model(&model.War{}).Where("id = ?", war.ID).
			Updates(map[string]interface{}{
				"status":    model.WarEnded,
				"winner_id": nil,
				"ended_at":  &now,
			}).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.CeasefireRequest{}).Where("id = ?", requestID).
			Updates(map[string]interface{}{
				"status":      model.RequestAccepted,
				"resolved_at": &now,
			}).Error; err != nil {
			return err
		}
		war.Status = model.WarEnded
		war.WinnerID = nil
		war.EndedAt = &now
		ended = &war
		return nil
	})
	if err != nil {
		return err
	}

	svc.notifier.Emit(notify.WarStateChanged{
		WarID:      ended.ID,
		AttackerID: ended.AttackerID,
		DefenderID: ended.DefenderID,
		Status:     ended.Status.String(),
	})
	svc.logger.Info("war ended by ceasefire", zap.Int64("war_id", ended.ID))
	return nil
}

// GetCeasefireRequest returns one ceasefire request by id.
func (svc *Service) GetCeasefireRequest(ctx context.Context, requestID int64) (*model.CeasefireRequest, error) {
	gdb, err := svc.store.DB(ctx)
	if err != nil {
		return nil, err
	}
	var req model.CeasefireRequest
	if err := gdb.WithContext(ctx).First(&req, requestID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	return &req, nil
}

// RejectCeasefireRequest discards a pending ceasefire proposal.
func (svc *Service) RejectCeasefireRequest(ctx context.Context, requestID int64) error {
	gdb, err := svc.store.DB(ctx)
	if err != nil {
		return err
	}
	return gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var req model.CeasefireRequest
		if err := tx.First(&req, requestID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRequestNotFound
			}
			return err
		}
		if req.Status != model.RequestPending {
			return ErrRequestResolved
		}
		now := time.Now()
		return tx.Model(&model.CeasefireRequest{}).Where("id = ?", requestID).
			Updates(map[string]interface{}{
				"status":      model.RequestRejected,
				"resolved_at": &now,
			}).Error
	})
}
