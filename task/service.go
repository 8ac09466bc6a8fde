package task

import (
	"context"
	"errors"
	"math/rand"
	"strconv"
	"time"

	"github.com/sorahane/guildserver/config"
	"github.com/sorahane/guildserver/db"
	"github.com/sorahane/guildserver/guild"
	"github.com/sorahane/guildserver/keylock"
	"github.com/sorahane/guildserver/model"
	"github.com/sorahane/guildserver/notify"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrNoDefinitions is returned when generation is asked for but no task
// definitions were configured.
var ErrNoDefinitions = errors.New("task: no definitions configured")

// Definition describes one generatable task type.
type Definition struct {
	Type        string
	Subtype     string // empty = any subtype matches
	Target      int
	RewardExp   int64
	RewardMoney int64
	Weight      int
}

// DefaultDefinitions is the built-in task set used when configuration
// supplies none.
var DefaultDefinitions = []Definition{
	{Type: "kill", Subtype: "", Target: 50, RewardExp: 500, RewardMoney: 250, Weight: 3},
	{Type: "kill", Subtype: "boss", Target: 3, RewardExp: 1500, RewardMoney: 1000, Weight: 1},
	{Type: "harvest", Subtype: "", Target: 200, RewardExp: 300, RewardMoney: 150, Weight: 3},
	{Type: "craft", Subtype: "", Target: 100, RewardExp: 400, RewardMoney: 200, Weight: 2},
}

// Service is the progression engine: guild tasks with bounded progress
// feeding reward experience back into the guild registry.
type Service struct {
	store    *db.Store
	cfg      config.TaskConfig
	guilds   *guild.Service
	defs     []Definition
	notifier notify.Notifier
	locks    *keylock.KeyLock
	rng      *rand.Rand
	logger   *zap.Logger
}

func taskKey(guildID int64) string { return "task:" + strconv.FormatInt(guildID, 10) }

// NewService creates a task Service. Nil defs fall back to
// DefaultDefinitions.
func NewService(store *db.Store, cfg config.TaskConfig, guilds *guild.Service, defs []Definition, notifier notify.Notifier, logger *zap.Logger) *Service {
	if len(defs) == 0 {
		defs = DefaultDefinitions
	}
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Service{
		store:    store,
		cfg:      cfg,
		guilds:   guilds,
		defs:     defs,
		notifier: notifier,
		locks:    keylock.New(),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		logger:   logger,
	}
}

// Generate creates one task for a guild from the weighted definition set.
func (svc *Service) Generate(ctx context.Context, guildID int64) (*model.GuildTask, error) {
	def, err := svc.pick()
	if err != nil {
		return nil, err
	}

	gdb, err := svc.store.DB(ctx)
	if err != nil {
		return nil, err
	}

	t := model.GuildTask{
		GuildID:     guildID,
		Type:        def.Type,
		Subtype:     def.Subtype,
		Target:      def.Target,
		RewardExp:   def.RewardExp,
		RewardMoney: def.RewardMoney,
		ExpiresAt:   time.Now().Add(svc.cfg.Lifetime),
	}
	if err := gdb.WithContext(ctx).Create(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (svc *Service) pick() (*Definition, error) {
	if len(svc.defs) == 0 {
		return nil, ErrNoDefinitions
	}
	total := 0
	for _, d := range svc.defs {
		if d.Weight > 0 {
			total += d.Weight
		}
	}
	if total == 0 {
		return &svc.defs[0], nil
	}
	n := svc.rng.Intn(total)
	for i := range svc.defs {
		if svc.defs[i].Weight <= 0 {
			continue
		}
		n -= svc.defs[i].Weight
		if n < 0 {
			return &svc.defs[i], nil
		}
	}
	return &svc.defs[len(svc.defs)-1], nil
}

// GenerateAll gives every guild without an active task a fresh one.
// Driven by the scheduler.
func (svc *Service) GenerateAll(ctx context.Context) error {
	gdb, err := svc.store.DB(ctx)
	if err != nil {
		return err
	}

	var guildIDs []int64
	if err := gdb.WithContext(ctx).Model(&model.Guild{}).
		Pluck("id", &guildIDs).Error; err != nil {
		return err
	}

	now := time.Now()
	for _, id := range guildIDs {
		var count int64
		gdb.WithContext(ctx).Model(&model.GuildTask{}).
			Where("guild_id = ? AND completed_at IS NULL AND expires_at > ?", id, now).
			Count(&count)
		if count > 0 {
			continue
		}
		if _, err := svc.Generate(ctx, id); err != nil {
			svc.logger.Error("task generation failed",
				zap.Int64("guild_id", id), zap.Error(err))
		}
	}
	return nil
}

// UpdateProgress applies delta to the guild's active task matching the
// given type (and subtype, when the task specifies one). Progress is
// clamped at the target; the task completes at the exact step progress
// reaches it. Completion is one-way: further calls find no active task
// and are no-ops. Returns the updated task, or nil when nothing matched.
func (svc *Service) UpdateProgress(ctx context.Context, guildID int64, taskType, subtype string, delta int) (*model.GuildTask, error) {
	if delta <= 0 {
		return nil, nil
	}
	gdb, err := svc.store.DB(ctx)
	if err != nil {
		return nil, err
	}

	// Serialize progress writes per guild so concurrent events cannot
	// read the same snapshot and drop each other's increments.
	unlock := svc.locks.Lock(taskKey(guildID))
	defer unlock()

	var updated *model.GuildTask
	var completed bool
	err = gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var t model.GuildTask
		err := tx.Where(
			"guild_id = ? AND type = ? AND (subtype = '' OR subtype = ?) AND completed_at IS NULL AND expires_at > ?",
			guildID, taskType, subtype, time.Now(),
		).Order("created_at").First(&t).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		t.Progress += delta
		if t.Progress >= t.Target {
			t.Progress = t.Target
			now := time.Now()
			t.CompletedAt = &now
			completed = true
		}

		updates := map[string]interface{}{"progress": t.Progress}
		if completed {
			updates["completed_at"] = t.CompletedAt
		}
		if err := tx.Model(&model.GuildTask{}).Where("id = ?", t.ID).
			Updates(updates).Error; err != nil {
			return err
		}
		updated = &t
		return nil
	})
	if err != nil || updated == nil {
		return nil, err
	}

	if completed {
		svc.grantRewards(ctx, updated)
		svc.notifier.Emit(notify.TaskCompleted{
			GuildID: guildID, TaskID: updated.ID, Type: updated.Type,
		})
	}
	return updated, nil
}

func (svc *Service) grantRewards(ctx context.Context, t *model.GuildTask) {
	svc.logger.Info("task completed",
		zap.Int64("guild_id", t.GuildID),
		zap.Int64("task_id", t.ID),
		zap.String("type", t.Type))
	if t.RewardExp > 0 {
		if _, err := svc.guilds.AddExperience(ctx, t.GuildID, t.RewardExp); err != nil {
			svc.logger.Error("reward exp failed",
				zap.Int64("guild_id", t.GuildID), zap.Error(err))
		}
	}
	if t.RewardMoney > 0 {
		if _, err := svc.guilds.Deposit(ctx, t.GuildID, t.RewardMoney); err != nil {
			// A full bank forfeits the money reward; not a failure.
			if !errors.Is(err, guild.ErrBankFull) {
				svc.logger.Error("reward deposit failed",
					zap.Int64("guild_id", t.GuildID), zap.Error(err))
			}
		}
	}
}

// ActiveTasks returns a guild's incomplete, unexpired tasks.
func (svc *Service) ActiveTasks(ctx context.Context, guildID int64) ([]model.GuildTask, error) {
	gdb, err := svc.store.DB(ctx)
	if err != nil {
		return nil, err
	}
	var tasks []model.GuildTask
	err = gdb.WithContext(ctx).
		Where("guild_id = ? AND completed_at IS NULL AND expires_at > ?", guildID, time.Now()).
		Order("created_at").Find(&tasks).Error
	return tasks, err
}

// PruneExpired deletes incomplete tasks whose deadline has passed.
// Expired tasks never resume; keeping the rows serves no one.
func (svc *Service) PruneExpired(ctx context.Context) (int64, error) {
	gdb, err := svc.store.DB(ctx)
	if err != nil {
		return 0, err
	}
	res := gdb.WithContext(ctx).
		Where("completed_at IS NULL AND expires_at <= ?", time.Now()).
		Delete(&model.GuildTask{})
	return res.RowsAffected, res.Error
}
