package notify

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/sorahane/guildserver/cache"
	"github.com/sorahane/guildserver/scheduler"
	"go.uber.org/zap"
)

// Outcome is a structured domain event. The engine emits outcomes;
// delivery adapters subscribe and are solely responsible for turning
// them into user-facing text.
type Outcome interface {
	Kind() string
}

type LevelUp struct {
	GuildID  int64 `json:"guild_id"`
	NewLevel int   `json:"new_level"`
}

func (LevelUp) Kind() string { return "level_up" }

type KillRecorded struct {
	WarID         int64 `json:"war_id"`
	KillerID      int64 `json:"killer_id"`
	VictimID      int64 `json:"victim_id"`
	AttackerKills int   `json:"attacker_kills"`
	DefenderKills int   `json:"defender_kills"`
}

func (KillRecorded) Kind() string { return "kill_recorded" }

type WarStateChanged struct {
	WarID      int64  `json:"war_id"`
	AttackerID int64  `json:"attacker_id"`
	DefenderID int64  `json:"defender_id"`
	Status     string `json:"status"`
	WinnerID   *int64 `json:"winner_id,omitempty"`
}

func (WarStateChanged) Kind() string { return "war_state_changed" }

type TerritoryEntered struct {
	PlayerID int64  `json:"player_id"`
	GuildID  int64  `json:"guild_id"`
	World    string `json:"world"`
	ChunkX   int    `json:"chunk_x"`
	ChunkZ   int    `json:"chunk_z"`
}

func (TerritoryEntered) Kind() string { return "territory_entered" }

type TerritoryLeft struct {
	PlayerID int64  `json:"player_id"`
	GuildID  int64  `json:"guild_id"`
	World    string `json:"world"`
	ChunkX   int    `json:"chunk_x"`
	ChunkZ   int    `json:"chunk_z"`
}

func (TerritoryLeft) Kind() string { return "territory_left" }

type TaskCompleted struct {
	GuildID int64  `json:"guild_id"`
	TaskID  int64  `json:"task_id"`
	Type    string `json:"type"`
}

func (TaskCompleted) Kind() string { return "task_completed" }

type AllianceFormed struct {
	Guild1ID int64 `json:"guild1_id"`
	Guild2ID int64 `json:"guild2_id"`
}

func (AllianceFormed) Kind() string { return "alliance_formed" }

type AllianceDissolved struct {
	Guild1ID int64 `json:"guild1_id"`
	Guild2ID int64 `json:"guild2_id"`
}

func (AllianceDissolved) Kind() string { return "alliance_dissolved" }

type GuildDisbanded struct {
	GuildID int64  `json:"guild_id"`
	Name    string `json:"name"`
}

func (GuildDisbanded) Kind() string { return "guild_disbanded" }

// Notifier receives outcomes from the engine.
type Notifier interface {
	Emit(Outcome)
}

// envelope is the wire form published on the pub/sub channel.
type envelope struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// PubSubNotifier batches outcomes and publishes them as JSON on one
// pub/sub channel. Batching defers publication by FlushDelay; each new
// outcome restarts the timer, so bursts flush together.
type PubSubNotifier struct {
	mu      sync.Mutex
	pending []Outcome
	ps      cache.PubSub
	sched   *scheduler.Scheduler
	channel string
	delay   time.Duration
	logger  *zap.Logger
}

// NewPubSubNotifier creates a notifier publishing on the given channel.
func NewPubSubNotifier(ps cache.PubSub, sched *scheduler.Scheduler, channel string, delay time.Duration, logger *zap.Logger) *PubSubNotifier {
	if channel == "" {
		channel = "guild.events"
	}
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}
	return &PubSubNotifier{
		ps:      ps,
		sched:   sched,
		channel: channel,
		delay:   delay,
		logger:  logger,
	}
}

// Emit queues an outcome and schedules a deferred flush.
func (n *PubSubNotifier) Emit(o Outcome) {
	n.mu.Lock()
	n.pending = append(n.pending, o)
	n.mu.Unlock()
	n.sched.After("notify.flush", n.delay, n.Flush)
}

// Flush publishes all queued outcomes.
func (n *PubSubNotifier) Flush() {
	n.mu.Lock()
	batch := n.pending
	n.pending = nil
	n.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, o := range batch {
		payload, err := json.Marshal(envelope{Type: o.Kind(), Data: o})
		if err != nil {
			n.logger.Error("marshal outcome", zap.String("kind", o.Kind()), zap.Error(err))
			continue
		}
		if err := n.ps.Publish(ctx, n.channel, string(payload)); err != nil {
			n.logger.Error("publish outcome", zap.String("kind", o.Kind()), zap.Error(err))
		}
	}
}

// Nop is a Notifier that discards all outcomes. Used in tests and by
// callers that do their own delivery.
type Nop struct{}

func (Nop) Emit(Outcome) {}

// Recorder collects outcomes in memory for test assertions.
type Recorder struct {
	mu       sync.Mutex
	Outcomes []Outcome
}

func (r *Recorder) Emit(o Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Outcomes = append(r.Outcomes, o)
}

// Of returns all recorded outcomes with the given kind.
func (r *Recorder) Of(kind string) []Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Kind() == kind {
			out = append(out, o)
		}
	}
	return out
}
