package model

import "time"

// RequestStatus is the lifecycle state of a relationship request.
// ACCEPTED and REJECTED are terminal.
type RequestStatus int

const (
	RequestPending  RequestStatus = 0
	RequestAccepted RequestStatus = 1
	RequestRejected RequestStatus = 2
)

// WarStatus is the lifecycle state of a war. Transitions only move
// forward; ENDED is terminal.
type WarStatus int

const (
	WarPending   WarStatus = 0
	WarPreparing WarStatus = 1
	WarOngoing   WarStatus = 2
	WarEnded     WarStatus = 3
)

func (s WarStatus) String() string {
	switch s {
	case WarPending:
		return "PENDING"
	case WarPreparing:
		return "PREPARING"
	case WarOngoing:
		return "ONGOING"
	case WarEnded:
		return "ENDED"
	default:
		return "UNKNOWN"
	}
}

// Alliance is a mutual non-aggression pact. The pair is stored
// normalized (Guild1ID < Guild2ID) so the unique index covers both
// orderings.
type Alliance struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Guild1ID  int64     `gorm:"uniqueIndex:idx_alliance_pair;not null" json:"guild1_id"`
	Guild2ID  int64     `gorm:"uniqueIndex:idx_alliance_pair;not null" json:"guild2_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// AllianceRequest is a PENDING → ACCEPTED/REJECTED proposal from one
// guild to another.
type AllianceRequest struct {
	ID          int64         `gorm:"primaryKey;autoIncrement" json:"id"`
	RequesterID int64         `gorm:"index:idx_areq_requester;not null" json:"requester_id"`
	TargetID    int64         `gorm:"index:idx_areq_target;not null" json:"target_id"`
	Status      RequestStatus `gorm:"default:0" json:"status"`
	CreatedAt   time.Time     `gorm:"autoCreateTime" json:"created_at"`
	ResolvedAt  *time.Time    `json:"resolved_at"`
}

// War is a time-bounded adversarial relationship between two guilds.
// Phase deadlines are absolute times computed at declaration.
type War struct {
	ID            int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	AttackerID    int64      `gorm:"index:idx_war_attacker;not null" json:"attacker_id"`
	DefenderID    int64      `gorm:"index:idx_war_defender;not null" json:"defender_id"`
	Status        WarStatus  `gorm:"default:0" json:"status"`
	AttackerKills int        `gorm:"default:0" json:"attacker_kills"`
	DefenderKills int        `gorm:"default:0" json:"defender_kills"`
	PrepareEndsAt time.Time  `gorm:"not null" json:"prepare_ends_at"`
	EndsAt        time.Time  `gorm:"not null" json:"ends_at"`
	EndedAt       *time.Time `json:"ended_at"`
	WinnerID      *int64     `json:"winner_id"` // nil = draw or not yet decided
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`

	Winner *Guild `gorm:"foreignKey:WinnerID;constraint:OnDelete:SET NULL" json:"-"`
}

// WarKill is one scored kill during an ONGOING war. Append-only.
type WarKill struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	WarID     int64     `gorm:"index:idx_kill_war;not null" json:"war_id"`
	KillerID  int64     `gorm:"not null" json:"killer_id"`
	VictimID  int64     `gorm:"not null" json:"victim_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	War War `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// CeasefireRequest proposes ending a specific war in a draw.
type CeasefireRequest struct {
	ID          int64         `gorm:"primaryKey;autoIncrement" json:"id"`
	WarID       int64         `gorm:"index:idx_creq_war;not null" json:"war_id"`
	RequesterID int64         `gorm:"not null" json:"requester_id"`
	TargetID    int64         `gorm:"not null" json:"target_id"`
	Status      RequestStatus `gorm:"default:0" json:"status"`
	CreatedAt   time.Time     `gorm:"autoCreateTime" json:"created_at"`
	ResolvedAt  *time.Time    `json:"resolved_at"`

	War War `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// NormalizePair orders a guild pair so (a,b) and (b,a) map to the same key.
func NormalizePair(a, b int64) (int64, int64) {
	if a > b {
		return b, a
	}
	return a, b
}
