package models

import (
	"time"

	"github.com/google/uuid"
)

// Session status values.
const (
	SessionActive   = "active"
	SessionInactive = "inactive"
)

// Session is a per-visitor bandit context. It is created once by the
// session endpoint and mutated only by feedback (total_interactions,
// updated_at); the core never deletes it.
type Session struct {
	SessionID         uuid.UUID `json:"session_id" db:"session_id"`
	UserID            string    `json:"user_id" db:"user_id"`
	Alpha             float64   `json:"alpha" db:"alpha"`
	Dimensions        int       `json:"dimensions" db:"dimensions"`
	TotalInteractions int       `json:"total_interactions" db:"total_interactions"`
	Status            string    `json:"status" db:"status"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`
}

// Action is the strict user-action vocabulary.
type Action string

const (
	ActionLove    Action = "love"
	ActionLike    Action = "like"
	ActionDislike Action = "dislike"
	ActionSkip    Action = "skip"
	ActionNeutral Action = "neutral"
)

// ValidAction reports whether a is one of the five strict actions.
func ValidAction(a string) bool {
	switch Action(a) {
	case ActionLove, ActionLike, ActionDislike, ActionSkip, ActionNeutral:
		return true
	}
	return false
}

// SessionHistoryEntry is one row of the append-only per-session shown/
// acted-on log, capped at H_max entries (oldest purged on insert).
type SessionHistoryEntry struct {
	SessionID       uuid.UUID  `json:"session_id" db:"session_id"`
	ProductID       string     `json:"product_id" db:"product_id"`
	ShownAt         time.Time  `json:"shown_at" db:"shown_at"`
	UserAction      *string    `json:"user_action,omitempty" db:"user_action"`
	ActionTimestamp *time.Time `json:"action_timestamp,omitempty" db:"action_timestamp"`
}

// Interaction is a write-once reward event. The ordered concatenation of
// a session's interactions is the authoritative stream LinUCB replays.
type Interaction struct {
	SessionID     uuid.UUID `json:"session_id" db:"session_id"`
	ProductID     string    `json:"product_id" db:"product_id"`
	Action        string    `json:"action" db:"action"`
	Reward        float64   `json:"reward" db:"reward"`
	FeatureVector []float64 `json:"feature_vector" db:"feature_vector"`
	ScoreBefore   float64   `json:"score_before" db:"score_before"`
	ScoreAfter    float64   `json:"score_after" db:"score_after"`
	Timestamp     time.Time `json:"timestamp" db:"timestamp"`
}
