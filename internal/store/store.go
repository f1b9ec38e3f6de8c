// Package store is the document store collaborator spec §1 places out of
// scope: a thin interface over the four logical collections (products,
// user_sessions, interactions, session_history) backed by Postgres via
// pgx, standing in for the spec's unspecified "raw document store
// driver". The env var naming (MONGODB_URI) is kept for continuity with
// spec §6 even though the concrete driver is relational — the spec
// treats this driver as given, so only the contract below is binding.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/temcen/linucb-fashion/pkg/models"
)

// ProductStore is the read-only catalog collaborator (C1's input, C4's
// candidate source).
type ProductStore interface {
	GetProduct(ctx context.Context, productID string) (*models.Product, error)
	Sample(ctx context.Context, q models.ProductQuery, limit int) ([]*models.Product, error)
}

// SessionStore owns the user_sessions collection.
type SessionStore interface {
	Create(ctx context.Context, s *models.Session) error
	Get(ctx context.Context, sessionID uuid.UUID) (*models.Session, error)
	Touch(ctx context.Context, sessionID uuid.UUID, at time.Time) error
}

// HistoryStore is C3, the Session History Store.
type HistoryStore interface {
	// RecordShown appends {now, action=null}; after append, if the
	// session's entry count exceeds maxEntries, the oldest overflow is
	// deleted.
	RecordShown(ctx context.Context, sessionID uuid.UUID, productID string, shownAt time.Time, maxEntries int) error
	// SetAction updates the most recent matching (session, product)
	// entry's action and action_timestamp. No-op if no match.
	SetAction(ctx context.Context, sessionID uuid.UUID, productID, action string, at time.Time) error
	// GetHistory returns entries newest-first, capped at limit.
	GetHistory(ctx context.Context, sessionID uuid.UUID, limit int) ([]*models.SessionHistoryEntry, error)
}

// InteractionStore is the write-once Interaction log.
type InteractionStore interface {
	Append(ctx context.Context, i *models.Interaction) error
	// List returns a session's interactions in timestamp order, the
	// authoritative reward stream C2 replays.
	List(ctx context.Context, sessionID uuid.UUID) ([]*models.Interaction, error)
}

// Store aggregates the four collaborator interfaces behind the single
// connection the document store driver owns.
type Store interface {
	ProductStore
	SessionStore
	HistoryStore
	InteractionStore
	Ping(ctx context.Context) error
	Close()
}
