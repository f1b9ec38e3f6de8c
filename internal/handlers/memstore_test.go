package handlers

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/temcen/linucb-fashion/internal/apperr"
	"github.com/temcen/linucb-fashion/pkg/models"
)

// memStore is an in-memory store.Store backing the HTTP-level tests.
type memStore struct {
	mu           sync.Mutex
	products     map[string]*models.Product
	sessions     map[uuid.UUID]*models.Session
	history      map[uuid.UUID][]*models.SessionHistoryEntry
	interactions map[uuid.UUID][]*models.Interaction
}

func newMemStore() *memStore {
	return &memStore{
		products:     map[string]*models.Product{},
		sessions:     map[uuid.UUID]*models.Session{},
		history:      map[uuid.UUID][]*models.SessionHistoryEntry{},
		interactions: map[uuid.UUID][]*models.Interaction{},
	}
}

func (s *memStore) seedProducts(n int) {
	categories := []string{"Tops", "Bottoms", "Dresses", "Shoes", "Accessories"}
	colors := []string{"Black", "White", "Blue", "Red", "Green"}
	brands := []string{"Aria", "Bolt", "Cove", "Dune", "Echo"}
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("P%03d", i)
		s.products[id] = &models.Product{
			ProductID:    id,
			Brand:        brands[i%len(brands)],
			CategoryMain: categories[i%len(categories)],
			PrimaryColor: colors[i%len(colors)],
			Occasion:     "Casual",
			Season:       "Summer",
			Style:        "Classic",
			Price:        float64(20 + i),
			DisplayName:  fmt.Sprintf("Item %d", i),
		}
	}
}

func (s *memStore) GetProduct(ctx context.Context, productID string) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[productID]
	if !ok {
		return nil, apperr.New(apperr.KindProductNotFound, "product not found: "+productID)
	}
	return p, nil
}

func (s *memStore) Sample(ctx context.Context, q models.ProductQuery, limit int) ([]*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.products))
	for id := range s.products {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var out []*models.Product
	for _, id := range ids {
		if p := s.products[id]; q.Matches(p) {
			out = append(out, p)
		}
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *memStore) Create(ctx context.Context, sess *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.SessionID] = sess
	return nil
}

func (s *memStore) Get(ctx context.Context, sessionID uuid.UUID) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, apperr.New(apperr.KindSessionNotFound, "session not found: "+sessionID.String())
	}
	cp := *sess
	return &cp, nil
}

func (s *memStore) Touch(ctx context.Context, sessionID uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return apperr.New(apperr.KindSessionNotFound, "session not found: "+sessionID.String())
	}
	sess.TotalInteractions++
	sess.UpdatedAt = at
	return nil
}

func (s *memStore) RecordShown(ctx context.Context, sessionID uuid.UUID, productID string, shownAt time.Time, maxEntries int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history[sessionID] = append([]*models.SessionHistoryEntry{{
		SessionID: sessionID, ProductID: productID, ShownAt: shownAt,
	}}, s.history[sessionID]...)
	if len(s.history[sessionID]) > maxEntries {
		s.history[sessionID] = s.history[sessionID][:maxEntries]
	}
	return nil
}

func (s *memStore) SetAction(ctx context.Context, sessionID uuid.UUID, productID, action string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, h := range s.history[sessionID] {
		if h.ProductID == productID {
			a := action
			h.UserAction = &a
			h.ActionTimestamp = &at
			return nil
		}
	}
	return nil
}

func (s *memStore) GetHistory(ctx context.Context, sessionID uuid.UUID, limit int) ([]*models.SessionHistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.history[sessionID]
	if len(h) > limit {
		h = h[:limit]
	}
	return append([]*models.SessionHistoryEntry(nil), h...), nil
}

func (s *memStore) Append(ctx context.Context, i *models.Interaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interactions[i.SessionID] = append(s.interactions[i.SessionID], i)
	return nil
}

func (s *memStore) List(ctx context.Context, sessionID uuid.UUID) ([]*models.Interaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*models.Interaction(nil), s.interactions[sessionID]...), nil
}

func (s *memStore) Ping(ctx context.Context) error { return nil }
func (s *memStore) Close()                         {}
