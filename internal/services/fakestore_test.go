package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/temcen/linucb-fashion/internal/apperr"
	"github.com/temcen/linucb-fashion/pkg/models"
)

// fakeStore is an in-memory store.Store used by the services tests,
// grounded on the teacher's own in-memory test doubles for its service
// layer (e.g. preprocessor_test.go's fixture-driven fakes).
type fakeStore struct {
	mu           sync.Mutex
	products     map[string]*models.Product
	sessions     map[uuid.UUID]*models.Session
	history      map[uuid.UUID][]*models.SessionHistoryEntry
	interactions map[uuid.UUID][]*models.Interaction
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		products:     map[string]*models.Product{},
		sessions:     map[uuid.UUID]*models.Session{},
		history:      map[uuid.UUID][]*models.SessionHistoryEntry{},
		interactions: map[uuid.UUID][]*models.Interaction{},
	}
}

func (s *fakeStore) addProduct(p *models.Product) {
	s.products[p.ProductID] = p
}

func (s *fakeStore) GetProduct(ctx context.Context, productID string) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[productID]
	if !ok {
		return nil, apperr.New(apperr.KindProductNotFound, "product not found: "+productID)
	}
	return p, nil
}

func (s *fakeStore) Sample(ctx context.Context, q models.ProductQuery, limit int) ([]*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.products))
	for id := range s.products {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var out []*models.Product
	for _, id := range ids {
		p := s.products[id]
		if q.Matches(p) {
			out = append(out, p)
		}
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *fakeStore) Create(ctx context.Context, sess *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.SessionID] = sess
	return nil
}

func (s *fakeStore) Get(ctx context.Context, sessionID uuid.UUID) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, apperr.New(apperr.KindSessionNotFound, "session not found: "+sessionID.String())
	}
	cp := *sess
	return &cp, nil
}

func (s *fakeStore) Touch(ctx context.Context, sessionID uuid.UUID, at time.Time) error {
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

func (s *fakeStore) RecordShown(ctx context.Context, sessionID uuid.UUID, productID string, shownAt time.Time, maxEntries int) error {
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

func (s *fakeStore) SetAction(ctx context.Context, sessionID uuid.UUID, productID, action string, at time.Time) error {
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

func (s *fakeStore) GetHistory(ctx context.Context, sessionID uuid.UUID, limit int) ([]*models.SessionHistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.history[sessionID]
	if len(h) > limit {
		h = h[:limit]
	}
	return append([]*models.SessionHistoryEntry(nil), h...), nil
}

func (s *fakeStore) Append(ctx context.Context, i *models.Interaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interactions[i.SessionID] = append(s.interactions[i.SessionID], i)
	return nil
}

func (s *fakeStore) List(ctx context.Context, sessionID uuid.UUID) ([]*models.Interaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*models.Interaction(nil), s.interactions[sessionID]...), nil
}

func (s *fakeStore) Ping(ctx context.Context) error { return nil }
func (s *fakeStore) Close()                         {}
