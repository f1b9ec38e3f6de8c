package services

import (
	"sync"

	"github.com/google/uuid"
)

// sessionLocks enforces spec §5's ordering guarantee: recommend and
// feedback operations on the same session execute serialized in
// arrival order. One mutex per session, created lazily and reference
// counted so the map doesn't grow unbounded across the session's
// lifetime relative to what's currently in flight.
type sessionLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{locks: make(map[uuid.UUID]*refMutex)}
}

// Lock acquires the per-session mutex for sessionID, blocking until any
// concurrent recommend/feedback on the same session has released it.
// The returned func releases it and, once unreferenced, evicts the
// entry from the table.
func (s *sessionLocks) Lock(sessionID uuid.UUID) func() {
	s.mu.Lock()
	rm, ok := s.locks[sessionID]
	if !ok {
		rm = &refMutex{}
		s.locks[sessionID] = rm
	}
	rm.refs++
	s.mu.Unlock()

	rm.Lock()

	return func() {
		rm.Unlock()
		s.mu.Lock()
		rm.refs--
		if rm.refs == 0 {
			delete(s.locks, sessionID)
		}
		s.mu.Unlock()
	}
}
