// Package memory provides the in-memory session store. Sessions are the
// only state coinchat keeps, and they die with the process.
package memory

import (
	"sync"

	"coinchat/internal/common"
	"coinchat/internal/interfaces"
	"coinchat/internal/models"
)

// entry couples a session with its cycle lock. The lock serializes
// classification/response cycles: at most one is in flight per session.
type entry struct {
	mu      sync.Mutex
	session *models.Session
}

// Store holds all live sessions.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry
	logger  *common.Logger
}

// NewStore creates an empty session store.
func NewStore(logger *common.Logger) *Store {
	return &Store{
		entries: make(map[string]*entry),
		logger:  logger,
	}
}

// Create adds a new empty session and returns it.
func (s *Store) Create() *models.Session {
	session := models.NewSession()

	s.mu.Lock()
	s.entries[session.ID] = &entry{session: session}
	s.mu.Unlock()

	s.logger.Debug().Str("session", session.ID).Msg("Session created")
	return session
}

// Get returns a session by id without its cycle lock. Existence checks
// only; session state reads go through Acquire.
func (s *Store) Get(id string) (*models.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	if !ok {
		return nil, false
	}
	return e.session, true
}

// Acquire returns the session with its cycle lock held. The release func
// must be called once the cycle completes. A delete racing an in-flight
// cycle leaves that cycle running against the detached session, which is
// harmless: the state is discarded either way.
func (s *Store) Acquire(id string) (*models.Session, func(), bool) {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok {
		return nil, nil, false
	}

	e.mu.Lock()
	return e.session, e.mu.Unlock, true
}

// Delete ends a session and discards its state.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	delete(s.entries, id)
	s.mu.Unlock()

	s.logger.Debug().Str("session", id).Msg("Session deleted")
}

// Count returns the number of live sessions.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Ensure Store implements SessionStore
var _ interfaces.SessionStore = (*Store)(nil)
