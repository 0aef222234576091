package session

import (
	"sync"
	"time"

	"otp_reader/internal/config"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// Store keeps sessions in memory with a sliding TTL.
// Expired sessions are removed by Sweep, which the session sweep job runs.
type Store struct {
	mu      sync.RWMutex
	cache   *cache.Cache
	ttl     time.Duration
	factory Factory
	logger  *zap.Logger
}

// NewStore creates the session store. The returned cleanup closes every live session.
func NewStore(cfg *config.Config, factory Factory, logger *zap.Logger) (*Store, func()) {
	s := newStore(cfg.SessionTTL, factory, logger)
	return s, s.closeAll
}

func newStore(ttl time.Duration, factory Factory, logger *zap.Logger) *Store {
	// No janitor: expiry is driven by Sweep.
	c := cache.New(ttl, 0)
	s := &Store{
		cache:   c,
		ttl:     ttl,
		factory: factory,
		logger:  logger.Named("SessionStore"),
	}
	c.OnEvicted(func(id string, v interface{}) {
		if st, ok := v.(*State); ok {
			st.Close()
			s.logger.Debug("Session discarded", zap.String("session_id", id))
		}
	})
	return s
}

// Get returns a live session and extends its TTL.
func (s *Store) Get(id string) (*State, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, found := s.cache.Get(id)
	if !found {
		return nil, false
	}
	st := v.(*State)
	s.cache.Set(id, st, cache.DefaultExpiration)
	return st, true
}

// GetOrCreate returns the session for id, creating a new one (with a fresh
// id) when id is unknown or expired. created reports whether that happened.
func (s *Store) GetOrCreate(id string) (st *State, created bool) {
	if id != "" {
		if st, ok := s.Get(id); ok {
			return st, false
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	newID := uuid.NewString()
	st = s.factory(newID)
	s.cache.Set(newID, st, cache.DefaultExpiration)
	s.logger.Debug("Session created", zap.String("session_id", newID))
	return st, true
}

// Delete discards a session immediately.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Delete(id)
}

// Sweep removes expired sessions and returns how many were removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := s.cache.ItemCount()
	s.cache.DeleteExpired()
	return before - s.cache.ItemCount()
}

// Len counts stored sessions, including expired ones not yet swept.
func (s *Store) Len() int {
	return s.cache.ItemCount()
}

func (s *Store) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.DeleteExpired()
	for id := range s.cache.Items() {
		s.cache.Delete(id)
	}
}
