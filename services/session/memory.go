package session

import (
	"context"
	"sync"
	"time"

	"moyobot/models"
)

// MemoryStore keeps sessions in process memory. It is the default backend
// for single-instance deployments and for tests.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*models.Session
	locks    *keyedMutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*models.Session),
		locks:    newKeyedMutex(),
	}
}

func (s *MemoryStore) Acquire(ctx context.Context, id models.Identity) (*models.Session, error) {
	if err := s.locks.Lock(ctx, id.Key()); err != nil {
		return nil, err
	}
	s.mu.RLock()
	stored, ok := s.sessions[id.Key()]
	s.mu.RUnlock()
	if !ok {
		return models.NewSession(id), nil
	}
	return cloneSession(stored), nil
}

func (s *MemoryStore) Commit(ctx context.Context, sess *models.Session) error {
	key := sess.Identity.Key()
	s.mu.Lock()
	s.sessions[key] = cloneSession(sess)
	s.mu.Unlock()
	s.locks.Unlock(key)
	return nil
}

func (s *MemoryStore) Discard(id models.Identity) {
	s.locks.Unlock(id.Key())
}

func (s *MemoryStore) Reap(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().Add(-olderThan)

	s.mu.RLock()
	keys := make([]string, 0, len(s.sessions))
	for k := range s.sessions {
		keys = append(keys, k)
	}
	s.mu.RUnlock()

	reaped := 0
	for _, key := range keys {
		// A busy identity is mid-turn and by definition not idle; skip it.
		if !s.locks.TryLock(key) {
			continue
		}
		s.mu.Lock()
		if sess, ok := s.sessions[key]; ok && sess.LastActivity.Before(cutoff) {
			delete(s.sessions, key)
			reaped++
		}
		s.mu.Unlock()
		s.locks.Unlock(key)
	}
	return reaped, nil
}

// Snapshot returns copies of all stored sessions, most recently active first.
// Used by the outreach endpoints.
func (s *MemoryStore) Snapshot(ctx context.Context) ([]*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, cloneSession(sess))
	}
	sortByActivity(out)
	return out, nil
}
