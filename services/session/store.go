package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"moyobot/models"
)

// ErrStorageUnavailable reports that the storage backend cannot be reached.
// Callers answer the end user with a generic retry message rather than crash.
var ErrStorageUnavailable = errors.New("session storage unavailable")

// Store owns all conversation sessions and serializes access per identity.
//
// Acquire takes the identity's exclusive critical section and returns a
// private working copy of the stored session (or a fresh empty one). The
// caller holds the critical section for the duration of one full turn,
// including any external model and calendar calls, and must finish the turn
// with exactly one Commit or Discard. Commit atomically replaces the stored
// session; Discard abandons the working copy without persisting anything.
// Sessions for different identities are handled fully in parallel.
type Store interface {
	Acquire(ctx context.Context, id models.Identity) (*models.Session, error)
	Commit(ctx context.Context, sess *models.Session) error
	Discard(id models.Identity)

	// Reap deletes sessions whose LastActivity predates the cutoff. It takes
	// each identity's lock for the instant of deletion, so it never removes a
	// session mid-turn. Failure to reap is non-fatal.
	Reap(ctx context.Context, olderThan time.Duration) (int, error)
}

// keyedMutex provides one exclusive lock per identity key. Locks are created
// on demand and dropped again once nobody holds or waits on them.
type keyedMutex struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	ch   chan struct{} // capacity 1; holding the token means holding the lock
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{entries: make(map[string]*lockEntry)}
}

func (k *keyedMutex) entry(key string) *lockEntry {
	k.mu.Lock()
	defer k.mu.Unlock()
	e, ok := k.entries[key]
	if !ok {
		e = &lockEntry{ch: make(chan struct{}, 1)}
		k.entries[key] = e
	}
	e.refs++
	return e
}

func (k *keyedMutex) release(key string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if e, ok := k.entries[key]; ok {
		e.refs--
		if e.refs == 0 {
			delete(k.entries, key)
		}
	}
}

// Lock blocks until the key's lock is held or ctx is done.
func (k *keyedMutex) Lock(ctx context.Context, key string) error {
	e := k.entry(key)
	select {
	case e.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		k.release(key)
		return ctx.Err()
	}
}

// TryLock acquires the key's lock only if it is immediately free.
func (k *keyedMutex) TryLock(key string) bool {
	e := k.entry(key)
	select {
	case e.ch <- struct{}{}:
		return true
	default:
		k.release(key)
		return false
	}
}

func (k *keyedMutex) Unlock(key string) {
	k.mu.Lock()
	e, ok := k.entries[key]
	k.mu.Unlock()
	if !ok {
		return
	}
	<-e.ch
	k.release(key)
}

// cloneSession deep-copies a session so the stored record and the working
// copy never alias each other's mutable state.
func cloneSession(s *models.Session) *models.Session {
	out := *s
	out.History = append([]models.Turn(nil), s.History...)
	out.State.OfferedSlots = append([]models.Slot(nil), s.State.OfferedSlots...)
	out.State.CollectedFields = make(map[string]string, len(s.State.CollectedFields))
	for k, v := range s.State.CollectedFields {
		out.State.CollectedFields[k] = v
	}
	return &out
}
