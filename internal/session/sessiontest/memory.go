// Package sessiontest provides an in-memory session store for tests.
package sessiontest

import (
	"context"
	"errors"
	"sync"
	"time"

	"youthportal/api/internal/session"
)

var ErrStoreDown = errors.New("store down")

var _ session.Store = (*MemoryStore)(nil)

// MemoryStore drops records once their TTL has elapsed on its clock, like
// Redis does. Setting Down makes every call fail like a disconnected backend;
// FailDeletes fails only Delete and DeleteByUser.
type MemoryStore struct {
	mu        sync.Mutex
	now       func() time.Time
	sessions  map[string]session.Session
	ttls      map[string]time.Duration
	deadlines map[string]time.Time

	Down        bool
	FailDeletes bool
}

// NewMemoryStore returns a store that expires records against clock, or
// against wall time when clock is nil.
func NewMemoryStore(clock *Clock) *MemoryStore {
	now := time.Now
	if clock != nil {
		now = clock.Now
	}
	return &MemoryStore{
		now:       now,
		sessions:  map[string]session.Session{},
		ttls:      map[string]time.Duration{},
		deadlines: map[string]time.Time{},
	}
}

func (s *MemoryStore) Save(_ context.Context, sess session.Session, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Down {
		return ErrStoreDown
	}
	s.sessions[sess.ID] = sess
	s.ttls[sess.ID] = ttl
	if ttl > 0 {
		s.deadlines[sess.ID] = s.now().Add(ttl)
	} else {
		delete(s.deadlines, sess.ID)
	}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Down {
		return session.Session{}, ErrStoreDown
	}
	s.evictLocked()
	sess, ok := s.sessions[id]
	if !ok {
		return session.Session{}, session.ErrNotFound
	}
	return sess, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Down || s.FailDeletes {
		return ErrStoreDown
	}
	s.removeLocked(id)
	return nil
}

func (s *MemoryStore) DeleteByUser(_ context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Down || s.FailDeletes {
		return 0, ErrStoreDown
	}
	s.evictLocked()
	n := 0
	for id, sess := range s.sessions {
		if sess.UserID == userID {
			s.removeLocked(id)
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) Ping(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Down {
		return ErrStoreDown
	}
	return nil
}

// Put stores a record directly with no TTL, bypassing the manager.
func (s *MemoryStore) Put(sess session.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
	delete(s.deadlines, sess.ID)
}

func (s *MemoryStore) Has(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictLocked()
	_, ok := s.sessions[id]
	return ok
}

func (s *MemoryStore) TTL(id string) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ttls[id]
}

func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictLocked()
	return len(s.sessions)
}

func (s *MemoryStore) evictLocked() {
	now := s.now()
	for id, deadline := range s.deadlines {
		if !now.Before(deadline) {
			s.removeLocked(id)
		}
	}
}

func (s *MemoryStore) removeLocked(id string) {
	delete(s.sessions, id)
	delete(s.ttls, id)
	delete(s.deadlines, id)
}

// Clock is a manually advanced time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(start time.Time) *Clock { return &Clock{now: start} }

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
