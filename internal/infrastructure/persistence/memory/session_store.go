// Package memory implements an in-memory session store. It backs unit tests
// and single-process development runs; production deployments use the
// PostgreSQL store. The atomicity contract is the same: mutations serialize
// behind one lock, so concurrent devices observe the same convergent record.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/aqyl-hub/aqyl-learning-hub/internal/domain/session"
	"github.com/aqyl-hub/aqyl-learning-hub/internal/domain/shared"
)

// SessionStore implements session.Store with process-local state.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[shared.SessionID]*session.HubSession
	byCode   map[shared.AccessCode]shared.SessionID

	// expireAfter is the idle lifetime policy: a session whose LastActivityAt
	// is older than this is treated as expired on code resolution.
	// Zero means sessions never expire.
	expireAfter time.Duration

	// now is swappable for expiry tests.
	now func() time.Time
}

// Option configures the store.
type Option func(*SessionStore)

// WithExpiry sets the idle lifetime policy.
func WithExpiry(d time.Duration) Option {
	return func(s *SessionStore) {
		s.expireAfter = d
	}
}

// WithClock replaces the time source. Test hook.
func WithClock(now func() time.Time) Option {
	return func(s *SessionStore) {
		s.now = now
	}
}

// NewSessionStore creates an empty in-memory store.
func NewSessionStore(opts ...Option) *SessionStore {
	s := &SessionStore{
		sessions: make(map[shared.SessionID]*session.HubSession),
		byCode:   make(map[shared.AccessCode]shared.SessionID),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get implements session.Store.
func (s *SessionStore) Get(ctx context.Context, id shared.SessionID) (*session.HubSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, shared.ErrSessionNotFound
	}
	return sess.Clone(), nil
}

// GetByAccessCode implements session.Store.
func (s *SessionStore) GetByAccessCode(ctx context.Context, code shared.AccessCode) (*session.HubSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byCode[code]
	if !ok {
		return nil, shared.ErrInvalidCode
	}
	sess := s.sessions[id]
	if sess == nil {
		return nil, shared.ErrInvalidCode
	}
	if s.expired(sess) {
		return nil, shared.ErrExpiredCode
	}
	return sess.Clone(), nil
}

// Create implements session.Store.
func (s *SessionStore) Create(ctx context.Context, sess *session.HubSession) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byCode[sess.AccessCode]; exists {
		return shared.WrapError("session", "Create", shared.ErrAlreadyExists,
			"access code already bound to a session", nil)
	}
	if _, exists := s.sessions[sess.ID]; exists {
		return shared.WrapError("session", "Create", shared.ErrAlreadyExists,
			"session id already exists", nil)
	}

	s.sessions[sess.ID] = sess.Clone()
	s.byCode[sess.AccessCode] = sess.ID
	return nil
}

// Mutate implements session.Store. The whole read-modify-write runs under the
// write lock, which is what makes racing completions from two devices land
// one after the other instead of overwriting each other.
func (s *SessionStore) Mutate(ctx context.Context, id shared.SessionID, fn session.MutateFunc) (*session.HubSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.sessions[id]
	if !ok {
		return nil, shared.ErrSessionNotFound
	}

	next := current.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	next.Version = current.Version + 1

	s.sessions[id] = next
	return next.Clone(), nil
}

// expired reports whether the idle lifetime policy has lapsed.
func (s *SessionStore) expired(sess *session.HubSession) bool {
	if s.expireAfter <= 0 {
		return false
	}
	return s.now().Sub(sess.LastActivityAt) > s.expireAfter
}

// Len returns the number of stored sessions. Test helper.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
