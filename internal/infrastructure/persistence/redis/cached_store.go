package redis

import (
	"context"
	"encoding/hex"
	"errors"
	"log/slog"
	"time"

	"github.com/aqyl-hub/aqyl-learning-hub/internal/domain/session"
	"github.com/aqyl-hub/aqyl-learning-hub/internal/domain/shared"

	"golang.org/x/crypto/blake2b"
)

// ══════════════════════════════════════════════════════════════════════════════
// CACHED STORE
// ══════════════════════════════════════════════════════════════════════════════

// sessionCache is the cache surface the decorator uses. *Cache satisfies it.
type sessionCache interface {
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	GetString(ctx context.Context, key string) (string, error)
	SetString(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// CachedStore is a read-through decorator over the durable session store.
// It keeps a short-lived snapshot per session and a fingerprinted index from
// access code to session id for the authentication hot path.
//
// Raw access codes never reach Redis: index keys are blake2b-256 fingerprints
// of the code, and snapshots are serialized without the credential, so a
// cache dump cannot be replayed into valid codes.
//
// The idle lifetime policy applies on the cached code path too; a cache hit
// must never outlive the expiry the durable store would enforce.
//
// The cache never serves conflict resolution: cache failures fall through to
// the durable store, and the snapshot TTL is far below the cross-device sync
// interval.
type CachedStore struct {
	inner  session.Store
	cache  sessionCache
	logger *slog.Logger

	// expireAfter mirrors the durable store's idle lifetime policy.
	// Zero means sessions never expire.
	expireAfter time.Duration

	// now is swappable for expiry tests.
	now func() time.Time
}

// StoreOption configures the decorator.
type StoreOption func(*CachedStore)

// WithExpiry sets the idle lifetime policy applied on code resolution.
func WithExpiry(d time.Duration) StoreOption {
	return func(s *CachedStore) {
		s.expireAfter = d
	}
}

// WithClock replaces the time source. Test hook.
func WithClock(now func() time.Time) StoreOption {
	return func(s *CachedStore) {
		s.now = now
	}
}

// NewCachedStore creates the decorator.
func NewCachedStore(inner session.Store, cache *Cache, logger *slog.Logger, opts ...StoreOption) *CachedStore {
	if logger == nil {
		logger = slog.Default()
	}
	s := &CachedStore{
		inner:  inner,
		cache:  cache,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get implements session.Store.
func (s *CachedStore) Get(ctx context.Context, id shared.SessionID) (*session.HubSession, error) {
	var cached session.HubSession
	err := s.cache.Get(ctx, sessionKey(id), &cached)
	if err == nil {
		return &cached, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		s.logger.Warn("session cache read failed, falling through", "error", err)
	}

	sess, err := s.inner.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.fill(ctx, sess)
	return sess, nil
}

// GetByAccessCode implements session.Store.
func (s *CachedStore) GetByAccessCode(ctx context.Context, code shared.AccessCode) (*session.HubSession, error) {
	if id, err := s.cache.GetString(ctx, codeKey(code)); err == nil {
		sess, err := s.Get(ctx, shared.SessionID(id))
		if err == nil {
			if s.expired(sess) {
				return nil, shared.ErrExpiredCode
			}
			return sess, nil
		}
		// The index pointed at a session the store no longer serves;
		// drop it and resolve from the source of truth.
		_ = s.cache.Delete(ctx, codeKey(code))
	}

	sess, err := s.inner.GetByAccessCode(ctx, code)
	if err != nil {
		return nil, err
	}

	if cerr := s.cache.SetString(ctx, codeKey(code), sess.ID.String(), TTLCodeIndex); cerr != nil {
		s.logger.Warn("access code index write failed", "error", cerr)
	}
	s.fill(ctx, sess)
	return sess, nil
}

// Create implements session.Store.
func (s *CachedStore) Create(ctx context.Context, sess *session.HubSession) error {
	if err := s.inner.Create(ctx, sess); err != nil {
		return err
	}
	if err := s.cache.SetString(ctx, codeKey(sess.AccessCode), sess.ID.String(), TTLCodeIndex); err != nil {
		s.logger.Warn("access code index write failed", "error", err)
	}
	s.fill(ctx, sess)
	return nil
}

// Mutate implements session.Store. The snapshot is written through after
// commit so subsequent reads on this device see the committed copy.
func (s *CachedStore) Mutate(ctx context.Context, id shared.SessionID, fn session.MutateFunc) (*session.HubSession, error) {
	sess, err := s.inner.Mutate(ctx, id, fn)
	if err != nil {
		if shared.IsRetryable(err) {
			// Snapshot may be behind a commit we cannot confirm; drop it.
			_ = s.cache.Delete(ctx, sessionKey(id))
		}
		return nil, err
	}
	s.fill(ctx, sess)
	return sess, nil
}

// TouchLiveness refreshes the liveness marker for a session. Called by the
// authenticator on every success; external cleanup policies consume the key.
func (s *CachedStore) TouchLiveness(ctx context.Context, id shared.SessionID) error {
	return s.cache.SetString(ctx, livenessKey(id), "1", TTLLiveness)
}

// fill writes the snapshot best-effort; cache failure is never an error.
func (s *CachedStore) fill(ctx context.Context, sess *session.HubSession) {
	if err := s.cache.Set(ctx, sessionKey(sess.ID), sess, TTLSessionSnapshot); err != nil {
		s.logger.Warn("session snapshot write failed", "session_id", sess.ID.String(), "error", err)
	}
}

// expired reports whether the idle lifetime policy has lapsed.
func (s *CachedStore) expired(sess *session.HubSession) bool {
	if s.expireAfter <= 0 {
		return false
	}
	return s.now().Sub(sess.LastActivityAt) > s.expireAfter
}

// ══════════════════════════════════════════════════════════════════════════════
// KEYS
// ══════════════════════════════════════════════════════════════════════════════

func sessionKey(id shared.SessionID) string {
	return PrefixSession + id.String()
}

func livenessKey(id shared.SessionID) string {
	return PrefixLiveness + id.String()
}

// codeKey derives the index key from a blake2b-256 fingerprint of the code.
func codeKey(code shared.AccessCode) string {
	sum := blake2b.Sum256([]byte(code.Raw()))
	return PrefixCode + hex.EncodeToString(sum[:])
}
