package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aqyl-hub/aqyl-learning-hub/internal/domain/catalog"
	"github.com/aqyl-hub/aqyl-learning-hub/internal/domain/session"
	"github.com/aqyl-hub/aqyl-learning-hub/internal/domain/shared"
	"github.com/aqyl-hub/aqyl-learning-hub/pkg/retry"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// SESSION STORE IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// SessionStore implements session.Store for PostgreSQL. Mutations use
// optimistic locking on the version column: read, apply, then update guarded
// by WHERE version = $read. A conflicting writer makes the update match zero
// rows, and the whole read-modify-write retries against the fresh record, so
// racing completions from two devices both land.
type SessionStore struct {
	conn        *Connection
	expireAfter time.Duration
	retrier     *retry.Retrier
}

// SessionStoreConfig configures the store.
type SessionStoreConfig struct {
	// ExpireAfter is the idle lifetime policy applied on access-code
	// resolution. Zero means sessions never expire.
	ExpireAfter time.Duration
}

// NewSessionStore creates a new SessionStore.
func NewSessionStore(conn *Connection, cfg SessionStoreConfig) *SessionStore {
	return &SessionStore{
		conn:        conn,
		expireAfter: cfg.ExpireAfter,
		retrier: retry.New(
			retry.WithMaxAttempts(3),
			retry.WithInitialDelay(20*time.Millisecond),
			retry.WithMaxDelay(250*time.Millisecond),
			retry.WithJitter(0.2),
		),
	}
}

const sessionColumns = `id, access_code, tenant_id, cultural_context, version, created_at, last_activity_at, worlds, progress`

// Get implements session.Store.
func (r *SessionStore) Get(ctx context.Context, id shared.SessionID) (*session.HubSession, error) {
	query := fmt.Sprintf(`SELECT %s FROM hub_sessions WHERE id = $1`, sessionColumns)

	row := r.conn.Pool().QueryRow(ctx, query, id.String())
	sess, err := scanSession(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrSessionNotFound
		}
		return nil, storeUnavailable("Get", err)
	}
	return sess, nil
}

// GetByAccessCode implements session.Store.
func (r *SessionStore) GetByAccessCode(ctx context.Context, code shared.AccessCode) (*session.HubSession, error) {
	query := fmt.Sprintf(`SELECT %s FROM hub_sessions WHERE access_code = $1`, sessionColumns)

	row := r.conn.Pool().QueryRow(ctx, query, code.Raw())
	sess, err := scanSession(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrInvalidCode
		}
		return nil, storeUnavailable("GetByAccessCode", err)
	}
	if r.expired(sess) {
		return nil, shared.ErrExpiredCode
	}
	return sess, nil
}

// Create implements session.Store.
func (r *SessionStore) Create(ctx context.Context, s *session.HubSession) error {
	query := `
		INSERT INTO hub_sessions (
			id, access_code, tenant_id, cultural_context, version,
			created_at, last_activity_at, worlds, progress
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	worldsJSON, progressJSON, err := marshalState(s)
	if err != nil {
		return err
	}

	_, err = r.conn.Pool().Exec(ctx, query,
		s.ID.String(),
		s.AccessCode.Raw(),
		s.TenantID.String(),
		s.CulturalContext.String(),
		s.Version,
		s.CreatedAt,
		s.LastActivityAt,
		worldsJSON,
		progressJSON,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.WrapError("session", "Create", shared.ErrAlreadyExists,
				"access code already bound to a session", err)
		}
		return storeUnavailable("Create", err)
	}

	return nil
}

// Mutate implements session.Store.
func (r *SessionStore) Mutate(ctx context.Context, id shared.SessionID, fn session.MutateFunc) (*session.HubSession, error) {
	var committed *session.HubSession

	err := r.retrier.Do(ctx, func(ctx context.Context) error {
		sess, err := r.Get(ctx, id)
		if err != nil {
			return retry.Permanent(err)
		}

		readVersion := sess.Version
		if err := fn(sess); err != nil {
			return retry.Permanent(err)
		}
		sess.Version = readVersion + 1

		worldsJSON, progressJSON, err := marshalState(sess)
		if err != nil {
			return retry.Permanent(err)
		}

		tag, err := r.conn.Pool().Exec(ctx, `
			UPDATE hub_sessions SET
				version = $1,
				last_activity_at = $2,
				worlds = $3,
				progress = $4
			WHERE id = $5 AND version = $6
		`,
			sess.Version,
			sess.LastActivityAt,
			worldsJSON,
			progressJSON,
			id.String(),
			readVersion,
		)
		if err != nil {
			return retry.Retryable(storeUnavailable("Mutate", err))
		}
		if tag.RowsAffected() == 0 {
			// Another device committed first; re-read and re-apply.
			return retry.Retryable(shared.ErrVersionConflict)
		}

		committed = sess
		return nil
	})
	if err != nil {
		// Conflict retries exhausted: surface as unavailable so the caller's
		// submission policy (retry with user-visible indication) kicks in.
		if errors.Is(err, shared.ErrVersionConflict) {
			return nil, shared.ErrStoreUnavailable
		}
		return nil, err
	}

	return committed, nil
}

// expired reports whether the idle lifetime policy has lapsed.
func (r *SessionStore) expired(s *session.HubSession) bool {
	if r.expireAfter <= 0 {
		return false
	}
	return time.Now().UTC().Sub(s.LastActivityAt) > r.expireAfter
}

// ══════════════════════════════════════════════════════════════════════════════
// ROW MAPPING
// ══════════════════════════════════════════════════════════════════════════════

// scanSession maps one row onto the domain entity.
func scanSession(row pgx.Row) (*session.HubSession, error) {
	var (
		s            session.HubSession
		id           string
		code         string
		tenant       string
		context      string
		worldsJSON   []byte
		progressJSON []byte
	)

	err := row.Scan(&id, &code, &tenant, &context, &s.Version,
		&s.CreatedAt, &s.LastActivityAt, &worldsJSON, &progressJSON)
	if err != nil {
		return nil, err
	}

	s.ID = shared.SessionID(id)
	s.AccessCode = shared.AccessCode(code)
	s.TenantID = shared.TenantID(tenant)
	s.CulturalContext = shared.CulturalContext(context)

	s.Worlds = make(map[catalog.WorldIndex]*session.WorldCompletionStatus)
	if len(worldsJSON) > 0 {
		if err := json.Unmarshal(worldsJSON, &s.Worlds); err != nil {
			return nil, fmt.Errorf("failed to unmarshal worlds: %w", err)
		}
	}
	if len(progressJSON) > 0 {
		if err := json.Unmarshal(progressJSON, &s.Progress); err != nil {
			return nil, fmt.Errorf("failed to unmarshal progress: %w", err)
		}
	}

	return &s, nil
}

// marshalState serializes the mutable JSONB columns.
func marshalState(s *session.HubSession) (worlds, progress []byte, err error) {
	worlds, err = json.Marshal(s.Worlds)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal worlds: %w", err)
	}
	progress, err = json.Marshal(s.Progress)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal progress: %w", err)
	}
	return worlds, progress, nil
}

// storeUnavailable wraps a backend failure into the domain taxonomy. The kind
// is the ErrStoreUnavailable sentinel every consumer matches on: the
// completion retrier classifies it retryable, the synchronizer breaker counts
// it, and the HTTP layer maps it to 503 with Retry-After.
func storeUnavailable(op string, err error) error {
	return shared.WrapError("session", op, shared.ErrStoreUnavailable,
		"session store backend error", err)
}
