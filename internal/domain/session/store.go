package session

import (
	"context"

	"github.com/aqyl-hub/aqyl-learning-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// STORE INTERFACE
// The store exclusively owns the durable session record and is the single
// serialization point across devices. Implementations live in
// infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// MutateFunc computes the next state of a session in place. It runs inside
// the store's atomic read-modify-write; returning an error aborts the mutation
// without persisting anything.
type MutateFunc func(s *HubSession) error

// Store is the durable keyed storage for hub session records.
type Store interface {
	// Get returns the session by identifier.
	// Returns shared.ErrSessionNotFound if no such session exists.
	Get(ctx context.Context, id shared.SessionID) (*HubSession, error)

	// GetByAccessCode resolves an access code to its session.
	// Returns shared.ErrInvalidCode if the code resolves to nothing and
	// shared.ErrExpiredCode if the session's lifetime policy has lapsed.
	GetByAccessCode(ctx context.Context, code shared.AccessCode) (*HubSession, error)

	// Create persists a fresh session bound to the given access code.
	// Returns shared.ErrAlreadyExists if the code is already bound.
	Create(ctx context.Context, s *HubSession) error

	// Mutate applies fn to the current authoritative record atomically and
	// increments the version counter on success. Concurrent mutations of the
	// same session serialize here; implementations must guarantee that two
	// racing CompleteWorld submissions both land.
	// Returns the committed session, or shared.ErrStoreUnavailable when the
	// backend cannot serve the write.
	Mutate(ctx context.Context, id shared.SessionID, fn MutateFunc) (*HubSession, error)
}
