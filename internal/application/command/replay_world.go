package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aqyl-hub/aqyl-learning-hub/internal/domain/catalog"
	"github.com/aqyl-hub/aqyl-learning-hub/internal/domain/session"
	"github.com/aqyl-hub/aqyl-learning-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPLAY WORLD COMMAND
// Re-enters a completed world. The retained score, percentage and unlocked
// achievements survive the replay; only a better attempt can improve them.
// ══════════════════════════════════════════════════════════════════════════════

// ReplayWorldCommand contains the data to replay a world.
type ReplayWorldCommand struct {
	// SessionID identifies the hub session.
	SessionID string

	// WorldIndex is the 1-based world to replay.
	WorldIndex int

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c ReplayWorldCommand) Validate() error {
	if c.SessionID == "" {
		return errors.New("replay_world: session_id is required")
	}
	if !catalog.WorldIndex(c.WorldIndex).IsValid() {
		return fmt.Errorf("replay_world: invalid world index: %d", c.WorldIndex)
	}
	return nil
}

// ReplayWorldResult contains the result of replaying a world.
type ReplayWorldResult struct {
	// WorldIndex is the replayed world.
	WorldIndex catalog.WorldIndex

	// RetainedScore is the best score kept from prior attempts.
	RetainedScore int

	// Session is a snapshot of the session after the command.
	Session *session.HubSession
}

// ReplayWorldHandler handles the ReplayWorldCommand.
type ReplayWorldHandler struct {
	store     session.Store
	publisher shared.EventPublisher
	logger    *slog.Logger
}

// NewReplayWorldHandler creates a new ReplayWorldHandler.
func NewReplayWorldHandler(store session.Store, publisher shared.EventPublisher, logger *slog.Logger) *ReplayWorldHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReplayWorldHandler{store: store, publisher: publisher, logger: logger}
}

// Handle executes the replay world command.
func (h *ReplayWorldHandler) Handle(ctx context.Context, cmd ReplayWorldCommand) (*ReplayWorldResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("session", "ReplayWorld", shared.ErrValidation,
			fmt.Sprintf("validation failed: %v", err), err)
	}

	id, err := shared.NewSessionID(cmd.SessionID)
	if err != nil {
		return nil, shared.ErrSessionNotFound
	}
	index := catalog.WorldIndex(cmd.WorldIndex)

	updated, err := h.store.Mutate(ctx, id, func(s *session.HubSession) error {
		return s.ReplayWorld(index)
	})
	if err != nil {
		return nil, err
	}

	if h.publisher != nil {
		if pubErr := h.publisher.Publish(shared.NewWorldStartedEvent(id, index.Int(), true)); pubErr != nil {
			h.logger.Warn("event publish failed", "event_type", shared.EventWorldReplayed, "error", pubErr)
		}
	}

	w, err := updated.World(index)
	if err != nil {
		return nil, err
	}

	return &ReplayWorldResult{
		WorldIndex:    index,
		RetainedScore: w.Score,
		Session:       updated,
	}, nil
}
