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
// START WORLD COMMAND
// Transitions an available world to in_progress. Starting a world that is
// already in progress is a no-op: the second device simply joins the attempt.
// ══════════════════════════════════════════════════════════════════════════════

// StartWorldCommand contains the data to start a world.
type StartWorldCommand struct {
	// SessionID identifies the hub session.
	SessionID string

	// WorldIndex is the 1-based world to start.
	WorldIndex int

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c StartWorldCommand) Validate() error {
	if c.SessionID == "" {
		return errors.New("start_world: session_id is required")
	}
	if !catalog.WorldIndex(c.WorldIndex).IsValid() {
		return fmt.Errorf("start_world: invalid world index: %d", c.WorldIndex)
	}
	return nil
}

// StartWorldResult contains the result of starting a world.
type StartWorldResult struct {
	// WorldIndex is the started world.
	WorldIndex catalog.WorldIndex

	// Status is the world status after the command.
	Status session.WorldStatus

	// Session is a snapshot of the session after the command.
	Session *session.HubSession
}

// StartWorldHandler handles the StartWorldCommand.
type StartWorldHandler struct {
	store     session.Store
	publisher shared.EventPublisher
	logger    *slog.Logger
}

// NewStartWorldHandler creates a new StartWorldHandler.
func NewStartWorldHandler(store session.Store, publisher shared.EventPublisher, logger *slog.Logger) *StartWorldHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &StartWorldHandler{store: store, publisher: publisher, logger: logger}
}

// Handle executes the start world command.
func (h *StartWorldHandler) Handle(ctx context.Context, cmd StartWorldCommand) (*StartWorldResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("session", "StartWorld", shared.ErrValidation,
			fmt.Sprintf("validation failed: %v", err), err)
	}

	id, err := shared.NewSessionID(cmd.SessionID)
	if err != nil {
		return nil, shared.ErrSessionNotFound
	}
	index := catalog.WorldIndex(cmd.WorldIndex)

	updated, err := h.store.Mutate(ctx, id, func(s *session.HubSession) error {
		return s.StartWorld(index)
	})
	if err != nil {
		return nil, err
	}

	if h.publisher != nil {
		if pubErr := h.publisher.Publish(shared.NewWorldStartedEvent(id, index.Int(), false)); pubErr != nil {
			h.logger.Warn("event publish failed", "event_type", shared.EventWorldStarted, "error", pubErr)
		}
	}

	w, err := updated.World(index)
	if err != nil {
		return nil, err
	}

	return &StartWorldResult{
		WorldIndex: index,
		Status:     w.Status,
		Session:    updated,
	}, nil
}
