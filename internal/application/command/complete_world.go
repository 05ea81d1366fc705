package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aqyl-hub/aqyl-learning-hub/internal/domain/achievement"
	"github.com/aqyl-hub/aqyl-learning-hub/internal/domain/catalog"
	"github.com/aqyl-hub/aqyl-learning-hub/internal/domain/session"
	"github.com/aqyl-hub/aqyl-learning-hub/internal/domain/shared"
	"github.com/aqyl-hub/aqyl-learning-hub/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// COMPLETE WORLD COMMAND
// Records a finished attempt, applies the max-retention replay policy,
// recomputes downstream unlocks and evaluates achievements, all inside one
// atomic store mutation. Transient store failures are retried with backoff;
// the submission is designed so a duplicate delivery changes nothing.
// ══════════════════════════════════════════════════════════════════════════════

// CompleteWorldCommand contains the data for one completion submission.
type CompleteWorldCommand struct {
	// SessionID identifies the hub session.
	SessionID string

	// WorldIndex is the 1-based completed world.
	WorldIndex int

	// Score earned by this attempt.
	Score int

	// CompletionPercentage of this attempt, 0-100.
	CompletionPercentage int

	// TimeSpentMs is wall time spent in this attempt.
	TimeSpentMs int64

	// Achievements are world-local achievement ids earned in this attempt.
	Achievements []string

	// Competencies are competency tags demonstrated in this attempt.
	Competencies []string

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c CompleteWorldCommand) Validate() error {
	if c.SessionID == "" {
		return errors.New("complete_world: session_id is required")
	}
	if !catalog.WorldIndex(c.WorldIndex).IsValid() {
		return fmt.Errorf("complete_world: invalid world index: %d", c.WorldIndex)
	}
	result := c.toResult()
	if err := result.Validate(); err != nil {
		return fmt.Errorf("complete_world: %w", err)
	}
	return nil
}

func (c CompleteWorldCommand) toResult() session.WorldResult {
	return session.WorldResult{
		Score:                c.Score,
		CompletionPercentage: c.CompletionPercentage,
		TimeSpentMs:          c.TimeSpentMs,
		Achievements:         c.Achievements,
		Competencies:         c.Competencies,
	}
}

// CompleteWorldResult contains the result of a completion submission.
type CompleteWorldResult struct {
	// Outcome describes the committed completion.
	Outcome *session.CompletionOutcome

	// NewAchievements lists hub achievement ids unlocked by this submission.
	NewAchievements []string

	// Session is a snapshot of the session after the command.
	Session *session.HubSession
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// CompleteWorldHandler handles the CompleteWorldCommand.
type CompleteWorldHandler struct {
	store     session.Store
	catalog   *catalog.Catalog
	engine    *achievement.Engine
	publisher shared.EventPublisher
	retrier   *retry.Retrier
	logger    *slog.Logger
}

// NewCompleteWorldHandler creates a new CompleteWorldHandler.
func NewCompleteWorldHandler(
	store session.Store,
	cat *catalog.Catalog,
	engine *achievement.Engine,
	publisher shared.EventPublisher,
	logger *slog.Logger,
) *CompleteWorldHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CompleteWorldHandler{
		store:     store,
		catalog:   cat,
		engine:    engine,
		publisher: publisher,
		retrier:   retry.CompletionRetrier(),
		logger:    logger,
	}
}

// Handle executes the complete world command.
func (h *CompleteWorldHandler) Handle(ctx context.Context, cmd CompleteWorldCommand) (*CompleteWorldResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("session", "CompleteWorld", shared.ErrValidation,
			fmt.Sprintf("validation failed: %v", err), err)
	}

	id, err := shared.NewSessionID(cmd.SessionID)
	if err != nil {
		return nil, shared.ErrSessionNotFound
	}
	index := catalog.WorldIndex(cmd.WorldIndex)
	result := cmd.toResult()

	var (
		outcome  *session.CompletionOutcome
		unlocked []string
		updated  *session.HubSession
	)

	err = h.retrier.Do(ctx, func(ctx context.Context) error {
		// Reset per attempt: a retried mutation recomputes everything against
		// the freshest record.
		outcome, unlocked = nil, nil

		committed, mutateErr := h.store.Mutate(ctx, id, func(s *session.HubSession) error {
			o, completeErr := s.CompleteWorld(h.catalog, index, result)
			if completeErr != nil {
				return retry.Permanent(completeErr)
			}
			outcome = o

			unlocked = h.engine.Evaluate(s)
			s.RecordAchievements(unlocked)
			return nil
		})
		if mutateErr != nil {
			if errors.Is(mutateErr, shared.ErrStoreUnavailable) {
				return retry.Retryable(mutateErr)
			}
			return retry.Permanent(mutateErr)
		}
		updated = committed
		return nil
	})
	if err != nil {
		return nil, unwrapRetry(err)
	}

	h.publishCompletion(id, outcome, unlocked, updated)

	return &CompleteWorldResult{
		Outcome:         outcome,
		NewAchievements: unlocked,
		Session:         updated,
	}, nil
}

// publishCompletion emits the completion event fan-out. Failures are logged
// only: analytics must never block or fail a submission.
func (h *CompleteWorldHandler) publishCompletion(
	id shared.SessionID,
	outcome *session.CompletionOutcome,
	unlocked []string,
	sess *session.HubSession,
) {
	if h.publisher == nil {
		return
	}

	events := make([]shared.Event, 0, 1+len(outcome.NewlyAvailable)+len(unlocked))
	events = append(events, shared.NewWorldCompletedEvent(
		id,
		outcome.WorldIndex.Int(),
		outcome.SubmittedScore,
		outcome.RetainedScore,
		sess.Worlds[outcome.WorldIndex].TimeSpentMs,
		outcome.Progress.TotalScore,
	))
	for _, idx := range outcome.NewlyAvailable {
		events = append(events, shared.NewWorldUnlockedEvent(id, idx.Int()))
	}
	for _, achievementID := range unlocked {
		events = append(events, shared.NewAchievementUnlockedEvent(id, achievementID))
	}

	for _, event := range events {
		if err := h.publisher.Publish(event); err != nil {
			h.logger.Warn("event publish failed", "event_type", event.EventType(), "error", err)
		}
	}
}

// unwrapRetry strips the retry wrapper so callers see the domain error.
func unwrapRetry(err error) error {
	var retryable *retry.RetryableError
	if errors.As(err, &retryable) {
		return retryable.Unwrap()
	}
	var permanent *retry.PermanentError
	if errors.As(err, &permanent) {
		return permanent.Unwrap()
	}
	return err
}
