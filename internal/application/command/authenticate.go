// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/aqyl-hub/aqyl-learning-hub/internal/domain/catalog"
	"github.com/aqyl-hub/aqyl-learning-hub/internal/domain/session"
	"github.com/aqyl-hub/aqyl-learning-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// AUTHENTICATE COMMAND
// Resolves an opaque access code to a hub session. A code seen for the first
// time creates the session; a known code resumes it. The code is the only
// credential, so authentication is also enrollment.
// ══════════════════════════════════════════════════════════════════════════════

// AuthenticateCommand contains the data to authenticate an access code.
type AuthenticateCommand struct {
	// AccessCode is the opaque credential presented by the device.
	AccessCode string

	// TenantID identifies the owning organization for new sessions.
	TenantID string

	// CulturalContext selects theming for new sessions. Optional; defaults
	// to kazakh.
	CulturalContext string

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c AuthenticateCommand) Validate() error {
	if c.AccessCode == "" {
		return errors.New("authenticate: access_code is required")
	}
	if c.TenantID == "" {
		return errors.New("authenticate: tenant_id is required")
	}
	return nil
}

// AuthenticateResult contains the result of an authentication.
type AuthenticateResult struct {
	// Session is a snapshot of the authenticated session.
	Session *session.HubSession

	// IsNewSession indicates whether this authentication created the session.
	IsNewSession bool
}

// LivenessRecorder marks a session as recently active. Implemented by the
// Redis cache; optional, a nil recorder is skipped.
type LivenessRecorder interface {
	TouchLiveness(ctx context.Context, id shared.SessionID) error
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// AuthenticateHandler handles the AuthenticateCommand.
type AuthenticateHandler struct {
	store     session.Store
	catalog   *catalog.Catalog
	publisher shared.EventPublisher
	liveness  LivenessRecorder
	logger    *slog.Logger
}

// NewAuthenticateHandler creates a new AuthenticateHandler.
func NewAuthenticateHandler(
	store session.Store,
	cat *catalog.Catalog,
	publisher shared.EventPublisher,
	liveness LivenessRecorder,
	logger *slog.Logger,
) *AuthenticateHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthenticateHandler{
		store:     store,
		catalog:   cat,
		publisher: publisher,
		liveness:  liveness,
		logger:    logger,
	}
}

// Handle executes the authenticate command.
func (h *AuthenticateHandler) Handle(ctx context.Context, cmd AuthenticateCommand) (*AuthenticateResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("session", "Authenticate", shared.ErrValidation,
			fmt.Sprintf("validation failed: %v", err), err)
	}

	code, err := shared.NewAccessCode(cmd.AccessCode)
	if err != nil {
		return nil, shared.ErrInvalidCode
	}

	sess, err := h.store.GetByAccessCode(ctx, code)
	switch {
	case err == nil:
		return h.resume(ctx, sess)
	case errors.Is(err, shared.ErrInvalidCode):
		return h.enroll(ctx, cmd, code)
	default:
		// Expired codes and store failures surface as-is.
		return nil, err
	}
}

// resume touches an existing session and returns it.
func (h *AuthenticateHandler) resume(ctx context.Context, sess *session.HubSession) (*AuthenticateResult, error) {
	updated, err := h.store.Mutate(ctx, sess.ID, func(s *session.HubSession) error {
		s.Touch()
		return nil
	})
	if err != nil {
		return nil, err
	}

	h.touchLiveness(ctx, updated.ID)
	h.publish(shared.NewSessionAuthenticatedEvent(updated.ID, false))

	return &AuthenticateResult{Session: updated, IsNewSession: false}, nil
}

// enroll creates a session for a code seen for the first time.
func (h *AuthenticateHandler) enroll(ctx context.Context, cmd AuthenticateCommand, code shared.AccessCode) (*AuthenticateResult, error) {
	culturalContext := shared.CulturalContext(cmd.CulturalContext)
	if culturalContext == "" {
		culturalContext = shared.ContextKazakh
	}

	sess, err := session.NewHubSession(session.NewSessionParams{
		ID:              shared.SessionID(uuid.New().String()),
		AccessCode:      code,
		TenantID:        shared.TenantID(cmd.TenantID),
		CulturalContext: culturalContext,
	}, h.catalog)
	if err != nil {
		return nil, err
	}

	if err := h.store.Create(ctx, sess); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			// Two devices raced the same fresh code. The loser resumes the
			// winner's session.
			existing, getErr := h.store.GetByAccessCode(ctx, code)
			if getErr != nil {
				return nil, getErr
			}
			h.logger.Debug("enrollment race resolved", "session_id", existing.ID)
			return h.resume(ctx, existing)
		}
		return nil, err
	}

	h.touchLiveness(ctx, sess.ID)
	h.publish(shared.NewSessionCreatedEvent(sess.ID, sess.TenantID, sess.CulturalContext))
	h.publish(shared.NewSessionAuthenticatedEvent(sess.ID, true))

	h.logger.Info("session enrolled",
		"session_id", sess.ID,
		"tenant_id", sess.TenantID,
		"cultural_context", sess.CulturalContext,
	)

	return &AuthenticateResult{Session: sess, IsNewSession: true}, nil
}

func (h *AuthenticateHandler) touchLiveness(ctx context.Context, id shared.SessionID) {
	if h.liveness == nil {
		return
	}
	if err := h.liveness.TouchLiveness(ctx, id); err != nil {
		h.logger.Warn("liveness touch failed", "session_id", id, "error", err)
	}
}

func (h *AuthenticateHandler) publish(event shared.Event) {
	if h.publisher == nil {
		return
	}
	if err := h.publisher.Publish(event); err != nil {
		h.logger.Warn("event publish failed", "event_type", event.EventType(), "error", err)
	}
}
