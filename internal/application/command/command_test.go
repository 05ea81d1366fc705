package command

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqyl-hub/aqyl-learning-hub/internal/domain/achievement"
	"github.com/aqyl-hub/aqyl-learning-hub/internal/domain/catalog"
	"github.com/aqyl-hub/aqyl-learning-hub/internal/domain/session"
	"github.com/aqyl-hub/aqyl-learning-hub/internal/domain/shared"
	"github.com/aqyl-hub/aqyl-learning-hub/internal/infrastructure/persistence/memory"
)

// recordingPublisher captures published events for assertions.
type recordingPublisher struct {
	mu     sync.Mutex
	events []shared.Event
}

func (p *recordingPublisher) Publish(event shared.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) byType(eventType shared.EventType) []shared.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []shared.Event
	for _, e := range p.events {
		if e.EventType() == eventType {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	store        *memory.SessionStore
	publisher    *recordingPublisher
	authenticate *AuthenticateHandler
	start        *StartWorldHandler
	complete     *CompleteWorldHandler
	replay       *ReplayWorldHandler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.NewSessionStore()
	publisher := &recordingPublisher{}
	cat := catalog.Default()
	engine, err := achievement.NewEngine(achievement.BuiltinContent{})
	require.NoError(t, err)
	logger := slog.Default()

	return &fixture{
		store:        store,
		publisher:    publisher,
		authenticate: NewAuthenticateHandler(store, cat, publisher, nil, logger),
		start:        NewStartWorldHandler(store, publisher, logger),
		complete:     NewCompleteWorldHandler(store, cat, engine, publisher, logger),
		replay:       NewReplayWorldHandler(store, publisher, logger),
	}
}

func (f *fixture) newSession(t *testing.T, code string) string {
	t.Helper()
	result, err := f.authenticate.Handle(context.Background(), AuthenticateCommand{
		AccessCode: code,
		TenantID:   "school-aktobe-2",
	})
	require.NoError(t, err)
	require.True(t, result.IsNewSession)
	return result.Session.ID.String()
}

// ══════════════════════════════════════════════════════════════════════════════
// AUTHENTICATE
// ══════════════════════════════════════════════════════════════════════════════

func TestAuthenticateCreatesOnFirstUse(t *testing.T) {
	f := newFixture(t)

	result, err := f.authenticate.Handle(context.Background(), AuthenticateCommand{
		AccessCode: "kok-tobe-2026",
		TenantID:   "school-almaty-15",
	})
	require.NoError(t, err)

	assert.True(t, result.IsNewSession)
	assert.Equal(t, shared.ContextKazakh, result.Session.CulturalContext)
	assert.Len(t, f.publisher.byType(shared.EventSessionCreated), 1)
}

func TestAuthenticateResumesKnownCode(t *testing.T) {
	f := newFixture(t)

	first, err := f.authenticate.Handle(context.Background(), AuthenticateCommand{
		AccessCode: "kok-tobe-2026",
		TenantID:   "school-almaty-15",
	})
	require.NoError(t, err)

	second, err := f.authenticate.Handle(context.Background(), AuthenticateCommand{
		AccessCode: "kok-tobe-2026",
		TenantID:   "school-almaty-15",
	})
	require.NoError(t, err)

	assert.False(t, second.IsNewSession)
	assert.Equal(t, first.Session.ID, second.Session.ID)
	// Resume bumps the version through the activity touch.
	assert.Greater(t, second.Session.Version, first.Session.Version)
	assert.Len(t, f.publisher.byType(shared.EventSessionCreated), 1)
}

func TestAuthenticateConcurrentSameCode(t *testing.T) {
	f := newFixture(t)

	// Many devices authenticate the same fresh code at once; exactly one
	// session must come out of it.
	const devices = 8
	ids := make([]string, devices)
	var wg sync.WaitGroup
	for i := 0; i < devices; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := f.authenticate.Handle(context.Background(), AuthenticateCommand{
				AccessCode: "shared-code-race",
				TenantID:   "school-almaty-15",
			})
			if assert.NoError(t, err) {
				ids[i] = result.Session.ID.String()
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids[1:] {
		assert.Equal(t, ids[0], id)
	}
	assert.Equal(t, 1, f.store.Len())
}

func TestAuthenticateRejectsUnusableCode(t *testing.T) {
	f := newFixture(t)

	_, err := f.authenticate.Handle(context.Background(), AuthenticateCommand{
		AccessCode: "x",
		TenantID:   "school-almaty-15",
	})
	assert.ErrorIs(t, err, shared.ErrInvalidCode)
}

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESSION FLOW
// ══════════════════════════════════════════════════════════════════════════════

func TestStartWorldFlow(t *testing.T) {
	f := newFixture(t)
	id := f.newSession(t, "flow-code-1")

	result, err := f.start.Handle(context.Background(), StartWorldCommand{SessionID: id, WorldIndex: 1})
	require.NoError(t, err)
	assert.Equal(t, "in_progress", string(result.Status))

	// Locked world refused.
	_, err = f.start.Handle(context.Background(), StartWorldCommand{SessionID: id, WorldIndex: 4})
	assert.ErrorIs(t, err, shared.ErrWorldLocked)
}

func TestCompleteWorldFlow(t *testing.T) {
	f := newFixture(t)
	id := f.newSession(t, "flow-code-2")

	_, err := f.start.Handle(context.Background(), StartWorldCommand{SessionID: id, WorldIndex: 1})
	require.NoError(t, err)

	result, err := f.complete.Handle(context.Background(), CompleteWorldCommand{
		SessionID:            id,
		WorldIndex:           1,
		Score:                120,
		CompletionPercentage: 100,
		TimeSpentMs:          45_000,
	})
	require.NoError(t, err)

	assert.Equal(t, 120, result.Outcome.RetainedScore)
	assert.Equal(t, []catalog.WorldIndex{2, 3}, result.Outcome.NewlyAvailable)
	assert.Contains(t, result.NewAchievements, "first_world")

	assert.Len(t, f.publisher.byType(shared.EventWorldCompleted), 1)
	assert.Len(t, f.publisher.byType(shared.EventWorldUnlocked), 2)
	assert.Len(t, f.publisher.byType(shared.EventAchievementUnlocked), 1)
}

func TestCompleteWorldAchievementsEmittedOnce(t *testing.T) {
	f := newFixture(t)
	id := f.newSession(t, "flow-code-3")

	_, err := f.start.Handle(context.Background(), StartWorldCommand{SessionID: id, WorldIndex: 1})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = f.complete.Handle(context.Background(), CompleteWorldCommand{
			SessionID:            id,
			WorldIndex:           1,
			Score:                50,
			CompletionPercentage: 100,
		})
		require.NoError(t, err)
	}

	// Duplicate submissions never re-emit the same achievement.
	assert.Len(t, f.publisher.byType(shared.EventAchievementUnlocked), 1)
}

// outageStore wraps the in-memory store and fails the first N mutations the
// way the durable store reports a backend outage.
type outageStore struct {
	session.Store

	mu        sync.Mutex
	failures  int
	mutations int
}

func (s *outageStore) Mutate(ctx context.Context, id shared.SessionID, fn session.MutateFunc) (*session.HubSession, error) {
	s.mu.Lock()
	s.mutations++
	fail := s.failures > 0
	if fail {
		s.failures--
	}
	s.mu.Unlock()

	if fail {
		return nil, shared.WrapError("session", "Mutate", shared.ErrStoreUnavailable,
			"session store backend error", errors.New("connection refused"))
	}
	return s.Store.Mutate(ctx, id, fn)
}

func TestCompleteWorldRetriesStoreOutage(t *testing.T) {
	f := newFixture(t)
	id := f.newSession(t, "flow-code-outage")

	_, err := f.start.Handle(context.Background(), StartWorldCommand{SessionID: id, WorldIndex: 1})
	require.NoError(t, err)

	flaky := &outageStore{Store: f.store, failures: 1}
	cat := catalog.Default()
	engine, err := achievement.NewEngine(achievement.BuiltinContent{})
	require.NoError(t, err)
	complete := NewCompleteWorldHandler(flaky, cat, engine, f.publisher, slog.Default())

	// A wrapped backend failure still matches the unavailability sentinel, so
	// the submission is retried instead of failing on the first attempt.
	result, err := complete.Handle(context.Background(), CompleteWorldCommand{
		SessionID:            id,
		WorldIndex:           1,
		Score:                70,
		CompletionPercentage: 100,
	})
	require.NoError(t, err)
	assert.Equal(t, 70, result.Outcome.RetainedScore)
	assert.GreaterOrEqual(t, flaky.mutations, 2)
}

func TestCompleteWorldSurfacesExhaustedOutage(t *testing.T) {
	f := newFixture(t)
	id := f.newSession(t, "flow-code-outage-2")

	_, err := f.start.Handle(context.Background(), StartWorldCommand{SessionID: id, WorldIndex: 1})
	require.NoError(t, err)

	flaky := &outageStore{Store: f.store, failures: 100}
	cat := catalog.Default()
	engine, err := achievement.NewEngine(achievement.BuiltinContent{})
	require.NoError(t, err)
	complete := NewCompleteWorldHandler(flaky, cat, engine, f.publisher, slog.Default())

	_, err = complete.Handle(context.Background(), CompleteWorldCommand{
		SessionID:            id,
		WorldIndex:           1,
		Score:                70,
		CompletionPercentage: 100,
	})
	assert.ErrorIs(t, err, shared.ErrStoreUnavailable)
}

func TestCompleteWorldValidation(t *testing.T) {
	f := newFixture(t)
	id := f.newSession(t, "flow-code-4")

	_, err := f.complete.Handle(context.Background(), CompleteWorldCommand{
		SessionID:            id,
		WorldIndex:           1,
		Score:                -10,
		CompletionPercentage: 50,
	})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestReplayWorldFlow(t *testing.T) {
	f := newFixture(t)
	id := f.newSession(t, "flow-code-5")

	_, err := f.start.Handle(context.Background(), StartWorldCommand{SessionID: id, WorldIndex: 1})
	require.NoError(t, err)
	_, err = f.complete.Handle(context.Background(), CompleteWorldCommand{
		SessionID:            id,
		WorldIndex:           1,
		Score:                88,
		CompletionPercentage: 100,
	})
	require.NoError(t, err)

	result, err := f.replay.Handle(context.Background(), ReplayWorldCommand{SessionID: id, WorldIndex: 1})
	require.NoError(t, err)
	assert.Equal(t, 88, result.RetainedScore)

	// A worse replay attempt keeps the retained score.
	completion, err := f.complete.Handle(context.Background(), CompleteWorldCommand{
		SessionID:            id,
		WorldIndex:           1,
		Score:                30,
		CompletionPercentage: 100,
	})
	require.NoError(t, err)
	assert.Equal(t, 88, completion.Outcome.RetainedScore)

	// Replay before completion is refused.
	_, err = f.replay.Handle(context.Background(), ReplayWorldCommand{SessionID: id, WorldIndex: 2})
	assert.Error(t, err)
}

func TestUnknownSession(t *testing.T) {
	f := newFixture(t)

	_, err := f.start.Handle(context.Background(), StartWorldCommand{
		SessionID:  "3b1c0f9e-8a6d-4f2b-9c1e-0d5a7b3f6e21",
		WorldIndex: 1,
	})
	assert.ErrorIs(t, err, shared.ErrSessionNotFound)
}
