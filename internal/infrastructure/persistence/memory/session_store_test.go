package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqyl-hub/aqyl-learning-hub/internal/domain/catalog"
	"github.com/aqyl-hub/aqyl-learning-hub/internal/domain/session"
	"github.com/aqyl-hub/aqyl-learning-hub/internal/domain/shared"
)

func newStoredSession(t *testing.T, store *SessionStore, code string) *session.HubSession {
	t.Helper()
	s, err := session.NewHubSession(session.NewSessionParams{
		ID:              shared.SessionID(uuid.New().String()),
		AccessCode:      shared.AccessCode(code),
		TenantID:        shared.TenantID("school-shymkent-8"),
		CulturalContext: shared.ContextKazakh,
	}, catalog.Default())
	require.NoError(t, err)
	require.NoError(t, store.Create(context.Background(), s))
	return s
}

func TestGet(t *testing.T) {
	store := NewSessionStore()
	s := newStoredSession(t, store, "code-get")

	loaded, err := store.Get(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.ID, loaded.ID)

	_, err = store.Get(context.Background(), shared.SessionID(uuid.New().String()))
	assert.ErrorIs(t, err, shared.ErrSessionNotFound)
}

func TestGetByAccessCode(t *testing.T) {
	store := NewSessionStore()
	s := newStoredSession(t, store, "code-lookup")

	loaded, err := store.GetByAccessCode(context.Background(), "code-lookup")
	require.NoError(t, err)
	assert.Equal(t, s.ID, loaded.ID)

	_, err = store.GetByAccessCode(context.Background(), "unknown-code")
	assert.ErrorIs(t, err, shared.ErrInvalidCode)
}

func TestExpiredCode(t *testing.T) {
	now := time.Now().UTC()
	clock := now
	store := NewSessionStore(
		WithExpiry(time.Hour),
		WithClock(func() time.Time { return clock }),
	)
	newStoredSession(t, store, "code-expiring")

	_, err := store.GetByAccessCode(context.Background(), "code-expiring")
	require.NoError(t, err)

	clock = now.Add(2 * time.Hour)
	_, err = store.GetByAccessCode(context.Background(), "code-expiring")
	assert.ErrorIs(t, err, shared.ErrExpiredCode)
}

func TestCreateDuplicate(t *testing.T) {
	store := NewSessionStore()
	s := newStoredSession(t, store, "code-dup")

	again, err := session.NewHubSession(session.NewSessionParams{
		ID:              shared.SessionID(uuid.New().String()),
		AccessCode:      s.AccessCode,
		TenantID:        s.TenantID,
		CulturalContext: s.CulturalContext,
	}, catalog.Default())
	require.NoError(t, err)

	err = store.Create(context.Background(), again)
	assert.ErrorIs(t, err, shared.ErrAlreadyExists)
	assert.Equal(t, 1, store.Len())
}

func TestMutateIncrementsVersion(t *testing.T) {
	store := NewSessionStore()
	s := newStoredSession(t, store, "code-version")

	updated, err := store.Mutate(context.Background(), s.ID, func(sess *session.HubSession) error {
		return sess.StartWorld(1)
	})
	require.NoError(t, err)
	assert.Equal(t, s.Version+1, updated.Version)
	assert.Equal(t, session.StatusInProgress, updated.Worlds[1].Status)
}

func TestMutateErrorDiscardsChanges(t *testing.T) {
	store := NewSessionStore()
	s := newStoredSession(t, store, "code-abort")

	_, err := store.Mutate(context.Background(), s.ID, func(sess *session.HubSession) error {
		sess.Worlds[1].Score = 500
		return sess.StartWorld(5) // locked, fails
	})
	require.Error(t, err)

	loaded, err := store.Get(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Zero(t, loaded.Worlds[1].Score)
	assert.Equal(t, s.Version, loaded.Version)
}

func TestMutateReturnsClone(t *testing.T) {
	store := NewSessionStore()
	s := newStoredSession(t, store, "code-clone")

	returned, err := store.Mutate(context.Background(), s.ID, func(sess *session.HubSession) error {
		return nil
	})
	require.NoError(t, err)

	returned.Worlds[1].Score = 123
	loaded, err := store.Get(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Zero(t, loaded.Worlds[1].Score)
}

func TestConcurrentCompletionsConverge(t *testing.T) {
	store := NewSessionStore()
	s := newStoredSession(t, store, "code-race")

	_, err := store.Mutate(context.Background(), s.ID, func(sess *session.HubSession) error {
		return sess.StartWorld(1)
	})
	require.NoError(t, err)

	cat := catalog.Default()
	scores := []int{40, 85, 60, 72, 55, 91, 33, 78}

	var wg sync.WaitGroup
	for _, score := range scores {
		wg.Add(1)
		go func(score int) {
			defer wg.Done()
			_, err := store.Mutate(context.Background(), s.ID, func(sess *session.HubSession) error {
				_, completeErr := sess.CompleteWorld(cat, 1, session.WorldResult{
					Score:                score,
					CompletionPercentage: 100,
					TimeSpentMs:          1_000,
				})
				return completeErr
			})
			assert.NoError(t, err)
		}(score)
	}
	wg.Wait()

	loaded, err := store.Get(context.Background(), s.ID)
	require.NoError(t, err)

	// The max score wins regardless of arrival order, time accumulates and
	// every submission bumped the version exactly once.
	assert.Equal(t, 91, loaded.Worlds[1].Score)
	assert.Equal(t, int64(8_000), loaded.Worlds[1].TimeSpentMs)
	assert.Equal(t, len(scores), loaded.Worlds[1].Attempts)
	assert.Equal(t, s.Version+1+int64(len(scores)), loaded.Version)
}
