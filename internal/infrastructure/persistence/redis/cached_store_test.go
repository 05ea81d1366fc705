package redis

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqyl-hub/aqyl-learning-hub/internal/domain/catalog"
	"github.com/aqyl-hub/aqyl-learning-hub/internal/domain/session"
	"github.com/aqyl-hub/aqyl-learning-hub/internal/domain/shared"
	"github.com/aqyl-hub/aqyl-learning-hub/internal/infrastructure/persistence/memory"
)

// fakeCache is a map-backed sessionCache. Entries never expire, which is
// exactly the situation the decorator's own lifetime check must survive.
type fakeCache struct {
	entries map[string][]byte
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string][]byte)}
}

func (c *fakeCache) Get(ctx context.Context, key string, dest any) error {
	data, ok := c.entries[key]
	if !ok {
		return ErrCacheMiss
	}
	return json.Unmarshal(data, dest)
}

func (c *fakeCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.entries[key] = data
	return nil
}

func (c *fakeCache) GetString(ctx context.Context, key string) (string, error) {
	data, ok := c.entries[key]
	if !ok {
		return "", ErrCacheMiss
	}
	return string(data), nil
}

func (c *fakeCache) SetString(ctx context.Context, key, value string, ttl time.Duration) error {
	c.entries[key] = []byte(value)
	return nil
}

func (c *fakeCache) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(c.entries, key)
	}
	return nil
}

const testAccessCode = "baiterek-2026"

func newCachedFixture(t *testing.T, expiry time.Duration, now *time.Time) (*CachedStore, *fakeCache) {
	t.Helper()

	cache := newFakeCache()
	store := &CachedStore{
		inner:       memory.NewSessionStore(),
		cache:       cache,
		logger:      slog.Default(),
		expireAfter: expiry,
		now:         func() time.Time { return *now },
	}

	sess, err := session.NewHubSession(session.NewSessionParams{
		ID:              shared.SessionID(uuid.New().String()),
		AccessCode:      shared.AccessCode(testAccessCode),
		TenantID:        shared.TenantID("school-astana-7"),
		CulturalContext: shared.ContextKazakh,
	}, catalog.Default())
	require.NoError(t, err)
	require.NoError(t, store.Create(context.Background(), sess))

	return store, cache
}

func TestCachedStoreServesFreshSession(t *testing.T) {
	now := time.Now().UTC()
	store, _ := newCachedFixture(t, time.Hour, &now)

	sess, err := store.GetByAccessCode(context.Background(), shared.AccessCode(testAccessCode))
	require.NoError(t, err)
	assert.Equal(t, shared.TenantID("school-astana-7"), sess.TenantID)
}

func TestCachedStoreExpiresCachedCodePath(t *testing.T) {
	now := time.Now().UTC()
	// Inner store has no expiry of its own; the decorator must enforce the
	// policy even when the code index and snapshot are both warm.
	store, _ := newCachedFixture(t, time.Hour, &now)

	_, err := store.GetByAccessCode(context.Background(), shared.AccessCode(testAccessCode))
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)
	_, err = store.GetByAccessCode(context.Background(), shared.AccessCode(testAccessCode))
	assert.ErrorIs(t, err, shared.ErrExpiredCode)
}

func TestCachedStoreZeroExpiryNeverExpires(t *testing.T) {
	now := time.Now().UTC()
	store, _ := newCachedFixture(t, 0, &now)

	now = now.Add(365 * 24 * time.Hour)
	_, err := store.GetByAccessCode(context.Background(), shared.AccessCode(testAccessCode))
	assert.NoError(t, err)
}

func TestCachedStoreSnapshotOmitsRawCode(t *testing.T) {
	now := time.Now().UTC()
	_, cache := newCachedFixture(t, time.Hour, &now)

	for key, data := range cache.entries {
		assert.NotContains(t, key, testAccessCode)
		assert.NotContains(t, string(data), testAccessCode, "key %s", key)
	}
}

func TestCachedStoreDropsDanglingIndex(t *testing.T) {
	now := time.Now().UTC()
	store, cache := newCachedFixture(t, time.Hour, &now)

	// Point the index at a session the store does not hold.
	ghost := shared.SessionID(uuid.New().String())
	code := shared.AccessCode("zhetysu-2026")
	require.NoError(t, cache.SetString(context.Background(), codeKey(code), ghost.String(), TTLCodeIndex))

	_, err := store.GetByAccessCode(context.Background(), code)
	assert.ErrorIs(t, err, shared.ErrInvalidCode)

	_, err = cache.GetString(context.Background(), codeKey(code))
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestCodeKeyIsFingerprinted(t *testing.T) {
	key := codeKey(shared.AccessCode(testAccessCode))
	assert.True(t, strings.HasPrefix(key, PrefixCode))
	assert.NotContains(t, key, testAccessCode)
}
