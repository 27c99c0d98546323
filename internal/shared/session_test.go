package shared

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*SessionStore, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionStore(client, "test-secret", time.Hour), srv
}

func TestSessionStoreIssueAndResolve(t *testing.T) {
	store, srv := newTestStore(t)
	ctx := context.Background()
	owner := uuid.New()

	token, err := store.Issue(ctx, owner)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	for _, key := range srv.Keys() {
		require.True(t, strings.HasPrefix(key, sessionKeyPrefix))
		require.NotContains(t, key, token)
	}

	got, err := store.Resolve(ctx, token)
	require.NoError(t, err)
	require.Equal(t, owner, got)
}

func TestSessionStoreRejectsUnknownAndExpired(t *testing.T) {
	store, srv := newTestStore(t)
	ctx := context.Background()

	_, err := store.Resolve(ctx, "")
	require.ErrorIs(t, err, ErrUnauthenticated)
	_, err = store.Resolve(ctx, "nope")
	require.ErrorIs(t, err, ErrUnauthenticated)

	token, err := store.Issue(ctx, uuid.New())
	require.NoError(t, err)
	srv.FastForward(2 * time.Hour)
	_, err = store.Resolve(ctx, token)
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestSessionStoreRevoke(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	token, err := store.Issue(ctx, uuid.New())
	require.NoError(t, err)
	require.NoError(t, store.Revoke(ctx, token))

	_, err = store.Resolve(ctx, token)
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestSessionStoreSecretScopesKeys(t *testing.T) {
	a, _ := newTestStore(t)
	b := NewSessionStore(a.client, "other-secret", time.Hour)
	require.NotEqual(t, a.redisKey("token"), b.redisKey("token"))
}

func TestOwnerContextRoundTrip(t *testing.T) {
	_, ok := OwnerFromContext(context.Background())
	require.False(t, ok)

	owner := uuid.New()
	got, ok := OwnerFromContext(ContextWithOwner(context.Background(), owner))
	require.True(t, ok)
	require.Equal(t, owner, got)
}
