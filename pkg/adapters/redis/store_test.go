package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/stanza/pkg/adapters/redis"
	"github.com/aretw0/stanza/pkg/domain"
	"github.com/aretw0/stanza/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err, "Failed to start miniredis")
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStore_Contract(t *testing.T) {
	_, client := newClient(t)
	ports.RunResultStoreContract(t, redis.NewFromClient(client))
}

func TestRedisStore_TTL_Expiration(t *testing.T) {
	mr, client := newClient(t)
	store := redis.NewFromClient(client, redis.WithTTL(1*time.Second))
	ctx := context.Background()

	err := store.Save(ctx, &domain.RunResult{ID: "run-ttl"})
	require.NoError(t, err)

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, ids, "run-ttl")

	mr.FastForward(2 * time.Second)

	_, err = store.Load(ctx, "run-ttl")
	assert.ErrorIs(t, err, domain.ErrRunNotFound)

	// The index is pruned against the wall clock, not the miniredis clock.
	time.Sleep(1200 * time.Millisecond)

	ids, err = store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestRedisStore_Prefix(t *testing.T) {
	mr, client := newClient(t)
	store := redis.NewFromClient(client, redis.WithPrefix("custom:app:"))
	ctx := context.Background()

	err := store.Save(ctx, &domain.RunResult{ID: "my-run"})
	require.NoError(t, err)

	assert.True(t, mr.Exists("custom:app:run:my-run"), "Expected key with custom prefix to exist")
	assert.True(t, mr.Exists("custom:app:runs"), "Expected index with custom prefix to exist")

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"my-run"}, ids)
}

func TestRedisReporter(t *testing.T) {
	_, client := newClient(t)
	reporter := redis.NewReporter(client, redis.WithMaxLen(100))
	ctx := context.Background()

	err := reporter.Report(ctx, domain.Outcome{
		RunID:    "r1",
		Scenario: "login",
		Keyword:  "Click | id=loginBtn",
		Status:   domain.StatusSucceeded,
	})
	require.NoError(t, err)

	entries, err := client.XRange(ctx, reporter.Stream(), "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "r1", entries[0].Values["run"])
	assert.Equal(t, "succeeded", entries[0].Values["status"])
	assert.Contains(t, entries[0].Values["outcome"], "id=loginBtn")
}

func TestRedisLocker_LockUnlock(t *testing.T) {
	mr, client := newClient(t)
	locker := redis.NewLocker(client, "test:")
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "suite", 5*time.Second)
	require.NoError(t, err)
	require.NotNil(t, unlock)
	assert.True(t, mr.Exists("test:lock:suite"), "Lock key should be set in Redis")

	require.NoError(t, unlock(ctx))
	assert.False(t, mr.Exists("test:lock:suite"), "Lock key should be removed after unlock")
}

func TestRedisLocker_Contention(t *testing.T) {
	_, client := newClient(t)
	first := redis.NewLocker(client, "test:")
	second := redis.NewLocker(client, "test:")
	ctx := context.Background()

	unlock, err := first.Lock(ctx, "shared", 5*time.Second)
	require.NoError(t, err)

	short, cancel := context.WithTimeout(ctx, 300*time.Millisecond)
	defer cancel()
	_, err = second.Lock(short, "shared", 5*time.Second)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, unlock(ctx))

	unlock2, err := second.Lock(ctx, "shared", 5*time.Second)
	require.NoError(t, err)
	assert.NoError(t, unlock2(ctx))
}
