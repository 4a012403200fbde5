package memory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/stanza/pkg/adapters/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocker_LockUnlock(t *testing.T) {
	locker := memory.NewLocker()
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "suite", time.Second)
	require.NoError(t, err)
	assert.Equal(t, 1, locker.Held())

	require.NoError(t, unlock(ctx))
	assert.Equal(t, 0, locker.Held(), "unused keys should be collected")

	// Unlocking twice is harmless.
	require.NoError(t, unlock(ctx))
	assert.Equal(t, 0, locker.Held())
}

func TestLocker_Contention(t *testing.T) {
	locker := memory.NewLocker()
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "shared", time.Second)
	require.NoError(t, err)

	short, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(short, "shared", time.Second)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, locker.Held())

	// Other keys are independent.
	other, err := locker.Lock(ctx, "other", time.Second)
	require.NoError(t, err)
	require.NoError(t, other(ctx))

	require.NoError(t, unlock(ctx))
	unlock2, err := locker.Lock(ctx, "shared", time.Second)
	require.NoError(t, err)
	require.NoError(t, unlock2(ctx))
}

func TestLocker_Serializes(t *testing.T) {
	locker := memory.NewLocker()
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		active  int
		maxSeen int
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locker.Lock(ctx, "k", time.Second)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			active++
			if active > maxSeen {
				maxSeen = active
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			active--
			mu.Unlock()
			assert.NoError(t, unlock(ctx))
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen)
	assert.Equal(t, 0, locker.Held())
}
