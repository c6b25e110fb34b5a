package redisclient

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocker(t *testing.T, wait time.Duration) (*Locker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewLocker(client, 5*time.Second, wait), mr
}

func TestSlotLockReleasedAfterRun(t *testing.T) {
	locker, mr := newTestLocker(t, 0)
	practitioner := uuid.New()
	at := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	err := locker.WithSlotLock(context.Background(), practitioner, at, func(ctx context.Context) error {
		assert.True(t, mr.Exists(SlotKey(practitioner, at)))
		return nil
	})
	require.NoError(t, err)
	assert.False(t, mr.Exists(SlotKey(practitioner, at)))
}

func TestSlotLockReturnsCallbackError(t *testing.T) {
	locker, _ := newTestLocker(t, 0)
	boom := errors.New("boom")

	err := locker.WithSlotLock(context.Background(), uuid.New(), time.Now(), func(ctx context.Context) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestSlotLockNotAcquiredWhileHeld(t *testing.T) {
	locker, mr := newTestLocker(t, 50*time.Millisecond)
	practitioner := uuid.New()
	at := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	require.NoError(t, mr.Set(SlotKey(practitioner, at), "someone-else"))

	called := false
	err := locker.WithSlotLock(context.Background(), practitioner, at, func(ctx context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrLockNotAcquired)
	assert.False(t, called)

	got, _ := mr.Get(SlotKey(practitioner, at))
	assert.Equal(t, "someone-else", got, "foreign lock must not be released")
}

func TestSlotLockSerialisesWaiters(t *testing.T) {
	locker, _ := newTestLocker(t, 2*time.Second)
	practitioner := uuid.New()
	at := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := locker.WithSlotLock(context.Background(), practitioner, at, func(ctx context.Context) error {
				n := atomic.AddInt32(&inside, 1)
				for {
					m := atomic.LoadInt32(&maxInside)
					if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
						break
					}
				}
				time.Sleep(10 * time.Millisecond)
				atomic.AddInt32(&inside, -1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), atomic.LoadInt32(&maxInside))
}

func TestClaimIsHeldUntilExpiry(t *testing.T) {
	locker, mr := newTestLocker(t, time.Second)

	_, err := locker.Claim(context.Background(), "reminder:2025-02-01", 36*time.Hour)
	require.NoError(t, err)
	assert.True(t, mr.Exists(ClaimKey("reminder:2025-02-01")))
	assert.Equal(t, 36*time.Hour, mr.TTL(ClaimKey("reminder:2025-02-01")))

	_, err = locker.Claim(context.Background(), "reminder:2025-02-01", 36*time.Hour)
	assert.ErrorIs(t, err, ErrLockNotAcquired, "a second claim does not wait")

	_, err = locker.Claim(context.Background(), "reminder:2025-02-02", 36*time.Hour)
	assert.NoError(t, err, "other names are independent")

	mr.FastForward(37 * time.Hour)
	_, err = locker.Claim(context.Background(), "reminder:2025-02-01", 36*time.Hour)
	assert.NoError(t, err, "expired claims can be taken again")
}

func TestClaimReleaseOnlyDropsOwnClaim(t *testing.T) {
	locker, mr := newTestLocker(t, 0)

	release, err := locker.Claim(context.Background(), "reminder:2025-02-01", time.Hour)
	require.NoError(t, err)
	require.NoError(t, release(context.Background()))
	assert.False(t, mr.Exists(ClaimKey("reminder:2025-02-01")))

	release, err = locker.Claim(context.Background(), "reminder:2025-02-01", time.Hour)
	require.NoError(t, err)
	require.NoError(t, mr.Set(ClaimKey("reminder:2025-02-01"), "other-replica"))
	require.NoError(t, release(context.Background()))

	got, _ := mr.Get(ClaimKey("reminder:2025-02-01"))
	assert.Equal(t, "other-replica", got)
}

func TestLockUnavailableWhenRedisDown(t *testing.T) {
	locker, mr := newTestLocker(t, 0)
	mr.Close()

	_, err := locker.Claim(context.Background(), "reminder:2025-02-01", time.Hour)
	assert.ErrorIs(t, err, ErrLockUnavailable)

	err = locker.WithSlotLock(context.Background(), uuid.New(), time.Now(), func(ctx context.Context) error {
		return nil
	})
	assert.ErrorIs(t, err, ErrLockUnavailable)
}
