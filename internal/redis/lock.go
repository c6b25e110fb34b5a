package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrLockNotAcquired = errors.New("lock not acquired")
	// ErrLockUnavailable means redis itself could not be reached.
	ErrLockUnavailable = errors.New("lock backend unavailable")
)

// Locker guards practitioner slots and claims named units of work.
type Locker struct {
	client     *redis.Client
	ttl        time.Duration
	wait       time.Duration
	retryEvery time.Duration
}

// NewLocker creates a locker whose keys live for ttl. Slot locks wait up to
// wait for a competing holder to release before giving up.
func NewLocker(client *redis.Client, ttl, wait time.Duration) *Locker {
	return &Locker{
		client:     client,
		ttl:        ttl,
		wait:       wait,
		retryEvery: 25 * time.Millisecond,
	}
}

func SlotKey(practitionerID uuid.UUID, at time.Time) string {
	return fmt.Sprintf("lock:slot:%s:%s", practitionerID, at.Format("2006-01-02T15:04:05"))
}

// WithSlotLock serialises fn against other holders of the same
// (practitioner, instant) pair.
func (l *Locker) WithSlotLock(ctx context.Context, practitionerID uuid.UUID, at time.Time, fn func(ctx context.Context) error) error {
	return l.withKey(ctx, SlotKey(practitionerID, at), l.wait, fn)
}

func ClaimKey(name string) string {
	return "lock:claim:" + name
}

// Claim marks name as taken for ttl without waiting. Unlike the slot lock it
// is not released when the work finishes; it expires on its own. release
// gives the claim back early, e.g. when the claimed work never ran.
func (l *Locker) Claim(ctx context.Context, name string, ttl time.Duration) (release func(ctx context.Context) error, err error) {
	key := ClaimKey(name)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %v", ErrLockUnavailable, err)
	}
	if !ok {
		return nil, ErrLockNotAcquired
	}

	return func(ctx context.Context) error {
		return l.release(ctx, key, token)
	}, nil
}

func (l *Locker) withKey(ctx context.Context, key string, wait time.Duration, fn func(ctx context.Context) error) error {
	token := uuid.NewString()

	if err := l.acquire(ctx, key, token, wait); err != nil {
		return err
	}

	defer func() {
		_ = l.release(context.WithoutCancel(ctx), key, token)
	}()

	ctxWithTimeout, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()

	return fn(ctxWithTimeout)
}

func (l *Locker) acquire(ctx context.Context, key, token string, wait time.Duration) error {
	deadline := time.Now().Add(wait)
	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return fmt.Errorf("%w: %v", ErrLockUnavailable, err)
		}
		if ok {
			return nil
		}
		if !time.Now().Before(deadline) {
			return ErrLockNotAcquired
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.retryEvery):
		}
	}
}

var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (l *Locker) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release lock: %w", err)
	}
	return nil
}
