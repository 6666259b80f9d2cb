package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"clinic-scheduling/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// ErrSlotLocked is returned when the lock stayed held for a whole TTL while
// waiting for it.
var ErrSlotLocked = errors.New("timed out waiting for the slot lock")

const RedisSlotLockKeyPrefix = "slot:lock:"

const (
	lockRetryMinBackoff = 5 * time.Millisecond
	lockRetryMaxBackoff = 100 * time.Millisecond
)

// releaseLockScript deletes the lock only when it still holds our token, so
// a request whose lock expired never frees a lock taken by someone else.
var releaseLockScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

// SlotKey identifies one doctor slot.
type SlotKey struct {
	DoctorID uuid.UUID
	Date     time.Time
	Time     entity.TimeOfDay
}

func (k SlotKey) String() string {
	return fmt.Sprintf("%s%s:%s:%s", RedisSlotLockKeyPrefix, k.DoctorID, k.Date.Format("2006-01-02"), k.Time)
}

// SlotLocker serializes writers of the same slot across processes.
// The database unique index stays the final arbiter; the lock only keeps
// concurrent requests from racing into it.
type SlotLocker interface {
	// Acquire takes the lock for key and returns a release function. While
	// another request holds it, Acquire waits with backoff. It gives up with
	// ErrSlotLocked after one TTL, or with the context error.
	Acquire(ctx context.Context, key SlotKey) (release func(), err error)
}

type redisSlotLocker struct {
	redisClient *redis.Client
	log         *logrus.Logger
	ttl         time.Duration
}

func NewSlotLocker(redisClient *redis.Client, log *logrus.Logger, ttl time.Duration) SlotLocker {
	return &redisSlotLocker{
		redisClient: redisClient,
		log:         log,
		ttl:         ttl,
	}
}

func (l *redisSlotLocker) Acquire(ctx context.Context, key SlotKey) (func(), error) {
	lockKey := key.String()
	token := uuid.NewString()

	deadline := time.NewTimer(l.ttl)
	defer deadline.Stop()
	backoff := lockRetryMinBackoff

	for {
		ok, err := l.redisClient.SetNX(ctx, lockKey, token, l.ttl).Result()
		if err != nil {
			l.log.Warnf("Failed to acquire slot lock %s: %+v", lockKey, err)
			return nil, fmt.Errorf("acquire slot lock %s: %w", lockKey, err)
		}
		if ok {
			break
		}

		wait := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			wait.Stop()
			return nil, ctx.Err()
		case <-deadline.C:
			wait.Stop()
			return nil, ErrSlotLocked
		case <-wait.C:
		}
		if backoff *= 2; backoff > lockRetryMaxBackoff {
			backoff = lockRetryMaxBackoff
		}
	}

	release := func() {
		// The request context may already be cancelled; release on a fresh one.
		releaseCtx, cancel := context.WithTimeout(context.Background(), l.ttl)
		defer cancel()
		if err := releaseLockScript.Run(releaseCtx, l.redisClient, []string{lockKey}, token).Err(); err != nil {
			l.log.Warnf("Failed to release slot lock %s: %+v", lockKey, err)
		}
	}
	return release, nil
}
