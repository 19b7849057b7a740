package infra

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// ── Ticket locks ──────────────────────────────────────────────────────────────
// Payment mutations are check-then-act over a ticket's balance, so they run
// one at a time per ticket. LocalLocker covers a single process; RedisLocker
// covers several replicas sharing one Redis.

// TicketLocker serializes work on a key. The returned func releases the lock.
type TicketLocker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

type keyedMutex struct {
	mu   sync.Mutex
	refs int
}

// LocalLocker is an in-process keyed mutex. Entries are dropped when the last
// holder or waiter releases them.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]*keyedMutex
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]*keyedMutex)}
}

func (l *LocalLocker) Lock(_ context.Context, key string) (func(), error) {
	l.mu.Lock()
	km, ok := l.locks[key]
	if !ok {
		km = &keyedMutex{}
		l.locks[key] = km
	}
	km.refs++
	l.mu.Unlock()

	km.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			km.mu.Unlock()
			l.mu.Lock()
			km.refs--
			if km.refs == 0 {
				delete(l.locks, key)
			}
			l.mu.Unlock()
		})
	}, nil
}

// size reports the number of live entries (tests only).
func (l *LocalLocker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

const redisLockPrefix = "lock:"

// releaseScript deletes the key only if it still holds our token, so an
// expired lock taken over by another replica is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
end
return 0`)

// ErrLockTimeout is returned when ctx ends before the lock is acquired.
var ErrLockTimeout = errors.New("tiempo de espera agotado al bloquear el ticket")

// RedisLocker is a SET NX PX lock with a per-holder token.
type RedisLocker struct {
	rdb   *redis.Client
	ttl   time.Duration
	retry time.Duration
}

func NewRedisLocker(rdb *redis.Client, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &RedisLocker{rdb: rdb, ttl: ttl, retry: 25 * time.Millisecond}
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	lockKey := redisLockPrefix + key
	token := uuid.NewString()

	for {
		ok, err := l.rdb.SetNX(ctx, lockKey, token, l.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ErrLockTimeout
			}
			return nil, err
		}
		if ok {
			return func() {
				// Release with a fresh context: the caller's may already be done.
				if err := releaseScript.Run(context.Background(), l.rdb, []string{lockKey}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
					log.Warn().Err(err).Str("key", lockKey).Msg("lock: release failed, waiting for ttl")
				}
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ErrLockTimeout
		case <-time.After(l.retry):
		}
	}
}
