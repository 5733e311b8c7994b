package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLocked is returned when a simulation lock could not be acquired before
// the context ended.
var ErrLocked = errors.New("simulation is already advancing")

// Locker serialises advances of one simulation. Lock blocks until the lock
// is held or ctx ends; the returned func releases it.
type Locker interface {
	Lock(ctx context.Context, id uuid.UUID) (func(), error)
}

// LocalLocker locks within one process.
type LocalLocker struct {
	locks sync.Map // simulation id -> chan struct{}
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{}
}

func (l *LocalLocker) Lock(ctx context.Context, id uuid.UUID) (func(), error) {
	for {
		v, _ := l.locks.LoadOrStore(id, make(chan struct{}, 1))
		sem := v.(chan struct{})
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", ErrLocked, ctx.Err())
		}
		// A semaphore dropped by Forget while we waited is stale.
		if cur, ok := l.locks.Load(id); ok && cur == v {
			return func() { <-sem }, nil
		}
		<-sem
	}
}

// Forget drops the lock of a deleted simulation. A lock that is still held
// is kept.
func (l *LocalLocker) Forget(id uuid.UUID) {
	v, ok := l.locks.Load(id)
	if !ok {
		return
	}
	sem := v.(chan struct{})
	select {
	case sem <- struct{}{}:
		l.locks.CompareAndDelete(id, v)
		<-sem
	default:
	}
}

const (
	defaultLockTTL   = 30 * time.Second
	defaultLockRetry = 50 * time.Millisecond
)

var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// RedisLocker locks across API and worker processes with SET NX. Locks
// expire after TTL so a crashed holder cannot wedge a simulation.
type RedisLocker struct {
	client *redis.Client
	owner  string
	ttl    time.Duration
	retry  time.Duration
}

func NewRedisLocker(client *redis.Client, owner string) *RedisLocker {
	if owner == "" {
		owner = uuid.New().String()
	}
	return &RedisLocker{
		client: client,
		owner:  owner,
		ttl:    defaultLockTTL,
		retry:  defaultLockRetry,
	}
}

func lockKey(id uuid.UUID) string {
	return fmt.Sprintf("simulation-lock:%s", id.String())
}

func (l *RedisLocker) Lock(ctx context.Context, id uuid.UUID) (func(), error) {
	key := lockKey(id)
	// Each holder gets its own token so a release never frees another's lock.
	token := l.owner + ":" + uuid.New().String()
	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %w", ErrLocked, ctx.Err())
			}
			return nil, fmt.Errorf("failed to acquire simulation lock: %w", err)
		}
		if ok {
			return func() {
				// The caller's context may already be done.
				_ = releaseScript.Run(context.Background(), l.client, []string{key}, token).Err()
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", ErrLocked, ctx.Err())
		case <-time.After(l.retry):
		}
	}
}
