// Package submitlock guards a form against concurrent submissions with a
// Redis lock.
package submitlock

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const keyPrefix = "studentid:submit:"

// ErrHeld is returned when another submission holds the lock.
var ErrHeld = errors.New("submission already in progress")

// release deletes the key only if it still carries our token.
var release = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type Locker struct {
	rdb *redis.Client
	ttl time.Duration
}

// New returns a Locker whose locks expire after ttl if never released.
func New(rdb *redis.Client, ttl time.Duration) *Locker {
	return &Locker{rdb: rdb, ttl: ttl}
}

// Lock is a held submission lock.
type Lock struct {
	l     *Locker
	key   string
	token string
}

// Acquire takes the lock for formID or returns ErrHeld.
func (l *Locker) Acquire(ctx context.Context, formID string) (*Lock, error) {
	token := uuid.NewString()
	k := keyPrefix + formID
	ok, err := l.rdb.SetNX(ctx, k, token, l.ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrHeld
	}
	return &Lock{l: l, key: k, token: token}, nil
}

// Held reports whether a submission currently holds the lock for formID.
func (l *Locker) Held(ctx context.Context, formID string) (bool, error) {
	n, err := l.rdb.Exists(ctx, keyPrefix+formID).Result()
	return n > 0, err
}

// Release frees the lock. It reports false when the lock had already
// expired or been taken by someone else.
func (lk *Lock) Release(ctx context.Context) (bool, error) {
	n, err := release.Run(ctx, lk.l.rdb, []string{lk.key}, lk.token).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
