// Package draftstore keeps in-progress enrollment forms in Redis between
// requests.
package draftstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/studentid/internal/domain/enrollment"
	"github.com/go-redis/redis/v8"
)

// DefaultTTL is how long an untouched draft survives.
const DefaultTTL = 24 * time.Hour

const keyPrefix = "studentid:draft:"

// ErrNotFound is returned for unknown or expired drafts.
var ErrNotFound = errors.New("draft not found")

type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

// New returns a Store. A non-positive ttl uses DefaultTTL.
func New(rdb *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{rdb: rdb, ttl: ttl}
}

func key(id string) string { return keyPrefix + id }

// Save writes f and refreshes its TTL.
func (s *Store) Save(ctx context.Context, f *enrollment.Form) error {
	if f == nil || f.ID == "" {
		return errors.New("draftstore: form has no id")
	}
	b, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("draftstore: encode %s: %w", f.ID, err)
	}
	return s.rdb.Set(ctx, key(f.ID), b, s.ttl).Err()
}

// Get loads a draft.
func (s *Store) Get(ctx context.Context, id string) (*enrollment.Form, error) {
	b, err := s.rdb.Get(ctx, key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var f enrollment.Form
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("draftstore: decode %s: %w", id, err)
	}
	return &f, nil
}

// Delete removes a draft. Deleting a missing draft is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	return s.rdb.Del(ctx, key(id)).Err()
}

// IDs lists the IDs of every live draft.
func (s *Store) IDs(ctx context.Context) ([]string, error) {
	var out []string
	var cursor uint64
	for {
		keys, next, err := s.rdb.Scan(ctx, cursor, keyPrefix+"*", 200).Result()
		if err != nil {
			return nil, err
		}
		for _, k := range keys {
			out = append(out, k[len(keyPrefix):])
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return out, nil
}
