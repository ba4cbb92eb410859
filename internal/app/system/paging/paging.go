// Package paging implements keyset pagination over a folded sort key plus
// _id, with opaque cursors from waffle's mongo pantry.
package paging

import (
	"strconv"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

// ParseLimit reads a page size from a query value, falling back to
// DefaultPageSize and capping at MaxPageSize.
func ParseLimit(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return DefaultPageSize
	}
	if n > MaxPageSize {
		return MaxPageSize
	}
	return n
}

// Result tells the caller whether neighbouring pages exist.
type Result struct {
	HasPrev bool
	HasNext bool
}

// TrimPage cuts a page fetched with limit size+1 down to size. Backward
// pages arrive in descending order, so the extra row is always last; call
// Reverse after trimming.
func TrimPage[T any](rows *[]T, before, after string, size int) Result {
	var res Result
	if before != "" {
		if len(*rows) > size {
			*rows = (*rows)[:size]
			res.HasPrev = true
		}
		res.HasNext = true
		return res
	}
	if len(*rows) > size {
		*rows = (*rows)[:size]
		res.HasNext = true
	}
	res.HasPrev = after != ""
	return res
}

type Direction int

const (
	Forward  Direction = iota // ascending, "gt" cursor
	Backward                  // descending, "lt" cursor
)

// KeysetConfig is the parsed before/after cursor pair.
type KeysetConfig struct {
	Direction Direction
	SortOrder int
	Cursor    *wafflemongo.Cursor
}

// ConfigureKeyset prefers before over after. Undecodable cursors are
// treated as absent.
func ConfigureKeyset(before, after string) KeysetConfig {
	cfg := KeysetConfig{Direction: Forward, SortOrder: 1}
	raw := after
	if before != "" {
		cfg.Direction = Backward
		cfg.SortOrder = -1
		raw = before
	}
	if raw != "" {
		if c, ok := wafflemongo.DecodeCursor(raw); ok {
			cfg.Cursor = &c
		}
	}
	return cfg
}

// ApplyToFind sets the sort on (sortField, _id) and a limit of size+1.
func (cfg KeysetConfig) ApplyToFind(find *options.FindOptions, sortField string, size int) {
	find.SetSort(bson.D{
		{Key: sortField, Value: cfg.SortOrder},
		{Key: "_id", Value: cfg.SortOrder},
	}).SetLimit(int64(size + 1))
}

// KeysetWindow returns the filter selecting rows past the cursor, or nil.
func (cfg KeysetConfig) KeysetWindow(sortField string) bson.M {
	if cfg.Cursor == nil {
		return nil
	}
	dir := "gt"
	if cfg.Direction == Backward {
		dir = "lt"
	}
	return wafflemongo.KeysetWindow(sortField, dir, cfg.Cursor.CI, cfg.Cursor.ID)
}

// Reverse reverses rows in place; call it after fetching a backward page.
func Reverse[T any](rows []T) {
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
}

// BuildCursors encodes cursors for the first and last rows.
func BuildCursors[T any](rows []T, keyFn func(T) string, idFn func(T) primitive.ObjectID) (prev, next string) {
	if len(rows) == 0 {
		return "", ""
	}
	first, last := rows[0], rows[len(rows)-1]
	return wafflemongo.EncodeCursor(keyFn(first), idFn(first)), wafflemongo.EncodeCursor(keyFn(last), idFn(last))
}
