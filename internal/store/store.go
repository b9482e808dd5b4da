// Package store defines the narrow keyed-store port the engine persists
// through, plus the Redis and in-memory implementations. Paths are
// slash-separated keys ("members/<uid>"); values are JSON documents.
// Each path write is independent — no multi-path transactions.
package store

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrPathNotFound is returned by Get when no value exists at the path.
var ErrPathNotFound = errors.New("path not found")

// ChangeHandler receives the path and raw JSON value of every write under
// a subscribed prefix.
type ChangeHandler func(path string, raw json.RawMessage)

// Store is the keyed real-time store adapter. AtomicIncrement is the only
// operation with cross-request ordering guarantees; everything else is an
// independent single-path read or write.
type Store interface {
	// Get reads the JSON value at path into dest. Returns ErrPathNotFound
	// when the path is empty.
	Get(ctx context.Context, path string, dest any) error

	// Set writes value at path, replacing any previous value.
	Set(ctx context.Context, path string, value any) error

	// Push writes value under a new store-assigned id within the
	// collection and returns that id.
	Push(ctx context.Context, collectionPath string, value any) (string, error)

	// AtomicIncrement increments the counter at counterPath by one as a
	// single read-modify-write and returns the new value.
	AtomicIncrement(ctx context.Context, counterPath string) (int64, error)

	// List returns every child of the collection keyed by child id.
	List(ctx context.Context, collectionPath string) (map[string]json.RawMessage, error)

	// Subscribe blocks delivering every write under pathPrefix to onChange
	// until ctx is cancelled.
	Subscribe(ctx context.Context, pathPrefix string, onChange ChangeHandler) error
}
