// Package storage defines the byte-key persistence substrate the engine runs on.
//
// The engine never talks to a database directly: it reads and writes opaque
// byte keys and values through the KV interface, and the hosting process picks
// an implementation (sqlite for durable deployments, memory for tests). The
// substrate is assumed to provide atomic, durable, ordered reads and writes
// per operation; the engine layers its single-writer discipline on top.
package storage

import (
	"context"

	apperrors "github.com/louisbranch/broadside/internal/platform/errors"
)

// ErrNotFound indicates a requested record is missing.
// Callers use this to differentiate between legitimate "no such record" states
// and substrate failures.
var ErrNotFound = apperrors.New(apperrors.CodeNotFound, "record not found")

// Entry is one key/value pair: the unit of a range scan and of a batched
// write.
type Entry struct {
	Key   []byte
	Value []byte
}

// KV is the minimal key-value contract the engine depends on.
type KV interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key []byte) ([]byte, error)
	// Put stores value under key, overwriting any previous value.
	Put(ctx context.Context, key, value []byte) error
	// Apply stores every entry atomically: either all writes land or none,
	// and no reader observes a partial batch.
	Apply(ctx context.Context, entries []Entry) error
	// Scan returns all entries whose key starts with prefix, in ascending
	// key order.
	Scan(ctx context.Context, prefix []byte) ([]Entry, error)
}
