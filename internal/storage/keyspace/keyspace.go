// Package keyspace provides typed access to the KV substrate.
//
// An Item holds a single record under a fixed key; a Bucket holds a family of
// records under a shared prefix, range-scanned in ascending key order. Both
// serialize records as JSON. Writes are staged: Entry encodes a record into a
// storage.Entry, and callers batch the entries of one transition into a
// single KV.Apply so the transition commits as a unit. The layout mirrors the
// singleton/map split the engine's state model needs: one config, one state,
// one player record per address.
package keyspace

import (
	"context"
	"encoding/json"
	"fmt"

	apperrors "github.com/louisbranch/broadside/internal/platform/errors"
	"github.com/louisbranch/broadside/internal/storage"
)

// Item reads and writes a single record under a fixed key.
type Item[T any] struct {
	key []byte
}

// NewItem creates an item bound to key.
func NewItem[T any](key string) Item[T] {
	return Item[T]{key: []byte(key)}
}

// Load fetches and decodes the record. Returns storage.ErrNotFound when the
// record has never been saved.
func (i Item[T]) Load(ctx context.Context, kv storage.KV) (T, error) {
	var value T
	raw, err := kv.Get(ctx, i.key)
	if err != nil {
		return value, err
	}
	if err := json.Unmarshal(raw, &value); err != nil {
		return value, apperrors.Wrap(apperrors.CodeStorage, fmt.Sprintf("decode record %q", i.key), err)
	}
	return value, nil
}

// Entry encodes the record as a staged write under the item's key.
func (i Item[T]) Entry(value T) (storage.Entry, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return storage.Entry{}, apperrors.Wrap(apperrors.CodeStorage, fmt.Sprintf("encode record %q", i.key), err)
	}
	return storage.Entry{Key: append([]byte(nil), i.key...), Value: raw}, nil
}

// Bucket reads and writes a family of records under a shared prefix.
type Bucket[T any] struct {
	prefix string
}

// NewBucket creates a bucket bound to prefix. Record keys are formed as
// "<prefix>/<id>".
func NewBucket[T any](prefix string) Bucket[T] {
	return Bucket[T]{prefix: prefix}
}

func (b Bucket[T]) recordKey(id string) []byte {
	return []byte(b.prefix + "/" + id)
}

// Load fetches and decodes the record stored under id.
func (b Bucket[T]) Load(ctx context.Context, kv storage.KV, id string) (T, error) {
	var value T
	raw, err := kv.Get(ctx, b.recordKey(id))
	if err != nil {
		return value, err
	}
	if err := json.Unmarshal(raw, &value); err != nil {
		return value, apperrors.Wrap(apperrors.CodeStorage, fmt.Sprintf("decode record %q/%s", b.prefix, id), err)
	}
	return value, nil
}

// Entry encodes the record as a staged write under id.
func (b Bucket[T]) Entry(id string, value T) (storage.Entry, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return storage.Entry{}, apperrors.Wrap(apperrors.CodeStorage, fmt.Sprintf("encode record %q/%s", b.prefix, id), err)
	}
	return storage.Entry{Key: b.recordKey(id), Value: raw}, nil
}

// All returns every record in the bucket in ascending key order, which for
// string ids is lexicographic id order.
func (b Bucket[T]) All(ctx context.Context, kv storage.KV) ([]T, error) {
	entries, err := kv.Scan(ctx, []byte(b.prefix+"/"))
	if err != nil {
		return nil, err
	}
	values := make([]T, 0, len(entries))
	for _, entry := range entries {
		var value T
		if err := json.Unmarshal(entry.Value, &value); err != nil {
			return nil, apperrors.Wrap(apperrors.CodeStorage, fmt.Sprintf("decode record %q", entry.Key), err)
		}
		values = append(values, value)
	}
	return values, nil
}
