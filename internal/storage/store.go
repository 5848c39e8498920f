// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
)

// ErrClosed is returned by stores used after Close.
var ErrClosed = errors.New("store is closed")

// Store is a durable key-value store holding JSON documents.
// This abstraction allows swapping storage backends (SQLite, in-memory)
// without changing the billing engine.
type Store interface {
	// Get returns the value stored under key.
	// The bool is false when the key does not exist.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the store.
	Close() error
}

// GetJSON reads and decodes the JSON value under key.
//
// A missing key returns (zero, false, nil). A value that fails to decode is
// treated as missing and logged, so malformed persisted data never blocks
// startup. Only store failures are returned as errors.
func GetJSON[T any](ctx context.Context, s Store, key string) (T, bool, error) {
	var v T
	raw, ok, err := s.Get(ctx, key)
	if err != nil {
		return v, false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	if !ok {
		return v, false, nil
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		slog.Warn("Discarding malformed stored value", "key", key, "error", err)
		var zero T
		return zero, false, nil
	}
	return v, true, nil
}

// SetJSON encodes v as JSON and stores it under key.
func SetJSON[T any](ctx context.Context, s Store, key string, v T) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := s.Set(ctx, key, raw); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}
