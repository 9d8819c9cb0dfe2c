// Package metastore provides the persistence backends behind the metadata
// store: one JSON-shaped record per (agent, workspace slot) key, with atomic
// writes.
package metastore

import "errors"

// ErrNotFound is returned when no record exists for a key.
var ErrNotFound = errors.New("record not found")

// Backend reads and atomically writes one record per key. Keys are
// slash-separated ("<agent>/<slot>").
type Backend interface {
	// Read returns the stored bytes for key, or ErrNotFound.
	Read(key string) ([]byte, error)
	// Write persists data under key. The write is atomic: a crash mid-write
	// never leaves a partially-written record visible.
	Write(key string, data []byte) error
	// Delete removes the record for key. Deleting a missing key is a no-op.
	Delete(key string) error
	// Close releases any resources held by the backend.
	Close() error
}
