// Package store persists cached image assets and published JSON payloads.
// Keys are content-addressed upstream; writes are idempotent, so backends
// need no locking and concurrent writers for the same key are harmless.
package store

import "context"

// Store is the asset store shared by the refresh pipeline and the HTTP
// surface. Implementations are append-only: an existing key+ext pair is
// only ever overwritten with equivalent bytes.
type Store interface {
	// Exists reports whether an asset is already cached under key+ext.
	Exists(ctx context.Context, key, ext string) (bool, error)

	// Write stores asset bytes under key+ext. Must not expose partial
	// writes to readers.
	Write(ctx context.Context, key, ext string, data []byte, contentType string) error

	// PublicRef returns the reference clients use to reach the asset:
	// a path under the static prefix (local) or an absolute URL (s3).
	PublicRef(key, ext string) string

	// Publish atomically replaces a named payload (e.g. "news.json").
	Publish(ctx context.Context, name string, data []byte, contentType string) error

	// ReadPublished returns the bytes of a previously published payload.
	ReadPublished(ctx context.Context, name string) ([]byte, error)
}
