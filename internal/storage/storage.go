// Package storage provides the object store the renderer and assembler
// persist audio artifacts through. The interface mirrors what a bucket
// offers (put/get/list/delete plus an externally usable URL) so a cloud
// backend can replace the local one without touching callers.
package storage

import "context"

// Store is the artifact storage contract.
type Store interface {
	// Put writes data under path and returns the artifact location.
	Put(ctx context.Context, data []byte, path string) (string, error)
	// Get reads the bytes at a location previously returned by Put,
	// or at a bare path.
	Get(ctx context.Context, location string) ([]byte, error)
	// List returns locations under prefix in lexical order.
	List(ctx context.Context, prefix string) ([]string, error)
	// Delete removes the object at location.
	Delete(ctx context.Context, location string) error
	// URL returns an externally resolvable URL for location.
	URL(location string) string
	// Exists reports whether an object is present at location.
	Exists(ctx context.Context, location string) bool
}
