// Package storage defines the content-addressed artifact store that holds
// serialized structure predictions.  Keys are sequence digests; the stored
// value for a digest never changes, so concurrent writers may race freely
// and last-write-wins is safe.
package storage

import "context"

// ArtifactStore persists serialized PDB artifacts keyed by sequence digest.
type ArtifactStore interface {
	// Put stores the artifact under the digest, replacing any existing
	// object atomically.
	Put(ctx context.Context, digest string, data []byte) error

	// Get returns the artifact for the digest, or an error with
	// ErrCodeStructureNotFound when no artifact exists.
	Get(ctx context.Context, digest string) ([]byte, error)

	// Exists reports whether an artifact is stored under the digest.
	Exists(ctx context.Context, digest string) (bool, error)
}

// ObjectName maps a sequence digest to its stored object name.
func ObjectName(digest string) string {
	return digest + ".pdb"
}
