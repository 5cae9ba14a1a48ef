package repositories

import "context"

// BlobStore keeps uploaded profile images by name
type BlobStore interface {
	// Store saves data under name and returns the public reference.
	Store(ctx context.Context, name string, data []byte) (string, error)
	// Serve returns the stored bytes or ErrNotFound.
	Serve(ctx context.Context, name string) ([]byte, error)
	// Delete removes the blob; a missing blob is not an error.
	Delete(ctx context.Context, name string) error
}
