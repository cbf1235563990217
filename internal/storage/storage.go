// Package storage persists finished engine outputs. It defines the
// Storage port plus a local-disk implementation and an S3-backed one
// for delivering videos to players via public URLs.
package storage

import (
	"context"
	"io"
)

// Storage defines the interface for persisting finished outputs.
type Storage interface {
	// SaveOutput writes data under the given filename in the output
	// area and returns the resulting path.
	SaveOutput(ctx context.Context, filename string, data io.Reader) (path string, err error)

	// Open returns a reader for a previously saved output.
	// The caller is responsible for closing the returned ReadCloser.
	Open(ctx context.Context, path string) (io.ReadCloser, error)

	// Remove deletes the specified outputs. It continues past
	// individual failures and returns the first error encountered.
	Remove(ctx context.Context, paths []string) error

	// UploadToS3 uploads data to S3 and returns the public URL.
	// Returns ErrS3NotConfigured if S3 is not configured.
	UploadToS3(ctx context.Context, key string, data io.Reader) (url string, err error)
}
