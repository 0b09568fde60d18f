package domain

import (
	"context"
	"io"
)

// BlobWriter uploads objects to blob storage.
type BlobWriter interface {
	// Put uploads data under the given path with the given content type.
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
	// PutMultipart uploads data in partSize parts, for payloads too large
	// for a single request.
	PutMultipart(ctx context.Context, path string, data io.Reader, contentType string, partSize int64) error
}

// Archiver uploads a finished run's output snapshot to blob storage.
type Archiver interface {
	// ArchiveRun uploads the output file for the given run and returns the
	// blob path it was stored under.
	ArchiveRun(ctx context.Context, runID, outputPath string) (string, error)
}
