package s3blob

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/alanyoungcy/soldscout/internal/domain"
)

// multipartThreshold is the output size above which the archiver switches
// from a single PutObject to a multipart upload.
const multipartThreshold int64 = 64 * 1024 * 1024

// ArchiveImpl implements domain.Archiver by uploading the finished output
// snapshot, partitioned by run date.
//
// The local output file is intentionally NOT removed after upload; it remains
// the resume source for any follow-up run against the same dataset.
type ArchiveImpl struct {
	writer    domain.BlobWriter
	clock     func() time.Time
	threshold int64
}

// NewArchiver creates a new ArchiveImpl.
func NewArchiver(writer domain.BlobWriter) *ArchiveImpl {
	return &ArchiveImpl{
		writer:    writer,
		clock:     time.Now,
		threshold: multipartThreshold,
	}
}

// ArchiveRun uploads the output CSV at outputPath to
// runs/YYYY-MM-DD/<run-id>.csv and returns the object key. Large snapshots
// go through the multipart uploader.
func (a *ArchiveImpl) ArchiveRun(ctx context.Context, runID, outputPath string) (string, error) {
	f, err := os.Open(outputPath)
	if err != nil {
		return "", fmt.Errorf("s3blob: archive run open %s: %w", outputPath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("s3blob: archive run stat %s: %w", outputPath, err)
	}

	key := archiveKey(runID, a.clock())

	if info.Size() > a.threshold {
		err = a.writer.PutMultipart(ctx, key, f, "text/csv", minPartSize)
	} else {
		err = a.writer.Put(ctx, key, f, "text/csv")
	}
	if err != nil {
		return "", fmt.Errorf("s3blob: archive run upload: %w", err)
	}

	return key, nil
}

// archiveKey builds the S3 key for a run archive, partitioned by run date.
//
//	runs/2025-01-31/0c9d9d8e-....csv
func archiveKey(runID string, at time.Time) string {
	return fmt.Sprintf("runs/%s/%s.csv", at.UTC().Format("2006-01-02"), runID)
}

// Compile-time interface check.
var _ domain.Archiver = (*ArchiveImpl)(nil)
