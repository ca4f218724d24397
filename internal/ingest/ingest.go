package ingest

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// IngestionResult is the per-file ingest outcome.
type IngestionResult struct {
	SourcePath   string    `json:"sourcePath"`
	FileID       string    `json:"fileId,omitempty"`
	Deduplicated bool      `json:"deduplicated"`
	HashHex      string    `json:"hash,omitempty"`
	FileExt      string    `json:"fileExt,omitempty"`
	Format       string    `json:"format,omitempty"`
	UploadedAt   time.Time `json:"uploadedAt"`
	Err          string    `json:"error,omitempty"`
}

// DirStats summarizes a directory ingest.
type DirStats struct {
	Scanned      uint32 `json:"scanned"`
	Matched      uint32 `json:"matched"`
	Succeeded    uint32 `json:"succeeded"`
	Deduplicated uint32 `json:"deduplicated"`
	Failed       uint32 `json:"failed"`
}

// Ingestor registers drawings with a project.
type Ingestor interface {
	// IngestPath registers a single drawing.
	IngestPath(ctx context.Context, projectID uuid.UUID, path string) (IngestionResult, error)
	// IngestDirectory registers all matching drawings under root.
	IngestDirectory(ctx context.Context, projectID uuid.UUID, root string, skipHidden bool) ([]IngestionResult, DirStats, error)
}
