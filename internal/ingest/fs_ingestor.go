package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/structural-analysis/constants"
	"github.com/joseph-ayodele/structural-analysis/internal/common"
	"github.com/joseph-ayodele/structural-analysis/internal/entity"
	"github.com/joseph-ayodele/structural-analysis/internal/repository"
)

// ProjectLookup resolves the project a drawing is registered with.
type ProjectLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Project, error)
}

// FileStore persists registered drawings.
type FileStore interface {
	UpsertByHash(ctx context.Context, f repository.NewFile) (*entity.ProjectFile, bool, error)
}

// FSIngestor reads drawings from the local filesystem.
type FSIngestor struct {
	projects ProjectLookup
	files    FileStore
	workers  int
	logger   *slog.Logger
}

func NewFSIngestor(p ProjectLookup, f FileStore, workers int, logger *slog.Logger) *FSIngestor {
	if logger == nil {
		logger = slog.Default()
	}
	if workers <= 0 {
		workers = 4
	}
	return &FSIngestor{projects: p, files: f, workers: workers, logger: logger}
}

func (i *FSIngestor) IngestPath(ctx context.Context, projectID uuid.UUID, path string) (IngestionResult, error) {
	var out IngestionResult

	abs, err := filepath.Abs(path)
	if err != nil {
		return out, fmt.Errorf("abs path: %w", err)
	}

	ext := constants.NormalizeExt(filepath.Ext(abs))
	format := constants.MapExtToFormat(ext)
	if ext == "" || !AllowedExt(ext) || format == "" {
		i.logger.Warn("unsupported or missing extension", "path", abs, "ext", ext)
		return out, fmt.Errorf("extension %q: %w", ext, common.ErrUnsupportedFormat)
	}

	if _, err := i.projects.GetByID(ctx, projectID); err != nil {
		return out, err
	}

	f, err := os.Open(abs)
	if err != nil {
		return out, fmt.Errorf("open: %w", err)
	}
	defer func(f *os.File) {
		if err := f.Close(); err != nil {
			i.logger.Warn("close file error", "path", abs, "error", err)
		}
	}(f)

	h := sha256.New()
	size, err := io.Copy(h, f)
	if err != nil {
		return out, fmt.Errorf("hash: %w", err)
	}
	sum := h.Sum(nil)

	row, dedup, err := i.files.UpsertByHash(ctx, repository.NewFile{
		ProjectID:  projectID,
		SourcePath: abs,
		Filename:   filepath.Base(abs),
		Ext:        ext,
		Format:     format,
		Size:       int(size),
		Hash:       sum,
		UploadedAt: time.Now().UTC(),
	})
	if err != nil {
		return out, err
	}

	out = IngestionResult{
		SourcePath:   row.SourcePath,
		FileID:       row.ID.String(),
		Deduplicated: dedup,
		HashHex:      hex.EncodeToString(sum),
		FileExt:      row.FileExt,
		Format:       row.Format,
		UploadedAt:   row.UploadedAt,
	}
	i.logger.Info("drawing ingested",
		"project_id", projectID,
		"file_id", out.FileID,
		"path", abs,
		"format", format,
		"deduplicated", dedup,
	)
	return out, nil
}

// IngestDirectory walks root, skips hidden entries if requested and ingests
// every drawing it finds. Files are hashed and stored by a bounded group of
// workers; results keep walk order.
func (i *FSIngestor) IngestDirectory(
	ctx context.Context,
	projectID uuid.UUID,
	root string,
	skipHidden bool,
) ([]IngestionResult, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, fmt.Errorf("root path is required: %w", common.ErrInvalidInput)
	}
	if _, err := i.projects.GetByID(ctx, projectID); err != nil {
		return nil, DirStats{}, err
	}

	var (
		paths []string
		stats DirStats
		early []IngestionResult
	)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		stats.Scanned++
		if walkErr != nil {
			early = append(early, IngestionResult{SourcePath: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if skipHidden && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !AllowedExt(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return early, stats, fmt.Errorf("walk: %w", err)
	}

	results := make([]IngestionResult, len(paths))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(i.workers)
	for idx, p := range paths {
		g.Go(func() error {
			r, err := i.IngestPath(gctx, projectID, p)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				// a bad file does not stop the walk, a cancelled context does
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				results[idx] = IngestionResult{SourcePath: p, Err: err.Error()}
				stats.Failed++
				return nil
			}
			results[idx] = r
			stats.Succeeded++
			if r.Deduplicated {
				stats.Deduplicated++
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return append(early, results...), stats, err
	}
	return append(early, results...), stats, nil
}
