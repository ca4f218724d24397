package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/structural-analysis/constants"
	"github.com/joseph-ayodele/structural-analysis/internal/async"
	"github.com/joseph-ayodele/structural-analysis/internal/common"
	"github.com/joseph-ayodele/structural-analysis/internal/entity"
)

// ExtractedReader reads back what a completed file produced.
type ExtractedReader interface {
	ListElementsByFile(ctx context.Context, fileID uuid.UUID) ([]entity.StructuralElement, error)
	ListNotesByFile(ctx context.Context, fileID uuid.UUID) ([]entity.TechnicalNote, error)
	ListTablesByFile(ctx context.Context, fileID uuid.UUID) ([]entity.Table, error)
}

// Service schedules file processing on the worker pool and reports status.
type Service struct {
	proc   *Processor
	files  FileStore
	reader ExtractedReader
	queue  async.Queue
	logger *slog.Logger
}

func NewService(proc *Processor, files FileStore, reader ExtractedReader, queue async.Queue, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{proc: proc, files: files, reader: reader, queue: queue, logger: logger}
}

// HandleJob is the async.Handler for async.KindProcessFile jobs.
func (s *Service) HandleJob(ctx context.Context, job async.Job) error {
	_, err := s.proc.Process(ctx, job.ID)
	return err
}

// Enqueue schedules processing of a stored file. A file already being
// processed is rejected up front; the processor re-checks atomically.
func (s *Service) Enqueue(ctx context.Context, fileID uuid.UUID) (*entity.ProjectFile, error) {
	f, err := s.files.GetByID(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if constants.Status(f.Status) == constants.StatusProcessing {
		return nil, fmt.Errorf("file %s: %w", fileID, common.ErrFileBusy)
	}
	if err := s.queue.Enqueue(ctx, async.Job{Kind: async.KindProcessFile, ID: f.ID, ProjectID: f.ProjectID}); err != nil {
		return nil, fmt.Errorf("enqueue file: %w", err)
	}
	s.logger.Info("file queued for processing", "file_id", f.ID, "project_id", f.ProjectID)
	return f, nil
}

// Status returns the file with its extracted data once completed.
func (s *Service) Status(ctx context.Context, fileID uuid.UUID) (*entity.ProjectFile, error) {
	f, err := s.files.GetByID(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if constants.Status(f.Status) != constants.StatusCompleted {
		return f, nil
	}
	data := &entity.ExtractedData{}
	if data.Elements, err = s.reader.ListElementsByFile(ctx, fileID); err != nil {
		return nil, err
	}
	if data.Notes, err = s.reader.ListNotesByFile(ctx, fileID); err != nil {
		return nil, err
	}
	if data.Tables, err = s.reader.ListTablesByFile(ctx, fileID); err != nil {
		return nil, err
	}
	f.Extracted = data
	return f, nil
}
