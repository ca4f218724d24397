package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/structural-analysis/constants"
	"github.com/joseph-ayodele/structural-analysis/internal/common"
	"github.com/joseph-ayodele/structural-analysis/internal/entity"
	"github.com/joseph-ayodele/structural-analysis/internal/extract"
	"github.com/joseph-ayodele/structural-analysis/internal/metrics"
	"github.com/joseph-ayodele/structural-analysis/internal/ocr"
)

// FileStore is the part of the file repository the processor drives.
type FileStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*entity.ProjectFile, error)
	MarkProcessing(ctx context.Context, id uuid.UUID) error
	MarkError(ctx context.Context, id uuid.UUID, msg string) error
}

// DataStore persists extracted data and completes the file in one step.
type DataStore interface {
	SaveExtractedData(ctx context.Context, projectID, fileID uuid.UUID, data *entity.ExtractedData) error
}

// PageSource returns the embedded text of each PDF page.
type PageSource interface {
	Pages(ctx context.Context, path string) ([]string, error)
}

// Processor turns one uploaded drawing into persisted elements, notes and
// tables. File status moves pending -> processing -> completed | error.
type Processor struct {
	files      FileStore
	data       DataStore
	pdf        PageSource
	recognizer ocr.Recognizer
	detector   extract.TableDetector
	defaults   common.ExtractionConfig
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

type Option func(*Processor)

// WithTableDetector adds a layout-based detector that runs before the
// pipe-line heuristic on PDF pages.
func WithTableDetector(d extract.TableDetector) Option {
	return func(p *Processor) { p.detector = d }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Processor) { p.metrics = m }
}

func WithDefaults(c common.ExtractionConfig) Option {
	return func(p *Processor) { p.defaults = c }
}

func NewProcessor(files FileStore, data DataStore, pdf PageSource, recognizer ocr.Recognizer, logger *slog.Logger, opts ...Option) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Processor{
		files:      files,
		data:       data,
		pdf:        pdf,
		recognizer: recognizer,
		logger:     logger,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Process extracts and stores everything found in the file. On failure the
// file is marked error and the original error is returned.
func (p *Processor) Process(ctx context.Context, fileID uuid.UUID) (*entity.ExtractedData, error) {
	start := time.Now()
	file, err := p.files.GetByID(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}
	if err := p.files.MarkProcessing(ctx, fileID); err != nil {
		return nil, err
	}
	log := p.logger.With("file_id", fileID, "project_id", file.ProjectID, "format", file.Format)
	log.Info("file processing started", "filename", file.Filename)

	data, err := p.extract(ctx, file)
	if err == nil {
		err = p.data.SaveExtractedData(ctx, file.ProjectID, file.ID, data)
	}
	if err != nil {
		p.fail(fileID, err, log)
		p.metrics.RecordFileProcessed(file.Format, string(constants.StatusError), time.Since(start))
		return nil, err
	}

	for _, e := range data.Elements {
		p.metrics.RecordElement(string(e.Type))
	}
	p.metrics.RecordFileProcessed(file.Format, string(constants.StatusCompleted), time.Since(start))
	log.Info("file processing completed",
		"elements", len(data.Elements),
		"notes", len(data.Notes),
		"tables", len(data.Tables),
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return data, nil
}

// fail records the error on the file with a fresh context, so a cancelled
// or timed out run still leaves the file in a terminal state.
func (p *Processor) fail(fileID uuid.UUID, cause error, log *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.files.MarkError(ctx, fileID, cause.Error()); err != nil {
		log.Error("failed to mark file error", "error", errors.Join(cause, err))
		return
	}
	log.Warn("file processing failed", "error", cause)
}

func (p *Processor) extract(ctx context.Context, file *entity.ProjectFile) (*entity.ExtractedData, error) {
	format := file.Format
	if format == "" {
		format = constants.MapExtToFormat(file.FileExt)
	}
	switch format {
	case constants.PDF:
		return p.extractPDF(ctx, file)
	case constants.IMAGE:
		return p.extractImage(ctx, file)
	case constants.DWG:
		return nil, fmt.Errorf("dwg drawings: %w", common.ErrNotImplemented)
	default:
		return nil, fmt.Errorf("%q: %w", file.FileExt, common.ErrUnsupportedFormat)
	}
}

func (p *Processor) extractPDF(ctx context.Context, file *entity.ProjectFile) (*entity.ExtractedData, error) {
	pages, err := p.pdf.Pages(ctx, file.SourcePath)
	if err != nil {
		return nil, err
	}
	b := newBuilder(p.defaults)
	for i, text := range pages {
		page := i + 1
		b.addElements(page, extract.ExtractElements(text))
		b.addNotes(page, extract.ExtractNotes(text))

		var found []extract.TableDraft
		if p.detector != nil {
			var err error
			found, err = p.detector.DetectTables(ctx, page, text)
			if err != nil {
				p.logger.Warn("table detector failed, using text heuristic", "file_id", file.ID, "page", page, "error", err)
			}
			b.addTables(page, found)
		}
		b.addTables(page, withoutDetected(found, extract.ExtractTables(text)))
	}
	return b.build(), nil
}

// withoutDetected drops heuristic tables whose content the detector already
// returned for the same page.
func withoutDetected(detected, heuristic []extract.TableDraft) []extract.TableDraft {
	if len(detected) == 0 {
		return heuristic
	}
	out := make([]extract.TableDraft, 0, len(heuristic))
	for _, h := range heuristic {
		dup := slices.ContainsFunc(detected, func(d extract.TableDraft) bool {
			return sameTable(d.Data, h.Data)
		})
		if !dup {
			out = append(out, h)
		}
	}
	return out
}

func sameTable(a, b entity.TableData) bool {
	return slices.Equal(a.Headers, b.Headers) &&
		slices.EqualFunc(a.Rows, b.Rows, func(x, y map[string]string) bool { return maps.Equal(x, y) })
}

func (p *Processor) extractImage(ctx context.Context, file *entity.ProjectFile) (*entity.ExtractedData, error) {
	if p.recognizer == nil {
		return nil, fmt.Errorf("image drawings: no recognizer configured: %w", common.ErrNotImplemented)
	}
	res, err := p.recognizer.Recognize(ctx, file.SourcePath)
	if err != nil {
		return nil, err
	}
	p.logger.Debug("image recognized",
		"file_id", file.ID,
		"engine", res.Engine,
		"confidence", res.Confidence,
		"cached", res.Cached,
	)
	b := newBuilder(p.defaults)
	b.addElements(1, extract.ExtractElements(res.Text))
	b.addNotes(1, extract.ExtractNotes(res.Text))
	return b.build(), nil
}
