package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/structural-analysis/constants"
	"github.com/joseph-ayodele/structural-analysis/internal/async"
	"github.com/joseph-ayodele/structural-analysis/internal/common"
	"github.com/joseph-ayodele/structural-analysis/internal/entity"
	"github.com/joseph-ayodele/structural-analysis/internal/metrics"
)

// Store is the report persistence the orchestrator relies on. Complete, Fail
// and Cancel only apply to a processing run.
type Store interface {
	StartProcessing(ctx context.Context, projectID uuid.UUID) (*entity.StructuralAnalysis, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entity.StructuralAnalysis, error)
	ListByProject(ctx context.Context, projectID uuid.UUID, limit int) ([]entity.StructuralAnalysis, error)
	SetProgress(ctx context.Context, id uuid.UUID, progress int) error
	Complete(ctx context.Context, id uuid.UUID, result entity.StructuralAnalysis) error
	Fail(ctx context.Context, id uuid.UUID, msg string) error
	Cancel(ctx context.Context, id uuid.UUID) error
}

// Analyzer computes an analysis from the project's persisted elements.
type Analyzer interface {
	Analyze(ctx context.Context, projectID uuid.UUID) (entity.StructuralAnalysis, error)
}

// StatusView is what a client polls while an analysis runs.
type StatusView struct {
	ID           uuid.UUID                  `json:"id"`
	ProjectID    uuid.UUID                  `json:"projectId"`
	Status       constants.Status           `json:"status"`
	ErrorMessage *string                    `json:"errorMessage,omitempty"`
	Progress     int                        `json:"progress"`
	Results      *entity.StructuralAnalysis `json:"results,omitempty"`
}

// Orchestrator starts analyses in the background and tracks their state.
// At most one analysis per project is processing at any time; the store
// enforces that atomically.
type Orchestrator struct {
	store    Store
	analyzer Analyzer
	queue    async.Queue
	metrics  *metrics.Metrics
	logger   *slog.Logger

	mu      sync.Mutex
	running map[uuid.UUID]context.CancelFunc
}

func NewOrchestrator(store Store, analyzer Analyzer, queue async.Queue, m *metrics.Metrics, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		store:    store,
		analyzer: analyzer,
		queue:    queue,
		metrics:  m,
		logger:   logger,
		running:  map[uuid.UUID]context.CancelFunc{},
	}
}

// Start records a processing analysis and schedules its computation. It
// returns as soon as the job is queued.
func (o *Orchestrator) Start(ctx context.Context, projectID uuid.UUID) (*entity.StructuralAnalysis, error) {
	a, err := o.store.StartProcessing(ctx, projectID)
	if err != nil {
		if errors.Is(err, common.ErrAnalysisInProgress) {
			o.logger.Info("analysis rejected, one already processing", "project_id", projectID)
		}
		return nil, err
	}
	job := async.Job{Kind: async.KindAnalysis, ID: a.ID, ProjectID: projectID}
	if err := o.queue.Enqueue(ctx, job); err != nil {
		// nothing will pick the run up; release the project
		o.finishFailed(a.ID, fmt.Errorf("enqueue analysis: %w", err))
		return nil, fmt.Errorf("enqueue analysis: %w", err)
	}
	o.logger.Info("analysis queued", "analysis_id", a.ID, "project_id", projectID)
	return a, nil
}

// HandleJob is the async.Handler for async.KindAnalysis jobs. Every run ends
// in exactly one terminal state.
func (o *Orchestrator) HandleJob(ctx context.Context, job async.Job) error {
	start := time.Now()
	ctx, cancel := context.WithCancel(ctx)
	o.track(job.ID, cancel)
	defer o.untrack(job.ID)
	defer cancel()

	log := o.logger.With("analysis_id", job.ID, "project_id", job.ProjectID)
	if rid := common.RequestIDFromContext(ctx); rid != "" {
		log = log.With("request_id", rid)
	}
	ctx = common.WithLogger(ctx, log)

	if err := o.store.SetProgress(ctx, job.ID, 10); err != nil {
		log.Warn("failed to record progress", "error", err)
	}

	result, err := o.analyzer.Analyze(ctx, job.ProjectID)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		if errors.Is(err, context.Canceled) && o.isCancelled(job.ID) {
			log.Info("analysis stopped after cancel")
			o.metrics.RecordAnalysis(string(constants.StatusCancelled), time.Since(start))
			return nil
		}
		o.finishFailed(job.ID, err)
		o.metrics.RecordAnalysis(string(constants.StatusError), time.Since(start))
		return err
	}

	// fresh context: the result must be stored even if the job deadline is near
	storeCtx, storeCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer storeCancel()
	if err := o.store.Complete(storeCtx, job.ID, result); err != nil {
		if errors.Is(err, common.ErrNotProcessing) {
			log.Info("analysis finished after it left processing, result discarded")
			return nil
		}
		o.finishFailed(job.ID, err)
		o.metrics.RecordAnalysis(string(constants.StatusError), time.Since(start))
		return err
	}

	for _, inc := range result.Inconsistencies {
		o.metrics.RecordInconsistency(string(inc.Type), string(inc.Severity))
	}
	o.metrics.RecordAnalysis(string(constants.StatusCompleted), time.Since(start))
	log.Info("analysis completed",
		"elements", len(result.Elements),
		"inconsistencies", len(result.Inconsistencies),
		"optimizations", len(result.Optimizations),
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return nil
}

func (o *Orchestrator) finishFailed(id uuid.UUID, cause error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := o.store.Fail(ctx, id, cause.Error()); err != nil && !errors.Is(err, common.ErrNotProcessing) {
		o.logger.Error("failed to record analysis failure", "analysis_id", id, "error", errors.Join(cause, err))
		return
	}
	o.logger.Warn("analysis failed", "analysis_id", id, "error", cause)
}

// Status reports the run state, with results once completed.
func (o *Orchestrator) Status(ctx context.Context, id uuid.UUID) (*StatusView, error) {
	a, err := o.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	v := &StatusView{
		ID:           a.ID,
		ProjectID:    a.ProjectID,
		Status:       a.Status,
		ErrorMessage: a.ErrorMessage,
		Progress:     a.Progress,
	}
	if a.Status == constants.StatusCompleted {
		v.Results = a
	}
	return v, nil
}

// Results returns the completed analysis, or ErrNotCompleted.
func (o *Orchestrator) Results(ctx context.Context, id uuid.UUID) (*entity.StructuralAnalysis, error) {
	a, err := o.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status != constants.StatusCompleted {
		return nil, fmt.Errorf("analysis %s is %s: %w", id, a.Status, common.ErrNotCompleted)
	}
	return a, nil
}

// Cancel moves a processing run to cancelled and stops its computation if
// it is running in this process.
func (o *Orchestrator) Cancel(ctx context.Context, id uuid.UUID) error {
	if err := o.store.Cancel(ctx, id); err != nil {
		return err
	}
	o.mu.Lock()
	cancel, ok := o.running[id]
	o.mu.Unlock()
	if ok {
		cancel()
	}
	o.logger.Info("analysis cancelled", "analysis_id", id, "was_running", ok)
	return nil
}

// List returns the project's runs, newest first.
func (o *Orchestrator) List(ctx context.Context, projectID uuid.UUID, limit int) ([]entity.StructuralAnalysis, error) {
	return o.store.ListByProject(ctx, projectID, limit)
}

func (o *Orchestrator) track(id uuid.UUID, cancel context.CancelFunc) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.running[id] = cancel
}

func (o *Orchestrator) untrack(id uuid.UUID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.running, id)
}

// isCancelled reports whether the stored run was cancelled by a client.
func (o *Orchestrator) isCancelled(id uuid.UUID) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	a, err := o.store.GetByID(ctx, id)
	return err == nil && a.Status == constants.StatusCancelled
}
