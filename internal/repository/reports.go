package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/structural-analysis/constants"
	"github.com/joseph-ayodele/structural-analysis/internal/common"
	"github.com/joseph-ayodele/structural-analysis/internal/entity"
)

// ReportRepository persists analysis runs. Every transition out of
// processing is conditional, so a run ends in exactly one terminal state.
type ReportRepository interface {
	// StartProcessing inserts a processing run unless the project already has
	// one, in which case it returns ErrAnalysisInProgress.
	StartProcessing(ctx context.Context, projectID uuid.UUID) (*entity.StructuralAnalysis, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entity.StructuralAnalysis, error)
	ListByProject(ctx context.Context, projectID uuid.UUID, limit int) ([]entity.StructuralAnalysis, error)
	LatestCompleted(ctx context.Context, projectID uuid.UUID) (*entity.StructuralAnalysis, error)
	SetProgress(ctx context.Context, id uuid.UUID, progress int) error
	Complete(ctx context.Context, id uuid.UUID, result entity.StructuralAnalysis) error
	Fail(ctx context.Context, id uuid.UUID, msg string) error
	Cancel(ctx context.Context, id uuid.UUID) error
}

type reportRepo struct {
	db     *DB
	logger *slog.Logger
	now    func() time.Time
}

func NewReportRepository(db *DB, logger *slog.Logger) ReportRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &reportRepo{db: db, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// reportData is the JSON document stored in project_reports.data.
type reportData struct {
	Elements        []entity.StructuralElement `json:"elements"`
	TotalArea       float64                    `json:"totalArea"`
	TotalConcrete   float64                    `json:"totalConcrete"`
	TotalSteel      float64                    `json:"totalSteel"`
	Inconsistencies []entity.Inconsistency     `json:"inconsistencies"`
	Optimizations   []entity.Optimization      `json:"optimizations"`
}

var reportColumns = []string{"id", "project_id", "status", "progress", "error_message", "data", "created_at", "updated_at"}

func (r *reportRepo) StartProcessing(ctx context.Context, projectID uuid.UUID) (*entity.StructuralAnalysis, error) {
	ok, err := projectExists(ctx, r.db.drv, r.db.builder(), projectID)
	if err != nil {
		return nil, common.WrapError(err, "check project")
	}
	if !ok {
		return nil, fmt.Errorf("project %s: %w", projectID, common.ErrNotFound)
	}

	now := r.now()
	a := &entity.StructuralAnalysis{
		ID:        uuid.New(),
		ProjectID: projectID,
		Status:    constants.StatusProcessing,
		CreatedAt: now,
		UpdatedAt: now,
	}
	// the partial unique index turns a concurrent second start into a no-op
	ins := r.db.builder().Insert(ProjectReportsTable.Name).
		Columns(reportColumns...).
		Values(a.ID, a.ProjectID, string(a.Status), 0, nil, nil, a.CreatedAt, a.UpdatedAt).
		OnConflict(
			entsql.ConflictColumns("project_id"),
			entsql.ConflictWhere(entsql.ExprP("status = 'processing'")),
			entsql.DoNothing(),
		)
	n, err := exec(ctx, r.db.drv, ins)
	if err != nil {
		r.logger.Error("failed to start analysis", "project_id", projectID, "error", err)
		return nil, common.WrapError(err, "start analysis")
	}
	if n == 0 {
		r.logger.Info("analysis already in progress", "project_id", projectID)
		return nil, common.ErrAnalysisInProgress
	}
	r.logger.Info("analysis started", "analysis_id", a.ID, "project_id", projectID)
	return a, nil
}

func (r *reportRepo) list(ctx context.Context, where *entsql.Predicate, limit int) ([]entity.StructuralAnalysis, error) {
	sel := r.db.builder().Select(reportColumns...).
		From(entsql.Table(ProjectReportsTable.Name)).
		Where(where).
		OrderBy(entsql.Desc("created_at"))
	if limit > 0 {
		sel.Limit(limit)
	}
	out := []entity.StructuralAnalysis{}
	err := queryRows(ctx, r.db.drv, sel, func(rows *entsql.Rows) error {
		var (
			a      entity.StructuralAnalysis
			status string
			errMsg sql.NullString
			data   []byte
		)
		if err := rows.Scan(&a.ID, &a.ProjectID, &status, &a.Progress, &errMsg, &data, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return err
		}
		a.Status = constants.Status(status)
		if errMsg.Valid {
			a.ErrorMessage = &errMsg.String
		}
		var d reportData
		if err := decodeJSON(data, &d); err != nil {
			return fmt.Errorf("analysis %s data: %w", a.ID, err)
		}
		a.Elements = d.Elements
		a.TotalArea, a.TotalConcrete, a.TotalSteel = d.TotalArea, d.TotalConcrete, d.TotalSteel
		a.Inconsistencies = d.Inconsistencies
		a.Optimizations = d.Optimizations
		out = append(out, a)
		return nil
	})
	return out, err
}

func (r *reportRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.StructuralAnalysis, error) {
	out, err := r.list(ctx, entsql.EQ("id", id), 1)
	if err != nil {
		r.logger.Error("failed to get analysis", "analysis_id", id, "error", err)
		return nil, common.WrapError(err, "get analysis")
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("analysis %s: %w", id, common.ErrNotFound)
	}
	return &out[0], nil
}

func (r *reportRepo) ListByProject(ctx context.Context, projectID uuid.UUID, limit int) ([]entity.StructuralAnalysis, error) {
	out, err := r.list(ctx, entsql.EQ("project_id", projectID), limit)
	if err != nil {
		return nil, common.WrapError(err, "list analyses")
	}
	return out, nil
}

func (r *reportRepo) LatestCompleted(ctx context.Context, projectID uuid.UUID) (*entity.StructuralAnalysis, error) {
	out, err := r.list(ctx, entsql.And(
		entsql.EQ("project_id", projectID),
		entsql.EQ("status", string(constants.StatusCompleted)),
	), 1)
	if err != nil {
		return nil, common.WrapError(err, "latest completed analysis")
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("completed analysis for project %s: %w", projectID, common.ErrNotFound)
	}
	return &out[0], nil
}

func (r *reportRepo) SetProgress(ctx context.Context, id uuid.UUID, progress int) error {
	upd := r.db.builder().Update(ProjectReportsTable.Name).
		Set("progress", progress).
		Set("updated_at", r.now()).
		Where(processing(id))
	if _, err := exec(ctx, r.db.drv, upd); err != nil {
		return common.WrapError(err, "set analysis progress")
	}
	return nil
}

func (r *reportRepo) Complete(ctx context.Context, id uuid.UUID, result entity.StructuralAnalysis) error {
	data := reportData{
		Elements:        result.Elements,
		TotalArea:       result.TotalArea,
		TotalConcrete:   result.TotalConcrete,
		TotalSteel:      result.TotalSteel,
		Inconsistencies: result.Inconsistencies,
		Optimizations:   result.Optimizations,
	}
	upd := r.db.builder().Update(ProjectReportsTable.Name).
		Set("status", string(constants.StatusCompleted)).
		Set("progress", 100).
		Set("data", mustJSON(data)).
		Set("updated_at", r.now()).
		Where(processing(id))
	return r.transition(ctx, id, upd, constants.StatusCompleted)
}

func (r *reportRepo) Fail(ctx context.Context, id uuid.UUID, msg string) error {
	upd := r.db.builder().Update(ProjectReportsTable.Name).
		Set("status", string(constants.StatusError)).
		Set("error_message", msg).
		Set("updated_at", r.now()).
		Where(processing(id))
	return r.transition(ctx, id, upd, constants.StatusError)
}

func (r *reportRepo) Cancel(ctx context.Context, id uuid.UUID) error {
	upd := r.db.builder().Update(ProjectReportsTable.Name).
		Set("status", string(constants.StatusCancelled)).
		Set("updated_at", r.now()).
		Where(processing(id))
	return r.transition(ctx, id, upd, constants.StatusCancelled)
}

func processing(id uuid.UUID) *entsql.Predicate {
	return entsql.And(
		entsql.EQ("id", id),
		entsql.EQ("status", string(constants.StatusProcessing)),
	)
}

func (r *reportRepo) transition(ctx context.Context, id uuid.UUID, upd *entsql.UpdateBuilder, to constants.Status) error {
	n, err := exec(ctx, r.db.drv, upd)
	if err != nil {
		r.logger.Error("failed to update analysis", "analysis_id", id, "status", to, "error", err)
		return common.WrapError(err, "update analysis")
	}
	if n == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return fmt.Errorf("analysis %s: %w", id, common.ErrNotProcessing)
	}
	r.logger.Info("analysis finished", "analysis_id", id, "status", to)
	return nil
}
