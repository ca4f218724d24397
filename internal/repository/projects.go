package repository

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/structural-analysis/internal/common"
	"github.com/joseph-ayodele/structural-analysis/internal/entity"
)

type ProjectRepository interface {
	Create(ctx context.Context, name string) (*entity.Project, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Project, error)
	List(ctx context.Context) ([]entity.Project, error)
}

type projectRepo struct {
	db     *DB
	logger *slog.Logger
}

func NewProjectRepository(db *DB, logger *slog.Logger) ProjectRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &projectRepo{db: db, logger: logger}
}

func (r *projectRepo) Create(ctx context.Context, name string) (*entity.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, common.NewAppError("INVALID_ARGUMENT", "project name is required", common.ErrInvalidInput)
	}
	now := time.Now().UTC()
	p := &entity.Project{ID: uuid.New(), Name: name, CreatedAt: now, UpdatedAt: now}
	ins := r.db.builder().Insert(ProjectsTable.Name).
		Columns("id", "name", "created_at", "updated_at").
		Values(p.ID, p.Name, p.CreatedAt, p.UpdatedAt)
	if _, err := exec(ctx, r.db.drv, ins); err != nil {
		r.logger.Error("failed to create project", "name", name, "error", err)
		return nil, common.WrapError(err, "create project")
	}
	r.logger.Info("project created", "project_id", p.ID, "name", name)
	return p, nil
}

func (r *projectRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Project, error) {
	sel := r.db.builder().Select("id", "name", "created_at", "updated_at").
		From(entsql.Table(ProjectsTable.Name)).
		Where(entsql.EQ("id", id))
	var out []entity.Project
	err := queryRows(ctx, r.db.drv, sel, func(rows *entsql.Rows) error {
		var p entity.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return err
		}
		out = append(out, p)
		return nil
	})
	if err != nil {
		r.logger.Error("failed to get project", "project_id", id, "error", err)
		return nil, common.WrapError(err, "get project")
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("project %s: %w", id, common.ErrNotFound)
	}
	return &out[0], nil
}

func (r *projectRepo) List(ctx context.Context) ([]entity.Project, error) {
	sel := r.db.builder().Select("id", "name", "created_at", "updated_at").
		From(entsql.Table(ProjectsTable.Name)).
		OrderBy(entsql.Desc("created_at"))
	out := []entity.Project{}
	err := queryRows(ctx, r.db.drv, sel, func(rows *entsql.Rows) error {
		var p entity.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return err
		}
		out = append(out, p)
		return nil
	})
	if err != nil {
		return nil, common.WrapError(err, "list projects")
	}
	return out, nil
}

// projectExists is used inside transactions, where GetByID would grab a
// second connection.
func projectExists(ctx context.Context, eq dialect.ExecQuerier, b *entsql.DialectBuilder, id uuid.UUID) (bool, error) {
	sel := b.Select("id").From(entsql.Table(ProjectsTable.Name)).Where(entsql.EQ("id", id))
	found := false
	err := queryRows(ctx, eq, sel, func(rows *entsql.Rows) error {
		found = true
		var ignored uuid.UUID
		return rows.Scan(&ignored)
	})
	return found, err
}
