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

// NewFile describes an uploaded drawing before it is stored.
type NewFile struct {
	ProjectID  uuid.UUID
	SourcePath string
	Filename   string
	Ext        string
	Format     string
	Size       int
	Hash       []byte
	UploadedAt time.Time
}

type FileRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*entity.ProjectFile, error)
	GetByProjectAndHash(ctx context.Context, projectID uuid.UUID, hash []byte) (*entity.ProjectFile, error)
	Create(ctx context.Context, f NewFile) (*entity.ProjectFile, error)
	UpsertByHash(ctx context.Context, f NewFile) (*entity.ProjectFile, bool, error)
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]entity.ProjectFile, error)
	MarkProcessing(ctx context.Context, id uuid.UUID) error
	MarkError(ctx context.Context, id uuid.UUID, msg string) error
}

type fileRepo struct {
	db     *DB
	logger *slog.Logger
}

func NewFileRepository(db *DB, logger *slog.Logger) FileRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &fileRepo{db: db, logger: logger}
}

var fileColumns = []string{
	"id", "project_id", "source_path", "filename", "file_ext", "format",
	"file_size", "content_hash", "status", "error_message", "uploaded_at", "updated_at",
}

func scanFile(rows *entsql.Rows) (entity.ProjectFile, error) {
	var (
		f      entity.ProjectFile
		errMsg sql.NullString
	)
	err := rows.Scan(&f.ID, &f.ProjectID, &f.SourcePath, &f.Filename, &f.FileExt, &f.Format,
		&f.FileSize, &f.ContentHash, &f.Status, &errMsg, &f.UploadedAt, &f.UpdatedAt)
	if errMsg.Valid {
		f.ErrorMessage = &errMsg.String
	}
	return f, err
}

func (r *fileRepo) selectFiles(ctx context.Context, where *entsql.Predicate) ([]entity.ProjectFile, error) {
	sel := r.db.builder().Select(fileColumns...).
		From(entsql.Table(ProjectFilesTable.Name)).
		Where(where).
		OrderBy("uploaded_at")
	out := []entity.ProjectFile{}
	err := queryRows(ctx, r.db.drv, sel, func(rows *entsql.Rows) error {
		f, err := scanFile(rows)
		if err != nil {
			return err
		}
		out = append(out, f)
		return nil
	})
	return out, err
}

func (r *fileRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.ProjectFile, error) {
	files, err := r.selectFiles(ctx, entsql.EQ("id", id))
	if err != nil {
		r.logger.Error("failed to get project file", "file_id", id, "error", err)
		return nil, common.WrapError(err, "get project file")
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("file %s: %w", id, common.ErrNotFound)
	}
	return &files[0], nil
}

func (r *fileRepo) GetByProjectAndHash(ctx context.Context, projectID uuid.UUID, hash []byte) (*entity.ProjectFile, error) {
	files, err := r.selectFiles(ctx, entsql.And(
		entsql.EQ("project_id", projectID),
		entsql.EQ("content_hash", hash),
	))
	if err != nil {
		r.logger.Error("failed to get project file by project and hash", "project_id", projectID, "error", err)
		return nil, common.WrapError(err, "get project file by hash")
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("file with hash in project %s: %w", projectID, common.ErrNotFound)
	}
	return &files[0], nil
}

func (r *fileRepo) newRow(nf NewFile) *entity.ProjectFile {
	uploaded := nf.UploadedAt.UTC()
	if nf.UploadedAt.IsZero() {
		uploaded = time.Now().UTC()
	}
	return &entity.ProjectFile{
		ID:          uuid.New(),
		ProjectID:   nf.ProjectID,
		SourcePath:  nf.SourcePath,
		Filename:    nf.Filename,
		FileExt:     nf.Ext,
		Format:      nf.Format,
		FileSize:    nf.Size,
		ContentHash: nf.Hash,
		Status:      string(constants.StatusPending),
		UploadedAt:  uploaded,
		UpdatedAt:   uploaded,
	}
}

func (r *fileRepo) insert(f *entity.ProjectFile) *entsql.InsertBuilder {
	return r.db.builder().Insert(ProjectFilesTable.Name).
		Columns(fileColumns...).
		Values(f.ID, f.ProjectID, f.SourcePath, f.Filename, f.FileExt, f.Format,
			f.FileSize, f.ContentHash, f.Status, nil, f.UploadedAt, f.UpdatedAt)
}

func (r *fileRepo) Create(ctx context.Context, nf NewFile) (*entity.ProjectFile, error) {
	f := r.newRow(nf)
	if _, err := exec(ctx, r.db.drv, r.insert(f)); err != nil {
		r.logger.Error("failed to create project file", "project_id", nf.ProjectID, "source_path", nf.SourcePath, "filename", nf.Filename, "error", err)
		return nil, common.WrapError(err, "create project file")
	}
	return f, nil
}

// UpsertByHash returns the existing file with the same content hash in the
// project, or creates it. The bool reports whether the file already existed.
// Concurrent calls with the same content settle on a single row.
func (r *fileRepo) UpsertByHash(ctx context.Context, nf NewFile) (*entity.ProjectFile, bool, error) {
	f := r.newRow(nf)
	ins := r.insert(f).OnConflict(
		entsql.ConflictColumns("project_id", "content_hash"),
		entsql.DoNothing(),
	)
	n, err := exec(ctx, r.db.drv, ins)
	if err != nil {
		r.logger.Error("failed to upsert project file by hash", "project_id", nf.ProjectID, "source_path", nf.SourcePath, "filename", nf.Filename, "error", err)
		return nil, false, common.WrapError(err, "upsert project file")
	}
	if n == 1 {
		return f, false, nil
	}
	existing, err := r.GetByProjectAndHash(ctx, nf.ProjectID, nf.Hash)
	if err != nil {
		return nil, false, err
	}
	return existing, true, nil
}

func (r *fileRepo) ListByProject(ctx context.Context, projectID uuid.UUID) ([]entity.ProjectFile, error) {
	files, err := r.selectFiles(ctx, entsql.EQ("project_id", projectID))
	if err != nil {
		return nil, common.WrapError(err, "list project files")
	}
	return files, nil
}

// MarkProcessing moves a file to processing unless another run holds it.
func (r *fileRepo) MarkProcessing(ctx context.Context, id uuid.UUID) error {
	upd := r.db.builder().Update(ProjectFilesTable.Name).
		Set("status", string(constants.StatusProcessing)).
		Set("error_message", nil).
		Set("updated_at", time.Now().UTC()).
		Where(entsql.And(
			entsql.EQ("id", id),
			entsql.NEQ("status", string(constants.StatusProcessing)),
		))
	n, err := exec(ctx, r.db.drv, upd)
	if err != nil {
		return common.WrapError(err, "mark file processing")
	}
	if n == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return fmt.Errorf("file %s: %w", id, common.ErrFileBusy)
	}
	r.logger.Info("file processing started", "file_id", id)
	return nil
}

func (r *fileRepo) MarkError(ctx context.Context, id uuid.UUID, msg string) error {
	upd := r.db.builder().Update(ProjectFilesTable.Name).
		Set("status", string(constants.StatusError)).
		Set("error_message", msg).
		Set("updated_at", time.Now().UTC()).
		Where(entsql.EQ("id", id))
	if _, err := exec(ctx, r.db.drv, upd); err != nil {
		r.logger.Error("failed to mark file error", "file_id", id, "error", err)
		return common.WrapError(err, "mark file error")
	}
	r.logger.Warn("file processing failed", "file_id", id, "error_message", msg)
	return nil
}
