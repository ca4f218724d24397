package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/structural-analysis/constants"
	"github.com/joseph-ayodele/structural-analysis/internal/common"
	"github.com/joseph-ayodele/structural-analysis/internal/entity"
)

// ElementRepository stores what the document processor extracts.
type ElementRepository interface {
	ListElementsByProject(ctx context.Context, projectID uuid.UUID) ([]entity.StructuralElement, error)
	ListElementsByFile(ctx context.Context, fileID uuid.UUID) ([]entity.StructuralElement, error)
	ListNotesByFile(ctx context.Context, fileID uuid.UUID) ([]entity.TechnicalNote, error)
	ListTablesByFile(ctx context.Context, fileID uuid.UUID) ([]entity.Table, error)
	// SaveExtractedData inserts data for the file and marks it completed in
	// one transaction. IDs and timestamps are assigned here.
	SaveExtractedData(ctx context.Context, projectID, fileID uuid.UUID, data *entity.ExtractedData) error
}

type elementRepo struct {
	db     *DB
	logger *slog.Logger
}

func NewElementRepository(db *DB, logger *slog.Logger) ElementRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &elementRepo{db: db, logger: logger}
}

var elementColumns = []string{"id", "project_id", "file_id", "type", "number", "dimensions", "materials", "location", "created_at"}

func (r *elementRepo) listElements(ctx context.Context, where *entsql.Predicate) ([]entity.StructuralElement, error) {
	sel := r.db.builder().Select(elementColumns...).
		From(entsql.Table(StructuralElementsTable.Name)).
		Where(where).
		OrderBy("created_at", "id")
	out := []entity.StructuralElement{}
	err := queryRows(ctx, r.db.drv, sel, func(rows *entsql.Rows) error {
		var (
			e                    entity.StructuralElement
			fileID               uuid.NullUUID
			typ                  string
			dims, mats, location []byte
		)
		if err := rows.Scan(&e.ID, &e.ProjectID, &fileID, &typ, &e.Number, &dims, &mats, &location, &e.CreatedAt); err != nil {
			return err
		}
		e.Type = constants.ElementType(typ)
		e.FileID = fromNullUUID(fileID)
		if err := decodeJSON(dims, &e.Dimensions); err != nil {
			return fmt.Errorf("element %s dimensions: %w", e.ID, err)
		}
		if err := decodeJSON(mats, &e.Materials); err != nil {
			return fmt.Errorf("element %s materials: %w", e.ID, err)
		}
		if err := decodeJSON(location, &e.Location); err != nil {
			return fmt.Errorf("element %s location: %w", e.ID, err)
		}
		out = append(out, e)
		return nil
	})
	return out, err
}

func (r *elementRepo) ListElementsByProject(ctx context.Context, projectID uuid.UUID) ([]entity.StructuralElement, error) {
	out, err := r.listElements(ctx, entsql.EQ("project_id", projectID))
	if err != nil {
		r.logger.Error("failed to list elements", "project_id", projectID, "error", err)
		return nil, common.WrapError(err, "list elements by project")
	}
	return out, nil
}

func (r *elementRepo) ListElementsByFile(ctx context.Context, fileID uuid.UUID) ([]entity.StructuralElement, error) {
	out, err := r.listElements(ctx, entsql.EQ("file_id", fileID))
	if err != nil {
		return nil, common.WrapError(err, "list elements by file")
	}
	return out, nil
}

func (r *elementRepo) ListNotesByFile(ctx context.Context, fileID uuid.UUID) ([]entity.TechnicalNote, error) {
	sel := r.db.builder().Select("id", "project_id", "file_id", "type", "content", "value", "location", "created_at").
		From(entsql.Table(TechnicalNotesTable.Name)).
		Where(entsql.EQ("file_id", fileID)).
		OrderBy("created_at", "id")
	out := []entity.TechnicalNote{}
	err := queryRows(ctx, r.db.drv, sel, func(rows *entsql.Rows) error {
		var (
			n        entity.TechnicalNote
			fid      uuid.NullUUID
			typ      string
			location []byte
		)
		if err := rows.Scan(&n.ID, &n.ProjectID, &fid, &typ, &n.Content, &n.Value, &location, &n.CreatedAt); err != nil {
			return err
		}
		n.Type = constants.NoteType(typ)
		n.FileID = fromNullUUID(fid)
		if err := decodeJSON(location, &n.Location); err != nil {
			return err
		}
		out = append(out, n)
		return nil
	})
	if err != nil {
		return nil, common.WrapError(err, "list notes by file")
	}
	return out, nil
}

func (r *elementRepo) ListTablesByFile(ctx context.Context, fileID uuid.UUID) ([]entity.Table, error) {
	sel := r.db.builder().Select("id", "project_id", "file_id", "type", "data", "location", "created_at").
		From(entsql.Table(ExtractedTablesTable.Name)).
		Where(entsql.EQ("file_id", fileID)).
		OrderBy("created_at", "id")
	out := []entity.Table{}
	err := queryRows(ctx, r.db.drv, sel, func(rows *entsql.Rows) error {
		var (
			t              entity.Table
			fid            uuid.NullUUID
			data, location []byte
		)
		if err := rows.Scan(&t.ID, &t.ProjectID, &fid, &t.Type, &data, &location, &t.CreatedAt); err != nil {
			return err
		}
		t.FileID = fromNullUUID(fid)
		if err := decodeJSON(data, &t.Data); err != nil {
			return err
		}
		if err := decodeJSON(location, &t.Location); err != nil {
			return err
		}
		out = append(out, t)
		return nil
	})
	if err != nil {
		return nil, common.WrapError(err, "list tables by file")
	}
	return out, nil
}

func (r *elementRepo) SaveExtractedData(ctx context.Context, projectID, fileID uuid.UUID, data *entity.ExtractedData) error {
	if data == nil {
		data = &entity.ExtractedData{}
	}
	// validate before touching the database
	for i := range data.Elements {
		if err := validateElement(&data.Elements[i]); err != nil {
			return err
		}
	}

	// created_at orders rows on read; keep insertion order stable
	base := time.Now().UTC()
	stamp := func(i int) time.Time { return base.Add(time.Duration(i) * time.Microsecond) }
	fid := &fileID

	err := r.db.WithTx(ctx, func(tx dialect.ExecQuerier) error {
		b := r.db.builder()
		// reprocessing replaces what an earlier run stored for the file
		for _, table := range []string{StructuralElementsTable.Name, TechnicalNotesTable.Name, ExtractedTablesTable.Name} {
			if _, err := exec(ctx, tx, b.Delete(table).Where(entsql.EQ("file_id", fileID))); err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}
		for i := range data.Elements {
			e := &data.Elements[i]
			e.ID, e.ProjectID, e.FileID, e.CreatedAt = uuid.New(), projectID, fid, stamp(i)
			ins := b.Insert(StructuralElementsTable.Name).Columns(elementColumns...).
				Values(e.ID, e.ProjectID, nullUUID(e.FileID), string(e.Type), e.Number,
					mustJSON(e.Dimensions), mustJSON(e.Materials), mustJSON(e.Location), e.CreatedAt)
			if _, err := exec(ctx, tx, ins); err != nil {
				return fmt.Errorf("insert element %s: %w", e.Number, err)
			}
		}
		for i := range data.Notes {
			n := &data.Notes[i]
			n.ID, n.ProjectID, n.FileID, n.CreatedAt = uuid.New(), projectID, fid, stamp(i)
			ins := b.Insert(TechnicalNotesTable.Name).
				Columns("id", "project_id", "file_id", "type", "content", "value", "location", "created_at").
				Values(n.ID, n.ProjectID, nullUUID(n.FileID), string(n.Type), n.Content, n.Value, mustJSON(n.Location), n.CreatedAt)
			if _, err := exec(ctx, tx, ins); err != nil {
				return fmt.Errorf("insert note: %w", err)
			}
		}
		for i := range data.Tables {
			t := &data.Tables[i]
			if t.Type == "" {
				t.Type = constants.DefaultTableType
			}
			t.ID, t.ProjectID, t.FileID, t.CreatedAt = uuid.New(), projectID, fid, stamp(i)
			ins := b.Insert(ExtractedTablesTable.Name).
				Columns("id", "project_id", "file_id", "type", "data", "location", "created_at").
				Values(t.ID, t.ProjectID, nullUUID(t.FileID), t.Type, mustJSON(t.Data), mustJSON(t.Location), t.CreatedAt)
			if _, err := exec(ctx, tx, ins); err != nil {
				return fmt.Errorf("insert table: %w", err)
			}
		}
		upd := b.Update(ProjectFilesTable.Name).
			Set("status", string(constants.StatusCompleted)).
			Set("error_message", nil).
			Set("updated_at", base).
			Where(entsql.EQ("id", fileID))
		n, err := exec(ctx, tx, upd)
		if err != nil {
			return fmt.Errorf("mark file completed: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("file %s: %w", fileID, common.ErrNotFound)
		}
		return nil
	})
	if err != nil {
		r.logger.Error("failed to save extracted data", "file_id", fileID, "error", err)
		return common.WrapError(err, "save extracted data")
	}
	r.logger.Info("extracted data saved",
		"project_id", projectID,
		"file_id", fileID,
		"elements", len(data.Elements),
		"notes", len(data.Notes),
		"tables", len(data.Tables),
	)
	return nil
}

func validateElement(e *entity.StructuralElement) error {
	dims, err := json.Marshal(e.Dimensions)
	if err != nil {
		return err
	}
	schema, name := common.MemberDimensionsSchema, "member_dimensions"
	if e.Type == constants.Slab {
		schema, name = common.SlabDimensionsSchema, "slab_dimensions"
	}
	if err := common.ValidateJSONAgainstSchema(name, schema, dims); err != nil {
		return fmt.Errorf("%s %s: %w", e.Type, e.Number, err)
	}
	mats, err := json.Marshal(e.Materials)
	if err != nil {
		return err
	}
	if err := common.ValidateJSONAgainstSchema("materials", common.MaterialsSchema, mats); err != nil {
		return fmt.Errorf("%s %s: %w", e.Type, e.Number, err)
	}
	return nil
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		// only plain structs reach here
		panic(err)
	}
	return string(b)
}

func decodeJSON(b []byte, v any) error {
	if len(b) == 0 {
		return nil
	}
	return json.Unmarshal(b, v)
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

func fromNullUUID(n uuid.NullUUID) *uuid.UUID {
	if !n.Valid {
		return nil
	}
	id := n.UUID
	return &id
}
