package repository

import (
	"context"
	"fmt"

	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

var (
	// ProjectsColumns holds the columns for the "projects" table.
	ProjectsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeUUID},
		{Name: "name", Type: field.TypeString},
		{Name: "created_at", Type: field.TypeTime},
		{Name: "updated_at", Type: field.TypeTime},
	}
	ProjectsTable = &schema.Table{
		Name:       "projects",
		Columns:    ProjectsColumns,
		PrimaryKey: []*schema.Column{ProjectsColumns[0]},
	}

	// ProjectFilesColumns holds the columns for the "project_files" table.
	ProjectFilesColumns = []*schema.Column{
		{Name: "id", Type: field.TypeUUID},
		{Name: "project_id", Type: field.TypeUUID},
		{Name: "source_path", Type: field.TypeString},
		{Name: "filename", Type: field.TypeString},
		{Name: "file_ext", Type: field.TypeString},
		{Name: "format", Type: field.TypeString},
		{Name: "file_size", Type: field.TypeInt},
		{Name: "content_hash", Type: field.TypeBytes},
		{Name: "status", Type: field.TypeString},
		{Name: "error_message", Type: field.TypeString, Nullable: true, Size: 2147483647},
		{Name: "uploaded_at", Type: field.TypeTime},
		{Name: "updated_at", Type: field.TypeTime},
	}
	ProjectFilesTable = &schema.Table{
		Name:       "project_files",
		Columns:    ProjectFilesColumns,
		PrimaryKey: []*schema.Column{ProjectFilesColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "project_files_projects_files",
				Columns:    []*schema.Column{ProjectFilesColumns[1]},
				RefColumns: []*schema.Column{ProjectsColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
		Indexes: []*schema.Index{
			{
				Name:    "projectfile_project_id_content_hash",
				Unique:  true,
				Columns: []*schema.Column{ProjectFilesColumns[1], ProjectFilesColumns[7]},
			},
		},
	}

	// StructuralElementsColumns holds the columns for the "structural_elements" table.
	StructuralElementsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeUUID},
		{Name: "project_id", Type: field.TypeUUID},
		{Name: "file_id", Type: field.TypeUUID, Nullable: true},
		{Name: "type", Type: field.TypeString},
		{Name: "number", Type: field.TypeString},
		{Name: "dimensions", Type: field.TypeJSON},
		{Name: "materials", Type: field.TypeJSON},
		{Name: "location", Type: field.TypeJSON},
		{Name: "created_at", Type: field.TypeTime},
	}
	StructuralElementsTable = &schema.Table{
		Name:       "structural_elements",
		Columns:    StructuralElementsColumns,
		PrimaryKey: []*schema.Column{StructuralElementsColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "structural_elements_projects_elements",
				Columns:    []*schema.Column{StructuralElementsColumns[1]},
				RefColumns: []*schema.Column{ProjectsColumns[0]},
				OnDelete:   schema.Cascade,
			},
			{
				Symbol:     "structural_elements_project_files_elements",
				Columns:    []*schema.Column{StructuralElementsColumns[2]},
				RefColumns: []*schema.Column{ProjectFilesColumns[0]},
				OnDelete:   schema.SetNull,
			},
		},
		Indexes: []*schema.Index{
			{
				Name:    "structuralelement_project_id",
				Columns: []*schema.Column{StructuralElementsColumns[1]},
			},
		},
	}

	// TechnicalNotesColumns holds the columns for the "technical_notes" table.
	TechnicalNotesColumns = []*schema.Column{
		{Name: "id", Type: field.TypeUUID},
		{Name: "project_id", Type: field.TypeUUID},
		{Name: "file_id", Type: field.TypeUUID, Nullable: true},
		{Name: "type", Type: field.TypeString},
		{Name: "content", Type: field.TypeString, Size: 2147483647},
		{Name: "value", Type: field.TypeFloat64},
		{Name: "location", Type: field.TypeJSON},
		{Name: "created_at", Type: field.TypeTime},
	}
	TechnicalNotesTable = &schema.Table{
		Name:       "technical_notes",
		Columns:    TechnicalNotesColumns,
		PrimaryKey: []*schema.Column{TechnicalNotesColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "technical_notes_projects_notes",
				Columns:    []*schema.Column{TechnicalNotesColumns[1]},
				RefColumns: []*schema.Column{ProjectsColumns[0]},
				OnDelete:   schema.Cascade,
			},
			{
				Symbol:     "technical_notes_project_files_notes",
				Columns:    []*schema.Column{TechnicalNotesColumns[2]},
				RefColumns: []*schema.Column{ProjectFilesColumns[0]},
				OnDelete:   schema.SetNull,
			},
		},
	}

	// ExtractedTablesColumns holds the columns for the "extracted_tables" table.
	ExtractedTablesColumns = []*schema.Column{
		{Name: "id", Type: field.TypeUUID},
		{Name: "project_id", Type: field.TypeUUID},
		{Name: "file_id", Type: field.TypeUUID, Nullable: true},
		{Name: "type", Type: field.TypeString},
		{Name: "data", Type: field.TypeJSON},
		{Name: "location", Type: field.TypeJSON},
		{Name: "created_at", Type: field.TypeTime},
	}
	ExtractedTablesTable = &schema.Table{
		Name:       "extracted_tables",
		Columns:    ExtractedTablesColumns,
		PrimaryKey: []*schema.Column{ExtractedTablesColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "extracted_tables_projects_tables",
				Columns:    []*schema.Column{ExtractedTablesColumns[1]},
				RefColumns: []*schema.Column{ProjectsColumns[0]},
				OnDelete:   schema.Cascade,
			},
			{
				Symbol:     "extracted_tables_project_files_tables",
				Columns:    []*schema.Column{ExtractedTablesColumns[2]},
				RefColumns: []*schema.Column{ProjectFilesColumns[0]},
				OnDelete:   schema.SetNull,
			},
		},
	}

	// ProjectReportsColumns holds the columns for the "project_reports" table.
	ProjectReportsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeUUID},
		{Name: "project_id", Type: field.TypeUUID},
		{Name: "status", Type: field.TypeString},
		{Name: "progress", Type: field.TypeInt, Default: 0},
		{Name: "error_message", Type: field.TypeString, Nullable: true, Size: 2147483647},
		{Name: "data", Type: field.TypeJSON, Nullable: true},
		{Name: "created_at", Type: field.TypeTime},
		{Name: "updated_at", Type: field.TypeTime},
	}
	ProjectReportsTable = &schema.Table{
		Name:       "project_reports",
		Columns:    ProjectReportsColumns,
		PrimaryKey: []*schema.Column{ProjectReportsColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "project_reports_projects_reports",
				Columns:    []*schema.Column{ProjectReportsColumns[1]},
				RefColumns: []*schema.Column{ProjectsColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
		Indexes: []*schema.Index{
			{
				// at most one processing analysis per project; StartAnalysis
				// relies on this index for its conditional insert
				Name:       "project_reports_one_processing",
				Unique:     true,
				Columns:    []*schema.Column{ProjectReportsColumns[1]},
				Annotation: &entsql.IndexAnnotation{Where: "status = 'processing'"},
			},
			{
				Name:    "projectreport_project_id_created_at",
				Columns: []*schema.Column{ProjectReportsColumns[1], ProjectReportsColumns[6]},
			},
		},
	}

	// Tables holds all the tables in the schema.
	Tables = []*schema.Table{
		ProjectsTable,
		ProjectFilesTable,
		StructuralElementsTable,
		TechnicalNotesTable,
		ExtractedTablesTable,
		ProjectReportsTable,
	}
)

func init() {
	ProjectFilesTable.ForeignKeys[0].RefTable = ProjectsTable
	StructuralElementsTable.ForeignKeys[0].RefTable = ProjectsTable
	StructuralElementsTable.ForeignKeys[1].RefTable = ProjectFilesTable
	TechnicalNotesTable.ForeignKeys[0].RefTable = ProjectsTable
	TechnicalNotesTable.ForeignKeys[1].RefTable = ProjectFilesTable
	ExtractedTablesTable.ForeignKeys[0].RefTable = ProjectsTable
	ExtractedTablesTable.ForeignKeys[1].RefTable = ProjectFilesTable
	ProjectReportsTable.ForeignKeys[0].RefTable = ProjectsTable
}

// Migrate creates or updates the schema.
func (db *DB) Migrate(ctx context.Context) error {
	db.logger.Info("running schema migration", "dialect", db.Dialect(), "tables", len(Tables))
	m, err := schema.NewMigrate(db.drv, schema.WithForeignKeys(true))
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	if err := m.Create(ctx, Tables...); err != nil {
		db.logger.Error("schema migration failed", "error", err)
		return fmt.Errorf("migrate: %w", err)
	}
	db.logger.Info("schema migration complete")
	return nil
}
