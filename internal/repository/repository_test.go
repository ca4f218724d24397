package repository

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/structural-analysis/constants"
	"github.com/joseph-ayodele/structural-analysis/internal/common"
	"github.com/joseph-ayodele/structural-analysis/internal/entity"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	ctx := context.Background()
	db, err := Open(ctx, Config{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "test.db")}, nil)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, db.Migrate(ctx))
	return db
}

func f64(v float64) *float64 { return &v }

func newProject(t *testing.T, db *DB) *entity.Project {
	t.Helper()
	p, err := NewProjectRepository(db, nil).Create(context.Background(), "Edifício Aurora")
	require.NoError(t, err)
	return p
}

func newFile(t *testing.T, db *DB, projectID uuid.UUID, hash string) *entity.ProjectFile {
	t.Helper()
	f, err := NewFileRepository(db, nil).Create(context.Background(), NewFile{
		ProjectID:  projectID,
		SourcePath: "/drawings/" + hash + ".pdf",
		Filename:   hash + ".pdf",
		Ext:        "pdf",
		Format:     constants.PDF,
		Size:       1024,
		Hash:       []byte(hash),
	})
	require.NoError(t, err)
	return f
}

func TestSqliteDSN(t *testing.T) {
	assert.Equal(t, "file:/tmp/x.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", sqliteDSN("/tmp/x.db"))
	assert.Equal(t, "file:x.db?mode=rwc&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", sqliteDSN("file:x.db?mode=rwc"))
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: "oracle"}, nil)
	assert.Error(t, err)
}

func TestProjectCreateAndGet(t *testing.T) {
	db := openTestDB(t)
	repo := NewProjectRepository(db, nil)
	ctx := context.Background()

	p, err := repo.Create(ctx, "  Torre A  ")
	require.NoError(t, err)
	assert.Equal(t, "Torre A", p.Name)

	got, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
	assert.Equal(t, "Torre A", got.Name)

	_, err = repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = repo.Create(ctx, " ")
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestFileUpsertByHashDedupes(t *testing.T) {
	db := openTestDB(t)
	p := newProject(t, db)
	repo := NewFileRepository(db, nil)
	ctx := context.Background()

	nf := NewFile{ProjectID: p.ID, SourcePath: "/a.pdf", Filename: "a.pdf", Ext: "pdf", Format: constants.PDF, Size: 10, Hash: []byte{1, 2, 3}}
	first, existed, err := repo.UpsertByHash(ctx, nf)
	require.NoError(t, err)
	assert.False(t, existed)
	assert.Equal(t, string(constants.StatusPending), first.Status)

	again, existed, err := repo.UpsertByHash(ctx, nf)
	require.NoError(t, err)
	assert.True(t, existed)
	assert.Equal(t, first.ID, again.ID)

	files, err := repo.ListByProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestFileMarkProcessingIsExclusive(t *testing.T) {
	db := openTestDB(t)
	p := newProject(t, db)
	f := newFile(t, db, p.ID, "h1")
	repo := NewFileRepository(db, nil)
	ctx := context.Background()

	require.NoError(t, repo.MarkProcessing(ctx, f.ID))
	assert.ErrorIs(t, repo.MarkProcessing(ctx, f.ID), common.ErrFileBusy)
	assert.ErrorIs(t, repo.MarkProcessing(ctx, uuid.New()), common.ErrNotFound)

	require.NoError(t, repo.MarkError(ctx, f.ID, "pdftotext: exit status 1"))
	got, err := repo.GetByID(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, string(constants.StatusError), got.Status)
	require.NotNil(t, got.ErrorMessage)
	assert.Equal(t, "pdftotext: exit status 1", *got.ErrorMessage)

	// a failed file can be retried
	require.NoError(t, repo.MarkProcessing(ctx, f.ID))
}

func sampleData() *entity.ExtractedData {
	return &entity.ExtractedData{
		Elements: []entity.StructuralElement{
			{
				Type:       constants.Pillar,
				Number:     "P1",
				Dimensions: entity.Dimensions{Width: 20, Height: f64(40), Length: 300},
				Materials:  entity.Materials{Concrete: entity.Concrete{Fck: 25}, Steel: entity.Steel{Weight: 8}},
				Location:   entity.Location{Page: 1},
			},
			{
				Type:       constants.Slab,
				Number:     "L1",
				Dimensions: entity.Dimensions{Width: 100, Length: 100, Thickness: f64(12)},
				Materials:  entity.Materials{Concrete: entity.Concrete{Fck: 25}},
				Location:   entity.Location{Page: 2},
			},
		},
		Notes: []entity.TechnicalNote{
			{Type: constants.NoteFck, Content: "fck=25", Value: 25, Location: entity.Location{Page: 1}},
		},
		Tables: []entity.Table{
			{Data: entity.TableData{Headers: []string{"Pilar", "Seção"}, Rows: []map[string]string{{"Pilar": "P1", "Seção": "20x40"}}}},
		},
	}
}

func TestSaveExtractedDataRoundTrip(t *testing.T) {
	db := openTestDB(t)
	p := newProject(t, db)
	f := newFile(t, db, p.ID, "h1")
	files := NewFileRepository(db, nil)
	repo := NewElementRepository(db, nil)
	ctx := context.Background()

	require.NoError(t, files.MarkProcessing(ctx, f.ID))
	data := sampleData()
	require.NoError(t, repo.SaveExtractedData(ctx, p.ID, f.ID, data))
	assert.NotEqual(t, uuid.Nil, data.Elements[0].ID)

	elements, err := repo.ListElementsByProject(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, elements, 2)
	assert.Equal(t, "P1", elements[0].Number)
	assert.Equal(t, constants.Pillar, elements[0].Type)
	assert.Equal(t, 40.0, elements[0].Dimensions.HeightOrZero())
	assert.Equal(t, 8.0, elements[0].Materials.Steel.Weight)
	require.NotNil(t, elements[0].FileID)
	assert.Equal(t, f.ID, *elements[0].FileID)
	assert.Nil(t, elements[1].Dimensions.Height)
	assert.Equal(t, 12.0, elements[1].Dimensions.ThicknessOrZero())
	assert.Equal(t, 2, elements[1].Location.Page)

	byFile, err := repo.ListElementsByFile(ctx, f.ID)
	require.NoError(t, err)
	assert.Len(t, byFile, 2)

	notes, err := repo.ListNotesByFile(ctx, f.ID)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, constants.NoteFck, notes[0].Type)
	assert.Equal(t, 25.0, notes[0].Value)

	tables, err := repo.ListTablesByFile(ctx, f.ID)
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, constants.DefaultTableType, tables[0].Type)
	assert.Equal(t, "20x40", tables[0].Data.Rows[0]["Seção"])

	got, err := files.GetByID(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, string(constants.StatusCompleted), got.Status)
}

func TestSaveExtractedDataReplacesEarlierRun(t *testing.T) {
	db := openTestDB(t)
	p := newProject(t, db)
	f := newFile(t, db, p.ID, "h1")
	other := newFile(t, db, p.ID, "h2")
	files := NewFileRepository(db, nil)
	repo := NewElementRepository(db, nil)
	ctx := context.Background()

	require.NoError(t, files.MarkProcessing(ctx, other.ID))
	require.NoError(t, repo.SaveExtractedData(ctx, p.ID, other.ID, sampleData()))

	for range 2 {
		require.NoError(t, files.MarkProcessing(ctx, f.ID))
		require.NoError(t, repo.SaveExtractedData(ctx, p.ID, f.ID, sampleData()))
	}

	byFile, err := repo.ListElementsByFile(ctx, f.ID)
	require.NoError(t, err)
	assert.Len(t, byFile, 2)
	notes, err := repo.ListNotesByFile(ctx, f.ID)
	require.NoError(t, err)
	assert.Len(t, notes, 1)
	tables, err := repo.ListTablesByFile(ctx, f.ID)
	require.NoError(t, err)
	assert.Len(t, tables, 1)

	// rows of other files are untouched
	all, err := repo.ListElementsByProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestSaveExtractedDataRejectsInvalidElement(t *testing.T) {
	db := openTestDB(t)
	p := newProject(t, db)
	f := newFile(t, db, p.ID, "h1")
	repo := NewElementRepository(db, nil)
	ctx := context.Background()

	data := sampleData()
	data.Elements[0].Dimensions.Height = nil
	err := repo.SaveExtractedData(ctx, p.ID, f.ID, data)
	assert.ErrorIs(t, err, common.ErrValidation)

	elements, err := repo.ListElementsByProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, elements)
}

func TestSaveExtractedDataRollsBackOnMissingFile(t *testing.T) {
	db := openTestDB(t)
	p := newProject(t, db)
	repo := NewElementRepository(db, nil)
	ctx := context.Background()

	// file_id references a file that does not exist
	err := repo.SaveExtractedData(ctx, p.ID, uuid.New(), sampleData())
	require.Error(t, err)

	elements, err := repo.ListElementsByProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, elements)
}

func TestStartProcessingIsExclusivePerProject(t *testing.T) {
	db := openTestDB(t)
	p := newProject(t, db)
	other := newProject(t, db)
	repo := NewReportRepository(db, nil)
	ctx := context.Background()

	first, err := repo.StartProcessing(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.StatusProcessing, first.Status)

	_, err = repo.StartProcessing(ctx, p.ID)
	assert.ErrorIs(t, err, common.ErrAnalysisInProgress)

	// other projects are unaffected
	_, err = repo.StartProcessing(ctx, other.ID)
	require.NoError(t, err)

	list, err := repo.ListByProject(ctx, p.ID, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	// once finished, a new run can start
	require.NoError(t, repo.Cancel(ctx, first.ID))
	second, err := repo.StartProcessing(ctx, p.ID)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestStartProcessingConcurrent(t *testing.T) {
	db := openTestDB(t)
	p := newProject(t, db)
	repo := NewReportRepository(db, nil)
	ctx := context.Background()

	const n = 8
	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		started    int
		inProgress int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.StartProcessing(ctx, p.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				started++
			case errors.Is(err, common.ErrAnalysisInProgress):
				inProgress++
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, started)
	assert.Equal(t, n-1, inProgress)
}

func TestStartProcessingUnknownProject(t *testing.T) {
	db := openTestDB(t)
	_, err := NewReportRepository(db, nil).StartProcessing(context.Background(), uuid.New())
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestReportTerminalTransitionsHappenOnce(t *testing.T) {
	db := openTestDB(t)
	p := newProject(t, db)
	repo := NewReportRepository(db, nil)
	ctx := context.Background()

	a, err := repo.StartProcessing(ctx, p.ID)
	require.NoError(t, err)
	require.NoError(t, repo.SetProgress(ctx, a.ID, 50))

	result := entity.StructuralAnalysis{
		TotalArea:       6000,
		TotalConcrete:   576000000,
		Elements:        sampleData().Elements,
		Inconsistencies: []entity.Inconsistency{{Type: constants.InconsistencyConcreteStrength, Severity: constants.SeverityHigh, Value: 18, Limit: 20}},
		Optimizations:   []entity.Optimization{},
	}
	require.NoError(t, repo.Complete(ctx, a.ID, result))

	assert.ErrorIs(t, repo.Fail(ctx, a.ID, "late failure"), common.ErrNotProcessing)
	assert.ErrorIs(t, repo.Cancel(ctx, a.ID), common.ErrNotProcessing)
	assert.ErrorIs(t, repo.Complete(ctx, a.ID, result), common.ErrNotProcessing)
	assert.ErrorIs(t, repo.Cancel(ctx, uuid.New()), common.ErrNotFound)

	got, err := repo.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.StatusCompleted, got.Status)
	assert.Equal(t, 100, got.Progress)
	assert.Equal(t, 6000.0, got.TotalArea)
	assert.Len(t, got.Elements, 2)
	require.Len(t, got.Inconsistencies, 1)
	assert.Equal(t, constants.SeverityHigh, got.Inconsistencies[0].Severity)
	assert.Nil(t, got.ErrorMessage)

	latest, err := repo.LatestCompleted(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, latest.ID)
}

func TestReportFailRecordsMessage(t *testing.T) {
	db := openTestDB(t)
	p := newProject(t, db)
	repo := NewReportRepository(db, nil)
	ctx := context.Background()

	a, err := repo.StartProcessing(ctx, p.ID)
	require.NoError(t, err)
	require.NoError(t, repo.Fail(ctx, a.ID, "load elements: boom"))

	got, err := repo.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.StatusError, got.Status)
	require.NotNil(t, got.ErrorMessage)
	assert.Equal(t, "load elements: boom", *got.ErrorMessage)

	_, err = repo.LatestCompleted(ctx, p.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
}
