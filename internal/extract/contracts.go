package extract

import (
	"context"

	"github.com/joseph-ayodele/structural-analysis/constants"
	"github.com/joseph-ayodele/structural-analysis/internal/entity"
)

// ElementDraft is a structural element before defaults and ids are applied.
// Length is zero when the label does not carry it.
type ElementDraft struct {
	Type      constants.ElementType
	Number    string
	Width     float64
	Height    float64
	Length    float64
	Thickness float64
}

type NoteDraft struct {
	Type    constants.NoteType
	Content string
	Value   float64
}

type TableDraft struct {
	Type     string
	Data     entity.TableData
	Location entity.Location
}

// TableDetector finds tables from page geometry. When one is configured it
// runs before the pipe-line heuristic; the heuristic always runs as well and
// its tables that repeat a detected one are dropped.
type TableDetector interface {
	DetectTables(ctx context.Context, page int, text string) ([]TableDraft, error)
}
