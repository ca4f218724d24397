package pipeline

import (
	"github.com/joseph-ayodele/structural-analysis/constants"
	"github.com/joseph-ayodele/structural-analysis/internal/common"
	"github.com/joseph-ayodele/structural-analysis/internal/compliance"
	"github.com/joseph-ayodele/structural-analysis/internal/entity"
	"github.com/joseph-ayodele/structural-analysis/internal/extract"
)

// builder accumulates drafts across pages and turns them into entities.
type builder struct {
	defaults common.ExtractionConfig
	elements []entity.StructuralElement
	notes    []entity.TechnicalNote
	tables   []entity.Table

	fck      *float64 // first fck note of the document
	steelPct *float64 // first aço note of the document, in percent
}

func newBuilder(defaults common.ExtractionConfig) *builder {
	if defaults.DefaultFck <= 0 {
		defaults.DefaultFck = 25
	}
	if defaults.DefaultMemberLength <= 0 {
		defaults.DefaultMemberLength = 300
	}
	if defaults.DefaultSlabWidth <= 0 {
		defaults.DefaultSlabWidth = 100
	}
	if defaults.DefaultSlabLength <= 0 {
		defaults.DefaultSlabLength = 100
	}
	return &builder{
		defaults: defaults,
		elements: []entity.StructuralElement{},
		notes:    []entity.TechnicalNote{},
		tables:   []entity.Table{},
	}
}

func (b *builder) addElements(page int, drafts []extract.ElementDraft) {
	for _, d := range drafts {
		e := entity.StructuralElement{
			Type:     d.Type,
			Number:   d.Number,
			Location: entity.Location{Page: page},
		}
		switch d.Type {
		case constants.Slab:
			t := d.Thickness
			e.Dimensions = entity.Dimensions{
				Width:     b.defaults.DefaultSlabWidth,
				Length:    b.defaults.DefaultSlabLength,
				Thickness: &t,
			}
		default:
			h := d.Height
			l := d.Length
			if l <= 0 {
				l = b.defaults.DefaultMemberLength
			}
			e.Dimensions = entity.Dimensions{Width: d.Width, Height: &h, Length: l}
		}
		b.elements = append(b.elements, e)
	}
}

func (b *builder) addNotes(page int, drafts []extract.NoteDraft) {
	for _, d := range drafts {
		v := d.Value
		switch d.Type {
		case constants.NoteFck:
			if b.fck == nil {
				b.fck = &v
			}
		case constants.NoteSteel:
			if b.steelPct == nil {
				b.steelPct = &v
			}
		}
		b.notes = append(b.notes, entity.TechnicalNote{
			Type:     d.Type,
			Content:  d.Content,
			Value:    d.Value,
			Location: entity.Location{Page: page},
		})
	}
}

func (b *builder) addTables(page int, drafts []extract.TableDraft) {
	for _, d := range drafts {
		typ := d.Type
		if typ == "" {
			typ = constants.DefaultTableType
		}
		loc := d.Location
		loc.Page = page
		b.tables = append(b.tables, entity.Table{Type: typ, Data: d.Data, Location: loc})
	}
}

// build applies the document-wide materials. Notes may appear after the
// labels they describe, so this runs once every page has been read. Steel
// weight is stored so that the engine's ratio over the same cross-section
// gives back the noted percentage.
func (b *builder) build() *entity.ExtractedData {
	fck := b.defaults.DefaultFck
	if b.fck != nil && *b.fck > 0 {
		fck = *b.fck
	}
	for i := range b.elements {
		e := &b.elements[i]
		e.Materials.Concrete.Fck = fck
		if b.steelPct != nil {
			e.Materials.Steel.Weight = *b.steelPct / 100 * compliance.CrossSection(*e)
		}
	}
	return &entity.ExtractedData{Elements: b.elements, Tables: b.tables, Notes: b.notes}
}
