package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/structural-analysis/constants"
	"github.com/joseph-ayodele/structural-analysis/internal/common"
	"github.com/joseph-ayodele/structural-analysis/internal/compliance"
	"github.com/joseph-ayodele/structural-analysis/internal/entity"
)

const (
	sheetElements        = "Elementos"
	sheetInconsistencies = "Inconsistencias"
	sheetSummary         = "Resumo"
)

// AnalysisSource loads a stored analysis.
type AnalysisSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*entity.StructuralAnalysis, error)
}

// Service produces the quantity takeoff workbook of a completed analysis.
type Service struct {
	analyses AnalysisSource
	rules    compliance.Rules
	logger   *slog.Logger
}

func NewService(analyses AnalysisSource, rules compliance.Rules, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{analyses: analyses, rules: rules, logger: logger}
}

// TakeoffXLSX returns the workbook bytes for analysisID. The analysis must be
// completed.
func (s *Service) TakeoffXLSX(ctx context.Context, analysisID uuid.UUID) ([]byte, error) {
	start := time.Now()
	a, err := s.analyses.GetByID(ctx, analysisID)
	if err != nil {
		return nil, err
	}
	if a.Status != constants.StatusCompleted {
		return nil, fmt.Errorf("analysis %s is %s: %w", analysisID, a.Status, common.ErrNotCompleted)
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	// the default sheet becomes the element list
	if err := f.SetSheetName("Sheet1", sheetElements); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(sheetInconsistencies); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(sheetSummary); err != nil {
		return nil, err
	}

	labels := s.writeElements(f, a.Elements)
	s.writeInconsistencies(f, a.Inconsistencies, labels)
	s.writeSummary(f, a)

	idx, _ := f.GetSheetIndex(sheetElements)
	f.SetActiveSheet(idx)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	s.logger.Info("takeoff exported",
		"analysis_id", analysisID,
		"project_id", a.ProjectID,
		"elements", len(a.Elements),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func writeRow(f *excelize.File, sheet string, row int, values ...any) {
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		_ = f.SetCellValue(sheet, cell, v)
	}
}

func optional(v *float64) any {
	if v == nil {
		return ""
	}
	return *v
}

// writeElements fills the element sheet and returns a label per element id
// for the inconsistency sheet.
func (s *Service) writeElements(f *excelize.File, elements []entity.StructuralElement) map[uuid.UUID]string {
	writeRow(f, sheetElements, 1,
		"Tipo", "Número", "Página",
		"Largura (cm)", "Altura (cm)", "Comprimento (cm)", "Espessura (cm)",
		"fck (MPa)", "Aço (kg)", "Taxa de armadura (%)",
		"Volume", "Peso do concreto (kg)", "Peso do aço (kg)", "Área",
	)
	labels := make(map[uuid.UUID]string, len(elements))
	for i, e := range elements {
		q := s.rules.Measure(e)
		labels[e.ID] = fmt.Sprintf("%s %s", e.Type, e.Number)
		writeRow(f, sheetElements, i+2,
			string(e.Type), e.Number, e.Location.Page,
			e.Dimensions.Width, optional(e.Dimensions.Height), e.Dimensions.Length, optional(e.Dimensions.Thickness),
			e.Materials.Concrete.Fck, e.Materials.Steel.Weight, q.SteelRatio*100,
			q.Volume, q.ConcreteWeight, q.SteelWeight, q.Area,
		)
	}
	_ = f.SetColWidth(sheetElements, "A", "C", 10)
	_ = f.SetColWidth(sheetElements, "D", "J", 16)
	_ = f.SetColWidth(sheetElements, "K", "N", 20)
	_ = f.SetPanes(sheetElements, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
	return labels
}

func (s *Service) writeInconsistencies(f *excelize.File, items []entity.Inconsistency, labels map[uuid.UUID]string) {
	writeRow(f, sheetInconsistencies, 1, "Elemento", "Tipo", "Severidade", "Descrição", "Norma", "Valor", "Limite")
	for i, inc := range items {
		writeRow(f, sheetInconsistencies, i+2,
			labels[inc.ElementID], string(inc.Type), string(inc.Severity),
			inc.Description, inc.Rule, inc.Value, inc.Limit,
		)
	}
	_ = f.SetColWidth(sheetInconsistencies, "A", "C", 16)
	_ = f.SetColWidth(sheetInconsistencies, "D", "D", 64)
	_ = f.SetColWidth(sheetInconsistencies, "E", "E", 48)
}

func (s *Service) writeSummary(f *excelize.File, a *entity.StructuralAnalysis) {
	var savings float64
	for _, o := range a.Optimizations {
		savings += o.PotentialSavings.Cost
	}
	rows := [][]any{
		{"Análise", a.ID.String()},
		{"Projeto", a.ProjectID.String()},
		{"Concluída em", a.UpdatedAt.Format(time.RFC3339)},
		{"Elementos", len(a.Elements)},
		{"Área total", a.TotalArea},
		{"Peso total de concreto (kg)", a.TotalConcrete},
		{"Peso total de aço (kg)", a.TotalSteel},
		{"Inconsistências", len(a.Inconsistencies)},
		{"Otimizações", len(a.Optimizations)},
		{"Economia potencial", savings},
	}
	for i, r := range rows {
		writeRow(f, sheetSummary, i+1, r...)
	}
	_ = f.SetColWidth(sheetSummary, "A", "A", 30)
	_ = f.SetColWidth(sheetSummary, "B", "B", 40)
}
