package extract

import (
	"strconv"
	"strings"

	"github.com/joseph-ayodele/structural-analysis/constants"
	"github.com/joseph-ayodele/structural-analysis/internal/entity"
)

// ExtractTables groups consecutive pipe-delimited lines into tables. The first
// line of each group is the header; the rest become rows keyed by header.
func ExtractTables(text string) []TableDraft {
	var (
		out     []TableDraft
		current *TableDraft
	)
	closeTable := func() {
		if current != nil {
			out = append(out, *current)
			current = nil
		}
	}

	for i, line := range strings.Split(text, "\n") {
		if !strings.Contains(line, "|") {
			closeTable()
			continue
		}
		if isRule(line) {
			continue
		}
		cells := splitCells(line)
		if current == nil {
			current = &TableDraft{
				Type:     constants.DefaultTableType,
				Data:     entity.TableData{Headers: cells, Rows: []map[string]string{}},
				Location: entity.Location{Y: float64(i)},
			}
			continue
		}
		row := make(map[string]string, len(current.Data.Headers))
		for j, cell := range cells {
			row[headerAt(current.Data.Headers, j)] = cell
		}
		current.Data.Rows = append(current.Data.Rows, row)
	}
	closeTable()
	return out
}

// isRule reports a separator line such as "|----|:---:|".
func isRule(line string) bool {
	return strings.Trim(line, "|-:+= \t") == ""
}

func splitCells(line string) []string {
	line = strings.TrimSpace(line)
	line = strings.TrimPrefix(line, "|")
	line = strings.TrimSuffix(line, "|")
	parts := strings.Split(line, "|")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// headerAt returns the header name at position j, or a positional key when the
// row is wider than the header.
func headerAt(headers []string, j int) string {
	if j < len(headers) && headers[j] != "" {
		return headers[j]
	}
	return "col" + strconv.Itoa(j+1)
}
