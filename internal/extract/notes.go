package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/structural-analysis/constants"
)

const number = `(\d+(?:[.,]\d+)?)`

var notePatterns = []struct {
	typ constants.NoteType
	re  *regexp.Regexp
}{
	{constants.NoteFck, regexp.MustCompile(`(?i)\bfck\s*=\s*` + number)},
	{constants.NoteSteel, regexp.MustCompile(`(?i)\ba[çc]o\s*=\s*` + number + `\s*%`)},
	{constants.NoteLoad, regexp.MustCompile(`(?i)\bcarga\s*=\s*` + number + `\s*kN/m(?:²|2)`)},
}

// ExtractNotes returns one note per fck, steel-percentage and load annotation.
func ExtractNotes(text string) []NoteDraft {
	var out []NoteDraft
	for _, p := range notePatterns {
		for _, m := range p.re.FindAllStringSubmatch(text, -1) {
			v, err := strconv.ParseFloat(strings.Replace(m[1], ",", ".", 1), 64)
			if err != nil {
				continue
			}
			out = append(out, NoteDraft{Type: p.typ, Content: m[0], Value: v})
		}
	}
	return out
}
