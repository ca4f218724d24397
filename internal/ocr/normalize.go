package ocr

import (
	"regexp"
	"strings"
)

var (
	reCRLF       = regexp.MustCompile(`\r\n?`)
	reTabs       = regexp.MustCompile(`\t+`)
	reMultiSpace = regexp.MustCompile(` {2,}`)
	reMultiBlank = regexp.MustCompile(`\n{3,}`)
	reBoxNoise   = regexp.MustCompile(`(?m)^[ \t]*[_\-=]{3,}[ \t]*$`)
	// letter O read in place of a zero next to a digit, as in "2Ox4O"
	reDigitO = regexp.MustCompile(`(\d)[Oo]`)
)

// Normalize collapses noisy whitespace and fixes common OCR artifacts in
// dimension labels. Line breaks are kept because the table heuristic is
// line based.
func Normalize(s string) string {
	if s == "" {
		return s
	}
	s = reCRLF.ReplaceAllString(s, "\n")
	s = reTabs.ReplaceAllString(s, " ")
	s = reMultiSpace.ReplaceAllString(s, " ")
	s = reBoxNoise.ReplaceAllString(s, "")
	s = reMultiBlank.ReplaceAllString(s, "\n\n")
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " ")
	}
	s = strings.Join(lines, "\n")
	// applied twice so runs like "1OO" become "100"
	s = reDigitO.ReplaceAllString(s, "${1}0")
	s = reDigitO.ReplaceAllString(s, "${1}0")
	return strings.TrimSpace(s)
}
