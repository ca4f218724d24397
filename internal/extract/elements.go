package extract

import (
	"regexp"
	"strconv"

	"github.com/joseph-ayodele/structural-analysis/constants"
)

var (
	rePillar = regexp.MustCompile(`(?i)\bPilar\s+([A-Za-z0-9._-]+)\s*:\s*(\d+)\s*[xX×]\s*(\d+)(?:\s*[xX×]\s*(\d+))?`)
	reBeam   = regexp.MustCompile(`(?i)\bViga\s+([A-Za-z0-9._-]+)\s*:\s*(\d+)\s*[xX×]\s*(\d+)(?:\s*[xX×]\s*(\d+))?`)
	reSlab   = regexp.MustCompile(`(?i)\bLaje\s+([A-Za-z0-9._-]+)\s*:\s*(\d+)\s*cm\b`)
)

// ExtractElements scans text for pillar, beam and slab labels. Every match is
// returned, duplicates included; matches whose numbers cannot be parsed are
// skipped.
func ExtractElements(text string) []ElementDraft {
	var out []ElementDraft
	out = append(out, extractMembers(text, rePillar, constants.Pillar)...)
	out = append(out, extractMembers(text, reBeam, constants.Beam)...)
	out = append(out, extractSlabs(text)...)
	return out
}

func extractMembers(text string, re *regexp.Regexp, typ constants.ElementType) []ElementDraft {
	var out []ElementDraft
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		w, ok1 := parseDim(m[2])
		h, ok2 := parseDim(m[3])
		if !ok1 || !ok2 {
			continue
		}
		var l float64
		if m[4] != "" {
			v, ok := parseDim(m[4])
			if !ok {
				continue
			}
			l = v
		}
		out = append(out, ElementDraft{Type: typ, Number: m[1], Width: w, Height: h, Length: l})
	}
	return out
}

func extractSlabs(text string) []ElementDraft {
	var out []ElementDraft
	for _, m := range reSlab.FindAllStringSubmatch(text, -1) {
		t, ok := parseDim(m[2])
		if !ok {
			continue
		}
		out = append(out, ElementDraft{Type: constants.Slab, Number: m[1], Thickness: t})
	}
	return out
}

// parseDim parses a positive integer dimension.
func parseDim(s string) (float64, bool) {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, false
	}
	return float64(n), true
}
