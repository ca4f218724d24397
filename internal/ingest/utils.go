package ingest

import (
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/structural-analysis/constants"
)

// AllowedExt reports whether ext names a drawing format the processor takes.
func AllowedExt(ext string) bool {
	_, ok := constants.AllowedExtensions[constants.NormalizeExt(ext)]
	return ok
}

// IsHidden reports dot entries and the lock and autosave copies that CAD and
// office tools leave beside a drawing ("~$planta.dwg", "planta.pdf~").
// The walk roots "." and ".." are never hidden.
func IsHidden(path string) bool {
	switch base := filepath.Base(path); {
	case base == "." || base == "..":
		return false
	case strings.HasPrefix(base, "."), strings.HasPrefix(base, "~$"):
		return true
	default:
		return strings.HasSuffix(base, "~")
	}
}
