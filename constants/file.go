package constants

import "strings"

// File formats stored in project_files.format.
const (
	PDF   = "pdf"
	IMAGE = "image"
	DWG   = "dwg"
)

// FileTypes holds the allowed values for the format column.
var FileTypes = []string{PDF, IMAGE, DWG}

// AllowedExtensions holds the default allowed file extensions for drawing ingestion.
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"png":  {},
	"jpg":  {},
	"jpeg": {},
	"tif":  {},
	"tiff": {},
	"heic": {},
	"heif": {},
	"dwg":  {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MapExtToFormat maps an extension to its drawing format, or "" when unknown.
func MapExtToFormat(ext string) string {
	switch NormalizeExt(ext) {
	case "pdf":
		return PDF
	case "png", "jpg", "jpeg", "tif", "tiff", "heic", "heif":
		return IMAGE
	case "dwg":
		return DWG
	default:
		return ""
	}
}

func IsHEICExt(ext string) bool {
	e := NormalizeExt(ext)
	return e == "heic" || e == "heif"
}
