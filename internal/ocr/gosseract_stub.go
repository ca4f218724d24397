//go:build !gosseract

package ocr

import (
	"errors"
	"log/slog"
)

// NewGosseract is only available in binaries built with -tags gosseract,
// which need libtesseract and cgo.
func NewGosseract(_ Config, _ *slog.Logger) (Recognizer, error) {
	return nil, errors.New("gosseract engine not compiled in: rebuild with -tags gosseract")
}
