package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// PDFText reads the embedded text layer of a PDF with pdftotext.
type PDFText struct {
	Bin    string
	runner Runner
	logger *slog.Logger
}

func NewPDFText(bin string, runner Runner, logger *slog.Logger) *PDFText {
	if bin == "" {
		bin = "pdftotext"
	}
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = ExecRunner{Logger: logger}
	}
	return &PDFText{Bin: bin, runner: runner, logger: logger}
}

// Pages returns the normalized text of every page, in order.
func (p *PDFText) Pages(ctx context.Context, path string) ([]string, error) {
	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := p.runner.Run(ctx, p.Bin, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		return nil, fmt.Errorf("pdftotext: %w (%s)", err, truncate(string(errb), 512))
	}
	// a form feed separates pages and also terminates the last one
	raw := strings.Split(string(out), "\f")
	if len(raw) > 1 && strings.TrimSpace(raw[len(raw)-1]) == "" {
		raw = raw[:len(raw)-1]
	}
	pages := make([]string, len(raw))
	for i, pg := range raw {
		pages[i] = Normalize(pg)
	}
	p.logger.Debug("pdf text extracted", "path", path, "pages", len(pages))
	return pages, nil
}
