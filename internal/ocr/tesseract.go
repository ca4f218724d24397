package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joseph-ayodele/structural-analysis/constants"
)

// TesseractCLI recognizes images by running the tesseract binary in TSV mode.
// Text and mean word confidence come from the same run.
type TesseractCLI struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewTesseractCLI(cfg Config, runner Runner, logger *slog.Logger) *TesseractCLI {
	cfg.applyDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = ExecRunner{Logger: logger}
	}
	return &TesseractCLI{cfg: cfg, runner: runner, logger: logger}
}

// Initialize verifies the binary is callable.
func (t *TesseractCLI) Initialize(ctx context.Context) error {
	if _, errb, err := t.runner.Run(ctx, t.cfg.Tesseract, "--version"); err != nil {
		return fmt.Errorf("tesseract unavailable: %w (%s)", err, truncate(string(errb), 512))
	}
	t.logger.Info("tesseract recognizer initialized", "bin", t.cfg.Tesseract, "lang", t.cfg.Language)
	return nil
}

func (t *TesseractCLI) Terminate() error { return nil }

func (t *TesseractCLI) Recognize(ctx context.Context, imagePath string) (Result, error) {
	start := time.Now()
	path := imagePath
	if constants.IsHEICExt(filepath.Ext(imagePath)) {
		out, cleanup, err := convertHEICtoPNG(ctx, t.runner, t.cfg.HeicConverter, imagePath)
		if cleanup != nil {
			defer cleanup()
		}
		if err != nil {
			return Result{}, err
		}
		path = out
	}

	args := []string{path, "stdout", "-l", t.cfg.Language}
	if t.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(t.cfg.PSM))
	}
	if t.cfg.OEM > 0 {
		args = append(args, "--oem", strconv.Itoa(t.cfg.OEM))
	}
	if t.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", t.cfg.TessdataDir)
	}
	args = append(args, "tsv")

	out, errb, err := t.runner.Run(ctx, t.cfg.Tesseract, args...)
	if err != nil {
		return Result{}, fmt.Errorf("tesseract: %w (%s)", err, truncate(string(errb), 512))
	}
	text, conf := parseTSV(string(out))
	return Result{
		Text:       Normalize(text),
		Confidence: conf,
		Engine:     "tesseract-cli",
		Duration:   time.Since(start),
	}, nil
}

// parseTSV rebuilds line-broken text from tesseract TSV output and returns the
// mean word confidence in [0,1]. Columns: level page block par line word left
// top width height conf text.
func parseTSV(tsv string) (string, float64) {
	var (
		b        strings.Builder
		lastLine string
		sum, n   float64
	)
	for i, ln := range strings.Split(tsv, "\n") {
		if i == 0 || ln == "" {
			continue
		}
		cols := strings.Split(ln, "\t")
		if len(cols) < 12 || cols[0] != "5" {
			continue
		}
		word := strings.TrimSpace(cols[11])
		if word == "" {
			continue
		}
		lineKey := cols[1] + "/" + cols[2] + "/" + cols[3] + "/" + cols[4]
		switch {
		case b.Len() == 0:
		case lineKey != lastLine:
			b.WriteByte('\n')
		default:
			b.WriteByte(' ')
		}
		lastLine = lineKey
		b.WriteString(word)

		if c, err := strconv.ParseFloat(cols[10], 64); err == nil && c >= 0 {
			sum += c
			n++
		}
	}
	if n == 0 {
		return b.String(), 0
	}
	return b.String(), sum / n / 100.0
}
