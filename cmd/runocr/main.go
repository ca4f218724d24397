package main

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/joseph-ayodele/structural-analysis/constants"
	"github.com/joseph-ayodele/structural-analysis/internal/common"
	"github.com/joseph-ayodele/structural-analysis/internal/extract"
	"github.com/joseph-ayodele/structural-analysis/internal/ocr"
)

// runocr recognizes one drawing and prints what the extractors find in it,
// without touching the database.
func main() {
	cfg := common.LoadConfig()
	logger := common.NewLogger(os.Stdout, cfg.LogLevel)

	if len(os.Args) != 2 {
		logger.Error("usage", "cmd", "runocr <drawing.pdf|png|jpg|heic>")
		os.Exit(2)
	}
	path := os.Args[1]

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	runner := ocr.ExecRunner{Logger: logger}
	var pages []string
	start := time.Now()
	switch constants.MapExtToFormat(filepath.Ext(path)) {
	case constants.PDF:
		ps, err := ocr.NewPDFText(cfg.OCR.Pdftotext, runner, logger).Pages(ctx, path)
		if err != nil {
			logger.Error("pdf text failed", "path", path, "error", err)
			os.Exit(1)
		}
		pages = ps
	case constants.IMAGE:
		rec, err := ocr.New(ocr.Config{
			Engine:              cfg.OCR.Engine,
			Tesseract:           cfg.OCR.Tesseract,
			Language:            cfg.OCR.Language,
			TessdataDir:         cfg.OCR.TessdataDir,
			HeicConverter:       cfg.OCR.HeicConverter,
			MaxRetries:          cfg.OCR.MaxRetries,
			RetryBackoff:        cfg.OCR.RetryBackoff,
			Timeout:             cfg.OCR.Timeout,
			ConfidenceThreshold: cfg.OCR.ConfidenceThreshold,
		}, runner, nil, logger)
		if err != nil {
			logger.Error("recognizer", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := rec.Terminate(); err != nil {
				logger.Warn("recognizer terminate", "error", err)
			}
		}()
		res, err := rec.Recognize(ctx, path)
		if err != nil {
			logger.Error("recognition failed", "path", path, "error", err)
			os.Exit(1)
		}
		logger.Info("recognized", "engine", res.Engine, "confidence", res.Confidence)
		pages = []string{res.Text}
	default:
		logger.Error("unsupported drawing", "path", path)
		os.Exit(2)
	}

	for i, text := range pages {
		elements := extract.ExtractElements(text)
		notes := extract.ExtractNotes(text)
		tables := extract.ExtractTables(text)
		logger.Info("page extracted",
			"page", i+1,
			"bytes", len(text),
			"elements", len(elements),
			"notes", len(notes),
			"tables", len(tables),
		)
		for _, e := range elements {
			logger.Info("element", "page", i+1, "type", e.Type, "number", e.Number,
				"width", e.Width, "height", e.Height, "length", e.Length, "thickness", e.Thickness)
		}
		for _, n := range notes {
			logger.Info("note", "page", i+1, "type", n.Type, "value", n.Value, "content", n.Content)
		}
	}
	logger.Info("done", "path", path, "pages", len(pages), "duration_ms", time.Since(start).Milliseconds())
}
