package ocr

import (
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/structural-analysis/internal/metrics"
)

// New builds the recognizer stack used by the document processor:
// cache -> retry -> shared engine.
func New(cfg Config, runner Runner, m *metrics.Metrics, logger *slog.Logger) (Recognizer, error) {
	cfg.applyDefaults()
	if logger == nil {
		logger = slog.Default()
	}

	var engine Recognizer
	switch cfg.Engine {
	case "cli":
		engine = NewTesseractCLI(cfg, runner, logger)
	case "gosseract":
		g, err := NewGosseract(cfg, logger)
		if err != nil {
			return nil, err
		}
		engine = g
	default:
		return nil, fmt.Errorf("unknown ocr engine %q", cfg.Engine)
	}

	shared := NewShared(engine, logger)
	retrying := NewRetrying(shared, cfg, m, logger)
	return NewCached(retrying, cfg.CacheTTL, m), nil
}
