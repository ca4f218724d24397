//go:build gosseract

package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/otiai10/gosseract/v2"
)

// Gosseract runs Tesseract in-process through libtesseract. One client is
// created by Initialize and reused for every call; wrap it in Shared.
type Gosseract struct {
	cfg    Config
	client *gosseract.Client
	logger *slog.Logger
}

func NewGosseract(cfg Config, logger *slog.Logger) (Recognizer, error) {
	cfg.applyDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Gosseract{cfg: cfg, logger: logger}, nil
}

func (g *Gosseract) Initialize(_ context.Context) error {
	c := gosseract.NewClient()
	if g.cfg.TessdataDir != "" {
		if err := c.SetTessdataPrefix(g.cfg.TessdataDir); err != nil {
			_ = c.Close()
			return fmt.Errorf("set tessdata prefix: %w", err)
		}
	}
	if err := c.SetLanguage(g.cfg.Language); err != nil {
		_ = c.Close()
		return fmt.Errorf("set language: %w", err)
	}
	if g.cfg.PSM > 0 {
		if err := c.SetPageSegMode(gosseract.PageSegMode(g.cfg.PSM)); err != nil {
			_ = c.Close()
			return fmt.Errorf("set psm: %w", err)
		}
	}
	g.client = c
	g.logger.Info("gosseract recognizer initialized", "lang", g.cfg.Language, "version", gosseract.Version())
	return nil
}

func (g *Gosseract) Terminate() error {
	if g.client == nil {
		return nil
	}
	err := g.client.Close()
	g.client = nil
	return err
}

func (g *Gosseract) Recognize(ctx context.Context, imagePath string) (Result, error) {
	if g.client == nil {
		return Result{}, fmt.Errorf("gosseract: not initialized")
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	start := time.Now()
	if err := g.client.SetImage(imagePath); err != nil {
		return Result{}, fmt.Errorf("set image: %w", err)
	}
	text, err := g.client.Text()
	if err != nil {
		return Result{}, fmt.Errorf("recognize text: %w", err)
	}
	return Result{
		Text:       Normalize(strings.TrimSpace(text)),
		Confidence: g.meanConfidence(),
		Engine:     "gosseract",
		Duration:   time.Since(start),
	}, nil
}

func (g *Gosseract) meanConfidence() float64 {
	boxes, err := g.client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil || len(boxes) == 0 {
		return 0
	}
	var sum float64
	for _, b := range boxes {
		sum += b.Confidence / 100.0
	}
	return sum / float64(len(boxes))
}
