package ocr

import (
	"context"
	"time"
)

// Result is the output of one recognition.
type Result struct {
	Text       string
	Confidence float64 // mean word confidence in [0,1]
	Engine     string
	Duration   time.Duration
	Cached     bool
}

// Recognizer turns a drawing image into text. Implementations have an
// explicit lifecycle: Initialize before the first Recognize, Terminate when
// done. Wrap engines in Shared before using them from several goroutines.
type Recognizer interface {
	Initialize(ctx context.Context) error
	Recognize(ctx context.Context, imagePath string) (Result, error)
	Terminate() error
}

// Config configures the recognizer stack built by New.
type Config struct {
	Engine        string // "cli" | "gosseract"
	Tesseract     string // binary name or absolute path; if empty -> "tesseract"
	Language      string // default "por"
	TessdataDir   string
	HeicConverter string
	PSM           int
	OEM           int

	MaxRetries          int
	RetryBackoff        time.Duration
	Timeout             time.Duration
	ConfidenceThreshold float64
	CacheTTL            time.Duration
}

func (c *Config) applyDefaults() {
	if c.Engine == "" {
		c.Engine = "cli"
	}
	if c.Tesseract == "" {
		c.Tesseract = "tesseract"
	}
	if c.Language == "" {
		c.Language = "por"
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = time.Second
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.ConfidenceThreshold <= 0 {
		c.ConfidenceThreshold = 0.7
	}
}
