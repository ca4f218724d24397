package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/structural-analysis/internal/common"
	"github.com/joseph-ayodele/structural-analysis/internal/metrics"
)

// Retrying retries failed recognitions with linear backoff (attempt x
// backoff). Each attempt gets its own timeout, which starts once the engine
// is free when the inner recognizer is a Shared. A result below the confidence
// threshold is returned as is and only logged.
type Retrying struct {
	inner   Recognizer
	cfg     Config
	logger  *slog.Logger
	metrics *metrics.Metrics
	sleep   func(ctx context.Context, d time.Duration) error
}

func NewRetrying(inner Recognizer, cfg Config, m *metrics.Metrics, logger *slog.Logger) *Retrying {
	cfg.applyDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Retrying{inner: inner, cfg: cfg, logger: logger, metrics: m, sleep: sleepCtx}
}

func (r *Retrying) Initialize(ctx context.Context) error { return r.inner.Initialize(ctx) }
func (r *Retrying) Terminate() error                     { return r.inner.Terminate() }

func (r *Retrying) Recognize(ctx context.Context, imagePath string) (Result, error) {
	var lastErr error
	for attempt := 1; attempt <= r.cfg.MaxRetries; attempt++ {
		res, err := r.attempt(ctx, imagePath)

		if err == nil {
			if res.Confidence < r.cfg.ConfidenceThreshold {
				r.metrics.RecordRecognition("low_confidence")
				r.logger.Warn("low recognition confidence",
					"path", imagePath,
					"confidence", res.Confidence,
					"threshold", r.cfg.ConfidenceThreshold,
					"attempt", attempt,
				)
			} else {
				r.metrics.RecordRecognition("ok")
			}
			return res, nil
		}

		r.metrics.RecordRecognition("error")
		lastErr = err
		r.logger.Warn("recognition attempt failed", "path", imagePath, "attempt", attempt, "max", r.cfg.MaxRetries, "error", err)
		if ctx.Err() != nil {
			break
		}
		if attempt < r.cfg.MaxRetries {
			if err := r.sleep(ctx, time.Duration(attempt)*r.cfg.RetryBackoff); err != nil {
				break
			}
		}
	}
	return Result{}, fmt.Errorf("%w after %d attempts: %w", common.ErrRecognition, r.cfg.MaxRetries, errors.Join(lastErr, ctx.Err()))
}

// boundedRecognizer applies an attempt timeout itself, after any wait for
// exclusive use of the engine.
type boundedRecognizer interface {
	RecognizeWithin(ctx context.Context, imagePath string, d time.Duration) (Result, error)
}

func (r *Retrying) attempt(ctx context.Context, imagePath string) (Result, error) {
	if b, ok := r.inner.(boundedRecognizer); ok {
		return b.RecognizeWithin(ctx, imagePath, r.cfg.Timeout)
	}
	actx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()
	return r.inner.Recognize(actx, imagePath)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
