package ocr

import (
	"context"
	"log/slog"
	"time"
)

// Shared owns one recognizer engine, initializes it on first use and lets a
// single caller at a time use it. Waiting for the engine honours ctx.
type Shared struct {
	inner  Recognizer
	logger *slog.Logger

	slot        chan struct{}
	initialized bool
}

func NewShared(inner Recognizer, logger *slog.Logger) *Shared {
	if logger == nil {
		logger = slog.Default()
	}
	return &Shared{inner: inner, logger: logger, slot: make(chan struct{}, 1)}
}

func (s *Shared) acquire(ctx context.Context) error {
	select {
	case s.slot <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Shared) release() { <-s.slot }

// Initialize is idempotent.
func (s *Shared) Initialize(ctx context.Context) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()
	return s.initLocked(ctx)
}

func (s *Shared) initLocked(ctx context.Context) error {
	if s.initialized {
		return nil
	}
	if err := s.inner.Initialize(ctx); err != nil {
		return err
	}
	s.initialized = true
	s.logger.Debug("recognizer worker ready")
	return nil
}

func (s *Shared) Recognize(ctx context.Context, imagePath string) (Result, error) {
	return s.RecognizeWithin(ctx, imagePath, 0)
}

// RecognizeWithin starts the d budget once the engine is held, so time spent
// queued behind other drawings only counts against ctx. d <= 0 means no limit.
func (s *Shared) RecognizeWithin(ctx context.Context, imagePath string, d time.Duration) (Result, error) {
	if err := s.acquire(ctx); err != nil {
		return Result{}, err
	}
	defer s.release()
	if d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}
	if err := s.initLocked(ctx); err != nil {
		return Result{}, err
	}
	return s.inner.Recognize(ctx, imagePath)
}

// Terminate releases the engine; a later Recognize initializes it again.
func (s *Shared) Terminate() error {
	s.slot <- struct{}{}
	defer s.release()
	if !s.initialized {
		return nil
	}
	s.initialized = false
	return s.inner.Terminate()
}
