package ocr

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/joseph-ayodele/structural-analysis/internal/metrics"
)

// Cached serves repeated recognitions of identical image bytes from memory.
type Cached struct {
	inner   Recognizer
	cache   *cache.Cache
	metrics *metrics.Metrics
}

func NewCached(inner Recognizer, ttl time.Duration, m *metrics.Metrics) *Cached {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Cached{inner: inner, cache: cache.New(ttl, 2*ttl), metrics: m}
}

func (c *Cached) Initialize(ctx context.Context) error { return c.inner.Initialize(ctx) }
func (c *Cached) Terminate() error                     { return c.inner.Terminate() }

func (c *Cached) Recognize(ctx context.Context, imagePath string) (Result, error) {
	key, err := fileHash(imagePath)
	if err != nil {
		return Result{}, err
	}
	if v, ok := c.cache.Get(key); ok {
		c.metrics.RecordCacheHit()
		res := v.(Result)
		res.Cached = true
		return res, nil
	}
	res, err := c.inner.Recognize(ctx, imagePath)
	if err != nil {
		return res, err
	}
	c.cache.SetDefault(key, res)
	return res, nil
}

func fileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open image: %w", err)
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash image: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
