package ocr

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/structural-analysis/internal/common"
)

type stubRunner struct {
	mu    sync.Mutex
	calls [][]string
	out   map[string][]byte
	err   error
}

func (s *stubRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, append([]string{name}, args...))
	if s.err != nil {
		return nil, []byte("boom"), s.err
	}
	return s.out[name], nil, nil
}

type fakeRecognizer struct {
	mu        sync.Mutex
	failures  int
	calls     int
	inits     int
	terms     int
	conf      float64
	inFlight  int32
	overlaps  int32
	hold      time.Duration
	deadlines []bool
}

func (f *fakeRecognizer) Initialize(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inits++
	return nil
}

func (f *fakeRecognizer) Terminate() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.terms++
	return nil
}

func (f *fakeRecognizer) Recognize(ctx context.Context, _ string) (Result, error) {
	if atomic.AddInt32(&f.inFlight, 1) > 1 {
		atomic.AddInt32(&f.overlaps, 1)
	}
	defer atomic.AddInt32(&f.inFlight, -1)
	if f.hold > 0 {
		time.Sleep(f.hold)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	_, hasDeadline := ctx.Deadline()
	f.deadlines = append(f.deadlines, hasDeadline)
	if f.calls <= f.failures {
		return Result{}, errors.New("engine crashed")
	}
	return Result{Text: "Pilar P1 : 20x40", Confidence: f.conf}, nil
}

const sampleTSV = "level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext\n" +
	"1\t1\t0\t0\t0\t0\t0\t0\t100\t100\t-1\t\n" +
	"5\t1\t1\t1\t1\t1\t0\t0\t10\t10\t90\tPilar\n" +
	"5\t1\t1\t1\t1\t2\t0\t0\t10\t10\t80\tP1\n" +
	"5\t1\t1\t1\t1\t3\t0\t0\t10\t10\t70\t:\n" +
	"5\t1\t1\t1\t1\t4\t0\t0\t10\t10\t60\t2Ox4O\n" +
	"5\t1\t1\t1\t2\t1\t0\t0\t10\t10\t100\tfck=30\n"

func TestTesseractCLIRecognize(t *testing.T) {
	r := &stubRunner{out: map[string][]byte{"tesseract": []byte(sampleTSV)}}
	cli := NewTesseractCLI(Config{Language: "por", PSM: 6, TessdataDir: "/td"}, r, nil)

	res, err := cli.Recognize(context.Background(), "/drawings/a.png")
	require.NoError(t, err)
	assert.Equal(t, "Pilar P1 : 20x40\nfck=30", res.Text)
	assert.InDelta(t, 0.8, res.Confidence, 1e-9)
	assert.Equal(t, "tesseract-cli", res.Engine)

	require.Len(t, r.calls, 1)
	assert.Equal(t, []string{"tesseract", "/drawings/a.png", "stdout", "-l", "por", "--psm", "6", "--tessdata-dir", "/td", "tsv"}, r.calls[0])
}

func TestTesseractCLIInitializeFails(t *testing.T) {
	r := &stubRunner{err: errors.New("not found")}
	cli := NewTesseractCLI(Config{}, r, nil)
	assert.Error(t, cli.Initialize(context.Background()))
}

func TestExecRunnerMissingTool(t *testing.T) {
	_, _, err := ExecRunner{}.Run(context.Background(), "pdftotext-not-installed-here", "-v")
	assert.ErrorIs(t, err, exec.ErrNotFound)
	assert.Equal(t, "abc...(truncated)", truncate("abcdef", 3))
}

func TestPDFTextPages(t *testing.T) {
	r := &stubRunner{out: map[string][]byte{"pdftotext": []byte("Pilar P1 : 20x40\r\n\f  Laje L1 : 15cm  \n\f")}}
	pages, err := NewPDFText("", r, nil).Pages(context.Background(), "/d.pdf")
	require.NoError(t, err)
	assert.Equal(t, []string{"Pilar P1 : 20x40", "Laje L1 : 15cm"}, pages)
	assert.Equal(t, []string{"pdftotext", "-layout", "-enc", "UTF-8", "-eol", "unix", "/d.pdf", "-"}, r.calls[0])

	r.err = errors.New("corrupt")
	_, err = NewPDFText("", r, nil).Pages(context.Background(), "/d.pdf")
	assert.Error(t, err)
}

func TestNormalize(t *testing.T) {
	in := "Viga V1 :\t15x6O\r\n\n\n\n-----\nLaje  L2 : 1OOcm   "
	assert.Equal(t, "Viga V1 : 15x60\n\nLaje L2 : 100cm", Normalize(in))
	assert.Equal(t, "", Normalize(""))
}

func newTestRetrying(inner Recognizer, cfg Config) (*Retrying, *[]time.Duration) {
	r := NewRetrying(inner, cfg, nil, nil)
	var slept []time.Duration
	r.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return r, &slept
}

func TestRetryingSucceedsAfterFailures(t *testing.T) {
	fake := &fakeRecognizer{failures: 2, conf: 0.9}
	r, slept := newTestRetrying(fake, Config{MaxRetries: 3})

	res, err := r.Recognize(context.Background(), "x.png")
	require.NoError(t, err)
	assert.Equal(t, "Pilar P1 : 20x40", res.Text)
	assert.Equal(t, 3, fake.calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, *slept)
	assert.Equal(t, []bool{true, true, true}, fake.deadlines, "every attempt carries its own timeout")
}

func TestRetryingGivesUp(t *testing.T) {
	fake := &fakeRecognizer{failures: 10}
	r, slept := newTestRetrying(fake, Config{MaxRetries: 3})

	_, err := r.Recognize(context.Background(), "x.png")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrRecognition)
	assert.Contains(t, err.Error(), "engine crashed")
	assert.Equal(t, 3, fake.calls)
	assert.Len(t, *slept, 2)
}

func TestRetryingLowConfidenceIsNotRetried(t *testing.T) {
	fake := &fakeRecognizer{conf: 0.2}
	r, slept := newTestRetrying(fake, Config{MaxRetries: 3, ConfidenceThreshold: 0.7})

	res, err := r.Recognize(context.Background(), "x.png")
	require.NoError(t, err)
	assert.Equal(t, 0.2, res.Confidence)
	assert.Equal(t, 1, fake.calls)
	assert.Empty(t, *slept)
}

func TestRetryingStopsOnCancelledContext(t *testing.T) {
	fake := &fakeRecognizer{failures: 10}
	r := NewRetrying(fake, Config{MaxRetries: 3, RetryBackoff: time.Hour}, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.Recognize(ctx, "x.png")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, fake.calls)
}

func TestSharedSerializesAndInitializesOnce(t *testing.T) {
	fake := &fakeRecognizer{conf: 1, hold: 5 * time.Millisecond}
	s := NewShared(fake, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Recognize(context.Background(), "x.png")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, fake.inits)
	assert.Equal(t, 8, fake.calls)
	assert.Zero(t, atomic.LoadInt32(&fake.overlaps))

	require.NoError(t, s.Terminate())
	require.NoError(t, s.Terminate())
	assert.Equal(t, 1, fake.terms)

	_, err := s.Recognize(context.Background(), "x.png")
	require.NoError(t, err)
	assert.Equal(t, 2, fake.inits)
}

func TestSharedHonoursContextWhileWaiting(t *testing.T) {
	s := NewShared(&fakeRecognizer{}, nil)
	s.slot <- struct{}{} // engine busy

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := s.Recognize(ctx, "x.png")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRetryingTimeoutExcludesWaitForEngine(t *testing.T) {
	fake := &fakeRecognizer{conf: 1, hold: 50 * time.Millisecond}
	r := NewRetrying(NewShared(fake, nil), Config{MaxRetries: 1, Timeout: 80 * time.Millisecond}, nil, nil)

	// the last caller queues for ~150ms, well past one attempt's budget
	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Recognize(context.Background(), "x.png")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 4, fake.calls)
	assert.Equal(t, []bool{true, true, true, true}, fake.deadlines)
}

func TestCachedReusesResultForSameBytes(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.png")
	b := filepath.Join(dir, "b.png")
	require.NoError(t, os.WriteFile(a, []byte("same"), 0o600))
	require.NoError(t, os.WriteFile(b, []byte("same"), 0o600))

	fake := &fakeRecognizer{conf: 1}
	c := NewCached(fake, time.Minute, nil)

	first, err := c.Recognize(context.Background(), a)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := c.Recognize(context.Background(), b)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Text, second.Text)
	assert.Equal(t, 1, fake.calls)

	_, err = c.Recognize(context.Background(), filepath.Join(dir, "missing.png"))
	assert.Error(t, err)
}

func TestNewBuildsStack(t *testing.T) {
	rec, err := New(Config{Engine: "cli"}, &stubRunner{}, nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &Cached{}, rec)

	_, err = New(Config{Engine: "paddle"}, nil, nil, nil)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "paddle"))
}
