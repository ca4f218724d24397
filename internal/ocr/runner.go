package ocr

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// Runner executes the external drawing tools: pdftotext, tesseract and the
// HEIC converter.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

const (
	stderrLogLimit   = 8 << 10
	defaultWaitDelay = 5 * time.Second
)

// ExecRunner runs tools as host processes. A tool killed by ctx gets
// WaitDelay to release its pipes before Run gives up on it.
type ExecRunner struct {
	Logger    *slog.Logger
	WaitDelay time.Duration
}

func (r ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("tool", filepath.Base(name))

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.WaitDelay = r.WaitDelay
	if cmd.WaitDelay <= 0 {
		cmd.WaitDelay = defaultWaitDelay
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start).Milliseconds()

	switch {
	case err == nil:
		logger.Debug("tool finished", "args", strings.Join(args, " "), "duration_ms", elapsed, "stdout_bytes", stdout.Len())
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		logger.Error("tool timed out", "args", strings.Join(args, " "), "duration_ms", elapsed)
	default:
		logger.Error("tool failed",
			"args", strings.Join(args, " "),
			"duration_ms", elapsed,
			"exit_code", cmd.ProcessState.ExitCode(),
			"error", err,
			"stderr", truncate(stderr.String(), stderrLogLimit),
		)
	}
	return stdout.Bytes(), stderr.Bytes(), err
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "...(truncated)"
}
