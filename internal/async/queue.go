package async

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Job kinds handled by the worker pool.
const (
	KindProcessFile = "process_file"
	KindAnalysis    = "analysis"
)

var ErrQueueClosed = errors.New("queue is shutting down")

// Job is the smallest useful unit of background work.
type Job struct {
	Kind        string
	ID          uuid.UUID // file or analysis id, depending on Kind
	ProjectID   uuid.UUID
	SubmittedAt time.Time
	TraceID     string
}

// Handler runs one job. The context carries the per-job timeout and is
// cancelled when shutdown gives up waiting.
type Handler func(ctx context.Context, job Job) error

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}
