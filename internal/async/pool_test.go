package async

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/joseph-ayodele/structural-analysis/internal/common"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestPoolRunsJobsByKind(t *testing.T) {
	var files, analyses atomic.Int32
	var wg sync.WaitGroup
	wg.Add(5)
	p := NewPool(nil,
		WithWorkers(2),
		WithHandler(KindProcessFile, func(ctx context.Context, job Job) error {
			defer wg.Done()
			files.Add(1)
			return nil
		}),
	)
	p.Handle(KindAnalysis, func(ctx context.Context, job Job) error {
		defer wg.Done()
		analyses.Add(1)
		return errors.New("boom")
	})

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, p.Enqueue(ctx, Job{Kind: KindProcessFile, ID: uuid.New()}))
	}
	for i := 0; i < 2; i++ {
		require.NoError(t, p.Enqueue(ctx, Job{Kind: KindAnalysis, ID: uuid.New()}))
	}
	wg.Wait()
	p.Shutdown(ctx)

	assert.Equal(t, int32(3), files.Load())
	assert.Equal(t, int32(2), analyses.Load())
}

func TestPoolShutdownDrainsQueue(t *testing.T) {
	var done atomic.Int32
	p := NewPool(nil,
		WithWorkers(1),
		WithQueueSize(10),
		WithHandler(KindProcessFile, func(ctx context.Context, job Job) error {
			time.Sleep(5 * time.Millisecond)
			done.Add(1)
			return nil
		}),
	)
	for i := 0; i < 5; i++ {
		require.NoError(t, p.Enqueue(context.Background(), Job{Kind: KindProcessFile}))
	}
	p.Shutdown(context.Background())
	assert.Equal(t, int32(5), done.Load())

	err := p.Enqueue(context.Background(), Job{Kind: KindProcessFile})
	assert.ErrorIs(t, err, ErrQueueClosed)

	// second shutdown is a no-op
	p.Shutdown(context.Background())
}

func TestPoolShutdownTimeoutCancelsRunningJobs(t *testing.T) {
	started := make(chan struct{})
	var cancelled atomic.Bool
	p := NewPool(nil,
		WithWorkers(1),
		WithProcessTimeout(time.Hour),
		WithHandler(KindAnalysis, func(ctx context.Context, job Job) error {
			close(started)
			<-ctx.Done()
			cancelled.Store(true)
			return ctx.Err()
		}),
	)
	require.NoError(t, p.Enqueue(context.Background(), Job{Kind: KindAnalysis}))
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	p.Shutdown(ctx)
	assert.True(t, cancelled.Load())
}

func TestPoolJobTimeout(t *testing.T) {
	errs := make(chan error, 1)
	p := NewPool(nil,
		WithWorkers(1),
		WithProcessTimeout(10*time.Millisecond),
		WithHandler(KindProcessFile, func(ctx context.Context, job Job) error {
			<-ctx.Done()
			errs <- ctx.Err()
			return ctx.Err()
		}),
	)
	require.NoError(t, p.Enqueue(context.Background(), Job{Kind: KindProcessFile}))
	assert.ErrorIs(t, <-errs, context.DeadlineExceeded)
	p.Shutdown(context.Background())
}

func TestPoolRecoversFromPanic(t *testing.T) {
	var ran atomic.Int32
	var wg sync.WaitGroup
	wg.Add(2)
	p := NewPool(nil,
		WithWorkers(1),
		WithHandler(KindProcessFile, func(ctx context.Context, job Job) error {
			defer wg.Done()
			if ran.Add(1) == 1 {
				panic("bad drawing")
			}
			return nil
		}),
	)
	require.NoError(t, p.Enqueue(context.Background(), Job{Kind: KindProcessFile}))
	require.NoError(t, p.Enqueue(context.Background(), Job{Kind: KindProcessFile}))
	wg.Wait()
	p.Shutdown(context.Background())
	assert.Equal(t, int32(2), ran.Load())
}

func TestPoolEnqueueFullQueueHonoursContext(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	p := NewPool(nil,
		WithWorkers(1),
		WithQueueSize(1),
		WithHandler(KindProcessFile, func(ctx context.Context, job Job) error {
			started <- struct{}{}
			<-release
			return nil
		}),
	)
	require.NoError(t, p.Enqueue(context.Background(), Job{Kind: KindProcessFile}))
	<-started // worker busy, queue empty
	require.NoError(t, p.Enqueue(context.Background(), Job{Kind: KindProcessFile}))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := p.Enqueue(ctx, Job{Kind: KindProcessFile})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	p.Shutdown(context.Background())
}

func TestPoolBlockedEnqueueDoesNotStallOthers(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	p := NewPool(nil,
		WithWorkers(1),
		WithQueueSize(1),
		WithHandler(KindProcessFile, func(ctx context.Context, job Job) error {
			started <- struct{}{}
			<-release
			return nil
		}),
	)
	require.NoError(t, p.Enqueue(context.Background(), Job{Kind: KindProcessFile}))
	<-started
	require.NoError(t, p.Enqueue(context.Background(), Job{Kind: KindProcessFile}))

	// one sender parks on the full queue with a long deadline
	slowCtx, slowCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer slowCancel()
	slowErr := make(chan error, 1)
	go func() { slowErr <- p.Enqueue(slowCtx, Job{Kind: KindProcessFile}) }()
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	start := time.Now()
	err := p.Enqueue(ctx, Job{Kind: KindProcessFile})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 300*time.Millisecond)

	// Shutdown must not wait for the parked sender's deadline
	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		p.Shutdown(context.Background())
	}()
	select {
	case err := <-slowErr:
		assert.ErrorIs(t, err, ErrQueueClosed)
	case <-time.After(time.Second):
		t.Fatal("parked enqueue not released by shutdown")
	}
	close(release)
	<-shutdownDone
	assert.ErrorIs(t, p.Enqueue(context.Background(), Job{Kind: KindProcessFile}), ErrQueueClosed)
}

func TestPoolCarriesRequestIDToJobs(t *testing.T) {
	type seen struct{ requestID, projectID string }
	got := make(chan seen, 1)
	p := NewPool(nil, WithHandler(KindAnalysis, func(ctx context.Context, job Job) error {
		got <- seen{common.RequestIDFromContext(ctx), common.ProjectIDFromContext(ctx)}
		return nil
	}))
	defer p.Shutdown(context.Background())

	projectID := uuid.New()
	ctx := common.WithRequestID(context.Background(), "req-42")
	require.NoError(t, p.Enqueue(ctx, Job{Kind: KindAnalysis, ID: uuid.New(), ProjectID: projectID}))

	select {
	case s := <-got:
		assert.Equal(t, "req-42", s.requestID)
		assert.Equal(t, projectID.String(), s.projectID)
	case <-time.After(5 * time.Second):
		t.Fatal("job did not run")
	}
}
