package syncq

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/ikramzafar0343/style-sathi/internal/domain"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() logrus.FieldLogger {
	l := logrus.New()
	l.Out = io.Discard
	return l
}

func testConfig(retries int) Config {
	cfg := DefaultConfig()
	cfg.MaxRetries = retries
	cfg.InitialInterval = time.Millisecond
	cfg.MaxInterval = 5 * time.Millisecond
	cfg.JobTimeout = time.Second
	return cfg
}

type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, s)
}

func (r *recorder) get() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func TestQueue_RunsJobsInOrder(t *testing.T) {
	q := New(testConfig(0), testLogger())
	defer q.Close(context.Background())

	rec := &recorder{}
	for i := 0; i < 50; i++ {
		name := fmt.Sprintf("job-%d", i)
		require.True(t, q.Enqueue(name, func(context.Context) error {
			rec.add(name)
			return nil
		}))
	}

	require.NoError(t, q.Flush(context.Background()))
	calls := rec.get()
	require.Len(t, calls, 50)
	for i, c := range calls {
		assert.Equal(t, fmt.Sprintf("job-%d", i), c)
	}
}

func TestQueue_JobsNeverOverlap(t *testing.T) {
	q := New(testConfig(0), testLogger())
	defer q.Close(context.Background())

	var mu sync.Mutex
	running, maxRunning := 0, 0
	for i := 0; i < 20; i++ {
		q.Enqueue("job", func(context.Context) error {
			mu.Lock()
			running++
			if running > maxRunning {
				maxRunning = running
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			running--
			mu.Unlock()
			return nil
		})
	}

	require.NoError(t, q.Flush(context.Background()))
	assert.Equal(t, 1, maxRunning)
}

func TestQueue_EnqueueDoesNotBlockOnSlowJob(t *testing.T) {
	q := New(testConfig(0), testLogger())
	defer q.Close(context.Background())

	release := make(chan struct{})
	q.Enqueue("slow", func(context.Context) error {
		<-release
		return nil
	})

	start := time.Now()
	for i := 0; i < 10; i++ {
		q.Enqueue("fast", func(context.Context) error { return nil })
	}
	assert.Less(t, time.Since(start), 100*time.Millisecond)
	close(release)
	require.NoError(t, q.Flush(context.Background()))
}

func TestQueue_NoRetryByDefault(t *testing.T) {
	q := New(testConfig(0), testLogger())
	defer q.Close(context.Background())

	rec := &recorder{}
	q.Enqueue("failing", func(context.Context) error {
		rec.add("attempt")
		return fmt.Errorf("%w: boom", domain.ErrNetwork)
	})
	q.Enqueue("next", func(context.Context) error {
		rec.add("next")
		return nil
	})

	require.NoError(t, q.Flush(context.Background()))
	assert.Equal(t, []string{"attempt", "next"}, rec.get())
}

func TestQueue_RetriesNetworkErrors(t *testing.T) {
	q := New(testConfig(3), testLogger())
	defer q.Close(context.Background())

	rec := &recorder{}
	attempts := 0
	q.Enqueue("flaky", func(context.Context) error {
		attempts++
		rec.add("attempt")
		if attempts < 3 {
			return fmt.Errorf("%w: timeout", domain.ErrNetwork)
		}
		return nil
	})

	require.NoError(t, q.Flush(context.Background()))
	assert.Len(t, rec.get(), 3)
}

func TestQueue_DoesNotRetryPermanentErrors(t *testing.T) {
	q := New(testConfig(5), testLogger())
	defer q.Close(context.Background())

	rec := &recorder{}
	q.Enqueue("unauthorized", func(context.Context) error {
		rec.add("attempt")
		return fmt.Errorf("fetch: %w", domain.ErrUnauthorized)
	})
	q.Enqueue("other", func(context.Context) error {
		rec.add("attempt")
		return errors.New("not found")
	})

	require.NoError(t, q.Flush(context.Background()))
	assert.Len(t, rec.get(), 2)
}

func TestQueue_CloseDrainsPendingJobs(t *testing.T) {
	q := New(testConfig(0), testLogger())

	rec := &recorder{}
	for i := 0; i < 5; i++ {
		q.Enqueue("job", func(context.Context) error {
			rec.add("ran")
			return nil
		})
	}

	require.NoError(t, q.Close(context.Background()))
	assert.Len(t, rec.get(), 5)
	assert.False(t, q.Enqueue("late", func(context.Context) error { return nil }))
	assert.ErrorIs(t, q.Flush(context.Background()), ErrClosed)
}

func TestQueue_CloseTimeoutCancelsRunningJob(t *testing.T) {
	q := New(testConfig(0), testLogger())

	cancelled := make(chan struct{})
	q.Enqueue("stuck", func(ctx context.Context) error {
		<-ctx.Done()
		close(cancelled)
		return ctx.Err()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := q.Close(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("running job was not cancelled")
	}
}
