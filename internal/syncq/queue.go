package syncq

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ikramzafar0343/style-sathi/internal/domain"
	"github.com/sirupsen/logrus"
)

var ErrClosed = errors.New("sync queue closed")

type Config struct {
	// MaxRetries is the number of extra attempts for a job failing with a
	// network error. Zero runs every job exactly once.
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	JobTimeout      time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxRetries:      0,
		InitialInterval: 200 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		JobTimeout:      10 * time.Second,
	}
}

type job struct {
	name string
	run  func(ctx context.Context) error
}

// Queue runs the remote calls of one cart one at a time, in the order they
// were enqueued. Callers never wait for a job to run; failures are logged and
// dropped once retries are exhausted.
type Queue struct {
	cfg Config
	log logrus.FieldLogger

	mu     sync.Mutex
	jobs   []job
	closed bool
	signal chan struct{} // buffered, size 1
	done   chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
}

func New(cfg Config, log logrus.FieldLogger) *Queue {
	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		cfg:    cfg,
		log:    log,
		jobs:   make([]job, 0, 16),
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
	}
	go q.worker()
	return q
}

// Enqueue schedules fn behind every job enqueued before it. It returns false
// when the queue is closed.
func (q *Queue) Enqueue(name string, fn func(ctx context.Context) error) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.jobs = append(q.jobs, job{name: name, run: fn})

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// Flush blocks until every job enqueued before the call has finished.
func (q *Queue) Flush(ctx context.Context) error {
	barrier := make(chan struct{})
	ok := q.Enqueue("flush", func(context.Context) error {
		close(barrier)
		return nil
	})
	if !ok {
		return ErrClosed
	}

	select {
	case <-barrier:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

// Close stops accepting jobs, runs the ones already queued and waits for the
// worker to exit or ctx to expire. Jobs still running when ctx expires are
// cancelled.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		select {
		case q.signal <- struct{}{}:
		default:
		}
	}
	q.mu.Unlock()

	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		q.cancel()
		return ctx.Err()
	}
}

func (q *Queue) worker() {
	defer close(q.done)
	defer q.cancel()

	for {
		if j, ok := q.tryDequeue(); ok {
			q.run(j)
			continue
		}

		q.mu.Lock()
		closed := q.closed && len(q.jobs) == 0
		q.mu.Unlock()
		if closed {
			return
		}

		select {
		case <-q.signal:
		case <-q.ctx.Done():
			return
		}
	}
}

func (q *Queue) tryDequeue() (job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.jobs) == 0 {
		return job{}, false
	}
	j := q.jobs[0]
	q.jobs[0] = job{}
	q.jobs = q.jobs[1:]
	return j, true
}

func (q *Queue) run(j job) {
	attempts := 0
	op := func() error {
		attempts++
		ctx, cancel := context.WithTimeout(q.ctx, q.cfg.JobTimeout)
		defer cancel()

		err := j.run(ctx)
		if err != nil && !errors.Is(err, domain.ErrNetwork) {
			return backoff.Permanent(err)
		}
		return err
	}

	err := backoff.Retry(op, q.newBackOff())
	if err != nil {
		q.log.WithError(err).
			WithField("job", j.name).
			WithField("attempts", attempts).
			Warn("remote sync job failed, dropping")
	}
}

func (q *Queue) newBackOff() backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = q.cfg.InitialInterval
	exp.MaxInterval = q.cfg.MaxInterval
	exp.MaxElapsedTime = 0

	retries := q.cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(retries)), q.ctx)
}
