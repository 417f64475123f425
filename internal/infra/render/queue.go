package render

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/formlock/formlock-backend/internal/application/errs"
	"github.com/formlock/formlock-backend/internal/infra/config"
	"golang.org/x/sync/semaphore"
)

// Renderer is the external headless-browser renderer, a black box that
// turns a submission token into PDF bytes.
type Renderer interface {
	Render(ctx context.Context, token string) ([]byte, error)
}

// StatusSource reports whether a submission is locked. Only artifacts of
// locked submissions may be cached.
type StatusSource interface {
	IsLocked(ctx context.Context, token string) (bool, error)
}

// Queue executes render jobs with bounded concurrency and deduplicates
// concurrent requests per token: at most one render runs for a token
// process-wide, and every waiter observes the same result.
type Queue struct {
	cache    *Cache
	renderer Renderer
	status   StatusSource
	sem      *semaphore.Weighted
	timeout  time.Duration

	mu       sync.Mutex
	inflight map[string]*renderJob
}

type renderJob struct {
	done chan struct{}
	pdf  []byte
	err  error
}

func (j *renderJob) wait(ctx context.Context) ([]byte, error) {
	select {
	case <-j.done:
		return j.pdf, j.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func NewQueue(cfg *config.RenderConfig, cache *Cache, renderer Renderer, status StatusSource) *Queue {
	return &Queue{
		cache:    cache,
		renderer: renderer,
		status:   status,
		sem:      semaphore.NewWeighted(cfg.Concurrency),
		timeout:  cfg.JobTimeout,
		inflight: make(map[string]*renderJob),
	}
}

// Acquire returns the artifact for a token, joining an in-flight render
// if one exists, serving from cache otherwise, and rendering as a last
// resort. The mutex only guards the in-flight map, never cache disk I/O.
func (q *Queue) Acquire(ctx context.Context, token string) ([]byte, error) {
	q.mu.Lock()
	if job, ok := q.inflight[token]; ok {
		q.mu.Unlock()
		slog.Info("joining in-flight render", "token", token)
		return job.wait(ctx)
	}
	q.mu.Unlock()

	pdf, err := q.cache.Get(token)
	if err == nil {
		return pdf, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		return nil, err
	}

	q.mu.Lock()
	// another caller may have registered a job during the cache lookup
	if job, ok := q.inflight[token]; ok {
		q.mu.Unlock()
		slog.Info("joining in-flight render", "token", token)
		return job.wait(ctx)
	}
	job := &renderJob{done: make(chan struct{})}
	q.inflight[token] = job
	q.mu.Unlock()

	// the job runs detached from any single caller so that a cancelled
	// waiter does not fail the render for the others
	go q.run(token, job)

	return job.wait(ctx)
}

func (q *Queue) run(token string, job *renderJob) {
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()

	pdf, err := q.execute(ctx, token)
	if err != nil {
		// drop the entry so a later caller may retry rendering
		q.mu.Lock()
		delete(q.inflight, token)
		q.mu.Unlock()

		job.err = errs.RenderError{Err: err}
		close(job.done)
		return
	}

	q.cacheIfLocked(token, pdf)

	q.mu.Lock()
	delete(q.inflight, token)
	q.mu.Unlock()

	job.pdf = pdf
	close(job.done)
}

func (q *Queue) execute(ctx context.Context, token string) ([]byte, error) {
	if err := q.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer q.sem.Release(1)

	return q.renderer.Render(ctx, token)
}

// cacheIfLocked writes through to the cache, but only for submissions
// that can no longer change.
func (q *Queue) cacheIfLocked(token string, pdf []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	locked, err := q.status.IsLocked(ctx, token)
	if err != nil {
		slog.Error("error checking lock status, skipping cache write", "token", token, "err", err)
		return
	}
	if !locked {
		return
	}
	if err := q.cache.Put(token, pdf); err != nil {
		slog.Error("error caching artifact", "token", token, "err", err)
	}
}
