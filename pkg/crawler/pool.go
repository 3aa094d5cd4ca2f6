package crawler

import (
	"context"
	"runtime"
	"sync"
)

// TaskFunc is run once per package identifier.
type TaskFunc[T any] func(ctx context.Context, packageID string) (T, error)

// TaskResult carries one task's outcome back to the pool driver.
type TaskResult[T any] struct {
	Index     int
	PackageID string
	Value     T
	Err       error
}

// Pool runs package-scoped tasks on a fixed number of workers. Workers
// share nothing: each returns its result over a channel and the caller
// merges them after the pool drains.
type Pool[T any] struct {
	workerLimit int
}

// PoolOption configures a Pool.
type PoolOption[T any] func(*Pool[T])

// WithWorkerLimit sets the maximum number of concurrent workers.
func WithWorkerLimit[T any](limit int) PoolOption[T] {
	return func(p *Pool[T]) {
		p.workerLimit = limit
	}
}

// NewPool creates a Pool with optional configuration.
func NewPool[T any](opts ...PoolOption[T]) *Pool[T] {
	p := &Pool[T]{
		workerLimit: runtime.NumCPU(),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.workerLimit <= 0 {
		p.workerLimit = runtime.NumCPU()
	}

	return p
}

// Run executes task for every id and returns the results in input order.
// Once ctx is done no further ids are handed out; tasks already running
// finish and are still returned.
func (p *Pool[T]) Run(ctx context.Context, packageIDs []string, task TaskFunc[T]) []TaskResult[T] {
	if len(packageIDs) == 0 {
		return nil
	}

	workerCount := p.workerLimit
	if workerCount > len(packageIDs) {
		workerCount = len(packageIDs)
	}

	type job struct {
		index int
		id    string
	}

	jobCh := make(chan job)
	resCh := make(chan TaskResult[T], len(packageIDs))

	var wg sync.WaitGroup
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobCh {
				value, err := task(ctx, j.id)
				resCh <- TaskResult[T]{
					Index:     j.index,
					PackageID: j.id,
					Value:     value,
					Err:       err,
				}
			}
		}()
	}

	go func() {
		defer func() {
			close(jobCh)
			wg.Wait()
			close(resCh)
		}()
		for i, id := range packageIDs {
			if ctx.Err() != nil {
				return
			}
			select {
			case <-ctx.Done():
				return
			case jobCh <- job{index: i, id: id}:
			}
		}
	}()

	ordered := make([]*TaskResult[T], len(packageIDs))
	for res := range resCh {
		res := res
		ordered[res.Index] = &res
	}

	results := make([]TaskResult[T], 0, len(packageIDs))
	for _, res := range ordered {
		if res != nil {
			results = append(results, *res)
		}
	}
	return results
}
