package protocol

import (
	"context"
	"sync"
)

// Queue runs posted closures one at a time, in order, on the goroutine that
// calls Run. Transport reads, local input and timers all go through it, so a
// Session is never touched concurrently.
type Queue struct {
	mu   sync.Mutex
	jobs []func()
	wake chan struct{}
}

func NewQueue() *Queue {
	return &Queue{wake: make(chan struct{}, 1)}
}

// Post never blocks, so it is safe to call from inside a running job.
func (q *Queue) Post(fn func()) {
	q.mu.Lock()
	q.jobs = append(q.jobs, fn)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Call posts fn and waits for it to run.
func (q *Queue) Call(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	q.Post(func() {
		defer close(done)
		fn()
	})
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-q.wake:
		}

		for {
			q.mu.Lock()
			jobs := q.jobs
			q.jobs = nil
			q.mu.Unlock()

			if len(jobs) == 0 {
				break
			}
			for _, fn := range jobs {
				fn()
			}
		}
	}
}
