// Package job runs one long pass on a background goroutine.
//
// A Job publishes its progress as a lock-free snapshot that any goroutine may
// poll, can be cancelled through its context, and yields a value or an error
// once finished. Progress only moves forward: stale lower values are dropped.
package job

import (
	"context"
	"math"
	"sync/atomic"
)

// Reporter receives progress fractions in [0, 1] from inside a job.
type Reporter func(fraction float64)

// Func is the work a job runs.
type Func[T any] func(ctx context.Context, report Reporter) (T, error)

// Job is a running or finished unit of work.
type Job[T any] struct {
	name     string
	cancel   context.CancelFunc
	done     chan struct{}
	progress atomic.Uint64

	result T
	err    error
}

// Start runs fn on a new goroutine under a context derived from ctx.
func Start[T any](ctx context.Context, name string, fn Func[T]) *Job[T] {
	ctx, cancel := context.WithCancel(ctx)
	j := &Job[T]{
		name:   name,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go func() {
		defer close(j.done)
		defer cancel()
		j.result, j.err = fn(ctx, j.report)
	}()
	return j
}

func (j *Job[T]) report(f float64) {
	if math.IsNaN(f) {
		return
	}
	f = min(max(f, 0), 1)
	next := math.Float64bits(f)
	for {
		cur := j.progress.Load()
		if math.Float64frombits(cur) >= f {
			return
		}
		if j.progress.CompareAndSwap(cur, next) {
			return
		}
	}
}

// Name returns the label given to Start.
func (j *Job[T]) Name() string { return j.name }

// Progress returns the highest fraction reported so far.
func (j *Job[T]) Progress() float64 {
	return math.Float64frombits(j.progress.Load())
}

// Cancel asks the job to stop. It does not wait.
func (j *Job[T]) Cancel() { j.cancel() }

// Done is closed once the job has returned.
func (j *Job[T]) Done() <-chan struct{} { return j.done }

// Wait blocks until the job returns and yields its result.
func (j *Job[T]) Wait() (T, error) {
	<-j.done
	return j.result, j.err
}
