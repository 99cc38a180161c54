// Package workers runs one closure on a fixed set of goroutines.
//
// The closure pulls work from a shared queue until it drains; the pool only
// guarantees that every started worker returns and that what a worker
// accumulated in its private Worker value is still there afterwards.
package workers

import (
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"garnet/internal/counters"
	"garnet/internal/logx"
)

// Worker is the private state of one worker for the duration of a job.
type Worker struct {
	ID       int
	Counters *counters.Counters
}

// Pool is a fixed-size worker pool. Zero or one threads means serial mode:
// jobs run synchronously on the caller.
type Pool struct {
	size   int
	serial bool
	log    *logx.Logger
}

// New creates a pool with the given number of worker goroutines.
func New(threads int, log *logx.Logger) *Pool {
	if threads <= 1 {
		return &Pool{size: 1, serial: true, log: log}
	}
	return &Pool{size: threads, log: log}
}

// Size is the number of workers every job runs on.
func (p *Pool) Size() int { return p.size }

// Serial reports whether jobs run on the calling goroutine.
func (p *Pool) Serial() bool { return p.serial }

// WorkerPanic is raised by Job.Wait when a worker panicked.
type WorkerPanic struct {
	Job    string
	Worker int
	Value  any
	Stack  []byte
}

func (e *WorkerPanic) Error() string {
	return fmt.Sprintf("worker %d of job %q panicked: %v", e.Worker, e.Job, e.Value)
}

// Job is a running (or, in serial mode, finished) multiplexed closure.
type Job struct {
	name string
	g    errgroup.Group
	done chan struct{}

	failed atomic.Bool
	mu     sync.Mutex
	first  *WorkerPanic
}

// MultiplexJob runs fn once on every worker. In serial mode it returns after
// fn completed; otherwise it returns immediately and the caller drains the
// job's output queue, then calls Wait.
func (p *Pool) MultiplexJob(name string, fn func(w *Worker)) *Job {
	job := &Job{name: name, done: make(chan struct{})}
	p.log.Trace("job started", "job", name, "workers", p.size)

	if p.serial {
		job.run(p, &Worker{ID: 0, Counters: counters.New()}, fn)
		close(job.done)
		return job
	}

	for i := range p.size {
		w := &Worker{ID: i, Counters: counters.New()}
		job.g.Go(func() error {
			job.run(p, w, fn)
			return nil
		})
	}
	go func() {
		_ = job.g.Wait() // воркеры не возвращают ошибок
		close(job.done)
	}()
	return job
}

func (j *Job) run(p *Pool, w *Worker, fn func(*Worker)) {
	defer func() {
		if r := recover(); r != nil {
			wp := &WorkerPanic{Job: j.name, Worker: w.ID, Value: r, Stack: debug.Stack()}
			j.mu.Lock()
			if j.first == nil {
				j.first = wp
			}
			j.mu.Unlock()
			j.failed.Store(true)
			p.log.Error("worker panicked", "job", j.name, "worker", w.ID, "panic", fmt.Sprint(r))
		}
	}()
	fn(w)
}

// Finished reports whether every worker has returned.
func (j *Job) Finished() bool {
	select {
	case <-j.done:
		return true
	default:
		return false
	}
}

// Failed reports whether any worker panicked so far.
func (j *Job) Failed() bool { return j.failed.Load() }

// Wait blocks until every worker returned. A worker panic is fatal for the
// whole run, so it is re-raised here on the caller's goroutine.
func (j *Job) Wait() {
	<-j.done
	if j.failed.Load() {
		j.mu.Lock()
		wp := j.first
		j.mu.Unlock()
		panic(wp)
	}
}
