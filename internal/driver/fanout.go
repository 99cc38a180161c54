package driver

import (
	"context"
	"fmt"
	"runtime"

	"garnet/internal/counters"
	"garnet/internal/progress"
	"garnet/internal/queue"
	"garnet/internal/trace"
	"garnet/internal/workers"
)

// popAll pops until q drains. An empty queue is not the end: a producer may
// still be pushing, so the worker yields and retries.
func popAll[T any](q *queue.Queue[T], fn func(T)) {
	for {
		item, st := q.TryPop()
		switch st {
		case queue.StatusItem:
			fn(item)
		case queue.StatusDrained:
			return
		default:
			runtime.Gosched()
		}
	}
}

type indexed[R any] struct {
	idx int
	val R
}

// batch is everything one worker produced in one job.
type batch[R any] struct {
	worker   int
	items    []indexed[R]
	counters *counters.Counters
}

// fanOut runs fn for every index in [0, n) on the pool and returns the results
// in index order. Workers pop indices from a shared queue and hand back one
// batch each; the driver drains the batches with a timed wait so a stuck job
// shows up in logs and traces instead of hanging silently.
func fanOut[R any](ctx context.Context, p *Pipeline, pool *workers.Pool, name string, stage progress.Stage, n int, fn func(w *workers.Worker, i int) R) []R {
	if n == 0 {
		return nil
	}
	p.counters.Inc("jobs." + name)

	tr := trace.FromContext(ctx)
	parent := trace.CurrentSpan(ctx).SpanID

	fileq := queue.New[int](n, n)
	for i := range n {
		fileq.Push(i, 1)
	}
	resultq := queue.New[batch[R]](pool.Size(), n)

	job := pool.MultiplexJob(name, func(w *workers.Worker) {
		span := trace.Begin(tr, trace.ScopeWorker, fmt.Sprintf("%s:worker%d", name, w.ID), parent)
		out := batch[R]{worker: w.ID}
		popAll(fileq, func(i int) {
			out.items = append(out.items, indexed[R]{idx: i, val: fn(w, i)})
		})
		out.counters = w.Counters.Take()
		span.WithExtra("files", fmt.Sprint(len(out.items))).End("")
		resultq.Push(out, len(out.items))
	})

	results := make([]R, n)
	done := 0
	merge := func(b batch[R]) {
		for _, it := range b.items {
			results[it.idx] = it.val
		}
		p.counters.Merge(b.counters)
		done += len(b.items)
		trace.ReportStatus(ctx, "phase=%s files=%d/%d", name, done, n)
		progress.Emit(p.opts.Progress, progress.Event{Stage: stage, Status: progress.StatusWorking, Done: done, Total: n})
	}

	timeout := p.opts.waitTimeout()
	for {
		b, st := resultq.WaitPopTimed(timeout)
		if st == queue.StatusItem {
			merge(b)
			continue
		}
		if st == queue.StatusDrained {
			break
		}
		// таймаут: пульс в лог и трассу, потом проверяем, жива ли работа
		p.log.Debug("waiting for workers", "job", name, "done", done, "total", n)
		trace.Point(tr, trace.ScopePhase, "queue.wait", fmt.Sprintf("%s %d/%d", name, done, n), parent)
		if job.Finished() {
			for {
				b, st := resultq.TryPop()
				if st != queue.StatusItem {
					break
				}
				merge(b)
			}
			break
		}
	}
	// повторно поднимает панику воркера
	job.Wait()
	return results
}
