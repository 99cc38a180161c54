package workers

import (
	"sort"
	"sync"
	"testing"

	"garnet/internal/queue"
)

func TestSerialRunsOnCaller(t *testing.T) {
	for _, threads := range []int{0, 1} {
		p := New(threads, nil)
		if !p.Serial() || p.Size() != 1 {
			t.Fatalf("threads=%d: expected serial pool of size 1", threads)
		}
		ran := false
		job := p.MultiplexJob("serial", func(w *Worker) {
			ran = true
			w.Counters.Inc("calls")
		})
		if !ran {
			t.Fatalf("serial job must complete before MultiplexJob returns")
		}
		if !job.Finished() {
			t.Fatalf("serial job must be finished")
		}
		job.Wait()
	}
}

func TestEveryWorkerRunsOnce(t *testing.T) {
	p := New(6, nil)
	var mu sync.Mutex
	var ids []int
	job := p.MultiplexJob("ids", func(w *Worker) {
		mu.Lock()
		ids = append(ids, w.ID)
		mu.Unlock()
	})
	job.Wait()
	sort.Ints(ids)
	if len(ids) != 6 {
		t.Fatalf("expected 6 workers, got %v", ids)
	}
	for i, id := range ids {
		if id != i {
			t.Fatalf("worker ids = %v", ids)
		}
	}
}

func TestCountersSurviveJob(t *testing.T) {
	const n = 200
	p := New(4, nil)
	in := queue.New[int](n, n)
	for i := range n {
		in.Push(i, 1)
	}
	type batch struct {
		processed int
		counters  int64
	}
	out := queue.New[batch](p.Size(), n)
	job := p.MultiplexJob("count", func(w *Worker) {
		processed := 0
		for {
			_, st := in.TryPop()
			if st == queue.StatusDrained {
				break
			}
			if st == queue.StatusItem {
				processed++
				w.Counters.Inc("items")
			}
		}
		out.Push(batch{processed: processed, counters: w.Counters.Take().Get("items")}, processed)
	})

	total := 0
	var fromCounters int64
	for {
		b, st := out.WaitPop()
		if st == queue.StatusDrained {
			break
		}
		total += b.processed
		fromCounters += b.counters
	}
	job.Wait()
	if total != n || fromCounters != n {
		t.Fatalf("processed=%d counters=%d, want %d", total, fromCounters, n)
	}
}

func TestWorkerPanicIsReraised(t *testing.T) {
	p := New(3, nil)
	job := p.MultiplexJob("boom", func(w *Worker) {
		if w.ID == 1 {
			panic("broken invariant")
		}
	})
	defer func() {
		r := recover()
		wp, ok := r.(*WorkerPanic)
		if !ok {
			t.Fatalf("expected *WorkerPanic, got %T", r)
		}
		if wp.Job != "boom" || wp.Worker != 1 {
			t.Fatalf("unexpected panic record %+v", wp)
		}
		if !job.Failed() {
			t.Fatalf("job must report failure")
		}
	}()
	job.Wait()
	t.Fatalf("Wait must panic")
}
