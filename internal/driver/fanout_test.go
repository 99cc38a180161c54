package driver

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"garnet/internal/queue"
)

func TestPopAllWaitsForLatePushes(t *testing.T) {
	const n = 5
	q := queue.New[int](n, n)

	var (
		mu  sync.Mutex
		got []int
		wg  sync.WaitGroup
	)
	for range 3 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			popAll(q, func(i int) {
				mu.Lock()
				got = append(got, i)
				mu.Unlock()
			})
		}()
	}
	// потребители стартуют раньше производителя
	for i := range n {
		time.Sleep(time.Millisecond)
		q.Push(i, 1)
	}
	wg.Wait()
	assert.ElementsMatch(t, []int{0, 1, 2, 3, 4}, got)
}

func TestPopAllOnDrainedQueue(t *testing.T) {
	calls := 0
	popAll(queue.New[int](0, 0), func(int) { calls++ })
	assert.Zero(t, calls)
}
