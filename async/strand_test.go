package async

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/maikeln/wlcoro/taskrt"
)

type inlineScheduler struct{}

func (inlineScheduler) Schedule() taskrt.Sender[struct{}] {
	return taskrt.Just(struct{}{})
}

func TestStrand_SerializesAccess(t *testing.T) {
	strand := NewStrand(inlineScheduler{})
	var (
		mu       sync.Mutex
		active   int
		maxSeen  int
		sequence []int
	)

	var wg sync.WaitGroup
	const n = 20
	wg.Add(n)
	for i := 0; i < n; i++ {
		i := i
		go func() {
			defer wg.Done()
			out := taskrt.SyncWait(context.Background(), strand.Lock())
			if !out.Ok() {
				t.Errorf("Lock() outcome = %+v", out)
				return
			}
			unlock := out.Value

			mu.Lock()
			active++
			if active > maxSeen {
				maxSeen = active
			}
			sequence = append(sequence, i)
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()

			unlock()
		}()
	}
	wg.Wait()

	if maxSeen != 1 {
		t.Fatalf("max concurrent holders observed = %d, want 1", maxSeen)
	}
	if len(sequence) != n {
		t.Fatalf("holders recorded = %d, want %d", len(sequence), n)
	}
}
