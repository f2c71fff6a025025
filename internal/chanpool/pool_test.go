package chanpool

import (
	"sync"
	"testing"
	"time"
)

// P4: submitting k jobs that each block on a shared barrier grows the
// worker count up to min(k, P), never exceeding P.
func TestPoolGrowth(t *testing.T) {
	const maxProc = 8
	const k = 20

	var mu sync.Mutex
	started := 0
	release := make(chan struct{})
	p := NewPool(maxProc, func(err error) { t.Errorf("unexpected job error: %v", err) })

	// Jobs 17-20 can't be absorbed until some of the first 16 release, so
	// close(release) has to happen on its own goroutine, concurrently with
	// the submit loop below, or the loop deadlocks inside Submit before it
	// ever reaches this point.
	go func() {
		deadline := time.Now().Add(2 * time.Second)
		for time.Now().Before(deadline) {
			if p.NumWorkers() >= maxProc {
				break
			}
			time.Sleep(10 * time.Millisecond)
		}
		close(release)
	}()

	for i := 0; i < k; i++ {
		p.Submit(Job{Fn: func(args [MaxArgs]any) error {
			mu.Lock()
			started++
			mu.Unlock()
			<-release
			return nil
		}})
	}

	if got := p.NumWorkers(); got > maxProc {
		t.Fatalf("worker count %d exceeds cap %d", got, maxProc)
	}
	if got := p.NumWorkers(); got < maxProc {
		t.Fatalf("worker count %d did not grow to cap %d under sustained pressure", got, maxProc)
	}

	p.Close()
}
