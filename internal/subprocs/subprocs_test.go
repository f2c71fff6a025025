package subprocs

import (
	"context"
	"testing"
	"time"
)

// P5: after Cancel, every previously alloc'd slot has pid == 0 (here:
// every slot is cleared) within the time it takes for SIGINT to propagate.
func TestSetCancelClearsSlots(t *testing.T) {
	s, p := New()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := s.Spawn(ctx, "sleep", []string{"5"}, nil, "."); err != nil {
			t.Skipf("spawn sleep unavailable in this environment: %v", err)
		}
	}

	s.Cancel()

	s.mu.Lock()
	for i, slot := range s.slots {
		if slot != nil {
			t.Fatalf("slot %d not cleared after cancel", i)
		}
	}
	s.mu.Unlock()

	if !p.Resolved() {
		t.Fatal("promise not resolved after cancel")
	}
}

func TestSetForkAwait(t *testing.T) {
	s, p := New()
	ran := make(chan struct{}, 2)
	for i := 0; i < 2; i++ {
		if err := s.Fork(func(args ...string) error {
			ran <- struct{}{}
			return nil
		}, "."); err != nil {
			t.Fatal(err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := p.Await(ctx); err != nil {
		t.Fatalf("await: %v", err)
	}
	if len(ran) != 2 {
		t.Fatalf("expected both forked functions to run, got %d", len(ran))
	}
}
