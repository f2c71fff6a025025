// Package subprocs implements the Subprocess Supervisor from spec.md §4.B:
// bounded sets of concurrent child processes ("subprocs sets") with a
// single await-once Promise. Grounded on original_source/src/subproc.c for
// the slot/exit-status semantics, and on distri's own subprocess plumbing
// (internal/build/build.go, internal/batch/batch.go's scheduler.build) for
// the idiomatic os/exec usage: exec.CommandContext, Wait()-based
// completion. Children write straight to the parent's stdout/stderr; their
// output is not captured.
package subprocs

import (
	"context"
	"os"
	"os/exec"
	"runtime"
	"sync"

	"golang.org/x/sys/unix"
	"golang.org/x/xerrors"

	"github.com/compis-build/compis/internal/coerr"
)

// maxCap mirrors spec.md's `cap = min(comaxproc, 4096)`.
const maxCap = 4096

// Slot holds one child's terminal state. Pid == 0 means the slot is free.
type Slot struct {
	mu   sync.Mutex
	pid  int
	err  error
	cmd  *exec.Cmd
	done chan struct{}
}

func (s *Slot) isFree() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pid == 0
}

// Pid returns the slot's process id, or 0 if free.
func (s *Slot) Pid() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pid
}

// Promise is a single-resolution handle a caller awaits to learn an
// operation's terminal error. AwaitFn == nil signals already resolved.
type Promise struct {
	mu     sync.Mutex
	awaitFn func(ctx context.Context) error
	err     error
	done    bool
}

// Await blocks until the underlying operation resolves, returning its
// terminal error. Safe to call more than once; only the first call invokes
// the underlying await function.
func (p *Promise) Await(ctx context.Context) error {
	p.mu.Lock()
	if p.done {
		err := p.err
		p.mu.Unlock()
		return err
	}
	fn := p.awaitFn
	p.mu.Unlock()

	err := fn(ctx)

	p.mu.Lock()
	p.done = true
	p.err = err
	p.awaitFn = nil
	p.mu.Unlock()
	return err
}

// Resolved reports whether the promise has already been resolved or
// cancelled (awaitFn == nil in the original's terms).
func (p *Promise) Resolved() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

// Set is a fixed-capacity collection of concurrently running children
// belonging to one logical operation (e.g. "compile every .c file of this
// package"). Must be Awaited or Cancelled exactly once.
type Set struct {
	mu      sync.Mutex
	slots   []*Slot
	promise *Promise
	cond    *sync.Cond
	freed   bool
}

// New creates a Set with capacity min(runtime.NumCPU(), 4096) and installs
// its Promise.
func New() (*Set, *Promise) {
	cap := runtime.NumCPU()
	if cap > maxCap {
		cap = maxCap
	}
	if cap < 1 {
		cap = 1
	}
	s := &Set{slots: make([]*Slot, cap)}
	s.cond = sync.NewCond(&s.mu)
	p := &Promise{awaitFn: s.await}
	s.promise = p
	return s, p
}

// alloc returns the first free slot, blocking until one frees if none is
// free (spec.md §4.B alloc()/await_one()).
func (s *Set) alloc() (int, *Slot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		for i, slot := range s.slots {
			if slot == nil {
				ns := &Slot{pid: -1, done: make(chan struct{})} // reserved, pid set once spawned
				s.slots[i] = ns
				return i, ns
			}
			if slot.isFree() {
				return i, slot
			}
		}
		s.cond.Wait()
	}
}

func (s *Set) free(idx int) {
	s.mu.Lock()
	s.slots[idx] = nil
	s.cond.Broadcast()
	s.mu.Unlock()
}

// Spawn starts exe with argv/envp/cwd in the first free slot, non-blocking.
// argv[0] is conventionally exe's basename but is passed through untouched.
func (s *Set) Spawn(ctx context.Context, exe string, argv, envp []string, cwd string) error {
	idx, slot := s.alloc()
	cmd := exec.CommandContext(ctx, exe, argv...)
	cmd.Dir = cwd
	if envp != nil {
		cmd.Env = envp
	}
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	slot.mu.Lock()
	slot.cmd = cmd
	slot.mu.Unlock()
	if err := cmd.Start(); err != nil {
		s.free(idx)
		return coerr.Wrap("spawn "+exe, err)
	}
	slot.mu.Lock()
	slot.pid = cmd.Process.Pid
	slot.mu.Unlock()

	go func() {
		waitErr := cmd.Wait()
		slot.mu.Lock()
		slot.err = mapExitErr(waitErr)
		close(slot.done)
		slot.mu.Unlock()
	}()
	return nil
}

// Fork runs fn in-process via a goroutine instead of exec'ing a binary,
// the Go analogue of original_source's subproc_fork (re-entering an
// LLVM-tool entry point without paying process-creation + dynamic-loader
// cost). There is no real fork(); the slot's "pid" is a synthetic negative
// counter for bookkeeping/log messages only.
func (s *Set) Fork(fn func(args ...string) error, cwd string, args ...string) error {
	idx, slot := s.alloc()
	slot.mu.Lock()
	slot.pid = syntheticPid()
	slot.mu.Unlock()
	go func() {
		err := fn(args...)
		slot.mu.Lock()
		slot.err = err
		close(slot.done)
		slot.mu.Unlock()
	}()
	return nil
}

var syntheticPidCounter int32 = -1

func syntheticPid() int {
	syntheticPidCounter--
	return int(syntheticPidCounter)
}

// mapExitErr maps an os/exec Wait() error onto the closed error enum per
// spec.md §4.B: exit 0 -> nil; exit >0 -> ErrCanceled; a process killed by
// signal also maps to ErrCanceled.
func mapExitErr(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if xerrors.As(err, &exitErr) {
		return coerr.Canceled
	}
	return coerr.Wrap("wait", err)
}

// await drains every non-empty slot in ascending index order and returns
// the first non-nil error encountered (completion order is not
// guaranteed/assumed). The set is freed once draining completes.
func (s *Set) await(ctx context.Context) error {
	var firstErr error
	for _, slot := range s.slots {
		if slot == nil {
			continue
		}
		select {
		case <-slot.done:
		case <-ctx.Done():
			if firstErr == nil {
				firstErr = ctx.Err()
			}
			continue
		}
		slot.mu.Lock()
		err := slot.err
		slot.mu.Unlock()
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.mu.Lock()
	s.freed = true
	for i := range s.slots {
		s.slots[i] = nil
	}
	s.mu.Unlock()
	return firstErr
}

// Cancel sends SIGINT to every live child and resolves the promise.
func (s *Set) Cancel() {
	s.mu.Lock()
	slots := append([]*Slot(nil), s.slots...)
	s.mu.Unlock()

	for _, slot := range slots {
		if slot == nil {
			continue
		}
		slot.mu.Lock()
		cmd := slot.cmd
		pid := slot.pid
		slot.mu.Unlock()
		if cmd != nil && cmd.Process != nil {
			_ = cmd.Process.Signal(os.Interrupt)
		} else if pid > 0 {
			_ = unix.Kill(pid, unix.SIGINT)
		}
	}

	s.promise.mu.Lock()
	if !s.promise.done {
		s.promise.done = true
		s.promise.err = coerr.Canceled
		s.promise.awaitFn = nil
	}
	s.promise.mu.Unlock()

	s.mu.Lock()
	for i := range s.slots {
		s.slots[i] = nil
	}
	s.freed = true
	s.cond.Broadcast()
	s.mu.Unlock()
}
