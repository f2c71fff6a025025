// Package bgtask implements a lightweight background-task status line: a
// name, a fraction-done counter, and a free-text status message that the
// sysroot builder and (future) package builder report progress into
// (original_source/src/bgtask.c). Grounded on distri's own terminal-status
// pattern, scheduler.updateStatus/refreshStatus in
// internal/batch/batch.go, adapted from a single shared status line to one
// Task per logical operation so concurrent sysroot components don't
// clobber each other's line.
package bgtask

import (
	"fmt"
	"sync"
	"time"
)

// Task tracks one long-running operation's progress for a status line
// renderer to poll (the renderer itself, a terminal UI, is out of scope —
// only the interface it consumes is in scope, per SPEC_FULL.md).
type Task struct {
	mu        sync.Mutex
	name      string
	total     uint32
	done      uint32
	status    string
	startedAt time.Time
}

// Open starts tracking a task named name with an expected total job count
// (0 if unknown in advance; sysroot components set it once the real count
// is known, matching bgtask_t.ntotal's "you can change this anytime"
// comment).
func Open(name string, total uint32) *Task {
	return &Task{name: name, total: total, startedAt: time.Now()}
}

// SetTotal updates the expected job count.
func (t *Task) SetTotal(total uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.total = total
}

// Advance increments the done counter by one and sets the current status
// message (bgtask_setstatusf).
func (t *Task) Advance(format string, args ...interface{}) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.done++
	t.status = fmt.Sprintf(format, args...)
}

// Progress returns (done, total, status) as a snapshot for a status line
// renderer.
func (t *Task) Progress() (done, total uint32, status string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done, t.total, t.status
}

// End marks the task complete and records its final message, if any
// (bgtask_end).
func (t *Task) End(format string, args ...interface{}) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if format != "" {
		t.status = fmt.Sprintf(format, args...)
	}
	t.done = t.total
}

// Elapsed reports how long the task has been running.
func (t *Task) Elapsed() time.Duration {
	return time.Since(t.startedAt)
}
