// Package chanpool implements the bounded multi-producer/multi-consumer
// channel and growable worker pool from spec.md §4.A. The ring buffer,
// direct hand-off on park, and FIFO-per-queue ordering are modeled on
// original_source/src/chan.c (itself modeled on the Go runtime's own
// channel implementation) — reimplemented here on top of sync.Mutex rather
// than futexes/atomics, the idiom the rest of the example pack uses for
// hand-rolled concurrency primitives (e.g. distri's internal/batch status
// mutex).
package chanpool

import "sync"

type waiterState uint8

const (
	waiterPending waiterState = iota
	waiterHandedOff
	waiterClosed
)

type waiter[T any] struct {
	val   T
	done  chan struct{}
	state waiterState
}

// Channel is a fixed-capacity ring buffer of T with direct sender/receiver
// hand-off, guarded by one coarse-grained mutex (spec.md §4.A).
//
// Invariant: senders are parked only while the buffer is full (or cap==0
// and no receiver is waiting), so recv always drains the buffer first and
// then moves the oldest parked sender's value into the freed slot.
type Channel[T any] struct {
	mu   sync.Mutex
	buf  []T
	cap  int
	head int
	n    int

	senders   []*waiter[T]
	receivers []*waiter[T]
	closed    bool
}

// Open allocates a channel with the given buffer capacity. Capacity 0
// produces a pure rendezvous channel: every send must hand off directly to
// a parked receiver.
func Open[T any](bufCap int) *Channel[T] {
	return &Channel[T]{
		buf: make([]T, bufCap),
		cap: bufCap,
	}
}

// Send enqueues val, parking the caller if the buffer is full and no
// receiver is waiting. Panics if the channel has been closed (including if
// it closes while this call is parked), matching the "further sends panic"
// invariant.
func (c *Channel[T]) Send(val T) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		panic("chanpool: send on closed channel")
	}
	if len(c.receivers) > 0 {
		w := c.popFront(&c.receivers)
		w.val = val
		w.state = waiterHandedOff
		c.mu.Unlock()
		close(w.done)
		return
	}
	if c.n < c.cap {
		c.buf[(c.head+c.n)%c.cap] = val
		c.n++
		c.mu.Unlock()
		return
	}
	w := &waiter[T]{val: val, done: make(chan struct{})}
	c.senders = append(c.senders, w)
	c.mu.Unlock()
	<-w.done
	if w.state == waiterClosed {
		panic("chanpool: send on closed channel")
	}
}

// TrySend attempts Send without parking. ok is false if the channel would
// have blocked; closed is true iff the channel has been closed, in which
// case ok is false and nothing is sent (per spec.md, try_send "never parks;
// returns closed=true iff the channel was closed").
func (c *Channel[T]) TrySend(val T) (ok, closed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false, true
	}
	if len(c.receivers) > 0 {
		w := c.popFront(&c.receivers)
		w.val = val
		w.state = waiterHandedOff
		close(w.done)
		return true, false
	}
	if c.n < c.cap {
		c.buf[(c.head+c.n)%c.cap] = val
		c.n++
		return true, false
	}
	return false, false
}

// Recv dequeues a value, parking if the buffer is empty and no sender is
// waiting. closed is true once the channel is closed and fully drained.
func (c *Channel[T]) Recv() (val T, closed bool) {
	c.mu.Lock()
	if c.n > 0 {
		val = c.buf[c.head]
		var zero T
		c.buf[c.head] = zero
		c.head = (c.head + 1) % c.cap
		c.n--
		if len(c.senders) > 0 {
			w := c.popFront(&c.senders)
			c.buf[(c.head+c.n)%c.cap] = w.val
			c.n++
			w.state = waiterHandedOff
			c.mu.Unlock()
			close(w.done)
			return val, false
		}
		c.mu.Unlock()
		return val, false
	}
	if len(c.senders) > 0 {
		w := c.popFront(&c.senders)
		w.state = waiterHandedOff
		c.mu.Unlock()
		close(w.done)
		return w.val, false
	}
	if c.closed {
		c.mu.Unlock()
		return val, true
	}
	w := &waiter[T]{done: make(chan struct{})}
	c.receivers = append(c.receivers, w)
	c.mu.Unlock()
	<-w.done
	if w.state == waiterClosed {
		return val, true
	}
	return w.val, false
}

// TryRecv attempts Recv without parking.
func (c *Channel[T]) TryRecv() (val T, ok, closed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.n > 0 {
		val = c.buf[c.head]
		var zero T
		c.buf[c.head] = zero
		c.head = (c.head + 1) % c.cap
		c.n--
		if len(c.senders) > 0 {
			w := c.popFront(&c.senders)
			c.buf[(c.head+c.n)%c.cap] = w.val
			c.n++
			w.state = waiterHandedOff
			close(w.done)
		}
		return val, true, false
	}
	if len(c.senders) > 0 {
		w := c.popFront(&c.senders)
		w.state = waiterHandedOff
		close(w.done)
		return w.val, true, false
	}
	if c.closed {
		return val, false, true
	}
	return val, false, false
}

// Close is one-shot: it wakes every parked sender and receiver. Subsequent
// Send calls panic; subsequent Recv calls drain the buffer, then report
// closed.
func (c *Channel[T]) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	senders := c.senders
	receivers := c.receivers
	c.senders = nil
	c.receivers = nil
	c.mu.Unlock()

	for _, w := range senders {
		w.state = waiterClosed
		close(w.done)
	}
	for _, w := range receivers {
		w.state = waiterClosed
		close(w.done)
	}
}

// Len reports the number of buffered, undelivered values. For diagnostics
// and tests only.
func (c *Channel[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

func (c *Channel[T]) popFront(q *[]*waiter[T]) *waiter[T] {
	w := (*q)[0]
	*q = (*q)[1:]
	return w
}
