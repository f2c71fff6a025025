package chanpool

import "sync"

// MaxArgs is the fixed number of pointer-sized argument slots a Job carries
// inline, matching spec.md's MAX_ARGS = 6. Go's GC makes heap allocation of
// a closure cheap, but the inline-array shape is kept for fidelity to the
// original "no per-job heap allocation" design and so callers that port C
// job-submission call sites keep the same calling convention.
const MaxArgs = 6

// Job is a function plus up to MaxArgs arguments, submitted to a Pool. The
// submitter owns Args until the job is received by a worker; the worker
// owns it until Fn returns.
type Job struct {
	Fn   func(args [MaxArgs]any) error
	Args [MaxArgs]any
}

// spawnThreshold: grow the pool when in-flight work exceeds the current
// worker count by this much (spec.md §4.A SPAWN_THRESHOLD = 2).
const spawnThreshold = 2

// Pool is a fixed-capacity job queue drained by a growable set of worker
// goroutines, started small and grown only under sustained queue pressure
// (spec.md §4.A Threadpool).
type Pool struct {
	maxProc int
	jobs    *Channel[Job]

	inFlight int64 // atomic-accessed via mu for simplicity; see Submit
	mu       sync.Mutex
	workers  int

	wg       sync.WaitGroup
	onErr    func(error)
	closed   bool
}

// NewPool creates a Pool capped at maxProc concurrent workers, with a job
// queue of the same capacity. onErr, if non-nil, is invoked (from a worker
// goroutine) whenever a Job returns an error; it must not block.
func NewPool(maxProc int, onErr func(error)) *Pool {
	if maxProc < 1 {
		maxProc = 1
	}
	p := &Pool{
		maxProc: maxProc,
		jobs:    Open[Job](maxProc),
		onErr:   onErr,
	}
	initial := maxProc
	if initial > 4 {
		initial = 4
	}
	p.spawn(initial)
	return p
}

// Submit enqueues a job (blocking if the queue is full), then grows the
// worker pool if in-flight pressure crosses SPAWN_THRESHOLD.
func (p *Pool) Submit(j Job) {
	p.jobs.Send(j)

	p.mu.Lock()
	p.inFlight++
	inFlight := p.inFlight
	workers := p.workers
	p.mu.Unlock()

	if inFlight-int64(workers) >= spawnThreshold && workers < p.maxProc {
		p.mu.Lock()
		// re-check under the lock: another submitter may have already grown.
		if p.inFlight-int64(p.workers) >= spawnThreshold && p.workers < p.maxProc {
			want := p.inFlight
			if want > int64(p.maxProc) {
				want = int64(p.maxProc)
			}
			grow := int(want) - p.workers
			if grow > 0 {
				p.workers += grow
				p.mu.Unlock()
				p.spawnLocked(grow)
				return
			}
		}
		p.mu.Unlock()
	}
}

// spawn starts n workers, bumping p.workers under the lock first.
func (p *Pool) spawn(n int) {
	p.mu.Lock()
	p.workers += n
	p.mu.Unlock()
	p.spawnLocked(n)
}

// spawnLocked starts n worker goroutines; p.workers must already reflect
// the increase.
func (p *Pool) spawnLocked(n int) {
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		j, closed := p.jobs.Recv()
		if closed {
			return
		}
		err := j.Fn(j.Args)
		p.mu.Lock()
		p.inFlight--
		p.mu.Unlock()
		if err != nil && p.onErr != nil {
			p.onErr(err)
		}
	}
}

// NumWorkers reports the current worker count, for tests (P4).
func (p *Pool) NumWorkers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.workers
}

// Close stops accepting new jobs and waits for in-flight workers to drain.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()
	p.jobs.Close()
	p.wg.Wait()
}
