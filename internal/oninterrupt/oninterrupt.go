package oninterrupt

import (
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// onInterrupt allows subcommands to register cleanup handlers which shall be
// run on receiving SIGINT, e.g. reverting temporary CPU frequency scaling
// governor changes, or releasing a sysroot build lock held by the current
// process.
var (
	onInterruptMu sync.Mutex
	onInterrupt   = make(map[uint64]func())
	nextID        uint64
)

func init() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	go func() {
		signal := <-c
		onInterruptMu.Lock()
		for _, f := range onInterrupt {
			f()
		}
		onInterruptMu.Unlock()
		// TODO: replace by cancelling a context:
		// https://medium.com/@matryer/make-ctrl-c-cancel-the-context-context-bd006a8ad6ff
		if sig, ok := signal.(*syscall.Signal); ok {
			os.Exit(128 + int(*sig))
		}
		os.Exit(1) // generic EXIT_FAILURE
	}()
}

// Register installs cb to run on SIGINT and returns a function that removes
// it again. Callers whose cleanup need only lasts for part of the process
// lifetime (e.g. a sysroot build holding a lock file) must call the
// returned function once the need is over, or the closure — and whatever
// it captures — leaks for the life of the process.
func Register(cb func()) (unregister func()) {
	onInterruptMu.Lock()
	defer onInterruptMu.Unlock()
	id := nextID
	nextID++
	onInterrupt[id] = cb
	return func() {
		onInterruptMu.Lock()
		defer onInterruptMu.Unlock()
		delete(onInterrupt, id)
	}
}
