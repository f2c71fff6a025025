package compis

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// InterruptibleContext returns a context canceled on SIGINT/SIGTERM, used by
// the driver to trigger Subprocs.Cancel (§4.B) and unblock any parked
// channel waiters (§4.A) gracefully.
func InterruptibleContext() (context.Context, context.CancelFunc) {
	ctx, canc := context.WithCancel(context.Background())
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		// A second signal terminates immediately, in case cleanup hangs.
		signal.Stop(sig)
		canc()
	}()
	return ctx, canc
}
