package core

import (
	"os"
	"os/signal"
	"sync"
)

var (
	signalsMu   sync.Mutex
	signalUsers int
	stopSignals func()
)

// handleSignals installs the process-wide termination handler for as long as at least one caller holds it. On a
// termination signal the handler runs every registered exit hook and then re-raises the signal once.
func handleSignals() (release func()) {
	signalsMu.Lock()
	defer signalsMu.Unlock()

	if signalUsers == 0 {
		stopSignals = notifyTermination()
	}
	signalUsers++

	var once sync.Once
	return func() {
		once.Do(func() {
			signalsMu.Lock()
			defer signalsMu.Unlock()
			signalUsers--
			if signalUsers == 0 {
				stopSignals()
				stopSignals = nil
			}
		})
	}
}

func notifyTermination() (stop func()) {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, terminationSignals...)
	quit := make(chan struct{})

	go func() {
		select {
		case sig := <-signals:
			RunExitHooks()
			reraise(sig)
		case <-quit:
		}
	}()

	return func() {
		signal.Stop(signals)
		close(quit)
	}
}
