package signalhandler

import (
	"context"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"rastersim/logging"
)

// SetupHandler returns a context cancelled on SIGINT or SIGTERM. Running
// comparisons finish their current pair instead of dying inside a C call.
// A second signal exits immediately.
func SetupHandler(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logging.LogWarning("Received %v, stopping after running comparisons", sig)
			cancel()
		case <-ctx.Done():
			return
		}

		select {
		case <-sigChan:
			os.Exit(1)
		case <-parent.Done():
		}
	}()

	return ctx, cancel
}

// GetOptimalProcs returns the optimal number of worker goroutines for the system
func GetOptimalProcs() int {
	numCPU := runtime.NumCPU()

	// gocv and GDAL run in cgo; leave headroom
	maxProcs := (numCPU * 3) / 4
	if maxProcs < 1 {
		maxProcs = 1
	}

	return maxProcs
}
