// -----------------------------------------------------------------------
// Safe Goroutine - Panic-protected goroutine wrapper
// -----------------------------------------------------------------------

package common

import (
	"fmt"
	"os"
	"runtime"

	"github.com/ternarybob/arbor"
)

// SafeGo runs fn on its own goroutine with panic recovery. A panic is
// logged with its stack and the service keeps running; the report pipeline
// records its own terminal state, so a crashed goroutine must never take
// the process down with it.
//
// Example:
//
//	common.SafeGo(logger, "report-pipeline-"+jobID, func() {
//	    runPipeline(ctx)
//	})
func SafeGo(logger arbor.ILogger, name string, fn func()) {
	go func() {
		defer recoverGoroutine(logger, name)
		fn()
	}()
}

// recoverGoroutine swallows a panic from a SafeGo goroutine, recording
// the panic value and a truncated stack. Must be called via defer.
func recoverGoroutine(logger arbor.ILogger, name string) {
	r := recover()
	if r == nil {
		return
	}

	stack := make([]byte, 4096)
	stack = stack[:runtime.Stack(stack, false)]

	if logger == nil {
		fmt.Fprintf(os.Stderr, "panic in goroutine %s: %v\n%s\n", name, r, stack)
		return
	}

	logger.Error().
		Str("goroutine", name).
		Str("panic", fmt.Sprintf("%v", r)).
		Str("stack", string(stack)).
		Msg("Goroutine panicked, service continues")
}
