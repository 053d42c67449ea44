package common

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/ternarybob/arbor"
)

// SafeGo runs fn in a goroutine, logging and swallowing any panic.
// Used for background work (warehouse refresh, websocket pumps) that must not take the server down.
func SafeGo(ctx context.Context, logger arbor.ILogger, name string, fn func(ctx context.Context)) {
	go func() {
		defer RecoverPanic(logger, name)

		if ctx.Err() != nil {
			return
		}
		fn(ctx)
	}()
}

// RecoverPanic is deferred by goroutines that must survive a panic
func RecoverPanic(logger arbor.ILogger, name string) {
	r := recover()
	if r == nil {
		return
	}

	buf := make([]byte, 4096)
	n := runtime.Stack(buf, false)

	if logger == nil {
		fmt.Fprintf(os.Stderr, "PANIC in %s: %v\n%s\n", name, r, buf[:n])
		return
	}
	logger.Error().
		Str("goroutine", name).
		Str("panic", fmt.Sprintf("%v", r)).
		Str("stack", string(buf[:n])).
		Msg("Recovered from panic")
}
