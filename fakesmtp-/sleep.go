package fakesmtp

import (
	"context"
	"time"
)

// Sleep for d, returning early if ctx is done.
//
// Used for tarpit pauses pushing back on clients, where shutting down
// should abort the sleep.
func Sleep(ctx context.Context, d time.Duration) (ctxDone bool) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return false
	case <-ctx.Done():
		return true
	}
}
