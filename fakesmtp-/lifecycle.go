package fakesmtp

import (
	"context"
)

// Shutdown is canceled when the process is told to stop. Sessions do not
// abort on shutdown, but tarpit sleeps do.
var Shutdown context.Context = context.Background()

// ShutdownCancel cancels Shutdown.
var ShutdownCancel context.CancelFunc = func() {}

func init() {
	Shutdown, ShutdownCancel = context.WithCancel(context.Background())
}
