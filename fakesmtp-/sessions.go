package fakesmtp

import (
	"sync/atomic"
)

var liveSessions atomic.Int64

// SessionAdd registers a constructed session and returns the new live count,
// including the session just added.
func SessionAdd() int64 {
	return liveSessions.Add(1)
}

// SessionDone releases a session. Must be called exactly once per
// SessionAdd, on every exit path.
func SessionDone() {
	liveSessions.Add(-1)
}

// LiveSessions returns the current number of live sessions.
func LiveSessions() int64 {
	return liveSessions.Load()
}
