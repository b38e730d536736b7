package fakesmtp

import (
	"sync/atomic"
)

var cid atomic.Int64

// Cid returns a new session index. Strictly increasing over the process
// lifetime, starting at 1.
func Cid() int64 {
	return cid.Add(1)
}
