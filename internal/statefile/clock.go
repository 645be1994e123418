package statefile

import (
	"sync"
	"time"
)

var (
	clockMu   sync.Mutex
	lastNanos int64
)

// nowNano returns a strictly increasing nanosecond timestamp, bumping
// past time.Now() when two saves land in the same process within the
// same nanosecond (common on fast paths and in tests).
func nowNano() int64 {
	clockMu.Lock()
	defer clockMu.Unlock()

	n := time.Now().UnixNano()
	if n <= lastNanos {
		n = lastNanos + 1
	}
	lastNanos = n
	return n
}
