package session

import "time"

// nowMs returns the current time in milliseconds since epoch, the unit every timestamp
// field in Data uses. Tests pass explicit times instead of calling this.
func nowMs() int64 {
	return time.Now().UnixMilli()
}

// NowMs returns the current time in milliseconds since epoch, the unit every timestamp
// field in Data uses. Exported for out-of-package DataStore implementations
// (sessionstore/pg, sessionstore/redis) that need to stamp timestamps the same way the
// in-process and file stores do.
func NowMs() int64 {
	return nowMs()
}
