package pool

import "runtime"

// currentGoroutineID parses the "goroutine N [...]" header that
// runtime.Stack always writes first. It is the usual trick for recognizing
// "am I running on a particular long-lived goroutine", here used to let a
// worker recognize its own identity for the self-posting fast path.
func currentGoroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	var id uint64
	for i := len("goroutine "); i < n; i++ {
		if buf[i] >= '0' && buf[i] <= '9' {
			id = id*10 + uint64(buf[i]-'0')
		} else {
			break
		}
	}
	return id
}
