package logging

import (
	"os"
	"sync"
)

// CrashBuffer is a thread-safe circular byte buffer holding the most recent
// log output. It implements io.Writer and overwrites old data when full, so
// a crash dump always contains the last CrashBufferSize bytes of logs.
type CrashBuffer struct {
	mu      sync.Mutex
	buf     []byte
	cap     int
	head    int
	wrapped bool
}

// NewCrashBuffer creates a crash buffer with the given capacity in bytes.
func NewCrashBuffer(capacity int) *CrashBuffer {
	if capacity <= 0 {
		capacity = 2 * 1024 * 1024
	}
	return &CrashBuffer{
		buf: make([]byte, capacity),
		cap: capacity,
	}
}

// Write implements io.Writer. Data wraps around when the buffer is full.
func (cb *CrashBuffer) Write(p []byte) (int, error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	n := len(p)
	if n >= cb.cap {
		// Larger than the whole buffer: keep only the tail.
		copy(cb.buf, p[n-cb.cap:])
		cb.head = 0
		cb.wrapped = true
		return n, nil
	}

	space := cb.cap - cb.head
	if n <= space {
		copy(cb.buf[cb.head:], p)
		cb.head += n
		if cb.head == cb.cap {
			cb.head = 0
			cb.wrapped = true
		}
		return n, nil
	}

	copy(cb.buf[cb.head:], p[:space])
	copy(cb.buf, p[space:])
	cb.head = n - space
	cb.wrapped = true
	return n, nil
}

// Bytes returns the buffered log output in chronological order.
func (cb *CrashBuffer) Bytes() []byte {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if !cb.wrapped {
		out := make([]byte, cb.head)
		copy(out, cb.buf[:cb.head])
		return out
	}

	out := make([]byte, cb.cap)
	copy(out, cb.buf[cb.head:])
	copy(out[cb.cap-cb.head:], cb.buf[:cb.head])
	return out
}

// DumpToFile writes the buffer contents to a file in chronological order.
func (cb *CrashBuffer) DumpToFile(path string) error {
	return os.WriteFile(path, cb.Bytes(), 0o644)
}
