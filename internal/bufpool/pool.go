// Package bufpool pools the datagram receive buffers shared by the request
// dispatcher and every per-transfer socket. Buffers are reused to reduce
// allocations and GC pressure under many concurrent transfers.
package bufpool

import (
	"sync"
)

// DatagramSize is the size of every pooled buffer. It is large enough for a
// DATA packet at the maximum negotiable block size (65464 bytes plus header).
const DatagramSize = 64 * 1024

var pool = sync.Pool{
	New: func() interface{} {
		return make([]byte, DatagramSize)
	},
}

// Get returns a buffer of exactly DatagramSize bytes.
func Get() []byte {
	buf := pool.Get().([]byte)
	if cap(buf) < DatagramSize {
		return make([]byte, DatagramSize)
	}
	return buf[:DatagramSize]
}

// Put returns a buffer to the pool. Undersized buffers are discarded.
func Put(buf []byte) {
	if cap(buf) < DatagramSize {
		return
	}
	pool.Put(buf[:DatagramSize])
}
