// Package transport applies best-effort kernel buffer tuning to the UDP
// listening socket, so bursts of concurrent requests are not dropped before
// the dispatcher can read them.
package transport

import (
	"net"
	"strings"
)

const (
	minUDPBuffer = 256 * 1024
	maxUDPBuffer = 16 * 1024 * 1024
)

const (
	StatusOK     = "ok"
	StatusNA     = "n/a"
	StatusDenied = "denied"
)

type UDPTuneResult struct {
	RequestedR int
	RequestedW int
	Status     string
	Err        string
}

// TuneUDPBuffers asks the kernel for larger socket buffers, clamped to a sane
// range. Denial is reported, never fatal.
func TuneUDPBuffers(conn *net.UDPConn, r, w int) UDPTuneResult {
	reqR := clampUDPBuffer(r)
	reqW := clampUDPBuffer(w)
	result := UDPTuneResult{
		RequestedR: reqR,
		RequestedW: reqW,
		Status:     StatusOK,
	}
	if conn == nil {
		result.Status = StatusNA
		result.Err = "no access to underlying UDPConn"
		return result
	}

	var errs []string
	if err := conn.SetReadBuffer(reqR); err != nil {
		errs = append(errs, "read: "+err.Error())
	}
	if err := conn.SetWriteBuffer(reqW); err != nil {
		errs = append(errs, "write: "+err.Error())
	}
	if len(errs) > 0 {
		result.Status = StatusDenied
		result.Err = strings.Join(errs, "; ")
	}
	return result
}

func clampUDPBuffer(n int) int {
	if n < minUDPBuffer {
		return minUDPBuffer
	}
	if n > maxUDPBuffer {
		return maxUDPBuffer
	}
	return n
}
