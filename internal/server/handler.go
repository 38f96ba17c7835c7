package server

import (
	"io"
	"net"
)

// Handler supplies the bytes a read transfer sends and receives the bytes a
// write transfer delivers. Implementations report failures as ordinary
// errors; the dispatcher maps them onto wire error codes (a handler may also
// return a wire.Error directly to pick the code itself).
//
// The dispatcher serializes calls into the handler; implementations need no
// locking of their own around Open calls.
type Handler interface {
	// OpenRead opens filename for sending to peer and reports the number of
	// bytes that will follow, or -1 when unknown.
	OpenRead(peer *net.UDPAddr, filename string) (io.ReadCloser, int64, error)

	// OpenWrite opens filename for receiving from peer. declaredSize is the
	// client's tsize hint, -1 when the client sent none.
	OpenWrite(peer *net.UDPAddr, filename string, declaredSize int64) (io.WriteCloser, error)
}
