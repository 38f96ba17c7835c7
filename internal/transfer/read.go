package transfer

import (
	"fmt"
	"io"

	"github.com/quietwire/tftpd/pkg/wire"
)

// Read drives a read transfer (RRQ) over c: acknowledge options if any were
// negotiated, then send DATA blocks in lockstep with the client's ACKs until
// the final short block. A source whose length is an exact multiple of the
// block size still gets a trailing zero-length DATA block.
func Read(c *Conn, p Params, src io.Reader) error {
	if p.Oack != nil {
		if err := c.Send(*p.Oack); err != nil {
			return err
		}
		if err := awaitAck(c, 0); err != nil {
			return err
		}
	}

	buf := make([]byte, p.BlockSize)
	for block := uint16(1); ; block++ {
		n, err := readBlock(src, buf)
		if err != nil {
			return fmt.Errorf("read source: %w", err)
		}
		if err := c.Send(wire.Data{Block: block, Payload: buf[:n]}); err != nil {
			return err
		}
		if err := awaitAck(c, block); err != nil {
			return err
		}
		if n < p.BlockSize {
			return nil
		}
	}
}

// awaitAck waits for the ACK of the given block. Stale or duplicate ACKs are
// ignored; an Error packet aborts.
func awaitAck(c *Conn, block uint16) error {
	return c.Receive(func(pkt wire.Packet) (bool, error) {
		switch pkt := pkt.(type) {
		case wire.Ack:
			return pkt.Block == block, nil
		case wire.Error:
			return false, fmt.Errorf("%w: %w", ErrPeerAborted, pkt)
		default:
			return false, nil
		}
	})
}

// readBlock fills buf from src, tolerating short reads. Only a count below
// len(buf) marks the final block.
func readBlock(src io.Reader, buf []byte) (int, error) {
	n, err := io.ReadFull(src, buf)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return n, nil
	}
	return n, err
}
