package transfer

import (
	"fmt"
	"io"

	"github.com/quietwire/tftpd/pkg/wire"
)

// Write drives a write transfer (WRQ) over c. With negotiated options the
// OACK itself acknowledges the request and DATA block 1 follows directly;
// otherwise ACK(0) opens the exchange. Each received block is handed to the
// sink before its ACK goes out; the first payload shorter than the block
// size completes the transfer after its final ACK.
func Write(c *Conn, p Params, sink io.Writer) error {
	var opening wire.Packet = wire.Ack{Block: 0}
	if p.Oack != nil {
		opening = *p.Oack
	}
	if err := c.Send(opening); err != nil {
		return err
	}

	for block := uint16(1); ; block++ {
		payload, err := awaitData(c, block)
		if err != nil {
			return err
		}
		if _, err := sink.Write(payload); err != nil {
			return fmt.Errorf("write sink: %w", err)
		}
		if err := c.Send(wire.Ack{Block: block}); err != nil {
			return err
		}
		if len(payload) < p.BlockSize {
			return nil
		}
	}
}

// awaitData waits for DATA of the given block. A duplicate of the previous
// block means the client missed our last ACK: it is re-sent without spending
// a retry. Anything else but an Error packet is ignored.
func awaitData(c *Conn, block uint16) ([]byte, error) {
	var payload []byte
	err := c.Receive(func(pkt wire.Packet) (bool, error) {
		switch pkt := pkt.(type) {
		case wire.Data:
			if pkt.Block == block {
				payload = pkt.Payload
				return true, nil
			}
			if pkt.Block == block-1 {
				if err := c.resendLast(); err != nil {
					return false, err
				}
			}
			return false, nil
		case wire.Error:
			return false, fmt.Errorf("%w: %w", ErrPeerAborted, pkt)
		default:
			return false, nil
		}
	})
	return payload, err
}
