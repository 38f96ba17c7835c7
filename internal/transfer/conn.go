package transfer

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/quietwire/tftpd/internal/bufpool"
	"github.com/quietwire/tftpd/pkg/wire"
)

// ErrRetriesExceeded reports that the peer stopped answering and the
// retransmission budget ran out.
var ErrRetriesExceeded = errors.New("retries exceeded waiting for peer")

// ErrPeerAborted marks a transfer ended by an Error packet from the peer.
// The dispatcher sends no reply for these.
var ErrPeerAborted = errors.New("peer aborted transfer")

// Conn is the ephemeral socket owned by exactly one transfer. It remembers
// the last packet sent so a timed-out wait can retransmit it.
type Conn struct {
	sock    *net.UDPConn
	timeout time.Duration
	retries int
	log     *slog.Logger

	buf  []byte // pooled receive buffer
	last []byte // last packet sent
}

// Dial binds a fresh ephemeral port on localIP and connects it to peer, so
// only the peer's datagrams reach this transfer.
func Dial(localIP net.IP, peer *net.UDPAddr, timeout time.Duration, retries int, log *slog.Logger) (*Conn, error) {
	sock, err := net.DialUDP("udp", &net.UDPAddr{IP: localIP}, peer)
	if err != nil {
		return nil, fmt.Errorf("bind transfer socket: %w", err)
	}
	return &Conn{
		sock:    sock,
		timeout: timeout,
		retries: retries,
		log:     log,
		buf:     bufpool.Get(),
	}, nil
}

func (c *Conn) Close() error {
	if c.buf != nil {
		bufpool.Put(c.buf)
		c.buf = nil
	}
	return c.sock.Close()
}

// Send transmits a packet and keeps it for retransmission.
func (c *Conn) Send(p wire.Packet) error {
	c.last = p.Encode()
	if _, err := c.sock.Write(c.last); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	return nil
}

func (c *Conn) resendLast() error {
	if c.last == nil {
		return nil
	}
	if _, err := c.sock.Write(c.last); err != nil {
		return fmt.Errorf("retransmit: %w", err)
	}
	return nil
}

// Receive waits for a packet the accept callback takes. Packets the callback
// declines, and datagrams that fail to decode, are ignored without rearming
// the wait. Each timeout retransmits the last sent packet until the retry
// budget is exhausted.
func (c *Conn) Receive(accept func(wire.Packet) (bool, error)) error {
	for attempt := 0; ; attempt++ {
		if err := c.sock.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
			return fmt.Errorf("set deadline: %w", err)
		}
		timedOut := false
		for !timedOut {
			n, err := c.sock.Read(c.buf)
			if err != nil {
				var nerr net.Error
				if errors.As(err, &nerr) && nerr.Timeout() {
					timedOut = true
					continue
				}
				return fmt.Errorf("receive: %w", err)
			}
			pkt, err := wire.Decode(c.buf[:n])
			if err != nil {
				c.log.Debug("dropping malformed packet", "error", err)
				continue
			}
			done, err := accept(pkt)
			if err != nil {
				return err
			}
			if done {
				return nil
			}
		}
		if attempt >= c.retries {
			return ErrRetriesExceeded
		}
		if err := c.resendLast(); err != nil {
			return err
		}
	}
}
