// Package transfer implements the per-request TFTP state machines: option
// negotiation, the read (server→client) exchange, and the write
// (client→server) exchange. Each transfer owns one ephemeral UDP socket and
// its own block/retry bookkeeping; nothing here is shared across transfers.
package transfer

import (
	"fmt"
	"time"

	"github.com/quietwire/tftpd/pkg/wire"
)

const (
	// DefaultBlockSize is the RFC 1350 block size assumed when no blksize
	// option is negotiated.
	DefaultBlockSize = 512

	// MinBlockSize and MaxBlockSize bound the negotiable range (RFC 2348).
	MinBlockSize = 8
	MaxBlockSize = 65464
)

// Config is the server-wide transfer policy. It is built once and shared
// read-only by every transfer.
type Config struct {
	Timeout               time.Duration
	BlockSizeLimit        int // 0 = no cap
	Retries               int
	IgnoreClientTimeout   bool
	IgnoreClientBlockSize bool
}

// Params holds the effective options for one transfer.
type Params struct {
	BlockSize int
	Timeout   time.Duration

	// Oack is the option acknowledgment to send before the plain exchange,
	// nil when negotiation is skipped.
	Oack *wire.OptionAck
}

// Negotiate derives the effective transfer options from a client's request
// and the server policy. size is the known transfer size: the source's
// actual size on reads, the client-declared size on writes, -1 when unknown.
//
// An OACK is produced only when an accepted value differs from what the
// client would assume without one; when every accepted value matches the
// defaults the exchange proceeds directly with DATA or ACK(0).
//
// Values the server cannot honor at all (blksize below the protocol minimum,
// timeout of zero seconds) fail negotiation rather than falling back
// silently; the returned error carries wire code 8.
func Negotiate(opts wire.Options, cfg Config, size int64) (Params, error) {
	p := Params{
		BlockSize: DefaultBlockSize,
		Timeout:   cfg.Timeout,
	}
	var ack wire.Options

	if opts.BlockSize != nil && !cfg.IgnoreClientBlockSize {
		bs := int(*opts.BlockSize)
		if bs < MinBlockSize {
			return Params{}, wire.Error{
				Code:    wire.ErrOptionNegotiation,
				Message: fmt.Sprintf("blksize %d below minimum %d", bs, MinBlockSize),
			}
		}
		// The server may always answer with a smaller value.
		if bs > MaxBlockSize {
			bs = MaxBlockSize
		}
		if cfg.BlockSizeLimit > 0 && bs > cfg.BlockSizeLimit {
			bs = cfg.BlockSizeLimit
		}
		p.BlockSize = bs
		if bs != DefaultBlockSize {
			v := uint16(bs)
			ack.BlockSize = &v
		}
	}

	if opts.Timeout != nil && !cfg.IgnoreClientTimeout {
		secs := *opts.Timeout
		if secs == 0 {
			return Params{}, wire.Error{
				Code:    wire.ErrOptionNegotiation,
				Message: "timeout 0 out of range",
			}
		}
		p.Timeout = time.Duration(secs) * time.Second
		if p.Timeout != cfg.Timeout {
			v := secs
			ack.Timeout = &v
		}
	}

	if opts.TransferSize != nil && size >= 0 && uint64(size) != *opts.TransferSize {
		v := uint64(size)
		ack.TransferSize = &v
	}

	if !ack.Empty() {
		p.Oack = &wire.OptionAck{Opts: ack}
	}
	return p, nil
}
