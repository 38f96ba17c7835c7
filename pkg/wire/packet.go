// Package wire implements the TFTP packet codec: the six packet kinds of
// RFC 1350 plus the option extensions of RFC 2347/2348/2349 (blksize,
// timeout, tsize).
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Opcode is the two-byte packet type identifier.
type Opcode uint16

const (
	OpRrq Opcode = iota + 1
	OpWrq
	OpData
	OpAck
	OpError
	OpOack
)

// ErrorCode is the code field of an Error packet.
type ErrorCode uint16

const (
	ErrUndefined ErrorCode = iota
	ErrFileNotFound
	ErrAccessViolation
	ErrDiskFull
	ErrIllegalOperation
	ErrUnknownTransferID
	ErrFileExists
	ErrNoSuchUser
	ErrOptionNegotiation
)

func (c ErrorCode) String() string {
	switch c {
	case ErrFileNotFound:
		return "file not found"
	case ErrAccessViolation:
		return "access violation"
	case ErrDiskFull:
		return "disk full or allocation exceeded"
	case ErrIllegalOperation:
		return "illegal TFTP operation"
	case ErrUnknownTransferID:
		return "unknown transfer ID"
	case ErrFileExists:
		return "file already exists"
	case ErrNoSuchUser:
		return "no such user"
	case ErrOptionNegotiation:
		return "option negotiation failed"
	default:
		return "undefined error"
	}
}

// Recognized option names (RFC 2348, RFC 2349). Any other option name is
// ignored on decode for client compatibility.
const (
	OptBlockSize    = "blksize"
	OptTimeout      = "timeout"
	OptTransferSize = "tsize"
)

// Decode failures. Packets that fail to decode are dropped by the server,
// never answered.
var (
	ErrPacketTooShort  = errors.New("packet too short")
	ErrUnknownOpcode   = errors.New("unknown opcode")
	ErrMalformedPacket = errors.New("malformed packet")
	ErrMalformedOption = errors.New("malformed option value")
)

// Packet is one TFTP datagram payload. Concrete types: Request, Data, Ack,
// Error, OptionAck.
type Packet interface {
	Encode() []byte
}

// Options holds the recognized request options. A nil field means the option
// was not present; absent options are never negotiated.
type Options struct {
	BlockSize    *uint16
	Timeout      *uint8
	TransferSize *uint64
}

// Empty reports whether no recognized option is present.
func (o Options) Empty() bool {
	return o.BlockSize == nil && o.Timeout == nil && o.TransferSize == nil
}

// Request is a read (RRQ) or write (WRQ) request.
type Request struct {
	Write    bool
	Filename string
	Mode     string
	Opts     Options
}

// Data carries one block of payload. A payload shorter than the negotiated
// block size marks the final block.
type Data struct {
	Block   uint16
	Payload []byte
}

// Ack acknowledges one block. Block 0 acknowledges a write request.
type Ack struct {
	Block uint16
}

// Error is both a wire packet and a Go error, so a peer-sent Error can
// propagate through a transfer as-is.
type Error struct {
	Code    ErrorCode
	Message string
}

func (e Error) Error() string {
	if e.Message == "" {
		return e.Code.String()
	}
	return e.Message
}

// OptionAck (OACK) acknowledges accepted options in place of the first
// Data/Ack of the plain exchange.
type OptionAck struct {
	Opts Options
}

// Decode parses a raw datagram payload into a Packet.
func Decode(b []byte) (Packet, error) {
	if len(b) < 2 {
		return nil, ErrPacketTooShort
	}
	op := Opcode(binary.BigEndian.Uint16(b))
	rest := b[2:]

	switch op {
	case OpRrq, OpWrq:
		return decodeRequest(op == OpWrq, rest)
	case OpData:
		if len(rest) < 2 {
			return nil, ErrPacketTooShort
		}
		return Data{
			Block:   binary.BigEndian.Uint16(rest),
			Payload: append([]byte{}, rest[2:]...),
		}, nil
	case OpAck:
		if len(rest) != 2 {
			return nil, ErrMalformedPacket
		}
		return Ack{Block: binary.BigEndian.Uint16(rest)}, nil
	case OpError:
		if len(rest) < 2 {
			return nil, ErrPacketTooShort
		}
		fields, err := splitStrings(rest[2:])
		if err != nil || len(fields) != 1 {
			return nil, ErrMalformedPacket
		}
		return Error{
			Code:    ErrorCode(binary.BigEndian.Uint16(rest)),
			Message: fields[0],
		}, nil
	case OpOack:
		fields, err := splitStrings(rest)
		if err != nil {
			return nil, ErrMalformedPacket
		}
		opts, err := decodeOptions(fields)
		if err != nil {
			return nil, err
		}
		return OptionAck{Opts: opts}, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownOpcode, uint16(op))
	}
}

func decodeRequest(write bool, b []byte) (Packet, error) {
	fields, err := splitStrings(b)
	if err != nil || len(fields) < 2 {
		return nil, ErrMalformedPacket
	}
	if fields[0] == "" || fields[1] == "" {
		return nil, ErrMalformedPacket
	}
	opts, err := decodeOptions(fields[2:])
	if err != nil {
		return nil, err
	}
	return Request{
		Write:    write,
		Filename: fields[0],
		Mode:     fields[1],
		Opts:     opts,
	}, nil
}

func decodeOptions(fields []string) (Options, error) {
	var opts Options
	if len(fields)%2 != 0 {
		return opts, ErrMalformedPacket
	}
	for i := 0; i < len(fields); i += 2 {
		value := fields[i+1]
		switch strings.ToLower(fields[i]) {
		case OptBlockSize:
			n, err := strconv.ParseUint(value, 10, 16)
			if err != nil {
				return opts, fmt.Errorf("%w: blksize %q", ErrMalformedOption, value)
			}
			v := uint16(n)
			opts.BlockSize = &v
		case OptTimeout:
			n, err := strconv.ParseUint(value, 10, 8)
			if err != nil {
				return opts, fmt.Errorf("%w: timeout %q", ErrMalformedOption, value)
			}
			v := uint8(n)
			opts.Timeout = &v
		case OptTransferSize:
			n, err := strconv.ParseUint(value, 10, 64)
			if err != nil {
				return opts, fmt.Errorf("%w: tsize %q", ErrMalformedOption, value)
			}
			opts.TransferSize = &n
		default:
			// Unrecognized options are ignored, not rejected.
		}
	}
	return opts, nil
}

// splitStrings splits a sequence of NUL-terminated strings. The buffer must
// be empty or end with NUL.
func splitStrings(b []byte) ([]string, error) {
	if len(b) == 0 {
		return nil, nil
	}
	if b[len(b)-1] != 0 {
		return nil, ErrMalformedPacket
	}
	parts := bytes.Split(b[:len(b)-1], []byte{0})
	fields := make([]string, len(parts))
	for i, p := range parts {
		fields[i] = string(p)
	}
	return fields, nil
}

func (r Request) Encode() []byte {
	var buf bytes.Buffer
	op := OpRrq
	if r.Write {
		op = OpWrq
	}
	writeUint16(&buf, uint16(op))
	writeString(&buf, r.Filename)
	writeString(&buf, r.Mode)
	encodeOptions(&buf, r.Opts)
	return buf.Bytes()
}

func (d Data) Encode() []byte {
	b := make([]byte, 4+len(d.Payload))
	binary.BigEndian.PutUint16(b, uint16(OpData))
	binary.BigEndian.PutUint16(b[2:], d.Block)
	copy(b[4:], d.Payload)
	return b
}

func (a Ack) Encode() []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint16(b, uint16(OpAck))
	binary.BigEndian.PutUint16(b[2:], a.Block)
	return b
}

func (e Error) Encode() []byte {
	var buf bytes.Buffer
	writeUint16(&buf, uint16(OpError))
	writeUint16(&buf, uint16(e.Code))
	writeString(&buf, e.Message)
	return buf.Bytes()
}

func (o OptionAck) Encode() []byte {
	var buf bytes.Buffer
	writeUint16(&buf, uint16(OpOack))
	encodeOptions(&buf, o.Opts)
	return buf.Bytes()
}

// encodeOptions writes present options in canonical order.
func encodeOptions(buf *bytes.Buffer, o Options) {
	if o.BlockSize != nil {
		writeString(buf, OptBlockSize)
		writeString(buf, strconv.FormatUint(uint64(*o.BlockSize), 10))
	}
	if o.Timeout != nil {
		writeString(buf, OptTimeout)
		writeString(buf, strconv.FormatUint(uint64(*o.Timeout), 10))
	}
	if o.TransferSize != nil {
		writeString(buf, OptTransferSize)
		writeString(buf, strconv.FormatUint(*o.TransferSize, 10))
	}
}

func writeUint16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func writeString(buf *bytes.Buffer, s string) {
	buf.WriteString(s)
	buf.WriteByte(0)
}
