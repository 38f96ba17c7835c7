package wire

import (
	"bytes"
	"errors"
	"reflect"
	"testing"
)

func u16(v uint16) *uint16 { return &v }
func u8(v uint8) *uint8    { return &v }
func u64(v uint64) *uint64 { return &v }

func TestEncodeDecodeRoundTrip(t *testing.T) {
	packets := []Packet{
		Request{Filename: "a.txt", Mode: "octet"},
		Request{Write: true, Filename: "upload.bin", Mode: "netascii"},
		Request{
			Filename: "big.iso",
			Mode:     "octet",
			Opts: Options{
				BlockSize:    u16(1428),
				Timeout:      u8(3),
				TransferSize: u64(0),
			},
		},
		Request{
			Write:    true,
			Filename: "x",
			Mode:     "octet",
			Opts:     Options{TransferSize: u64(1048576)},
		},
		Data{Block: 1, Payload: []byte("hello")},
		Data{Block: 65535, Payload: []byte{}},
		Ack{Block: 0},
		Ack{Block: 40000},
		Error{Code: ErrFileNotFound, Message: "no such file"},
		Error{Code: ErrUndefined, Message: ""},
		OptionAck{},
		OptionAck{Opts: Options{BlockSize: u16(512), TransferSize: u64(2048)}},
	}

	for _, p := range packets {
		got, err := Decode(p.Encode())
		if err != nil {
			t.Fatalf("Decode(%#v.Encode()) error: %v", p, err)
		}
		if !reflect.DeepEqual(got, p) {
			t.Errorf("round trip mismatch: got %#v, want %#v", got, p)
		}
	}
}

func TestDecodeWireLayout(t *testing.T) {
	// RRQ for "a.txt" in octet mode with a blksize option, laid out per
	// RFC 1350/2348.
	raw := []byte("\x00\x01a.txt\x00octet\x00blksize\x001024\x00")
	p, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	req, ok := p.(Request)
	if !ok {
		t.Fatalf("expected Request, got %T", p)
	}
	if req.Write || req.Filename != "a.txt" || req.Mode != "octet" {
		t.Errorf("unexpected request: %#v", req)
	}
	if req.Opts.BlockSize == nil || *req.Opts.BlockSize != 1024 {
		t.Errorf("expected blksize 1024, got %v", req.Opts.BlockSize)
	}
	if !bytes.Equal(req.Encode(), raw) {
		t.Errorf("re-encode mismatch: got %q, want %q", req.Encode(), raw)
	}
}

func TestDecodeTruncated(t *testing.T) {
	cases := [][]byte{
		nil,
		{},
		{0},
		{0, 3},          // DATA with no block number
		{0, 3, 0},       // DATA with half a block number
		{0, 4, 1},       // ACK with half a block number
		{0, 5, 0},       // ERROR with half a code
		{0, 5, 0, 1},    // ERROR with no message terminator
		{0, 1, 'a', 0},   // request with no mode
		{0, 2, 'a', 'b'}, // request without trailing NUL
	}
	for _, raw := range cases {
		if p, err := Decode(raw); err == nil {
			t.Errorf("Decode(%v) = %#v, want error", raw, p)
		}
	}
}

func TestDecodeUnknownOpcode(t *testing.T) {
	for _, op := range []byte{0, 7, 99} {
		if _, err := Decode([]byte{0, op, 0, 0}); !errors.Is(err, ErrUnknownOpcode) {
			t.Errorf("opcode %d: expected ErrUnknownOpcode, got %v", op, err)
		}
	}
}

func TestDecodeIgnoresUnrecognizedOptions(t *testing.T) {
	raw := []byte("\x00\x01f\x00octet\x00windowsize\x0016\x00timeout\x005\x00")
	p, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	req := p.(Request)
	if req.Opts.BlockSize != nil || req.Opts.TransferSize != nil {
		t.Errorf("unexpected options: %#v", req.Opts)
	}
	if req.Opts.Timeout == nil || *req.Opts.Timeout != 5 {
		t.Errorf("expected timeout 5, got %v", req.Opts.Timeout)
	}
}

func TestDecodeOptionNamesCaseInsensitive(t *testing.T) {
	raw := []byte("\x00\x02f\x00octet\x00tSize\x0010\x00")
	p, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	req := p.(Request)
	if req.Opts.TransferSize == nil || *req.Opts.TransferSize != 10 {
		t.Errorf("expected tsize 10, got %v", req.Opts.TransferSize)
	}
}

func TestDecodeMalformedOptionValue(t *testing.T) {
	cases := [][]byte{
		[]byte("\x00\x01f\x00octet\x00blksize\x00abc\x00"),
		[]byte("\x00\x01f\x00octet\x00blksize\x00\x00"),
		[]byte("\x00\x01f\x00octet\x00timeout\x00999\x00"), // exceeds u8
		[]byte("\x00\x01f\x00octet\x00tsize\x00-1\x00"),
		[]byte("\x00\x06blksize\x00huge\x00"),
	}
	for _, raw := range cases {
		if _, err := Decode(raw); !errors.Is(err, ErrMalformedOption) {
			t.Errorf("Decode(%q): expected ErrMalformedOption, got %v", raw, err)
		}
	}
}

func TestDecodeOddOptionFields(t *testing.T) {
	raw := []byte("\x00\x01f\x00octet\x00blksize\x00")
	if _, err := Decode(raw); !errors.Is(err, ErrMalformedPacket) {
		t.Errorf("expected ErrMalformedPacket, got %v", err)
	}
}

func TestDecodeEmptyFilenameOrMode(t *testing.T) {
	cases := [][]byte{
		[]byte("\x00\x01\x00octet\x00"),
		[]byte("\x00\x02f\x00\x00"),
	}
	for _, raw := range cases {
		if _, err := Decode(raw); !errors.Is(err, ErrMalformedPacket) {
			t.Errorf("Decode(%q): expected ErrMalformedPacket, got %v", raw, err)
		}
	}
}

func TestErrorPacketAsGoError(t *testing.T) {
	var err error = Error{Code: ErrDiskFull, Message: "out of space"}
	if err.Error() != "out of space" {
		t.Errorf("unexpected message: %q", err.Error())
	}
	err = Error{Code: ErrAccessViolation}
	if err.Error() != "access violation" {
		t.Errorf("unexpected fallback message: %q", err.Error())
	}
}
