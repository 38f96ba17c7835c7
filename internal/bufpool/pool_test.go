package bufpool

import "testing"

func TestGetReturnsFullSizeBuffer(t *testing.T) {
	buf := Get()
	if len(buf) != DatagramSize {
		t.Fatalf("expected %d bytes, got %d", DatagramSize, len(buf))
	}
	Put(buf)
}

func TestPutDiscardsUndersizedBuffer(t *testing.T) {
	Put(make([]byte, 16))

	buf := Get()
	if len(buf) != DatagramSize {
		t.Fatalf("expected %d bytes after undersized Put, got %d", DatagramSize, len(buf))
	}
	Put(buf)
}

func TestGetAfterPutKeepsSize(t *testing.T) {
	buf := Get()
	Put(buf[:10]) // resliced buffers still have full capacity

	buf = Get()
	if len(buf) != DatagramSize {
		t.Fatalf("expected %d bytes, got %d", DatagramSize, len(buf))
	}
	Put(buf)
}
