package link

import (
	"bytes"
	"errors"
	"testing"

	"github.com/calclink/dusblink/internal/testutil/cabletest"
	"github.com/calclink/dusblink/internal/testutil/testlog"
)

func TestReadExactDrainsReadAhead(t *testing.T) {
	c := cabletest.New([]byte{1, 2, 3, 4, 5})
	l := New(c, testlog.Logger(t))

	head := make([]byte, 2)
	if err := l.ReadExact(head); err != nil {
		t.Fatalf("first read: %v", err)
	}
	if !bytes.Equal(head, []byte{1, 2}) {
		t.Fatalf("first read got % x", head)
	}
	if l.Buffered() != 3 {
		t.Fatalf("buffered %d, want 3", l.Buffered())
	}

	tail := make([]byte, 3)
	if err := l.ReadExact(tail); err != nil {
		t.Fatalf("second read: %v", err)
	}
	if !bytes.Equal(tail, []byte{3, 4, 5}) {
		t.Fatalf("second read got % x", tail)
	}
	if c.Remaining() != 0 {
		t.Fatalf("transfers left unread: %d", c.Remaining())
	}
}

func TestReadExactSpansTransfers(t *testing.T) {
	c := cabletest.New([]byte{1, 2}, []byte{3}, []byte{4, 5, 6})
	l := New(c, testlog.Logger(t))

	got := make([]byte, 6)
	if err := l.ReadExact(got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(got, []byte{1, 2, 3, 4, 5, 6}) {
		t.Fatalf("got % x", got)
	}
}

func TestReadExactLargerThanChunk(t *testing.T) {
	big := make([]byte, 3*readChunkSize+17)
	for i := range big {
		big[i] = byte(i)
	}
	c := cabletest.New(big)
	l := New(c, testlog.Logger(t))

	got := make([]byte, len(big))
	if err := l.ReadExact(got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(got, big) {
		t.Fatalf("large read corrupted data")
	}
}

func TestReadExactEmptyTransfer(t *testing.T) {
	c := cabletest.New([]byte{})
	l := New(c, testlog.Logger(t))
	if err := l.ReadExact(make([]byte, 1)); err == nil {
		t.Fatalf("empty transfer must fail")
	}
}

func TestReadExactPropagatesCableError(t *testing.T) {
	c := cabletest.New()
	l := New(c, testlog.Logger(t))
	err := l.ReadExact(make([]byte, 1))
	if !errors.Is(err, cabletest.ErrScriptExhausted) {
		t.Fatalf("expected wrapped cable error, got %v", err)
	}
}

func TestSendRecordsTransfer(t *testing.T) {
	c := cabletest.New()
	l := New(c, testlog.Logger(t))
	if err := l.Send([]byte{0xaa, 0xbb}); err != nil {
		t.Fatalf("send: %v", err)
	}
	writes := c.Writes()
	if len(writes) != 1 || !bytes.Equal(writes[0], []byte{0xaa, 0xbb}) {
		t.Fatalf("unexpected writes: %v", writes)
	}
}

func TestMaxPacketSize(t *testing.T) {
	l := New(cabletest.New(), testlog.Logger(t))
	if l.MaxPacketSize() != readChunkSize {
		t.Fatalf("default ceiling %d", l.MaxPacketSize())
	}
	l.SetMaxPacketSize(1018)
	if l.MaxPacketSize() != 1018 {
		t.Fatalf("ceiling %d after set", l.MaxPacketSize())
	}
}
