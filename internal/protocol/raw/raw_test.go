package raw

import (
	"bytes"
	"errors"
	"testing"

	"github.com/calclink/dusblink/internal/link"
	"github.com/calclink/dusblink/internal/testutil/cabletest"
	"github.com/calclink/dusblink/internal/testutil/testlog"
)

func testLink(t *testing.T, transfers ...[]byte) (*link.Link, *cabletest.Cable) {
	t.Helper()
	c := cabletest.New(transfers...)
	return link.New(c, testlog.Logger(t)), c
}

// framed builds the wire form of one raw packet.
func framed(kind Kind, payload ...byte) []byte {
	buf := []byte{0, 0, 0, byte(len(payload)), byte(kind)}
	return append(buf, payload...)
}

func TestWriteFramesOneTransfer(t *testing.T) {
	l, c := testLink(t)
	if err := Write(l, Packet{Kind: KindDataFragment, Payload: []byte{0xaa, 0xbb, 0xcc}}); err != nil {
		t.Fatalf("write: %v", err)
	}
	writes := c.Writes()
	if len(writes) != 1 {
		t.Fatalf("expected one bulk transfer, got %d", len(writes))
	}
	want := []byte{0, 0, 0, 3, 3, 0xaa, 0xbb, 0xcc}
	if !bytes.Equal(writes[0], want) {
		t.Fatalf("frame mismatch: got % x want % x", writes[0], want)
	}
}

func TestReadParsesPacket(t *testing.T) {
	l, _ := testLink(t, framed(KindFinalDataFragment, 1, 2, 3, 4))
	p, err := Read(l)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if p.Kind != KindFinalDataFragment {
		t.Fatalf("kind mismatch: got %s", p.Kind)
	}
	if !bytes.Equal(p.Payload, []byte{1, 2, 3, 4}) {
		t.Fatalf("payload mismatch: % x", p.Payload)
	}
}

func TestReadPayloadSplitAcrossTransfers(t *testing.T) {
	// Header in one bulk transfer, payload split over two more.
	l, _ := testLink(t,
		[]byte{0, 0, 0, 6, byte(KindDataFragment)},
		[]byte{1, 2, 3},
		[]byte{4, 5, 6},
	)
	p, err := Read(l)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(p.Payload, []byte{1, 2, 3, 4, 5, 6}) {
		t.Fatalf("payload mismatch: % x", p.Payload)
	}
}

func TestReadUnknownKindDeterministic(t *testing.T) {
	l, _ := testLink(t, []byte{0, 0, 0, 0, 9})
	_, err := Read(l)
	var unknown UnknownKindError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownKindError, got %v", err)
	}
	if unknown.Kind != 9 {
		t.Fatalf("unexpected kind byte: %d", unknown.Kind)
	}
}

func TestReadBufferSizeResponseClamp(t *testing.T) {
	cases := []struct {
		name    string
		granted uint32
		want    uint32
	}{
		{"just over ceiling", 1019, 1018},
		{"far over ceiling", 2000, 1018},
		{"under ceiling", 500, 500},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			l, _ := testLink(t, framed(KindBufferSizeResponse,
				byte(tc.granted>>24), byte(tc.granted>>16), byte(tc.granted>>8), byte(tc.granted)))
			got, err := ReadBufferSizeResponse(l)
			if err != nil {
				t.Fatalf("read response: %v", err)
			}
			if got != tc.want {
				t.Fatalf("granted %d: got %d want %d", tc.granted, got, tc.want)
			}
			if l.MaxPacketSize() != tc.want {
				t.Fatalf("link ceiling not stored: got %d want %d", l.MaxPacketSize(), tc.want)
			}
		})
	}
}

func TestReadBufferSizeResponseWrongKind(t *testing.T) {
	l, _ := testLink(t, framed(KindDataAcknowledge, 0xe0, 0x00))
	_, err := ReadBufferSizeResponse(l)
	var wrong WrongKindError
	if !errors.As(err, &wrong) {
		t.Fatalf("expected WrongKindError, got %v", err)
	}
	if wrong.Expected != KindBufferSizeResponse || wrong.Received != KindDataAcknowledge {
		t.Fatalf("unexpected error contents: %+v", wrong)
	}
}

func TestReadBufferSizeResponseWrongPayloadSize(t *testing.T) {
	l, _ := testLink(t, framed(KindBufferSizeResponse, 0x03, 0xfc))
	_, err := ReadBufferSizeResponse(l)
	var wrong WrongSizeError
	if !errors.As(err, &wrong) {
		t.Fatalf("expected WrongSizeError, got %v", err)
	}
	if wrong.Expected != 4 || wrong.Received != 2 {
		t.Fatalf("unexpected error contents: %+v", wrong)
	}
}

func TestCheckAcknowledge(t *testing.T) {
	ok := Packet{Kind: KindDataAcknowledge, Payload: []byte{0xe0, 0x00}}
	if err := CheckAcknowledge(ok); err != nil {
		t.Fatalf("sentinel rejected: %v", err)
	}

	for _, payload := range [][]byte{{0xe0, 0x01}, {0x00, 0x00}, {0xe0}, nil} {
		bad := Packet{Kind: KindDataAcknowledge, Payload: payload}
		err := CheckAcknowledge(bad)
		var badAck BadAcknowledgeError
		if !errors.As(err, &badAck) {
			t.Fatalf("payload % x: expected BadAcknowledgeError, got %v", payload, err)
		}
	}
}

func TestWriteAcknowledgeCarriesSentinel(t *testing.T) {
	l, c := testLink(t)
	if err := WriteAcknowledge(l); err != nil {
		t.Fatalf("write acknowledge: %v", err)
	}
	want := []byte{0, 0, 0, 2, 5, 0xe0, 0x00}
	if !bytes.Equal(c.Writes()[0], want) {
		t.Fatalf("acknowledge frame mismatch: got % x want % x", c.Writes()[0], want)
	}
}

func TestWriteBufferSizeRequest(t *testing.T) {
	l, c := testLink(t)
	if err := WriteBufferSizeRequest(l, InitialBufferSize); err != nil {
		t.Fatalf("write request: %v", err)
	}
	want := []byte{0, 0, 0, 4, 1, 0x00, 0x00, 0x04, 0x00}
	if !bytes.Equal(c.Writes()[0], want) {
		t.Fatalf("request frame mismatch: got % x want % x", c.Writes()[0], want)
	}
}
