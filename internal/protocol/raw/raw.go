// Package raw frames the outermost DUSB packet layer: a 4-byte big-endian
// length, a 1-byte kind, then the payload, emitted as one bulk transfer.
//
// Buffer-size negotiation lives here because its packets never fragment:
// both directions carry a 4-byte size, and applying the device's response
// is the single place the session's packet ceiling changes.
package raw

import (
	"encoding/binary"

	"github.com/calclink/dusblink/internal/link"
)

// Kind tags one raw packet.
type Kind uint8

const (
	KindBufferSizeRequest  Kind = 1
	KindBufferSizeResponse Kind = 2
	KindDataFragment       Kind = 3
	KindFinalDataFragment  Kind = 4
	KindDataAcknowledge    Kind = 5
)

var kindNames = map[Kind]string{
	KindBufferSizeRequest:  "buffer size request",
	KindBufferSizeResponse: "buffer size response",
	KindDataFragment:       "data fragment",
	KindFinalDataFragment:  "final data fragment",
	KindDataAcknowledge:    "data acknowledge",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return UnknownKindError{Kind: uint8(k)}.Error()
}

const (
	headerLen = 5

	// InitialBufferSize is requested when a session opens, before the
	// device has granted anything.
	InitialBufferSize = 1024

	// BufferSizeCeiling caps granted sizes. The 83PCE and 84+CE grant
	// more than their link code actually accepts.
	BufferSizeCeiling = 1018

	// AckSentinel is the only payload a DataAcknowledge may carry.
	// Nobody knows why the protocol insists on this value, only that
	// it does.
	AckSentinel uint16 = 0xe000
)

// Packet is one framed unit. It lives for a single send or receive call.
type Packet struct {
	Kind    Kind
	Payload []byte
}

// Write frames p and sends it as one bulk transfer.
func Write(l *link.Link, p Packet) error {
	buf := make([]byte, headerLen+len(p.Payload))
	binary.BigEndian.PutUint32(buf[0:4], uint32(len(p.Payload)))
	buf[4] = byte(p.Kind)
	copy(buf[headerLen:], p.Payload)
	logger := l.Logger()
	logger.Trace().Stringer("kind", p.Kind).Int("len", len(p.Payload)).Msg("raw packet out")
	return l.Send(buf)
}

// Read parses the next raw packet off the link: 4-byte length, 1-byte kind,
// then exactly that many payload bytes.
func Read(l *link.Link) (Packet, error) {
	var header [headerLen]byte
	if err := l.ReadExact(header[:]); err != nil {
		return Packet{}, err
	}
	size := binary.BigEndian.Uint32(header[0:4])
	kind := Kind(header[4])
	if _, ok := kindNames[kind]; !ok {
		return Packet{}, UnknownKindError{Kind: header[4]}
	}
	payload := make([]byte, size)
	if err := l.ReadExact(payload); err != nil {
		return Packet{}, err
	}
	logger := l.Logger()
	logger.Trace().Stringer("kind", kind).Int("len", len(payload)).Msg("raw packet in")
	return Packet{Kind: kind, Payload: payload}, nil
}

// WriteBufferSizeRequest opens (or reopens) size negotiation.
func WriteBufferSizeRequest(l *link.Link, size uint32) error {
	return Write(l, Packet{Kind: KindBufferSizeRequest, Payload: appendSize(nil, size)})
}

// WriteBufferSizeResponse grants size to the device.
func WriteBufferSizeResponse(l *link.Link, size uint32) error {
	return Write(l, Packet{Kind: KindBufferSizeResponse, Payload: appendSize(nil, size)})
}

// ReadBufferSizeResponse expects the device's size grant, clamps it to the
// ceiling, and stores it as the link's packet ceiling. No other code path
// changes that value.
func ReadBufferSizeResponse(l *link.Link) (uint32, error) {
	p, err := Read(l)
	if err != nil {
		return 0, err
	}
	if p.Kind != KindBufferSizeResponse {
		return 0, WrongKindError{Expected: KindBufferSizeResponse, Received: p.Kind}
	}
	granted, err := decodeSize(p)
	if err != nil {
		return 0, err
	}
	if granted > BufferSizeCeiling {
		logger := l.Logger()
		logger.Debug().Uint32("granted", granted).
			Msg("device grants more than it honors, clamping")
		granted = BufferSizeCeiling
	}
	l.SetMaxPacketSize(granted)
	return granted, nil
}

// WriteAcknowledge emits a DataAcknowledge carrying the sentinel.
func WriteAcknowledge(l *link.Link) error {
	buf := make([]byte, 2)
	binary.BigEndian.PutUint16(buf, AckSentinel)
	return Write(l, Packet{Kind: KindDataAcknowledge, Payload: buf})
}

// CheckAcknowledge verifies the sentinel on a received DataAcknowledge.
func CheckAcknowledge(p Packet) error {
	if len(p.Payload) != 2 || binary.BigEndian.Uint16(p.Payload) != AckSentinel {
		return BadAcknowledgeError{Payload: p.Payload}
	}
	return nil
}

func appendSize(dst []byte, size uint32) []byte {
	return binary.BigEndian.AppendUint32(dst, size)
}

func decodeSize(p Packet) (uint32, error) {
	if len(p.Payload) != 4 {
		return 0, WrongSizeError{Kind: p.Kind, Expected: 4, Received: len(p.Payload)}
	}
	return binary.BigEndian.Uint32(p.Payload), nil
}
