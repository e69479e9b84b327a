// Package virtual carries logical DUSB messages over raw packets. A message
// is a 6-byte header of payload length and kind followed by the payload,
// fragmented at the link's negotiated ceiling on send and reassembled on
// receive. Every outbound fragment is individually acknowledged by the
// device before the next may go out.
package virtual

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/calclink/dusblink/internal/link"
	"github.com/calclink/dusblink/internal/protocol/raw"
)

// headerLen covers the u32 payload length and u16 kind.
const headerLen = 6

// renegotiateLimit bounds how many inline buffer-size requests one
// acknowledgment wait will answer before giving up on the device.
const renegotiateLimit = 8

var (
	// ErrRenegotiateLimit means the device kept reopening buffer-size
	// negotiation instead of acknowledging a fragment.
	ErrRenegotiateLimit = errors.New("virtual: device kept requesting buffer size instead of acknowledging")

	// ErrShortHeader means the reassembled stream cannot hold the
	// length and kind header.
	ErrShortHeader = errors.New("virtual: reassembled stream shorter than packet header")
)

// LengthMismatchError reports a declared payload length exceeding the
// reassembled bytes.
type LengthMismatchError struct {
	Declared  uint32
	Available int
}

func (e LengthMismatchError) Error() string {
	return fmt.Sprintf("virtual: declared payload length %d exceeds %d reassembled bytes", e.Declared, e.Available)
}

// Packet is one logical message: a 16-bit kind and its payload bytes.
// Decoding the payload by kind happens one layer up.
type Packet struct {
	Kind    uint16
	Payload []byte
}

// Send fragments p at the link's current packet ceiling and sends the
// chunks in order, blocking for one acknowledgment after each. All chunks
// but the last go out as data fragments; the last is a final data fragment.
func Send(l *link.Link, p Packet) error {
	max := int(l.MaxPacketSize())
	if max < 1 {
		return fmt.Errorf("virtual: packet ceiling %d, cannot fragment", max)
	}

	stream := make([]byte, headerLen+len(p.Payload))
	binary.BigEndian.PutUint32(stream[0:4], uint32(len(p.Payload)))
	binary.BigEndian.PutUint16(stream[4:6], p.Kind)
	copy(stream[headerLen:], p.Payload)

	logger := l.Logger()
	logger.Debug().Uint16("kind", p.Kind).Int("len", len(p.Payload)).Msg("virtual packet out")

	for len(stream) > 0 {
		chunk := stream
		kind := raw.KindFinalDataFragment
		if len(chunk) > max {
			chunk = chunk[:max]
			kind = raw.KindDataFragment
		}
		stream = stream[len(chunk):]

		if err := raw.Write(l, raw.Packet{Kind: kind, Payload: chunk}); err != nil {
			return err
		}
		if err := waitAcknowledge(l); err != nil {
			return err
		}
	}
	return nil
}

// waitAcknowledge blocks for the device's acknowledgment of one fragment.
//
// A device may reopen buffer-size negotiation instead of acknowledging:
// either an explicit request packet, or an acknowledge packet carrying a
// 4-byte size where the sentinel belongs. Both get an immediate response
// advertising the current ceiling, then the wait continues. The loop is
// bounded so a device stuck reissuing requests cannot hold the send
// forever.
func waitAcknowledge(l *link.Link) error {
	for i := 0; i < renegotiateLimit; i++ {
		p, err := raw.Read(l)
		if err != nil {
			return err
		}
		switch {
		case p.Kind == raw.KindBufferSizeRequest,
			p.Kind == raw.KindDataAcknowledge && len(p.Payload) == 4:
			logger := l.Logger()
			logger.Debug().Msg("device reopened buffer size negotiation mid-send")
			if err := raw.WriteBufferSizeResponse(l, l.MaxPacketSize()); err != nil {
				return err
			}
		case p.Kind == raw.KindDataAcknowledge:
			return raw.CheckAcknowledge(p)
		default:
			return raw.WrongKindError{Expected: raw.KindDataAcknowledge, Received: p.Kind}
		}
	}
	return ErrRenegotiateLimit
}

// Receive reassembles one logical message: data fragments accumulate until
// a final data fragment arrives, which is acknowledged once.
//
// The declared length in the reassembled header is authoritative. Fragments
// may pad the stream past it; the padding is discarded.
func Receive(l *link.Link) (Packet, error) {
	var stream []byte
	for {
		p, err := raw.Read(l)
		if err != nil {
			return Packet{}, err
		}
		switch p.Kind {
		case raw.KindDataFragment:
			stream = append(stream, p.Payload...)
		case raw.KindFinalDataFragment:
			stream = append(stream, p.Payload...)
			if err := raw.WriteAcknowledge(l); err != nil {
				return Packet{}, err
			}
			return parseStream(l, stream)
		default:
			return Packet{}, raw.WrongKindError{Expected: raw.KindFinalDataFragment, Received: p.Kind}
		}
	}
}

func parseStream(l *link.Link, stream []byte) (Packet, error) {
	if len(stream) < headerLen {
		return Packet{}, ErrShortHeader
	}
	declared := binary.BigEndian.Uint32(stream[0:4])
	kind := binary.BigEndian.Uint16(stream[4:6])
	if int64(declared) > int64(len(stream)-headerLen) {
		return Packet{}, LengthMismatchError{Declared: declared, Available: len(stream) - headerLen}
	}
	logger := l.Logger()
	logger.Debug().Uint16("kind", kind).Uint32("len", declared).Msg("virtual packet in")
	return Packet{Kind: kind, Payload: stream[headerLen : headerLen+int(declared)]}, nil
}
