// Package link holds the mutable connection state one session owns: the
// negotiated raw packet ceiling and the read-ahead buffer that adapts bulk
// transfer boundaries to the exact-length reads the packet layers need.
package link

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/calclink/dusblink/internal/cable"
)

// readChunkSize is the bulk-IN request size. One full raw packet at the
// negotiated ceiling (5-byte header + 1018 payload) fits in one chunk.
const readChunkSize = 1024

// Link threads a cable together with the negotiated packet ceiling and the
// read-ahead buffer. The packet layers receive it per call and retain
// nothing; the session controller owns it for the connection lifetime.
type Link struct {
	cable cable.Cable
	log   zerolog.Logger

	maxPacketSize uint32
	buf           []byte
	chunk         [readChunkSize]byte
}

// New wraps a cable. The packet ceiling starts at the initial negotiation
// request size and changes only when a buffer-size response is applied.
func New(c cable.Cable, log zerolog.Logger) *Link {
	return &Link{
		cable:         c,
		log:           log,
		maxPacketSize: readChunkSize,
	}
}

// Logger returns the session-scoped logger.
func (l *Link) Logger() zerolog.Logger { return l.log }

// MaxPacketSize returns the current raw packet payload ceiling.
func (l *Link) MaxPacketSize() uint32 { return l.maxPacketSize }

// SetMaxPacketSize stores a negotiated ceiling.
func (l *Link) SetMaxPacketSize(size uint32) { l.maxPacketSize = size }

// Send submits one bulk-OUT transfer.
func (l *Link) Send(p []byte) error {
	l.log.Trace().Int("len", len(p)).Hex("data", p).Msg("bulk out")
	if err := l.cable.Send(p); err != nil {
		return fmt.Errorf("link: send %d bytes: %w", len(p), err)
	}
	return nil
}

// ReadExact fills p completely or fails. Buffered bytes left over from an
// earlier transfer are drained before any new bulk-IN request is issued;
// requests larger than one transfer chunk loop over multiple reads.
func (l *Link) ReadExact(p []byte) error {
	want := len(p)
	for len(p) > 0 {
		if len(l.buf) > 0 {
			n := copy(p, l.buf)
			l.buf = l.buf[n:]
			p = p[n:]
			continue
		}
		n, err := l.cable.Read(l.chunk[:])
		if err != nil {
			return fmt.Errorf("link: read %d bytes: %w", want, err)
		}
		if n == 0 {
			return fmt.Errorf("link: read %d bytes: empty bulk transfer", want)
		}
		l.log.Trace().Int("len", n).Hex("data", l.chunk[:n]).Msg("bulk in")
		l.buf = l.chunk[:n]
	}
	return nil
}

// Buffered reports how many read-ahead bytes are waiting. Diagnostic only.
func (l *Link) Buffered() int { return len(l.buf) }
