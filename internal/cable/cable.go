// Package cable owns the transport boundary of the link: one bulk-OUT and
// one bulk-IN pipe to a calculator.
//
// Ownership boundary:
// - device discovery and interface claiming
// - single bulk transfers (whole-buffer writes, possibly-short reads)
//
// Packet framing, buffering and exact-length reads live above this package.
package cable

import "errors"

var (
	ErrNoDevice = errors.New("cable: no calculator found")
	ErrClosed   = errors.New("cable: cable is closed")
)

// Cable is one claimed bulk pipe pair to a calculator.
//
// Send submits one bulk-OUT transfer and fails unless the whole buffer was
// accepted. Read submits one bulk-IN transfer and returns however many bytes
// the device delivered, which may be fewer than len(p); a device holding a
// full raw packet delivers it in one transfer.
type Cable interface {
	Send(p []byte) error
	Read(p []byte) (int, error)
	Close() error
}
