// Package cabletest provides a scripted in-memory cable for protocol tests.
package cabletest

import (
	"errors"
	"fmt"
)

// ErrScriptExhausted reports a read past the end of the scripted transfers.
var ErrScriptExhausted = errors.New("cabletest: inbound script exhausted")

// Cable replays scripted bulk-IN transfers and records every bulk-OUT
// transfer. Each scripted chunk behaves like one device transfer: a read
// never crosses a chunk boundary, mirroring bulk short-read semantics.
type Cable struct {
	inbound [][]byte
	writes  [][]byte
	closed  bool
}

// New builds a cable whose reads serve the given transfers in order.
func New(transfers ...[]byte) *Cable {
	c := &Cable{}
	c.Queue(transfers...)
	return c
}

// Queue appends further scripted transfers.
func (c *Cable) Queue(transfers ...[]byte) {
	for _, t := range transfers {
		cp := make([]byte, len(t))
		copy(cp, t)
		c.inbound = append(c.inbound, cp)
	}
}

func (c *Cable) Send(p []byte) error {
	if c.closed {
		return fmt.Errorf("cabletest: send on closed cable")
	}
	cp := make([]byte, len(p))
	copy(cp, p)
	c.writes = append(c.writes, cp)
	return nil
}

func (c *Cable) Read(p []byte) (int, error) {
	if c.closed {
		return 0, fmt.Errorf("cabletest: read on closed cable")
	}
	if len(c.inbound) == 0 {
		return 0, ErrScriptExhausted
	}
	cur := c.inbound[0]
	n := copy(p, cur)
	if n == len(cur) {
		c.inbound = c.inbound[1:]
	} else {
		c.inbound[0] = cur[n:]
	}
	return n, nil
}

func (c *Cable) Close() error {
	c.closed = true
	return nil
}

// Writes returns each recorded bulk-OUT transfer in order.
func (c *Cable) Writes() [][]byte { return c.writes }

// Written returns all recorded bulk-OUT bytes concatenated.
func (c *Cable) Written() []byte {
	var all []byte
	for _, w := range c.writes {
		all = append(all, w...)
	}
	return all
}

// Remaining reports how many scripted transfers are still unread.
func (c *Cable) Remaining() int { return len(c.inbound) }
