package raw

import "fmt"

// UnknownKindError reports a kind byte outside the raw packet set.
type UnknownKindError struct {
	Kind uint8
}

func (e UnknownKindError) Error() string {
	return fmt.Sprintf("raw: unknown packet kind 0x%02x", e.Kind)
}

// WrongKindError reports a received packet of an unwanted kind.
type WrongKindError struct {
	Expected Kind
	Received Kind
}

func (e WrongKindError) Error() string {
	return fmt.Sprintf("raw: wrong packet kind: expected %s, received %s", e.Expected, e.Received)
}

// WrongSizeError reports a fixed-size payload of the wrong length.
type WrongSizeError struct {
	Kind     Kind
	Expected int
	Received int
}

func (e WrongSizeError) Error() string {
	return fmt.Sprintf("raw: %s payload must be %d bytes, received %d", e.Kind, e.Expected, e.Received)
}

// BadAcknowledgeError reports a DataAcknowledge without the sentinel.
type BadAcknowledgeError struct {
	Payload []byte
}

func (e BadAcknowledgeError) Error() string {
	return fmt.Sprintf("raw: acknowledge payload % x, want e0 00", e.Payload)
}
