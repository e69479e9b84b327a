package dusb

import (
	"errors"
	"fmt"
)

var (
	ErrTruncated         = errors.New("dusb: truncated payload")
	ErrUnsupportedEncode = errors.New("dusb: contents encoding not implemented for this kind")
)

// UnknownMessageKindError reports a virtual packet kind outside the
// message catalogue.
type UnknownMessageKindError struct {
	Kind uint16
}

func (e UnknownMessageKindError) Error() string {
	return fmt.Sprintf("dusb: unknown message kind 0x%04x", e.Kind)
}

// UnknownParameterKindError reports a parameter id outside the catalogue.
type UnknownParameterKindError struct {
	ID uint16
}

func (e UnknownParameterKindError) Error() string {
	return fmt.Sprintf("dusb: unknown parameter kind 0x%04x", e.ID)
}

// UnknownAttributeKindError reports an attribute id outside the catalogue.
type UnknownAttributeKindError struct {
	ID uint16
}

func (e UnknownAttributeKindError) Error() string {
	return fmt.Sprintf("dusb: unknown attribute kind 0x%04x", e.ID)
}

// UnknownVariableKindError reports a contents kind id outside the catalogue.
type UnknownVariableKindError struct {
	ID uint32
}

func (e UnknownVariableKindError) Error() string {
	return fmt.Sprintf("dusb: unknown variable kind 0x%08x", e.ID)
}

// UnknownDeviceError reports an error code the device-error table does not
// name.
type UnknownDeviceError struct {
	Code uint16
}

func (e UnknownDeviceError) Error() string {
	return fmt.Sprintf("dusb: unknown device error code 0x%04x", e.Code)
}

// UnknownModeError reports a mode id outside {Startup, Basic, Normal}.
type UnknownModeError struct {
	ID byte
}

func (e UnknownModeError) Error() string {
	return fmt.Sprintf("dusb: unknown mode 0x%02x", e.ID)
}

// UnknownScreenFormatError reports a screen contents payload whose size
// matches no known pixel packing.
type UnknownScreenFormatError struct {
	Size int
}

func (e UnknownScreenFormatError) Error() string {
	return fmt.Sprintf("dusb: no screen format is %d bytes", e.Size)
}

// PayloadSizeError reports a fixed-size payload of the wrong length.
type PayloadSizeError struct {
	What string
	Want int
	Got  int
}

func (e PayloadSizeError) Error() string {
	return fmt.Sprintf("dusb: %s payload is %d bytes, want %d", e.What, e.Got, e.Want)
}
