package dusb

import "fmt"

// DeviceError is a failure condition reported by the calculator in an
// Error message. It implements error so callers can branch on a specific
// code with errors.Is.
type DeviceError uint16

// Device error codes from device captures.
const (
	DeviceInvalidArgument    DeviceError = 0x0004
	DeviceCannotDelete       DeviceError = 0x0006
	DeviceTransmissionError  DeviceError = 0x0008
	DeviceUnsupportedCommand DeviceError = 0x000a
	DeviceOutOfMemory        DeviceError = 0x000c
	DeviceInvalidName        DeviceError = 0x000e
	DeviceBusy               DeviceError = 0x0010
	DeviceVariableLocked     DeviceError = 0x0011
	DeviceModeTokenTooSmall  DeviceError = 0x0012
	DeviceBatteryLow         DeviceError = 0x001c
)

var deviceErrorNames = map[DeviceError]string{
	DeviceInvalidArgument:    "invalid argument",
	DeviceCannotDelete:       "cannot delete",
	DeviceTransmissionError:  "transmission error",
	DeviceUnsupportedCommand: "unsupported command",
	DeviceOutOfMemory:        "out of memory",
	DeviceInvalidName:        "invalid name",
	DeviceBusy:               "busy",
	DeviceVariableLocked:     "variable locked",
	DeviceModeTokenTooSmall:  "mode token too small",
	DeviceBatteryLow:         "battery low",
}

func (e DeviceError) Error() string {
	if name, ok := deviceErrorNames[e]; ok {
		return fmt.Sprintf("dusb: device reported %s (0x%04x)", name, uint16(e))
	}
	return fmt.Sprintf("dusb: device reported error 0x%04x", uint16(e))
}

func deviceErrorFromCode(code uint16) (DeviceError, error) {
	e := DeviceError(code)
	if _, ok := deviceErrorNames[e]; !ok {
		return 0, UnknownDeviceError{Code: code}
	}
	return e, nil
}
