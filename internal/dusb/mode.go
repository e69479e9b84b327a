package dusb

// Mode is the device's link-protocol operating state.
type Mode uint8

const (
	ModeStartup Mode = 1
	ModeBasic   Mode = 2
	ModeNormal  Mode = 3
)

var modeNames = map[Mode]string{
	ModeStartup: "startup",
	ModeBasic:   "basic",
	ModeNormal:  "normal",
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return UnknownModeError{ID: byte(m)}.Error()
}

// SetMode asks the device to enter a link mode. The payload is fixed at
// ten bytes with only the mode id varying; the trailing 0x7dd0 token is
// carried verbatim from device captures.
type SetMode struct {
	Mode Mode
}

func (SetMode) Kind() MessageKind { return MsgSetMode }

func (m SetMode) appendPayload(dst []byte) ([]byte, error) {
	if _, ok := modeNames[m.Mode]; !ok {
		return nil, UnknownModeError{ID: byte(m.Mode)}
	}
	return append(dst, 0x00, byte(m.Mode), 0x00, 0x01, 0x00, 0x00, 0x00, 0x00, 0x7d, 0xd0), nil
}

func decodeSetMode(payload []byte) (Message, error) {
	if len(payload) != 10 {
		return nil, PayloadSizeError{What: "set mode", Want: 10, Got: len(payload)}
	}
	mode := Mode(payload[1])
	if _, ok := modeNames[mode]; !ok {
		return nil, UnknownModeError{ID: payload[1]}
	}
	return SetMode{Mode: mode}, nil
}
