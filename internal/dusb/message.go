package dusb

import (
	"encoding/binary"

	"github.com/calclink/dusblink/internal/protocol/virtual"
)

// MessageKind tags one entry of the message catalogue.
type MessageKind uint16

// Message kind ids as they appear in the virtual packet header.
const (
	MsgSetMode            MessageKind = 0x0001
	MsgParameterRequest   MessageKind = 0x0007
	MsgParameterResponse  MessageKind = 0x0008
	MsgDirectoryRequest   MessageKind = 0x0009
	MsgVariableHeader     MessageKind = 0x000a
	MsgRequestToSend      MessageKind = 0x000b
	MsgRequestVariable    MessageKind = 0x000c
	MsgVariableContents   MessageKind = 0x000d
	MsgSetModeAcknowledge MessageKind = 0x0012
	MsgDataAcknowledge    MessageKind = 0xaa00
	MsgWait               MessageKind = 0xbb00
	MsgEndOfTransmission  MessageKind = 0xdd00
	MsgError              MessageKind = 0xee00
)

var messageKindNames = map[MessageKind]string{
	MsgSetMode:            "SetMode",
	MsgParameterRequest:   "ParameterRequest",
	MsgParameterResponse:  "ParameterResponse",
	MsgDirectoryRequest:   "DirectoryRequest",
	MsgVariableHeader:     "VariableHeader",
	MsgRequestToSend:      "RequestToSend",
	MsgRequestVariable:    "RequestVariable",
	MsgVariableContents:   "VariableContents",
	MsgSetModeAcknowledge: "SetModeAcknowledge",
	MsgDataAcknowledge:    "DataAcknowledge",
	MsgWait:               "Wait",
	MsgEndOfTransmission:  "EndOfTransmission",
	MsgError:              "Error",
}

func (k MessageKind) String() string {
	if name, ok := messageKindNames[k]; ok {
		return name
	}
	return UnknownMessageKindError{Kind: uint16(k)}.Error()
}

// Message is one application-level message. The catalogue is closed:
// every implementation lives in this package, and DecodeMessage is the
// single dispatch point from wire bytes back to a variant.
type Message interface {
	Kind() MessageKind
	appendPayload(dst []byte) ([]byte, error)
}

// EncodeMessage serializes m into a virtual packet ready to send.
func EncodeMessage(m Message) (virtual.Packet, error) {
	payload, err := m.appendPayload(nil)
	if err != nil {
		return virtual.Packet{}, err
	}
	return virtual.Packet{Kind: uint16(m.Kind()), Payload: payload}, nil
}

// DecodeMessage parses a received virtual packet into its catalogue
// variant.
func DecodeMessage(p virtual.Packet) (Message, error) {
	switch MessageKind(p.Kind) {
	case MsgSetMode:
		return decodeSetMode(p.Payload)
	case MsgParameterRequest:
		return decodeParameterRequest(p.Payload)
	case MsgParameterResponse:
		return decodeParameterResponse(p.Payload)
	case MsgDirectoryRequest:
		return decodeDirectoryRequest(p.Payload)
	case MsgVariableHeader:
		v, err := decodeVariable(p.Payload)
		if err != nil {
			return nil, err
		}
		return VariableHeader{Variable: v}, nil
	case MsgRequestToSend:
		v, err := decodeVariable(p.Payload)
		if err != nil {
			return nil, err
		}
		return RequestToSend{Variable: v}, nil
	case MsgRequestVariable:
		return decodeRequestVariable(p.Payload)
	case MsgVariableContents:
		data := make([]byte, len(p.Payload))
		copy(data, p.Payload)
		return VariableContents{Data: data}, nil
	case MsgSetModeAcknowledge:
		return SetModeAcknowledge{}, nil
	case MsgDataAcknowledge:
		return DataAcknowledge{}, nil
	case MsgWait:
		return decodeWait(p.Payload)
	case MsgEndOfTransmission:
		return EndOfTransmission{}, nil
	case MsgError:
		return decodeError(p.Payload)
	default:
		return nil, UnknownMessageKindError{Kind: p.Kind}
	}
}

// SetModeAcknowledge confirms a SetMode request. Devices have been seen
// padding its payload; the bytes carry nothing.
type SetModeAcknowledge struct{}

func (SetModeAcknowledge) Kind() MessageKind { return MsgSetModeAcknowledge }

func (SetModeAcknowledge) appendPayload(dst []byte) ([]byte, error) { return dst, nil }

// DataAcknowledge confirms receipt of variable contents.
type DataAcknowledge struct{}

func (DataAcknowledge) Kind() MessageKind { return MsgDataAcknowledge }

func (DataAcknowledge) appendPayload(dst []byte) ([]byte, error) { return dst, nil }

// Wait asks the host to pause before reading the device's next message.
type Wait struct {
	Milliseconds uint32
}

func (Wait) Kind() MessageKind { return MsgWait }

func (w Wait) appendPayload(dst []byte) ([]byte, error) {
	return binary.BigEndian.AppendUint32(dst, w.Milliseconds), nil
}

func decodeWait(payload []byte) (Message, error) {
	if len(payload) != 4 {
		return nil, PayloadSizeError{What: "wait", Want: 4, Got: len(payload)}
	}
	return Wait{Milliseconds: binary.BigEndian.Uint32(payload)}, nil
}

// EndOfTransmission closes a multi-message exchange.
type EndOfTransmission struct{}

func (EndOfTransmission) Kind() MessageKind { return MsgEndOfTransmission }

func (EndOfTransmission) appendPayload(dst []byte) ([]byte, error) { return dst, nil }

// ErrorMessage carries a failure condition reported by the device.
type ErrorMessage struct {
	Code DeviceError
}

func (ErrorMessage) Kind() MessageKind { return MsgError }

func (e ErrorMessage) appendPayload(dst []byte) ([]byte, error) {
	return binary.BigEndian.AppendUint16(dst, uint16(e.Code)), nil
}

func decodeError(payload []byte) (Message, error) {
	if len(payload) != 2 {
		return nil, PayloadSizeError{What: "error", Want: 2, Got: len(payload)}
	}
	code, err := deviceErrorFromCode(binary.BigEndian.Uint16(payload))
	if err != nil {
		return nil, err
	}
	return ErrorMessage{Code: code}, nil
}
