package dusb

import (
	"encoding/binary"
	"strings"
)

// ParameterKind tags one queryable device property.
type ParameterKind uint16

// Parameter ids from device captures.
const (
	ParamName           ParameterKind = 0x0002
	ParamTotalAppPages  ParameterKind = 0x0012
	ParamFreeAppPages   ParameterKind = 0x0013
	ParamScreenWidth    ParameterKind = 0x001e
	ParamScreenHeight   ParameterKind = 0x001f
	ParamScreenContents ParameterKind = 0x0022
	ParamClock          ParameterKind = 0x0025
)

var parameterKindNames = map[ParameterKind]string{
	ParamName:           "Name",
	ParamTotalAppPages:  "TotalAppPages",
	ParamFreeAppPages:   "FreeAppPages",
	ParamScreenWidth:    "ScreenWidth",
	ParamScreenHeight:   "ScreenHeight",
	ParamScreenContents: "ScreenContents",
	ParamClock:          "Clock",
}

func (k ParameterKind) String() string {
	if name, ok := parameterKindNames[k]; ok {
		return name
	}
	return UnknownParameterKindError{ID: uint16(k)}.Error()
}

// Parameter is one decoded device parameter. Kind selects which value
// field is meaningful.
type Parameter struct {
	Kind   ParameterKind
	Text   string      // Name
	Uint16 uint16      // ScreenWidth, ScreenHeight
	Uint32 uint32      // Clock
	Uint64 uint64      // TotalAppPages, FreeAppPages
	Screen *Screenshot // ScreenContents
}

// decodeParameter is the single value-dispatch point for parameter
// payloads.
//
// ScreenWidth and ScreenHeight read as big-endian here even though the
// device is otherwise little-endian about pixel words; captures show
// 320 on the wire as 01 40. Preserved as observed.
func decodeParameter(kind ParameterKind, payload []byte) (Parameter, error) {
	p := Parameter{Kind: kind}
	switch kind {
	case ParamName:
		p.Text = strings.ToValidUTF8(string(payload), "�")
	case ParamScreenWidth, ParamScreenHeight:
		if len(payload) < 2 {
			return Parameter{}, ErrTruncated
		}
		p.Uint16 = binary.BigEndian.Uint16(payload[0:2])
	case ParamTotalAppPages, ParamFreeAppPages:
		if len(payload) < 8 {
			return Parameter{}, ErrTruncated
		}
		p.Uint64 = binary.BigEndian.Uint64(payload[0:8])
	case ParamClock:
		if len(payload) < 4 {
			return Parameter{}, ErrTruncated
		}
		p.Uint32 = binary.BigEndian.Uint32(payload[0:4])
	case ParamScreenContents:
		screen, err := decodeScreenshot(payload)
		if err != nil {
			return Parameter{}, err
		}
		p.Screen = screen
	default:
		return Parameter{}, UnknownParameterKindError{ID: uint16(kind)}
	}
	return p, nil
}

func (p Parameter) appendValue(dst []byte) ([]byte, error) {
	switch p.Kind {
	case ParamName:
		return append(dst, p.Text...), nil
	case ParamScreenWidth, ParamScreenHeight:
		return binary.BigEndian.AppendUint16(dst, p.Uint16), nil
	case ParamTotalAppPages, ParamFreeAppPages:
		return binary.BigEndian.AppendUint64(dst, p.Uint64), nil
	case ParamClock:
		return binary.BigEndian.AppendUint32(dst, p.Uint32), nil
	case ParamScreenContents:
		if p.Screen == nil {
			return nil, ErrTruncated
		}
		return p.Screen.appendBytes(dst), nil
	default:
		return nil, UnknownParameterKindError{ID: uint16(p.Kind)}
	}
}

// ParameterRequest asks the device for the listed parameters.
type ParameterRequest struct {
	Kinds []ParameterKind
}

func (ParameterRequest) Kind() MessageKind { return MsgParameterRequest }

func (r ParameterRequest) appendPayload(dst []byte) ([]byte, error) {
	dst = binary.BigEndian.AppendUint16(dst, uint16(len(r.Kinds)))
	for _, kind := range r.Kinds {
		dst = binary.BigEndian.AppendUint16(dst, uint16(kind))
	}
	return dst, nil
}

func decodeParameterRequest(payload []byte) (Message, error) {
	if len(payload) < 2 {
		return nil, ErrTruncated
	}
	count := int(binary.BigEndian.Uint16(payload[0:2]))
	if len(payload)-2 < count*2 {
		return nil, ErrTruncated
	}
	kinds := make([]ParameterKind, 0, count)
	for i := 0; i < count; i++ {
		id := binary.BigEndian.Uint16(payload[2+i*2 : 4+i*2])
		if _, ok := parameterKindNames[ParameterKind(id)]; !ok {
			return nil, UnknownParameterKindError{ID: id}
		}
		kinds = append(kinds, ParameterKind(id))
	}
	return ParameterRequest{Kinds: kinds}, nil
}

// ParameterResponse carries the device's answer to a ParameterRequest.
// Entries the device marks invalid are dropped during decode, so the
// result may hold fewer parameters than were asked for.
type ParameterResponse struct {
	Parameters []Parameter
}

func (ParameterResponse) Kind() MessageKind { return MsgParameterResponse }

func (r ParameterResponse) appendPayload(dst []byte) ([]byte, error) {
	dst = binary.BigEndian.AppendUint16(dst, uint16(len(r.Parameters)))
	for _, p := range r.Parameters {
		value, err := p.appendValue(nil)
		if err != nil {
			return nil, err
		}
		dst = binary.BigEndian.AppendUint16(dst, uint16(p.Kind))
		dst = append(dst, 0x00)
		// An RGB screen dump overflows the u16 length field; the device
		// writes zero and the reader knows what that means.
		if len(value) == screenRGBSize {
			dst = binary.BigEndian.AppendUint16(dst, 0)
		} else {
			dst = binary.BigEndian.AppendUint16(dst, uint16(len(value)))
		}
		dst = append(dst, value...)
	}
	return dst, nil
}

func decodeParameterResponse(payload []byte) (Message, error) {
	if len(payload) < 2 {
		return nil, ErrTruncated
	}
	count := int(binary.BigEndian.Uint16(payload[0:2]))
	params := make([]Parameter, 0, count)
	i := 2
	for n := 0; n < count; n++ {
		if len(payload)-i < 5 {
			return nil, ErrTruncated
		}
		id := binary.BigEndian.Uint16(payload[i : i+2])
		validity := payload[i+2]
		length := int(binary.BigEndian.Uint16(payload[i+3 : i+5]))
		if length == 0 {
			length = screenRGBSize
		}
		i += 5
		if len(payload)-i < length {
			return nil, ErrTruncated
		}
		value := payload[i : i+length]
		i += length
		if validity != 0 {
			continue
		}
		p, err := decodeParameter(ParameterKind(id), value)
		if err != nil {
			return nil, err
		}
		params = append(params, p)
	}
	return ParameterResponse{Parameters: params}, nil
}
