package dusb

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// VariableKind tags the payload layout of a variable's contents.
type VariableKind uint32

// Variable kind ids from device captures.
const (
	VarString VariableKind = 0xf0070004
	VarImage  VariableKind = 0xf00e001a
	VarApp    VariableKind = 0xf0070024
)

var variableKindNames = map[VariableKind]string{
	VarString: "String",
	VarImage:  "Image",
	VarApp:    "App",
}

func (k VariableKind) String() string {
	if name, ok := variableKindNames[k]; ok {
		return name
	}
	return UnknownVariableKindError{ID: uint32(k)}.Error()
}

// Contents is a variable's decoded payload. Kind comes from the Kind
// attribute of the preceding variable header, not from the bytes
// themselves.
type Contents struct {
	Kind VariableKind
	Text string // VarString
	Data []byte // VarImage, VarApp
}

// DecodeContents interprets raw variable contents under the given kind.
// Strings carry a little-endian length prefix; images and apps stay
// opaque.
func DecodeContents(kind VariableKind, data []byte) (Contents, error) {
	c := Contents{Kind: kind}
	switch kind {
	case VarString:
		if len(data) < 2 {
			return Contents{}, ErrTruncated
		}
		n := int(binary.LittleEndian.Uint16(data[0:2]))
		if len(data)-2 < n {
			return Contents{}, ErrTruncated
		}
		c.Text = strings.ToValidUTF8(string(data[2:2+n]), "�")
	case VarImage, VarApp:
		c.Data = append([]byte(nil), data...)
	default:
		return Contents{}, UnknownVariableKindError{ID: uint32(kind)}
	}
	return c, nil
}

// Encode serializes the contents for transfer to the device. Only the
// string layout has been verified against captures; encoding an image or
// app fails rather than guess at bytes the device might reject.
func (c Contents) Encode() ([]byte, error) {
	switch c.Kind {
	case VarString:
		out := binary.LittleEndian.AppendUint16(nil, uint16(len(c.Text)))
		return append(out, c.Text...), nil
	case VarImage, VarApp:
		return nil, fmt.Errorf("dusb: encoding %s contents: %w", c.Kind, ErrUnsupportedEncode)
	default:
		return nil, UnknownVariableKindError{ID: uint32(c.Kind)}
	}
}
