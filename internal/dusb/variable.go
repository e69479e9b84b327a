package dusb

import "encoding/binary"

// AttributeKind tags one typed field of a variable.
type AttributeKind uint16

// Attribute ids from device captures.
const (
	AttrSize         AttributeKind = 0x0001
	AttrKind         AttributeKind = 0x0002
	AttrArchived     AttributeKind = 0x0003
	AttrAppVarSource AttributeKind = 0x0005
	AttrVersion      AttributeKind = 0x0008
	AttrKindOverride AttributeKind = 0x0011
	AttrLocked       AttributeKind = 0x0041
)

var attributeKindNames = map[AttributeKind]string{
	AttrSize:         "Size",
	AttrKind:         "Kind",
	AttrArchived:     "Archived",
	AttrAppVarSource: "AppVarSource",
	AttrVersion:      "Version",
	AttrKindOverride: "KindOverride",
	AttrLocked:       "Locked",
}

func (k AttributeKind) String() string {
	if name, ok := attributeKindNames[k]; ok {
		return name
	}
	return UnknownAttributeKindError{ID: uint16(k)}.Error()
}

// VariableAttribute is one decoded attribute. Kind selects which value
// field is meaningful.
type VariableAttribute struct {
	Kind   AttributeKind
	Uint32 uint32 // Size, Kind, KindOverride, AppVarSource
	Byte   byte   // Version
	Flag   bool   // Archived, Locked
}

// decodeAttribute is the single value-dispatch point for attribute
// payloads.
//
// Captures suggest a nonzero Archived byte means archived while a zero
// Locked byte means locked. Both polarities are unverified against
// hardware; confirm before relying on either.
func decodeAttribute(kind AttributeKind, payload []byte) (VariableAttribute, error) {
	a := VariableAttribute{Kind: kind}
	switch kind {
	case AttrSize, AttrKind, AttrKindOverride, AttrAppVarSource:
		if len(payload) < 4 {
			return VariableAttribute{}, ErrTruncated
		}
		a.Uint32 = binary.BigEndian.Uint32(payload[0:4])
	case AttrVersion:
		if len(payload) < 1 {
			return VariableAttribute{}, ErrTruncated
		}
		a.Byte = payload[0]
	case AttrArchived:
		if len(payload) < 1 {
			return VariableAttribute{}, ErrTruncated
		}
		a.Flag = payload[0] != 0
	case AttrLocked:
		if len(payload) < 1 {
			return VariableAttribute{}, ErrTruncated
		}
		a.Flag = payload[0] == 0
	default:
		return VariableAttribute{}, UnknownAttributeKindError{ID: uint16(kind)}
	}
	return a, nil
}

func (a VariableAttribute) appendValue(dst []byte) ([]byte, error) {
	switch a.Kind {
	case AttrSize, AttrKind, AttrKindOverride, AttrAppVarSource:
		return binary.BigEndian.AppendUint32(dst, a.Uint32), nil
	case AttrVersion:
		return append(dst, a.Byte), nil
	case AttrArchived:
		if a.Flag {
			return append(dst, 0x01), nil
		}
		return append(dst, 0x00), nil
	case AttrLocked:
		if a.Flag {
			return append(dst, 0x00), nil
		}
		return append(dst, 0x01), nil
	default:
		return nil, UnknownAttributeKindError{ID: uint16(a.Kind)}
	}
}

// Variable is a named stored object plus its decoded attributes.
type Variable struct {
	Name       string
	Attributes []VariableAttribute
}

// Attribute returns the first attribute of the given kind.
func (v Variable) Attribute(kind AttributeKind) (VariableAttribute, bool) {
	for _, a := range v.Attributes {
		if a.Kind == kind {
			return a, true
		}
	}
	return VariableAttribute{}, false
}

func appendVariable(dst []byte, v Variable) ([]byte, error) {
	dst = binary.BigEndian.AppendUint16(dst, uint16(len(v.Name)))
	dst = append(dst, v.Name...)
	dst = append(dst, 0x00)
	dst = binary.BigEndian.AppendUint16(dst, uint16(len(v.Attributes)))
	for _, a := range v.Attributes {
		value, err := a.appendValue(nil)
		if err != nil {
			return nil, err
		}
		dst = binary.BigEndian.AppendUint16(dst, uint16(a.Kind))
		dst = append(dst, 0x00)
		dst = binary.BigEndian.AppendUint16(dst, uint16(len(value)))
		dst = append(dst, value...)
	}
	return dst, nil
}

func decodeVariable(payload []byte) (Variable, error) {
	if len(payload) < 2 {
		return Variable{}, ErrTruncated
	}
	nameLen := int(binary.BigEndian.Uint16(payload[0:2]))
	if len(payload) < 2+nameLen+3 {
		return Variable{}, ErrTruncated
	}
	name := string(payload[2 : 2+nameLen])
	i := 2 + nameLen + 1 // one zero byte after the name
	count := int(binary.BigEndian.Uint16(payload[i : i+2]))
	i += 2

	attrs := make([]VariableAttribute, 0, count)
	for n := 0; n < count; n++ {
		if len(payload)-i < 5 {
			return Variable{}, ErrTruncated
		}
		id := binary.BigEndian.Uint16(payload[i : i+2])
		validity := payload[i+2]
		length := int(binary.BigEndian.Uint16(payload[i+3 : i+5]))
		i += 5
		if len(payload)-i < length {
			return Variable{}, ErrTruncated
		}
		value := payload[i : i+length]
		i += length
		if validity != 0 {
			continue
		}
		a, err := decodeAttribute(AttributeKind(id), value)
		if err != nil {
			return Variable{}, err
		}
		attrs = append(attrs, a)
	}
	return Variable{Name: name, Attributes: attrs}, nil
}

// VariableHeader announces one variable in a directory listing or ahead of
// its contents.
type VariableHeader struct {
	Variable Variable
}

func (VariableHeader) Kind() MessageKind { return MsgVariableHeader }

func (h VariableHeader) appendPayload(dst []byte) ([]byte, error) {
	return appendVariable(dst, h.Variable)
}

// RequestToSend announces a variable the host is about to push. Same
// payload shape as VariableHeader.
type RequestToSend struct {
	Variable Variable
}

func (RequestToSend) Kind() MessageKind { return MsgRequestToSend }

func (r RequestToSend) appendPayload(dst []byte) ([]byte, error) {
	return appendVariable(dst, r.Variable)
}

// directoryTrailer closes every directory request. Meaning unknown;
// carried verbatim from device captures.
var directoryTrailer = [7]byte{0x00, 0x01, 0x00, 0x01, 0x00, 0x01, 0x01}

// DirectoryRequest asks for a listing of stored variables carrying the
// named attributes.
type DirectoryRequest struct {
	Attributes []AttributeKind
}

func (DirectoryRequest) Kind() MessageKind { return MsgDirectoryRequest }

func (r DirectoryRequest) appendPayload(dst []byte) ([]byte, error) {
	dst = binary.BigEndian.AppendUint32(dst, uint32(len(r.Attributes)))
	for _, kind := range r.Attributes {
		dst = binary.BigEndian.AppendUint16(dst, uint16(kind))
	}
	return append(dst, directoryTrailer[:]...), nil
}

func decodeDirectoryRequest(payload []byte) (Message, error) {
	if len(payload) < 4 {
		return nil, ErrTruncated
	}
	count := int(binary.BigEndian.Uint32(payload[0:4]))
	if len(payload)-4 < count*2 {
		return nil, ErrTruncated
	}
	attrs := make([]AttributeKind, 0, count)
	for i := 0; i < count; i++ {
		id := binary.BigEndian.Uint16(payload[4+i*2 : 6+i*2])
		if _, ok := attributeKindNames[AttributeKind(id)]; !ok {
			return nil, UnknownAttributeKindError{ID: id}
		}
		attrs = append(attrs, AttributeKind(id))
	}
	return DirectoryRequest{Attributes: attrs}, nil
}

// requestVariableFiller sits between the name and the attribute lists.
// Meaning unknown; carried verbatim from device captures.
var requestVariableFiller = [6]byte{0x00, 0x01, 0xff, 0xff, 0xff, 0xff}

// RequestVariable asks the device to send one named variable. Requested
// lists the attribute kinds the device should report in its header;
// Specified carries attribute values asserted by the host.
type RequestVariable struct {
	Name      string
	Requested []AttributeKind
	Specified []VariableAttribute
}

func (RequestVariable) Kind() MessageKind { return MsgRequestVariable }

func (r RequestVariable) appendPayload(dst []byte) ([]byte, error) {
	dst = binary.BigEndian.AppendUint16(dst, uint16(len(r.Name)))
	dst = append(dst, r.Name...)
	dst = append(dst, requestVariableFiller[:]...)
	dst = binary.BigEndian.AppendUint16(dst, uint16(len(r.Requested)))
	for _, kind := range r.Requested {
		dst = binary.BigEndian.AppendUint16(dst, uint16(kind))
	}
	dst = binary.BigEndian.AppendUint16(dst, uint16(len(r.Specified)))
	for _, a := range r.Specified {
		value, err := a.appendValue(nil)
		if err != nil {
			return nil, err
		}
		dst = binary.BigEndian.AppendUint16(dst, uint16(a.Kind))
		dst = binary.BigEndian.AppendUint16(dst, uint16(len(value)))
		dst = append(dst, value...)
	}
	return append(dst, 0x00, 0x00), nil
}

func decodeRequestVariable(payload []byte) (Message, error) {
	if len(payload) < 2 {
		return nil, ErrTruncated
	}
	nameLen := int(binary.BigEndian.Uint16(payload[0:2]))
	if len(payload) < 2+nameLen+len(requestVariableFiller)+2 {
		return nil, ErrTruncated
	}
	r := RequestVariable{Name: string(payload[2 : 2+nameLen])}
	i := 2 + nameLen + len(requestVariableFiller)

	count := int(binary.BigEndian.Uint16(payload[i : i+2]))
	i += 2
	if len(payload)-i < count*2 {
		return nil, ErrTruncated
	}
	for n := 0; n < count; n++ {
		id := binary.BigEndian.Uint16(payload[i : i+2])
		i += 2
		if _, ok := attributeKindNames[AttributeKind(id)]; !ok {
			return nil, UnknownAttributeKindError{ID: id}
		}
		r.Requested = append(r.Requested, AttributeKind(id))
	}

	if len(payload)-i < 2 {
		return nil, ErrTruncated
	}
	count = int(binary.BigEndian.Uint16(payload[i : i+2]))
	i += 2
	for n := 0; n < count; n++ {
		if len(payload)-i < 4 {
			return nil, ErrTruncated
		}
		id := binary.BigEndian.Uint16(payload[i : i+2])
		length := int(binary.BigEndian.Uint16(payload[i+2 : i+4]))
		i += 4
		if len(payload)-i < length {
			return nil, ErrTruncated
		}
		a, err := decodeAttribute(AttributeKind(id), payload[i:i+length])
		if err != nil {
			return nil, err
		}
		i += length
		r.Specified = append(r.Specified, a)
	}

	if len(payload)-i < 2 {
		return nil, ErrTruncated
	}
	return r, nil
}

// VariableContents carries a variable's raw payload bytes. Their meaning
// comes from the Kind attribute of the header that preceded them; see
// DecodeContents.
type VariableContents struct {
	Data []byte
}

func (VariableContents) Kind() MessageKind { return MsgVariableContents }

func (c VariableContents) appendPayload(dst []byte) ([]byte, error) {
	return append(dst, c.Data...), nil
}
