package dusb

import (
	"bytes"
	"errors"
	"testing"

	"github.com/calclink/dusblink/internal/protocol/virtual"
)

func TestDirectoryRequestGolden(t *testing.T) {
	pkt, err := EncodeMessage(DirectoryRequest{Attributes: []AttributeKind{AttrSize, AttrKind}})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if pkt.Kind != uint16(MsgDirectoryRequest) {
		t.Fatalf("packet kind 0x%04x", pkt.Kind)
	}
	want := []byte{
		0x00, 0x00, 0x00, 0x02,
		0x00, 0x01, 0x00, 0x02,
		0x00, 0x01, 0x00, 0x01, 0x00, 0x01, 0x01,
	}
	if !bytes.Equal(pkt.Payload, want) {
		t.Fatalf("payload % x, want % x", pkt.Payload, want)
	}
}

func TestAttributeSizeRoundTrip(t *testing.T) {
	value, err := VariableAttribute{Kind: AttrSize, Uint32: 12345}.appendValue(nil)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	a, err := decodeAttribute(AttrSize, value)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if a.Uint32 != 12345 {
		t.Fatalf("round-trip lost value: %d", a.Uint32)
	}
}

func TestVariableHeaderRoundTrip(t *testing.T) {
	v := Variable{
		Name: "PRGM1",
		Attributes: []VariableAttribute{
			{Kind: AttrSize, Uint32: 42},
			{Kind: AttrArchived, Flag: true},
			{Kind: AttrVersion, Byte: 3},
			{Kind: AttrLocked, Flag: true},
		},
	}
	pkt, err := EncodeMessage(VariableHeader{Variable: v})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	msg, err := DecodeMessage(pkt)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	h, ok := msg.(VariableHeader)
	if !ok {
		t.Fatalf("decoded %#v", msg)
	}
	if h.Variable.Name != v.Name || len(h.Variable.Attributes) != len(v.Attributes) {
		t.Fatalf("round-trip mismatch: %+v", h.Variable)
	}
	for i, a := range h.Variable.Attributes {
		if a != v.Attributes[i] {
			t.Fatalf("attribute %d mismatch: %+v vs %+v", i, a, v.Attributes[i])
		}
	}
}

// Archived and Locked use opposite byte polarities on the wire; the
// encode side must mirror what decode expects.
func TestAttributeFlagPolarity(t *testing.T) {
	archived, err := VariableAttribute{Kind: AttrArchived, Flag: true}.appendValue(nil)
	if err != nil {
		t.Fatalf("encode archived: %v", err)
	}
	if !bytes.Equal(archived, []byte{0x01}) {
		t.Fatalf("archived true encodes as % x", archived)
	}
	locked, err := VariableAttribute{Kind: AttrLocked, Flag: true}.appendValue(nil)
	if err != nil {
		t.Fatalf("encode locked: %v", err)
	}
	if !bytes.Equal(locked, []byte{0x00}) {
		t.Fatalf("locked true encodes as % x", locked)
	}

	a, err := decodeAttribute(AttrArchived, []byte{0x5a})
	if err != nil || !a.Flag {
		t.Fatalf("nonzero archived byte must decode true: %+v %v", a, err)
	}
	a, err = decodeAttribute(AttrLocked, []byte{0x5a})
	if err != nil || a.Flag {
		t.Fatalf("nonzero locked byte must decode false: %+v %v", a, err)
	}
}

func TestVariableHeaderSkipsInvalidAttributes(t *testing.T) {
	payload := []byte{
		0x00, 0x01, 0x41, 0x00, // name "A"
		0x00, 0x03, // three attributes
		0x00, 0x01, 0x00, 0x00, 0x04, 0x00, 0x00, 0x00, 0x2a, // Size 42, valid
		0x00, 0x08, 0x01, 0x00, 0x01, 0xff, // Version, invalid
		0x00, 0x03, 0x00, 0x00, 0x01, 0x01, // Archived, valid
	}
	msg, err := DecodeMessage(virtual.Packet{Kind: uint16(MsgVariableHeader), Payload: payload})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	v := msg.(VariableHeader).Variable
	if len(v.Attributes) != 2 {
		t.Fatalf("expected two attributes, got %+v", v.Attributes)
	}
	if _, ok := v.Attribute(AttrVersion); ok {
		t.Fatalf("invalid attribute survived decode")
	}
	if a, ok := v.Attribute(AttrSize); !ok || a.Uint32 != 42 {
		t.Fatalf("size attribute lost: %+v", v.Attributes)
	}
}

func TestRequestVariableGolden(t *testing.T) {
	r := RequestVariable{
		Name:      "A",
		Requested: []AttributeKind{AttrArchived, AttrVersion, AttrSize, AttrKind},
		Specified: []VariableAttribute{{Kind: AttrKindOverride, Uint32: 0xf00e001a}},
	}
	pkt, err := EncodeMessage(r)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	want := []byte{
		0x00, 0x01, 0x41,
		0x00, 0x01, 0xff, 0xff, 0xff, 0xff,
		0x00, 0x04, 0x00, 0x03, 0x00, 0x08, 0x00, 0x01, 0x00, 0x02,
		0x00, 0x01, 0x00, 0x11, 0x00, 0x04, 0xf0, 0x0e, 0x00, 0x1a,
		0x00, 0x00,
	}
	if !bytes.Equal(pkt.Payload, want) {
		t.Fatalf("payload % x, want % x", pkt.Payload, want)
	}

	msg, err := DecodeMessage(pkt)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	back, ok := msg.(RequestVariable)
	if !ok {
		t.Fatalf("decoded %#v", msg)
	}
	if back.Name != "A" || len(back.Requested) != 4 || len(back.Specified) != 1 {
		t.Fatalf("round-trip mismatch: %+v", back)
	}
	if back.Specified[0].Uint32 != 0xf00e001a {
		t.Fatalf("specified attribute lost: %+v", back.Specified[0])
	}
}

func TestVariableHeaderTruncated(t *testing.T) {
	cases := [][]byte{
		{0x00},
		{0x00, 0x05, 0x41},
		{0x00, 0x01, 0x41, 0x00, 0x00, 0x01, 0x00, 0x01},
	}
	for i, payload := range cases {
		_, err := DecodeMessage(virtual.Packet{Kind: uint16(MsgVariableHeader), Payload: payload})
		if !errors.Is(err, ErrTruncated) {
			t.Fatalf("case %d: expected ErrTruncated, got %v", i, err)
		}
	}
}
