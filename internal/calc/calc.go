// Package calc drives a connected calculator through its DUSB exchanges:
// mode setup, parameter queries, directory listings and variable transfer
// in both directions.
//
// A Calculator owns its link state for the connection's lifetime.
// Operations are synchronous request/response rounds and must not be
// interleaved; none of them retry. A protocol mismatch at any step aborts
// that operation with a typed error.
package calc

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/calclink/dusblink/internal/cable"
	"github.com/calclink/dusblink/internal/dusb"
	"github.com/calclink/dusblink/internal/link"
	"github.com/calclink/dusblink/internal/protocol/raw"
	"github.com/calclink/dusblink/internal/protocol/virtual"
)

// waitDelay is how long to sit out a device Wait message before reading
// again, regardless of the delay the message suggests.
const waitDelay = 100 * time.Millisecond

// requestKindOverride is asserted on every variable fetch; value carried
// verbatim from device captures.
const requestKindOverride uint32 = 0xf00e001a

// fetchAttributes is the header attribute set asked for on every fetch.
var fetchAttributes = []dusb.AttributeKind{
	dusb.AttrArchived,
	dusb.AttrVersion,
	dusb.AttrSize,
	dusb.AttrKind,
}

var (
	// ErrMissingKindAttribute means a variable header arrived without
	// the Kind attribute that selects its contents decoding.
	ErrMissingKindAttribute = errors.New("calc: variable header carries no kind attribute")

	// ErrIncompleteScreenshot means the device answered a screenshot
	// request without geometry or pixel contents.
	ErrIncompleteScreenshot = errors.New("calc: device response missing screen geometry or contents")
)

// WrongMessageError reports an unexpected message kind inside an exchange.
type WrongMessageError struct {
	Expected dusb.MessageKind
	Received dusb.MessageKind
}

func (e WrongMessageError) Error() string {
	return fmt.Sprintf("calc: expected %v message, received %v", e.Expected, e.Received)
}

// Calculator is one connected session.
type Calculator struct {
	link *link.Link
	log  zerolog.Logger
}

// Connect wraps an open cable and negotiates the initial packet ceiling.
// The cable stays owned by the caller; closing it ends the session.
func Connect(c cable.Cable, logger zerolog.Logger) (*Calculator, error) {
	logger = logger.With().Str("session", uuid.New().String()[:8]).Logger()
	calc := &Calculator{link: link.New(c, logger), log: logger}
	if _, err := calc.NegotiatePacketSize(raw.InitialBufferSize); err != nil {
		return nil, err
	}
	return calc, nil
}

// MaxPacketSize reports the current negotiated raw packet ceiling.
func (c *Calculator) MaxPacketSize() uint32 {
	return c.link.MaxPacketSize()
}

// NegotiatePacketSize asks the device for a raw packet ceiling and adopts
// the granted value, clamped for over-advertising models.
func (c *Calculator) NegotiatePacketSize(requested uint32) (uint32, error) {
	if err := raw.WriteBufferSizeRequest(c.link, requested); err != nil {
		return 0, err
	}
	granted, err := raw.ReadBufferSizeResponse(c.link)
	if err != nil {
		return 0, err
	}
	c.log.Debug().Uint32("requested", requested).Uint32("granted", granted).Msg("packet size negotiated")
	return granted, nil
}

// SetMode switches the device's link mode.
func (c *Calculator) SetMode(mode dusb.Mode) error {
	if _, err := c.NegotiatePacketSize(c.MaxPacketSize()); err != nil {
		return err
	}
	if err := c.send(dusb.SetMode{Mode: mode}); err != nil {
		return err
	}
	if _, err := c.expect(dusb.MsgSetModeAcknowledge); err != nil {
		return err
	}
	c.log.Info().Stringer("mode", mode).Msg("mode set")
	return nil
}

// RequestParameters queries the device for the listed parameters. The
// device drops entries it cannot answer, so the result may be shorter
// than the request.
func (c *Calculator) RequestParameters(kinds ...dusb.ParameterKind) ([]dusb.Parameter, error) {
	if _, err := c.NegotiatePacketSize(c.MaxPacketSize()); err != nil {
		return nil, err
	}
	if err := c.send(dusb.ParameterRequest{Kinds: kinds}); err != nil {
		return nil, err
	}
	m, err := c.expect(dusb.MsgParameterResponse)
	if err != nil {
		return nil, err
	}
	return m.(dusb.ParameterResponse).Parameters, nil
}

// RequestDirectory lists the device's stored variables, asking for the
// given attributes on each. The device streams one header per variable
// and may interleave Wait messages while it gathers them.
func (c *Calculator) RequestDirectory(attrs ...dusb.AttributeKind) ([]dusb.Variable, error) {
	if err := c.send(dusb.DirectoryRequest{Attributes: attrs}); err != nil {
		return nil, err
	}
	var variables []dusb.Variable
	for {
		m, err := c.receive()
		if err != nil {
			return nil, err
		}
		switch m := m.(type) {
		case dusb.Wait:
			c.log.Debug().Uint32("ms", m.Milliseconds).Msg("device asked to wait")
			time.Sleep(waitDelay)
		case dusb.VariableHeader:
			variables = append(variables, m.Variable)
		case dusb.EndOfTransmission:
			return variables, nil
		case dusb.ErrorMessage:
			return nil, m.Code
		default:
			return nil, WrongMessageError{Expected: dusb.MsgVariableHeader, Received: m.Kind()}
		}
	}
}

// RequestVariable fetches one named variable. The Kind attribute of the
// header the device sends back selects how the contents bytes decode.
func (c *Calculator) RequestVariable(name string) (dusb.Contents, error) {
	req := dusb.RequestVariable{
		Name:      name,
		Requested: fetchAttributes,
		Specified: []dusb.VariableAttribute{{Kind: dusb.AttrKindOverride, Uint32: requestKindOverride}},
	}
	if err := c.send(req); err != nil {
		return dusb.Contents{}, err
	}

	m, err := c.expect(dusb.MsgVariableHeader)
	if err != nil {
		return dusb.Contents{}, err
	}
	kindAttr, ok := m.(dusb.VariableHeader).Variable.Attribute(dusb.AttrKind)
	if !ok {
		return dusb.Contents{}, ErrMissingKindAttribute
	}

	m, err = c.expect(dusb.MsgVariableContents)
	if err != nil {
		return dusb.Contents{}, err
	}
	return dusb.DecodeContents(dusb.VariableKind(kindAttr.Uint32), m.(dusb.VariableContents).Data)
}

// SendVariable pushes one variable to the device. Contents are encoded
// before anything goes on the wire, so an unsupported contents kind
// cannot leave a half-announced transfer behind.
func (c *Calculator) SendVariable(header dusb.Variable, contents dusb.Contents) error {
	data, err := contents.Encode()
	if err != nil {
		return err
	}
	if err := c.send(dusb.RequestToSend{Variable: header}); err != nil {
		return err
	}
	if err := c.send(dusb.VariableContents{Data: data}); err != nil {
		return err
	}
	if _, err := c.expect(dusb.MsgDataAcknowledge); err != nil {
		return err
	}
	if err := c.send(dusb.EndOfTransmission{}); err != nil {
		return err
	}
	c.log.Info().Str("name", header.Name).Int("bytes", len(data)).Msg("variable sent")
	return nil
}

// Screen is one captured display frame.
type Screen struct {
	Width    int
	Height   int
	Contents *dusb.Screenshot
}

// Screenshot grabs the device's current display.
func (c *Calculator) Screenshot() (Screen, error) {
	params, err := c.RequestParameters(
		dusb.ParamScreenWidth,
		dusb.ParamScreenHeight,
		dusb.ParamScreenContents,
	)
	if err != nil {
		return Screen{}, err
	}
	var s Screen
	for _, p := range params {
		switch p.Kind {
		case dusb.ParamScreenWidth:
			s.Width = int(p.Uint16)
		case dusb.ParamScreenHeight:
			s.Height = int(p.Uint16)
		case dusb.ParamScreenContents:
			s.Contents = p.Screen
		}
	}
	if s.Width == 0 || s.Height == 0 || s.Contents == nil {
		return Screen{}, ErrIncompleteScreenshot
	}
	return s, nil
}

func (c *Calculator) send(m dusb.Message) error {
	pkt, err := dusb.EncodeMessage(m)
	if err != nil {
		return err
	}
	c.log.Debug().Stringer("kind", m.Kind()).Msg("message out")
	return virtual.Send(c.link, pkt)
}

func (c *Calculator) receive() (dusb.Message, error) {
	pkt, err := virtual.Receive(c.link)
	if err != nil {
		return nil, err
	}
	m, err := dusb.DecodeMessage(pkt)
	if err != nil {
		return nil, err
	}
	c.log.Debug().Stringer("kind", m.Kind()).Msg("message in")
	return m, nil
}

// expect receives one message and requires the given kind. A device
// Error message aborts the exchange with its code no matter what was
// expected.
func (c *Calculator) expect(kind dusb.MessageKind) (dusb.Message, error) {
	m, err := c.receive()
	if err != nil {
		return nil, err
	}
	if e, ok := m.(dusb.ErrorMessage); ok {
		return nil, e.Code
	}
	if m.Kind() != kind {
		return nil, WrongMessageError{Expected: kind, Received: m.Kind()}
	}
	return m, nil
}
