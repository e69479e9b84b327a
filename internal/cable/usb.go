package cable

import (
	"context"
	"fmt"
	"time"

	"github.com/google/gousb"
)

// VendorTI is Texas Instruments' USB vendor id.
const VendorTI = 0x0451

// Known direct-USB calculator product ids.
const (
	ProductTI84Plus       = 0xe003
	ProductTI89Titanium   = 0xe004
	ProductTI84PlusSilver = 0xe008
	ProductTINspire       = 0xe012
)

var productNames = map[uint16]string{
	ProductTI84Plus:       "TI-84 Plus",
	ProductTI89Titanium:   "TI-89 Titanium",
	ProductTI84PlusSilver: "TI-84 Plus Silver Edition",
	ProductTINspire:       "TI-Nspire",
}

// ProductName returns the marketing name for a known product id.
func ProductName(product uint16) string {
	if name, ok := productNames[product]; ok {
		return name
	}
	return fmt.Sprintf("unknown TI device %04x", product)
}

const (
	// The calculator exposes a single vendor-specific interface with one
	// bulk pair: OUT 0x02, IN 0x81.
	interfaceNumber = 0
	outEndpointNum  = 2
	inEndpointNum   = 1

	// DefaultTimeout bounds each bulk transfer.
	DefaultTimeout = 10 * time.Second
)

// USBConfig selects and tunes the device to open.
type USBConfig struct {
	// Vendor and Product pin one device. Zero values mean: scan for
	// VendorTI and any known product id.
	Vendor  uint16
	Product uint16
	// Timeout bounds each bulk transfer; zero means DefaultTimeout.
	Timeout time.Duration
}

// USB is a Cable over a claimed gousb device.
type USB struct {
	ctx     *gousb.Context
	dev     *gousb.Device
	intf    *gousb.Interface
	done    func()
	in      *gousb.InEndpoint
	out     *gousb.OutEndpoint
	timeout time.Duration
	closed  bool
}

// OpenUSB finds a calculator, claims its link interface and returns the
// cable. The caller must Close it.
func OpenUSB(cfg USBConfig) (*USB, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	ctx := gousb.NewContext()

	dev, err := findDevice(ctx, cfg)
	if err != nil {
		ctx.Close()
		return nil, err
	}

	// The OS may have bound a kernel driver (usbfs/hid) to the interface.
	if err := dev.SetAutoDetach(true); err != nil {
		dev.Close()
		ctx.Close()
		return nil, fmt.Errorf("cable: set auto-detach: %w", err)
	}

	intf, done, err := dev.DefaultInterface()
	if err != nil {
		dev.Close()
		ctx.Close()
		return nil, fmt.Errorf("cable: claim interface %d: %w", interfaceNumber, err)
	}

	in, err := intf.InEndpoint(inEndpointNum)
	if err != nil {
		done()
		dev.Close()
		ctx.Close()
		return nil, fmt.Errorf("cable: open bulk-in endpoint: %w", err)
	}
	out, err := intf.OutEndpoint(outEndpointNum)
	if err != nil {
		done()
		dev.Close()
		ctx.Close()
		return nil, fmt.Errorf("cable: open bulk-out endpoint: %w", err)
	}

	return &USB{
		ctx:     ctx,
		dev:     dev,
		intf:    intf,
		done:    done,
		in:      in,
		out:     out,
		timeout: cfg.Timeout,
	}, nil
}

func findDevice(ctx *gousb.Context, cfg USBConfig) (*gousb.Device, error) {
	if cfg.Vendor != 0 && cfg.Product != 0 {
		dev, err := ctx.OpenDeviceWithVIDPID(gousb.ID(cfg.Vendor), gousb.ID(cfg.Product))
		if err != nil {
			return nil, fmt.Errorf("cable: open %04x:%04x: %w", cfg.Vendor, cfg.Product, err)
		}
		if dev == nil {
			return nil, ErrNoDevice
		}
		return dev, nil
	}

	devs, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		if desc.Vendor != gousb.ID(VendorTI) {
			return false
		}
		_, known := productNames[uint16(desc.Product)]
		return known
	})
	if err != nil {
		for _, d := range devs {
			d.Close()
		}
		return nil, fmt.Errorf("cable: enumerate devices: %w", err)
	}
	if len(devs) == 0 {
		return nil, ErrNoDevice
	}
	// One session talks to one calculator; release any extras.
	for _, d := range devs[1:] {
		d.Close()
	}
	return devs[0], nil
}

// Description returns a human-readable identity for the opened device.
func (u *USB) Description() string {
	product, err := u.dev.Product()
	if err != nil || product == "" {
		product = ProductName(uint16(u.dev.Desc.Product))
	}
	return fmt.Sprintf("%s (%s:%s)", product, u.dev.Desc.Vendor, u.dev.Desc.Product)
}

// Send submits one bulk-OUT transfer carrying the whole buffer.
func (u *USB) Send(p []byte) error {
	if u.closed {
		return ErrClosed
	}
	ctx, cancel := context.WithTimeout(context.Background(), u.timeout)
	defer cancel()
	n, err := u.out.WriteContext(ctx, p)
	if err != nil {
		return fmt.Errorf("cable: bulk write: %w", err)
	}
	if n != len(p) {
		return fmt.Errorf("cable: bulk write accepted %d of %d bytes", n, len(p))
	}
	return nil
}

// Read submits one bulk-IN transfer; the device decides how much arrives.
func (u *USB) Read(p []byte) (int, error) {
	if u.closed {
		return 0, ErrClosed
	}
	ctx, cancel := context.WithTimeout(context.Background(), u.timeout)
	defer cancel()
	n, err := u.in.ReadContext(ctx, p)
	if err != nil {
		return n, fmt.Errorf("cable: bulk read: %w", err)
	}
	return n, nil
}

// Close releases the interface, the device and the USB context.
func (u *USB) Close() error {
	if u.closed {
		return nil
	}
	u.closed = true
	u.done()
	if err := u.dev.Close(); err != nil {
		u.ctx.Close()
		return fmt.Errorf("cable: close device: %w", err)
	}
	if err := u.ctx.Close(); err != nil {
		return fmt.Errorf("cable: close usb context: %w", err)
	}
	return nil
}

// ListDevices reports every attached calculator without claiming any.
func ListDevices() ([]DeviceInfo, error) {
	ctx := gousb.NewContext()
	defer ctx.Close()

	var found []DeviceInfo
	devs, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		if desc.Vendor != gousb.ID(VendorTI) {
			return false
		}
		found = append(found, DeviceInfo{
			Vendor:  uint16(desc.Vendor),
			Product: uint16(desc.Product),
			Bus:     desc.Bus,
			Address: desc.Address,
		})
		// Collect descriptors only; opening is the session's job.
		return false
	})
	if err != nil {
		return nil, fmt.Errorf("cable: enumerate devices: %w", err)
	}
	for _, d := range devs {
		d.Close()
	}
	return found, nil
}

// DeviceInfo identifies one attached calculator.
type DeviceInfo struct {
	Vendor  uint16
	Product uint16
	Bus     int
	Address int
}

func (d DeviceInfo) String() string {
	return fmt.Sprintf("bus %03d addr %03d %04x:%04x %s",
		d.Bus, d.Address, d.Vendor, d.Product, ProductName(d.Product))
}
