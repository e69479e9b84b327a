// Command dusblink talks to a USB-connected TI calculator.
//
// Usage:
//
//	dusblink [flags] <command> [args]
//
// Commands:
//
//	detect               list attached calculators
//	info                 print device name, clock and flash page counts
//	screenshot <file>    capture the display into a PNG file
//	dir                  list stored variables
//	get <name> [file]    fetch a variable; strings print, binaries go to file
//	send <name> <text>   store a string variable on the device
//
// Flags may also come from a TOML file via -config; explicit flags win.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/calclink/dusblink/internal/cable"
	"github.com/calclink/dusblink/internal/calc"
	"github.com/calclink/dusblink/internal/dusb"
	"github.com/calclink/dusblink/internal/observability"
	"github.com/calclink/dusblink/internal/screen"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "dusblink: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath = flag.String("config", "", "TOML config file")
		device     = flag.String("device", "", "device to open as vid:pid, e.g. 0451:e008")
		timeout    = flag.Duration("timeout", cable.DefaultTimeout, "per-transfer USB timeout")
		logLevel   = flag.String("log-level", "", "log level: trace|debug|info|warn|error")
		debug      = flag.Bool("debug", false, "hex-dump every transfer (forces trace logging)")
	)
	flag.Usage = usage
	flag.Parse()

	cfg := defaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = loadConfig(*configPath)
		if err != nil {
			return err
		}
	}

	// Flags given on the command line override file values; defaults do not.
	var flagErr error
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "device":
			vendor, product, err := parseDeviceID(*device)
			if err != nil {
				flagErr = err
				return
			}
			cfg.vendor, cfg.product = vendor, product
		case "timeout":
			cfg.timeout = *timeout
		case "log-level":
			level, ok := observability.ParseLevel(*logLevel)
			if !ok {
				flagErr = fmt.Errorf("unknown log level %q", *logLevel)
				return
			}
			cfg.logLevel = level
		case "debug":
			cfg.debug = *debug
		}
	})
	if flagErr != nil {
		return flagErr
	}
	if cfg.debug {
		cfg.logLevel = zerolog.TraceLevel
	}

	logger := observability.InitLogger("dusblink", cfg.logLevel)

	args := flag.Args()
	if len(args) == 0 {
		usage()
		return errors.New("missing command")
	}
	command, args := args[0], args[1:]

	if command == "detect" {
		return runDetect()
	}

	usb, err := cable.OpenUSB(cable.USBConfig{
		Vendor:  cfg.vendor,
		Product: cfg.product,
		Timeout: cfg.timeout,
	})
	if err != nil {
		return err
	}
	defer usb.Close()
	logger.Info().Str("device", usb.Description()).Msg("calculator opened")

	c, err := calc.Connect(usb, logger)
	if err != nil {
		return err
	}
	if err := c.SetMode(dusb.ModeNormal); err != nil {
		return err
	}

	switch command {
	case "info":
		return runInfo(c)
	case "screenshot":
		if len(args) != 1 {
			return errors.New("usage: dusblink screenshot <file.png>")
		}
		return runScreenshot(c, args[0])
	case "dir":
		return runDir(c)
	case "get":
		if len(args) < 1 || len(args) > 2 {
			return errors.New("usage: dusblink get <name> [file]")
		}
		out := ""
		if len(args) == 2 {
			out = args[1]
		}
		return runGet(c, args[0], out)
	case "send":
		if len(args) != 2 {
			return errors.New("usage: dusblink send <name> <text>")
		}
		return runSend(c, args[0], args[1])
	default:
		return fmt.Errorf("unknown command %q (supported: detect, info, screenshot, dir, get, send)", command)
	}
}

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), "usage: dusblink [flags] <command> [args]\n\n")
	fmt.Fprintf(flag.CommandLine.Output(), "commands: detect, info, screenshot <file>, dir, get <name> [file], send <name> <text>\n\nflags:\n")
	flag.PrintDefaults()
}

func runDetect() error {
	devices, err := cable.ListDevices()
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		fmt.Println("no calculators attached")
		return nil
	}
	for _, d := range devices {
		fmt.Println(d)
	}
	return nil
}

func runInfo(c *calc.Calculator) error {
	params, err := c.RequestParameters(
		dusb.ParamName,
		dusb.ParamClock,
		dusb.ParamTotalAppPages,
		dusb.ParamFreeAppPages,
	)
	if err != nil {
		return err
	}
	for _, p := range params {
		switch p.Kind {
		case dusb.ParamName:
			fmt.Printf("name:            %s\n", p.Text)
		case dusb.ParamClock:
			fmt.Printf("clock:           %d\n", p.Uint32)
		case dusb.ParamTotalAppPages:
			fmt.Printf("app pages total: %d\n", p.Uint64)
		case dusb.ParamFreeAppPages:
			fmt.Printf("app pages free:  %d\n", p.Uint64)
		}
	}
	return nil
}

func runScreenshot(c *calc.Calculator, path string) error {
	s, err := c.Screenshot()
	if err != nil {
		return err
	}
	if s.Contents.Format != dusb.FormatRGB {
		return fmt.Errorf("screenshot: cannot render %s display contents", s.Contents.Format)
	}
	png, err := screen.EncodePNG(s.Width, s.Height, s.Contents.Pixels)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return fmt.Errorf("screenshot: %w", err)
	}
	fmt.Printf("wrote %dx%d screenshot to %s\n", s.Width, s.Height, path)
	return nil
}

func runDir(c *calc.Calculator) error {
	variables, err := c.RequestDirectory(
		dusb.AttrSize,
		dusb.AttrKind,
		dusb.AttrVersion,
		dusb.AttrLocked,
		dusb.AttrArchived,
	)
	if err != nil {
		return err
	}
	for _, v := range variables {
		kind := "?"
		if a, ok := v.Attribute(dusb.AttrKind); ok {
			kind = dusb.VariableKind(a.Uint32).String()
		}
		size := uint32(0)
		if a, ok := v.Attribute(dusb.AttrSize); ok {
			size = a.Uint32
		}
		var marks string
		if a, ok := v.Attribute(dusb.AttrArchived); ok && a.Flag {
			marks += " archived"
		}
		if a, ok := v.Attribute(dusb.AttrLocked); ok && a.Flag {
			marks += " locked"
		}
		fmt.Printf("%-10s %-8s %6d bytes%s\n", v.Name, kind, size, marks)
	}
	return nil
}

func runGet(c *calc.Calculator, name, path string) error {
	contents, err := c.RequestVariable(name)
	if err != nil {
		return err
	}
	if contents.Kind == dusb.VarString && path == "" {
		fmt.Println(contents.Text)
		return nil
	}
	data := contents.Data
	if contents.Kind == dusb.VarString {
		data = []byte(contents.Text)
	}
	if path == "" {
		path = name + ".bin"
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("get %s: %w", name, err)
	}
	fmt.Printf("wrote %d bytes of %s contents to %s\n", len(data), contents.Kind, path)
	return nil
}

func runSend(c *calc.Calculator, name, text string) error {
	header := dusb.Variable{
		Name: name,
		Attributes: []dusb.VariableAttribute{
			{Kind: dusb.AttrSize, Uint32: uint32(len(text))},
			{Kind: dusb.AttrKind, Uint32: uint32(dusb.VarString)},
			{Kind: dusb.AttrVersion, Byte: 0},
			{Kind: dusb.AttrArchived, Flag: false},
			{Kind: dusb.AttrLocked, Flag: false},
		},
	}
	contents := dusb.Contents{Kind: dusb.VarString, Text: text}
	if err := c.SendVariable(header, contents); err != nil {
		return err
	}
	fmt.Printf("sent %q to %s\n", text, name)
	return nil
}
