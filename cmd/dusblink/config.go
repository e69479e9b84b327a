package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"

	"github.com/calclink/dusblink/internal/cable"
	"github.com/calclink/dusblink/internal/observability"
)

// config is everything the tool decides before touching USB. Zero vendor
// and product mean: scan for any known calculator.
type config struct {
	vendor   uint16
	product  uint16
	timeout  time.Duration
	logLevel zerolog.Level
	debug    bool
}

func defaultConfig() config {
	return config{
		timeout:  cable.DefaultTimeout,
		logLevel: observability.LevelFromEnv(),
	}
}

type fileConfig struct {
	Device   string `toml:"device"`
	Timeout  string `toml:"timeout"`
	LogLevel string `toml:"log_level"`
	Debug    bool   `toml:"debug"`
}

func loadConfig(path string) (config, error) {
	cfg := defaultConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return config{}, fmt.Errorf("load config: %w", err)
	}

	if meta.IsDefined("device") {
		vendor, product, err := parseDeviceID(raw.Device)
		if err != nil {
			return config{}, err
		}
		cfg.vendor, cfg.product = vendor, product
	}

	if meta.IsDefined("timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Timeout))
		if err != nil {
			return config{}, fmt.Errorf("parse timeout: %w", err)
		}
		cfg.timeout = d
	}

	if meta.IsDefined("log_level") {
		level, ok := observability.ParseLevel(raw.LogLevel)
		if !ok {
			return config{}, fmt.Errorf("parse log_level: unknown level %q", raw.LogLevel)
		}
		cfg.logLevel = level
	}

	if meta.IsDefined("debug") {
		cfg.debug = raw.Debug
	}

	return cfg, nil
}

// parseDeviceID splits a "vid:pid" pair of hex ids, e.g. "0451:e008".
func parseDeviceID(s string) (vendor, product uint16, err error) {
	vid, pid, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, 0, fmt.Errorf("parse device %q: want vid:pid", s)
	}
	v, err := strconv.ParseUint(vid, 16, 16)
	if err != nil {
		return 0, 0, fmt.Errorf("parse device vendor %q: not a 16-bit hex id", vid)
	}
	p, err := strconv.ParseUint(pid, 16, 16)
	if err != nil {
		return 0, 0, fmt.Errorf("parse device product %q: not a 16-bit hex id", pid)
	}
	return uint16(v), uint16(p), nil
}
