// Package config loads the settings shared by the command-line tools and builds
// their logger.
//
// Settings are layered, each source overriding the ones before it:
//
//  1. Built-in defaults.
//  2. An optional TOML file.
//  3. Environment variables prefixed with CIKADA_. Double underscores separate
//     sections, e.g. CIKADA_IO__DIRECT=false sets `io.direct`.
//  4. Command-line flags.
package config

import (
	"fmt"
	"io"
	"strings"

	"github.com/dargueta/cikada"
	"github.com/dargueta/cikada/blockio"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/zerodha/logf"
)

const EnvPrefix = "CIKADA_"

const (
	KeyLogLevel  = "log.level"
	KeyDirectIO  = "io.direct"
	KeyAlignment = "io.alignment"
	KeySync      = "io.sync"
)

var defaults = map[string]interface{}{
	KeyLogLevel:  "info",
	KeyDirectIO:  true,
	KeyAlignment: blockio.DefaultAlignment,
	KeySync:      true,
}

var logLevels = map[string]logf.Level{
	"debug": logf.DebugLevel,
	"info":  logf.InfoLevel,
	"warn":  logf.WarnLevel,
	"error": logf.ErrorLevel,
}

// Config holds the resolved settings.
type Config struct {
	LogLevel    string
	DirectIO    bool
	Alignment   int
	SyncOnClose bool
}

// DeviceOptions converts the I/O settings into options for opening a device.
func (c *Config) DeviceOptions() blockio.DeviceOptions {
	return blockio.DeviceOptions{Direct: c.DirectIO, SyncOnClose: c.SyncOnClose}
}

// Load resolves the configuration. `path` is the TOML file to read, or empty
// to skip it. `flags` holds settings given on the command line, keyed the same
// way as the file; only flags the user actually set should be included.
func Load(path string, flags map[string]interface{}) (*Config, error) {
	ko := koanf.New(".")

	err := ko.Load(confmap.Provider(defaults, "."), nil)
	if err != nil {
		return nil, err
	}

	if path != "" {
		err = ko.Load(file.Provider(path), toml.Parser())
		if err != nil {
			return nil, cikada.ErrInvalidArgument.Wrap(err).WithMessage(
				fmt.Sprintf("failed to load configuration file %q", path))
		}
	}

	err = ko.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, EnvPrefix)), "__", ".", -1)
	}), nil)
	if err != nil {
		return nil, err
	}

	if len(flags) > 0 {
		err = ko.Load(confmap.Provider(flags, "."), nil)
		if err != nil {
			return nil, err
		}
	}

	cfg := &Config{
		LogLevel:    strings.ToLower(ko.String(KeyLogLevel)),
		DirectIO:    ko.Bool(KeyDirectIO),
		Alignment:   ko.Int(KeyAlignment),
		SyncOnClose: ko.Bool(KeySync),
	}
	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	if _, ok := logLevels[c.LogLevel]; !ok {
		return cikada.ErrInvalidArgument.WithMessage(
			fmt.Sprintf("unknown log level %q", c.LogLevel))
	}
	if c.Alignment <= 0 || c.Alignment&(c.Alignment-1) != 0 {
		return cikada.ErrInvalidArgument.WithMessage(
			fmt.Sprintf("%s must be a power of two, got %d", KeyAlignment, c.Alignment))
	}
	return nil
}

// NewLogger creates the logger for a tool. Logs must never go to stdout, since
// that's where the tools write their output.
func NewLogger(c *Config, output io.Writer) logf.Logger {
	opts := logf.Opts{
		Writer:          output,
		Level:           logLevels[c.LogLevel],
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	}
	if c.LogLevel == "debug" {
		opts.EnableCaller = true
	}
	return logf.New(opts)
}
