// SPDX-License-Identifier: MIT
//
// Copyright © 2020 Kent Gibson <warthog618@gmail.com>.

// Package config provides the configuration shared by the command line tools.
//
// Settings are taken from defaults, overlaid by an optional TOML file,
// overlaid by any flags explicitly set on the command line.
package config

import (
	"flag"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"

	"github.com/warthog618/sim800/serial"
)

// Config is the complete tool configuration.
type Config struct {
	Modem   Modem `toml:"modem"`
	HTTP    HTTP  `toml:"http"`
	Verbose bool  `toml:"verbose"`
}

// Modem holds the settings for the modem connection and driver.
type Modem struct {
	Device         string   `toml:"device"`
	Baud           int      `toml:"baud"`
	CommandTimeout Duration `toml:"command_timeout"`
	DrainTime      Duration `toml:"drain_time"`
	ScratchSize    int      `toml:"scratch_size"`
	RecvSize       int      `toml:"recv_size"`
}

// HTTP holds the settings for HTTP requests.
type HTTP struct {
	APN                string   `toml:"apn"`
	ServerTimeout      Duration `toml:"server_timeout"`
	ClientWriteTimeout Duration `toml:"client_write_timeout"`
}

// Duration is a time.Duration that is represented in TOML as a string, such
// as "5s" or "500ms".
type Duration struct {
	time.Duration
}

// UnmarshalText parses the duration from its string form.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return errors.Wrapf(err, "invalid duration %q", text)
	}
	d.Duration = v
	return nil
}

// MarshalText returns the duration in its string form.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Modem: Modem{
			Device:         serial.DefaultPort(),
			Baud:           115200,
			CommandTimeout: Duration{5 * time.Second},
			DrainTime:      Duration{500 * time.Millisecond},
			ScratchSize:    255,
			RecvSize:       512,
		},
		HTTP: HTTP{
			APN:                "internet",
			ServerTimeout:      Duration{30 * time.Second},
			ClientWriteTimeout: Duration{10 * time.Second},
		},
	}
}

// Parse overlays the TOML document onto the configuration.
func (c *Config) Parse(data []byte) error {
	if err := toml.Unmarshal(data, c); err != nil {
		return errors.Wrap(err, "parse config")
	}
	return nil
}

// LoadFile overlays the TOML file at path onto the configuration.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "read config")
	}
	return c.Parse(data)
}

// Flags binds the common tool flags to a flag set.
type Flags struct {
	fs      *flag.FlagSet
	path    *string
	dev     *string
	baud    *int
	apn     *string
	timeout *time.Duration
	verbose *bool
}

// NewFlags registers the common tool flags on the flag set.
func NewFlags(fs *flag.FlagSet) *Flags {
	d := Default()
	return &Flags{
		fs:      fs,
		path:    fs.String("c", "", "path to TOML config file"),
		dev:     fs.String("d", d.Modem.Device, "path to modem device"),
		baud:    fs.Int("b", d.Modem.Baud, "baud rate"),
		apn:     fs.String("a", d.HTTP.APN, "GPRS access point name"),
		timeout: fs.Duration("t", d.Modem.CommandTimeout.Duration, "command timeout period"),
		verbose: fs.Bool("v", false, "log modem interactions"),
	}
}

// Load returns the configuration built from the defaults, the config file,
// if one was named, and the flags set on the command line.
//
// The flag set must already have been parsed.
func (f *Flags) Load() (*Config, error) {
	c := Default()
	if *f.path != "" {
		if err := c.LoadFile(*f.path); err != nil {
			return nil, err
		}
	}
	f.fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "d":
			c.Modem.Device = *f.dev
		case "b":
			c.Modem.Baud = *f.baud
		case "a":
			c.HTTP.APN = *f.apn
		case "t":
			c.Modem.CommandTimeout.Duration = *f.timeout
		case "v":
			c.Verbose = *f.verbose
		}
	})
	return c, nil
}
