// SPDX-License-Identifier: MIT
//
// Copyright © 2020 Kent Gibson <warthog618@gmail.com>.

// Package serial provides a serial port, which provides the io.ReadWriter
// interface, that provides the connection between the sim800 or at package
// and the physical modem.
package serial

import (
	"github.com/pkg/errors"
	tarm "github.com/tarm/serial"
	bugst "go.bug.st/serial"
)

// Config holds the serial port settings.
type Config struct {
	port string
	baud int
}

// Option modifies the default configuration.
type Option func(*Config)

// New creates a serial port.
//
// This is currently a simple wrapper around tarm serial.
//
// Reads from the returned port block until data is available, so the port is
// intended to be wrapped by a stream.Stream which provides read timeouts.
func New(options ...Option) (*tarm.Port, error) {
	cfg := defaultConfig
	for _, option := range options {
		option(&cfg)
	}
	config := &tarm.Config{Name: cfg.port, Baud: cfg.baud}
	p, err := tarm.OpenPort(config)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", cfg.port)
	}
	return p, nil
}

// WithBaud sets the baud rate for the serial port.
func WithBaud(b int) Option {
	return func(c *Config) {
		c.baud = b
	}
}

// WithPort sets the device name for the serial port.
func WithPort(p string) Option {
	return func(c *Config) {
		c.port = p
	}
}

// Ports returns the names of the serial ports available on the host.
func Ports() ([]string, error) {
	ports, err := bugst.GetPortsList()
	if err != nil {
		return nil, errors.Wrap(err, "list ports")
	}
	return ports, nil
}

// DefaultPort returns the device name used if none is specified.
func DefaultPort() string {
	return defaultConfig.port
}
