// SPDX-License-Identifier: MIT
//
// Copyright © 2020 Kent Gibson <warthog618@gmail.com>.

// Package modem assembles the driver stack used by the command line tools.
package modem

import (
	"io"

	"go.uber.org/zap"

	"github.com/warthog618/sim800/at"
	"github.com/warthog618/sim800/internal/config"
	"github.com/warthog618/sim800/serial"
	"github.com/warthog618/sim800/sim800"
	"github.com/warthog618/sim800/stream"
	"github.com/warthog618/sim800/trace"
)

// NewLogger returns the logger for the tools.
//
// Verbose selects a development logger at debug level, else a production
// logger.
func NewLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// Open opens the serial port named in the config and returns the SIM800
// driver layered over it.
//
// The returned io.Closer closes the stream and the port.
func Open(cfg *config.Config, log *zap.Logger) (*sim800.Modem, io.Closer, error) {
	p, err := serial.New(serial.WithPort(cfg.Modem.Device), serial.WithBaud(cfg.Modem.Baud))
	if err != nil {
		return nil, nil, err
	}
	m, s := New(p, cfg, log)
	return m, s, nil
}

// New layers the SIM800 driver over rw.
func New(rw io.ReadWriter, cfg *config.Config, log *zap.Logger) (*sim800.Modem, *stream.Stream) {
	if cfg.Verbose {
		rw = trace.New(rw, trace.WithLogger(log.Named("trace")))
	}
	s := stream.New(rw)
	a := at.New(s,
		at.WithDrainTime(cfg.Modem.DrainTime.Duration),
		at.WithScratchSize(cfg.Modem.ScratchSize),
		at.WithLogger(log.Named("at")))
	m := sim800.New(a,
		sim800.WithRecvSize(cfg.Modem.RecvSize),
		sim800.WithCommandTimeout(cfg.Modem.CommandTimeout.Duration),
		sim800.WithLogger(log.Named("sim800")))
	return m, s
}
