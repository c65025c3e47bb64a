// SPDX-License-Identifier: MIT
//
// Copyright © 2018 Kent Gibson <warthog618@gmail.com>.

// Package trace provides a decorator for io.ReadWriter that logs all reads
// and writes.
package trace

import (
	"io"

	"go.uber.org/zap"
)

// Trace is a trace log on an io.ReadWriter.
//
// Each read or write is logged as a single entry, with the data transferred
// held in a field keyed by the direction.
type Trace struct {
	rw   io.ReadWriter
	l    *zap.Logger
	msg  string
	rkey string
	wkey string
}

// Option modifies a Trace object created by New.
type Option func(*Trace)

// New creates a new trace on the io.ReadWriter.
func New(rw io.ReadWriter, options ...Option) *Trace {
	t := &Trace{
		rw:   rw,
		msg:  "trace",
		rkey: "r",
		wkey: "w",
	}
	for _, option := range options {
		option(t)
	}
	if t.l == nil {
		l, err := zap.NewDevelopment()
		if err != nil {
			l = zap.NewNop()
		}
		t.l = l
	}
	return t
}

// WithReadKey sets the field key used for read data.
func WithReadKey(key string) Option {
	return func(t *Trace) {
		t.rkey = key
	}
}

// WithWriteKey sets the field key used for written data.
func WithWriteKey(key string) Option {
	return func(t *Trace) {
		t.wkey = key
	}
}

// WithMessage sets the message of the log entries.
func WithMessage(msg string) Option {
	return func(t *Trace) {
		t.msg = msg
	}
}

// WithLogger specifies the logger to be used to log trace messages.
//
// By default traces are logged to a zap development logger.
func WithLogger(l *zap.Logger) Option {
	return func(t *Trace) {
		t.l = l
	}
}

func (t *Trace) Read(p []byte) (n int, err error) {
	n, err = t.rw.Read(p)
	if n > 0 {
		t.l.Info(t.msg, zap.ByteString(t.rkey, p[:n]))
	}
	return n, err
}

func (t *Trace) Write(p []byte) (n int, err error) {
	n, err = t.rw.Write(p)
	if n > 0 {
		t.l.Info(t.msg, zap.ByteString(t.wkey, p[:n]))
	}
	return n, err
}

// Close closes the underlying io.ReadWriter, if it is an io.Closer.
func (t *Trace) Close() error {
	if c, ok := t.rw.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
