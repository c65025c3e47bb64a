// SPDX-License-Identifier: MIT
//
// Copyright © 2020 Kent Gibson <warthog618@gmail.com>.

// Package stream adapts an io.ReadWriter, such as a serial port, into a byte
// stream that supports reads bounded by a timeout.
package stream

import (
	"io"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Stream is a byte stream on an io.ReadWriter.
//
// Reads from the underlying reader are performed by a background goroutine
// which exits when the underlying reader returns an error or the Stream is
// closed.
//
// ReadByte and Write may be called concurrently with each other, but not each
// with themselves.
type Stream struct {
	rw io.ReadWriter

	// chunks read from rw
	rx chan []byte

	// closed when the Stream is closed
	done      chan struct{}
	closeOnce sync.Once

	// the unconsumed tail of the most recent chunk
	pending []byte

	// the error that terminated the reader, valid once rx is closed
	err error

	chunkSize int
}

// Option is a construction option for a Stream.
type Option func(*Stream)

// WithChunkSize sets the size of the individual reads performed on the
// underlying reader.
//
// The default is 64 bytes.
func WithChunkSize(n int) Option {
	return func(s *Stream) {
		if n > 0 {
			s.chunkSize = n
		}
	}
}

// New creates a Stream on rw and starts the reader.
func New(rw io.ReadWriter, options ...Option) *Stream {
	s := &Stream{
		rw:        rw,
		rx:        make(chan []byte),
		done:      make(chan struct{}),
		chunkSize: 64,
	}
	for _, option := range options {
		option(s)
	}
	go s.reader()
	return s
}

var (
	// ErrClosed indicates the stream, or the underlying reader, has been
	// closed.
	ErrClosed = errors.New("closed")

	// ErrTimeout indicates no data arrived within the requested period.
	//
	// ErrTimeout has a Timeout method that returns true.
	ErrTimeout error = timeoutError{}
)

type timeoutError struct{}

func (timeoutError) Error() string {
	return "timeout"
}

func (timeoutError) Timeout() bool {
	return true
}

// ReadByte returns the next byte from the stream.
//
// If no byte is available within the timeout then ErrTimeout is returned.
// A zero or negative timeout only returns a byte that has already been
// received.
func (s *Stream) ReadByte(timeout time.Duration) (byte, error) {
	if len(s.pending) == 0 {
		if err := s.fill(timeout); err != nil {
			return 0, err
		}
	}
	c := s.pending[0]
	s.pending = s.pending[1:]
	return c, nil
}

func (s *Stream) fill(timeout time.Duration) error {
	if timeout <= 0 {
		select {
		case p, ok := <-s.rx:
			return s.accept(p, ok)
		case <-s.done:
			return ErrClosed
		default:
			return ErrTimeout
		}
	}
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case p, ok := <-s.rx:
		return s.accept(p, ok)
	case <-s.done:
		return ErrClosed
	case <-t.C:
		return ErrTimeout
	}
}

func (s *Stream) accept(p []byte, ok bool) error {
	if !ok {
		if s.err != nil && s.err != io.EOF {
			return errors.Wrap(s.err, "read")
		}
		return ErrClosed
	}
	s.pending = p
	return nil
}

// Write writes p to the underlying writer.
func (s *Stream) Write(p []byte) (int, error) {
	select {
	case <-s.done:
		return 0, ErrClosed
	default:
	}
	return s.rw.Write(p)
}

type drainer interface {
	Drain() error
}

// Flush waits for any written data to be transmitted, if the underlying
// writer supports it.
func (s *Stream) Flush() error {
	if d, ok := s.rw.(drainer); ok {
		return d.Drain()
	}
	return nil
}

// Close closes the stream and, if it is an io.Closer, the underlying
// ReadWriter.
func (s *Stream) Close() (err error) {
	s.closeOnce.Do(func() {
		close(s.done)
		if c, ok := s.rw.(io.Closer); ok {
			err = c.Close()
		}
	})
	return
}

// reader moves data from the underlying reader to rx.
//
// reader exits when the underlying reader returns an error or the Stream is
// closed.
func (s *Stream) reader() {
	defer close(s.rx)
	for {
		buf := make([]byte, s.chunkSize)
		n, err := s.rw.Read(buf)
		if n > 0 {
			select {
			case s.rx <- buf[:n]:
			case <-s.done:
				return
			}
		}
		if err != nil {
			s.err = err
			return
		}
	}
}
