// SPDX-License-Identifier: MIT
//
// Copyright © 2018 Kent Gibson <warthog618@gmail.com>.

// Package at provides a low level driver for AT modems.
//
// The driver is synchronous. Each command is written to the modem and the
// response is then read into a fixed size scratch buffer, terminated by a
// count of CRLF sequences, a full buffer, or a timeout.
package at

import (
	"bytes"
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/warthog618/sim800/buffer"
	"github.com/warthog618/sim800/info"
)

// Stream is the byte stream used to communicate with the modem.
//
// ReadByte returns an error with a Timeout method returning true if no byte
// arrives within the timeout.
type Stream interface {
	io.Writer
	Flush() error
	ReadByte(timeout time.Duration) (byte, error)
}

// AT represents a modem that can be managed using AT commands.
//
// An AT is not safe for concurrent use. It assumes exclusive ownership of the
// stream.
type AT struct {
	// the underlying modem
	modem Stream

	// the most recent response read from the modem
	scratch *buffer.Fixed

	// the idle period that terminates the drain preceding each write
	drainTime time.Duration

	log *zap.Logger
}

// Option is a construction option for an AT.
type Option func(*AT)

// DefaultScratchSize is the default capacity of the scratch buffer.
const DefaultScratchSize = 255

// New creates a new AT modem.
func New(modem Stream, options ...Option) *AT {
	a := &AT{
		modem:     modem,
		drainTime: 500 * time.Millisecond,
		log:       zap.NewNop(),
	}
	for _, option := range options {
		option(a)
	}
	if a.scratch == nil {
		a.scratch = buffer.New(DefaultScratchSize)
	}
	return a
}

// WithDrainTime sets the drain period for the modem.
//
// Before each write any data pending from the modem is read and discarded
// until the modem has been idle for the drain period.
//
// The default drain period is 500msec.
func WithDrainTime(d time.Duration) Option {
	return func(a *AT) {
		a.drainTime = d
	}
}

// WithScratchSize sets the capacity of the buffer that holds responses.
//
// Responses longer than the capacity are truncated.
//
// The default size is 255 bytes.
func WithScratchSize(n int) Option {
	return func(a *AT) {
		a.scratch = buffer.New(n)
	}
}

// WithLogger specifies the logger used to log modem interactions.
//
// By default nothing is logged.
func WithLogger(l *zap.Logger) Option {
	return func(a *AT) {
		if l != nil {
			a.log = l
		}
	}
}

// Command writes a command to the modem.
//
// The command should NOT include the AT prefix, nor <CR><LF> suffix which is
// automatically added.
//
// The response must be read separately, e.g. using Expect or ReadResponse.
func (a *AT) Command(cmd string) error {
	return a.writeLine("AT" + cmd)
}

// CommandQuoted writes a command with a single quoted parameter to the modem.
//
// The parameter is appended to the command wrapped in double quotes, so
//
//	CommandQuoted("+HTTPPARA=\"URL\",", "http://example.com")
//
// writes
//
//	AT+HTTPPARA="URL","http://example.com"<CR><LF>
func (a *AT) CommandQuoted(cmd, param string) error {
	return a.writeLine("AT" + cmd + "\"" + param + "\"")
}

// Write writes raw data, such as an HTTP payload, to the modem.
//
// As with commands, any data pending from the modem is discarded first.
func (a *AT) Write(p []byte) error {
	a.log.Debug("send data", zap.Int("len", len(p)))
	return a.write(p)
}

func (a *AT) writeLine(line string) error {
	a.log.Debug("send", zap.String("cmd", line))
	return a.write([]byte(line + "\r\n"))
}

// write flushes and drains the modem, then writes p and flushes again.
func (a *AT) write(p []byte) error {
	if err := a.modem.Flush(); err != nil {
		return errors.Wrap(err, "flush")
	}
	a.Drain(a.drainTime)
	if _, err := a.modem.Write(p); err != nil {
		return errors.Wrap(err, "write")
	}
	if err := a.modem.Flush(); err != nil {
		return errors.Wrap(err, "flush")
	}
	return nil
}

// Drain reads and discards data from the modem until the modem has been
// idle for the period d or the scratch buffer is full.
//
// Returns the number of bytes discarded, which are left in the scratch
// buffer.
func (a *AT) Drain(d time.Duration) int {
	a.scratch.Reset()
	for !a.scratch.Full() {
		c, err := a.modem.ReadByte(d)
		if err != nil {
			break
		}
		a.scratch.Append(c)
	}
	if a.scratch.Full() {
		a.log.Debug("drain reached maximum buffer size")
	}
	n := a.scratch.Len()
	if n > 0 {
		a.log.Debug("drained", zap.ByteString("rsp", a.scratch.Bytes()))
	}
	return n
}

// ReadResponse reads a response from the modem into the scratch buffer.
//
// The read completes successfully when crlfs CRLF sequences have been read,
// or when the scratch buffer is full. crlfs less than 1 is treated as 1.
//
// Returns ErrTimeout if the read does not complete within the timeout.
//
// The scratch buffer is cleared before the read, not after, so a partial
// response remains available via Response after a failure.
func (a *AT) ReadResponse(timeout time.Duration, crlfs int) error {
	if crlfs < 1 {
		crlfs = 1
	}
	a.scratch.Reset()
	deadline := time.Now().Add(timeout)
	seenCR := false
	count := 0
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			a.log.Debug("receive timeout", zap.ByteString("rsp", a.scratch.Bytes()))
			return ErrTimeout
		}
		c, err := a.modem.ReadByte(remaining)
		if err != nil {
			if isTimeout(err) {
				a.log.Debug("receive timeout", zap.ByteString("rsp", a.scratch.Bytes()))
				return ErrTimeout
			}
			return errors.Wrap(err, "read")
		}
		a.scratch.Append(c)
		switch {
		case c == '\r':
			seenCR = true
		case c == '\n' && seenCR:
			seenCR = false
			count++
			if count >= crlfs {
				a.log.Debug("receive", zap.ByteString("rsp", a.scratch.Bytes()))
				return nil
			}
		default:
			seenCR = false
		}
		if a.scratch.Full() {
			a.log.Debug("received maximum buffer size", zap.ByteString("rsp", a.scratch.Bytes()))
			return nil
		}
	}
}

// Expect reads responses from the modem until one contains the token.
//
// The first read waits for crlfs CRLF sequences, subsequent reads for a
// single CRLF, so command echoes and blank lines preceding the expected
// response are skipped. A leading line starting with "AT" is taken to be the
// echo of the command and is not searched for the token or errors.
//
// Returns the corresponding error if the modem returns an error line rather
// than the token, or ErrTimeout if the token is not received within the
// timeout.
//
// On success the response containing the token is available via Response.
func (a *AT) Expect(timeout time.Duration, token string, crlfs int) error {
	return a.expect(timeout, token, crlfs, false)
}

// ExpectInfo reads responses from the modem until one contains the info
// line prefix.
//
// As per Expect, except that ErrNoInfo is returned if the modem completes the
// response with a bare OK, or returns other lines and then times out, without
// sending the prefix.
func (a *AT) ExpectInfo(timeout time.Duration, prefix string) error {
	return a.expect(timeout, prefix, 1, true)
}

func (a *AT) expect(timeout time.Duration, token string, crlfs int, infoLine bool) error {
	deadline := time.Now().Add(timeout)
	seen := false
	for {
		if err := a.ReadResponse(time.Until(deadline), crlfs); err != nil {
			if infoLine && seen && err == ErrTimeout {
				return ErrNoInfo
			}
			return err
		}
		rsp := stripEcho(a.scratch.Bytes())
		if info.Contains(rsp, token) {
			return nil
		}
		if err := newError(rsp); err != nil {
			return err
		}
		line := bytes.TrimSpace(rsp)
		if infoLine && len(line) > 0 {
			if string(line) == "OK" {
				return ErrNoInfo
			}
			seen = true
		}
		crlfs = 1
	}
}

// stripEcho returns the response following a leading command echo line.
func stripEcho(rsp []byte) []byte {
	if !bytes.HasPrefix(rsp, []byte("AT")) {
		return rsp
	}
	idx := bytes.Index(rsp, []byte("\r\n"))
	if idx < 0 {
		return nil
	}
	return rsp[idx+2:]
}

// Response returns the contents of the scratch buffer.
//
// The slice is only valid until the next command or read.
func (a *AT) Response() []byte {
	return a.scratch.Bytes()
}

// ReadPayload copies n bytes of payload from the modem into dst.
//
// CR and LF bytes are discarded and do not count towards n. The copy stops
// early, without error, if dst becomes full. Returns ErrTimeout if the
// payload is not received within the timeout.
//
// Returns the number of raw bytes read from the modem.
func (a *AT) ReadPayload(dst *buffer.Fixed, n int, timeout time.Duration) (int, error) {
	deadline := time.Now().Add(timeout)
	raw := 0
	for copied := 0; copied < n && !dst.Full(); {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return raw, ErrTimeout
		}
		c, err := a.modem.ReadByte(remaining)
		if err != nil {
			if isTimeout(err) {
				return raw, ErrTimeout
			}
			return raw, errors.Wrap(err, "read")
		}
		raw++
		if c == '\r' || c == '\n' {
			continue
		}
		dst.Append(c)
		copied++
	}
	return raw, nil
}

func isTimeout(err error) bool {
	t, ok := errors.Cause(err).(interface{ Timeout() bool })
	return ok && t.Timeout()
}

// CMEError indicates a CME Error was returned by the modem.
//
// The value is the error value, in string form, which may be the numeric or
// textual, depending on the modem configuration.
type CMEError string

// CMSError indicates a CMS Error was returned by the modem.
//
// The value is the error value, in string form, which may be the numeric or
// textual, depending on the modem configuration.
type CMSError string

func (e CMEError) Error() string {
	return string("CME Error: " + e)
}

func (e CMSError) Error() string {
	return string("CMS Error: " + e)
}

var (
	// ErrError indicates the modem returned a generic AT ERROR in response to
	// an operation.
	ErrError = errors.New("ERROR")

	// ErrTimeout indicates the modem did not return the expected response
	// within the timeout.
	ErrTimeout = errors.New("timeout")

	// ErrNoInfo indicates the modem responded without the expected info line.
	ErrNoInfo = errors.New("no info line")
)

const (
	cmeErrorPrefix = "+CME ERROR:"
	cmsErrorPrefix = "+CMS ERROR:"
)

// newError searches a response for an error line and creates an error
// corresponding to the content.
//
// Returns nil if the response contains no error.
func newError(rsp []byte) error {
	if idx := info.Index(rsp, cmeErrorPrefix, 0); idx >= 0 {
		return CMEError(errorValue(rsp[idx+len(cmeErrorPrefix):]))
	}
	if idx := info.Index(rsp, cmsErrorPrefix, 0); idx >= 0 {
		return CMSError(errorValue(rsp[idx+len(cmsErrorPrefix):]))
	}
	if info.Contains(rsp, "ERROR") {
		return ErrError
	}
	return nil
}

// errorValue returns the remainder of the error line.
func errorValue(b []byte) string {
	line := string(b)
	if idx := strings.IndexAny(line, "\r\n"); idx != -1 {
		line = line[:idx]
	}
	return strings.TrimSpace(line)
}
