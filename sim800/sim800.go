// SPDX-License-Identifier: MIT
//
// Copyright © 2020 Kent Gibson <warthog618@gmail.com>.

// Package sim800 provides a driver for SIMCom SIM800 modems, supporting
// HTTP/S GET and POST over GPRS as well as basic status queries.
package sim800

import (
	"time"

	"go.uber.org/zap"

	"github.com/warthog618/sim800/at"
	"github.com/warthog618/sim800/buffer"
	"github.com/warthog618/sim800/info"
)

// Modem decorates the AT modem with SIM800 specific functionality.
//
// A Modem is not safe for concurrent use.
type Modem struct {
	*at.AT

	// the payload of the most recent successful HTTP request
	recv    *buffer.Fixed
	recvLen int

	cmdTimeout        time.Duration
	modeSwitchTimeout time.Duration

	log *zap.Logger
}

// Option is a construction option for a Modem.
type Option func(*Modem)

// DefaultRecvSize is the default capacity of the receive buffer.
const DefaultRecvSize = 512

const (
	gprsSetupTimeout   = 20 * time.Second
	gprsConnectTimeout = 65 * time.Second
)

// New creates a new SIM800 modem.
func New(a *at.AT, options ...Option) *Modem {
	m := &Modem{
		AT:                a,
		cmdTimeout:        5 * time.Second,
		modeSwitchTimeout: 10 * time.Second,
		log:               zap.NewNop(),
	}
	for _, option := range options {
		option(m)
	}
	if m.recv == nil {
		m.recv = buffer.New(DefaultRecvSize)
	}
	return m
}

// WithRecvSize sets the capacity of the buffer that holds HTTP payloads.
//
// Payloads longer than the capacity are truncated.
//
// The default size is 512 bytes.
func WithRecvSize(n int) Option {
	return func(m *Modem) {
		m.recv = buffer.New(n)
	}
}

// WithCommandTimeout sets the time allowed for the modem to respond to a
// command.
//
// The default timeout is 5 seconds.
func WithCommandTimeout(d time.Duration) Option {
	return func(m *Modem) {
		m.cmdTimeout = d
	}
}

// WithModeSwitchTimeout sets the idle period used to discard the modem's
// response to a power mode change.
//
// The default is 10 seconds.
func WithModeSwitchTimeout(d time.Duration) Option {
	return func(m *Modem) {
		m.modeSwitchTimeout = d
	}
}

// WithLogger specifies the logger used to log modem operations.
func WithLogger(l *zap.Logger) Option {
	return func(m *Modem) {
		if l != nil {
			m.log = l
		}
	}
}

// PowerMode is the functionality level of the modem.
type PowerMode int

const (
	// PowerMinimum is minimum functionality (AT+CFUN=0).
	PowerMinimum PowerMode = iota
	// PowerNormal is full functionality (AT+CFUN=1).
	PowerNormal
	// PowerSleep is flight mode, with the RF circuits disabled (AT+CFUN=4).
	PowerSleep
	// PowerUnknown indicates the modem reported an unrecognised mode.
	PowerUnknown
	// PowerError indicates the mode could not be determined.
	PowerError
)

func (p PowerMode) String() string {
	switch p {
	case PowerMinimum:
		return "minimum"
	case PowerNormal:
		return "normal"
	case PowerSleep:
		return "sleep"
	case PowerUnknown:
		return "unknown"
	default:
		return "error"
	}
}

// Registration is the network registration status of the modem.
type Registration int

// Registration states, as reported by +CREG.
const (
	NotRegistered Registration = iota
	RegisteredHome
	Searching
	Denied
	RegisteredRoaming
	RegistrationUnknown
	RegistrationError
)

func (r Registration) String() string {
	switch r {
	case NotRegistered:
		return "not registered"
	case RegisteredHome:
		return "registered home"
	case Searching:
		return "searching"
	case Denied:
		return "denied"
	case RegisteredRoaming:
		return "registered roaming"
	case RegistrationUnknown:
		return "unknown"
	default:
		return "error"
	}
}

// IsReady returns true if the modem responds to a basic AT command.
func (m *Modem) IsReady() bool {
	return m.run("", m.cmdTimeout) == nil
}

// PowerMode returns the current power mode of the modem.
func (m *Modem) PowerMode() PowerMode {
	rsp, err := m.query("+CFUN?", "+CFUN: ")
	if err == ErrMalformedResponse {
		return PowerUnknown
	}
	if err != nil {
		return PowerError
	}
	switch rsp[len("+CFUN: ")] {
	case '0':
		return PowerMinimum
	case '1':
		return PowerNormal
	case '4':
		return PowerSleep
	default:
		return PowerUnknown
	}
}

// SetPowerMode switches the modem to the requested power mode.
//
// From the sleep and minimum modes only a switch to normal is allowed.
func (m *Modem) SetPowerMode(mode PowerMode) error {
	var cmd string
	switch mode {
	case PowerMinimum:
		cmd = "+CFUN=0"
	case PowerNormal:
		cmd = "+CFUN=1"
	case PowerSleep:
		cmd = "+CFUN=4"
	default:
		return ErrInvalidPowerMode
	}
	current := m.PowerMode()
	if current == PowerUnknown || current == PowerError {
		return ErrPowerModeUnavailable
	}
	if current == mode {
		return nil
	}
	if (current == PowerSleep || current == PowerMinimum) && mode != PowerNormal {
		return ErrPowerTransition
	}
	if err := m.Command(cmd); err != nil {
		return err
	}
	// the reply is of no interest, the result is checked by re-query
	m.Drain(m.modeSwitchTimeout)
	current = m.PowerMode()
	if current != mode {
		m.log.Warn("power mode not reached",
			zap.Stringer("requested", mode),
			zap.Stringer("current", current))
		return ErrPowerModeNotReached
	}
	return nil
}

// RegistrationStatus returns the current network registration status.
func (m *Modem) RegistrationStatus() Registration {
	rsp, err := m.query("+CREG?", "+CREG: ")
	if err == ErrMalformedResponse {
		return RegistrationUnknown
	}
	if err != nil {
		return RegistrationError
	}
	// +CREG: <n>,<stat>
	d, ok := info.Digit(rsp, len("+CREG: ")+2)
	if !ok {
		return RegistrationUnknown
	}
	switch d {
	case 0:
		return NotRegistered
	case 1:
		return RegisteredHome
	case 2:
		return Searching
	case 3:
		return Denied
	case 5:
		return RegisteredRoaming
	default:
		return RegistrationUnknown
	}
}

// SignalQuality returns the received signal strength indication, in the range
// 0 to 31.
//
// Returns 0 if the signal strength is not known or cannot be determined.
func (m *Modem) SignalQuality() uint8 {
	rsp, err := m.query("+CSQ", "+CSQ: ")
	if err != nil {
		return 0
	}
	// +CSQ: <rssi>,<ber>
	v, n := info.ParseUint(rsp, len("+CSQ: "))
	if n == 0 || n > 2 || len(rsp) <= len("+CSQ: ")+n || rsp[len("+CSQ: ")+n] != ',' {
		return 0
	}
	if v > 31 {
		return 0
	}
	return uint8(v)
}

// SetupGPRS configures the GPRS bearer to use the APN.
func (m *Modem) SetupGPRS(apn string) error {
	if err := m.run("+SAPBR=3,1,\"Contype\",\"GPRS\"", gprsSetupTimeout); err != nil {
		return err
	}
	return m.runQuoted("+SAPBR=3,1,\"APN\",", apn, gprsSetupTimeout)
}

// ConnectGPRS opens the GPRS bearer.
func (m *Modem) ConnectGPRS() error {
	return m.run("+SAPBR=1,1", gprsConnectTimeout)
}

// DisconnectGPRS closes the GPRS bearer.
func (m *Modem) DisconnectGPRS() error {
	return m.run("+SAPBR=0,1", gprsConnectTimeout)
}

// run issues a command and expects an OK within the timeout.
func (m *Modem) run(cmd string, timeout time.Duration) error {
	if err := m.Command(cmd); err != nil {
		return err
	}
	return m.Expect(timeout, "OK", 1)
}

// runQuoted issues a command with a quoted parameter and expects an OK within
// the timeout.
func (m *Modem) runQuoted(cmd, param string, timeout time.Duration) error {
	if err := m.CommandQuoted(cmd, param); err != nil {
		return err
	}
	return m.Expect(timeout, "OK", 1)
}

// query issues a command and returns the response from the prefix onwards.
//
// Returns ErrMalformedResponse if the modem responds without the prefix.
//
// The returned slice is guaranteed to extend at least one byte beyond the
// prefix.
func (m *Modem) query(cmd, prefix string) ([]byte, error) {
	if err := m.Command(cmd); err != nil {
		return nil, err
	}
	if err := m.ExpectInfo(m.cmdTimeout, prefix); err != nil {
		m.log.Debug("query failed", zap.String("cmd", cmd), zap.Error(err))
		if err == at.ErrNoInfo {
			return nil, ErrMalformedResponse
		}
		return nil, err
	}
	rsp := m.Response()
	rsp = rsp[info.Index(rsp, prefix, 0):]
	if len(rsp) <= len(prefix) {
		return nil, ErrMalformedResponse
	}
	return rsp, nil
}
