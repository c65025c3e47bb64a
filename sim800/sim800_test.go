// SPDX-License-Identifier: MIT
//
// Copyright © 2020 Kent Gibson <warthog618@gmail.com>.

//
// Test suite for SIM800 module.
//
// Note that these tests provide a mockModem which does not attempt to emulate
// a serial modem, but which provides responses required to exercise sim800.go
// So, while the commands follow the structure of the AT protocol, the
// responses are only those required to elicit the behaviour under test.

package sim800_test

import (
	"errors"
	"testing"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warthog618/sim800/at"
	"github.com/warthog618/sim800/sim800"
	"github.com/warthog618/sim800/stream"
)

func TestNew(t *testing.T) {
	patterns := []struct {
		name    string
		options []sim800.Option
	}{
		{"default", nil},
		{"recvSize", []sim800.Option{sim800.WithRecvSize(16)}},
		{"timeouts", []sim800.Option{
			sim800.WithCommandTimeout(time.Second),
			sim800.WithModeSwitchTimeout(time.Second),
		}},
		{"nil logger", []sim800.Option{sim800.WithLogger(nil)}},
	}
	for _, p := range patterns {
		f := func(t *testing.T) {
			mm := &mockModem{}
			m := sim800.New(at.New(mm), p.options...)
			require.NotNil(t, m)
			assert.Equal(t, 0, m.ReceivedLength())
			assert.Empty(t, m.ReceivedData())
		}
		t.Run(p.name, f)
	}
}

func TestIsReady(t *testing.T) {
	m, mm := setupModem(t, map[string][]string{"AT\r\n": {"\r\nOK\r\n"}})
	assert.True(t, m.IsReady())
	assert.Equal(t, []string{"AT\r\n"}, mm.writes)

	m, _ = setupModem(t, map[string][]string{})
	assert.False(t, m.IsReady())

	m, _ = setupModem(t, nil)
	assert.False(t, m.IsReady())
}

func TestPowerMode(t *testing.T) {
	patterns := []struct {
		name  string
		rsp   []string
		echo  bool
		mode  sim800.PowerMode
		label string
	}{
		{"minimum", []string{"\r\n+CFUN: 0\r\n", "\r\nOK\r\n"}, false, sim800.PowerMinimum, "minimum"},
		{"normal", []string{"\r\n+CFUN: 1\r\n", "\r\nOK\r\n"}, false, sim800.PowerNormal, "normal"},
		{"sleep", []string{"\r\n+CFUN: 4\r\n", "\r\nOK\r\n"}, false, sim800.PowerSleep, "sleep"},
		{"echo", []string{"\r\n+CFUN: 1\r\n", "\r\nOK\r\n"}, true, sim800.PowerNormal, "normal"},
		{"unknown", []string{"\r\n+CFUN: 7\r\n", "\r\nOK\r\n"}, false, sim800.PowerUnknown, "unknown"},
		{"empty value", []string{"\r\n+CFUN: \r\n", "\r\nOK\r\n"}, false, sim800.PowerUnknown, "unknown"},
		{"error", []string{"\r\nERROR\r\n"}, false, sim800.PowerError, "error"},
		{"cme error", []string{"\r\n+CME ERROR: 10\r\n"}, false, sim800.PowerError, "error"},
		{"no response", nil, false, sim800.PowerError, "error"},
		{"bare ok", []string{"\r\nOK\r\n"}, false, sim800.PowerUnknown, "unknown"},
		{"echo bare ok", []string{"\r\nOK\r\n"}, true, sim800.PowerUnknown, "unknown"},
		{"other line", []string{"\r\nBUSY\r\n"}, false, sim800.PowerUnknown, "unknown"},
	}
	for _, p := range patterns {
		f := func(t *testing.T) {
			cmdSet := map[string][]string{}
			if p.rsp != nil {
				cmdSet["AT+CFUN?\r\n"] = p.rsp
			} else {
				cmdSet = nil
			}
			m, mm := setupModem(t, cmdSet)
			mm.echo = p.echo
			mode := m.PowerMode()
			assert.Equal(t, p.mode, mode)
			assert.Equal(t, p.label, mode.String())
			assert.Equal(t, []string{"AT+CFUN?\r\n"}, mm.writes)
		}
		t.Run(p.name, f)
	}
}

func TestSetPowerMode(t *testing.T) {
	cfun := func(v string) []string {
		return []string{"\r\n+CFUN: " + v + "\r\n", "\r\nOK\r\n"}
	}
	patterns := []struct {
		name    string
		current string
		cmdSet  map[string][]string
		next    map[string]map[string][]string
		mode    sim800.PowerMode
		err     error
		writes  []string
	}{
		{
			"invalid error",
			"1",
			nil,
			nil,
			sim800.PowerError,
			sim800.ErrInvalidPowerMode,
			nil,
		},
		{
			"invalid unknown",
			"1",
			nil,
			nil,
			sim800.PowerUnknown,
			sim800.ErrInvalidPowerMode,
			nil,
		},
		{
			"current unknown",
			"9",
			nil,
			nil,
			sim800.PowerNormal,
			sim800.ErrPowerModeUnavailable,
			[]string{"AT+CFUN?\r\n"},
		},
		{
			"already",
			"1",
			nil,
			nil,
			sim800.PowerNormal,
			nil,
			[]string{"AT+CFUN?\r\n"},
		},
		{
			"sleep to minimum",
			"4",
			nil,
			nil,
			sim800.PowerMinimum,
			sim800.ErrPowerTransition,
			[]string{"AT+CFUN?\r\n"},
		},
		{
			"minimum to sleep",
			"0",
			nil,
			nil,
			sim800.PowerSleep,
			sim800.ErrPowerTransition,
			[]string{"AT+CFUN?\r\n"},
		},
		{
			"sleep to normal",
			"4",
			map[string][]string{"AT+CFUN=1\r\n": {"\r\nOK\r\n", "\r\n+CPIN: READY\r\n"}},
			map[string]map[string][]string{
				"AT+CFUN=1\r\n": {"AT+CFUN?\r\n": cfun("1")},
			},
			sim800.PowerNormal,
			nil,
			[]string{"AT+CFUN?\r\n", "AT+CFUN=1\r\n", "AT+CFUN?\r\n"},
		},
		{
			"sleep to normal not reached",
			"4",
			map[string][]string{"AT+CFUN=1\r\n": {"\r\nOK\r\n"}},
			nil,
			sim800.PowerNormal,
			sim800.ErrPowerModeNotReached,
			[]string{"AT+CFUN?\r\n", "AT+CFUN=1\r\n", "AT+CFUN?\r\n"},
		},
		{
			"normal to sleep",
			"1",
			map[string][]string{"AT+CFUN=4\r\n": {"\r\nOK\r\n"}},
			map[string]map[string][]string{
				"AT+CFUN=4\r\n": {"AT+CFUN?\r\n": cfun("4")},
			},
			sim800.PowerSleep,
			nil,
			[]string{"AT+CFUN?\r\n", "AT+CFUN=4\r\n", "AT+CFUN?\r\n"},
		},
		{
			"normal to minimum",
			"1",
			map[string][]string{"AT+CFUN=0\r\n": {"\r\nOK\r\n"}},
			map[string]map[string][]string{
				"AT+CFUN=0\r\n": {"AT+CFUN?\r\n": cfun("0")},
			},
			sim800.PowerMinimum,
			nil,
			[]string{"AT+CFUN?\r\n", "AT+CFUN=0\r\n", "AT+CFUN?\r\n"},
		},
		{
			"minimum to normal reply ignored",
			"0",
			map[string][]string{"AT+CFUN=1\r\n": {"\r\nERROR\r\n"}},
			map[string]map[string][]string{
				"AT+CFUN=1\r\n": {"AT+CFUN?\r\n": cfun("1")},
			},
			sim800.PowerNormal,
			nil,
			[]string{"AT+CFUN?\r\n", "AT+CFUN=1\r\n", "AT+CFUN?\r\n"},
		},
	}
	for _, p := range patterns {
		f := func(t *testing.T) {
			cmdSet := map[string][]string{"AT+CFUN?\r\n": cfun(p.current)}
			for k, v := range p.cmdSet {
				cmdSet[k] = v
			}
			m, mm := setupModem(t, cmdSet)
			mm.next = p.next
			err := m.SetPowerMode(p.mode)
			assert.Equal(t, p.err, err)
			assert.Equal(t, p.writes, mm.writes)
		}
		t.Run(p.name, f)
	}
}

func TestRegistrationStatus(t *testing.T) {
	patterns := []struct {
		name  string
		rsp   []string
		reg   sim800.Registration
		label string
	}{
		{"not registered", []string{"\r\n+CREG: 0,0\r\n", "\r\nOK\r\n"}, sim800.NotRegistered, "not registered"},
		{"home", []string{"\r\n+CREG: 0,1\r\n", "\r\nOK\r\n"}, sim800.RegisteredHome, "registered home"},
		{"searching", []string{"\r\n+CREG: 0,2\r\n", "\r\nOK\r\n"}, sim800.Searching, "searching"},
		{"denied", []string{"\r\n+CREG: 0,3\r\n", "\r\nOK\r\n"}, sim800.Denied, "denied"},
		{"roaming", []string{"\r\n+CREG: 1,5\r\n", "\r\nOK\r\n"}, sim800.RegisteredRoaming, "registered roaming"},
		{"unknown", []string{"\r\n+CREG: 0,4\r\n", "\r\nOK\r\n"}, sim800.RegistrationUnknown, "unknown"},
		{"short", []string{"\r\n+CREG: 0\r\n", "\r\nOK\r\n"}, sim800.RegistrationUnknown, "unknown"},
		{"error", []string{"\r\nERROR\r\n"}, sim800.RegistrationError, "error"},
		{"bare ok", []string{"\r\nOK\r\n"}, sim800.RegistrationUnknown, "unknown"},
	}
	for _, p := range patterns {
		f := func(t *testing.T) {
			m, mm := setupModem(t, map[string][]string{"AT+CREG?\r\n": p.rsp})
			reg := m.RegistrationStatus()
			assert.Equal(t, p.reg, reg)
			assert.Equal(t, p.label, reg.String())
			assert.Equal(t, []string{"AT+CREG?\r\n"}, mm.writes)
		}
		t.Run(p.name, f)
	}
	m, _ := setupModem(t, nil)
	assert.Equal(t, sim800.RegistrationError, m.RegistrationStatus())
}

func TestSignalQuality(t *testing.T) {
	patterns := []struct {
		name string
		rsp  []string
		echo bool
		csq  uint8
	}{
		{"two digit", []string{"\r\n+CSQ: 15,0\r\n", "\r\nOK\r\n"}, false, 15},
		{"one digit", []string{"\r\n+CSQ: 5,0\r\n", "\r\nOK\r\n"}, false, 5},
		{"echo", []string{"\r\n+CSQ: 21,0\r\n", "\r\nOK\r\n"}, true, 21},
		{"max", []string{"\r\n+CSQ: 31,99\r\n", "\r\nOK\r\n"}, false, 31},
		{"out of range", []string{"\r\n+CSQ: 32,0\r\n", "\r\nOK\r\n"}, false, 0},
		{"not known", []string{"\r\n+CSQ: 99,99\r\n", "\r\nOK\r\n"}, false, 0},
		{"missing", []string{"\r\n+CSQ: ,0\r\n", "\r\nOK\r\n"}, false, 0},
		{"no comma", []string{"\r\n+CSQ: 15\r\n", "\r\nOK\r\n"}, false, 0},
		{"error", []string{"\r\nERROR\r\n"}, false, 0},
		{"bare ok", []string{"\r\nOK\r\n"}, false, 0},
	}
	for _, p := range patterns {
		f := func(t *testing.T) {
			m, mm := setupModem(t, map[string][]string{"AT+CSQ\r\n": p.rsp})
			mm.echo = p.echo
			assert.Equal(t, p.csq, m.SignalQuality())
		}
		t.Run(p.name, f)
	}
}

func TestSetupGPRS(t *testing.T) {
	cmdSet := map[string][]string{
		"AT+SAPBR=3,1,\"Contype\",\"GPRS\"\r\n": {"\r\nOK\r\n"},
		"AT+SAPBR=3,1,\"APN\",\"internet\"\r\n": {"\r\nOK\r\n"},
	}
	m, mm := setupModem(t, cmdSet)
	err := m.SetupGPRS("internet")
	assert.Nil(t, err)
	assert.Equal(t, []string{
		"AT+SAPBR=3,1,\"Contype\",\"GPRS\"\r\n",
		"AT+SAPBR=3,1,\"APN\",\"internet\"\r\n",
	}, mm.writes)

	// bad apn
	m, _ = setupModem(t, cmdSet)
	err = m.SetupGPRS("bogus")
	assert.Equal(t, at.ErrError, err)

	// contype failure skips the apn
	m, mm = setupModem(t, map[string][]string{})
	err = m.SetupGPRS("internet")
	assert.Equal(t, at.ErrError, err)
	assert.Equal(t, []string{"AT+SAPBR=3,1,\"Contype\",\"GPRS\"\r\n"}, mm.writes)
}

func TestConnectGPRS(t *testing.T) {
	m, mm := setupModem(t, map[string][]string{"AT+SAPBR=1,1\r\n": {"\r\nOK\r\n"}})
	assert.Nil(t, m.ConnectGPRS())
	assert.Equal(t, []string{"AT+SAPBR=1,1\r\n"}, mm.writes)

	m, _ = setupModem(t, map[string][]string{})
	assert.Equal(t, at.ErrError, m.ConnectGPRS())

	mm = &mockModem{errOnWrite: true}
	m = sim800.New(at.New(mm))
	assert.Equal(t, errWrite, pkgerrors.Cause(m.ConnectGPRS()))
}

func TestDisconnectGPRS(t *testing.T) {
	m, mm := setupModem(t, map[string][]string{"AT+SAPBR=0,1\r\n": {"\r\nOK\r\n"}})
	assert.Nil(t, m.DisconnectGPRS())
	assert.Equal(t, []string{"AT+SAPBR=0,1\r\n"}, mm.writes)

	m, _ = setupModem(t, map[string][]string{"AT+SAPBR=0,1\r\n": {"\r\n+CME ERROR: 3\r\n"}})
	assert.Equal(t, at.CMEError("3"), m.DisconnectGPRS())
}

var errWrite = errors.New("Write error")

type mockModem struct {
	cmdSet map[string][]string
	// updates applied to cmdSet after the keyed write
	next       map[string]map[string][]string
	echo       bool
	errOnWrite bool
	// writes following the keyed write fail
	failAfter string
	failed    bool
	writes    []string
	// The buffer emulating characters emitted by the modem.
	rx []byte
}

func (m *mockModem) ReadByte(timeout time.Duration) (byte, error) {
	if len(m.rx) == 0 {
		return 0, stream.ErrTimeout
	}
	c := m.rx[0]
	m.rx = m.rx[1:]
	return c, nil
}

func (m *mockModem) Write(p []byte) (int, error) {
	if m.errOnWrite || m.failed {
		return 0, errWrite
	}
	k := string(p)
	m.failed = k == m.failAfter
	m.writes = append(m.writes, k)
	if m.echo {
		m.rx = append(m.rx, p...)
	}
	if m.cmdSet != nil {
		v, ok := m.cmdSet[k]
		if !ok {
			v = []string{"\r\nERROR\r\n"}
		}
		for _, l := range v {
			m.rx = append(m.rx, l...)
		}
	}
	for nk, nv := range m.next[k] {
		m.cmdSet[nk] = nv
	}
	return len(p), nil
}

func (m *mockModem) Flush() error {
	return nil
}

func setupModem(t *testing.T, cmdSet map[string][]string, options ...sim800.Option) (*sim800.Modem, *mockModem) {
	mm := &mockModem{cmdSet: cmdSet}
	options = append([]sim800.Option{sim800.WithModeSwitchTimeout(time.Millisecond)}, options...)
	m := sim800.New(at.New(mm, at.WithDrainTime(time.Millisecond)), options...)
	require.NotNil(t, m)
	return m, mm
}
