// SPDX-License-Identifier: MIT
//
// Copyright © 2020 Kent Gibson <warthog618@gmail.com>.

package serial

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptions(t *testing.T) {
	patterns := []struct {
		name    string
		options []Option
		cfg     Config
	}{
		{"default", nil, defaultConfig},
		{"port", []Option{WithPort("/dev/ttyAMA0")}, Config{port: "/dev/ttyAMA0", baud: defaultConfig.baud}},
		{"baud", []Option{WithBaud(9600)}, Config{port: defaultConfig.port, baud: 9600}},
		{"both", []Option{WithBaud(9600), WithPort("/dev/ttyAMA0")}, Config{port: "/dev/ttyAMA0", baud: 9600}},
	}
	for _, p := range patterns {
		f := func(t *testing.T) {
			cfg := defaultConfig
			for _, option := range p.options {
				option(&cfg)
			}
			assert.Equal(t, p.cfg, cfg)
		}
		t.Run(p.name, f)
	}
}

func TestNew(t *testing.T) {
	// bogus path
	m, err := New(WithPort("bogusmodem"))
	require.NotNil(t, err)
	assert.Contains(t, err.Error(), "open bogusmodem")
	assert.Nil(t, m)
}

func TestDefaultPort(t *testing.T) {
	assert.Equal(t, defaultConfig.port, DefaultPort())
	assert.NotEmpty(t, DefaultPort())
}

func TestPorts(t *testing.T) {
	ports, err := Ports()
	if err != nil {
		t.Skip("port enumeration unavailable:", err)
	}
	for _, p := range ports {
		assert.NotEmpty(t, p)
	}
}
