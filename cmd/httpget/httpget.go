// SPDX-License-Identifier: MIT
//
// Copyright © 2020 Kent Gibson <warthog618@gmail.com>.

// httpget performs an HTTP GET over GPRS and displays the result.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/warthog618/sim800/internal/config"
	"github.com/warthog618/sim800/internal/modem"
	"github.com/warthog618/sim800/sim800"
)

func main() {
	flags := config.NewFlags(flag.CommandLine)
	url := flag.String("u", "http://example.com", "URL to get")
	serverTimeout := flag.Duration("s", 0, "server response timeout (defaults to config)")
	gprs := flag.Bool("g", true, "setup and connect GPRS before the request")
	flag.Parse()
	cfg, err := flags.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *serverTimeout != 0 {
		cfg.HTTP.ServerTimeout.Duration = *serverTimeout
	}
	log, err := modem.NewLogger(cfg.Verbose)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()
	m, c, err := modem.Open(cfg, log)
	if err != nil {
		log.Fatal("open modem", zap.Error(err))
	}
	defer c.Close()
	if *gprs {
		if err := connect(m, cfg.HTTP.APN); err != nil {
			log.Error("connect gprs", zap.String("apn", cfg.HTTP.APN), zap.Error(err))
			return
		}
		defer m.DisconnectGPRS()
	}
	start := time.Now()
	status, err := m.Get(*url, cfg.HTTP.ServerTimeout.Duration)
	if err != nil {
		log.Error("get", zap.String("url", *url), zap.Int("code", sim800.StatusCode(status, err)), zap.Error(err))
		m.TerminateHTTP()
		return
	}
	log.Info("get", zap.String("url", *url), zap.Int("status", status),
		zap.Int("length", m.ReceivedLength()), zap.Duration("elapsed", time.Since(start)))
	fmt.Printf("%d\n%s\n", status, m.ReceivedData())
}

func connect(m *sim800.Modem, apn string) error {
	if err := m.SetupGPRS(apn); err != nil {
		return err
	}
	return m.ConnectGPRS()
}
