// SPDX-License-Identifier: MIT
//
// Copyright © 2020 Kent Gibson <warthog618@gmail.com>.

// httppost performs an HTTP POST over GPRS and displays the result.
package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/warthog618/sim800/internal/config"
	"github.com/warthog618/sim800/internal/modem"
	"github.com/warthog618/sim800/sim800"
)

func main() {
	flags := config.NewFlags(flag.CommandLine)
	url := flag.String("u", "http://example.com", "URL to post to")
	contentType := flag.String("ct", "application/json", "content type of the payload")
	msg := flag.String("m", "{}", "the payload to post")
	file := flag.String("f", "", "file containing the payload, overrides -m")
	gprs := flag.Bool("g", true, "setup and connect GPRS before the request")
	flag.Parse()
	cfg, err := flags.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	payload := []byte(*msg)
	if *file != "" {
		payload, err = os.ReadFile(*file)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
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
		if err := m.SetupGPRS(cfg.HTTP.APN); err != nil {
			log.Error("setup gprs", zap.String("apn", cfg.HTTP.APN), zap.Error(err))
			return
		}
		if err := m.ConnectGPRS(); err != nil {
			log.Error("connect gprs", zap.Error(err))
			return
		}
		defer m.DisconnectGPRS()
	}
	status, err := m.Post(*url, *contentType, payload,
		cfg.HTTP.ClientWriteTimeout.Duration, cfg.HTTP.ServerTimeout.Duration)
	if err != nil {
		log.Error("post", zap.String("url", *url), zap.Int("code", sim800.StatusCode(status, err)), zap.Error(err))
		m.TerminateHTTP()
		return
	}
	fmt.Printf("%d\n%s\n", status, m.ReceivedData())
}
