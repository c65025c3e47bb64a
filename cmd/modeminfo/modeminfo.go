// SPDX-License-Identifier: MIT
//
// Copyright © 2018 Kent Gibson <warthog618@gmail.com>.

// modeminfo collects and displays information related to the modem and its
// current state.
//
// This serves as an example of how interact with a modem, as well as
// providing information which may be useful for debugging.
package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/warthog618/sim800/internal/config"
	"github.com/warthog618/sim800/internal/modem"
	"github.com/warthog618/sim800/serial"
	"github.com/warthog618/sim800/sim800"
)

var version = "undefined"

var powerModes = map[string]sim800.PowerMode{
	"minimum": sim800.PowerMinimum,
	"normal":  sim800.PowerNormal,
	"sleep":   sim800.PowerSleep,
}

func main() {
	flags := config.NewFlags(flag.CommandLine)
	list := flag.Bool("l", false, "list available serial ports and exit")
	power := flag.String("p", "", "switch to power mode (minimum, normal or sleep)")
	vsn := flag.Bool("version", false, "report version and exit")
	flag.Parse()
	if *vsn {
		fmt.Printf("%s %s\n", os.Args[0], version)
		os.Exit(0)
	}
	if *list {
		ports, err := serial.Ports()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		for _, p := range ports {
			fmt.Println(p)
		}
		return
	}
	cfg, err := flags.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
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
	if !m.IsReady() {
		log.Error("modem not ready", zap.String("device", cfg.Modem.Device))
		return
	}
	if *power != "" {
		mode, ok := powerModes[*power]
		if !ok {
			log.Error("unknown power mode", zap.String("mode", *power))
			return
		}
		if err := m.SetPowerMode(mode); err != nil {
			log.Error("set power mode", zap.Stringer("mode", mode), zap.Error(err))
			return
		}
	}
	fmt.Printf("device:       %s\n", cfg.Modem.Device)
	fmt.Printf("power mode:   %s\n", m.PowerMode())
	fmt.Printf("registration: %s\n", m.RegistrationStatus())
	fmt.Printf("signal:       %d\n", m.SignalQuality())
}
