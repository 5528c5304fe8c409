package main

import (
	"sort"

	"github.com/rs/zerolog"

	"github.com/Jon-Bright/ws281x/nrz"
	"github.com/Jon-Bright/ws281x/rpi"
	"github.com/Jon-Bright/ws281x/sim"
	"github.com/Jon-Bright/ws281x/strip"
)

type driverFactory func(s *settings, log zerolog.Logger) strip.Driver

var drivers = map[string]driverFactory{
	"rpi": func(_ *settings, log zerolog.Logger) strip.Driver {
		return rpi.New(rpi.WithLogger(log))
	},
	"nrz": func(s *settings, log zerolog.Logger) strip.Driver {
		return nrz.New(s.spiDev, nrz.WithLogger(log))
	},
	"sim": func(_ *settings, log zerolog.Logger) strip.Driver {
		d := sim.New(sim.WithLogger(log))
		d.Realtime = true
		return d
	},
}

func driverNames() []string {
	var n []string
	for k := range drivers {
		n = append(n, k)
	}
	sort.Strings(n)
	return n
}
