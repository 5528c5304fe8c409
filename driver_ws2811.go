//go:build ws2811

package main

import (
	"github.com/rs/zerolog"

	"github.com/Jon-Bright/ws281x/strip"
	"github.com/Jon-Bright/ws281x/ws2811"
)

func init() {
	drivers["ws2811"] = func(_ *settings, log zerolog.Logger) strip.Driver {
		return ws2811.New(ws2811.WithLogger(log))
	}
}
