// Package ws2811 hands a strip.Config to the rpi_ws281x C library through its Go binding. The
// driver itself needs cgo and the library's headers, so it's only built with the ws2811 tag.
package ws2811

import (
	"strconv"
	"strings"

	"github.com/Jon-Bright/ws281x/strip"
)

// statusFromError recovers the library's return code from the binding's error text, which ends
// in "=<code>" or ": <code>". Anything else gets fallback.
func statusFromError(err error, fallback strip.Status) strip.Status {
	if err == nil {
		return strip.StatusSuccess
	}
	s := err.Error()
	i := strings.LastIndexAny(s, "= ")
	n, perr := strconv.Atoi(s[i+1:])
	if perr != nil || n >= 0 || n < int(strip.StatusSPITransfer) {
		return fallback
	}
	return strip.Status(n)
}
