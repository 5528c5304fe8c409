package strip

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// SetChannelData copies data into channel's LED buffer, starting at the first LED. Each LED is
// four bytes, least significant first, so 0xWWRRGGBB is staged as BB GG RR WW.
//
// At most channel 0's Count LEDs are copied, whichever channel is being staged, and never more
// than the target buffer holds. Anything beyond is dropped without error. The channel must have
// a non-zero Count and a buffer, i.e. Init must have succeeded.
//
// Nothing reaches the strip until the next Render.
func (c *Config) SetChannelData(channel int, data []byte) error {
	ch, err := c.channel(channel)
	if err != nil {
		return errors.Wrapf(err, "setChannelData(): %d", channel)
	}
	if ch.count == 0 || ch.leds == nil {
		return errors.Wrapf(ErrChannelNotReady, "setChannelData(): %d", channel)
	}
	n := stageBound(len(data), c.channels[0].count)
	copyLeds(ch.leds, data[:n])
	return nil
}

// stageBound is the number of bytes out of size that may be staged with count LEDs.
func stageBound(size, count int) int {
	n := count * LedSize
	if n < 0 {
		n = 0
	}
	if size < n {
		return size
	}
	return n
}

// copyLeds writes b into leds as little-endian uint32s and returns the number of bytes used. A
// trailing partial LED only has the bytes present in b replaced.
func copyLeds(leds []uint32, b []byte) int {
	if room := len(leds) * LedSize; len(b) > room {
		b = b[:room]
	}
	n := len(b)
	i := 0
	for ; len(b) >= LedSize; i++ {
		leds[i] = binary.LittleEndian.Uint32(b)
		b = b[LedSize:]
	}
	for j, v := range b {
		shift := uint(8 * j)
		leds[i] = leds[i]&^(0xff<<shift) | uint32(v)<<shift
	}
	return n
}
