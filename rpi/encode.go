package rpi

import (
	"github.com/Jon-Bright/ws281x/strip"
)

const (
	symbolHigh    = 0x6 // 1 1 0
	symbolLow     = 0x4 // 1 0 0
	symbolHighInv = 0x1 // 0 0 1
	symbolLowInv  = 0x3 // 0 1 1

	// Worst case per LED, so a strip type change between Init and Render still fits.
	ledColours = 4
	ledResetUS = 55
)

// pwmByteCount calculates the number of bytes needed to store the data for PWM to send - three
// bits per WS281x bit, plus enough bits to provide an appropriate reset time afterwards at the
// given frequency - for both channels.
func pwmByteCount(leds int, freq uint32) int {
	// Every bit transmitted needs 3 bits of buffer, because bits are transmitted as
	// ‾|__ (0) or ‾‾|_ (1). Each color of each pixel needs 8 "real" bits.
	bits := leds * ledColours * 8 * 3

	// At 800kHz, 132 bits of buffer is 44 "real" bits, which take 55us.
	bits += int(uint64(ledResetUS) * uint64(freq) * 3 / 1000000)

	bytes := bits / 8

	// Round up to next uint32
	bytes -= bytes % 4
	bytes += 4

	return bytes * pwmChannels
}

// channelEncoding is what encodeChannel needs to know about one channel.
type channelEncoding struct {
	index      int
	leds       []uint32
	stripType  strip.StripType
	brightness uint8
	invert     bool
}

func encodingFor(index int, ch *strip.Channel) channelEncoding {
	return channelEncoding{
		index:      index,
		leds:       ch.Leds(),
		stripType:  ch.StripType().Resolve(),
		brightness: ch.Brightness(),
		invert:     ch.Invert(),
	}
}

// encodeChannel writes the PWM bit stream for one channel into words. The two PWM channels'
// words alternate, so channel c owns words c, c+2, c+4 and so on. Every word of the channel after
// the data is set to the idle level, which gives the reset time.
func encodeChannel(words []uint32, ce channelEncoding) {
	high, low, idle := uint32(symbolHigh), uint32(symbolLow), uint32(0)
	if ce.invert {
		high, low, idle = symbolHighInv, symbolLowInv, 0xffffffff
	}

	pos := ce.index
	bit := 31
	var word uint32
	var colors [4]byte
	for _, led := range ce.leds {
		n := ce.stripType.Encode(colors[:], led, ce.brightness)
		for _, c := range colors[:n] {
			for k := 7; k >= 0; k-- {
				symbol := low
				if c&(1<<uint(k)) != 0 {
					symbol = high
				}
				for l := 2; l >= 0; l-- {
					if symbol&(1<<uint(l)) != 0 {
						word |= 1 << uint(bit)
					}
					bit--
					if bit < 0 {
						if pos >= len(words) {
							return
						}
						words[pos] = word
						pos += pwmChannels
						bit = 31
						word = 0
					}
				}
			}
		}
	}
	if bit != 31 && pos < len(words) {
		// Pad the partial word with the idle level.
		words[pos] = word | idle&(1<<uint(bit+1)-1)
		pos += pwmChannels
	}
	for ; pos < len(words); pos += pwmChannels {
		words[pos] = idle
	}
}
