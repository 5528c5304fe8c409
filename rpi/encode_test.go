package rpi

import (
	"testing"

	"github.com/Jon-Bright/ws281x/strip"
)

func TestPWMByteCount(t *testing.T) {
	tests := []struct {
		leds int
		freq uint32
		want int
	}{
		{0, 800000, 40},
		{1, 800000, 64},
		{10, 800000, 280},
		{10, 400000, 264},
		{300, 800000, 7240},
	}
	for _, test := range tests {
		if got := pwmByteCount(test.leds, test.freq); got != test.want {
			t.Errorf("pwmByteCount(%d, %d) got: %d, want %d", test.leds, test.freq, got, test.want)
		}
	}
}

func TestDMABufSize(t *testing.T) {
	tests := []struct {
		bytes int
		want  uint32
	}{
		{280, 4096},
		{4064, 8192},
		{4063, 4096},
		{7344, 8192},
	}
	for _, test := range tests {
		if got := dmaBufSize(test.bytes); got != test.want {
			t.Errorf("dmaBufSize(%d) got: %d, want %d", test.bytes, got, test.want)
		}
	}
}

func filled(n int, v uint32) []uint32 {
	w := make([]uint32, n)
	for i := range w {
		w[i] = v
	}
	return w
}

func TestEncodeChannel(t *testing.T) {
	tests := []struct {
		name string
		ce   channelEncoding
		want []uint32 // channel 0's words, in order
	}{
		{
			"red GRB",
			channelEncoding{0, []uint32{0x00FF0000}, strip.WS2811StripGRB, 255, false},
			[]uint32{0x924924DB, 0x6DB69249, 0x24000000, 0, 0, 0, 0, 0},
		},
		{
			"red GRB inverted",
			channelEncoding{0, []uint32{0x00FF0000}, strip.WS2811StripGRB, 255, true},
			[]uint32{0x6DB6DB24, 0x92496DB6, 0xDBFFFFFF, 0xFFFFFFFF, 0xFFFFFFFF, 0xFFFFFFFF, 0xFFFFFFFF, 0xFFFFFFFF},
		},
		{
			"zero brightness",
			channelEncoding{0, []uint32{0x00FFFFFF}, strip.WS2811StripRGB, 0, false},
			[]uint32{0x92492492, 0x49249249, 0x24000000, 0, 0, 0, 0, 0},
		},
		{
			"no leds",
			channelEncoding{0, nil, strip.WS2811StripRGB, 255, true},
			filled(8, 0xFFFFFFFF),
		},
	}
	for _, test := range tests {
		words := filled(16, 0xDEADBEEF)
		encodeChannel(words, test.ce)
		for i, want := range test.want {
			if got := words[2*i]; got != want {
				t.Errorf("%s: word %d got: %08X, want %08X", test.name, i, got, want)
			}
			if got := words[2*i+1]; got != 0xDEADBEEF {
				t.Errorf("%s: channel 1 word %d touched, got: %08X", test.name, i, got)
			}
		}
	}
}

func TestEncodeChannelOne(t *testing.T) {
	words := filled(8, 0xDEADBEEF)
	encodeChannel(words, channelEncoding{1, []uint32{0x00FF0000}, strip.WS2811StripGRB, 255, false})
	want := []uint32{0xDEADBEEF, 0x924924DB, 0xDEADBEEF, 0x6DB69249, 0xDEADBEEF, 0x24000000, 0xDEADBEEF, 0}
	for i := range want {
		if words[i] != want[i] {
			t.Errorf("word %d got: %08X, want %08X", i, words[i], want[i])
		}
	}
}

func TestEncodeChannelWhite(t *testing.T) {
	// Four colours are 96 bits, exactly three words.
	words := filled(8, 0xDEADBEEF)
	encodeChannel(words, channelEncoding{0, []uint32{0xFF000000}, strip.SK6812StripGRBW, 255, false})
	want := []uint32{0x92492492, 0x49249249, 0x24DB6DB6, 0}
	for i := range want {
		if got := words[2*i]; got != want[i] {
			t.Errorf("word %d got: %08X, want %08X", i, got, want[i])
		}
	}
}

func TestEncodeChannelShortBuffer(t *testing.T) {
	// Must stop at the end of the buffer rather than panic.
	words := make([]uint32, 2)
	encodeChannel(words, channelEncoding{0, []uint32{0xFFFFFF, 0xFFFFFF}, strip.WS2811StripRGB, 255, false})
	if words[0] != 0xDB6DB6DB {
		t.Errorf("word 0 got: %08X, want DB6DB6DB", words[0])
	}
}
