package strip

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
)

// StripType describes the colour order on the wire. Each byte holds the shift that selects, from
// a packed 0xWWRRGGBB LED value, the colour sent in that position: bits 16-23 for the first
// colour, 8-15 for the second, 0-7 for the third and 24-31 for an optional fourth.
type StripType int

const (
	// 4 colour R, G, B and W ordering
	SK6812StripRGBW StripType = 0x18100800
	SK6812StripRBGW StripType = 0x18100008
	SK6812StripGRBW StripType = 0x18081000
	SK6812StripGBRW StripType = 0x18080010
	SK6812StripBRGW StripType = 0x18001008
	SK6812StripBGRW StripType = 0x18000810

	// 3 colour R, G and B ordering
	WS2811StripRGB StripType = 0x00100800
	WS2811StripRBG StripType = 0x00100008
	WS2811StripGRB StripType = 0x00081000
	WS2811StripGBR StripType = 0x00080010
	WS2811StripBRG StripType = 0x00001008
	WS2811StripBGR StripType = 0x00000810

	WS2812Strip  = WS2811StripGRB
	SK6812Strip  = WS2811StripGRB
	SK6812WStrip = SK6812StripGRBW

	sk6812ShiftWMask = 0xf0000000
)

var StringStripTypes = map[string]StripType{
	"RGB":  WS2811StripRGB,
	"RBG":  WS2811StripRBG,
	"GRB":  WS2811StripGRB,
	"GBR":  WS2811StripGBR,
	"BRG":  WS2811StripBRG,
	"BGR":  WS2811StripBGR,
	"RGBW": SK6812StripRGBW,
	"RBGW": SK6812StripRBGW,
	"GRBW": SK6812StripGRBW,
	"GBRW": SK6812StripGBRW,
	"BRGW": SK6812StripBRGW,
	"BGRW": SK6812StripBGRW,
}

// ParseStripType accepts a colour order such as "GRB" or "grbw", or a number in Go syntax.
func ParseStripType(s string) (StripType, error) {
	if t, ok := StringStripTypes[strings.ToUpper(s)]; ok {
		return t, nil
	}
	v, err := strconv.ParseInt(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("couldn't parse strip type %q: %v", s, err)
	}
	return StripType(v), nil
}

// Resolve returns t, or WS2811StripRGB for the zero value, which drivers treat as "unset".
func (t StripType) Resolve() StripType {
	if t == 0 {
		return WS2811StripRGB
	}
	return t
}

// NumColors is 4 for strips with a white channel, 3 otherwise.
func (t StripType) NumColors() int {
	if uint32(t)&sk6812ShiftWMask != 0 {
		return 4
	}
	return 3
}

// Shifts returns the shift of each wire position, in wire order.
func (t StripType) Shifts() [4]uint {
	return [4]uint{
		uint(t>>16) & 0xff,
		uint(t>>8) & 0xff,
		uint(t) & 0xff,
		uint(t>>24) & 0xff,
	}
}

// Encode writes led's colours in wire order to dst, scaled by brightness, and returns the number
// of bytes written (NumColors). dst must hold at least 4 bytes.
func (t StripType) Encode(dst []byte, led uint32, brightness uint8) int {
	scale := uint32(brightness) + 1
	n := t.NumColors()
	sh := t.Shifts()
	for i, s := range sh[:n] {
		dst[i] = byte((((led >> s) & 0xff) * scale) >> 8)
	}
	return n
}

func (t StripType) String() string {
	for n, v := range StringStripTypes {
		if v == t {
			return n
		}
	}
	return fmt.Sprintf("0x%08X", int(t))
}

// Pixel is one LED's colour. W is only sent to strips with a white channel.
type Pixel struct {
	R uint8
	G uint8
	B uint8
	W uint8
}

// Pack returns p as 0xWWRRGGBB, the layout of a channel buffer element.
func (p Pixel) Pack() uint32 {
	return uint32(p.W)<<24 | uint32(p.R)<<16 | uint32(p.G)<<8 | uint32(p.B)
}

func UnpackPixel(v uint32) Pixel {
	return Pixel{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), W: uint8(v >> 24)}
}

func (p Pixel) String() string {
	if p.W != 0 {
		return fmt.Sprintf("%02x%02x%02x%02x", p.R, p.G, p.B, p.W)
	}
	return fmt.Sprintf("%02x%02x%02x", p.R, p.G, p.B)
}

// PixelBytes lays ps out the way SetChannelData expects them.
func PixelBytes(ps []Pixel) []byte {
	b := make([]byte, len(ps)*LedSize)
	for i, p := range ps {
		binary.LittleEndian.PutUint32(b[i*LedSize:], p.Pack())
	}
	return b
}
