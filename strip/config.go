package strip

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const (
	DefaultFreq    = 800000
	DefaultDMANum  = 5
	DefaultGPIONum = 18

	// NumChannels is the number of outputs a Config describes. PWM has exactly two.
	NumChannels = 2
	// LedSize is the size in bytes of one element of a channel buffer.
	LedSize = 4
)

// Param identifies a settable parameter. The numbering is shared with the text boundary.
type Param int

const (
	ParamFreq Param = iota + 1
	ParamDMANum
	ParamGPIONum
	ParamCount
	ParamInvert
	ParamBrightness
	ParamStripType
)

var paramNames = map[Param]string{
	ParamFreq:       "FREQ",
	ParamDMANum:     "DMANUM",
	ParamGPIONum:    "GPIONUM",
	ParamCount:      "COUNT",
	ParamInvert:     "INVERT",
	ParamBrightness: "BRIGHTNESS",
	ParamStripType:  "STRIP_TYPE",
}

func (p Param) String() string {
	if n, ok := paramNames[p]; ok {
		return n
	}
	return "PARAM(" + strconv.Itoa(int(p)) + ")"
}

// ParamByName looks up a parameter by its symbolic name, ignoring case.
func ParamByName(name string) (Param, bool) {
	name = strings.ToUpper(name)
	for p, n := range paramNames {
		if n == name {
			return p, true
		}
	}
	return 0, false
}

// Channel holds the settings of one output. The scalar settings are written through
// Config.SetChannelParam; the LED buffer belongs to the driver.
type Channel struct {
	gpioNum    int
	count      int
	invert     bool
	brightness uint8
	stripType  StripType
	leds       []uint32
}

func (ch *Channel) GPIONum() int         { return ch.gpioNum }
func (ch *Channel) Count() int           { return ch.count }
func (ch *Channel) Invert() bool         { return ch.invert }
func (ch *Channel) Brightness() uint8    { return ch.brightness }
func (ch *Channel) StripType() StripType { return ch.stripType }

// Leds returns the driver-owned buffer, nil before a successful Init.
func (ch *Channel) Leds() []uint32 { return ch.leds }

// AttachLeds hands a buffer to the channel. Only drivers call this, from Init.
func (ch *Channel) AttachLeds(leds []uint32) { ch.leds = leds }

// DetachLeds drops the buffer. Only drivers call this, from Fini.
func (ch *Channel) DetachLeds() { ch.leds = nil }

// Config is the state shared between a caller and a Driver: the global signal parameters and
// the two channels. It does no locking; use it from one goroutine at a time.
type Config struct {
	freq     uint32
	dmaNum   int
	channels [NumChannels]Channel
}

// NewConfig returns a Config with the defaults: 800kHz, DMA 5, channel 0 on GPIO 18 at full
// brightness, channel 1 unused.
func NewConfig() *Config {
	c := &Config{
		freq:   DefaultFreq,
		dmaNum: DefaultDMANum,
	}
	c.channels[0] = Channel{
		gpioNum:    DefaultGPIONum,
		brightness: 255,
	}
	return c
}

func (c *Config) Freq() uint32 { return c.freq }
func (c *Config) DMANum() int  { return c.dmaNum }

// Channel returns channel i, or nil if i is not 0 or 1.
func (c *Config) Channel(i int) *Channel {
	if i < 0 || i >= NumChannels {
		return nil
	}
	return &c.channels[i]
}

func (c *Config) channel(i int) (*Channel, error) {
	ch := c.Channel(i)
	if ch == nil {
		return nil, ErrInvalidChannel
	}
	return ch, nil
}

// SetParam sets a global parameter, FREQ or DMANUM. Changes only reach the hardware on the next
// Init.
func (c *Config) SetParam(p Param, value int) error {
	switch p {
	case ParamFreq:
		c.freq = uint32(value)
	case ParamDMANum:
		c.dmaNum = value
	default:
		return errors.Wrapf(ErrInvalidParameter, "setParam(): %v", p)
	}
	return nil
}

// SetChannelParam sets one parameter of channel. BRIGHTNESS keeps the low 8 bits of value and
// INVERT is true for any non-zero value; everything else is stored unchecked, it's up to the
// driver to reject what it can't handle.
func (c *Config) SetChannelParam(channel int, p Param, value int) error {
	ch, err := c.channel(channel)
	if err != nil {
		return errors.Wrapf(err, "setChannelParam(): %d", channel)
	}
	switch p {
	case ParamGPIONum:
		ch.gpioNum = value
	case ParamCount:
		ch.count = value
	case ParamInvert:
		ch.invert = value != 0
	case ParamBrightness:
		ch.brightness = uint8(value)
	case ParamStripType:
		ch.stripType = StripType(value)
	default:
		return errors.Wrapf(ErrInvalidParameter, "setChannelParam(): %v", p)
	}
	return nil
}
