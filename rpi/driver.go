// Package rpi drives WS281x strips from a Raspberry Pi's PWM block, fed by DMA from VideoCore
// memory. It needs root: everything goes through /dev/mem and the VideoCore mailbox.
package rpi

import (
	"github.com/rs/zerolog"
	"go.uber.org/multierr"

	"github.com/Jon-Bright/ws281x/strip"
)

// Driver implements strip.Driver. One Driver serves one strip.Config at a time.
type Driver struct {
	log          zerolog.Logger
	revisionFile string

	rp   *RPi
	buf  *DMABuf
	pins []int
	// bytes is the length of the PWM data the DMA control block transfers.
	bytes int
}

type Option func(*Driver)

func WithLogger(l zerolog.Logger) Option {
	return func(d *Driver) {
		d.log = l
	}
}

// WithRevisionFile reads the board revision from path instead of the device tree.
func WithRevisionFile(path string) Option {
	return func(d *Driver) {
		d.revisionFile = path
	}
}

func New(opts ...Option) *Driver {
	d := &Driver{
		log:          zerolog.Nop(),
		revisionFile: revisionFile,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// channelPins checks c's channels against the PWM pin table and returns, per channel, the pin
// and alt function to use. Channels without LEDs get pin -1.
func channelPins(c *strip.Config) ([strip.NumChannels][2]int, strip.Status) {
	var pins [strip.NumChannels][2]int
	for i := range pins {
		ch := c.Channel(i)
		pins[i] = [2]int{-1, 0}
		if ch.Count() < 0 {
			return pins, strip.StatusOutOfMemory
		}
		if ch.Count() == 0 {
			continue
		}
		alt, ok := pwmAlt(i, ch.GPIONum())
		if !ok {
			return pins, strip.StatusIllegalGPIO
		}
		pins[i] = [2]int{ch.GPIONum(), alt}
	}
	return pins, strip.StatusSuccess
}

func maxCount(c *strip.Config) int {
	n := 0
	for i := 0; i < strip.NumChannels; i++ {
		if cnt := c.Channel(i).Count(); cnt > n {
			n = cnt
		}
	}
	return n
}

// Init validates c, maps the hardware, allocates the DMA buffer and attaches a buffer to every
// channel with a non-zero count. Calling Init again releases the previous setup first.
func (d *Driver) Init(c *strip.Config) strip.Status {
	if d.rp != nil {
		d.log.Debug().Msg("re-initializing, releasing previous setup")
		d.release(c)
	}

	pins, st := channelPins(c)
	if st != strip.StatusSuccess {
		return st
	}
	if _, ok := dmaOffsets[c.DMANum()]; !ok {
		d.log.Warn().Int("dma", c.DMANum()).Msg("no such DMA channel")
		return strip.StatusDMA
	}
	if c.Freq() == 0 {
		return strip.StatusPWMSetup
	}

	hw, err := detectHardware(d.revisionFile)
	if err != nil {
		d.log.Warn().Err(err).Msg("couldn't detect hardware")
		return strip.StatusHWNotSupported
	}
	d.log.Debug().Stringer("hw", hw).Msg("detected hardware")

	rp, err := newRPi(hw, d.log)
	if err != nil {
		d.log.Warn().Err(err).Msg("couldn't open mailbox")
		return strip.StatusMailboxDevice
	}
	d.rp = rp

	d.bytes = pwmByteCount(maxCount(c), c.Freq())
	d.buf, err = rp.getDMABuf(d.bytes)
	if err != nil {
		d.log.Warn().Err(err).Msg("couldn't allocate DMA buffer")
		d.release(c)
		return strip.StatusOutOfMemory
	}

	for _, mapper := range []func() error{
		func() error { return rp.initDMA(c.DMANum()) },
		rp.initGPIO,
		rp.mapPWM,
	} {
		if err := mapper(); err != nil {
			d.log.Warn().Err(err).Msg("couldn't map registers")
			d.release(c)
			return strip.StatusMapRegisters
		}
	}

	for _, p := range pins {
		if p[0] < 0 {
			continue
		}
		if err := rp.gpioSetAltFunction(p[0], p[1]); err != nil {
			d.log.Warn().Err(err).Int("pin", p[0]).Msg("couldn't set pin function")
			d.release(c)
			return strip.StatusGPIOInit
		}
		d.pins = append(d.pins, p[0])
	}

	if err := rp.initPWM(c.Freq(), d.buf, d.bytes); err != nil {
		d.log.Warn().Err(err).Msg("couldn't set up PWM")
		d.release(c)
		return strip.StatusPWMSetup
	}

	words := d.buf.words()
	for i := 0; i < strip.NumChannels; i++ {
		ch := c.Channel(i)
		if ch.Count() == 0 {
			ch.DetachLeds()
		} else {
			ch.AttachLeds(make([]uint32, ch.Count()))
		}
		encodeChannel(words, encodingFor(i, ch))
	}
	return strip.StatusSuccess
}

// Wait blocks until the DMA engine has sent the previous frame.
func (d *Driver) Wait(c *strip.Config) strip.Status {
	if d.rp == nil || d.rp.dma == nil {
		return strip.StatusSuccess
	}
	if err := d.rp.waitForDMAEnd(); err != nil {
		d.log.Warn().Err(err).Msg("wait failed")
		return strip.StatusDMA
	}
	return strip.StatusSuccess
}

// Render encodes every channel into the DMA buffer and starts the transfer. The caller must
// have called Wait first: the buffer is rewritten in place.
func (d *Driver) Render(c *strip.Config) strip.Status {
	if d.rp == nil {
		return strip.StatusGeneric
	}
	words := d.buf.words()
	for i := 0; i < strip.NumChannels; i++ {
		encodeChannel(words, encodingFor(i, c.Channel(i)))
	}
	d.rp.startDMA(d.buf)
	return strip.StatusSuccess
}

func (d *Driver) Fini(c *strip.Config) {
	d.release(c)
}

func (d *Driver) StatusString(s strip.Status) string {
	return s.String()
}

// release undoes whatever Init got done, in reverse. Failures are logged; there's nobody to
// return them to.
func (d *Driver) release(c *strip.Config) {
	for i := 0; i < strip.NumChannels; i++ {
		c.Channel(i).DetachLeds()
	}
	rp := d.rp
	if rp == nil {
		return
	}
	rp.stopPWM()
	rp.stopDMA()

	var err error
	if rp.gpio != nil {
		for _, p := range d.pins {
			err = multierr.Append(err, rp.gpioSetInput(p))
		}
	}
	if d.buf != nil {
		err = multierr.Append(err, rp.freeDMABuf(d.buf))
	}
	err = multierr.Append(err, rp.unmapAll())
	err = multierr.Append(err, rp.mboxClose())
	if err != nil {
		d.log.Warn().Err(err).Msg("releasing hardware")
	}
	d.rp, d.buf, d.pins, d.bytes = nil, nil, nil, 0
}
