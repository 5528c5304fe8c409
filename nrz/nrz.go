// Package nrz drives channel 0 of a strip.Config over an SPI bus, letting periph's nrzled
// encoder turn every data bit into an SPI symbol. It works on any board periph supports and
// needs no DMA, but has a single data line and no inversion.
package nrz

import (
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/nrzled"
	"periph.io/x/host/v3"

	"github.com/Jon-Bright/ws281x/strip"
)

// Driver implements strip.Driver on top of nrzled.
type Driver struct {
	log  zerolog.Logger
	open func() (spi.PortCloser, error)

	initialized bool
	port        spi.PortCloser
	dev         *nrzled.Dev
	colors      int
	raw         []byte
}

type Option func(*Driver)

func WithLogger(l zerolog.Logger) Option {
	return func(d *Driver) {
		d.log = l
	}
}

// WithPort replaces the SPI port lookup. open is called once per Init.
func WithPort(open func() (spi.PortCloser, error)) Option {
	return func(d *Driver) {
		d.open = open
	}
}

// New returns a driver for the named SPI port, e.g. "/dev/spidev0.0" or "SPI0.0". An empty
// name picks the first port periph finds.
func New(name string, opts ...Option) *Driver {
	d := &Driver{
		log: zerolog.Nop(),
		open: func() (spi.PortCloser, error) {
			if _, err := host.Init(); err != nil {
				return nil, errors.Wrap(err, "couldn't initialize periph host")
			}
			p, err := spireg.Open(name)
			if err != nil {
				return nil, errors.Wrapf(err, "couldn't open SPI port %q", name)
			}
			return p, nil
		},
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// SPIFreq is the bus clock that sends one strip bit as three SPI bits at freq, with a little
// headroom.
func SPIFreq(freq uint32) physic.Frequency {
	return physic.Frequency(freq)*3*physic.Hertz + 100*physic.KiloHertz
}

func (d *Driver) Init(c *strip.Config) strip.Status {
	if d.initialized {
		d.release(c)
	}
	ch0, ch1 := c.Channel(0), c.Channel(1)
	if ch0.Count() < 0 || ch1.Count() < 0 {
		return strip.StatusOutOfMemory
	}
	if ch1.Count() > 0 {
		d.log.Warn().Int("count", ch1.Count()).Msg("SPI has a single data line, channel 1 can't be used")
		return strip.StatusSPISetup
	}
	if ch0.Invert() {
		d.log.Warn().Msg("SPI output can't be inverted")
		return strip.StatusSPISetup
	}
	if c.Freq() == 0 {
		return strip.StatusSPISetup
	}
	ch1.DetachLeds()

	if ch0.Count() == 0 {
		ch0.DetachLeds()
		d.initialized = true
		return strip.StatusSuccess
	}

	port, err := d.open()
	if err != nil {
		d.log.Warn().Err(err).Msg("couldn't open SPI")
		return strip.StatusSPISetup
	}
	d.colors = ch0.StripType().Resolve().NumColors()
	opts := nrzled.Opts{
		NumPixels: ch0.Count(),
		Channels:  d.colors,
		Freq:      SPIFreq(c.Freq()),
	}
	dev, err := nrzled.NewSPI(port, &opts)
	if err != nil {
		port.Close() // Ignore error
		d.log.Warn().Err(err).Msg("couldn't set up nrzled")
		return strip.StatusSPISetup
	}
	d.port, d.dev = port, dev
	d.raw = make([]byte, ch0.Count()*d.colors)
	ch0.AttachLeds(make([]uint32, ch0.Count()))
	d.initialized = true
	d.log.Debug().Stringer("dev", dev).Stringer("spi", opts.Freq).Int("leds", opts.NumPixels).Msg("nrz init")
	return strip.StatusSuccess
}

// Wait returns immediately: SPI transfers finish before Render returns.
func (d *Driver) Wait(c *strip.Config) strip.Status {
	return strip.StatusSuccess
}

func (d *Driver) Render(c *strip.Config) strip.Status {
	if !d.initialized {
		return strip.StatusGeneric
	}
	if d.dev == nil {
		return strip.StatusSuccess
	}
	ch := c.Channel(0)
	t := ch.StripType().Resolve()
	if t.NumColors() != d.colors {
		d.log.Warn().Stringer("type", t).Int("colors", d.colors).Msg("strip type changed since init")
		return strip.StatusGeneric
	}
	fillRaw(d.raw, ch.Leds(), t, ch.Brightness())
	if _, err := d.dev.Write(d.raw); err != nil {
		d.log.Warn().Err(err).Msg("SPI write failed")
		return strip.StatusSPITransfer
	}
	return strip.StatusSuccess
}

func (d *Driver) Fini(c *strip.Config) {
	d.release(c)
}

func (d *Driver) StatusString(s strip.Status) string {
	return s.String()
}

func (d *Driver) release(c *strip.Config) {
	for i := 0; i < strip.NumChannels; i++ {
		c.Channel(i).DetachLeds()
	}
	if d.dev != nil {
		if err := d.dev.Halt(); err != nil {
			d.log.Warn().Err(err).Msg("couldn't blank strip")
		}
	}
	if d.port != nil {
		if err := d.port.Close(); err != nil {
			d.log.Warn().Err(err).Msg("couldn't close SPI port")
		}
	}
	d.initialized = false
	d.port, d.dev, d.raw, d.colors = nil, nil, nil, 0
}

// fillRaw lays leds out the way nrzled expects them. nrzled takes R, G, B(, W) and sends G first,
// so the first two wire colours are swapped going in.
func fillRaw(raw []byte, leds []uint32, t strip.StripType, brightness uint8) {
	var wire [4]byte
	n := t.NumColors()
	for i, led := range leds {
		if (i+1)*n > len(raw) {
			return
		}
		t.Encode(wire[:], led, brightness)
		px := raw[i*n : (i+1)*n]
		px[0], px[1], px[2] = wire[1], wire[0], wire[2]
		if n == 4 {
			px[3] = wire[3]
		}
	}
}
