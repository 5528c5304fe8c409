//go:build ws2811

package ws2811

import (
	ws "github.com/rpi-ws281x/rpi-ws281x-go"
	"github.com/rs/zerolog"

	"github.com/Jon-Bright/ws281x/strip"
)

// Driver implements strip.Driver with the C library. The channel buffers it attaches are the
// library's own, so staged data goes straight to the memory the library renders from.
type Driver struct {
	log zerolog.Logger
	dev *ws.WS2811
}

type Option func(*Driver)

func WithLogger(l zerolog.Logger) Option {
	return func(d *Driver) {
		d.log = l
	}
}

func New(opts ...Option) *Driver {
	d := &Driver{log: zerolog.Nop()}
	for _, o := range opts {
		o(d)
	}
	return d
}

func options(c *strip.Config) *ws.Option {
	opt := ws.Option{
		Frequency: int(c.Freq()),
		DmaNum:    c.DMANum(),
		Channels:  make([]ws.ChannelOption, strip.NumChannels),
	}
	for i := range opt.Channels {
		ch := c.Channel(i)
		opt.Channels[i] = ws.ChannelOption{
			GpioPin:    ch.GPIONum(),
			Invert:     ch.Invert(),
			LedCount:   ch.Count(),
			StripeType: int(ch.StripType()),
			Brightness: int(ch.Brightness()),
		}
	}
	return &opt
}

func (d *Driver) Init(c *strip.Config) strip.Status {
	if d.dev != nil {
		d.Fini(c)
	}
	dev, err := ws.MakeWS2811(options(c))
	if err != nil {
		d.log.Warn().Err(err).Msg("couldn't create ws2811 device")
		return statusFromError(err, strip.StatusOutOfMemory)
	}
	if err := dev.Init(); err != nil {
		d.log.Warn().Err(err).Msg("ws2811 init failed")
		return statusFromError(err, strip.StatusGeneric)
	}
	d.dev = dev
	for i := 0; i < strip.NumChannels; i++ {
		ch := c.Channel(i)
		if ch.Count() > 0 {
			ch.AttachLeds(dev.Leds(i))
		} else {
			ch.DetachLeds()
		}
	}
	return strip.StatusSuccess
}

func (d *Driver) Wait(c *strip.Config) strip.Status {
	if d.dev == nil {
		return strip.StatusSuccess
	}
	if err := d.dev.Wait(); err != nil {
		return statusFromError(err, strip.StatusDMA)
	}
	return strip.StatusSuccess
}

// Render sends the buffers. Brightness is read by the library at render time, so changes since
// Init apply.
func (d *Driver) Render(c *strip.Config) strip.Status {
	if d.dev == nil {
		return strip.StatusGeneric
	}
	for i := 0; i < strip.NumChannels; i++ {
		d.dev.SetBrightness(i, int(c.Channel(i).Brightness()))
	}
	if err := d.dev.Render(); err != nil {
		return statusFromError(err, strip.StatusGeneric)
	}
	return strip.StatusSuccess
}

func (d *Driver) Fini(c *strip.Config) {
	for i := 0; i < strip.NumChannels; i++ {
		c.Channel(i).DetachLeds()
	}
	if d.dev != nil {
		d.dev.Fini()
		d.dev = nil
	}
}

func (d *Driver) StatusString(s strip.Status) string {
	return s.String()
}
