// Package sim is a strip.Driver that keeps everything in memory. It records what it was asked
// to do, can be told to fail, and can pretend transmissions take as long as real ones.
package sim

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Jon-Bright/ws281x/strip"
)

const (
	OpInit   = "init"
	OpWait   = "wait"
	OpRender = "render"
	OpFini   = "fini"

	resetTime = 55 * time.Microsecond
	// maxCount stops a silly COUNT from allocating gigabytes.
	maxCount = 1 << 16
)

// Frame is a copy of the channel buffers at the moment Render was called.
type Frame [strip.NumChannels][]uint32

type Driver struct {
	// Calls lists every operation in order.
	Calls []string
	// Frames holds one entry per successful Render.
	Frames []Frame
	// Fail makes the named operation return the given status, once.
	Fail map[string]strip.Status
	// AllowReinit lets Init succeed while already initialized. Otherwise it fails with
	// StatusGeneric.
	AllowReinit bool
	// Realtime makes Wait block until the previous frame would have finished sending.
	Realtime bool

	log         zerolog.Logger
	initialized bool
	busyUntil   time.Time
	now         func() time.Time
	sleep       func(time.Duration)
}

type Option func(*Driver)

func WithLogger(l zerolog.Logger) Option {
	return func(d *Driver) {
		d.log = l
	}
}

func New(opts ...Option) *Driver {
	d := &Driver{
		Fail:  map[string]strip.Status{},
		log:   zerolog.Nop(),
		now:   time.Now,
		sleep: time.Sleep,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

func (d *Driver) failure(op string) (strip.Status, bool) {
	d.Calls = append(d.Calls, op)
	st, ok := d.Fail[op]
	if ok {
		delete(d.Fail, op)
	}
	return st, ok
}

func (d *Driver) Init(c *strip.Config) strip.Status {
	if st, ok := d.failure(OpInit); ok {
		return st
	}
	if d.initialized && !d.AllowReinit {
		return strip.StatusGeneric
	}
	for i := 0; i < strip.NumChannels; i++ {
		if n := c.Channel(i).Count(); n < 0 || n > maxCount {
			return strip.StatusOutOfMemory
		}
	}
	for i := 0; i < strip.NumChannels; i++ {
		ch := c.Channel(i)
		if ch.Count() == 0 {
			ch.DetachLeds()
			continue
		}
		ch.AttachLeds(make([]uint32, ch.Count()))
	}
	d.initialized = true
	d.busyUntil = time.Time{}
	d.log.Debug().Uint32("freq", c.Freq()).Int("dma", c.DMANum()).Msg("sim init")
	return strip.StatusSuccess
}

func (d *Driver) Wait(c *strip.Config) strip.Status {
	if st, ok := d.failure(OpWait); ok {
		return st
	}
	if d.Realtime {
		if left := d.busyUntil.Sub(d.now()); left > 0 {
			d.sleep(left)
		}
	}
	return strip.StatusSuccess
}

func (d *Driver) Render(c *strip.Config) strip.Status {
	if st, ok := d.failure(OpRender); ok {
		return st
	}
	if !d.initialized {
		return strip.StatusGeneric
	}
	var f Frame
	longest := 0
	for i := range f {
		ch := c.Channel(i)
		if ch.Leds() == nil {
			continue
		}
		f[i] = append([]uint32(nil), ch.Leds()...)
		if n := len(f[i]) * ch.StripType().Resolve().NumColors(); n > longest {
			longest = n
		}
	}
	d.Frames = append(d.Frames, f)
	d.busyUntil = d.now().Add(TransmitTime(longest, c.Freq()))
	d.log.Debug().Int("frame", len(d.Frames)).Msg("sim render")
	return strip.StatusSuccess
}

func (d *Driver) Fini(c *strip.Config) {
	d.Calls = append(d.Calls, OpFini)
	for i := 0; i < strip.NumChannels; i++ {
		c.Channel(i).DetachLeds()
	}
	d.initialized = false
	d.busyUntil = time.Time{}
}

func (d *Driver) StatusString(s strip.Status) string {
	return s.String()
}

// Initialized reports whether Init succeeded without a Fini since.
func (d *Driver) Initialized() bool {
	return d.initialized
}

// TransmitTime is how long sending colors colour bytes takes at freq bits per second, plus the
// reset time that latches them.
func TransmitTime(colors int, freq uint32) time.Duration {
	if freq == 0 {
		return resetTime
	}
	bits := time.Duration(colors) * 8
	return bits*time.Second/time.Duration(freq) + resetTime
}

func (f Frame) String() string {
	return fmt.Sprintf("%08x|%08x", f[0], f[1])
}
