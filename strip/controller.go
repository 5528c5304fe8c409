package strip

import (
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// State is the lifecycle position of a Controller.
type State int

const (
	Uninitialized State = iota
	Initialized
	Finalized
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Initialized:
		return "initialized"
	case Finalized:
		return "finalized"
	}
	return "unknown"
}

// Controller sequences a Driver over a Config: Init, then any number of SetChannelData/Render
// rounds, then Finalize.
//
// A Controller is not safe for concurrent use. Render and Finalize block while the driver waits
// for the previous transmission to end; wrap them yourself if you need a timeout.
type Controller struct {
	cfg   *Config
	drv   Driver
	state State
	log   zerolog.Logger
}

type Option func(*Controller)

// WithLogger sets the logger for lifecycle events. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Controller) {
		c.log = l
	}
}

// NewController drives drv with cfg. A nil cfg gets NewConfig's defaults.
func NewController(cfg *Config, drv Driver, opts ...Option) *Controller {
	if cfg == nil {
		cfg = NewConfig()
	}
	c := &Controller{
		cfg: cfg,
		drv: drv,
		log: zerolog.Nop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Controller) Config() *Config { return c.cfg }
func (c *Controller) State() State    { return c.state }

func (c *Controller) SetParam(p Param, value int) error {
	if err := c.cfg.SetParam(p, value); err != nil {
		return err
	}
	c.log.Debug().Stringer("param", p).Int("value", value).Msg("set param")
	return nil
}

func (c *Controller) SetChannelParam(channel int, p Param, value int) error {
	if err := c.cfg.SetChannelParam(channel, p, value); err != nil {
		return err
	}
	c.log.Debug().Int("channel", channel).Stringer("param", p).Int("value", value).Msg("set channel param")
	return nil
}

func (c *Controller) SetChannelData(channel int, data []byte) error {
	return c.cfg.SetChannelData(channel, data)
}

// Init hands the Config to the driver. It is passed through in every state: what a second Init
// without Finalize does is for the driver to say.
func (c *Controller) Init() error {
	c.log.Debug().
		Stringer("state", c.state).
		Uint32("freq", c.cfg.Freq()).
		Int("dma", c.cfg.DMANum()).
		Msg("init")
	if st := c.drv.Init(c.cfg); st != StatusSuccess {
		return c.driverError("init", st)
	}
	c.state = Initialized
	for i := range c.cfg.channels {
		ch := &c.cfg.channels[i]
		if ch.count > 0 && ch.leds == nil {
			c.log.Warn().Int("channel", i).Int("count", ch.count).Msg("driver left channel without buffer")
		}
	}
	return nil
}

// Render waits for the previous frame to go out, then starts sending the staged buffers.
func (c *Controller) Render() error {
	if c.state != Initialized {
		return errors.Wrapf(ErrNotInitialized, "render(): %v", c.state)
	}
	if st := c.drv.Wait(c.cfg); st != StatusSuccess {
		return c.driverError("render", st)
	}
	if st := c.drv.Render(c.cfg); st != StatusSuccess {
		return c.driverError("render", st)
	}
	return nil
}

// Finalize waits for the last frame and releases the driver. The driver is released even if
// waiting fails; that failure is still returned.
func (c *Controller) Finalize() error {
	var err error
	if st := c.drv.Wait(c.cfg); st != StatusSuccess {
		err = c.driverError("finalize", st)
	}
	c.drv.Fini(c.cfg)
	c.log.Debug().Stringer("from", c.state).Msg("finalized")
	c.state = Finalized
	return err
}

func (c *Controller) driverError(op string, st Status) error {
	e := &DriverError{
		Op:      op,
		Status:  st,
		Message: c.drv.StatusString(st),
	}
	c.log.Warn().Str("op", op).Int("status", int(st)).Str("msg", e.Message).Msg("driver failed")
	return e
}
