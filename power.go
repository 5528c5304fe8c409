package main

import (
	"context"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/warthog618/gpiod"
	"go.uber.org/multierr"
)

const powerPoll = 50 * time.Millisecond

// line is the part of a gpiod.Line the power control uses.
type line interface {
	SetValue(int) error
	Value() (int, error)
	Close() error
}

// Power switches the strip's supply through a GPIO line and optionally waits for a second line
// to report it healthy.
type Power struct {
	log    zerolog.Logger
	chip   io.Closer
	ctrl   line
	status line
	wait   time.Duration

	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

func newPower(ctrl, status line, wait time.Duration, log zerolog.Logger) *Power {
	return &Power{
		log:    log,
		ctrl:   ctrl,
		status: status,
		wait:   wait,
		now:    time.Now,
		sleep:  sleepCtx,
	}
}

// openPower requests the lines from the named chip. The control line starts low. A negative
// statusLine means there's nothing to wait for.
func openPower(chip string, ctrlLine, statusLine int, wait time.Duration, log zerolog.Logger) (*Power, error) {
	c, err := gpiod.NewChip(chip, gpiod.WithConsumer("ws281x"))
	if err != nil {
		return nil, errors.Wrapf(err, "couldn't open GPIO chip %s", chip)
	}
	ctrl, err := c.RequestLine(ctrlLine, gpiod.AsOutput(0))
	if err != nil {
		c.Close() // Ignore error
		return nil, errors.Wrapf(err, "couldn't set power control line %d to output", ctrlLine)
	}
	var status line
	if statusLine >= 0 {
		s, err := c.RequestLine(statusLine, gpiod.AsInput)
		if err != nil {
			ctrl.Close() // Ignore error
			c.Close()    // Ignore error
			return nil, errors.Wrapf(err, "couldn't set power status line %d to input", statusLine)
		}
		status = s
	}
	p := newPower(ctrl, status, wait, log)
	p.chip = c
	return p, nil
}

// On drives the control line high and, if there's a status line, waits up to the configured
// time for it to go high too.
func (p *Power) On(ctx context.Context) error {
	p.log.Info().Msg("power on")
	if err := p.ctrl.SetValue(1); err != nil {
		return errors.Wrap(err, "couldn't set power control high")
	}
	if p.status == nil {
		return nil
	}
	start := p.now()
	for {
		v, err := p.status.Value()
		if err != nil {
			return errors.Wrap(err, "couldn't query power status")
		}
		t := p.now()
		if v != 0 {
			p.log.Info().Dur("after", t.Sub(start)).Msg("power stabilized")
			return nil
		}
		if t.Sub(start) > p.wait {
			return errors.Errorf("timed out waiting for power to be healthy, started %v, now %v", start, t)
		}
		if err := p.sleep(ctx, powerPoll); err != nil {
			return err
		}
	}
}

// Off drives the control line low. It doesn't wait for the status line to follow.
func (p *Power) Off() error {
	p.log.Info().Msg("power off")
	return errors.Wrap(p.ctrl.SetValue(0), "couldn't set power control low")
}

func (p *Power) Close() error {
	err := p.ctrl.Close()
	if p.status != nil {
		err = multierr.Append(err, p.status.Close())
	}
	if p.chip != nil {
		err = multierr.Append(err, p.chip.Close())
	}
	return errors.WithMessage(err, "couldn't release power lines")
}
