// Command ws281x runs a script of strip operations, one per line, against a WS281x strip:
//
//	ws281x --driver rpi --count0 60 show.txt
//
// With no script, or "-", it reads standard input. Settings come from flags, then from the
// optional --config YAML file. If the script leaves the strip initialized, or is interrupted,
// the strip is finalized before exiting.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"go.uber.org/multierr"

	"github.com/Jon-Bright/ws281x/command"
	"github.com/Jon-Bright/ws281x/strip"
)

type powerSwitch interface {
	On(context.Context) error
	Off() error
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func main() {
	s := defaultSettings()
	pflag.StringVarP(&s.driver, "driver", "d", s.driver, "The driver to use: one of "+strings.Join(driverNames(), ", "))
	pflag.IntVar(&s.freq, "freq", s.freq, "The frequency to send data to the strip, in Hz")
	pflag.IntVar(&s.dma, "dma", s.dma, "The DMA channel to use")
	for i := range s.channels {
		ch := &s.channels[i]
		pflag.IntVar(&ch.gpio, fmt.Sprintf("gpio%d", i), ch.gpio, fmt.Sprintf("The pin on which channel %d is output", i))
		pflag.IntVar(&ch.count, fmt.Sprintf("count%d", i), ch.count, fmt.Sprintf("The number of LEDs on channel %d", i))
		pflag.BoolVar(&ch.invert, fmt.Sprintf("invert%d", i), ch.invert, fmt.Sprintf("Invert channel %d's output", i))
		pflag.IntVar(&ch.brightness, fmt.Sprintf("brightness%d", i), ch.brightness, fmt.Sprintf("Channel %d's brightness, 0-255", i))
		pflag.StringVar(&ch.stripType, fmt.Sprintf("strip-type%d", i), ch.stripType, fmt.Sprintf("Channel %d's colour order, e.g. GRB or GRBW", i))
	}
	pflag.StringVar(&s.spiDev, "spi-dev", s.spiDev, "The SPI port for the nrz driver. Empty means the first one found")
	pflag.StringVar(&s.powerChip, "power-chip", s.powerChip, "The GPIO chip carrying the power lines")
	pflag.IntVar(&s.powerCtrlLine, "power-ctrl-line", s.powerCtrlLine, "A GPIO line which, when set high, turns on power for the LEDs. -1 means no such line exists.")
	pflag.IntVar(&s.powerStatusLine, "power-status-line", s.powerStatusLine, "A GPIO line which indicates healthy power to the LEDs. -1 means no such line exists. Only relevant if power-ctrl-line is set.")
	pflag.DurationVar(&s.powerStatusWait, "power-status-wait", s.powerStatusWait, "How long to wait for a healthy power signal")
	configPath := pflag.StringP("config", "c", "", "Path to a YAML config file, overriding the flags")
	dryRun := pflag.Bool("dry-run", false, "Use the sim driver whatever else is configured")
	reply := pflag.Bool("reply", false, "Write OK or ERR for each line to standard output")
	logLevel := pflag.String("log-level", "info", "Log level: debug, info, warn or error")
	pflag.Parse()

	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	lvl, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		log.Fatal().Err(err).Msg("bad log level")
	}
	zerolog.SetGlobalLevel(lvl)

	if *configPath != "" {
		c, err := Load(*configPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", *configPath).Msg("config load failed")
		}
		c.override(&s)
	}
	if *dryRun {
		s.driver = "sim"
	}

	var out io.Writer
	if *reply {
		out = os.Stdout
	}
	if err := runMain(&s, pflag.Arg(0), out); err != nil {
		log.Fatal().Err(err).Msg("failed")
	}
}

func runMain(s *settings, script string, out io.Writer) error {
	newDriver, ok := drivers[s.driver]
	if !ok {
		return errors.Errorf("unknown driver %q, want one of %s", s.driver, strings.Join(driverNames(), ", "))
	}
	ctl := strip.NewController(nil, newDriver(s, log.Logger), strip.WithLogger(log.Logger))
	if err := s.apply(ctl); err != nil {
		return errors.WithMessage(err, "couldn't apply settings")
	}

	in := io.Reader(os.Stdin)
	if script != "" && script != "-" {
		f, err := os.Open(script)
		if err != nil {
			return errors.Wrap(err, "couldn't open script")
		}
		defer f.Close()
		in = f
	}

	var pw powerSwitch
	if s.powerCtrlLine >= 0 {
		p, err := openPower(s.powerChip, s.powerCtrlLine, s.powerStatusLine, s.powerStatusWait, log.Logger)
		if err != nil {
			return err
		}
		defer func() {
			if err := p.Close(); err != nil {
				log.Warn().Err(err).Msg("power close failed")
			}
		}()
		pw = p
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	log.Info().Str("driver", s.driver).Msg("running")
	return run(ctx, ctl, pw, command.New(ctl, command.WithLogger(log.Logger)), in, out)
}

// run powers the strip, runs the script and then makes sure the strip is finalized and powered
// off again, whatever happened to the script.
func run(ctx context.Context, ctl *strip.Controller, pw powerSwitch, r *command.Runner, in io.Reader, out io.Writer) error {
	if pw != nil {
		if err := pw.On(ctx); err != nil {
			return multierr.Append(err, pw.Off())
		}
	}
	err := r.Run(ctx, in, out)
	if ctx.Err() != nil {
		log.Info().Msg("interrupted, shutting down")
	}
	if ctl.State() == strip.Initialized {
		err = multierr.Append(err, ctl.Finalize())
	}
	if pw != nil {
		err = multierr.Append(err, pw.Off())
	}
	return err
}
