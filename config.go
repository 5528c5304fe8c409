package main

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/Jon-Bright/ws281x/strip"
)

// Config is the YAML configuration file. Anything it leaves out keeps the value from the flags.
type Config struct {
	Driver   string          `yaml:"driver"`
	Freq     *int            `yaml:"freq"`
	DMA      *int            `yaml:"dma"`
	Channels []ChannelConfig `yaml:"channels"`
	SPI      SPIConfig       `yaml:"spi"`
	Power    PowerConfig     `yaml:"power"`
}

type ChannelConfig struct {
	GPIO       *int   `yaml:"gpio"`
	Count      *int   `yaml:"count"`
	Invert     *bool  `yaml:"invert"`
	Brightness *int   `yaml:"brightness"`
	StripType  string `yaml:"strip_type"`
}

type SPIConfig struct {
	Dev string `yaml:"dev"` // e.g. /dev/spidev0.0
}

type PowerConfig struct {
	Chip       string        `yaml:"chip"` // e.g. gpiochip0
	CtrlLine   *int          `yaml:"ctrl_line"`
	StatusLine *int          `yaml:"status_line"`
	StatusWait time.Duration `yaml:"status_wait"`
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "couldn't read %s", path)
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, errors.Wrapf(err, "couldn't parse %s", path)
	}
	if len(c.Channels) > strip.NumChannels {
		return nil, errors.Errorf("%s: %d channels configured, at most %d supported", path, len(c.Channels), strip.NumChannels)
	}
	return &c, nil
}

type channelSettings struct {
	gpio       int
	count      int
	invert     bool
	brightness int
	stripType  string
}

// settings is everything the command line and the config file decide together.
type settings struct {
	driver   string
	freq     int
	dma      int
	channels [strip.NumChannels]channelSettings
	spiDev   string

	powerChip       string
	powerCtrlLine   int
	powerStatusLine int
	powerStatusWait time.Duration
}

func defaultSettings() settings {
	return settings{
		driver: "rpi",
		freq:   strip.DefaultFreq,
		dma:    strip.DefaultDMANum,
		channels: [strip.NumChannels]channelSettings{
			{gpio: strip.DefaultGPIONum, brightness: 255},
			{gpio: 13, brightness: 255},
		},
		powerChip:       "gpiochip0",
		powerCtrlLine:   -1,
		powerStatusLine: -1,
		powerStatusWait: 2 * time.Second,
	}
}

// override replaces s's values with whatever c sets.
func (c *Config) override(s *settings) {
	if c.Driver != "" {
		s.driver = c.Driver
	}
	setInt(&s.freq, c.Freq)
	setInt(&s.dma, c.DMA)
	for i, cc := range c.Channels {
		ch := &s.channels[i]
		setInt(&ch.gpio, cc.GPIO)
		setInt(&ch.count, cc.Count)
		setInt(&ch.brightness, cc.Brightness)
		if cc.Invert != nil {
			ch.invert = *cc.Invert
		}
		if cc.StripType != "" {
			ch.stripType = cc.StripType
		}
	}
	if c.SPI.Dev != "" {
		s.spiDev = c.SPI.Dev
	}
	if c.Power.Chip != "" {
		s.powerChip = c.Power.Chip
	}
	setInt(&s.powerCtrlLine, c.Power.CtrlLine)
	setInt(&s.powerStatusLine, c.Power.StatusLine)
	if c.Power.StatusWait != 0 {
		s.powerStatusWait = c.Power.StatusWait
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

// apply hands the settings to ctl through the same calls a script would make.
func (s *settings) apply(ctl *strip.Controller) error {
	if err := ctl.SetParam(strip.ParamFreq, s.freq); err != nil {
		return err
	}
	if err := ctl.SetParam(strip.ParamDMANum, s.dma); err != nil {
		return err
	}
	for i, ch := range s.channels {
		var st strip.StripType
		if ch.stripType != "" {
			t, err := strip.ParseStripType(ch.stripType)
			if err != nil {
				return errors.Wrapf(err, "channel %d", i)
			}
			st = t
		}
		invert := 0
		if ch.invert {
			invert = 1
		}
		for _, pv := range []struct {
			p strip.Param
			v int
		}{
			{strip.ParamGPIONum, ch.gpio},
			{strip.ParamCount, ch.count},
			{strip.ParamInvert, invert},
			{strip.ParamBrightness, ch.brightness},
			{strip.ParamStripType, int(st)},
		} {
			if err := ctl.SetChannelParam(i, pv.p, pv.v); err != nil {
				return err
			}
		}
	}
	return nil
}
