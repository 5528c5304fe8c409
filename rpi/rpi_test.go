package rpi

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Jon-Bright/ws281x/strip"
)

func TestDecodeRevision(t *testing.T) {
	tests := []struct {
		rev    uint32
		hwType hwType
		periph uintptr
		name   string
	}{
		{0x02, hwTypePi1, periphBaseRPi, "Pi 1 (rev 2)"},
		{0x1000015, hwTypePi1, periphBaseRPi, "Pi 1 (rev 15)"},
		{0x900032, hwTypePi1, periphBaseRPi, "Model B+"},
		{0x9000c1, hwTypePi1, periphBaseRPi, "Pi Zero W"},
		{0xA01041, hwTypePi2, periphBaseRPi2, "Pi 2 Model B"},
		{0xA22042, hwTypePi2, periphBaseRPi2, "Pi 2 Model B"},
		{0xA020D3, hwTypePi2, periphBaseRPi2, "Pi 3 Model B+"},
		{0x902120, hwTypePi2, periphBaseRPi2, "Pi Zero 2 W"},
		{0xC03111, hwTypePi4, periphBaseRPi4, "Pi 4 Model B"},
		{0xC03130, hwTypePi4, periphBaseRPi4, "Pi 400"},
		{0x2A03111, hwTypePi4, periphBaseRPi4, "Pi 4 Model B"},
	}
	for _, test := range tests {
		hw, err := decodeRevision(test.rev)
		if err != nil {
			t.Errorf("decodeRevision(%X) failed: %v", test.rev, err)
			continue
		}
		if hw.hwType != test.hwType || hw.periphBase != test.periph || hw.name != test.name {
			t.Errorf("decodeRevision(%X) got: %d/%08X/%q, want %d/%08X/%q", test.rev,
				hw.hwType, hw.periphBase, hw.name, test.hwType, test.periph, test.name)
		}
	}
}

func TestDecodeRevisionUnsupported(t *testing.T) {
	for _, rev := range []uint32{0x00, 0x01, 0x16, 0xC04170, 0xD04170} {
		if hw, err := decodeRevision(rev); err == nil {
			t.Errorf("decodeRevision(%X) got: %v, want error", rev, hw)
		}
	}
}

func TestDetectHardware(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good")
	if err := os.WriteFile(good, []byte{0x00, 0xA0, 0x20, 0xD3}, 0644); err != nil {
		t.Fatal(err)
	}
	hw, err := detectHardware(good)
	if err != nil {
		t.Fatalf("detectHardware failed: %v", err)
	}
	if hw.hwType != hwTypePi2 {
		t.Errorf("detectHardware got: %d, want %d", hw.hwType, hwTypePi2)
	}

	short := filepath.Join(dir, "short")
	if err := os.WriteFile(short, []byte{0xA0, 0x20}, 0644); err != nil {
		t.Fatal(err)
	}
	for _, p := range []string{short, filepath.Join(dir, "missing")} {
		if _, err := detectHardware(p); err == nil {
			t.Errorf("detectHardware(%s) succeeded, want error", p)
		}
	}
}

func TestPWMAlt(t *testing.T) {
	tests := []struct {
		channel, pin int
		alt          int
		ok           bool
	}{
		{0, 12, 0, true},
		{0, 18, 5, true},
		{0, 52, 1, true},
		{1, 13, 0, true},
		{1, 19, 5, true},
		{1, 45, 0, true},
		{0, 13, 0, false},
		{1, 18, 0, false},
		{0, 21, 0, false},
		{2, 18, 0, false},
	}
	for _, test := range tests {
		alt, ok := pwmAlt(test.channel, test.pin)
		if ok != test.ok || alt != test.alt {
			t.Errorf("pwmAlt(%d, %d) got: %d/%t, want %d/%t", test.channel, test.pin, alt, ok, test.alt, test.ok)
		}
	}
}

func TestFsel(t *testing.T) {
	tests := []struct {
		pin    int
		reg    int
		offset uint
	}{
		{0, 0, 0},
		{9, 0, 27},
		{18, 1, 24},
		{53, 5, 9},
	}
	for _, test := range tests {
		reg, offset := fsel(test.pin)
		if reg != test.reg || offset != test.offset {
			t.Errorf("fsel(%d) got: %d/%d, want %d/%d", test.pin, reg, offset, test.reg, test.offset)
		}
	}
}

func TestClockDivisor(t *testing.T) {
	tests := []struct {
		hw   hwType
		freq uint32
		want uint32
	}{
		{hwTypePi1, 800000, 8},
		{hwTypePi2, 400000, 16},
		{hwTypePi4, 800000, 22},
	}
	for _, test := range tests {
		if got := clockDivisor(test.hw, test.freq); got != test.want {
			t.Errorf("clockDivisor(%d, %d) got: %d, want %d", test.hw, test.freq, got, test.want)
		}
	}
}

// Init rejects bad configurations before touching any hardware.
func TestDriverInitValidation(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "revision")
	tests := []struct {
		name  string
		setup func(c *strip.Config)
		want  strip.Status
	}{
		{"wrong pin for channel 0", func(c *strip.Config) {
			c.SetChannelParam(0, strip.ParamCount, 10)
			c.SetChannelParam(0, strip.ParamGPIONum, 13)
		}, strip.StatusIllegalGPIO},
		{"channel 1 without pin", func(c *strip.Config) {
			c.SetChannelParam(1, strip.ParamCount, 10)
		}, strip.StatusIllegalGPIO},
		{"negative count", func(c *strip.Config) {
			c.SetChannelParam(0, strip.ParamCount, -1)
		}, strip.StatusOutOfMemory},
		{"bad DMA", func(c *strip.Config) {
			c.SetChannelParam(0, strip.ParamCount, 10)
			c.SetParam(strip.ParamDMANum, 16)
		}, strip.StatusDMA},
		{"zero freq", func(c *strip.Config) {
			c.SetChannelParam(0, strip.ParamCount, 10)
			c.SetParam(strip.ParamFreq, 0)
		}, strip.StatusPWMSetup},
		{"no board", func(c *strip.Config) {
			c.SetChannelParam(0, strip.ParamCount, 10)
		}, strip.StatusHWNotSupported},
	}
	for _, test := range tests {
		c := strip.NewConfig()
		test.setup(c)
		d := New(WithRevisionFile(missing))
		if got := d.Init(c); got != test.want {
			t.Errorf("%s: Init got: %v, want %v", test.name, got, test.want)
		}
		if c.Channel(0).Leds() != nil || c.Channel(1).Leds() != nil {
			t.Errorf("%s: buffers attached after failed Init", test.name)
		}
	}
}

func TestDriverBeforeInit(t *testing.T) {
	d := New()
	c := strip.NewConfig()
	if got := d.Wait(c); got != strip.StatusSuccess {
		t.Errorf("Wait got: %v, want %v", got, strip.StatusSuccess)
	}
	if got := d.Render(c); got != strip.StatusGeneric {
		t.Errorf("Render got: %v, want %v", got, strip.StatusGeneric)
	}
	d.Fini(c)
	if got := d.StatusString(strip.StatusDMA); got != "DMA error" {
		t.Errorf("StatusString got: %q, want %q", got, "DMA error")
	}
}
