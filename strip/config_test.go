package strip_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jon-Bright/ws281x/strip"
)

func TestNewConfigDefaults(t *testing.T) {
	c := strip.NewConfig()
	assert.Equal(t, uint32(800000), c.Freq())
	assert.Equal(t, 5, c.DMANum())

	ch0 := c.Channel(0)
	assert.Equal(t, 18, ch0.GPIONum())
	assert.Equal(t, 0, ch0.Count())
	assert.False(t, ch0.Invert())
	assert.Equal(t, uint8(255), ch0.Brightness())
	assert.Equal(t, strip.StripType(0), ch0.StripType())
	assert.Nil(t, ch0.Leds())

	ch1 := c.Channel(1)
	assert.Equal(t, 0, ch1.GPIONum())
	assert.Equal(t, uint8(0), ch1.Brightness())
}

func TestSetParam(t *testing.T) {
	c := strip.NewConfig()
	require.NoError(t, c.SetParam(strip.ParamFreq, 400000))
	require.NoError(t, c.SetParam(strip.ParamDMANum, 10))
	assert.Equal(t, uint32(400000), c.Freq())
	assert.Equal(t, 10, c.DMANum())
}

func TestSetParamInvalid(t *testing.T) {
	for _, p := range []strip.Param{0, -1, strip.ParamGPIONum, strip.ParamCount, strip.ParamInvert, strip.ParamBrightness, strip.ParamStripType, 8, 1000} {
		c := strip.NewConfig()
		err := c.SetParam(p, 12345)
		assert.ErrorIs(t, err, strip.ErrInvalidParameter, "param %v", p)
		assert.Equal(t, strip.NewConfig(), c, "param %v changed the config", p)
	}
}

func TestSetChannelParam(t *testing.T) {
	c := strip.NewConfig()
	require.NoError(t, c.SetChannelParam(1, strip.ParamGPIONum, 13))
	require.NoError(t, c.SetChannelParam(1, strip.ParamCount, 60))
	require.NoError(t, c.SetChannelParam(1, strip.ParamInvert, 7))
	require.NoError(t, c.SetChannelParam(1, strip.ParamBrightness, 128))
	require.NoError(t, c.SetChannelParam(1, strip.ParamStripType, int(strip.WS2811StripGRB)))

	ch := c.Channel(1)
	assert.Equal(t, 13, ch.GPIONum())
	assert.Equal(t, 60, ch.Count())
	assert.True(t, ch.Invert())
	assert.Equal(t, uint8(128), ch.Brightness())
	assert.Equal(t, strip.WS2811StripGRB, ch.StripType())

	require.NoError(t, c.SetChannelParam(1, strip.ParamInvert, 0))
	assert.False(t, ch.Invert())

	// Channel 0 is untouched.
	assert.Equal(t, 18, c.Channel(0).GPIONum())
}

func TestSetChannelParamStoresUnchecked(t *testing.T) {
	c := strip.NewConfig()
	require.NoError(t, c.SetChannelParam(0, strip.ParamGPIONum, -4))
	require.NoError(t, c.SetChannelParam(0, strip.ParamCount, -1))
	require.NoError(t, c.SetChannelParam(0, strip.ParamStripType, 0x7fffffff))
	assert.Equal(t, -4, c.Channel(0).GPIONum())
	assert.Equal(t, -1, c.Channel(0).Count())
	assert.Equal(t, strip.StripType(0x7fffffff), c.Channel(0).StripType())
}

func TestSetChannelParamBrightness(t *testing.T) {
	tests := []struct {
		value int
		want  uint8
	}{
		{0, 0},
		{255, 255},
		{256, 0},
		{300, 44},
		{-1, 255},
		{-256, 0},
		{0x12345678, 0x78},
	}
	for _, test := range tests {
		c := strip.NewConfig()
		require.NoError(t, c.SetChannelParam(0, strip.ParamBrightness, test.value))
		assert.Equal(t, test.want, c.Channel(0).Brightness(), "brightness %d", test.value)
	}
}

func TestSetChannelParamInvalidChannel(t *testing.T) {
	for _, ch := range []int{-1, 2, 3, 100} {
		c := strip.NewConfig()
		err := c.SetChannelParam(ch, strip.ParamCount, 10)
		assert.ErrorIs(t, err, strip.ErrInvalidChannel, "channel %d", ch)
		assert.Nil(t, c.Channel(ch))
		assert.Equal(t, strip.NewConfig(), c)
	}
}

func TestSetChannelParamInvalidParameter(t *testing.T) {
	for _, p := range []strip.Param{0, strip.ParamFreq, strip.ParamDMANum, 8, -3} {
		c := strip.NewConfig()
		err := c.SetChannelParam(0, p, 10)
		assert.ErrorIs(t, err, strip.ErrInvalidParameter, "param %v", p)
		assert.Equal(t, strip.NewConfig(), c)
	}
}

func TestSetChannelParamChannelCheckedFirst(t *testing.T) {
	err := strip.NewConfig().SetChannelParam(2, 99, 1)
	assert.ErrorIs(t, err, strip.ErrInvalidChannel)
	assert.NotErrorIs(t, err, strip.ErrInvalidParameter)
}

func TestParamByName(t *testing.T) {
	for p := strip.ParamFreq; p <= strip.ParamStripType; p++ {
		got, ok := strip.ParamByName(p.String())
		require.True(t, ok, p.String())
		assert.Equal(t, p, got)
	}
	got, ok := strip.ParamByName("strip_type")
	assert.True(t, ok)
	assert.Equal(t, strip.ParamStripType, got)

	_, ok = strip.ParamByName("COLOR")
	assert.False(t, ok)
	assert.Equal(t, "PARAM(9)", strip.Param(9).String())
}
