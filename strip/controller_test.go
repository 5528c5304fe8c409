package strip_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jon-Bright/ws281x/sim"
	"github.com/Jon-Bright/ws281x/strip"
)

func TestLifecycleScenario(t *testing.T) {
	d := sim.New()
	c := strip.NewController(nil, d)
	assert.Equal(t, strip.Uninitialized, c.State())

	require.NoError(t, c.SetParam(strip.ParamFreq, 400000))
	require.NoError(t, c.SetChannelParam(0, strip.ParamCount, 10))
	require.NoError(t, c.SetChannelParam(0, strip.ParamGPIONum, 18))
	require.NoError(t, c.Init())
	assert.Equal(t, strip.Initialized, c.State())
	assert.Len(t, c.Config().Channel(0).Leds(), 10)
	assert.Nil(t, c.Config().Channel(1).Leds())

	require.NoError(t, c.SetChannelData(0, bytes.Repeat([]byte{0xff}, 40)))
	require.NoError(t, c.Render())
	require.Len(t, d.Frames, 1)
	for _, v := range d.Frames[0][0] {
		assert.Equal(t, uint32(0xffffffff), v)
	}

	require.NoError(t, c.Finalize())
	assert.Equal(t, strip.Finalized, c.State())
	assert.Equal(t, []string{sim.OpInit, sim.OpWait, sim.OpRender, sim.OpWait, sim.OpFini}, d.Calls)

	err := c.Render()
	assert.ErrorIs(t, err, strip.ErrNotInitialized)
	err = c.SetChannelData(0, []byte{1, 2, 3, 4})
	assert.ErrorIs(t, err, strip.ErrChannelNotReady)
	assert.Len(t, d.Frames, 1)
}

func TestRenderUninitialized(t *testing.T) {
	d := sim.New()
	c := strip.NewController(nil, d)
	err := c.Render()
	assert.ErrorIs(t, err, strip.ErrNotInitialized)
	assert.Empty(t, d.Calls)
}

func TestDoubleInitSurfacesDriverStatus(t *testing.T) {
	d := sim.New()
	c := strip.NewController(nil, d)
	require.NoError(t, c.SetChannelParam(0, strip.ParamCount, 4))
	require.NoError(t, c.Init())

	err := c.Init()
	require.Error(t, err)
	var de *strip.DriverError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "init", de.Op)
	assert.Equal(t, strip.StatusGeneric, de.Status)
	assert.Equal(t, "Generic failure", de.Message)
	assert.Equal(t, "init(): Generic failure", err.Error())
	assert.ErrorIs(t, err, strip.ErrDriver)
	assert.Equal(t, strip.Initialized, c.State())
	assert.Equal(t, []string{sim.OpInit, sim.OpInit}, d.Calls)

	// A driver that accepts re-initialization is passed through as well.
	d.AllowReinit = true
	require.NoError(t, c.SetChannelParam(0, strip.ParamCount, 6))
	require.NoError(t, c.Init())
	assert.Len(t, c.Config().Channel(0).Leds(), 6)
}

func TestInitFailure(t *testing.T) {
	d := sim.New()
	d.Fail[sim.OpInit] = strip.StatusIllegalGPIO
	c := strip.NewController(nil, d)
	require.NoError(t, c.SetChannelParam(0, strip.ParamCount, 4))

	err := c.Init()
	var de *strip.DriverError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, strip.StatusIllegalGPIO, de.Status)
	assert.Equal(t, "Selected GPIO not possible", de.Message)
	assert.Equal(t, strip.Uninitialized, c.State())
	assert.ErrorIs(t, c.SetChannelData(0, []byte{1, 2, 3, 4}), strip.ErrChannelNotReady)

	// Nothing sticks: the next attempt goes through.
	require.NoError(t, c.Init())
	assert.Equal(t, strip.Initialized, c.State())
}

func TestInitOutOfMemory(t *testing.T) {
	c := strip.NewController(nil, sim.New())
	require.NoError(t, c.SetChannelParam(1, strip.ParamCount, -1))
	var de *strip.DriverError
	require.True(t, errors.As(c.Init(), &de))
	assert.Equal(t, strip.StatusOutOfMemory, de.Status)
}

func TestRenderWaitFailure(t *testing.T) {
	c, d := initialized(t, 2, 0)
	d.Fail[sim.OpWait] = strip.StatusDMA

	err := c.Render()
	var de *strip.DriverError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "render", de.Op)
	assert.Equal(t, strip.StatusDMA, de.Status)
	assert.Empty(t, d.Frames)
	assert.Equal(t, []string{sim.OpInit, sim.OpWait}, d.Calls)
	assert.Equal(t, strip.Initialized, c.State())
}

func TestRenderFailure(t *testing.T) {
	c, d := initialized(t, 2, 0)
	d.Fail[sim.OpRender] = strip.StatusSPITransfer

	err := c.Render()
	var de *strip.DriverError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, strip.StatusSPITransfer, de.Status)
	assert.Equal(t, strip.Initialized, c.State())

	require.NoError(t, c.Render())
	assert.Len(t, d.Frames, 1)
}

func TestFinalizeTearsDownWhenWaitFails(t *testing.T) {
	c, d := initialized(t, 2, 2)
	d.Fail[sim.OpWait] = strip.StatusDMA

	err := c.Finalize()
	var de *strip.DriverError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "finalize", de.Op)
	assert.Equal(t, strip.StatusDMA, de.Status)

	assert.Equal(t, []string{sim.OpInit, sim.OpWait, sim.OpFini}, d.Calls)
	assert.False(t, d.Initialized())
	assert.Equal(t, strip.Finalized, c.State())
	assert.Nil(t, c.Config().Channel(0).Leds())
	assert.Nil(t, c.Config().Channel(1).Leds())
}

func TestFinalizeUninitialized(t *testing.T) {
	d := sim.New()
	c := strip.NewController(nil, d)
	require.NoError(t, c.Finalize())
	assert.Equal(t, strip.Finalized, c.State())
	assert.Equal(t, []string{sim.OpWait, sim.OpFini}, d.Calls)
}

func TestInitAfterFinalize(t *testing.T) {
	c, _ := initialized(t, 3, 0)
	require.NoError(t, c.Finalize())
	require.NoError(t, c.Init())
	assert.Equal(t, strip.Initialized, c.State())
	require.NoError(t, c.SetChannelData(0, []byte{1, 2, 3, 4}))
	require.NoError(t, c.Render())
}

func TestCountChangeNeedsReinit(t *testing.T) {
	c, _ := initialized(t, 3, 0)
	require.NoError(t, c.SetChannelParam(0, strip.ParamCount, 5))
	assert.Len(t, c.Config().Channel(0).Leds(), 3)

	// The bound follows the new count, the buffer doesn't grow.
	require.NoError(t, c.SetChannelData(0, bytes.Repeat([]byte{0x01}, 20)))
	assert.Equal(t, []uint32{0x01010101, 0x01010101, 0x01010101}, c.Config().Channel(0).Leds())
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "Success", strip.StatusSuccess.String())
	assert.Equal(t, "SPI transfer error", strip.StatusSPITransfer.String())
	assert.Equal(t, strip.Status(-14), strip.StatusSPITransfer)
	assert.Equal(t, "Unknown status -99", strip.Status(-99).String())
}
