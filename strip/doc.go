// Package strip holds the configuration of a two-channel WS281x output and the lifecycle that
// drives a hardware Driver with it.
//
// A typical session:
//
//	c := strip.NewController(strip.NewConfig(), drv)
//	c.SetChannelParam(0, strip.ParamCount, 10)
//	c.Init()
//	c.SetChannelData(0, strip.PixelBytes(frame))
//	c.Render()
//	c.Finalize()
package strip
