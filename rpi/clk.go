package rpi

const (
	cmClkCtlPasswd = 0x5a << 24
	cmClkCtlBusy   = 1 << 7
	cmClkCtlKill   = 1 << 5
	cmClkCtlEnab   = 1 << 4
	cmClkCtlSrcOsc = 1 << 0
	cmClkDivPasswd = uint32(0x5a << 24)

	oscFreq    = 19200000 // crystal frequency
	oscFreqPi4 = 54000000 // Pi 4 crystal frequency
)

type cmClkT struct {
	ctl uint32
	div uint32
}

func cmClkDivI(val uint32) uint32 {
	return (val & 0xfff) << 12
}

// clockDivisor returns the integer divisor that makes the PWM clock tick three times per bit at
// freq.
func clockDivisor(t hwType, freq uint32) uint32 {
	osc := uint32(oscFreq)
	if t == hwTypePi4 {
		osc = oscFreqPi4
	}
	return osc / (3 * freq)
}
