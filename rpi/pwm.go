package rpi

import (
	"time"
	"unsafe"

	"github.com/pkg/errors"
)

const (
	pwmOffset     = uintptr(0x0020c000)
	cmPWMOffset   = uintptr(0x001010a0)
	pwmPeriphPhys = uint32(0x7e20c000)
	pwmChannels   = 2

	pwmCtlUseF2 = 1 << 13
	pwmCtlMode2 = 1 << 9
	pwmCtlPwEn2 = 1 << 8
	pwmCtlClrF1 = 1 << 6
	pwmCtlUseF1 = 1 << 5
	pwmCtlMode1 = 1 << 1
	pwmCtlPwEn1 = 1 << 0
	pwmDmacEnab = uint32(1 << 31)

	// DREQ peripheral number of the PWM block, p61.
	dmaPerMapPWM = 5
)

type pwmPin struct {
	channel int
	pin     int
}

// Mapping of PWM channel/pin numbers to which "alt" function means "PWM". See p102 of datasheet.
var pwmPinToAlt = map[pwmPin]int{
	{0, 12}: 0,
	{0, 18}: 5,
	{0, 40}: 0,
	{0, 52}: 1,
	{1, 13}: 0,
	{1, 19}: 5,
	{1, 41}: 0,
	{1, 45}: 0,
	{1, 53}: 1,
}

// pwmAlt reports the alt function that routes PWM channel to pin.
func pwmAlt(channel, pin int) (int, bool) {
	alt, ok := pwmPinToAlt[pwmPin{channel, pin}]
	return alt, ok
}

type pwmT struct {
	ctl        uint32
	sta        uint32
	dmac       uint32
	resvd_0x0c uint32
	rng1       uint32
	dat1       uint32
	fif1       uint32
	resvd_0x1c uint32
	rng2       uint32
	dat2       uint32
}

func pwmDmacPanic(val uint32) uint32 {
	return (val & 0xff) << 8
}

func pwmDmacDreq(val uint32) uint32 {
	return (val & 0xff) << 0
}

func dmaTiPerMap(val uint32) uint32 {
	return (val & 0x1f) << 16
}

func (rp *RPi) mapPWM() error {
	addr := pwmOffset + rp.hw.periphBase
	buf, offs, err := mapMem(addr, int(unsafe.Sizeof(pwmT{})))
	if err != nil {
		return errors.Wrapf(err, "couldn't map pwmT at %08X", addr)
	}
	rp.pwmBuf = buf
	rp.pwm = (*pwmT)(unsafe.Pointer(&buf[offs]))

	addr = cmPWMOffset + rp.hw.periphBase
	buf, offs, err = mapMem(addr, int(unsafe.Sizeof(cmClkT{})))
	if err != nil {
		return errors.Wrapf(err, "couldn't map cmClkT at %08X", addr)
	}
	rp.cmClkBuf = buf
	rp.cmClk = (*cmClkT)(unsafe.Pointer(&buf[offs]))
	rp.log.Debug().Int("len", len(buf)).Uint64("offset", uint64(offs)).Msg("mapped PWM and clock registers")
	return nil
}

// initPWM starts the PWM clock at three ticks per bit of freq, puts both PWM channels into
// serializer mode fed from the FIFO and points buf's control block at the FIFO.
func (rp *RPi) initPWM(freq uint32, buf *DMABuf, bytes int) error {
	if freq == 0 {
		return errors.New("frequency must not be zero")
	}
	rp.stopPWM()

	rp.cmClk.div = cmClkDivPasswd | cmClkDivI(clockDivisor(rp.hw.hwType, freq))
	rp.cmClk.ctl = cmClkCtlPasswd | cmClkCtlSrcOsc
	rp.cmClk.ctl = cmClkCtlPasswd | cmClkCtlSrcOsc | cmClkCtlEnab
	time.Sleep(10 * time.Microsecond)
	if err := rp.waitClock(true); err != nil {
		return err
	}

	// Set up the PWM, use delays as the block is rumored to lock up without them.  Make
	// sure to use a high enough priority to avoid any FIFO underruns, especially if
	// the CPU is busy doing lots of memory accesses, or another DMA controller is
	// busy.  The FIFO will clock out data at a much slower rate (2.6Mhz max), so
	// the odds of a DMA priority boost are extremely low.

	rp.pwm.rng1 = 32 // 32-bits per word to serialize
	time.Sleep(10 * time.Microsecond)
	rp.pwm.rng2 = 32
	time.Sleep(10 * time.Microsecond)
	rp.pwm.ctl = pwmCtlClrF1
	time.Sleep(10 * time.Microsecond)
	rp.pwm.dmac = pwmDmacEnab | pwmDmacPanic(7) | pwmDmacDreq(3)
	time.Sleep(10 * time.Microsecond)
	rp.pwm.ctl = pwmCtlUseF1 | pwmCtlMode1 | pwmCtlUseF2 | pwmCtlMode2
	time.Sleep(10 * time.Microsecond)
	rp.pwm.ctl |= pwmCtlPwEn1 | pwmCtlPwEn2

	buf.c.ti = dmaTiNoWideBursts | // 32-bit transfers
		dmaTiWaitResp | // wait for write complete
		dmaTiDestDreq | // user peripheral flow control
		dmaTiPerMap(dmaPerMapPWM) |
		dmaTiSrcInc // Increment src addr
	buf.c.sourceAd = uint32(buf.pb.busAddr + unsafe.Sizeof(dmaControl{}))
	buf.c.destAd = pwmPeriphPhys + uint32(unsafe.Offsetof(rp.pwm.fif1))
	buf.c.txLen = uint32(bytes)
	buf.c.stride = 0
	buf.c.nextconbk = 0

	rp.dma.cs = 0
	rp.dma.txLen = 0
	rp.log.Debug().
		Uint32("freq", freq).
		Uint32("div", clockDivisor(rp.hw.hwType, freq)).
		Int("txlen", bytes).
		Msg("PWM running")
	return nil
}

// waitClock spins until the clock manager's busy flag matches busy.
func (rp *RPi) waitClock(busy bool) error {
	for i := 0; i < dmaWaitPolls; i++ {
		if (rp.cmClk.ctl&cmClkCtlBusy != 0) == busy {
			return nil
		}
	}
	return errors.Errorf("clock busy never became %t, ctl %08X", busy, rp.cmClk.ctl)
}

func (rp *RPi) stopPWM() {
	if rp.pwm == nil || rp.cmClk == nil {
		return
	}
	// Turn off the PWM in case already running
	rp.pwm.ctl = 0
	time.Sleep(10 * time.Microsecond)

	// Kill the clock if it was already running
	rp.cmClk.ctl = cmClkCtlPasswd | cmClkCtlKill
	time.Sleep(10 * time.Microsecond)
	if err := rp.waitClock(false); err != nil {
		rp.log.Warn().Err(err).Msg("stopping PWM")
	}
}
