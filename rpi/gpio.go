package rpi

import (
	"unsafe"

	"github.com/pkg/errors"
)

type gpioT struct {
	fsel       [6]uint32 // GPIO Function Select
	resvd_0x18 uint32
	set        [2]uint32 // GPIO Pin Output Set
	resvc_0x24 uint32
	clr        [2]uint32 // GPIO Pin Output Clear
	resvd_0x30 uint32
	lev        [2]uint32 // GPIO Pin Level
	resvd_0x3c uint32
	eds        [2]uint32 // GPIO Pin Event Detect Status
	resvd_0x48 uint32
	ren        [2]uint32 // GPIO Pin Rising Edge Detect Enable
	resvd_0x54 uint32
	fen        [2]uint32 // GPIO Pin Falling Edge Detect Enable
	resvd_0x60 uint32
	hen        [2]uint32 // GPIO Pin High Detect Enable
	resvd_0x6c uint32
	len        [2]uint32 // GPIO Pin Low Detect Enable
	resvd_0x78 uint32
	aren       [2]uint32 // GPIO Pin Async Rising Edge Detect
	resvd_0x84 uint32
	afen       [2]uint32 // GPIO Pin Async Falling Edge Detect
	resvd_0x90 uint32
	pud        uint32    // GPIO Pin Pull up/down Enable
	pudclk     [2]uint32 // GPIO Pin Pull up/down Enable Clock
	resvd_0xa0 [4]uint32
	test       uint32
}

const (
	gpioOffset = uintptr(0x00200000)
	gpioMaxPin = 53 // p94

	fselInput = 0
)

// altFunctions maps ALT0..ALT5 to their function select values. See p92.
var altFunctions = [...]uint32{4, 5, 6, 7, 3, 2}

// fsel returns the register index and bit offset of pin's function select field.
func fsel(pin int) (int, uint) {
	return pin / 10, uint((pin % 10) * 3)
}

func (rp *RPi) gpioSetPinFunction(pin int, fnc uint32) error {
	if pin < 0 || pin > gpioMaxPin {
		return errors.Errorf("pin %d not supported", pin)
	}
	reg, offset := fsel(pin)
	v := rp.gpio.fsel[reg]
	v &^= 0x7 << offset
	v |= fnc << offset
	rp.gpio.fsel[reg] = v
	return nil
}

func (rp *RPi) gpioSetInput(pin int) error {
	return rp.gpioSetPinFunction(pin, fselInput)
}

func (rp *RPi) gpioSetAltFunction(pin int, alt int) error {
	if alt < 0 || alt >= len(altFunctions) {
		return errors.Errorf("%d is an invalid alt function", alt)
	}
	return rp.gpioSetPinFunction(pin, altFunctions[alt])
}

func (rp *RPi) initGPIO() error {
	addr := gpioOffset + rp.hw.periphBase
	buf, offs, err := mapMem(addr, int(unsafe.Sizeof(gpioT{})))
	if err != nil {
		return errors.Wrapf(err, "couldn't map gpioT at %08X", addr)
	}
	rp.gpioBuf = buf
	rp.gpio = (*gpioT)(unsafe.Pointer(&buf[offs]))
	rp.log.Debug().Int("len", len(buf)).Uint64("offset", uint64(offs)).Msg("mapped GPIO registers")
	return nil
}
