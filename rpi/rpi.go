package rpi

import (
	"encoding/binary"
	"fmt"
	"os"

	mmap "github.com/edsrzf/mmap-go"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"go.uber.org/multierr"
)

// RPi holds the mailbox and the peripheral register blocks mapped for one driver instance.
type RPi struct {
	log      zerolog.Logger
	mbox     *os.File
	hw       *hw
	dmaBuf   mmap.MMap
	dma      *dmaT
	pwmBuf   mmap.MMap
	pwm      *pwmT
	gpioBuf  mmap.MMap
	gpio     *gpioT
	cmClkBuf mmap.MMap
	cmClk    *cmClkT
}

func newRPi(hw *hw, log zerolog.Logger) (*RPi, error) {
	rp := RPi{
		hw:  hw,
		log: log,
	}
	err := rp.mboxOpen()
	if err != nil {
		return nil, errors.Wrap(err, "couldn't open mailbox")
	}
	return &rp, nil
}

// unmapAll releases every register block that was mapped. It's safe to call more than once.
func (rp *RPi) unmapAll() error {
	var err error
	for _, m := range []*mmap.MMap{&rp.dmaBuf, &rp.pwmBuf, &rp.gpioBuf, &rp.cmClkBuf} {
		if *m == nil {
			continue
		}
		err = multierr.Append(err, m.Unmap())
		*m = nil
	}
	rp.dma, rp.pwm, rp.gpio, rp.cmClk = nil, nil, nil, nil
	return errors.WithMessage(err, "couldn't unmap registers")
}

type hwType int

const (
	hwTypeUnknown hwType = iota
	hwTypePi1
	hwTypePi2
	hwTypePi4
)

const (
	periphBaseRPi  = 0x20000000
	periphBaseRPi2 = 0x3f000000
	periphBaseRPi4 = 0xfe000000

	videocoreBaseRPi  = 0x40000000
	videocoreBaseRPi2 = 0xc0000000

	revisionFile = "/proc/device-tree/system/linux,revision"

	// Bits 24 and 25 are set once a board has been overvolted. They say nothing about the model.
	revWarrantyMask = 0x3 << 24
	revNewStyle     = 1 << 23
)

type hw struct {
	hwType     hwType
	periphBase uintptr
	vcBase     uintptr
	name       string
}

func (h *hw) String() string {
	return fmt.Sprintf("%s (periph %08X)", h.name, h.periphBase)
}

// Model names indexed by the type field of new-style revision codes.
var boardNames = map[uint32]string{
	0x00: "Model A",
	0x01: "Model B",
	0x02: "Model A+",
	0x03: "Model B+",
	0x04: "Pi 2 Model B",
	0x06: "Compute Module 1",
	0x08: "Pi 3 Model B",
	0x09: "Pi Zero",
	0x0a: "Compute Module 3",
	0x0c: "Pi Zero W",
	0x0d: "Pi 3 Model B+",
	0x0e: "Pi 3 Model A+",
	0x10: "Compute Module 3+",
	0x11: "Pi 4 Model B",
	0x12: "Pi Zero 2 W",
	0x13: "Pi 400",
	0x14: "Compute Module 4",
	0x15: "Compute Module 4S",
	0x17: "Pi 5",
}

// detectHardware reads the board revision from the device tree. The old approach of parsing
// /proc/cpuinfo isn't needed: every kernel new enough to matter exposes the revision there.
func detectHardware(path string) (*hw, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "couldn't read revision")
	}
	if len(b) != 4 {
		return nil, errors.Errorf("revision file got %d instead of 4 bytes", len(b))
	}
	return decodeRevision(binary.BigEndian.Uint32(b))
}

// decodeRevision maps a board revision code to the peripheral layout of its SoC.
func decodeRevision(rev uint32) (*hw, error) {
	rev &^= revWarrantyMask
	if rev&revNewStyle == 0 {
		// Old-style codes only ever came on BCM2835 boards.
		if rev < 0x02 || rev > 0x15 {
			return nil, errors.Errorf("couldn't identify hardware revision %X", rev)
		}
		return &hw{
			hwType:     hwTypePi1,
			periphBase: periphBaseRPi,
			vcBase:     videocoreBaseRPi,
			name:       fmt.Sprintf("Pi 1 (rev %X)", rev),
		}, nil
	}

	name, ok := boardNames[(rev>>4)&0xff]
	if !ok {
		name = fmt.Sprintf("unknown board type %X", (rev>>4)&0xff)
	}
	switch proc := (rev >> 12) & 0xf; proc {
	case 0: // BCM2835
		return &hw{hwTypePi1, periphBaseRPi, videocoreBaseRPi, name}, nil
	case 1, 2: // BCM2836, BCM2837
		return &hw{hwTypePi2, periphBaseRPi2, videocoreBaseRPi2, name}, nil
	case 3: // BCM2711
		return &hw{hwTypePi4, periphBaseRPi4, videocoreBaseRPi2, name}, nil
	default:
		// The BCM2712 drives its GPIOs through the RP1, which has no PWM/DMA path we can use.
		return nil, errors.Errorf("unsupported processor %d on %s (revision %X)", proc, name, rev)
	}
}
