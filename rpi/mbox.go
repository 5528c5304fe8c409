package rpi

import (
	"fmt"
	"os"
	"path/filepath"
	"unsafe"

	mmap "github.com/edsrzf/mmap-go"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"golang.org/x/sys/unix"
)

// Many details here are from the BCM2835 reference at
// https://www.raspberrypi.org/app/uploads/2012/02/BCM2835-ARM-Peripherals.pdf
// Their page numbers are noted below
// The mailbox that most of this file deals with is documented at
// https://github.com/raspberrypi/firmware/wiki/Mailbox-property-interface

const (
	videocoreMajorNum = 100
	memFile           = "/dev/mem"
	vcioFile          = "/dev/vcio"
	mboxMode          = 0600

	tagAllocMem   = 0x3000c
	tagLockMem    = 0x3000d
	tagUnlockMem  = 0x3000e
	tagReleaseMem = 0x3000f

	memFlagDirect          = 0x4
	memFlagL1NonAllocating = 0xc
	mboxResponseBit        = 0x80000000
)

// PhysBuf is a block of VideoCore memory, locked at busAddr and mapped into our address space.
type PhysBuf struct {
	handle  uint32
	busAddr uintptr
	buf     mmap.MMap
	offs    uintptr
}

// uint32Slice returns the mapped buffer from offs onwards as a []uint32. It takes care of the
// offset between the page boundary (where MMaps always start) and the actual start of the buffer.
func (pb *PhysBuf) uint32Slice(offs uintptr) []uint32 {
	offs += pb.offs
	n := (len(pb.buf) - int(offs)) / 4
	if n <= 0 {
		return nil
	}
	return unsafe.Slice((*uint32)(unsafe.Pointer(&pb.buf[offs])), n)
}

func (rp *RPi) freePhysBuf(pb *PhysBuf) error {
	var err error
	if pb.buf != nil {
		err = multierr.Append(err, pb.buf.Unmap())
		pb.buf = nil
	}
	if pb.busAddr != 0 {
		pb.busAddr = 0
		err = multierr.Append(err, rp.unlockVCMem(pb.handle))
	}
	if pb.handle != 0 {
		err = multierr.Append(err, rp.releaseVCMem(pb.handle))
		pb.handle = 0
	}
	return err
}

// getPhysBuf gets a buffer of VideoCore memory that can be used for DMA.
func (rp *RPi) getPhysBuf(size uint32) (*PhysBuf, error) {
	pb := PhysBuf{}
	var err error
	pb.handle, err = rp.allocVCMem(size)
	if err != nil {
		return nil, errors.Wrapf(err, "couldn't allocate %d bytes", size)
	}
	busAddr, err := rp.lockVCMem(pb.handle)
	if err != nil {
		rp.releaseVCMem(pb.handle) // Ignore error
		return nil, errors.Wrapf(err, "couldn't lock handle %X", pb.handle)
	}
	pb.busAddr = uintptr(busAddr)
	pb.buf, pb.offs, err = mapMem(busToPhys(pb.busAddr), int(size))
	if err != nil {
		rp.unlockVCMem(pb.handle)  // Ignore error
		rp.releaseVCMem(pb.handle) // Ignore error
		return nil, errors.Wrapf(err, "couldn't map bus address %08X", pb.busAddr)
	}
	rp.log.Debug().
		Uint32("size", size).
		Str("busaddr", fmt.Sprintf("%08X", pb.busAddr)).
		Uint64("offset", uint64(pb.offs)).
		Msg("mapped VideoCore memory")
	return &pb, nil
}

// busToPhys converts a BCM2835 bus address to a physical address
func busToPhys(busAddr uintptr) uintptr {
	return busAddr &^ 0xC0000000 // p7
}

// mapMem maps the given physical address range from /dev/mem. Since the mapping has to start at
// a page boundary, the physical address is rounded down to the nearest page boundary. mapMem
// returns the mapped memory and the offset at which physAddr sits inside it.
func mapMem(physAddr uintptr, size int) (mmap.MMap, uintptr, error) {
	f, err := os.OpenFile(memFile, os.O_RDWR|os.O_SYNC, 0)
	if err != nil {
		return nil, 0, errors.Wrapf(err, "couldn't open %s", memFile)
	}
	defer f.Close()

	mapAddr := physAddr &^ (pageSize - 1)
	size += int(physAddr - mapAddr)
	mm, err := mmap.MapRegion(f, size, mmap.RDWR, 0, int64(mapAddr))
	if err != nil {
		return nil, 0, errors.Wrapf(err, "couldn't map region (%08X, %d)", physAddr, size)
	}
	return mm, physAddr - mapAddr, nil
}

// mboxOpenTemp creates a temporary device node for ioctl-ing with the mailbox, opens it and
// immediately removes the node once it's open.
func (rp *RPi) mboxOpenTemp() error {
	tf := filepath.Join(os.TempDir(), fmt.Sprintf("mailbox-%d", os.Getpid()))
	err := os.Remove(tf)
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "couldn't remove temp mbox")
	}
	err = unix.Mknod(tf, unix.S_IFCHR|mboxMode, int(unix.Mkdev(videocoreMajorNum, 0)))
	if err != nil {
		return errors.Wrap(err, "couldn't make device node")
	}
	f, err := os.OpenFile(tf, os.O_RDONLY, 0)
	if err != nil {
		os.Remove(tf) // Ignore error
		return errors.Wrap(err, "couldn't open temp mbox")
	}
	err = os.Remove(tf)
	if err != nil {
		f.Close() // Ignore error
		return errors.Wrap(err, "couldn't remove temp mbox")
	}
	rp.mbox = f
	return nil
}

// mboxOpen opens /dev/vcio for ioctl-ing with the mailbox. If that doesn't exist, it falls back
// to mboxOpenTemp.
func (rp *RPi) mboxOpen() error {
	f, err := os.OpenFile(vcioFile, os.O_RDONLY, 0)
	if os.IsNotExist(err) {
		return rp.mboxOpenTemp()
	}
	if err != nil {
		return errors.Wrapf(err, "couldn't open %s", vcioFile)
	}
	rp.mbox = f
	return nil
}

func (rp *RPi) mboxClose() error {
	if rp.mbox == nil {
		return nil
	}
	err := rp.mbox.Close()
	rp.mbox = nil
	return err
}

// mboxProperty uses ioctl to send messages via the mailbox
func (rp *RPi) mboxProperty(buf []uint32) error {
	if rp.mbox == nil {
		return errors.New("mailbox not open")
	}
	err := ioctlArrUint32(rp.mbox.Fd(), iowr(videocoreMajorNum, 0, uintptr(0)), buf)
	if err != nil {
		return errors.Wrap(err, "failed ioctl mbox property")
	}
	return nil
}

// mboxCall sends a single tag with the given request values and returns the first word of the
// response value.
func (rp *RPi) mboxCall(tag uint32, vals ...uint32) (uint32, error) {
	p := make([]uint32, 0, 32)
	p = append(p,
		0, // total size, filled in below
		0, // process request
		tag,
		uint32(len(vals)*4), // size of the tag value to follow
		0,                   // bit 31 cleared, rest is reserved
	)
	p = append(p, vals...)
	p = append(p, 0) // no more tags
	p[0] = uint32(len(p) * 4)

	err := rp.mboxProperty(p)
	if err != nil {
		return 0, err
	}
	if p[4]&mboxResponseBit == 0 {
		return 0, errors.Errorf("response tag unset for %X: %X", tag, p[4])
	}
	return p[5], nil
}

func (rp *RPi) allocVCMem(size uint32) (uint32, error) {
	flags := uint32(memFlagDirect)
	if rp.hw.vcBase == videocoreBaseRPi {
		flags = memFlagL1NonAllocating
	}
	handle, err := rp.mboxCall(tagAllocMem, size, pageSize, flags)
	if err != nil {
		return 0, err
	}
	if handle == 0 {
		return 0, errors.New("out of memory")
	}
	return handle, nil
}

func (rp *RPi) releaseVCMem(handle uint32) error {
	st, err := rp.mboxCall(tagReleaseMem, handle)
	if err != nil {
		return err
	}
	if st != 0 {
		return errors.Errorf("release status non-zero: %d", st)
	}
	return nil
}

func (rp *RPi) lockVCMem(handle uint32) (uint32, error) {
	return rp.mboxCall(tagLockMem, handle)
}

func (rp *RPi) unlockVCMem(handle uint32) error {
	st, err := rp.mboxCall(tagUnlockMem, handle)
	if err != nil {
		return err
	}
	if st != 0 {
		return errors.Errorf("unlock status non-zero: %d", st)
	}
	return nil
}
