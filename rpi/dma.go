package rpi

import (
	"time"
	"unsafe"

	"github.com/pkg/errors"
)

const (
	pageSize = 4096

	dmaCsReset                    = 1 << 31
	dmaCsWaitOutstandingWrites    = 1 << 28
	dmaCsError                    = 1 << 8
	dmaCsWaitingOutstandingWrites = 1 << 6
	dmaCsInt                      = 1 << 2
	dmaCsEnd                      = 1 << 1
	dmaCsActive                   = 1 << 0
	dmaTiNoWideBursts             = 1 << 26
	dmaTiSrcInc                   = 1 << 8
	dmaTiDestDreq                 = 1 << 6
	dmaTiWaitResp                 = 1 << 3

	dmaWaitPoll  = 10 * time.Microsecond
	dmaWaitPolls = 100000
)

var dmaOffsets = map[int]uintptr{
	0:  0x00007000,
	1:  0x00007100,
	2:  0x00007200,
	3:  0x00007300,
	4:  0x00007400,
	5:  0x00007500,
	6:  0x00007600,
	7:  0x00007700,
	8:  0x00007800,
	9:  0x00007900,
	10: 0x00007a00,
	11: 0x00007b00,
	12: 0x00007c00,
	13: 0x00007d00,
	14: 0x00007e00,
	15: 0x00e05000,
}

type dmaT struct {
	cs        uint32
	conblkAd  uint32
	ti        uint32
	sourceAd  uint32
	destAd    uint32
	txLen     uint32
	stride    uint32
	nextConBk uint32
	debug     uint32
}

// dmaControl is the control block the DMA engine reads. It sits at the start of a DMABuf,
// followed by the data.
type dmaControl struct {
	ti        uint32
	sourceAd  uint32
	destAd    uint32
	txLen     uint32
	stride    uint32
	nextconbk uint32
	resvd1    uint32
	resvd2    uint32
}

type DMABuf struct {
	pb *PhysBuf
	c  *dmaControl
}

func (rp *RPi) getDMABuf(bytes int) (*DMABuf, error) {
	size := dmaBufSize(bytes)
	pb, err := rp.getPhysBuf(size)
	if err != nil {
		return nil, errors.Wrapf(err, "couldn't get %d byte physical buffer for DMA", bytes)
	}
	d := DMABuf{
		pb: pb,
		c:  (*dmaControl)(unsafe.Pointer(&pb.buf[pb.offs])),
	}
	return &d, nil
}

func (rp *RPi) freeDMABuf(d *DMABuf) error {
	return rp.freePhysBuf(d.pb)
}

// words returns the data area following the control block.
func (d *DMABuf) words() []uint32 {
	return d.pb.uint32Slice(unsafe.Sizeof(dmaControl{}))
}

// dmaBufSize is the allocation, in whole pages, for a DMA buffer holding bytes of data after
// its control block.
func dmaBufSize(bytes int) uint32 {
	bytes += int(unsafe.Sizeof(dmaControl{}))
	return uint32((bytes/pageSize + 1) * pageSize)
}

func (rp *RPi) initDMA(dma int) error {
	offset, ok := dmaOffsets[dma]
	if !ok {
		return errors.Errorf("no offset found for DMA %d", dma)
	}
	offset += rp.hw.periphBase
	buf, offs, err := mapMem(offset, int(unsafe.Sizeof(dmaT{})))
	if err != nil {
		return errors.Wrapf(err, "couldn't map dmaT at %08X", offset)
	}
	rp.dmaBuf = buf
	rp.dma = (*dmaT)(unsafe.Pointer(&buf[offs]))
	rp.log.Debug().Int("dma", dma).Int("len", len(buf)).Uint64("offset", uint64(offs)).Msg("mapped DMA registers")
	return nil
}

func dmaCsPanicPriority(val uint32) uint32 {
	return (val & 0xf) << 20
}

func dmaCsPriority(val uint32) uint32 {
	return (val & 0xf) << 16
}

func (rp *RPi) startDMA(d *DMABuf) {
	rp.dma.cs = dmaCsReset
	time.Sleep(10 * time.Microsecond)

	rp.dma.cs = dmaCsInt | dmaCsEnd
	time.Sleep(10 * time.Microsecond)

	rp.dma.conblkAd = uint32(d.pb.busAddr)
	rp.dma.debug = 7 // clear debug error flags
	rp.dma.cs = dmaCsWaitOutstandingWrites |
		dmaCsPanicPriority(15) |
		dmaCsPriority(15) |
		dmaCsActive
}

func (rp *RPi) waitForDMAEnd() error {
	var cs uint32
	for i := 0; ; i++ {
		cs = rp.dma.cs
		if cs&(dmaCsActive|dmaCsError) != dmaCsActive {
			break
		}
		if i == dmaWaitPolls {
			return errors.Errorf("wait timed out, cs %08X", cs)
		}
		time.Sleep(dmaWaitPoll)
	}
	if cs&dmaCsError != 0 {
		return errors.Errorf("DMA error, cs %08X, debug %08X", cs, rp.dma.debug)
	}
	return nil
}

// stopDMA aborts any transfer in progress.
func (rp *RPi) stopDMA() {
	if rp.dma == nil {
		return
	}
	rp.dma.cs = dmaCsReset
	time.Sleep(10 * time.Microsecond)
}
