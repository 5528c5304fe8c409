package rpi

import (
	"reflect"
	"unsafe"

	"golang.org/x/sys/unix"
)

// ioctl request encoding. This is a replica of
// https://github.com/raspberrypi/linux/blob/rpi-5.4.y/include/uapi/asm-generic/ioctl.h

const (
	iocNRBits   uint32 = 8
	iocTypeBits uint32 = 8
	iocSizeBits uint32 = 14

	iocNRShift   = 0
	iocTypeShift = iocNRShift + iocNRBits
	iocSizeShift = iocTypeShift + iocTypeBits
	iocDirShift  = iocSizeShift + iocSizeBits

	iocNone  = 0
	iocWrite = 1
	iocRead  = 2
)

func ioc(dir uint32, typ uint32, nr uint32, size uint32) uint32 {
	return dir<<iocDirShift |
		typ<<iocTypeShift |
		nr<<iocNRShift |
		size<<iocSizeShift
}

// iowr is _IOWR: size is a value of the argument's type.
func iowr(typ uint32, nr uint32, size interface{}) uint32 {
	return ioc(iocRead|iocWrite, typ, nr, uint32(reflect.TypeOf(size).Size()))
}

func ioctlArrUint32(fd uintptr, req uint32, val []uint32) error {
	_, _, errno := unix.Syscall(
		unix.SYS_IOCTL,
		fd,
		uintptr(req),
		uintptr(unsafe.Pointer(&val[0])),
	)
	if errno != 0 {
		return errno
	}
	return nil
}
