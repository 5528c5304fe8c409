package rpi

import (
	"testing"
	"unsafe"
)

// The "want" numbers in these test cases were produced from this C code:
//
// #include <stdio.h>
// #include <linux/ioctl.h>
// #include <linux/spi/spidev.h>
//
// int main(void) {
//    printf("SPI_IOC_WR_MAX_SPEED_HZ: %08X\n", SPI_IOC_WR_MAX_SPEED_HZ);
//    printf("SPI_IOC_RD_BITS_PER_WORD: %08X\n", SPI_IOC_RD_BITS_PER_WORD);
//    printf("IOCTL_MBOX_PROPERTY: %08X\n", _IOWR(100, 0, char *));
// }
//
// compiled once for 32-bit and once for 64-bit ARM. Only the mailbox request differs, because
// its argument is a pointer.

func TestIoc(t *testing.T) {
	tests := []struct {
		name string
		dir  uint32
		typ  uint32
		nr   uint32
		size uint32
		want uint32
	}{
		{"SPI_IOC_WR_MAX_SPEED_HZ", iocWrite, 'k', 4, 4, 0x40046B04},
		{"SPI_IOC_RD_BITS_PER_WORD", iocRead, 'k', 3, 1, 0x80016B03},
		{"none", iocNone, 'k', 1, 0, 0x00006B01},
	}

	for _, test := range tests {
		if got := ioc(test.dir, test.typ, test.nr, test.size); got != test.want {
			t.Errorf("ioc, %s got: %08X, want: %08X", test.name, got, test.want)
		}
	}
}

func TestIowr(t *testing.T) {
	want := uint32(0xC0046400)
	if unsafe.Sizeof(uintptr(0)) == 8 {
		want = 0xC0086400
	}
	if got := iowr(videocoreMajorNum, 0, uintptr(0)); got != want {
		t.Errorf("iowr, IOCTL_MBOX_PROPERTY got: %08X, want: %08X", got, want)
	}
	if got := iowr('k', 4, uint32(0)); got != 0xC0046B04 {
		t.Errorf("iowr, uint32 got: %08X, want: C0046B04", got)
	}
}
