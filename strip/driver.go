package strip

import "fmt"

// Driver generates the signal for a Config's channels. Drivers own the channel buffers: Init
// attaches one []uint32 of Count elements to every used channel, Fini detaches them again.
type Driver interface {
	// Init allocates buffers and hardware resources for c.
	Init(c *Config) Status
	// Wait blocks until the previous transmission, if any, has finished.
	Wait(c *Config) Status
	// Render starts transmitting the current contents of every channel's buffer.
	Render(c *Config) Status
	// Fini releases everything Init acquired.
	Fini(c *Config)
	// StatusString describes s.
	StatusString(s Status) string
}

// Status is a driver return code. The values follow rpi_ws281x's ws2811_return_t.
type Status int

const (
	StatusSuccess Status = -iota
	StatusGeneric
	StatusOutOfMemory
	StatusHWNotSupported
	StatusMemLock
	StatusMmap
	StatusMapRegisters
	StatusGPIOInit
	StatusPWMSetup
	StatusMailboxDevice
	StatusDMA
	StatusIllegalGPIO
	StatusPCMSetup
	StatusSPISetup
	StatusSPITransfer
)

var statusText = map[Status]string{
	StatusSuccess:        "Success",
	StatusGeneric:        "Generic failure",
	StatusOutOfMemory:    "Out of memory",
	StatusHWNotSupported: "Hardware revision is not supported",
	StatusMemLock:        "Memory lock failed",
	StatusMmap:           "mmap() failed",
	StatusMapRegisters:   "Unable to map registers into userspace",
	StatusGPIOInit:       "Unable to initialize GPIO",
	StatusPWMSetup:       "Unable to initialize PWM",
	StatusMailboxDevice:  "Failed to create mailbox device",
	StatusDMA:            "DMA error",
	StatusIllegalGPIO:    "Selected GPIO not possible",
	StatusPCMSetup:       "Unable to initialize PCM",
	StatusSPISetup:       "Unable to initialize SPI",
	StatusSPITransfer:    "SPI transfer error",
}

// String returns the standard description of s. Drivers without their own wording can use it
// to implement StatusString.
func (s Status) String() string {
	if t, ok := statusText[s]; ok {
		return t
	}
	return fmt.Sprintf("Unknown status %d", int(s))
}
