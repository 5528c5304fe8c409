package strip

import (
	"fmt"

	"github.com/pkg/errors"
)

// Errors returned by the configuration store, the controller and the text boundary. They are
// wrapped with the name of the failing operation, so match them with errors.Is.
var (
	ErrInvalidArgumentCount = errors.New("wrong number of arguments")
	ErrInvalidArgumentType  = errors.New("wrong argument type")
	ErrInvalidChannel       = errors.New("invalid channel-number")
	ErrInvalidParameter     = errors.New("invalid parameter-id")
	ErrChannelNotReady      = errors.New("channel not ready")
	ErrNotInitialized       = errors.New("not initialized")

	// ErrDriver matches every *DriverError.
	ErrDriver = errors.New("driver error")
)

// DriverError is a non-success status reported by a Driver. Message is the driver's own
// description of Status.
type DriverError struct {
	Op      string
	Status  Status
	Message string
}

func (e *DriverError) Error() string {
	return fmt.Sprintf("%s(): %s", e.Op, e.Message)
}

func (e *DriverError) Is(target error) bool {
	return target == ErrDriver
}
