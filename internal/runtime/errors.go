package runtime

import (
	"errors"
	"fmt"
)

// Sentinel errors for channel state handling.
var (
	ErrChannelBusy     = errors.New("channel unavailable: a request is already in flight")
	ErrChannelNotReady = errors.New("channel is not ready")
	ErrChannelClosed   = errors.New("channel is closed")
	ErrTimeout         = errors.New("timed out waiting for runtime reply")
)

// Fault is an execution error reported by the runtime itself, e.g. a
// Python traceback. It is distinct from transport or state errors: the
// channel stays healthy after a Fault.
type Fault struct {
	Message string
}

func (f *Fault) Error() string {
	return fmt.Sprintf("runtime error: %s", f.Message)
}

// IsFault reports whether err is a runtime-reported execution error.
func IsFault(err error) bool {
	var f *Fault
	return errors.As(err, &f)
}
