package errors

import (
	"fmt"
)

// FromPanic converts a value recovered from a panicking background goroutine
// into an internal error. The stack is kept in Details under "stack".
func FromPanic(op string, recovered interface{}, stack []byte) *TranscodingError {
	var err error
	switch v := recovered.(type) {
	case error:
		err = fmt.Errorf("panic: %w", v)
	case string:
		err = fmt.Errorf("panic: %s", v)
	default:
		err = fmt.Errorf("panic: %v", v)
	}

	return InternalError(op, err).WithDetail("stack", string(stack))
}
