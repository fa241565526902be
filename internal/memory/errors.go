package memory

import (
	"errors"
	"fmt"
)

// ErrStorageUnavailable marks a read/write failure on one of the backing
// stores. It is surfaced, never retried silently.
var ErrStorageUnavailable = errors.New("storage unavailable")

// CompositionError reports a structurally invalid stored message found
// while building a prompt. It indicates upstream corruption.
type CompositionError struct {
	Seq    int64
	Reason string
}

func (e *CompositionError) Error() string {
	return fmt.Sprintf("invalid stored message seq=%d: %s", e.Seq, e.Reason)
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStorageUnavailable, op, err)
}
