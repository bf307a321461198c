package ports

import (
	"errors"
	"fmt"
)

var (
	// ErrResourceNotFound is returned when the media path does not exist.
	ErrResourceNotFound = errors.New("framesource: resource not found")

	// ErrUnsupportedFormat is returned when the container or codec cannot be decoded.
	ErrUnsupportedFormat = errors.New("framesource: unsupported format")

	// ErrIO is returned when reading the media fails.
	ErrIO = errors.New("framesource: i/o error")

	// ErrDecode is wrapped by every DecodeError.
	ErrDecode = errors.New("framesource: decode error")

	// ErrClosed is returned when a closed session is used.
	ErrClosed = errors.New("framesource: resource closed")
)

// DecodeError reports a single frame that could not be decoded.
type DecodeError struct {
	Number      int // sample or frame number, 1-based
	TimestampMs int
	Err         error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: frame %d at %d ms: %v", ErrDecode, e.Number, e.TimestampMs, e.Err)
}

// Unwrap lets errors.Is match both ErrDecode and the cause.
func (e *DecodeError) Unwrap() []error {
	return []error{ErrDecode, e.Err}
}
