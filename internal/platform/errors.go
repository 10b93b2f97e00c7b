package platform

import (
	"errors"
	"fmt"
)

var (
	// ErrUpstream matches every failure talking to the platform.
	ErrUpstream = errors.New("platform: upstream error")
	// ErrMalformed marks a response that decoded but did not have the expected shape.
	ErrMalformed = errors.New("platform: malformed response")
)

// Error carries the operation and HTTP status of a failed platform call.
// StatusCode is 0 for transport and decode failures.
type Error struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("platform %s: status %d: %s", e.Op, e.StatusCode, e.Body)
	case e.Err != nil:
		return fmt.Sprintf("platform %s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("platform %s failed", e.Op)
	}
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	return target == ErrUpstream || (target == ErrMalformed && errors.Is(e.Err, ErrMalformed))
}
