package resultset

import (
	"errors"
	"fmt"
)

// ErrProtocol matches every *ProtocolError via errors.Is.
var ErrProtocol = errors.New("malformed reply")

// ProtocolError reports a reply whose shape does not match the compact
// result-set grammar.
type ProtocolError struct {
	Msg string
	Err error
}

// NewProtocolError formats a ProtocolError wrapping err (which may be nil).
func NewProtocolError(err error, format string, args ...any) *ProtocolError {
	return &ProtocolError{Msg: fmt.Sprintf(format, args...), Err: err}
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed reply: %s: %v", e.Msg, e.Err)
	}
	return "malformed reply: " + e.Msg
}

func (e *ProtocolError) Is(target error) bool { return target == ErrProtocol }

func (e *ProtocolError) Unwrap() error { return e.Err }
