package redisgraph

import "errors"

// Client and session errors.
var (
	// ErrClientClosed is returned by every operation after Client.Close.
	ErrClientClosed = errors.New("redisgraph: client closed")

	// ErrSessionClosed is returned by every operation after Session.Close.
	ErrSessionClosed = errors.New("redisgraph: session closed")

	// ErrUnexpectedReply is wrapped when a non-query command returns a reply
	// of the wrong shape.
	ErrUnexpectedReply = errors.New("redisgraph: unexpected reply")

	// ErrInvalidParameter is wrapped when a query parameter or procedure
	// argument cannot be rendered as a literal.
	ErrInvalidParameter = errors.New("redisgraph: invalid parameter")
)
