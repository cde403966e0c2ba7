// Package conn provides the uniform Connection contract the RedisGraph client
// dispatches every command through, and its three topology variants.
package conn

import (
	"errors"
)

// Connection error types
var (
	ErrUnsupportedOperation = errors.New("operation not supported by this connection topology")
	ErrConnectionClosed     = errors.New("connection already released")
	ErrNoRoutingKey         = errors.New("command has no routing key")
)
