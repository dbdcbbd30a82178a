package p2p

import (
	"errors"
	"fmt"
)

/*
ErrTransport is the single error kind this package produces: an envelope
could not be decoded or classified (§7 "TransportError").
*/
var ErrTransport = errors.New("TransportError")

/*
Error is a p2p related error.
*/
type Error struct {
	Detail string
}

/*
Error returns a human-readable string representation of this error.
*/
func (e *Error) Error() string {
	return fmt.Sprintf("%v: %s", ErrTransport, e.Detail)
}

/*
Unwrap allows errors.Is(err, ErrTransport) style checks.
*/
func (e *Error) Unwrap() error {
	return ErrTransport
}
