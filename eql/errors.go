package eql

import (
	"errors"
	"fmt"
)

/*
ErrParse is the single error kind this package produces: the query did
not match the grammar (§7 "ParseError").
*/
var ErrParse = errors.New("ParseError")

/*
Error carries a parse failure with a human-readable position (§4.E
"Parse errors are reported with a one-line diagnostic containing a
byte offset").
*/
type Error struct {
	Detail string
	Pos    int
}

func (e *Error) Error() string {
	return fmt.Sprintf("%v: %s (byte offset %d)", ErrParse, e.Detail, e.Pos)
}

func (e *Error) Unwrap() error {
	return ErrParse
}
