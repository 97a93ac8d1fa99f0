package command

import (
	"errors"
	"fmt"

	"github.com/luciancaetano/kagikachi"
)

var (
	// ErrInvalidArguments is returned when SET has no value part.
	ErrInvalidArguments = errors.New(kagikachi.ReplyInvalidArguments)
	// ErrUnknownCommand is returned for an unrecognised keyword.
	ErrUnknownCommand = errors.New(kagikachi.ReplyUnknownCommand)
)

// ValueError reports a value argument that failed to parse.
type ValueError struct {
	Err error
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("Invalid value: %q", e.Err.Error())
}

func (e *ValueError) Unwrap() error {
	return e.Err
}
