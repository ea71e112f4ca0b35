// Package atcmd implements the AT command console: line parsing, parameter
// validation, the command registry and its handlers.
package atcmd

import "errors"

// Code is a result code surfaced verbatim on the console. It implements error so
// validators can return it directly or wrapped with detail.
type Code string

func (c Code) Error() string { return string(c) }

const (
	OK         Code = "OK"
	ParamError Code = "PARAM_ERROR"
	Busy       Code = "BUSY_ERROR"
	NotFound   Code = "COMMAND_NOT_FOUND"
	Error      Code = "ERROR"
)

// Of extracts a Code from an error chain, defaulting to Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	var c Code
	if errors.As(err, &c) {
		return c
	}

	return Error
}
