package cikada

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// CikadaError is the error type returned by every package in this module. All
// errors derived from one of the sentinels below satisfy [errors.Is] for that
// sentinel, no matter how many messages or causes are attached to them.
type CikadaError interface {
	error
	WithMessage(message string) CikadaError
	Wrap(err error) CikadaError
}

type baseCikadaError string

var ErrAllocationFailed CikadaError = baseCikadaError("Cannot allocate aligned buffer")
var ErrBufferOverflow CikadaError = baseCikadaError("Track buffer overflow")
var ErrIOFailed CikadaError = baseCikadaError("Input/output error")
var ErrInvalidArgument CikadaError = baseCikadaError("Invalid argument")
var ErrMalformedStream CikadaError = baseCikadaError("Malformed CiKaDa stream")
var ErrMalformedTrack CikadaError = baseCikadaError("Malformed track image")
var ErrMisaligned CikadaError = baseCikadaError("Buffer is not aligned")
var ErrShortTransfer CikadaError = baseCikadaError("Short transfer")
var ErrTooManyRuns CikadaError = baseCikadaError("Too many runs for one track")
var ErrUnknownDeviceModel CikadaError = baseCikadaError("Unknown device model")

func (e baseCikadaError) Error() string {
	return string(e)
}

func (e baseCikadaError) WithMessage(message string) CikadaError {
	return customCikadaError{
		message:       fmt.Sprintf("%s: %s", e, message),
		originalError: e,
	}
}

func (e baseCikadaError) Wrap(err error) CikadaError {
	return customCikadaError{
		message:       fmt.Sprintf("%s: %s", e.Error(), err.Error()),
		originalError: multierror.Append(e, err),
	}
}

// -----------------------------------------------------------------------------

type customCikadaError struct {
	message       string
	originalError error
}

// Error implements the `error` object interface. When called, it returns a string
// describing the error.
func (e customCikadaError) Error() string {
	return e.message
}

func (e customCikadaError) WithMessage(message string) CikadaError {
	return customCikadaError{
		message:       fmt.Sprintf("%s: %s", e.message, message),
		originalError: e,
	}
}

func (e customCikadaError) Wrap(err error) CikadaError {
	return customCikadaError{
		message:       fmt.Sprintf("%s: %s", e.Error(), err.Error()),
		originalError: multierror.Append(e, err),
	}
}

func (e customCikadaError) Unwrap() error {
	return e.originalError
}
