package errcode

import (
	"errors"
	"fmt"
)

// Exit codes form the CLI contract of airgap-mirror. Automation on both the
// connected host and the bastion keys off these values, so they must not be
// renumbered.
const (
	GenericErr      = 1
	InputErr        = 1
	PathErr         = 2
	DiskSpaceErr    = 3
	ToolErr         = 4
	SubscriptionErr = 5
	SecretErr       = 6
)

// CodeExiter is an interface implemented by errors that result in an exit code.
type CodeExiter interface {
	ExitCode() int
}

// Error is an error carrying one of the documented exit codes.
type Error struct {
	code    int
	message string
}

func (e *Error) Error() string {
	return e.message
}

func (e *Error) ExitCode() int {
	return e.code
}

func newf(code int, format string, a ...any) *Error {
	return &Error{code: code, message: fmt.Sprintf(format, a...)}
}

// Inputf reports malformed or logically inconsistent user input.
func Inputf(format string, a ...any) *Error {
	return newf(InputErr, format, a...)
}

// Pathf reports a missing or invalid directory or file.
func Pathf(format string, a ...any) *Error {
	return newf(PathErr, format, a...)
}

// DiskSpacef reports insufficient free space at the working directory.
func DiskSpacef(format string, a ...any) *Error {
	return newf(DiskSpaceErr, format, a...)
}

// Toolf reports a required external binary that could not be found.
func Toolf(format string, a ...any) *Error {
	return newf(ToolErr, format, a...)
}

// Subscriptionf reports an absent or inactive subscription.
func Subscriptionf(format string, a ...any) *Error {
	return newf(SubscriptionErr, format, a...)
}

// Secretf reports an invalid pull secret payload.
func Secretf(format string, a ...any) *Error {
	return newf(SecretErr, format, a...)
}

// ExitCodeFromError maps an error to its process exit code. Errors that do
// not implement CodeExiter map to GenericErr.
func ExitCodeFromError(err error) int {
	if err == nil {
		return 0
	}
	var ce CodeExiter
	if errors.As(err, &ce) {
		return ce.ExitCode()
	}
	return GenericErr
}
