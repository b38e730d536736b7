package smtpserver

import (
	"fmt"
)

// We use panic and recover for error handling while executing commands.
// smtpError panics are reported to the client on the command loop; errIO and
// errTimeout panics close the connection.
type smtpError struct {
	code      int
	err       error
	userError bool // Client-side error, counted against the error ceiling.
}

func (e smtpError) Error() string { return e.err.Error() }
func (e smtpError) Unwrap() error { return e.err }

func xsmtpErrorf(code int, userError bool, format string, args ...any) {
	panic(smtpError{code, fmt.Errorf(format, args...), userError})
}

func xsmtpUserErrorf(code int, format string, args ...any) {
	xsmtpErrorf(code, true, format, args...)
}
