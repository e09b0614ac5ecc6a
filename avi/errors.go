package avi

import (
	"fmt"
	"io"

	pkgerrors "github.com/pkg/errors"
)

// Sentinel error kinds, per the propagation policy: Eof and Malformed
// always escape a read() call, Unsupported and Recoverable never do.
var (
	ErrMalformed   = fmt.Errorf("avi: malformed structure")
	ErrUnsupported = fmt.Errorf("avi: unsupported track or codec")
	ErrRecoverable = fmt.Errorf("avi: recoverable chunk defect")
)

// AVIError wraps an operation name around an underlying cause, in the
// same shape the teacher used: Op describes where the failure
// happened, Err carries (and, via pkg/errors, traces) the cause.
type AVIError struct {
	Op  string
	Err error
}

func (e *AVIError) Error() string {
	return fmt.Sprintf("avi: %s: %v", e.Op, e.Err)
}

func (e *AVIError) Unwrap() error {
	return e.Err
}

func wrapEOF(op string, err error) error {
	if err == nil {
		return nil
	}
	return &AVIError{Op: op, Err: pkgerrors.Wrap(io.EOF, err.Error())}
}

func malformed(op, format string, args ...any) error {
	return &AVIError{Op: op, Err: pkgerrors.Wrapf(ErrMalformed, format, args...)}
}

func unsupported(op, format string, args ...any) error {
	return &AVIError{Op: op, Err: pkgerrors.Wrapf(ErrUnsupported, format, args...)}
}

func recoverable(op, format string, args ...any) error {
	return &AVIError{Op: op, Err: pkgerrors.Wrapf(ErrRecoverable, format, args...)}
}

// IsEOF reports whether err ultimately wraps io.EOF.
func IsEOF(err error) bool { return pkgerrors.Is(err, io.EOF) }

// IsMalformed reports whether err ultimately wraps ErrMalformed.
func IsMalformed(err error) bool { return pkgerrors.Is(err, ErrMalformed) }

// IsUnsupported reports whether err ultimately wraps ErrUnsupported.
func IsUnsupported(err error) bool { return pkgerrors.Is(err, ErrUnsupported) }

// IsRecoverable reports whether err ultimately wraps ErrRecoverable.
func IsRecoverable(err error) bool { return pkgerrors.Is(err, ErrRecoverable) }
