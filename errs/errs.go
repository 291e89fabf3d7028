// Package errs holds the error taxonomy shared by every package of the DBN
// trainer. None of these errors are retried: they all describe a
// mis-specified model rather than a transient condition.
package errs

import (
	"fmt"

	"github.com/pkg/errors"
)

// ConfigError reports a fatal configuration problem: a shape mismatch between
// a layer and the matrices it is given, degenerate input, an unknown unit
// kind or an invalid parameter.
type ConfigError string

func (err ConfigError) Error() string { return "configuration error: " + string(err) }

// NumericError reports a non-finite value that was caught before it could be
// written into the model.
type NumericError string

func (err NumericError) Error() string { return "numeric error: " + string(err) }

// ResourceError reports a matrix that could not be allocated.
type ResourceError string

func (err ResourceError) Error() string { return "resource error: " + string(err) }

// Configf returns a ConfigError with a stack trace attached.
func Configf(format string, args ...interface{}) error {
	return errors.WithStack(ConfigError(fmt.Sprintf(format, args...)))
}

// Numericf returns a NumericError with a stack trace attached.
func Numericf(format string, args ...interface{}) error {
	return errors.WithStack(NumericError(fmt.Sprintf(format, args...)))
}

// Resourcef returns a ResourceError with a stack trace attached.
func Resourcef(format string, args ...interface{}) error {
	return errors.WithStack(ResourceError(fmt.Sprintf(format, args...)))
}

// IsConfig reports whether the cause of err is a ConfigError.
func IsConfig(err error) bool {
	_, ok := errors.Cause(err).(ConfigError)
	return ok
}

// IsNumeric reports whether the cause of err is a NumericError.
func IsNumeric(err error) bool {
	_, ok := errors.Cause(err).(NumericError)
	return ok
}

// IsResource reports whether the cause of err is a ResourceError.
func IsResource(err error) bool {
	_, ok := errors.Cause(err).(ResourceError)
	return ok
}
