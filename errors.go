package vectorsink

import "errors"

var (
	// ErrInvalidConfig is returned by Config.Validate.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrUnknownDriver is returned for a store driver this module does not provide.
	ErrUnknownDriver = errors.New("unknown store driver")
)
