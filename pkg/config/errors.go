package config

import "errors"

var (
	// ErrParsingConfig is returned when environment variables cannot be parsed into Config.
	ErrParsingConfig = errors.New("failed to parse environment variables into config")

	// ErrInvalidConfig is returned by Validate for out-of-range settings.
	ErrInvalidConfig = errors.New("invalid config")
)
