package scheduler

import "errors"

var (
	// ErrInvalidConfig is returned when a schedule expression or job setting is invalid
	ErrInvalidConfig = errors.New("invalid scheduler configuration")

	// ErrJobNotFound is returned when triggering an unregistered job
	ErrJobNotFound = errors.New("job not found")

	// ErrJobAlreadyRegistered is returned when a job name is registered twice
	ErrJobAlreadyRegistered = errors.New("job already registered")
)
