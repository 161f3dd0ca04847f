package simulator

import "errors"

var (
	// ErrOrderingViolation is returned when an event is dispatched with a
	// time earlier than the simulator's calendar time. It means the driver
	// or the scheduler is broken; the run must be aborted.
	ErrOrderingViolation = errors.New("event precedes calendar time")

	// ErrInvalidArgument is returned for unknown subjects, subjects of the
	// wrong sex for the event, malformed founders and invalid ages.
	ErrInvalidArgument = errors.New("invalid argument")
)
