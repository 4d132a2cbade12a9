package domain

import "errors"

// Sentinel errors used throughout the application.
// Handlers translate these to HTTP status codes via a single mapError function.
var (
	ErrNotFound         = errors.New("not found")
	ErrCapacityExceeded = errors.New("alarm ceiling reached: cancel or wait for scheduled notifications before adding more")
	ErrNotSupported     = errors.New("operation not supported on this platform")
	ErrInvalidID        = errors.New("id must not be negative")
	ErrInvalidChannel   = errors.New("channel id must not be empty")
	ErrInvalidIcon      = errors.New("small icon must not be empty")
	ErrInvalidFireTime  = errors.New("fire time must be set")
	ErrInvalidInterval  = errors.New("repeat interval must not be negative")
	ErrInvalidName      = errors.New("channel name must not be empty")
	ErrMalformedPayload = errors.New("malformed notification payload")
	ErrQueueFull        = errors.New("delivery queue is full")
)
