package transport

import "errors"

// Sentinel errors returned by Port operations. Callers are expected to test
// with errors.Is; wrapped variants carry the underlying syscall detail.
var (
	// ErrOpen is returned when the device cannot be acquired or its current
	// line settings cannot be read.
	ErrOpen = errors.New("transport: open failed")

	// ErrConfigInvalid is returned for malformed configuration input before
	// the device has been touched.
	ErrConfigInvalid = errors.New("transport: invalid line configuration")

	// ErrConfigRejected is returned when the device refuses a configuration
	// push or the post-push readback fails.
	ErrConfigRejected = errors.New("transport: configuration rejected")

	// ErrWrite is returned when a write fails before the full buffer has
	// been delivered.
	ErrWrite = errors.New("transport: write failed")

	// ErrRead is returned on a hard read failure.
	ErrRead = errors.New("transport: read failed")

	// ErrTimeout is returned when a bounded read does not complete within
	// its deadline. Distinct from ErrRead; partial byte counts are still
	// reported.
	ErrTimeout = errors.New("transport: read timeout")

	// ErrClosed is returned by any operation on a closed port.
	ErrClosed = errors.New("transport: port closed")
)
