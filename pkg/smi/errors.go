package smi

import (
	"errors"
	"fmt"

	"github.com/gosmi-project/gosmi/pkg/native"
)

// The closed error taxonomy exposed to callers. Every failing operation
// returns an error matching exactly one of these with errors.Is; callers
// branch on the kind, never on raw native codes.
var (
	// ErrNotInitialized is returned for any query outside an initialized
	// session. Caller-contract violation, never retried internally.
	ErrNotInitialized = errors.New("smi: library not initialized")

	// ErrIndexOutOfRange is returned for a device index outside
	// [0, DeviceCount). Caller-contract violation, never retried.
	ErrIndexOutOfRange = errors.New("smi: device index out of range")

	// ErrInvalidArgument is returned for malformed inputs, including
	// same-index pairwise topology queries.
	ErrInvalidArgument = errors.New("smi: invalid argument")

	// ErrNotSupported marks a metric the hardware or driver does not
	// provide. Expected steady-state behavior for optional metrics.
	ErrNotSupported = errors.New("smi: not supported")

	// ErrPermissionDenied is returned when the native layer refuses the
	// caller's privileges.
	ErrPermissionDenied = errors.New("smi: permission denied")

	// ErrDeviceUnavailable is returned when a device disappears or the
	// driver resets mid-session. The caller must start a new session;
	// no automatic re-discovery is attempted.
	ErrDeviceUnavailable = errors.New("smi: device unavailable")

	// ErrInternal wraps any unrecognized native status. The raw code is
	// preserved for diagnostics and must not drive caller control flow.
	ErrInternal = errors.New("smi: internal error")
)

// StatusError carries the raw native status alongside its taxonomy kind.
type StatusError struct {
	Op     string
	Status native.Status
	kind   error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %s (status %d)", e.Op, e.Status, int32(e.Status))
}

func (e *StatusError) Unwrap() error { return e.kind }

// kindFor maps every native status to exactly one taxonomy kind.
func kindFor(st native.Status) error {
	switch st {
	case native.StatusSuccess:
		return nil
	case native.StatusInvalidArgs, native.StatusInputOutOfBounds:
		return ErrInvalidArgument
	case native.StatusNotSupported, native.StatusNotYetImplemented:
		return ErrNotSupported
	case native.StatusNoPermission:
		return ErrPermissionDenied
	case native.StatusNotInit:
		return ErrNotInitialized
	case native.StatusNotFound, native.StatusBusy, native.StatusDriverNotLoaded:
		return ErrDeviceUnavailable
	default:
		return ErrInternal
	}
}

// statusError translates a native status into a taxonomy error, or nil on
// success.
func statusError(op string, st native.Status) error {
	kind := kindFor(st)
	if kind == nil {
		return nil
	}
	return &StatusError{Op: op, Status: st, kind: kind}
}
