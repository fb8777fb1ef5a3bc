//go:build !(linux && cgo)

package native

// IsAMDSMIAvailable reports false on platforms where the native library
// cannot be loaded (non-Linux or CGO disabled).
func IsAMDSMIAvailable() bool { return false }

// NewAMDSMI returns nil on platforms without the native library. Only
// reachable if IsAMDSMIAvailable() returns true, which it never does here.
func NewAMDSMI() Library { return nil }
