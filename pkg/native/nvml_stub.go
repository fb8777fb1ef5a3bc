//go:build !(linux && cgo)

package native

// IsNVMLAvailable reports false on platforms without NVML (non-Linux or
// CGO disabled).
func IsNVMLAvailable() bool { return false }

// NewNVML returns nil on platforms without NVML. Only reachable if
// IsNVMLAvailable() returns true, which it never does here.
func NewNVML() Library { return nil }
