package smi

import "github.com/gosmi-project/gosmi/pkg/native"

// Value types shared with the native boundary. Aliased so callers of this
// package never import pkg/native directly; handles stay internal.
type (
	// MemoryType selects which memory region a memory query reads.
	MemoryType = native.MemoryType

	// LinkType labels the interconnect between two devices.
	LinkType = native.LinkType

	// XGMIStatus reports the per-device XGMI error state.
	XGMIStatus = native.XGMIStatus

	// EngineUsage holds busy percentages for the device engines.
	EngineUsage = native.EngineUsage

	// PCIeInfo combines static link capabilities with live link state.
	PCIeInfo = native.PCIeInfo

	// ProcessInfo describes one compute process using a device.
	ProcessInfo = native.ProcessInfo

	// RetiredPage is one retired memory page record.
	RetiredPage = native.RetiredPage
)

const (
	MemoryVRAM        = native.MemVRAM
	MemoryVisibleVRAM = native.MemVisibleVRAM
	MemoryGTT         = native.MemGTT
)

const (
	LinkInternal      = native.LinkInternal
	LinkPCIe          = native.LinkPCIe
	LinkXGMI          = native.LinkXGMI
	LinkNotApplicable = native.LinkNotApplicable
	LinkUnknown       = native.LinkUnknown
)

const (
	XGMINoErrors       = native.XGMINoErrors
	XGMIError          = native.XGMIError
	XGMIMultipleErrors = native.XGMIMultipleErrors
)

// DeviceInfo is the static identity summary for one device.
type DeviceInfo struct {
	Index    int    `json:"index"`
	Name     string `json:"name"`
	DeviceID uint64 `json:"device_id"`
	Revision uint64 `json:"revision"`
	UUID     string `json:"uuid"`
	BDF      BDF    `json:"bdf"`
}
