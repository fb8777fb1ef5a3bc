// Package native defines the boundary to the vendor device-management
// library. The Library interface mirrors the three call shapes the core
// depends on: one-time init/shutdown, socket and processor discovery, and
// per-handle queries that return a value plus a raw Status code.
//
// Handles are opaque. Nothing above this package interprets them; they are
// only ever passed back into the Library that produced them.
package native

// ProcessorHandle identifies one physical device for the lifetime of a
// session. Valid only between Init and Shutdown of the Library that
// returned it.
type ProcessorHandle uintptr

// SocketHandle identifies a physical socket or board hosting one or more
// processors.
type SocketHandle uintptr

// MemoryType selects which memory pool a memory query reads.
type MemoryType int32

const (
	// MemVRAM is the device's primary dedicated memory.
	MemVRAM MemoryType = 0
	// MemVisibleVRAM is the CPU-visible portion of dedicated memory.
	MemVisibleVRAM MemoryType = 1
	// MemGTT is GPU-accessible system memory.
	MemGTT MemoryType = 2
)

// String returns the conventional short name for the memory type.
func (t MemoryType) String() string {
	switch t {
	case MemVRAM:
		return "VRAM"
	case MemVisibleVRAM:
		return "VIS_VRAM"
	case MemGTT:
		return "GTT"
	}
	return "UNKNOWN"
}

// LinkType classifies the interconnect between two processors.
type LinkType int32

const (
	LinkInternal      LinkType = 0
	LinkPCIe          LinkType = 1
	LinkXGMI          LinkType = 2
	LinkNotApplicable LinkType = 3
	LinkUnknown       LinkType = 4
)

// String returns the label for the link type.
func (t LinkType) String() string {
	switch t {
	case LinkInternal:
		return "Internal"
	case LinkPCIe:
		return "PCIe"
	case LinkXGMI:
		return "XGMI"
	case LinkNotApplicable:
		return "N/A"
	}
	return "Unknown"
}

// XGMIStatus is the error state of a device's XGMI links.
type XGMIStatus int32

const (
	XGMINoErrors       XGMIStatus = 0
	XGMIError          XGMIStatus = 1
	XGMIMultipleErrors XGMIStatus = 2
)

// ASICInfo carries the static identity fields of a device.
type ASICInfo struct {
	MarketName      string
	VendorID        uint32
	VendorName      string
	SubvendorID     uint32
	DeviceID        uint64
	RevisionID      uint32
	SerialNumber    string
	OAMID           uint32
	NumComputeUnits uint32
}

// EngineUsage reports per-engine activity percentages.
type EngineUsage struct {
	Graphics         uint32 // GFX engine busy percent
	MemoryController uint32 // UMC busy percent
	Multimedia       uint32 // MM engine busy percent
}

// PowerInfo reports the device power state. Current is populated on newer
// parts, Average on older ones; Socket is the coarse fallback.
type PowerInfo struct {
	Socket     uint64 // W
	Current    uint32 // W, newer parts
	Average    uint32 // W, older parts
	GfxVoltage uint64 // mV
	SocVoltage uint64 // mV
	MemVoltage uint64 // mV
	Limit      uint32 // W
}

// PCIeInfo combines static link capabilities with live metrics, both read
// in the same native call.
type PCIeInfo struct {
	// Static capabilities.
	MaxWidth         uint16
	MaxSpeed         uint32 // GT/s
	InterfaceVersion uint32

	// Live metrics.
	Width           uint16
	Speed           uint32 // GT/s
	Bandwidth       uint32 // Mb/s
	ReplayCount     uint64
	L0RecoveryCount uint64
	ReplayRollovers uint64
	NAKSent         uint64
	NAKReceived     uint64
}

// RetiredPage describes one retired or reserved memory page.
type RetiredPage struct {
	Address uint64
	Size    uint64
	Status  int32
}

// P2PCapability describes the peer-to-peer abilities of a device pair.
type P2PCapability struct {
	Coherent      bool
	Atomics32     bool
	Atomics64     bool
	DMA           bool
	BiDirectional bool
}

// ProcessInfo describes one compute process resident on a device.
type ProcessInfo struct {
	PID         uint32
	VRAMUsage   uint64
	SDMAUsage   uint64
	CUOccupancy uint32
}

// Library is the native device-management library. Implementations must be
// safe for concurrent use after Init returns; the caller serializes Init
// and Shutdown themselves.
type Library interface {
	// Init performs the one-time library and driver initialization.
	Init() Status
	// Shutdown releases the library. Handles from this session are invalid
	// once Shutdown is called.
	Shutdown() Status

	// SocketHandles enumerates the physical sockets, in native order.
	SocketHandles() ([]SocketHandle, Status)
	// ProcessorHandles enumerates the processors on one socket, in native
	// order.
	ProcessorHandles(socket SocketHandle) ([]ProcessorHandle, Status)

	// Identity.
	ASICInfo(h ProcessorHandle) (ASICInfo, Status)
	DeviceBDF(h ProcessorHandle) (uint64, Status)
	DeviceUUID(h ProcessorHandle) (string, Status)
	DriverVersion(h ProcessorHandle) (string, Status)

	// Utilization and power.
	EngineUsage(h ProcessorHandle) (EngineUsage, Status)
	PowerInfo(h ProcessorHandle) (PowerInfo, Status)

	// Memory.
	MemoryTotal(h ProcessorHandle, t MemoryType) (uint64, Status)
	MemoryUsage(h ProcessorHandle, t MemoryType) (uint64, Status)
	ReservedMemoryPages(h ProcessorHandle) ([]RetiredPage, Status)

	// Fan sensors. Values are raw; a NotSupported status is the normal
	// outcome on devices without fan telemetry.
	FanRPM(h ProcessorHandle, sensor int) (int64, Status)
	FanSpeed(h ProcessorHandle, sensor int) (int64, Status)
	FanSpeedMax(h ProcessorHandle, sensor int) (uint64, Status)

	// PCIe and topology.
	PCIeInfo(h ProcessorHandle) (PCIeInfo, Status)
	NUMAAffinity(h ProcessorHandle) (int32, Status)
	LinkType(src, dst ProcessorHandle) (hops uint64, link LinkType, st Status)
	LinkWeight(src, dst ProcessorHandle) (uint64, Status)
	MinMaxBandwidth(src, dst ProcessorHandle) (min, max uint64, st Status)
	P2PStatus(src, dst ProcessorHandle) (P2PCapability, Status)

	// Compute processes, system-wide.
	ComputeProcesses() ([]ProcessInfo, Status)

	// Partitioning (read-only).
	ComputePartition(h ProcessorHandle) (string, Status)
	MemoryPartition(h ProcessorHandle) (string, Status)

	// XGMI error counters.
	XGMIErrorStatus(h ProcessorHandle) (XGMIStatus, Status)
	XGMIErrorReset(h ProcessorHandle) Status
	XGMIHiveID(h ProcessorHandle) (uint64, Status)
}
