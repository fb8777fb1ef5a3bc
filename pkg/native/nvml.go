//go:build linux && cgo

package native

import (
	"strings"
	"sync"

	"github.com/NVIDIA/go-nvml/pkg/nvml"
)

// NVML adapts NVIDIA's NVML library to the Library boundary so the core
// runs unmodified on NVIDIA hosts. Queries the NVML API does not express
// (GTT memory, XGMI counters, fan RPM, link weight) return NotSupported
// and flow through the normal capability path.
type NVML struct {
	mu      sync.Mutex
	devices []nvml.Device
}

var _ Library = (*NVML)(nil)

// NewNVML creates the NVML-backed Library.
func NewNVML() *NVML {
	return &NVML{}
}

// IsNVMLAvailable checks whether NVML can be initialized on this host.
func IsNVMLAvailable() bool {
	if ret := nvml.Init(); ret != nvml.SUCCESS {
		return false
	}
	nvml.Shutdown()
	return true
}

func fromReturn(ret nvml.Return) Status {
	switch ret {
	case nvml.SUCCESS:
		return StatusSuccess
	case nvml.ERROR_UNINITIALIZED:
		return StatusNotInit
	case nvml.ERROR_INVALID_ARGUMENT:
		return StatusInvalidArgs
	case nvml.ERROR_NOT_SUPPORTED:
		return StatusNotSupported
	case nvml.ERROR_NO_PERMISSION:
		return StatusNoPermission
	case nvml.ERROR_NOT_FOUND:
		return StatusNotFound
	case nvml.ERROR_GPU_IS_LOST, nvml.ERROR_RESET_REQUIRED:
		return StatusNotFound
	case nvml.ERROR_DRIVER_NOT_LOADED:
		return StatusDriverNotLoaded
	case nvml.ERROR_TIMEOUT:
		return StatusTimeout
	case nvml.ERROR_INSUFFICIENT_SIZE:
		return StatusInsufficientSize
	case nvml.ERROR_MEMORY:
		return StatusOutOfResources
	case nvml.ERROR_UNKNOWN:
		return StatusUnknownError
	default:
		return StatusAPIFailed
	}
}

func (n *NVML) Init() Status {
	return fromReturn(nvml.Init())
}

func (n *NVML) Shutdown() Status {
	n.mu.Lock()
	n.devices = nil
	n.mu.Unlock()
	return fromReturn(nvml.Shutdown())
}

// SocketHandles reports a single logical socket; NVML does not expose
// board-level grouping through a handle.
func (n *NVML) SocketHandles() ([]SocketHandle, Status) {
	return []SocketHandle{SocketHandle(1)}, StatusSuccess
}

func (n *NVML) ProcessorHandles(socket SocketHandle) ([]ProcessorHandle, Status) {
	n.mu.Lock()
	defer n.mu.Unlock()

	count, ret := nvml.DeviceGetCount()
	if ret != nvml.SUCCESS {
		return nil, fromReturn(ret)
	}

	n.devices = make([]nvml.Device, 0, count)
	handles := make([]ProcessorHandle, 0, count)
	for i := 0; i < count; i++ {
		device, ret := nvml.DeviceGetHandleByIndex(i)
		if ret != nvml.SUCCESS {
			return nil, fromReturn(ret)
		}
		n.devices = append(n.devices, device)
		handles = append(handles, ProcessorHandle(i+1))
	}
	return handles, StatusSuccess
}

func (n *NVML) deviceAt(h ProcessorHandle) (nvml.Device, Status) {
	n.mu.Lock()
	defer n.mu.Unlock()
	i := int(h) - 1
	if i < 0 || i >= len(n.devices) {
		var zero nvml.Device
		return zero, StatusNotFound
	}
	return n.devices[i], StatusSuccess
}

func (n *NVML) ASICInfo(h ProcessorHandle) (ASICInfo, Status) {
	device, st := n.deviceAt(h)
	if !st.OK() {
		return ASICInfo{}, st
	}

	name, ret := device.GetName()
	if ret != nvml.SUCCESS {
		return ASICInfo{}, fromReturn(ret)
	}

	info := ASICInfo{
		MarketName: name,
		VendorName: "NVIDIA",
	}
	if pci, ret := device.GetPciInfo(); ret == nvml.SUCCESS {
		info.DeviceID = uint64(pci.PciDeviceId >> 16)
		info.VendorID = pci.PciDeviceId & 0xffff
	}
	if serial, ret := device.GetSerial(); ret == nvml.SUCCESS {
		info.SerialNumber = serial
	}
	return info, StatusSuccess
}

func (n *NVML) DeviceBDF(h ProcessorHandle) (uint64, Status) {
	device, st := n.deviceAt(h)
	if !st.OK() {
		return 0, st
	}
	pci, ret := device.GetPciInfo()
	if ret != nvml.SUCCESS {
		return 0, fromReturn(ret)
	}
	// Pack into the boundary's BDF layout: function bits 0-2, device 3-7,
	// bus 8-15, domain 16-63.
	bdf := uint64(pci.Domain)<<16 | uint64(pci.Bus&0xff)<<8 | uint64(pci.Device&0x1f)<<3
	return bdf, StatusSuccess
}

func (n *NVML) DeviceUUID(h ProcessorHandle) (string, Status) {
	device, st := n.deviceAt(h)
	if !st.OK() {
		return "", st
	}
	uuid, ret := device.GetUUID()
	if ret != nvml.SUCCESS {
		return "", fromReturn(ret)
	}
	// The boundary carries the raw UUID; vendor prefixes are a formatting
	// concern handled above this layer.
	return strings.TrimPrefix(uuid, "GPU-"), StatusSuccess
}

func (n *NVML) DriverVersion(h ProcessorHandle) (string, Status) {
	version, ret := nvml.SystemGetDriverVersion()
	if ret != nvml.SUCCESS {
		return "", fromReturn(ret)
	}
	return version, StatusSuccess
}

func (n *NVML) EngineUsage(h ProcessorHandle) (EngineUsage, Status) {
	device, st := n.deviceAt(h)
	if !st.OK() {
		return EngineUsage{}, st
	}
	util, ret := device.GetUtilizationRates()
	if ret != nvml.SUCCESS {
		return EngineUsage{}, fromReturn(ret)
	}
	return EngineUsage{
		Graphics:         util.Gpu,
		MemoryController: util.Memory,
	}, StatusSuccess
}

func (n *NVML) PowerInfo(h ProcessorHandle) (PowerInfo, Status) {
	device, st := n.deviceAt(h)
	if !st.OK() {
		return PowerInfo{}, st
	}
	milliwatts, ret := device.GetPowerUsage()
	if ret != nvml.SUCCESS {
		return PowerInfo{}, fromReturn(ret)
	}
	info := PowerInfo{Current: milliwatts / 1000}
	if limit, ret := device.GetPowerManagementLimit(); ret == nvml.SUCCESS {
		info.Limit = limit / 1000
	}
	return info, StatusSuccess
}

func (n *NVML) MemoryTotal(h ProcessorHandle, t MemoryType) (uint64, Status) {
	device, st := n.deviceAt(h)
	if !st.OK() {
		return 0, st
	}
	switch t {
	case MemVRAM:
		memory, ret := device.GetMemoryInfo()
		if ret != nvml.SUCCESS {
			return 0, fromReturn(ret)
		}
		return memory.Total, StatusSuccess
	case MemVisibleVRAM:
		bar1, ret := device.GetBAR1MemoryInfo()
		if ret != nvml.SUCCESS {
			return 0, fromReturn(ret)
		}
		return bar1.Bar1Total, StatusSuccess
	default:
		return 0, StatusNotSupported
	}
}

func (n *NVML) MemoryUsage(h ProcessorHandle, t MemoryType) (uint64, Status) {
	device, st := n.deviceAt(h)
	if !st.OK() {
		return 0, st
	}
	switch t {
	case MemVRAM:
		memory, ret := device.GetMemoryInfo()
		if ret != nvml.SUCCESS {
			return 0, fromReturn(ret)
		}
		return memory.Used, StatusSuccess
	case MemVisibleVRAM:
		bar1, ret := device.GetBAR1MemoryInfo()
		if ret != nvml.SUCCESS {
			return 0, fromReturn(ret)
		}
		return bar1.Bar1Used, StatusSuccess
	default:
		return 0, StatusNotSupported
	}
}

func (n *NVML) ReservedMemoryPages(h ProcessorHandle) ([]RetiredPage, Status) {
	return nil, StatusNotSupported
}

// FanRPM is not expressible through NVML, which reports fan speed only as
// a percentage of maximum.
func (n *NVML) FanRPM(h ProcessorHandle, sensor int) (int64, Status) {
	return 0, StatusNotSupported
}

func (n *NVML) FanSpeed(h ProcessorHandle, sensor int) (int64, Status) {
	device, st := n.deviceAt(h)
	if !st.OK() {
		return 0, st
	}
	speed, ret := device.GetFanSpeed()
	if ret != nvml.SUCCESS {
		return 0, fromReturn(ret)
	}
	return int64(speed), StatusSuccess
}

// FanSpeedMax returns the top of NVML's percentage scale so FanSpeed
// readings keep their native meaning relative to it.
func (n *NVML) FanSpeedMax(h ProcessorHandle, sensor int) (uint64, Status) {
	device, st := n.deviceAt(h)
	if !st.OK() {
		return 0, st
	}
	if _, ret := device.GetFanSpeed(); ret != nvml.SUCCESS {
		return 0, fromReturn(ret)
	}
	return 100, StatusSuccess
}

// PCIe generation to GT/s per lane.
var pcieGenSpeed = map[int]uint32{1: 2, 2: 5, 3: 8, 4: 16, 5: 32, 6: 64}

func (n *NVML) PCIeInfo(h ProcessorHandle) (PCIeInfo, Status) {
	device, st := n.deviceAt(h)
	if !st.OK() {
		return PCIeInfo{}, st
	}

	maxGen, ret := device.GetMaxPcieLinkGeneration()
	if ret != nvml.SUCCESS {
		return PCIeInfo{}, fromReturn(ret)
	}
	maxWidth, ret := device.GetMaxPcieLinkWidth()
	if ret != nvml.SUCCESS {
		return PCIeInfo{}, fromReturn(ret)
	}

	info := PCIeInfo{
		MaxWidth:         uint16(maxWidth),
		MaxSpeed:         pcieGenSpeed[maxGen],
		InterfaceVersion: uint32(maxGen),
	}
	if gen, ret := device.GetCurrPcieLinkGeneration(); ret == nvml.SUCCESS {
		info.Speed = pcieGenSpeed[gen]
	}
	if width, ret := device.GetCurrPcieLinkWidth(); ret == nvml.SUCCESS {
		info.Width = uint16(width)
	}
	// Throughput counters are KB/s; the boundary carries Mb/s.
	if tx, ret := device.GetPcieThroughput(nvml.PCIE_UTIL_TX_BYTES); ret == nvml.SUCCESS {
		rx, _ := device.GetPcieThroughput(nvml.PCIE_UTIL_RX_BYTES)
		info.Bandwidth = (tx + rx) * 8 / 1000
	}
	if replay, ret := device.GetPcieReplayCounter(); ret == nvml.SUCCESS {
		info.ReplayCount = uint64(replay)
	}
	return info, StatusSuccess
}

func (n *NVML) NUMAAffinity(h ProcessorHandle) (int32, Status) {
	return 0, StatusNotSupported
}

func (n *NVML) LinkType(src, dst ProcessorHandle) (uint64, LinkType, Status) {
	if src == dst {
		return 0, LinkInternal, StatusSuccess
	}
	a, st := n.deviceAt(src)
	if !st.OK() {
		return 0, LinkUnknown, st
	}
	b, st := n.deviceAt(dst)
	if !st.OK() {
		return 0, LinkUnknown, st
	}
	level, ret := a.GetTopologyCommonAncestor(b)
	if ret != nvml.SUCCESS {
		return 0, LinkUnknown, fromReturn(ret)
	}
	switch level {
	case nvml.TOPOLOGY_INTERNAL:
		return 0, LinkInternal, StatusSuccess
	case nvml.TOPOLOGY_SINGLE:
		return 1, LinkPCIe, StatusSuccess
	case nvml.TOPOLOGY_MULTIPLE:
		return 2, LinkPCIe, StatusSuccess
	case nvml.TOPOLOGY_HOSTBRIDGE:
		return 3, LinkPCIe, StatusSuccess
	case nvml.TOPOLOGY_NODE:
		return 4, LinkPCIe, StatusSuccess
	default:
		return 5, LinkPCIe, StatusSuccess
	}
}

func (n *NVML) LinkWeight(src, dst ProcessorHandle) (uint64, Status) {
	return 0, StatusNotSupported
}

func (n *NVML) MinMaxBandwidth(src, dst ProcessorHandle) (uint64, uint64, Status) {
	return 0, 0, StatusNotSupported
}

func (n *NVML) P2PStatus(src, dst ProcessorHandle) (P2PCapability, Status) {
	a, st := n.deviceAt(src)
	if !st.OK() {
		return P2PCapability{}, st
	}
	b, st := n.deviceAt(dst)
	if !st.OK() {
		return P2PCapability{}, st
	}
	read, ret := nvml.DeviceGetP2PStatus(a, b, nvml.P2P_CAPS_INDEX_READ)
	if ret != nvml.SUCCESS {
		return P2PCapability{}, fromReturn(ret)
	}
	write, ret := nvml.DeviceGetP2PStatus(a, b, nvml.P2P_CAPS_INDEX_WRITE)
	if ret != nvml.SUCCESS {
		return P2PCapability{}, fromReturn(ret)
	}
	ok := read == nvml.P2P_STATUS_OK && write == nvml.P2P_STATUS_OK
	return P2PCapability{
		DMA:           ok,
		BiDirectional: ok,
	}, StatusSuccess
}

func (n *NVML) ComputeProcesses() ([]ProcessInfo, Status) {
	n.mu.Lock()
	devices := make([]nvml.Device, len(n.devices))
	copy(devices, n.devices)
	n.mu.Unlock()

	seen := make(map[uint32]bool)
	var procs []ProcessInfo
	for _, device := range devices {
		running, ret := device.GetComputeRunningProcesses()
		if ret != nvml.SUCCESS {
			return nil, fromReturn(ret)
		}
		for _, p := range running {
			if seen[p.Pid] {
				continue
			}
			seen[p.Pid] = true
			procs = append(procs, ProcessInfo{
				PID:       p.Pid,
				VRAMUsage: p.UsedGpuMemory,
			})
		}
	}
	return procs, StatusSuccess
}

func (n *NVML) ComputePartition(h ProcessorHandle) (string, Status) {
	device, st := n.deviceAt(h)
	if !st.OK() {
		return "", st
	}
	current, _, ret := device.GetMigMode()
	if ret != nvml.SUCCESS {
		return "", fromReturn(ret)
	}
	if current == nvml.DEVICE_MIG_ENABLE {
		return "MIG", StatusSuccess
	}
	return "NONE", StatusSuccess
}

func (n *NVML) MemoryPartition(h ProcessorHandle) (string, Status) {
	return "", StatusNotSupported
}

func (n *NVML) XGMIErrorStatus(h ProcessorHandle) (XGMIStatus, Status) {
	return 0, StatusNotSupported
}

func (n *NVML) XGMIErrorReset(h ProcessorHandle) Status {
	return StatusNotSupported
}

func (n *NVML) XGMIHiveID(h ProcessorHandle) (uint64, Status) {
	return 0, StatusNotSupported
}
