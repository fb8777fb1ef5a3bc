package native

import (
	"fmt"
	"sync"
)

// SimFan holds fan sensor fixtures. A nil SimFan on a device marks the fan
// family unsupported, which is how liquid-cooled parts behave.
type SimFan struct {
	RPM   int64
	Speed int64
	Max   uint64
}

// SimDevice is the fixture for one simulated device.
type SimDevice struct {
	Name          string
	DeviceID      uint64
	Revision      uint32
	BDF           uint64
	UUID          string // raw UUID string, no vendor prefix
	UUIDSupported bool
	Socket        int
	NUMANode      int32
	Activity      EngineUsage
	Power         PowerInfo
	MemoryTotal   map[MemoryType]uint64
	MemoryUsed    map[MemoryType]uint64
	Fan           *SimFan
	ComputeMode   string
	MemoryMode    string
	XGMI          XGMIStatus
	HiveID        uint64
	RetiredPages  []RetiredPage
}

// DefaultSimDevices returns n devices with realistic fixtures: one socket
// per device, 64 GiB VRAM, air cooling on even indices and no fan telemetry
// on odd ones.
func DefaultSimDevices(n int) []*SimDevice {
	devices := make([]*SimDevice, n)
	for i := 0; i < n; i++ {
		var fan *SimFan
		if i%2 == 0 {
			fan = &SimFan{RPM: 1800, Speed: 128, Max: 255}
		}
		devices[i] = &SimDevice{
			Name:          "Instinct MI250X",
			DeviceID:      0x740c,
			Revision:      0x01,
			BDF:           uint64(0x03+i) << 8, // bus (0x03+i), device 0, function 0
			UUID:          fmt.Sprintf("%08x-1002-0000-0000-%012x", 0xdeadbe00+i, i),
			UUIDSupported: true,
			Socket:        i,
			NUMANode:      int32(i % 2),
			Activity:      EngineUsage{Graphics: 45, MemoryController: 30, Multimedia: 0},
			Power:         PowerInfo{Average: 280, Limit: 500},
			MemoryTotal: map[MemoryType]uint64{
				MemVRAM:        64 * 1024 * 1024 * 1024,
				MemVisibleVRAM: 256 * 1024 * 1024,
				MemGTT:         32 * 1024 * 1024 * 1024,
			},
			MemoryUsed: map[MemoryType]uint64{
				MemVRAM:        4 * 1024 * 1024 * 1024,
				MemVisibleVRAM: 16 * 1024 * 1024,
				MemGTT:         128 * 1024 * 1024,
			},
			Fan:         fan,
			ComputeMode: "SPX",
			MemoryMode:  "NPS1",
			HiveID:      0x1001,
		}
	}
	return devices
}

// Sim is an in-memory Library used by tests, development, and the CLI's
// sim backend. It counts calls per operation and supports forcing a status
// per operation to exercise failure paths.
type Sim struct {
	mu          sync.Mutex
	devices     []*SimDevice
	processes   []ProcessInfo
	initialized bool
	initCount   int
	calls       map[string]int
	forced      map[string]Status
}

var _ Library = (*Sim)(nil)

// NewSim creates a simulator over the given device fixtures.
func NewSim(devices ...*SimDevice) *Sim {
	return &Sim{
		devices: devices,
		calls:   make(map[string]int),
		forced:  make(map[string]Status),
	}
}

// Handle layout: socket handles start at 0x5000, processor handles at
// 0xA000. Values are arbitrary but distinct and stable within a session.
const (
	simSocketBase    = 0x5000
	simProcessorBase = 0xA000
)

func (s *Sim) deviceAt(h ProcessorHandle) (*SimDevice, Status) {
	i := int(h) - simProcessorBase
	if i < 0 || i >= len(s.devices) {
		return nil, StatusNotFound
	}
	return s.devices[i], StatusSuccess
}

// record counts the call and returns a forced status if one is set for the
// operation, or for the operation on a specific device via "op/<index>".
func (s *Sim) record(op string, h ProcessorHandle) Status {
	s.calls[op]++
	if st, ok := s.forced[fmt.Sprintf("%s/%d", op, int(h)-simProcessorBase)]; ok {
		return st
	}
	if st, ok := s.forced[op]; ok {
		return st
	}
	if !s.initialized {
		return StatusNotInit
	}
	return StatusSuccess
}

// CallCount returns how many times the named operation has been invoked.
func (s *Sim) CallCount(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// InitCount returns how many times Init has completed successfully.
func (s *Sim) InitCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initCount
}

// ForceStatus makes the named operation return the given status until
// cleared. Use "Op/<device index>" to scope the failure to one device.
func (s *Sim) ForceStatus(op string, st Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forced[op] = st
}

// ClearStatus removes a forced status.
func (s *Sim) ClearStatus(op string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.forced, op)
}

// SetProcesses replaces the simulated compute process list.
func (s *Sim) SetProcesses(procs []ProcessInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processes = procs
}

func (s *Sim) Init() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["Init"]++
	if st, ok := s.forced["Init"]; ok {
		return st
	}
	s.initialized = true
	s.initCount++
	return StatusSuccess
}

func (s *Sim) Shutdown() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["Shutdown"]++
	if st, ok := s.forced["Shutdown"]; ok {
		return st
	}
	s.initialized = false
	return StatusSuccess
}

func (s *Sim) SocketHandles() ([]SocketHandle, Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st := s.record("SocketHandles", 0); !st.OK() {
		return nil, st
	}
	seen := make(map[int]bool)
	var handles []SocketHandle
	for _, d := range s.devices {
		if !seen[d.Socket] {
			seen[d.Socket] = true
			handles = append(handles, SocketHandle(simSocketBase+d.Socket))
		}
	}
	return handles, StatusSuccess
}

func (s *Sim) ProcessorHandles(socket SocketHandle) ([]ProcessorHandle, Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st := s.record("ProcessorHandles", 0); !st.OK() {
		return nil, st
	}
	var handles []ProcessorHandle
	for i, d := range s.devices {
		if d.Socket == int(socket)-simSocketBase {
			handles = append(handles, ProcessorHandle(simProcessorBase+i))
		}
	}
	if len(handles) == 0 {
		return nil, StatusNotFound
	}
	return handles, StatusSuccess
}

func (s *Sim) ASICInfo(h ProcessorHandle) (ASICInfo, Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st := s.record("ASICInfo", h); !st.OK() {
		return ASICInfo{}, st
	}
	d, st := s.deviceAt(h)
	if !st.OK() {
		return ASICInfo{}, st
	}
	return ASICInfo{
		MarketName:      d.Name,
		VendorID:        0x1002,
		VendorName:      "Advanced Micro Devices",
		DeviceID:        d.DeviceID,
		RevisionID:      d.Revision,
		NumComputeUnits: 220,
	}, StatusSuccess
}

func (s *Sim) DeviceBDF(h ProcessorHandle) (uint64, Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st := s.record("DeviceBDF", h); !st.OK() {
		return 0, st
	}
	d, st := s.deviceAt(h)
	if !st.OK() {
		return 0, st
	}
	return d.BDF, StatusSuccess
}

func (s *Sim) DeviceUUID(h ProcessorHandle) (string, Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st := s.record("DeviceUUID", h); !st.OK() {
		return "", st
	}
	d, st := s.deviceAt(h)
	if !st.OK() {
		return "", st
	}
	if !d.UUIDSupported {
		return "", StatusNotSupported
	}
	return d.UUID, StatusSuccess
}

func (s *Sim) DriverVersion(h ProcessorHandle) (string, Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st := s.record("DriverVersion", h); !st.OK() {
		return "", st
	}
	if _, st := s.deviceAt(h); !st.OK() {
		return "", st
	}
	return "6.8.5", StatusSuccess
}

func (s *Sim) EngineUsage(h ProcessorHandle) (EngineUsage, Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st := s.record("EngineUsage", h); !st.OK() {
		return EngineUsage{}, st
	}
	d, st := s.deviceAt(h)
	if !st.OK() {
		return EngineUsage{}, st
	}
	return d.Activity, StatusSuccess
}

func (s *Sim) PowerInfo(h ProcessorHandle) (PowerInfo, Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st := s.record("PowerInfo", h); !st.OK() {
		return PowerInfo{}, st
	}
	d, st := s.deviceAt(h)
	if !st.OK() {
		return PowerInfo{}, st
	}
	return d.Power, StatusSuccess
}

func (s *Sim) MemoryTotal(h ProcessorHandle, t MemoryType) (uint64, Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st := s.record("MemoryTotal", h); !st.OK() {
		return 0, st
	}
	d, st := s.deviceAt(h)
	if !st.OK() {
		return 0, st
	}
	total, ok := d.MemoryTotal[t]
	if !ok {
		return 0, StatusNotSupported
	}
	return total, StatusSuccess
}

func (s *Sim) MemoryUsage(h ProcessorHandle, t MemoryType) (uint64, Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st := s.record("MemoryUsage", h); !st.OK() {
		return 0, st
	}
	d, st := s.deviceAt(h)
	if !st.OK() {
		return 0, st
	}
	used, ok := d.MemoryUsed[t]
	if !ok {
		return 0, StatusNotSupported
	}
	return used, StatusSuccess
}

func (s *Sim) ReservedMemoryPages(h ProcessorHandle) ([]RetiredPage, Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st := s.record("ReservedMemoryPages", h); !st.OK() {
		return nil, st
	}
	d, st := s.deviceAt(h)
	if !st.OK() {
		return nil, st
	}
	pages := make([]RetiredPage, len(d.RetiredPages))
	copy(pages, d.RetiredPages)
	return pages, StatusSuccess
}

func (s *Sim) FanRPM(h ProcessorHandle, sensor int) (int64, Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st := s.record("FanRPM", h); !st.OK() {
		return 0, st
	}
	d, st := s.deviceAt(h)
	if !st.OK() {
		return 0, st
	}
	if d.Fan == nil {
		return 0, StatusNotSupported
	}
	return d.Fan.RPM, StatusSuccess
}

func (s *Sim) FanSpeed(h ProcessorHandle, sensor int) (int64, Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st := s.record("FanSpeed", h); !st.OK() {
		return 0, st
	}
	d, st := s.deviceAt(h)
	if !st.OK() {
		return 0, st
	}
	if d.Fan == nil {
		return 0, StatusNotSupported
	}
	return d.Fan.Speed, StatusSuccess
}

func (s *Sim) FanSpeedMax(h ProcessorHandle, sensor int) (uint64, Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st := s.record("FanSpeedMax", h); !st.OK() {
		return 0, st
	}
	d, st := s.deviceAt(h)
	if !st.OK() {
		return 0, st
	}
	if d.Fan == nil {
		return 0, StatusNotSupported
	}
	return d.Fan.Max, StatusSuccess
}

func (s *Sim) PCIeInfo(h ProcessorHandle) (PCIeInfo, Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st := s.record("PCIeInfo", h); !st.OK() {
		return PCIeInfo{}, st
	}
	if _, st := s.deviceAt(h); !st.OK() {
		return PCIeInfo{}, st
	}
	return PCIeInfo{
		MaxWidth:         16,
		MaxSpeed:         32,
		InterfaceVersion: 5,
		Width:            16,
		Speed:            32,
		Bandwidth:        1024,
	}, StatusSuccess
}

func (s *Sim) NUMAAffinity(h ProcessorHandle) (int32, Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st := s.record("NUMAAffinity", h); !st.OK() {
		return 0, st
	}
	d, st := s.deviceAt(h)
	if !st.OK() {
		return 0, st
	}
	return d.NUMANode, StatusSuccess
}

// Pairwise topology defaults: same hive gets a one-hop XGMI link,
// everything else a two-hop PCIe path.
func (s *Sim) LinkType(src, dst ProcessorHandle) (uint64, LinkType, Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st := s.record("LinkType", src); !st.OK() {
		return 0, LinkUnknown, st
	}
	a, st := s.deviceAt(src)
	if !st.OK() {
		return 0, LinkUnknown, st
	}
	b, st := s.deviceAt(dst)
	if !st.OK() {
		return 0, LinkUnknown, st
	}
	if a == b {
		return 0, LinkInternal, StatusSuccess
	}
	if a.HiveID != 0 && a.HiveID == b.HiveID {
		return 1, LinkXGMI, StatusSuccess
	}
	return 2, LinkPCIe, StatusSuccess
}

func (s *Sim) LinkWeight(src, dst ProcessorHandle) (uint64, Status) {
	s.mu.Lock()
	st := s.record("LinkWeight", src)
	s.mu.Unlock()
	if !st.OK() {
		return 0, st
	}
	hops, _, st := s.LinkType(src, dst)
	if !st.OK() {
		return 0, st
	}
	return hops * 15, StatusSuccess
}

func (s *Sim) MinMaxBandwidth(src, dst ProcessorHandle) (uint64, uint64, Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st := s.record("MinMaxBandwidth", src); !st.OK() {
		return 0, 0, st
	}
	a, st := s.deviceAt(src)
	if !st.OK() {
		return 0, 0, st
	}
	b, st := s.deviceAt(dst)
	if !st.OK() {
		return 0, 0, st
	}
	if a.HiveID == 0 || a.HiveID != b.HiveID {
		return 0, 0, StatusNotSupported
	}
	return 25_000_000_000, 50_000_000_000, StatusSuccess
}

func (s *Sim) P2PStatus(src, dst ProcessorHandle) (P2PCapability, Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st := s.record("P2PStatus", src); !st.OK() {
		return P2PCapability{}, st
	}
	a, st := s.deviceAt(src)
	if !st.OK() {
		return P2PCapability{}, st
	}
	b, st := s.deviceAt(dst)
	if !st.OK() {
		return P2PCapability{}, st
	}
	linked := a.HiveID != 0 && a.HiveID == b.HiveID
	return P2PCapability{
		Coherent:      linked,
		Atomics32:     true,
		Atomics64:     linked,
		DMA:           linked,
		BiDirectional: linked,
	}, StatusSuccess
}

func (s *Sim) ComputeProcesses() ([]ProcessInfo, Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st := s.record("ComputeProcesses", 0); !st.OK() {
		return nil, st
	}
	procs := make([]ProcessInfo, len(s.processes))
	copy(procs, s.processes)
	return procs, StatusSuccess
}

func (s *Sim) ComputePartition(h ProcessorHandle) (string, Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st := s.record("ComputePartition", h); !st.OK() {
		return "", st
	}
	d, st := s.deviceAt(h)
	if !st.OK() {
		return "", st
	}
	if d.ComputeMode == "" {
		return "", StatusNotSupported
	}
	return d.ComputeMode, StatusSuccess
}

func (s *Sim) MemoryPartition(h ProcessorHandle) (string, Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st := s.record("MemoryPartition", h); !st.OK() {
		return "", st
	}
	d, st := s.deviceAt(h)
	if !st.OK() {
		return "", st
	}
	if d.MemoryMode == "" {
		return "", StatusNotSupported
	}
	return d.MemoryMode, StatusSuccess
}

func (s *Sim) XGMIErrorStatus(h ProcessorHandle) (XGMIStatus, Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st := s.record("XGMIErrorStatus", h); !st.OK() {
		return 0, st
	}
	d, st := s.deviceAt(h)
	if !st.OK() {
		return 0, st
	}
	return d.XGMI, StatusSuccess
}

func (s *Sim) XGMIErrorReset(h ProcessorHandle) Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st := s.record("XGMIErrorReset", h); !st.OK() {
		return st
	}
	d, st := s.deviceAt(h)
	if !st.OK() {
		return st
	}
	d.XGMI = XGMINoErrors
	return StatusSuccess
}

func (s *Sim) XGMIHiveID(h ProcessorHandle) (uint64, Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st := s.record("XGMIHiveID", h); !st.OK() {
		return 0, st
	}
	d, st := s.deviceAt(h)
	if !st.OK() {
		return 0, st
	}
	if d.HiveID == 0 {
		return 0, StatusNotSupported
	}
	return d.HiveID, StatusSuccess
}

// SetXGMIStatus sets the simulated XGMI error state for a device index.
func (s *Sim) SetXGMIStatus(index int, status XGMIStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index >= 0 && index < len(s.devices) {
		s.devices[index].XGMI = status
	}
}
