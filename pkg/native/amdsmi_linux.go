//go:build linux && cgo

package native

/*
#cgo LDFLAGS: -ldl

#include <dlfcn.h>
#include <stdint.h>
#include <stdlib.h>

// Struct layouts mirror the stable AMD SMI ABI. The library is loaded at
// runtime with dlopen so no ROCm headers are needed at build time.

#define GOSMI_MAX_STRING 256

typedef struct {
	char     market_name[GOSMI_MAX_STRING];
	uint32_t vendor_id;
	char     vendor_name[GOSMI_MAX_STRING];
	uint32_t subvendor_id;
	uint64_t device_id;
	uint32_t rev_id;
	char     asic_serial[GOSMI_MAX_STRING];
	uint32_t oam_id;
	uint32_t num_of_compute_units;
	uint64_t target_graphics_version;
	uint32_t subsystem_id;
	uint32_t reserved[21];
} gosmi_asic_info_t;

typedef struct {
	uint32_t gfx_activity;
	uint32_t umc_activity;
	uint32_t mm_activity;
	uint32_t reserved[13];
} gosmi_engine_usage_t;

typedef struct {
	uint64_t socket_power;
	uint32_t current_socket_power;
	uint32_t average_socket_power;
	uint64_t gfx_voltage;
	uint64_t soc_voltage;
	uint64_t mem_voltage;
	uint32_t power_limit;
	uint64_t reserved[18];
} gosmi_power_info_t;

typedef struct {
	uint16_t max_pcie_width;
	uint32_t max_pcie_speed;
	uint32_t pcie_interface_version;
	int32_t  slot_type;
	uint32_t max_pcie_interface_version;
	uint64_t reserved[9];
} gosmi_pcie_static_t;

typedef struct {
	uint16_t pcie_width;
	uint32_t pcie_speed;
	uint32_t pcie_bandwidth;
	uint64_t pcie_replay_count;
	uint64_t pcie_l0_to_recovery_count;
	uint64_t pcie_replay_roll_over_count;
	uint64_t pcie_nak_sent_count;
	uint64_t pcie_nak_received_count;
	uint32_t pcie_lc_perf_other_end_recovery_count;
	uint64_t reserved[12];
} gosmi_pcie_metric_t;

typedef struct {
	gosmi_pcie_static_t pcie_static;
	gosmi_pcie_metric_t pcie_metric;
	uint64_t reserved[32];
} gosmi_pcie_info_t;

typedef struct {
	uint64_t page_address;
	uint64_t page_size;
	int32_t  status;
} gosmi_retired_page_t;

typedef struct {
	uint8_t is_iolink_coherent;
	uint8_t is_iolink_atomics_32bit;
	uint8_t is_iolink_atomics_64bit;
	uint8_t is_iolink_dma;
	uint8_t is_iolink_bi_directional;
} gosmi_p2p_capability_t;

typedef struct {
	uint32_t process_id;
	uint32_t pasid;
	uint64_t vram_usage;
	uint64_t sdma_usage;
	uint32_t cu_occupancy;
} gosmi_process_info_t;

static void *gosmi_lib = NULL;

static int gosmi_open(const char *path) {
	gosmi_lib = dlopen(path, RTLD_LAZY | RTLD_GLOBAL);
	return gosmi_lib != NULL;
}

static void gosmi_close(void) {
	if (gosmi_lib != NULL) {
		dlclose(gosmi_lib);
		gosmi_lib = NULL;
	}
}

static void *gosmi_sym(const char *name) {
	return gosmi_lib ? dlsym(gosmi_lib, name) : NULL;
}

// Typed call-through helpers, one per signature shape in the symbol set.
static int32_t gosmi_call_void(void *f) {
	return ((int32_t (*)(void))f)();
}
static int32_t gosmi_call_u64(void *f, uint64_t a) {
	return ((int32_t (*)(uint64_t))f)(a);
}
static int32_t gosmi_call_pp(void *f, void *a, void *b) {
	return ((int32_t (*)(void *, void *))f)(a, b);
}
static int32_t gosmi_call_ppp(void *f, void *a, void *b, void *c) {
	return ((int32_t (*)(void *, void *, void *))f)(a, b, c);
}
static int32_t gosmi_call_pppp(void *f, void *a, void *b, void *c, void *d) {
	return ((int32_t (*)(void *, void *, void *, void *))f)(a, b, c, d);
}
static int32_t gosmi_call_pu32p(void *f, void *a, uint32_t b, void *c) {
	return ((int32_t (*)(void *, uint32_t, void *))f)(a, b, c);
}
static int32_t gosmi_call_u32(void *f, uint32_t a) {
	return ((int32_t (*)(uint32_t))f)(a);
}
static int32_t gosmi_call_u32p(void *f, uint32_t a, void *b) {
	return ((int32_t (*)(uint32_t, void *))f)(a, b);
}
static int32_t gosmi_call_u32pu32(void *f, uint32_t a, void *b, uint32_t c) {
	return ((int32_t (*)(uint32_t, void *, uint32_t))f)(a, b, c);
}
static int32_t gosmi_call_i32pu32(void *f, int32_t a, void *b, uint32_t c) {
	return ((int32_t (*)(int32_t, void *, uint32_t))f)(a, b, c);
}
*/
import "C"

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"unsafe"
)

const (
	amdsmiLibName     = "libamd_smi.so"
	amdsmiInitAMDGPUs = 1 << 1
	maxNativeString   = 256
)

// AMDSMI is the real backend. It dlopens libamd_smi.so from $ROCM_PATH
// (default /opt/rocm) and resolves symbols lazily, so a missing or older
// library degrades to per-call FailLoadSymbol statuses instead of a hard
// load failure.
type AMDSMI struct {
	mu     sync.Mutex
	loaded bool
	syms   map[string]unsafe.Pointer

	// Legacy symbols address devices by enumeration index, not handle.
	index map[ProcessorHandle]uint32
	next  uint32
}

var _ Library = (*AMDSMI)(nil)

// NewAMDSMI creates the AMD SMI backed Library. The library itself is not
// loaded until Init.
func NewAMDSMI() *AMDSMI {
	return &AMDSMI{
		syms:  make(map[string]unsafe.Pointer),
		index: make(map[ProcessorHandle]uint32),
	}
}

// IsAMDSMIAvailable reports whether libamd_smi.so is present and the
// amdgpu driver is live.
func IsAMDSMIAvailable() bool {
	return findAMDSMILibrary() != "" && driverInitialized()
}

func findAMDSMILibrary() string {
	root := os.Getenv("ROCM_PATH")
	if root == "" {
		root = "/opt/rocm"
	}
	for _, dir := range []string{"lib", "lib64"} {
		path := filepath.Join(root, dir, amdsmiLibName)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// driverInitialized reports whether amdgpu shows up live in the kernel
// module state.
func driverInitialized() bool {
	state, err := os.ReadFile("/sys/module/amdgpu/initstate")
	if err != nil {
		return false
	}
	return bytes.Contains(state, []byte("live"))
}

func (a *AMDSMI) sym(name string) unsafe.Pointer {
	if p, ok := a.syms[name]; ok {
		return p
	}
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	p := C.gosmi_sym(cname)
	a.syms[name] = p
	return p
}

func (a *AMDSMI) Init() Status {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.loaded {
		path := findAMDSMILibrary()
		if path == "" {
			return StatusFailLoadModule
		}
		if !driverInitialized() {
			return StatusDriverNotLoaded
		}
		cpath := C.CString(path)
		defer C.free(unsafe.Pointer(cpath))
		if C.gosmi_open(cpath) == 0 {
			return StatusFailLoadModule
		}
		a.loaded = true
	}

	f := a.sym("amdsmi_init")
	if f == nil {
		return StatusFailLoadSymbol
	}
	return Status(C.gosmi_call_u64(f, amdsmiInitAMDGPUs))
}

func (a *AMDSMI) Shutdown() Status {
	a.mu.Lock()
	defer a.mu.Unlock()

	f := a.sym("amdsmi_shut_down")
	if f == nil {
		return StatusFailLoadSymbol
	}
	st := Status(C.gosmi_call_void(f))
	a.index = make(map[ProcessorHandle]uint32)
	a.next = 0
	return st
}

func (a *AMDSMI) SocketHandles() ([]SocketHandle, Status) {
	a.mu.Lock()
	defer a.mu.Unlock()

	f := a.sym("amdsmi_get_socket_handles")
	if f == nil {
		return nil, StatusFailLoadSymbol
	}

	var count C.uint32_t
	if st := Status(C.gosmi_call_pp(f, unsafe.Pointer(&count), nil)); !st.OK() {
		return nil, st
	}
	if count == 0 {
		return nil, StatusSuccess
	}

	raw := make([]unsafe.Pointer, count)
	if st := Status(C.gosmi_call_pp(f, unsafe.Pointer(&count), unsafe.Pointer(&raw[0]))); !st.OK() {
		return nil, st
	}

	handles := make([]SocketHandle, count)
	for i := range handles {
		handles[i] = SocketHandle(uintptr(raw[i]))
	}
	return handles, StatusSuccess
}

func (a *AMDSMI) ProcessorHandles(socket SocketHandle) ([]ProcessorHandle, Status) {
	a.mu.Lock()
	defer a.mu.Unlock()

	f := a.sym("amdsmi_get_processor_handles")
	if f == nil {
		return nil, StatusFailLoadSymbol
	}

	var count C.uint32_t
	if st := Status(C.gosmi_call_ppp(f, unsafe.Pointer(socket), unsafe.Pointer(&count), nil)); !st.OK() {
		return nil, st
	}
	if count == 0 {
		return nil, StatusSuccess
	}

	raw := make([]unsafe.Pointer, count)
	if st := Status(C.gosmi_call_ppp(f, unsafe.Pointer(socket), unsafe.Pointer(&count), unsafe.Pointer(&raw[0]))); !st.OK() {
		return nil, st
	}

	handles := make([]ProcessorHandle, count)
	for i := range handles {
		h := ProcessorHandle(uintptr(raw[i]))
		handles[i] = h
		if _, ok := a.index[h]; !ok {
			a.index[h] = a.next
			a.next++
		}
	}
	return handles, StatusSuccess
}

// legacyIndex maps a processor handle back to its enumeration index for
// the symbols that predate handles.
func (a *AMDSMI) legacyIndex(h ProcessorHandle) (uint32, Status) {
	a.mu.Lock()
	defer a.mu.Unlock()
	i, ok := a.index[h]
	if !ok {
		return 0, StatusNotFound
	}
	return i, StatusSuccess
}

func (a *AMDSMI) handleCall(name string, h ProcessorHandle, out unsafe.Pointer) Status {
	a.mu.Lock()
	f := a.sym(name)
	a.mu.Unlock()
	if f == nil {
		return StatusFailLoadSymbol
	}
	return Status(C.gosmi_call_pp(f, unsafe.Pointer(h), out))
}

func cString(buf *[maxNativeString]C.char) string {
	return C.GoString(&buf[0])
}

func (a *AMDSMI) ASICInfo(h ProcessorHandle) (ASICInfo, Status) {
	var raw C.gosmi_asic_info_t
	if st := a.handleCall("amdsmi_get_gpu_asic_info", h, unsafe.Pointer(&raw)); !st.OK() {
		return ASICInfo{}, st
	}
	return ASICInfo{
		MarketName:      cString(&raw.market_name),
		VendorID:        uint32(raw.vendor_id),
		VendorName:      cString(&raw.vendor_name),
		SubvendorID:     uint32(raw.subvendor_id),
		DeviceID:        uint64(raw.device_id),
		RevisionID:      uint32(raw.rev_id),
		SerialNumber:    cString(&raw.asic_serial),
		OAMID:           uint32(raw.oam_id),
		NumComputeUnits: uint32(raw.num_of_compute_units),
	}, StatusSuccess
}

func (a *AMDSMI) DeviceBDF(h ProcessorHandle) (uint64, Status) {
	var bdf C.uint64_t
	if st := a.handleCall("amdsmi_get_gpu_device_bdf", h, unsafe.Pointer(&bdf)); !st.OK() {
		return 0, st
	}
	return uint64(bdf), StatusSuccess
}

func (a *AMDSMI) DeviceUUID(h ProcessorHandle) (string, Status) {
	a.mu.Lock()
	f := a.sym("amdsmi_get_gpu_device_uuid")
	a.mu.Unlock()
	if f == nil {
		return "", StatusFailLoadSymbol
	}

	var buf [maxNativeString]C.char
	length := C.uint32_t(maxNativeString)
	st := Status(C.gosmi_call_ppp(f, unsafe.Pointer(h), unsafe.Pointer(&length), unsafe.Pointer(&buf[0])))
	if !st.OK() {
		return "", st
	}
	return cString(&buf), StatusSuccess
}

func (a *AMDSMI) DriverVersion(h ProcessorHandle) (string, Status) {
	a.mu.Lock()
	f := a.sym("rsmi_version_str_get")
	a.mu.Unlock()
	if f == nil {
		return "", StatusFailLoadSymbol
	}

	var buf [maxNativeString]C.char
	// Component 0 is the driver.
	st := Status(C.gosmi_call_i32pu32(f, 0, unsafe.Pointer(&buf[0]), maxNativeString))
	if !st.OK() {
		return "", st
	}
	return cString(&buf), StatusSuccess
}

func (a *AMDSMI) EngineUsage(h ProcessorHandle) (EngineUsage, Status) {
	var raw C.gosmi_engine_usage_t
	if st := a.handleCall("amdsmi_get_gpu_activity", h, unsafe.Pointer(&raw)); !st.OK() {
		return EngineUsage{}, st
	}
	return EngineUsage{
		Graphics:         uint32(raw.gfx_activity),
		MemoryController: uint32(raw.umc_activity),
		Multimedia:       uint32(raw.mm_activity),
	}, StatusSuccess
}

func (a *AMDSMI) PowerInfo(h ProcessorHandle) (PowerInfo, Status) {
	var raw C.gosmi_power_info_t
	if st := a.handleCall("amdsmi_get_power_info", h, unsafe.Pointer(&raw)); !st.OK() {
		return PowerInfo{}, st
	}
	return PowerInfo{
		Socket:     uint64(raw.socket_power),
		Current:    uint32(raw.current_socket_power),
		Average:    uint32(raw.average_socket_power),
		GfxVoltage: uint64(raw.gfx_voltage),
		SocVoltage: uint64(raw.soc_voltage),
		MemVoltage: uint64(raw.mem_voltage),
		Limit:      uint32(raw.power_limit),
	}, StatusSuccess
}

func (a *AMDSMI) memoryQuery(name string, h ProcessorHandle, t MemoryType) (uint64, Status) {
	a.mu.Lock()
	f := a.sym(name)
	a.mu.Unlock()
	if f == nil {
		return 0, StatusFailLoadSymbol
	}
	var value C.uint64_t
	st := Status(C.gosmi_call_pu32p(f, unsafe.Pointer(h), C.uint32_t(t), unsafe.Pointer(&value)))
	if !st.OK() {
		return 0, st
	}
	return uint64(value), StatusSuccess
}

func (a *AMDSMI) MemoryTotal(h ProcessorHandle, t MemoryType) (uint64, Status) {
	return a.memoryQuery("amdsmi_get_gpu_memory_total", h, t)
}

func (a *AMDSMI) MemoryUsage(h ProcessorHandle, t MemoryType) (uint64, Status) {
	return a.memoryQuery("amdsmi_get_gpu_memory_usage", h, t)
}

func (a *AMDSMI) ReservedMemoryPages(h ProcessorHandle) ([]RetiredPage, Status) {
	a.mu.Lock()
	f := a.sym("amdsmi_get_gpu_memory_reserved_pages")
	a.mu.Unlock()
	if f == nil {
		return nil, StatusFailLoadSymbol
	}

	var count C.uint32_t
	if st := Status(C.gosmi_call_ppp(f, unsafe.Pointer(h), unsafe.Pointer(&count), nil)); !st.OK() {
		return nil, st
	}
	if count == 0 {
		return nil, StatusSuccess
	}

	raw := make([]C.gosmi_retired_page_t, count)
	if st := Status(C.gosmi_call_ppp(f, unsafe.Pointer(h), unsafe.Pointer(&count), unsafe.Pointer(&raw[0]))); !st.OK() {
		return nil, st
	}

	pages := make([]RetiredPage, count)
	for i := range pages {
		pages[i] = RetiredPage{
			Address: uint64(raw[i].page_address),
			Size:    uint64(raw[i].page_size),
			Status:  int32(raw[i].status),
		}
	}
	return pages, StatusSuccess
}

func (a *AMDSMI) fanQuery(name string, h ProcessorHandle, sensor int, out unsafe.Pointer) Status {
	a.mu.Lock()
	f := a.sym(name)
	a.mu.Unlock()
	if f == nil {
		return StatusFailLoadSymbol
	}
	return Status(C.gosmi_call_pu32p(f, unsafe.Pointer(h), C.uint32_t(sensor), out))
}

func (a *AMDSMI) FanRPM(h ProcessorHandle, sensor int) (int64, Status) {
	var rpm C.int64_t
	if st := a.fanQuery("amdsmi_get_gpu_fan_rpms", h, sensor, unsafe.Pointer(&rpm)); !st.OK() {
		return 0, st
	}
	return int64(rpm), StatusSuccess
}

func (a *AMDSMI) FanSpeed(h ProcessorHandle, sensor int) (int64, Status) {
	var speed C.int64_t
	if st := a.fanQuery("amdsmi_get_gpu_fan_speed", h, sensor, unsafe.Pointer(&speed)); !st.OK() {
		return 0, st
	}
	return int64(speed), StatusSuccess
}

func (a *AMDSMI) FanSpeedMax(h ProcessorHandle, sensor int) (uint64, Status) {
	var max C.uint64_t
	if st := a.fanQuery("amdsmi_get_gpu_fan_speed_max", h, sensor, unsafe.Pointer(&max)); !st.OK() {
		return 0, st
	}
	return uint64(max), StatusSuccess
}

func (a *AMDSMI) PCIeInfo(h ProcessorHandle) (PCIeInfo, Status) {
	var raw C.gosmi_pcie_info_t
	if st := a.handleCall("amdsmi_get_pcie_info", h, unsafe.Pointer(&raw)); !st.OK() {
		return PCIeInfo{}, st
	}
	return PCIeInfo{
		MaxWidth:         uint16(raw.pcie_static.max_pcie_width),
		MaxSpeed:         uint32(raw.pcie_static.max_pcie_speed),
		InterfaceVersion: uint32(raw.pcie_static.pcie_interface_version),
		Width:            uint16(raw.pcie_metric.pcie_width),
		Speed:            uint32(raw.pcie_metric.pcie_speed),
		Bandwidth:        uint32(raw.pcie_metric.pcie_bandwidth),
		ReplayCount:      uint64(raw.pcie_metric.pcie_replay_count),
		L0RecoveryCount:  uint64(raw.pcie_metric.pcie_l0_to_recovery_count),
		ReplayRollovers:  uint64(raw.pcie_metric.pcie_replay_roll_over_count),
		NAKSent:          uint64(raw.pcie_metric.pcie_nak_sent_count),
		NAKReceived:      uint64(raw.pcie_metric.pcie_nak_received_count),
	}, StatusSuccess
}

func (a *AMDSMI) NUMAAffinity(h ProcessorHandle) (int32, Status) {
	var node C.int32_t
	if st := a.handleCall("amdsmi_get_gpu_topo_numa_affinity", h, unsafe.Pointer(&node)); !st.OK() {
		return 0, st
	}
	return int32(node), StatusSuccess
}

func (a *AMDSMI) LinkType(src, dst ProcessorHandle) (uint64, LinkType, Status) {
	a.mu.Lock()
	f := a.sym("amdsmi_topo_get_link_type")
	a.mu.Unlock()
	if f == nil {
		return 0, LinkUnknown, StatusFailLoadSymbol
	}

	var hops C.uint64_t
	var link C.int32_t
	st := Status(C.gosmi_call_pppp(f, unsafe.Pointer(src), unsafe.Pointer(dst), unsafe.Pointer(&hops), unsafe.Pointer(&link)))
	if !st.OK() {
		return 0, LinkUnknown, st
	}
	return uint64(hops), LinkType(link), StatusSuccess
}

func (a *AMDSMI) LinkWeight(src, dst ProcessorHandle) (uint64, Status) {
	a.mu.Lock()
	f := a.sym("amdsmi_topo_get_link_weight")
	a.mu.Unlock()
	if f == nil {
		return 0, StatusFailLoadSymbol
	}

	var weight C.uint64_t
	st := Status(C.gosmi_call_ppp(f, unsafe.Pointer(src), unsafe.Pointer(dst), unsafe.Pointer(&weight)))
	if !st.OK() {
		return 0, st
	}
	return uint64(weight), StatusSuccess
}

func (a *AMDSMI) MinMaxBandwidth(src, dst ProcessorHandle) (uint64, uint64, Status) {
	a.mu.Lock()
	f := a.sym("amdsmi_get_minmax_bandwidth_between_processors")
	a.mu.Unlock()
	if f == nil {
		return 0, 0, StatusFailLoadSymbol
	}

	var min, max C.uint64_t
	st := Status(C.gosmi_call_pppp(f, unsafe.Pointer(src), unsafe.Pointer(dst), unsafe.Pointer(&min), unsafe.Pointer(&max)))
	if !st.OK() {
		return 0, 0, st
	}
	return uint64(min), uint64(max), StatusSuccess
}

func (a *AMDSMI) P2PStatus(src, dst ProcessorHandle) (P2PCapability, Status) {
	a.mu.Lock()
	f := a.sym("amdsmi_topo_get_p2p_status")
	a.mu.Unlock()
	if f == nil {
		return P2PCapability{}, StatusFailLoadSymbol
	}

	var link C.int32_t
	var raw C.gosmi_p2p_capability_t
	st := Status(C.gosmi_call_pppp(f, unsafe.Pointer(src), unsafe.Pointer(dst), unsafe.Pointer(&link), unsafe.Pointer(&raw)))
	if !st.OK() {
		return P2PCapability{}, st
	}
	return P2PCapability{
		Coherent:      raw.is_iolink_coherent != 0,
		Atomics32:     raw.is_iolink_atomics_32bit != 0,
		Atomics64:     raw.is_iolink_atomics_64bit != 0,
		DMA:           raw.is_iolink_dma != 0,
		BiDirectional: raw.is_iolink_bi_directional != 0,
	}, StatusSuccess
}

func (a *AMDSMI) ComputeProcesses() ([]ProcessInfo, Status) {
	a.mu.Lock()
	f := a.sym("rsmi_compute_process_info_get")
	a.mu.Unlock()
	if f == nil {
		return nil, StatusFailLoadSymbol
	}

	var count C.uint32_t
	if st := Status(C.gosmi_call_pp(f, nil, unsafe.Pointer(&count))); !st.OK() {
		return nil, st
	}
	if count == 0 {
		return nil, StatusSuccess
	}

	// Leave headroom for processes started between the two calls.
	raw := make([]C.gosmi_process_info_t, count+10)
	if st := Status(C.gosmi_call_pp(f, unsafe.Pointer(&raw[0]), unsafe.Pointer(&count))); !st.OK() {
		return nil, st
	}

	procs := make([]ProcessInfo, count)
	for i := range procs {
		procs[i] = ProcessInfo{
			PID:         uint32(raw[i].process_id),
			VRAMUsage:   uint64(raw[i].vram_usage),
			SDMAUsage:   uint64(raw[i].sdma_usage),
			CUOccupancy: uint32(raw[i].cu_occupancy),
		}
	}
	return procs, StatusSuccess
}

func (a *AMDSMI) partitionQuery(name string, h ProcessorHandle) (string, Status) {
	dev, st := a.legacyIndex(h)
	if !st.OK() {
		return "", st
	}
	a.mu.Lock()
	f := a.sym(name)
	a.mu.Unlock()
	if f == nil {
		return "", StatusFailLoadSymbol
	}

	var buf [maxNativeString]C.char
	st = Status(C.gosmi_call_u32pu32(f, C.uint32_t(dev), unsafe.Pointer(&buf[0]), maxNativeString))
	if !st.OK() {
		return "", st
	}
	return cString(&buf), StatusSuccess
}

func (a *AMDSMI) ComputePartition(h ProcessorHandle) (string, Status) {
	return a.partitionQuery("rsmi_dev_compute_partition_get", h)
}

func (a *AMDSMI) MemoryPartition(h ProcessorHandle) (string, Status) {
	return a.partitionQuery("rsmi_dev_memory_partition_get", h)
}

func (a *AMDSMI) XGMIErrorStatus(h ProcessorHandle) (XGMIStatus, Status) {
	dev, st := a.legacyIndex(h)
	if !st.OK() {
		return 0, st
	}
	a.mu.Lock()
	f := a.sym("rsmi_dev_xgmi_error_status")
	a.mu.Unlock()
	if f == nil {
		return 0, StatusFailLoadSymbol
	}

	var status C.int32_t
	st = Status(C.gosmi_call_u32p(f, C.uint32_t(dev), unsafe.Pointer(&status)))
	if !st.OK() {
		return 0, st
	}
	return XGMIStatus(status), StatusSuccess
}

func (a *AMDSMI) XGMIErrorReset(h ProcessorHandle) Status {
	dev, st := a.legacyIndex(h)
	if !st.OK() {
		return st
	}
	a.mu.Lock()
	f := a.sym("rsmi_dev_xgmi_error_reset")
	a.mu.Unlock()
	if f == nil {
		return StatusFailLoadSymbol
	}
	return Status(C.gosmi_call_u32(f, C.uint32_t(dev)))
}

func (a *AMDSMI) XGMIHiveID(h ProcessorHandle) (uint64, Status) {
	dev, st := a.legacyIndex(h)
	if !st.OK() {
		return 0, st
	}
	a.mu.Lock()
	f := a.sym("rsmi_dev_xgmi_hive_id_get")
	a.mu.Unlock()
	if f == nil {
		return 0, StatusFailLoadSymbol
	}

	var hive C.uint64_t
	st = Status(C.gosmi_call_u32p(f, C.uint32_t(dev), unsafe.Pointer(&hive)))
	if !st.OK() {
		return 0, st
	}
	return uint64(hive), StatusSuccess
}
