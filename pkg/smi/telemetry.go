package smi

import (
	"fmt"

	"github.com/gosmi-project/gosmi/pkg/native"
)

// Utilization returns the graphics engine busy percentage.
func (m *Manager) Utilization(index int) (uint32, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, err := m.handle(index)
	if err != nil {
		return 0, err
	}
	usage, st := m.lib.EngineUsage(h)
	if err := statusError("gpu utilization", st); err != nil {
		return 0, err
	}
	return usage.Graphics, nil
}

// EngineUsage returns busy percentages for all device engines.
func (m *Manager) EngineUsage(index int) (EngineUsage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, err := m.handle(index)
	if err != nil {
		return EngineUsage{}, err
	}
	usage, st := m.lib.EngineUsage(h)
	if err := statusError("engine usage", st); err != nil {
		return EngineUsage{}, err
	}
	return usage, nil
}

// MemoryTotal returns the capacity in bytes of one memory region.
func (m *Manager) MemoryTotal(index int, typ MemoryType) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, err := m.handle(index)
	if err != nil {
		return 0, err
	}
	if err := validMemoryType(typ); err != nil {
		return 0, err
	}
	total, st := m.lib.MemoryTotal(h, typ)
	if err := statusError("memory total", st); err != nil {
		return 0, err
	}
	return total, nil
}

// MemoryUsed returns the bytes currently in use in one memory region.
func (m *Manager) MemoryUsed(index int, typ MemoryType) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, err := m.handle(index)
	if err != nil {
		return 0, err
	}
	if err := validMemoryType(typ); err != nil {
		return 0, err
	}
	used, st := m.lib.MemoryUsage(h, typ)
	if err := statusError("memory used", st); err != nil {
		return 0, err
	}
	return used, nil
}

// MemoryBusy returns VRAM pressure as a percentage of capacity.
func (m *Manager) MemoryBusy(index int) (float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, err := m.handle(index)
	if err != nil {
		return 0, err
	}
	total, st := m.lib.MemoryTotal(h, native.MemVRAM)
	if err := statusError("memory busy", st); err != nil {
		return 0, err
	}
	used, st := m.lib.MemoryUsage(h, native.MemVRAM)
	if err := statusError("memory busy", st); err != nil {
		return 0, err
	}
	if total == 0 {
		return 0, fmt.Errorf("memory busy: zero capacity: %w", ErrInternal)
	}
	return 100 * float64(used) / float64(total), nil
}

// ReservedMemoryPages lists retired memory pages on the device.
func (m *Manager) ReservedMemoryPages(index int) ([]RetiredPage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, err := m.handle(index)
	if err != nil {
		return nil, err
	}
	pages, st := m.lib.ReservedMemoryPages(h)
	if err := statusError("reserved memory pages", st); err != nil {
		return nil, err
	}
	return pages, nil
}

// AveragePower returns the device power draw in watts. The native layer
// exposes several power readings; the first non-zero one wins, in order
// current socket power, average socket power, legacy socket power.
func (m *Manager) AveragePower(index int) (float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, err := m.handle(index)
	if err != nil {
		return 0, err
	}
	info, st := m.lib.PowerInfo(h)
	if err := statusError("average power", st); err != nil {
		return 0, err
	}
	for _, v := range []uint64{uint64(info.Current), uint64(info.Average), info.Socket} {
		if v > 0 {
			return float64(v), nil
		}
	}
	return 0, fmt.Errorf("average power: no reading available: %w", ErrNotSupported)
}

// PowerCap returns the enforced power limit in watts.
func (m *Manager) PowerCap(index int) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, err := m.handle(index)
	if err != nil {
		return 0, err
	}
	info, st := m.lib.PowerInfo(h)
	if err := statusError("power cap", st); err != nil {
		return 0, err
	}
	return uint64(info.Limit), nil
}

// FanRPM returns the fan speed in RPM. ok is false when the device has no
// readable fan, which is a normal verdict on passively cooled parts and is
// distinct from a fan genuinely spinning at 0 RPM.
func (m *Manager) FanRPM(index, sensor int) (rpm int64, ok bool, err error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, err := m.handle(index)
	if err != nil {
		return 0, false, err
	}

	key := capKey{index: index, family: FamilyFan}
	if supported, has := m.caps.known(key); has && !supported {
		return 0, false, nil
	}
	v, st := m.lib.FanRPM(h, sensor)
	switch kindFor(st) {
	case nil:
		m.caps.observe(key, true)
		return v, true, nil
	case ErrNotSupported:
		m.caps.observe(key, false)
		return 0, false, nil
	default:
		return 0, false, statusError("fan rpm", st)
	}
}

// FanSpeedPercent returns the fan speed as a percentage of its maximum.
// ok follows the same absent-fan convention as FanRPM.
func (m *Manager) FanSpeedPercent(index, sensor int) (pct float64, ok bool, err error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, err := m.handle(index)
	if err != nil {
		return 0, false, err
	}

	key := capKey{index: index, family: FamilyFan}
	if supported, has := m.caps.known(key); has && !supported {
		return 0, false, nil
	}
	speed, st := m.lib.FanSpeed(h, sensor)
	if kindFor(st) == ErrNotSupported {
		m.caps.observe(key, false)
		return 0, false, nil
	}
	if err := statusError("fan speed", st); err != nil {
		return 0, false, err
	}
	max, st := m.lib.FanSpeedMax(h, sensor)
	if kindFor(st) == ErrNotSupported {
		m.caps.observe(key, false)
		return 0, false, nil
	}
	if err := statusError("fan speed max", st); err != nil {
		return 0, false, err
	}
	m.caps.observe(key, true)
	if max == 0 {
		return 0, true, nil
	}
	return 100 * float64(speed) / float64(max), true, nil
}

// PCIe returns the static and live PCIe link state in one composite.
func (m *Manager) PCIe(index int) (PCIeInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, err := m.handle(index)
	if err != nil {
		return PCIeInfo{}, err
	}
	info, st := m.lib.PCIeInfo(h)
	if err := statusError("pcie info", st); err != nil {
		return PCIeInfo{}, err
	}
	return info, nil
}

// PCIeThroughput returns the instantaneous PCIe bandwidth in bytes per
// second, derived from the link's megabit rate.
func (m *Manager) PCIeThroughput(index int) (uint64, error) {
	info, err := m.PCIe(index)
	if err != nil {
		return 0, err
	}
	return uint64(info.Bandwidth) * 1024 * 1024 / 8, nil
}

// PCIeReplayCounter returns the accumulated PCIe replay count.
func (m *Manager) PCIeReplayCounter(index int) (uint64, error) {
	info, err := m.PCIe(index)
	if err != nil {
		return 0, err
	}
	return info.ReplayCount, nil
}

// NUMANode returns the NUMA node nearest to the device.
func (m *Manager) NUMANode(index int) (int32, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, err := m.handle(index)
	if err != nil {
		return 0, err
	}
	node, st := m.lib.NUMAAffinity(h)
	if err := statusError("numa node", st); err != nil {
		return 0, err
	}
	return node, nil
}

// pair resolves both endpoints of a pairwise topology query. A device
// paired with itself is rejected before touching the native layer.
func (m *Manager) pair(src, dst int) (native.ProcessorHandle, native.ProcessorHandle, error) {
	hs, err := m.handle(src)
	if err != nil {
		return 0, 0, err
	}
	hd, err := m.handle(dst)
	if err != nil {
		return 0, 0, err
	}
	if src == dst {
		return 0, 0, fmt.Errorf("device %d paired with itself: %w", src, ErrInvalidArgument)
	}
	return hs, hd, nil
}

// OnSameSocket reports whether two distinct devices share a physical
// socket, as on multi-die boards that enumerate one processor per die.
func (m *Manager) OnSameSocket(src, dst int) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, _, err := m.pair(src, dst); err != nil {
		return false, err
	}
	a, err := m.reg.socketFor(src)
	if err != nil {
		return false, err
	}
	b, err := m.reg.socketFor(dst)
	if err != nil {
		return false, err
	}
	return a == b, nil
}

// LinkType returns the interconnect class and hop count between two
// distinct devices.
func (m *Manager) LinkType(src, dst int) (hops uint64, link LinkType, err error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	hs, hd, err := m.pair(src, dst)
	if err != nil {
		return 0, LinkUnknown, err
	}
	hops, link, st := m.lib.LinkType(hs, hd)
	if err := statusError("link type", st); err != nil {
		return 0, LinkUnknown, err
	}
	return hops, link, nil
}

// LinkWeight returns the relative cost of the link between two devices.
func (m *Manager) LinkWeight(src, dst int) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	hs, hd, err := m.pair(src, dst)
	if err != nil {
		return 0, err
	}
	w, st := m.lib.LinkWeight(hs, hd)
	if err := statusError("link weight", st); err != nil {
		return 0, err
	}
	return w, nil
}

// MinMaxBandwidth returns the bandwidth range of the link between two
// devices in bytes per second.
func (m *Manager) MinMaxBandwidth(src, dst int) (min, max uint64, err error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	hs, hd, err := m.pair(src, dst)
	if err != nil {
		return 0, 0, err
	}
	min, max, st := m.lib.MinMaxBandwidth(hs, hd)
	if err := statusError("link bandwidth", st); err != nil {
		return 0, 0, err
	}
	return min, max, nil
}

// P2PAccessible reports whether dst is reachable from src over DMA.
func (m *Manager) P2PAccessible(src, dst int) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	hs, hd, err := m.pair(src, dst)
	if err != nil {
		return false, err
	}
	p2p, st := m.lib.P2PStatus(hs, hd)
	if err := statusError("p2p status", st); err != nil {
		return false, err
	}
	return p2p.DMA, nil
}

// ComputeProcesses lists compute processes currently using any device.
func (m *Manager) ComputeProcesses() ([]ProcessInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.state != stateInitialized {
		return nil, ErrNotInitialized
	}
	procs, st := m.lib.ComputeProcesses()
	if err := statusError("compute processes", st); err != nil {
		return nil, err
	}
	return procs, nil
}

// ComputePartition returns the accelerator compute partitioning mode, for
// example "SPX" or "CPX".
func (m *Manager) ComputePartition(index int) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, err := m.handle(index)
	if err != nil {
		return "", err
	}
	mode, st := m.lib.ComputePartition(h)
	if err := statusError("compute partition", st); err != nil {
		return "", err
	}
	return mode, nil
}

// MemoryPartition returns the memory partitioning mode, for example "NPS1".
func (m *Manager) MemoryPartition(index int) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, err := m.handle(index)
	if err != nil {
		return "", err
	}
	mode, st := m.lib.MemoryPartition(h)
	if err := statusError("memory partition", st); err != nil {
		return "", err
	}
	return mode, nil
}

// XGMIErrorStatus returns the pending XGMI error state of the device.
func (m *Manager) XGMIErrorStatus(index int) (XGMIStatus, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, err := m.handle(index)
	if err != nil {
		return 0, err
	}
	m.deviceMu[index].Lock()
	defer m.deviceMu[index].Unlock()
	status, st := m.lib.XGMIErrorStatus(h)
	if err := statusError("xgmi error status", st); err != nil {
		return 0, err
	}
	return status, nil
}

// XGMIErrorReset clears the device's XGMI error counters. The reset is
// serialized against concurrent status reads on the same device so a reader
// never observes a half-cleared state.
func (m *Manager) XGMIErrorReset(index int) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, err := m.handle(index)
	if err != nil {
		return err
	}
	m.deviceMu[index].Lock()
	defer m.deviceMu[index].Unlock()
	st := m.lib.XGMIErrorReset(h)
	return statusError("xgmi error reset", st)
}

// XGMIHiveID returns the identifier of the XGMI hive the device belongs to.
// Devices in the same hive share the id.
func (m *Manager) XGMIHiveID(index int) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, err := m.handle(index)
	if err != nil {
		return 0, err
	}
	hive, st := m.lib.XGMIHiveID(h)
	if err := statusError("xgmi hive id", st); err != nil {
		return 0, err
	}
	return hive, nil
}

func validMemoryType(typ MemoryType) error {
	switch typ {
	case MemoryVRAM, MemoryVisibleVRAM, MemoryGTT:
		return nil
	default:
		return fmt.Errorf("memory type %d: %w", int(typ), ErrInvalidArgument)
	}
}
