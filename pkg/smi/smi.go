// Package smi exposes GPU device management and telemetry over a native
// system-management library. Devices are addressed by dense integer index;
// native handles never cross the package boundary. All queries require an
// initialized session and return errors from a closed taxonomy.
package smi

import (
	"log/slog"
	"sync"

	"github.com/gosmi-project/gosmi/pkg/native"
)

type sessionState int

const (
	stateUninitialized sessionState = iota
	stateInitialized
	stateShuttingDown
)

// Manager owns one session against the native library: the lifecycle state
// machine, the handle registry, and the capability cache. It is safe for
// concurrent use; queries run under a shared read lock while lifecycle
// transitions take the write lock.
type Manager struct {
	lib    native.Library
	logger *slog.Logger

	mu       sync.RWMutex
	state    sessionState
	reg      *registry
	caps     *capabilityCache
	deviceMu []sync.Mutex // serializes XGMI reset against status reads
}

// New returns a Manager over lib. The session starts uninitialized; call
// Initialize before querying. A nil logger falls back to slog.Default.
func New(lib native.Library, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{lib: lib, logger: logger}
}

// Initialize opens a session and enumerates devices. Calling it on an
// already-initialized Manager is a no-op; the existing session and its
// device indices are untouched.
func (m *Manager) Initialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == stateInitialized {
		return nil
	}
	if st := m.lib.Init(); !st.OK() {
		return statusError("initialize", st)
	}
	reg, err := discover(m.lib, m.logger)
	if err != nil {
		m.lib.Shutdown()
		return err
	}
	m.reg = reg
	m.caps = newCapabilityCache()
	m.deviceMu = make([]sync.Mutex, reg.count())
	m.state = stateInitialized
	m.logger.Info("session initialized", "devices", reg.count())
	return nil
}

// Shutdown tears the session down. Local state is cleared even when the
// native teardown reports an error, so a subsequent Initialize always starts
// from a clean slate. Calling Shutdown on an uninitialized Manager is a
// no-op.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == stateUninitialized {
		return nil
	}
	m.state = stateShuttingDown
	st := m.lib.Shutdown()

	m.reg = nil
	m.caps = nil
	m.deviceMu = nil
	m.state = stateUninitialized

	if !st.OK() {
		err := statusError("shutdown", st)
		m.logger.Warn("native shutdown failed, session state discarded", "error", err)
		return err
	}
	m.logger.Debug("session shut down")
	return nil
}

// Initialized reports whether a session is currently open.
func (m *Manager) Initialized() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state == stateInitialized
}

// DeviceCount returns the number of devices enumerated by the session.
func (m *Manager) DeviceCount() (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.state != stateInitialized {
		return 0, ErrNotInitialized
	}
	return m.reg.count(), nil
}

// handle resolves a device index under a read lock already held by the
// caller. Initialization is checked before bounds so the two caller-contract
// errors stay distinguishable.
func (m *Manager) handle(index int) (native.ProcessorHandle, error) {
	if m.state != stateInitialized {
		return 0, ErrNotInitialized
	}
	return m.reg.handleFor(index)
}

// Supported reports whether the metric family is available on the device.
// The first call per (device, family) issues one representative native
// query; the verdict is memoized for the rest of the session.
func (m *Manager) Supported(index int, family MetricFamily) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, err := m.handle(index)
	if err != nil {
		return false, err
	}

	probe, ok := m.probeFor(index, h, family)
	if !ok {
		return false, ErrInvalidArgument
	}
	return m.caps.resolve(capKey{index: index, family: family}, probe)
}

// probeFor picks the representative query for a family. Probes call the
// native layer directly; the caller holds the read lock.
func (m *Manager) probeFor(index int, h native.ProcessorHandle, family MetricFamily) (func() error, bool) {
	lib := m.lib
	switch family {
	case FamilyUtilization:
		return func() error {
			_, st := lib.EngineUsage(h)
			return statusError("probe utilization", st)
		}, true
	case FamilyMemory:
		return func() error {
			_, st := lib.MemoryTotal(h, native.MemVRAM)
			return statusError("probe memory", st)
		}, true
	case FamilyPower:
		return func() error {
			_, st := lib.PowerInfo(h)
			return statusError("probe power", st)
		}, true
	case FamilyFan:
		return func() error {
			_, st := lib.FanRPM(h, 0)
			return statusError("probe fan", st)
		}, true
	case FamilyPCIe:
		return func() error {
			_, st := lib.PCIeInfo(h)
			return statusError("probe pcie", st)
		}, true
	case FamilyTopology:
		return func() error {
			// Any peer works as a witness; a single-device system has no
			// pairwise links to probe.
			if m.reg.count() < 2 {
				return statusError("probe topology", native.StatusNotSupported)
			}
			peer := 0
			if index == 0 {
				peer = 1
			}
			ph, err := m.reg.handleFor(peer)
			if err != nil {
				return err
			}
			_, _, st := lib.LinkType(h, ph)
			return statusError("probe topology", st)
		}, true
	case FamilyProcesses:
		return func() error {
			_, st := lib.ComputeProcesses()
			return statusError("probe processes", st)
		}, true
	case FamilyPartition:
		return func() error {
			_, st := lib.ComputePartition(h)
			return statusError("probe partition", st)
		}, true
	case FamilyXGMI:
		return func() error {
			_, st := lib.XGMIErrorStatus(h)
			return statusError("probe xgmi", st)
		}, true
	case FamilyUUID:
		return func() error {
			_, st := lib.DeviceUUID(h)
			return statusError("probe uuid", st)
		}, true
	default:
		return nil, false
	}
}
