package smi

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/gosmi-project/gosmi/pkg/native"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestManager(t *testing.T, devices int) (*Manager, *native.Sim) {
	t.Helper()
	sim := native.NewSim(native.DefaultSimDevices(devices)...)
	m := New(sim, testLogger())
	if err := m.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	t.Cleanup(func() { m.Shutdown() })
	return m, sim
}

func TestInitializeIdempotent(t *testing.T) {
	m, sim := newTestManager(t, 2)

	if err := m.Initialize(); err != nil {
		t.Fatalf("second Initialize: %v", err)
	}
	if got := sim.InitCount(); got != 1 {
		t.Errorf("native init ran %d times, want 1", got)
	}
	n, err := m.DeviceCount()
	if err != nil {
		t.Fatalf("DeviceCount: %v", err)
	}
	if n != 2 {
		t.Errorf("DeviceCount = %d, want 2", n)
	}
}

func TestShutdownIdempotent(t *testing.T) {
	sim := native.NewSim(native.DefaultSimDevices(1)...)
	m := New(sim, testLogger())

	if err := m.Shutdown(); err != nil {
		t.Fatalf("Shutdown before Initialize: %v", err)
	}
	if err := m.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := m.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if err := m.Shutdown(); err != nil {
		t.Fatalf("second Shutdown: %v", err)
	}
	if m.Initialized() {
		t.Error("Initialized() = true after Shutdown")
	}
}

func TestQueriesRequireInitialize(t *testing.T) {
	sim := native.NewSim(native.DefaultSimDevices(1)...)
	m := New(sim, testLogger())

	if _, err := m.Utilization(0); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Utilization before Initialize: err = %v, want ErrNotInitialized", err)
	}
	if _, err := m.DeviceCount(); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("DeviceCount before Initialize: err = %v, want ErrNotInitialized", err)
	}
	if got := sim.CallCount("EngineUsage"); got != 0 {
		t.Errorf("native layer reached %d times before Initialize, want 0", got)
	}
}

func TestQueriesAfterShutdown(t *testing.T) {
	sim := native.NewSim(native.DefaultSimDevices(2)...)
	m := New(sim, testLogger())
	if err := m.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := m.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	if _, err := m.DeviceName(0); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("DeviceName after Shutdown: err = %v, want ErrNotInitialized", err)
	}
}

func TestReinitializeAfterShutdown(t *testing.T) {
	sim := native.NewSim(native.DefaultSimDevices(2)...)
	m := New(sim, testLogger())

	for i := 0; i < 2; i++ {
		if err := m.Initialize(); err != nil {
			t.Fatalf("Initialize #%d: %v", i+1, err)
		}
		if err := m.Shutdown(); err != nil {
			t.Fatalf("Shutdown #%d: %v", i+1, err)
		}
	}
	if got := sim.InitCount(); got != 2 {
		t.Errorf("native init ran %d times, want 2", got)
	}
}

func TestInitializeFailure(t *testing.T) {
	sim := native.NewSim(native.DefaultSimDevices(1)...)
	sim.ForceStatus("Init", native.StatusDriverNotLoaded)
	m := New(sim, testLogger())

	err := m.Initialize()
	if !errors.Is(err, ErrDeviceUnavailable) {
		t.Fatalf("Initialize with driver unloaded: err = %v, want ErrDeviceUnavailable", err)
	}
	if m.Initialized() {
		t.Error("Initialized() = true after failed Initialize")
	}
}

func TestShutdownFailureClearsState(t *testing.T) {
	sim := native.NewSim(native.DefaultSimDevices(1)...)
	m := New(sim, testLogger())
	if err := m.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	sim.ForceStatus("Shutdown", native.StatusBusy)
	if err := m.Shutdown(); !errors.Is(err, ErrDeviceUnavailable) {
		t.Fatalf("Shutdown: err = %v, want ErrDeviceUnavailable", err)
	}
	if m.Initialized() {
		t.Error("Initialized() = true after failed Shutdown")
	}

	// The session must still be recoverable once the native layer behaves.
	sim.ClearStatus("Shutdown")
	if err := m.Initialize(); err != nil {
		t.Fatalf("Initialize after failed Shutdown: %v", err)
	}
}

func TestConcurrentInitialize(t *testing.T) {
	sim := native.NewSim(native.DefaultSimDevices(2)...)
	m := New(sim, testLogger())
	t.Cleanup(func() { m.Shutdown() })

	var wg sync.WaitGroup
	errs := make([]error, 10)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = m.Initialize()
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("Initialize from goroutine %d: %v", i, err)
		}
	}
	if got := sim.InitCount(); got != 1 {
		t.Errorf("native init ran %d times under concurrent callers, want 1", got)
	}
	if got := sim.CallCount("SocketHandles"); got != 1 {
		t.Errorf("discovery ran %d times under concurrent callers, want 1", got)
	}
}

func TestConcurrentSupportedSingleProbe(t *testing.T) {
	// Device 1 has no fan; every caller must converge on the one verdict.
	m, sim := newTestManager(t, 2)

	var wg sync.WaitGroup
	verdicts := make([]bool, 10)
	errs := make([]error, 10)
	for i := range verdicts {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			verdicts[i], errs[i] = m.Supported(1, FamilyFan)
		}(i)
	}
	wg.Wait()

	for i := range verdicts {
		if errs[i] != nil {
			t.Errorf("Supported from goroutine %d: %v", i, errs[i])
		}
		if verdicts[i] {
			t.Errorf("Supported from goroutine %d = true, fixture has no fan", i)
		}
	}
	if got := sim.CallCount("FanRPM"); got != 1 {
		t.Errorf("fan probed %d times under concurrent callers, want 1", got)
	}
}

func TestRegistrySocketMapping(t *testing.T) {
	sim := native.NewSim(native.DefaultSimDevices(3)...)
	sim.Init()

	reg, err := discover(sim, testLogger())
	if err != nil {
		t.Fatalf("discover: %v", err)
	}

	// One socket per fixture; every device maps to a distinct handle.
	seen := make(map[native.SocketHandle]int)
	for i := 0; i < reg.count(); i++ {
		sock, err := reg.socketFor(i)
		if err != nil {
			t.Fatalf("socketFor(%d): %v", i, err)
		}
		if prev, dup := seen[sock]; dup {
			t.Errorf("devices %d and %d share socket handle %#x", prev, i, sock)
		}
		seen[sock] = i
	}

	for _, index := range []int{-1, 3} {
		if _, err := reg.socketFor(index); !errors.Is(err, ErrIndexOutOfRange) {
			t.Errorf("socketFor(%d): err = %v, want ErrIndexOutOfRange", index, err)
		}
	}
}

func TestIndexBijection(t *testing.T) {
	m, _ := newTestManager(t, 4)

	seen := make(map[BDF]int)
	for i := 0; i < 4; i++ {
		bdf, err := m.UniqueID(i)
		if err != nil {
			t.Fatalf("UniqueID(%d): %v", i, err)
		}
		if prev, dup := seen[bdf]; dup {
			t.Errorf("devices %d and %d share BDF %s", prev, i, bdf)
		}
		seen[bdf] = i
	}
}

func TestIndexOutOfRange(t *testing.T) {
	m, _ := newTestManager(t, 2)

	for _, index := range []int{-1, 2, 99} {
		if _, err := m.Utilization(index); !errors.Is(err, ErrIndexOutOfRange) {
			t.Errorf("Utilization(%d): err = %v, want ErrIndexOutOfRange", index, err)
		}
	}
}

func TestSupportedMemoization(t *testing.T) {
	// Even-index fixtures have fans, odd ones do not.
	m, sim := newTestManager(t, 2)

	for i := 0; i < 3; i++ {
		ok, err := m.Supported(1, FamilyFan)
		if err != nil {
			t.Fatalf("Supported(1, fan) call %d: %v", i+1, err)
		}
		if ok {
			t.Fatalf("Supported(1, fan) = true, fixture has no fan")
		}
	}
	if got := sim.CallCount("FanRPM"); got != 1 {
		t.Errorf("fan probed %d times, want 1", got)
	}

	ok, err := m.Supported(0, FamilyFan)
	if err != nil {
		t.Fatalf("Supported(0, fan): %v", err)
	}
	if !ok {
		t.Error("Supported(0, fan) = false, fixture has a fan")
	}
}

func TestSupportedTransientFailureNotCached(t *testing.T) {
	m, sim := newTestManager(t, 1)

	sim.ForceStatus("EngineUsage", native.StatusBusy)
	if _, err := m.Supported(0, FamilyUtilization); !errors.Is(err, ErrDeviceUnavailable) {
		t.Fatalf("Supported during busy device: err = %v, want ErrDeviceUnavailable", err)
	}

	sim.ClearStatus("EngineUsage")
	ok, err := m.Supported(0, FamilyUtilization)
	if err != nil {
		t.Fatalf("Supported after recovery: %v", err)
	}
	if !ok {
		t.Error("Supported = false after recovery, want true")
	}
}

func TestCapabilityCacheDroppedOnShutdown(t *testing.T) {
	sim := native.NewSim(native.DefaultSimDevices(2)...)
	m := New(sim, testLogger())
	if err := m.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	if _, err := m.Supported(1, FamilyFan); err != nil {
		t.Fatalf("Supported: %v", err)
	}
	if err := m.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if err := m.Initialize(); err != nil {
		t.Fatalf("reinitialize: %v", err)
	}

	if _, err := m.Supported(1, FamilyFan); err != nil {
		t.Fatalf("Supported after reinitialize: %v", err)
	}
	if got := sim.CallCount("FanRPM"); got != 2 {
		t.Errorf("fan probed %d times across two sessions, want 2", got)
	}
}

func TestStatusErrorPreservesRawCode(t *testing.T) {
	m, sim := newTestManager(t, 1)

	sim.ForceStatus("EngineUsage", native.StatusFileError)
	_, err := m.Utilization(0)
	if !errors.Is(err, ErrInternal) {
		t.Fatalf("err = %v, want ErrInternal", err)
	}
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want *StatusError in chain", err)
	}
	if se.Status != native.StatusFileError {
		t.Errorf("raw status = %v, want StatusFileError", se.Status)
	}
}

func TestPermissionDenied(t *testing.T) {
	m, sim := newTestManager(t, 1)

	sim.ForceStatus("XGMIErrorReset", native.StatusNoPermission)
	if err := m.XGMIErrorReset(0); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("XGMIErrorReset: err = %v, want ErrPermissionDenied", err)
	}
}
