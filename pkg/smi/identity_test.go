package smi

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/gosmi-project/gosmi/pkg/native"
)

func TestBDFFields(t *testing.T) {
	// domain 0x0001, bus 0xc3, device 0x1f, function 0x5
	b := BDF(0x0001<<16 | 0xc3<<8 | 0x1f<<3 | 0x5)

	if got := b.Domain(); got != 0x0001 {
		t.Errorf("Domain = %#x, want 0x0001", got)
	}
	if got := b.Bus(); got != 0xc3 {
		t.Errorf("Bus = %#x, want 0xc3", got)
	}
	if got := b.Device(); got != 0x1f {
		t.Errorf("Device = %#x, want 0x1f", got)
	}
	if got := b.Function(); got != 0x5 {
		t.Errorf("Function = %#x, want 0x5", got)
	}
	if got := b.String(); got != "0001:c3:1f.5" {
		t.Errorf("String = %q, want %q", got, "0001:c3:1f.5")
	}
}

func TestBDFString(t *testing.T) {
	if got := BDF(0x03 << 8).String(); got != "0000:03:00.0" {
		t.Errorf("String = %q, want %q", got, "0000:03:00.0")
	}
}

func TestUUIDFormats(t *testing.T) {
	m, _ := newTestManager(t, 1)

	canonical, err := m.UUID(0, FormatCanonical)
	if err != nil {
		t.Fatalf("UUID canonical: %v", err)
	}
	if !strings.HasPrefix(canonical, "GPU-") {
		t.Errorf("canonical = %q, want GPU- prefix", canonical)
	}

	raw, err := m.UUID(0, FormatRaw)
	if err != nil {
		t.Fatalf("UUID raw: %v", err)
	}
	if strings.HasPrefix(raw, "GPU-") {
		t.Errorf("raw = %q, must not carry GPU- prefix", raw)
	}
	if canonical != "GPU-"+raw {
		t.Errorf("canonical %q and raw %q disagree", canonical, raw)
	}

	legacy, err := m.UUID(0, FormatVendorLegacy)
	if err != nil {
		t.Fatalf("UUID vendor-legacy: %v", err)
	}
	want := "GPU-" + raw // fixture UUIDs are already dashed
	if legacy != want {
		t.Errorf("vendor-legacy = %q, want %q", legacy, want)
	}
}

func TestUUIDStableAcrossCalls(t *testing.T) {
	m, _ := newTestManager(t, 2)

	first, err := m.UUID(1, FormatCanonical)
	if err != nil {
		t.Fatalf("UUID: %v", err)
	}
	second, err := m.UUID(1, FormatCanonical)
	if err != nil {
		t.Fatalf("UUID: %v", err)
	}
	if first != second {
		t.Errorf("UUID changed between calls: %q then %q", first, second)
	}
}

func TestUUIDUniquePerDevice(t *testing.T) {
	m, _ := newTestManager(t, 4)

	seen := make(map[string]bool)
	for i := 0; i < 4; i++ {
		u, err := m.UUID(i, FormatCanonical)
		if err != nil {
			t.Fatalf("UUID(%d): %v", i, err)
		}
		if seen[u] {
			t.Errorf("duplicate UUID %q on device %d", u, i)
		}
		seen[u] = true
	}
}

func TestUUIDBDFFallback(t *testing.T) {
	devices := native.DefaultSimDevices(1)
	devices[0].UUIDSupported = false
	sim := native.NewSim(devices...)
	m := New(sim, testLogger())
	if err := m.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	defer m.Shutdown()

	got, err := m.UUID(0, FormatCanonical)
	if err != nil {
		t.Fatalf("UUID: %v", err)
	}
	want := fmt.Sprintf("GPU-%032x", devices[0].BDF)
	if got != want {
		t.Errorf("UUID = %q, want BDF-derived %q", got, want)
	}

	// The failed native query doubles as the capability probe.
	ok, err := m.Supported(0, FamilyUUID)
	if err != nil {
		t.Fatalf("Supported: %v", err)
	}
	if ok {
		t.Error("Supported(uuid) = true, native query is unsupported")
	}
	if calls := sim.CallCount("DeviceUUID"); calls != 1 {
		t.Errorf("native uuid queried %d times, want 1", calls)
	}
}

func TestUUIDBDFFallbackVendorLegacy(t *testing.T) {
	devices := native.DefaultSimDevices(1)
	devices[0].UUIDSupported = false
	devices[0].BDF = 0xc3 << 8
	sim := native.NewSim(devices...)
	m := New(sim, testLogger())
	if err := m.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	defer m.Shutdown()

	got, err := m.UUID(0, FormatVendorLegacy)
	if err != nil {
		t.Fatalf("UUID: %v", err)
	}
	want := "GPU-00000000-0000-0000-0000-00000000c300"
	if got != want {
		t.Errorf("UUID = %q, want %q", got, want)
	}
}

func TestUUIDInvalidFormat(t *testing.T) {
	m, sim := newTestManager(t, 1)

	if _, err := m.UUID(0, UUIDFormat(42)); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("err = %v, want ErrInvalidArgument", err)
	}
	if calls := sim.CallCount("DeviceUUID"); calls != 0 {
		t.Errorf("native layer reached %d times for invalid format, want 0", calls)
	}
}

func TestDeviceInfo(t *testing.T) {
	m, _ := newTestManager(t, 2)

	info, err := m.DeviceInfo(1)
	if err != nil {
		t.Fatalf("DeviceInfo: %v", err)
	}
	if info.Index != 1 {
		t.Errorf("Index = %d, want 1", info.Index)
	}
	if info.Name != "Instinct MI250X" {
		t.Errorf("Name = %q", info.Name)
	}
	if info.DeviceID != 0x740c {
		t.Errorf("DeviceID = %#x, want 0x740c", info.DeviceID)
	}
	if info.BDF.Bus() != 0x04 {
		t.Errorf("Bus = %#x, want 0x04", info.BDF.Bus())
	}
	if !strings.HasPrefix(info.UUID, "GPU-") {
		t.Errorf("UUID = %q, want GPU- prefix", info.UUID)
	}
}

func TestDriverVersion(t *testing.T) {
	m, _ := newTestManager(t, 1)

	v, err := m.DriverVersion()
	if err != nil {
		t.Fatalf("DriverVersion: %v", err)
	}
	if v == "" {
		t.Error("DriverVersion returned empty string")
	}
}
