package exporter

import (
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/gosmi-project/gosmi/pkg/config"
	"github.com/gosmi-project/gosmi/pkg/native"
	"github.com/gosmi-project/gosmi/pkg/smi"
)

func allFamilies() config.Collect {
	return config.Collect{Memory: true, Power: true, PCIe: true, Fans: true, Processes: true, XGMI: true}
}

func newTestExporter(t *testing.T, devices int, collect config.Collect) (*Exporter, *native.Sim, *prometheus.Registry) {
	t.Helper()
	sim := native.NewSim(native.DefaultSimDevices(devices)...)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := smi.New(sim, logger)
	if err := m.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	t.Cleanup(func() { m.Shutdown() })

	e := New(m, collect, logger)
	registry := prometheus.NewRegistry()
	if err := e.Register(registry); err != nil {
		t.Fatalf("Register: %v", err)
	}
	return e, sim, registry
}

func TestCollectDeviceMetrics(t *testing.T) {
	_, _, registry := newTestExporter(t, 2, allFamilies())

	count, err := testutil.GatherAndCount(registry, "gosmi_gpu_utilization_percent")
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if count != 2 {
		t.Errorf("utilization series = %d, want 2", count)
	}

	// Three memory regions per device.
	count, err = testutil.GatherAndCount(registry, "gosmi_memory_total_bytes")
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if count != 6 {
		t.Errorf("memory total series = %d, want 6", count)
	}

	count, err = testutil.GatherAndCount(registry, "gosmi_device_info")
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if count != 2 {
		t.Errorf("device info series = %d, want 2", count)
	}
}

func TestCollectFanOnlyWherePresent(t *testing.T) {
	// Even-index fixtures have fans, odd ones do not.
	_, _, registry := newTestExporter(t, 2, allFamilies())

	count, err := testutil.GatherAndCount(registry, "gosmi_fan_rpm")
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if count != 1 {
		t.Errorf("fan series = %d, want 1 (only the device with a fan)", count)
	}

	// Absent fans are a device property, not a scrape error.
	count, err = testutil.GatherAndCount(registry, "gosmi_scrape_errors_total")
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if count != 0 {
		t.Errorf("scrape error series = %d, want 0", count)
	}
}

func TestCollectDisabledFamilies(t *testing.T) {
	_, _, registry := newTestExporter(t, 1, config.Collect{Memory: true})

	for _, name := range []string{"gosmi_power_watts", "gosmi_fan_rpm", "gosmi_pcie_throughput_bytes_per_second"} {
		count, err := testutil.GatherAndCount(registry, name)
		if err != nil {
			t.Fatalf("gather %s: %v", name, err)
		}
		if count != 0 {
			t.Errorf("%s series = %d with family disabled, want 0", name, count)
		}
	}

	count, err := testutil.GatherAndCount(registry, "gosmi_memory_used_bytes")
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if count != 3 {
		t.Errorf("memory used series = %d, want 3", count)
	}
}

func TestCollectCountsTransientFailures(t *testing.T) {
	_, sim, registry := newTestExporter(t, 1, allFamilies())

	sim.ForceStatus("EngineUsage", native.StatusBusy)
	count, err := testutil.GatherAndCount(registry, "gosmi_scrape_errors_total")
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if count == 0 {
		t.Error("busy device produced no scrape error series")
	}

	util, err := testutil.GatherAndCount(registry, "gosmi_gpu_utilization_percent")
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if util != 0 {
		t.Errorf("utilization series = %d during busy device, want 0", util)
	}
}

func TestCollectProcesses(t *testing.T) {
	_, sim, registry := newTestExporter(t, 1, allFamilies())

	sim.SetProcesses([]native.ProcessInfo{{PID: 100}, {PID: 101}, {PID: 102}})

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != "gosmi_compute_processes" {
			continue
		}
		if got := mf.GetMetric()[0].GetGauge().GetValue(); got != 3 {
			t.Errorf("gosmi_compute_processes = %v, want 3", got)
		}
		return
	}
	t.Fatal("gosmi_compute_processes not found")
}
