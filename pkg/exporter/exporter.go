// Package exporter publishes device telemetry as Prometheus metrics.
package exporter

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/gosmi-project/gosmi/pkg/config"
	"github.com/gosmi-project/gosmi/pkg/smi"
)

// Exporter implements prometheus.Collector over an initialized Manager.
// Every scrape reads the devices live; nothing is cached between scrapes.
type Exporter struct {
	manager *smi.Manager
	logger  *slog.Logger
	collect config.Collect

	deviceInfo  *prometheus.GaugeVec
	utilization *prometheus.GaugeVec
	memoryTotal *prometheus.GaugeVec
	memoryUsed  *prometheus.GaugeVec
	powerWatts  *prometheus.GaugeVec
	powerCap    *prometheus.GaugeVec
	fanRPM      *prometheus.GaugeVec
	pcieBytes   *prometheus.GaugeVec
	pcieReplays *prometheus.GaugeVec
	processes   prometheus.Gauge
	xgmiState   *prometheus.GaugeVec
	scrapeErrs  *prometheus.CounterVec
}

// New creates an Exporter. The manager must be initialized before the first
// scrape; scrapes against a closed session export nothing but the error
// counter.
func New(manager *smi.Manager, collect config.Collect, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{
		manager: manager,
		logger:  logger,
		collect: collect,
		deviceInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "gosmi_device_info",
				Help: "Static device identity, value is always 1",
			},
			[]string{"device", "name", "uuid", "bdf"},
		),
		utilization: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "gosmi_gpu_utilization_percent",
				Help: "Graphics engine busy percentage",
			},
			[]string{"device"},
		),
		memoryTotal: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "gosmi_memory_total_bytes",
				Help: "Memory capacity by region",
			},
			[]string{"device", "type"},
		),
		memoryUsed: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "gosmi_memory_used_bytes",
				Help: "Memory in use by region",
			},
			[]string{"device", "type"},
		),
		powerWatts: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "gosmi_power_watts",
				Help: "Device power draw in watts",
			},
			[]string{"device"},
		),
		powerCap: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "gosmi_power_cap_watts",
				Help: "Enforced power limit in watts",
			},
			[]string{"device"},
		),
		fanRPM: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "gosmi_fan_rpm",
				Help: "Fan speed in RPM, absent on devices without fan telemetry",
			},
			[]string{"device"},
		),
		pcieBytes: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "gosmi_pcie_throughput_bytes_per_second",
				Help: "Instantaneous PCIe bandwidth",
			},
			[]string{"device"},
		),
		pcieReplays: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "gosmi_pcie_replays_total",
				Help: "Accumulated PCIe replay count",
			},
			[]string{"device"},
		),
		processes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "gosmi_compute_processes",
				Help: "Number of compute processes using any device",
			},
		),
		xgmiState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "gosmi_xgmi_error_state",
				Help: "XGMI error state (0=none, 1=one, 2=multiple)",
			},
			[]string{"device"},
		),
		scrapeErrs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gosmi_scrape_errors_total",
				Help: "Scrape failures by metric family",
			},
			[]string{"family"},
		),
	}
}

// Describe implements prometheus.Collector.
func (e *Exporter) Describe(ch chan<- *prometheus.Desc) {
	e.deviceInfo.Describe(ch)
	e.utilization.Describe(ch)
	e.memoryTotal.Describe(ch)
	e.memoryUsed.Describe(ch)
	e.powerWatts.Describe(ch)
	e.powerCap.Describe(ch)
	e.fanRPM.Describe(ch)
	e.pcieBytes.Describe(ch)
	e.pcieReplays.Describe(ch)
	e.processes.Describe(ch)
	e.xgmiState.Describe(ch)
	e.scrapeErrs.Describe(ch)
}

// Collect implements prometheus.Collector and reads all devices live.
func (e *Exporter) Collect(ch chan<- prometheus.Metric) {
	e.scrape()

	e.deviceInfo.Collect(ch)
	e.utilization.Collect(ch)
	e.memoryTotal.Collect(ch)
	e.memoryUsed.Collect(ch)
	e.powerWatts.Collect(ch)
	e.powerCap.Collect(ch)
	e.fanRPM.Collect(ch)
	e.pcieBytes.Collect(ch)
	e.pcieReplays.Collect(ch)
	e.processes.Collect(ch)
	e.xgmiState.Collect(ch)
	e.scrapeErrs.Collect(ch)
}

func (e *Exporter) scrape() {
	e.deviceInfo.Reset()
	e.utilization.Reset()
	e.memoryTotal.Reset()
	e.memoryUsed.Reset()
	e.powerWatts.Reset()
	e.powerCap.Reset()
	e.fanRPM.Reset()
	e.pcieBytes.Reset()
	e.pcieReplays.Reset()
	e.xgmiState.Reset()

	count, err := e.manager.DeviceCount()
	if err != nil {
		e.fail("devices", err)
		return
	}

	for i := 0; i < count; i++ {
		e.scrapeDevice(i)
	}

	if e.collect.Processes {
		procs, err := e.manager.ComputeProcesses()
		if err != nil {
			e.fail("processes", err)
		} else {
			e.processes.Set(float64(len(procs)))
		}
	}
}

func (e *Exporter) scrapeDevice(index int) {
	device := strconv.Itoa(index)

	info, err := e.manager.DeviceInfo(index)
	if err != nil {
		e.fail("identity", err)
	} else {
		e.deviceInfo.WithLabelValues(device, info.Name, info.UUID, info.BDF.String()).Set(1)
	}

	busy, err := e.manager.Utilization(index)
	if err != nil {
		e.fail("utilization", err)
	} else {
		e.utilization.WithLabelValues(device).Set(float64(busy))
	}

	if e.collect.Memory {
		for _, typ := range []smi.MemoryType{smi.MemoryVRAM, smi.MemoryVisibleVRAM, smi.MemoryGTT} {
			total, err := e.manager.MemoryTotal(index, typ)
			if err != nil {
				e.fail("memory", err)
				continue
			}
			used, err := e.manager.MemoryUsed(index, typ)
			if err != nil {
				e.fail("memory", err)
				continue
			}
			e.memoryTotal.WithLabelValues(device, typ.String()).Set(float64(total))
			e.memoryUsed.WithLabelValues(device, typ.String()).Set(float64(used))
		}
	}

	if e.collect.Power {
		watts, err := e.manager.AveragePower(index)
		if err != nil {
			e.fail("power", err)
		} else {
			e.powerWatts.WithLabelValues(device).Set(watts)
		}
		limit, err := e.manager.PowerCap(index)
		if err != nil {
			e.fail("power", err)
		} else {
			e.powerCap.WithLabelValues(device).Set(float64(limit))
		}
	}

	if e.collect.Fans {
		rpm, ok, err := e.manager.FanRPM(index, 0)
		if err != nil {
			e.fail("fan", err)
		} else if ok {
			e.fanRPM.WithLabelValues(device).Set(float64(rpm))
		}
	}

	if e.collect.PCIe {
		tp, err := e.manager.PCIeThroughput(index)
		if err != nil {
			e.fail("pcie", err)
		} else {
			e.pcieBytes.WithLabelValues(device).Set(float64(tp))
		}
		replays, err := e.manager.PCIeReplayCounter(index)
		if err != nil {
			e.fail("pcie", err)
		} else {
			e.pcieReplays.WithLabelValues(device).Set(float64(replays))
		}
	}

	if e.collect.XGMI {
		state, err := e.manager.XGMIErrorStatus(index)
		if err != nil {
			e.fail("xgmi", err)
		} else {
			e.xgmiState.WithLabelValues(device).Set(float64(state))
		}
	}
}

// fail records a scrape failure. Unsupported metrics are a device property,
// not an error; they are skipped without counting.
func (e *Exporter) fail(family string, err error) {
	if errors.Is(err, smi.ErrNotSupported) {
		return
	}
	e.scrapeErrs.WithLabelValues(family).Inc()
	e.logger.Debug("scrape failure", "family", family, "error", err)
}

var _ prometheus.Collector = (*Exporter)(nil)

// Register registers the exporter with a registry, wrapping the error with
// context.
func (e *Exporter) Register(reg prometheus.Registerer) error {
	if err := reg.Register(e); err != nil {
		return fmt.Errorf("failed to register exporter: %w", err)
	}
	return nil
}
