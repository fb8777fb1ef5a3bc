package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/gosmi-project/gosmi/pkg/smi"
)

type deviceReport struct {
	smi.DeviceInfo
	BDFString        string  `json:"bdf_string"`
	UtilizationPct   uint32  `json:"utilization_percent"`
	VRAMTotalBytes   uint64  `json:"vram_total_bytes"`
	VRAMUsedBytes    uint64  `json:"vram_used_bytes"`
	PowerWatts       float64 `json:"power_watts,omitempty"`
	ComputePartition string  `json:"compute_partition,omitempty"`
	MemoryPartition  string  `json:"memory_partition,omitempty"`
	NUMANode         int32   `json:"numa_node"`
}

func infoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show device identity and current telemetry",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, _, err := openManager()
			if err != nil {
				return err
			}
			defer m.Shutdown()

			count, err := m.DeviceCount()
			if err != nil {
				return err
			}
			if count == 0 {
				fmt.Println("No devices found")
				return nil
			}

			reports := make([]deviceReport, 0, count)
			for i := 0; i < count; i++ {
				r, err := deviceReportFor(m, i)
				if err != nil {
					return err
				}
				reports = append(reports, r)
			}

			switch outputFormat {
			case "json":
				return outputJSON(reports)
			case "table":
				return infoTable(m, reports)
			default:
				return fmt.Errorf("unsupported output format: %s", outputFormat)
			}
		},
	}
	return cmd
}

func deviceReportFor(m *smi.Manager, index int) (deviceReport, error) {
	info, err := m.DeviceInfo(index)
	if err != nil {
		return deviceReport{}, fmt.Errorf("device %d: %w", index, err)
	}
	busy, err := m.Utilization(index)
	if err != nil {
		return deviceReport{}, fmt.Errorf("device %d: %w", index, err)
	}
	total, err := m.MemoryTotal(index, smi.MemoryVRAM)
	if err != nil {
		return deviceReport{}, fmt.Errorf("device %d: %w", index, err)
	}
	used, err := m.MemoryUsed(index, smi.MemoryVRAM)
	if err != nil {
		return deviceReport{}, fmt.Errorf("device %d: %w", index, err)
	}
	numa, err := m.NUMANode(index)
	if err != nil {
		return deviceReport{}, fmt.Errorf("device %d: %w", index, err)
	}

	r := deviceReport{
		DeviceInfo:     info,
		BDFString:      info.BDF.String(),
		UtilizationPct: busy,
		VRAMTotalBytes: total,
		VRAMUsedBytes:  used,
		NUMANode:       numa,
	}

	// Optional families; leave the fields empty where unsupported.
	if watts, err := m.AveragePower(index); err == nil {
		r.PowerWatts = watts
	}
	if mode, err := m.ComputePartition(index); err == nil {
		r.ComputePartition = mode
	}
	if mode, err := m.MemoryPartition(index); err == nil {
		r.MemoryPartition = mode
	}
	return r, nil
}

func infoTable(m *smi.Manager, reports []deviceReport) error {
	if v, err := m.DriverVersion(); err == nil {
		fmt.Printf("Driver version: %s\n\n", v)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Append([]string{"Device", "Name", "BDF", "UUID", "GPU%", "VRAM", "Power", "Partition", "NUMA"})

	for _, r := range reports {
		power := "-"
		if r.PowerWatts > 0 {
			power = fmt.Sprintf("%.0fW", r.PowerWatts)
		}
		partition := "-"
		if r.ComputePartition != "" {
			partition = fmt.Sprintf("%s/%s", r.ComputePartition, r.MemoryPartition)
		}
		table.Append([]string{
			fmt.Sprintf("%d", r.Index),
			r.Name,
			r.BDFString,
			r.UUID,
			fmt.Sprintf("%d%%", r.UtilizationPct),
			fmt.Sprintf("%s / %s", formatBytes(r.VRAMUsedBytes), formatBytes(r.VRAMTotalBytes)),
			power,
			partition,
			fmt.Sprintf("%d", r.NUMANode),
		})
	}

	table.Render()
	return nil
}

func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatBytes(b uint64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%dB", b)
	}
	div, exp := uint64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%ciB", float64(b)/float64(div), "KMGTPE"[exp])
}
