package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/gosmi-project/gosmi/pkg/smi"
)

func watchCmd() *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Continuously display device telemetry",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, cfg, err := openManager()
			if err != nil {
				return err
			}
			defer m.Shutdown()

			if interval == 0 {
				interval = time.Duration(cfg.PollInterval)
			}

			count, err := m.DeviceCount()
			if err != nil {
				return err
			}

			pterm.DefaultHeader.
				WithTextStyle(pterm.NewStyle(pterm.FgLightCyan, pterm.Bold)).
				Printfln("gosmi watch: %d device(s), every %s", count, interval)

			area, err := pterm.DefaultArea.Start()
			if err != nil {
				return fmt.Errorf("failed to start live area: %w", err)
			}
			defer area.Stop()

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			area.Update(renderWatch(m, count))
			for {
				select {
				case <-stop:
					return nil
				case <-ticker.C:
					area.Update(renderWatch(m, count))
				}
			}
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 0, "Refresh interval (default from config pollInterval)")
	return cmd
}

func renderWatch(m *smi.Manager, count int) string {
	data := pterm.TableData{{"Device", "GPU%", "MEM%", "VRAM", "Power", "Fan"}}

	for i := 0; i < count; i++ {
		row := []string{strconv.Itoa(i), "-", "-", "-", "-", "-"}

		if busy, err := m.Utilization(i); err == nil {
			row[1] = fmt.Sprintf("%d%%", busy)
		}
		if pct, err := m.MemoryBusy(i); err == nil {
			row[2] = fmt.Sprintf("%.1f%%", pct)
		}
		used, uerr := m.MemoryUsed(i, smi.MemoryVRAM)
		total, terr := m.MemoryTotal(i, smi.MemoryVRAM)
		if uerr == nil && terr == nil {
			row[3] = fmt.Sprintf("%s / %s", formatBytes(used), formatBytes(total))
		}
		if watts, err := m.AveragePower(i); err == nil {
			row[4] = fmt.Sprintf("%.0fW", watts)
		}
		if rpm, ok, err := m.FanRPM(i, 0); err == nil && ok {
			row[5] = fmt.Sprintf("%d RPM", rpm)
		}

		data = append(data, row)
	}

	out, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return fmt.Sprintf("render error: %v", err)
	}
	return out + "\n" + pterm.Gray(time.Now().Format(time.RFC3339))
}
