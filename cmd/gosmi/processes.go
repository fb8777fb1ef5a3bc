package main

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func processesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "processes",
		Short: "List compute processes using the devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, _, err := openManager()
			if err != nil {
				return err
			}
			defer m.Shutdown()

			procs, err := m.ComputeProcesses()
			if err != nil {
				return err
			}
			if len(procs) == 0 {
				fmt.Println("No compute processes found")
				return nil
			}

			switch outputFormat {
			case "json":
				return outputJSON(procs)
			case "table":
				table := tablewriter.NewWriter(os.Stdout)
				table.Append([]string{"PID", "VRAM", "SDMA", "CU Occupancy"})
				for _, p := range procs {
					table.Append([]string{
						fmt.Sprintf("%d", p.PID),
						formatBytes(p.VRAMUsage),
						formatBytes(p.SDMAUsage),
						fmt.Sprintf("%d%%", p.CUOccupancy),
					})
				}
				table.Render()
				return nil
			default:
				return fmt.Errorf("unsupported output format: %s", outputFormat)
			}
		},
	}
	return cmd
}
