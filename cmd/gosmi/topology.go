package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/gosmi-project/gosmi/pkg/smi"
)

type linkReport struct {
	Src    int    `json:"src"`
	Dst    int    `json:"dst"`
	Link   string `json:"link"`
	Hops   uint64 `json:"hops"`
	Weight uint64 `json:"weight,omitempty"`
	P2P    bool   `json:"p2p"`
	MinBwBps uint64 `json:"min_bandwidth_bps,omitempty"`
	MaxBwBps uint64 `json:"max_bandwidth_bps,omitempty"`
	HiveID   string `json:"hive_id,omitempty"`
}

func topologyCmd() *cobra.Command {
	var showBandwidth bool

	cmd := &cobra.Command{
		Use:   "topology",
		Short: "Show the pairwise device interconnect topology",
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
			if count < 2 {
				fmt.Println("Topology needs at least two devices")
				return nil
			}

			var links []linkReport
			for src := 0; src < count; src++ {
				for dst := 0; dst < count; dst++ {
					if src == dst {
						continue
					}
					link, err := linkReportFor(m, src, dst, showBandwidth)
					if err != nil {
						return err
					}
					links = append(links, link)
				}
			}

			switch outputFormat {
			case "json":
				return outputJSON(links)
			case "table":
				return topologyTable(count, links)
			default:
				return fmt.Errorf("unsupported output format: %s", outputFormat)
			}
		},
	}

	cmd.Flags().BoolVar(&showBandwidth, "bandwidth", false, "Include link bandwidth ranges")
	return cmd
}

func linkReportFor(m *smi.Manager, src, dst int, bandwidth bool) (linkReport, error) {
	hops, link, err := m.LinkType(src, dst)
	if err != nil {
		return linkReport{}, fmt.Errorf("link %d-%d: %w", src, dst, err)
	}
	r := linkReport{Src: src, Dst: dst, Link: link.String(), Hops: hops}

	if w, err := m.LinkWeight(src, dst); err == nil {
		r.Weight = w
	}
	p2p, err := m.P2PAccessible(src, dst)
	if err != nil && !errors.Is(err, smi.ErrNotSupported) {
		return linkReport{}, fmt.Errorf("link %d-%d: %w", src, dst, err)
	}
	r.P2P = p2p

	if hive, err := m.XGMIHiveID(src); err == nil {
		r.HiveID = fmt.Sprintf("%#x", hive)
	}

	if bandwidth {
		min, max, err := m.MinMaxBandwidth(src, dst)
		switch {
		case err == nil:
			r.MinBwBps, r.MaxBwBps = min, max
		case errors.Is(err, smi.ErrNotSupported):
			// PCIe paths report no XGMI bandwidth range.
		default:
			return linkReport{}, fmt.Errorf("link %d-%d: %w", src, dst, err)
		}
	}
	return r, nil
}

func topologyTable(count int, links []linkReport) error {
	byPair := make(map[[2]int]linkReport, len(links))
	for _, l := range links {
		byPair[[2]int{l.Src, l.Dst}] = l
	}

	table := tablewriter.NewWriter(os.Stdout)
	header := []string{""}
	for i := 0; i < count; i++ {
		header = append(header, fmt.Sprintf("GPU%d", i))
	}
	table.Append(header)

	for src := 0; src < count; src++ {
		row := []string{fmt.Sprintf("GPU%d", src)}
		for dst := 0; dst < count; dst++ {
			if src == dst {
				row = append(row, "X")
				continue
			}
			l := byPair[[2]int{src, dst}]
			cell := l.Link
			if l.Hops > 0 {
				cell = fmt.Sprintf("%s:%d", l.Link, l.Hops)
			}
			row = append(row, cell)
		}
		table.Append(row)
	}

	table.Render()
	fmt.Println("\nCells are link:hops; X marks a device paired with itself.")
	return nil
}
