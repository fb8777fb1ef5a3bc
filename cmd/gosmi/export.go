package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/gosmi-project/gosmi/pkg/exporter"
)

func exportCmd() *cobra.Command {
	var listenAddress string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Serve device telemetry as Prometheus metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, cfg, err := openManager()
			if err != nil {
				return err
			}
			defer m.Shutdown()

			if listenAddress == "" {
				listenAddress = cfg.ListenAddress
			}
			logger := newLogger(cfg)

			registry := prometheus.NewRegistry()
			exp := exporter.New(m, cfg.Collect, logger)
			if err := exp.Register(registry); err != nil {
				return err
			}

			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
			mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
				if !m.Initialized() {
					http.Error(w, "session closed", http.StatusServiceUnavailable)
					return
				}
				fmt.Fprintln(w, "ok")
			})

			server := &http.Server{
				Addr:              listenAddress,
				Handler:           mux,
				ReadHeaderTimeout: 10 * time.Second,
			}
			logger.Info("serving metrics", "address", listenAddress)
			return server.ListenAndServe()
		},
	}

	cmd.Flags().StringVar(&listenAddress, "listen", "", "Listen address (default from config listenAddress)")
	return cmd
}
