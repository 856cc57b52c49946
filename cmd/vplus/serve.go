package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lamw/vplus-usage-exporter/internal/collector"
	"github.com/lamw/vplus-usage-exporter/internal/config"
	"github.com/lamw/vplus-usage-exporter/internal/logger"
	"github.com/lamw/vplus-usage-exporter/internal/server"
	"github.com/lamw/vplus-usage-exporter/internal/version"
	"github.com/lamw/vplus-usage-exporter/internal/vplus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// DefaultShutdownTimeout is the maximum time to wait for graceful shutdown
const DefaultShutdownTimeout = 30 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the Prometheus consumption exporter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			log := logger.New(cfg.LogLevel)
			log.Info("vSphere+ usage exporter starting",
				"version", version.Get().Version,
				"config_path", configPath)

			log.Info("Configuration loaded successfully",
				"csp_server", cfg.CSPServer,
				"server", cfg.Server,
				"refresh_interval_seconds", cfg.RefreshInterval,
				"http_port", cfg.HTTPPort,
				"api_timeout_seconds", cfg.APITimeout)

			client := vplus.NewClient(cfg, nil, log)

			usageCollector := collector.NewUsageCollector(client, cfg, log)
			if err := prometheus.Register(usageCollector); err != nil {
				log.Error("Failed to register collector", "error", err)
				os.Exit(1)
			}
			log.Info("Collector registered with Prometheus")

			// Register Go runtime metrics (memory, goroutines, GC stats)
			if err := prometheus.Register(prometheus.NewGoCollector()); err != nil {
				log.Warn("Failed to register Go collector", "error", err)
			}

			// Register process metrics (CPU, memory, file descriptors)
			if err := prometheus.Register(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{})); err != nil {
				log.Warn("Failed to register process collector", "error", err)
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			log.Info("Starting background consumption data refresh")
			usageCollector.StartBackgroundRefresh(ctx)

			log.Info("Creating HTTP server", "port", cfg.HTTPPort)
			srv := server.NewServer(cfg, usageCollector, client.OrgID(), log)

			serverErrors := make(chan error, 1)
			go func() {
				serverErrors <- srv.Start()
			}()

			// Wait for interrupt signal or server error
			shutdown := make(chan os.Signal, 1)
			signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

			select {
			case err := <-serverErrors:
				log.Error("Server error", "error", err)
				return err

			case sig := <-shutdown:
				log.Info("Received shutdown signal, starting graceful shutdown", "signal", sig.String())

				// Cancel background refresh
				cancel()

				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
				defer shutdownCancel()

				if err := srv.Shutdown(shutdownCtx); err != nil {
					log.Error("Error during server shutdown", "error", err)
					return err
				}

				log.Info("Server stopped gracefully")
			}

			return nil
		},
	}
}
