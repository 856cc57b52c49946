package main

import (
	"fmt"
	"os"
	"time"

	"github.com/lamw/vplus-usage-exporter/internal/config"
	"github.com/lamw/vplus-usage-exporter/internal/csp"
	"github.com/lamw/vplus-usage-exporter/internal/logger"
	"github.com/lamw/vplus-usage-exporter/internal/report"
	"github.com/lamw/vplus-usage-exporter/internal/version"
	"github.com/lamw/vplus-usage-exporter/internal/vplus"
	"github.com/spf13/cobra"
)

var configPath string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "vplus",
		Short:        "Report vSphere+ subscription consumption",
		Long:         "Authenticate against the cloud services platform and report\nvSphere+/vSAN+ deployment usage and subscription line items.",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "Path to configuration file")

	cmd.AddCommand(
		newLoginCmd(),
		newDeploymentsCmd(),
		newSubscriptionsCmd(),
		newServeCmd(),
		newVersionCmd(),
	)
	return cmd
}

// loadConfig loads the configuration and builds a logger writing to stderr,
// keeping report output on stdout clean
func loadConfig() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger.NewWithWriter(os.Stderr, cfg.LogLevel), nil
}

// connectionFile resolves the saved connection path from config or default
func connectionFile(cfg *config.Config) (string, error) {
	if cfg.ConnectionFile != "" {
		return cfg.ConnectionFile, nil
	}
	return csp.DefaultConnectionFile()
}

// newClient builds an API client seeded with the saved connection when one
// exists. A missing or unreadable saved connection is fine: the client
// re-exchanges the refresh token on demand.
func newClient(cfg *config.Config, log *logger.Logger) *vplus.Client {
	var conn *csp.Connection
	if path, err := connectionFile(cfg); err == nil {
		if saved, err := csp.Load(path); err == nil {
			conn = saved
		} else if !os.IsNotExist(err) {
			log.Debug("Ignoring saved connection", "path", path, "error", err)
		}
	}
	return vplus.NewClient(cfg, conn, log)
}

// saveConnection persists the client's connection state after a successful
// call so later invocations reuse the access token. Best effort.
func saveConnection(cfg *config.Config, client *vplus.Client, log *logger.Logger) {
	conn := client.Connection()
	if conn == nil {
		return
	}
	path, err := connectionFile(cfg)
	if err != nil {
		return
	}
	if err := csp.Save(conn, path); err != nil {
		log.Warn("Failed to save connection state", "path", path, "error", err)
	}
}

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Exchange the refresh token and save connection state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}

			auth := csp.NewAuthenticator(cfg.CSPServer, log)
			conn, err := auth.Connect(cmd.Context(), cfg.RefreshToken, cfg.OrgID, cfg.Server)
			if err != nil {
				return err
			}

			path, err := connectionFile(cfg)
			if err != nil {
				return err
			}
			if err := csp.Save(conn, path); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Connected to org %s (token valid until %s)\n",
				conn.OrgID, conn.ExpiresAt.Format(time.RFC3339))
			return nil
		},
	}
}

func newDeploymentsCmd() *cobra.Command {
	var nameFilter, output string

	cmd := &cobra.Command{
		Use:   "deployments",
		Short: "Report per-deployment vSphere+/vSAN+ usage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			if err := validateOutput(output); err != nil {
				return err
			}

			client := newClient(cfg, log)
			records, err := client.QueryDeployments(cmd.Context())
			if err != nil {
				return err
			}
			saveConnection(cfg, client, log)

			rows := report.DeploymentRows(report.FilterDeployments(records, nameFilter))
			if output == "json" {
				return report.RenderJSON(cmd.OutOrStdout(), rows)
			}
			report.RenderDeploymentsTable(cmd.OutOrStdout(), rows)
			return nil
		},
	}

	cmd.Flags().StringVar(&nameFilter, "name", "", "Only deployments whose name or ID contains this string")
	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format: table or json")
	return cmd
}

func newSubscriptionsCmd() *cobra.Command {
	var nameFilter, output string
	var expand bool

	cmd := &cobra.Command{
		Use:   "subscriptions",
		Short: "Report subscription line items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			if err := validateOutput(output); err != nil {
				return err
			}

			client := newClient(cfg, log)
			records, err := client.QuerySubscriptions(cmd.Context())
			if err != nil {
				return err
			}
			saveConnection(cfg, client, log)

			rows := report.SubscriptionRows(report.FilterSubscriptions(records, nameFilter), expand)
			if output == "json" {
				return report.RenderJSON(cmd.OutOrStdout(), rows)
			}
			report.RenderSubscriptionsTable(cmd.OutOrStdout(), rows)
			return nil
		},
	}

	cmd.Flags().StringVar(&nameFilter, "name", "", "Only subscriptions whose offer name or ID contains this string")
	cmd.Flags().BoolVar(&expand, "expand", false, "One row per line item of bundled subscriptions")
	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format: table or json")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			info := version.Get()
			fmt.Fprintf(cmd.OutOrStdout(), "vplus %s (commit %s, built %s, %s)\n",
				info.Version, info.GitCommit, info.BuildDate, info.GoVersion)
		},
	}
}

func validateOutput(output string) error {
	switch output {
	case "table", "json":
		return nil
	}
	return fmt.Errorf("invalid output format %q (expected table or json)", output)
}
