package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"authrelay/internal/config"
	"authrelay/internal/server"
	"authrelay/pkg/logging"
)

// serveDebug enables verbose logging across the application.
var serveDebug bool

// serveConfigPath specifies the directory containing config.yaml and
// clients.yaml. Defaults to the current directory.
var serveConfigPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the relay server",
	Long: `Starts the relay server on a single HTTP listener serving:

  /authorize  downstream authorization endpoint (consent dialog)
  /callback   upstream provider return endpoint
  /token      downstream token endpoint
  /mcp        MCP tool gateway (bearer token required)
  /health     liveness probe
  /metrics    Prometheus metrics

Configuration is read from config.yaml in the configured directory, and
downstream clients from clients.yaml next to it. clients.yaml is watched and
reloaded on change without a restart.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	level := logging.LevelInfo
	if serveDebug {
		level = logging.LevelDebug
	}
	logging.Init(level, os.Stderr)

	cfg, err := config.LoadConfig(serveConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	srv, err := server.New(&cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return srv.Start(ctx)
}

func init() {
	serveCmd.Flags().BoolVar(&serveDebug, "debug", false, "Enable debug logging")
	serveCmd.Flags().StringVar(&serveConfigPath, "config-path", ".", "Directory containing config.yaml and clients.yaml")
	rootCmd.AddCommand(serveCmd)
}
