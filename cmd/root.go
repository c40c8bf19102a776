package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the authrelay application.
var rootCmd = &cobra.Command{
	Use:   "authrelay",
	Short: "OAuth relay and MCP tool gateway",
	Long: `authrelay sits between MCP clients and an upstream identity provider.

To downstream clients it is an OAuth 2.0 authorization server: they register
in clients.yaml, send users to /authorize, and exchange codes at /token.
Toward the upstream provider (Google or GitHub) it acts as an OAuth client,
relaying the user through the provider's consent flow. The identity and
access token obtained upstream are bound to the downstream grant and made
available to the MCP tools served on /mcp.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors
	// that are handled by the application.
	SilenceUsage: true,
}

// SetVersion sets the version for the root command. Called from main to
// inject the build version.
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "authrelay version %s\n" .Version}}`)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
