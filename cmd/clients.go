package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"authrelay/internal/downstream"
)

var clientsConfigPath string

var clientsCmd = &cobra.Command{
	Use:   "clients",
	Short: "List registered downstream clients",
	Long: `Reads clients.yaml from the configured directory and prints the
registered downstream clients with their allowed redirect URIs.`,
	Args: cobra.NoArgs,
	RunE: runClients,
}

func runClients(cmd *cobra.Command, args []string) error {
	path := filepath.Join(clientsConfigPath, "clients.yaml")
	registry, err := downstream.NewRegistry(path)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}

	clients := registry.List()
	if len(clients) == 0 {
		fmt.Printf("No clients registered in %s\n", path)
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"ID", "Name", "Redirect URIs"})
	for _, c := range clients {
		t.AppendRow(table.Row{c.ID, c.Name, strings.Join(c.RedirectURIs, "\n")})
	}
	t.SetStyle(table.StyleLight)
	t.Render()
	return nil
}

func init() {
	clientsCmd.Flags().StringVar(&clientsConfigPath, "config-path", ".", "Directory containing clients.yaml")
	rootCmd.AddCommand(clientsCmd)
}
