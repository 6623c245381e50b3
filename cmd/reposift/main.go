package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/reposift/reposift/internal/cli"
	"github.com/reposift/reposift/internal/cli/client"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "reposift",
		Short: "Reposift CLI - semantic search over repository summaries",
		Long: `Reposift CLI queries a running reposift server.

Environment variables:
  REPOSIFT_API_URL   API base URL (default: http://localhost:8080)`,
		Version: version,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env and config)")
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.SearchCmd())
	rootCmd.AddCommand(client.SummaryCmd())
	rootCmd.AddCommand(client.HealthCmd())
	rootCmd.AddCommand(client.ConfigCmd())

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
