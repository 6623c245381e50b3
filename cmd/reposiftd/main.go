package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/reposift/reposift/internal/cli"
	"github.com/reposift/reposift/internal/cli/admin"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "reposiftd",
		Short: "Reposift daemon and batch CLI",
		Long:  "Reposift daemon for running the query API server and ingestion batches",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.IngestCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
