package client

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

// SummaryCmd creates the summary command.
func SummaryCmd() *cobra.Command {
	var showMeta bool

	cmd := &cobra.Command{
		Use:   "summary <org> <repo>",
		Short: "Fetch a stored repository summary",
		Long:  "Downloads the stored summary text for a repository from the server.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			return runSummary(api, args[0], args[1], showMeta)
		},
	}

	cmd.Flags().BoolVar(&showMeta, "metadata", false, "Print the metadata envelope before the summary")

	return cmd
}

func runSummary(api *APIClient, org, repo string, showMeta bool) error {
	path := fmt.Sprintf("/summaries/%s/%s", url.PathEscape(org), url.PathEscape(repo))

	content, headers, err := api.GetText(path)
	if err != nil {
		return fmt.Errorf("failed to fetch summary: %w", err)
	}

	if showMeta {
		if v := headers.Get("X-Pushed-At"); v != "" {
			fmt.Printf("Pushed at:    %s\n", v)
		}
		if v := headers.Get("X-Processed-At"); v != "" {
			fmt.Printf("Processed at: %s\n", v)
		}
		if v := headers.Get("X-Source-Url"); v != "" {
			fmt.Printf("Source:       %s\n", v)
		}
		fmt.Println()
	}

	fmt.Print(content)
	return nil
}
