package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// SearchRequest represents the search API request.
type SearchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

// SearchResult represents one enriched search result.
type SearchResult struct {
	Content    string  `json:"content"`
	Score      float64 `json:"score"`
	Repository struct {
		Org      string `json:"org"`
		Name     string `json:"name"`
		FullName string `json:"fullName"`
	} `json:"repository"`
	Links struct {
		Primary            string `json:"primary"`
		CloudEditor        string `json:"cloudEditor"`
		EphemeralWorkspace string `json:"ephemeralWorkspace"`
	} `json:"links"`
	Metadata *struct {
		LastModifiedAt string `json:"lastModifiedAt,omitempty"`
		SourceURL      string `json:"sourceUrl,omitempty"`
		ProcessedAt    string `json:"processedAt,omitempty"`
	} `json:"metadata,omitempty"`
	SourcePath string `json:"sourcePath"`
}

// SearchResponse represents the search API response.
type SearchResponse struct {
	Results []SearchResult `json:"results"`
	Count   int            `json:"count"`
	TookMS  int64          `json:"took_ms"`
}

// SearchCmd creates the search command.
func SearchCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search repository summaries",
		Long:  "Searches the indexed repository summaries using semantic search.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			return runSearch(api, args[0], limit, outputJSON)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum number of results (1-20)")

	return cmd
}

func runSearch(api *APIClient, query string, limit int, outputJSON bool) error {
	data, err := api.Post("/search", SearchRequest{Query: query, Limit: limit})
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.RetryAfter > 0 {
			return fmt.Errorf("%s (retry in %ds)", apiErr.Message, apiErr.RetryAfter)
		}
		return fmt.Errorf("search failed: %w", err)
	}

	var searchResp SearchResponse
	if err := json.Unmarshal(data, &searchResp); err != nil {
		return fmt.Errorf("failed to parse search results: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(searchResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(searchResp.Results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Printf("Found %d results in %dms:\n\n", searchResp.Count, searchResp.TookMS)
	for i, result := range searchResp.Results {
		fmt.Printf("%d. %s (%.2f)\n", i+1, result.Repository.FullName, result.Score)

		snippet := strings.Join(strings.Fields(result.Content), " ")
		if len(snippet) > 200 {
			snippet = snippet[:197] + "..."
		}
		if snippet != "" {
			fmt.Printf("   %s\n", snippet)
		}
		if result.Links.Primary != "" {
			fmt.Printf("   %s\n", result.Links.Primary)
		}
		if result.Metadata != nil && result.Metadata.LastModifiedAt != "" {
			fmt.Printf("   Last pushed: %s\n", result.Metadata.LastModifiedAt)
		}
		if i < len(searchResp.Results)-1 {
			fmt.Println(strings.Repeat("-", 40))
		}
	}

	return nil
}
