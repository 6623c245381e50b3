package client

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"

	"github.com/spf13/cobra"
)

// HealthResponse represents the health API response.
type HealthResponse struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services"`
}

// HealthCmd creates the health command.
func HealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		Long:  "Queries the server's health endpoint and reports per-service status.",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			return runHealth(api, outputJSON)
		},
	}
}

func runHealth(api *APIClient, outputJSON bool) error {
	// The health endpoint answers 503 with the same body shape when a
	// dependency is down, so both statuses are decoded here.
	status, body, err := api.do("GET", "/health", nil)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if status != http.StatusOK && status != http.StatusServiceUnavailable {
		return decodeAPIError(status, body)
	}

	var health HealthResponse
	if err := json.Unmarshal(body, &health); err != nil {
		return fmt.Errorf("failed to parse health response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(health, "", "  ")
		fmt.Println(string(output))
	} else {
		fmt.Printf("Status: %s\n", health.Status)

		names := make([]string, 0, len(health.Services))
		for name := range health.Services {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("  %s: %s\n", name, health.Services[name])
		}
	}

	if health.Status != "healthy" {
		return fmt.Errorf("server reports %s", health.Status)
	}

	return nil
}
