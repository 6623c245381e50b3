package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// ConfigCmd creates the config parent command
func ConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage client configuration",
		Long:  "Set, clear, and inspect the API URL used by the reposift CLI",
	}

	cmd.AddCommand(ConfigSetURLCmd())
	cmd.AddCommand(ConfigClearCmd())
	cmd.AddCommand(ConfigStatusCmd())

	return cmd
}

// ConfigSetURLCmd creates the config set-url command
func ConfigSetURLCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-url <url>",
		Short: "Store the API URL",
		Long:  "Store the API URL in global config (~/.config/reposift/config.json)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigSetURL(args[0])
		},
	}
}

// ConfigClearCmd creates the config clear command
func ConfigClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear stored configuration",
		Long:  "Remove the global config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigClear()
		},
	}
}

// ConfigStatusCmd creates the config status command
func ConfigStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show effective configuration",
		Long:  "Display the effective API URL and where it came from",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runConfigStatus(outputJSON)
		},
	}
}

func runConfigSetURL(apiURL string) error {
	if !IsValidAPIURL(apiURL) {
		return fmt.Errorf("invalid API URL (expected absolute http or https URL)")
	}

	config := &GlobalConfig{APIURL: apiURL}
	if err := SaveGlobalConfig(config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Printf("API URL set to %s\n", apiURL)
	return nil
}

func runConfigClear() error {
	if err := DeleteGlobalConfig(); err != nil {
		return fmt.Errorf("failed to clear config: %w", err)
	}

	fmt.Println("Configuration cleared")
	return nil
}

func runConfigStatus(outputJSON bool) error {
	source, apiURL := ResolveAPIURL("")

	if outputJSON {
		status := map[string]interface{}{
			"api_url": apiURL,
			"source":  string(source),
		}

		data, err := json.MarshalIndent(status, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal status: %w", err)
		}

		fmt.Println(string(data))
		return nil
	}

	fmt.Printf("API URL: %s\n", apiURL)
	fmt.Printf("Source: %s\n", source)

	if source == SourceDefault {
		fmt.Println("Run 'reposift config set-url <url>' to point at another server")
	}

	return nil
}
