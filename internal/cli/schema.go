// Package cli holds helpers shared by the reposift and reposiftd commands.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// FlagDoc describes one flag of a command for machine consumption.
type FlagDoc struct {
	Name        string `json:"name"`
	Shorthand   string `json:"shorthand,omitempty"`
	Type        string `json:"type"`
	Default     string `json:"default,omitempty"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required"`
}

// CommandDoc describes a command tree for machine consumption. Wrappers and
// agents read this instead of scraping --help text.
type CommandDoc struct {
	Name        string       `json:"name"`
	Use         string       `json:"use,omitempty"`
	Description string       `json:"description,omitempty"`
	Long        string       `json:"long,omitempty"`
	Flags       []FlagDoc    `json:"flags,omitempty"`
	Subcommands []CommandDoc `json:"subcommands,omitempty"`
}

// Describe walks cmd and its visible subcommands into a CommandDoc.
func Describe(cmd *cobra.Command) CommandDoc {
	doc := CommandDoc{
		Name:        cmd.Name(),
		Use:         cmd.Use,
		Description: cmd.Short,
		Long:        cmd.Long,
	}

	cmd.LocalFlags().VisitAll(func(f *pflag.Flag) {
		if f.Name == "help" || f.Name == "help-json" {
			return
		}
		doc.Flags = append(doc.Flags, FlagDoc{
			Name:        f.Name,
			Shorthand:   f.Shorthand,
			Type:        f.Value.Type(),
			Default:     f.DefValue,
			Description: f.Usage,
			Required:    flagRequired(f),
		})
	})

	for _, sub := range cmd.Commands() {
		if sub.Hidden || sub.Name() == "help" {
			continue
		}
		doc.Subcommands = append(doc.Subcommands, Describe(sub))
	}

	return doc
}

func flagRequired(f *pflag.Flag) bool {
	if f.Annotations == nil {
		return false
	}
	_, ok := f.Annotations[cobra.BashCompOneRequiredFlag]
	return ok
}

// WriteSchema marshals the schema for cmd onto w.
func WriteSchema(w io.Writer, cmd *cobra.Command) error {
	out, err := json.MarshalIndent(Describe(cmd), "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

// AddHelpJSONFlag registers the --help-json flag on a root command.
func AddHelpJSONFlag(cmd *cobra.Command) {
	cmd.PersistentFlags().Bool("help-json", false, "Output command schema as JSON")
}

// CheckHelpJSON scans os.Args for --help-json and, when present, prints the
// schema of the addressed (sub)command and exits. It runs before Execute so
// the dump works even when required args are missing.
func CheckHelpJSON(root *cobra.Command) {
	for i, arg := range os.Args {
		if arg != "--help-json" {
			continue
		}
		target := resolveCommand(root, os.Args[1:i])
		if err := WriteSchema(os.Stdout, target); err != nil {
			fmt.Fprintf(os.Stderr, "Error generating schema: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}
}

// resolveCommand follows the leading args down the command tree as far as
// they match, so `reposiftd ingest --help-json` documents ingest alone.
func resolveCommand(cmd *cobra.Command, args []string) *cobra.Command {
	if len(args) == 0 {
		return cmd
	}
	for _, sub := range cmd.Commands() {
		if sub.Name() == args[0] || sub.HasAlias(args[0]) {
			return resolveCommand(sub, args[1:])
		}
	}
	return cmd
}
