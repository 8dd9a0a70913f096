// Package cli wires the docquery commands. The serve command is the
// composition root: it loads configuration, builds the provider
// adapters and pipeline services, and runs the HTTP server.
package cli

import (
	"github.com/spf13/cobra"
)

// version is overridden at build time via -ldflags.
var version = "dev"

var (
	configPath  string
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:   "docquery",
	Short: "Retrieval-augmented document question answering",
	Long: `docquery answers natural-language questions about a document.

It downloads the document, extracts and chunks its text, embeds the
chunks, and answers each question by retrieving the most relevant
passages and synthesising a grounded answer with a language model.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a TOML config file")
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "enable debug logging")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
