// Package commands defines all Cobra CLI commands for the seqrag binary.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/seqrag/seqrag-go/internal/audit"
	"github.com/seqrag/seqrag-go/internal/config"
	"github.com/seqrag/seqrag-go/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// loadedConfigPath stores the resolved config file path for audit logging.
var loadedConfigPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "seqrag",
		Short: "seqrag — sequence reconstruction with retrieval-augmented generation",
		Long: `seqrag answers "how does this unfold, step by step?" questions by
retrieving from your own ingested documents, grading what it finds, and
falling back to web search (Tavily, arXiv, Wikipedia) when local context
is not enough. Answers come back as ordered steps, with timelines and
chemical sequences tagged for structured rendering.

Model provider is selected via the MODEL_PROVIDER environment variable
or a YAML config file (~/.seqrag/config.yaml).
See 'seqrag --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.New()

			// Load YAML config (env vars always override YAML values).
			path, err := config.Load(configPath, log)
			if err != nil {
				return err
			}
			loadedConfigPath = path

			// Emit structured audit log for every command invocation.
			audit.LogCommandStart(log, cmd.Name(), loadedConfigPath)

			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.seqrag/config.yaml)")

	root.AddCommand(
		NewServeCmd(),
		NewIngestCmd(),
		NewAskCmd(),
		NewVersionCmd(),
	)

	return root
}
