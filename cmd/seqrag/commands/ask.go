package commands

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/callbacks"
	"github.com/spf13/cobra"

	"github.com/seqrag/seqrag-go/internal/generator"
	"github.com/seqrag/seqrag-go/internal/logging"
	"github.com/seqrag/seqrag-go/internal/provider"
	"github.com/seqrag/seqrag-go/internal/rag"
	"github.com/seqrag/seqrag-go/internal/tracing"
	"github.com/seqrag/seqrag-go/internal/workflow"
)

// NewAskCmd constructs the `seqrag ask` command, a one-shot run of the
// question-answering workflow from the terminal.
func NewAskCmd() *cobra.Command {
	var collection string
	var tool string

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question against the ingested documents",
		Long: `Ask a question against the ingested documents.

The workflow retrieves from the chosen collection, grades the results,
and generates an answer. When none of the retrieved passages are
relevant, you are prompted to pick a web search tool to fill the gap.

Examples:
  seqrag ask "How did the French Revolution unfold?"
  seqrag ask --collection ArXiv "What are the steps of PCR?"
  seqrag ask --tool Wikipedia "How is carbon monoxide made?"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.TrimSpace(args[0])
			if question == "" {
				return fmt.Errorf("ask: question must not be empty")
			}

			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			if handler, flush, ok := tracing.Setup(); ok {
				callbacks.AppendGlobalHandlers(handler)
				defer flush()
			}

			chatModel, err := provider.New(ctx, provider.ConfigFromEnv())
			if err != nil {
				return fmt.Errorf("ask: failed to initialise model provider: %w", err)
			}

			emb, embedBackend, err := buildEmbedder(log)
			if err != nil {
				return fmt.Errorf("ask: failed to initialise embedder: %w", err)
			}

			qdrantStore, err := buildQdrantStore(embedBackend)
			if err != nil {
				return fmt.Errorf("ask: failed to connect to Qdrant: %w", err)
			}
			defer qdrantStore.Close()

			retriever, err := rag.NewRetriever(emb, qdrantStore, getEnvInt("WORKFLOW_TOP_K", 4))
			if err != nil {
				return fmt.Errorf("ask: failed to create retriever: %w", err)
			}

			engine, err := buildEngine(chatModel, retriever, buildRegistry())
			if err != nil {
				return fmt.Errorf("ask: failed to create workflow engine: %w", err)
			}

			result, err := engine.Ask(ctx, workflow.Request{
				Question:   question,
				Collection: collection,
				ToolChoice: tool,
			})
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			// The run pauses at most once; a resumed run keeps its tool
			// choice for any retries.
			if result.Status == workflow.StatusAwaitingToolChoice {
				choice, err := promptToolChoice(cmd, result.Options)
				if err != nil {
					return err
				}
				result, err = engine.Ask(ctx, workflow.Request{
					SessionID:  result.SessionID,
					ToolChoice: choice,
				})
				if err != nil {
					return fmt.Errorf("ask: %w", err)
				}
			}

			printAnswer(cmd, result.Answer)
			return nil
		},
	}

	cmd.Flags().StringVarP(&collection, "collection", "c", "", collectionsHelp)
	cmd.Flags().StringVar(&tool, "tool", "", "Preselect the web search fallback (skips the interactive prompt)")

	return cmd
}

// promptToolChoice lists the offered web search tools and reads the user's
// pick from stdin. A bare number or an exact tool name both work.
func promptToolChoice(cmd *cobra.Command, options []string) (string, error) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "None of the retrieved documents were relevant. Pick a web search tool:")
	for i, opt := range options {
		fmt.Fprintf(out, "  %d) %s\n", i+1, opt)
	}
	fmt.Fprint(out, "> ")

	reader := bufio.NewReader(cmd.InOrStdin())
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("ask: reading tool choice: %w", err)
	}
	line = strings.TrimSpace(line)

	for i, opt := range options {
		if line == fmt.Sprintf("%d", i+1) || strings.EqualFold(line, opt) {
			return opt, nil
		}
	}
	return "", fmt.Errorf("ask: %q is not one of %s", line, strings.Join(options, ", "))
}

// printAnswer renders the answer, step by step when the model produced a
// structured sequence.
func printAnswer(cmd *cobra.Command, answer *generator.Answer) {
	out := cmd.OutOrStdout()
	if answer == nil {
		fmt.Fprintln(out, "no answer produced")
		return
	}
	if len(answer.Steps) == 0 {
		fmt.Fprintln(out, answer.Text)
		return
	}

	for i, step := range answer.Steps {
		heading := step.Label
		if step.Date != "" {
			heading = step.Date + " - " + step.Label
		}
		fmt.Fprintf(out, "Step %d: %s\n", i+1, heading)
		if text := strings.TrimSpace(step.Text); text != "" {
			fmt.Fprintln(out, text)
		}
		if i < len(answer.Steps)-1 {
			fmt.Fprintln(out)
		}
	}
}
