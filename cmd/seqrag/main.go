// Command seqrag is the entry point for the sequence reconstruction RAG
// service. It provides a CLI interface (via Cobra) and an HTTP server
// exposing the document ingest pipeline and question-answering workflow.
package main

import (
	"fmt"
	"os"

	"github.com/seqrag/seqrag-go/cmd/seqrag/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
