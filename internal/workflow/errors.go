package workflow

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSessionNotFound reports that a session ID did not resolve to a live
// session, either because it never existed or because it expired.
var ErrSessionNotFound = errors.New("workflow: session not found")

// DependencyError reports a failure in an external dependency (embedder,
// vector store, chat model, web search) while running the workflow.
type DependencyError struct {
	// Dependency names the failing component, e.g. "vector store".
	Dependency string
	// Err is the underlying failure.
	Err error
}

// Error implements the error interface.
func (e *DependencyError) Error() string {
	return fmt.Sprintf("workflow: %s failed: %v", e.Dependency, e.Err)
}

// Unwrap returns the underlying failure.
func (e *DependencyError) Unwrap() error { return e.Err }

// InvalidChoiceError reports a resume with a tool name that is not among
// the offered options. The session stays paused.
type InvalidChoiceError struct {
	// Choice is the rejected tool name.
	Choice string
	// Options are the valid tool names, in offer order.
	Options []string
}

// Error implements the error interface.
func (e *InvalidChoiceError) Error() string {
	return fmt.Sprintf("workflow: invalid tool choice %q, expected one of: %s",
		e.Choice, strings.Join(e.Options, ", "))
}

// LoopLimitError reports that the answer grader rejected the generation on
// every allowed attempt. The session is gone when this is returned.
type LoopLimitError struct {
	// Attempts is the number of full generation attempts made.
	Attempts int
}

// Error implements the error interface.
func (e *LoopLimitError) Error() string {
	return fmt.Sprintf("workflow: no acceptable answer after %d attempts", e.Attempts)
}
