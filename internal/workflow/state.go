// Package workflow drives the question-answering loop: retrieve, grade the
// retrieved passages, fall back to web search when nothing is relevant,
// generate, grade the answer, and retry up to a bounded number of attempts.
// When a fallback is needed and no tool has been chosen yet, the workflow
// pauses and hands the choice to the caller; the paused state lives in a
// TTL session store until the caller resumes it.
package workflow

import (
	"github.com/seqrag/seqrag-go/internal/generator"
	"github.com/seqrag/seqrag-go/internal/rag"
)

// Phase identifies where a workflow run currently is.
type Phase string

// Workflow phases, in the order a straight-through run visits them.
const (
	PhaseRetrieve        Phase = "retrieve"
	PhaseGradeDocs       Phase = "grade_docs"
	PhaseAwaitToolChoice Phase = "await_tool_choice"
	PhaseWebSearch       Phase = "web_search"
	PhaseGenerate        Phase = "generate"
	PhaseGradeAnswer     Phase = "grade_answer"
	PhaseDone            Phase = "done"
)

// State is the mutable state of one workflow run. Paused runs keep their
// State in the session store; completed runs discard it.
type State struct {
	// Question is the user's question, fixed for the life of the run.
	Question string

	// Collection is the vector store collection retrieval reads from.
	Collection string

	// Phase is the next phase to execute.
	Phase Phase

	// Passages is the current working context. Each retrieval or web
	// search overwrites it; grading narrows it.
	Passages []rag.Passage

	// ChosenTool is the web search tool selected at the pause, empty
	// until then. It persists across retry loops so a run pauses at
	// most once.
	ChosenTool string

	// Attempts counts completed generate/grade-answer rounds.
	Attempts int

	// Answer is the last generated answer, kept for the final result.
	Answer *generator.Answer
}

// Statuses reported to callers in a Result.
const (
	// StatusDone means the run produced an accepted answer.
	StatusDone = "done"
	// StatusAwaitingToolChoice means the run is paused for a tool choice.
	StatusAwaitingToolChoice = "awaiting_tool_choice"
)

// Request is one call into the workflow. A request without a SessionID
// starts a new run; one with a SessionID resumes a paused run.
type Request struct {
	// SessionID resumes the paused run it names. Empty starts a new run.
	SessionID string

	// Question is required for new runs and ignored on resume.
	Question string

	// Collection selects the vector store collection for new runs.
	Collection string

	// ToolChoice is the web search tool name on resume. On a new run it
	// preselects the tool, so the run never pauses.
	ToolChoice string
}

// Result is the outcome of one call into the workflow: either a finished
// answer or a pause asking the caller to choose a tool.
type Result struct {
	// Status is StatusDone or StatusAwaitingToolChoice.
	Status string `json:"status"`

	// NeedUserInput is true when the run is paused for a tool choice.
	NeedUserInput bool `json:"need_user_input,omitempty"`

	// SessionID is set when the run is paused, for the resume call.
	SessionID string `json:"session_id,omitempty"`

	// Options are the tool names to choose from when paused.
	Options []string `json:"options,omitempty"`

	// Answer is set when the run is done.
	Answer *generator.Answer `json:"answer,omitempty"`

	// Attempts is the number of generation rounds the answer took.
	Attempts int `json:"attempts,omitempty"`
}
