package workflow

import (
	"context"
	"fmt"

	"github.com/seqrag/seqrag-go/internal/generator"
	"github.com/seqrag/seqrag-go/internal/logging"
	"github.com/seqrag/seqrag-go/internal/rag"
	"github.com/seqrag/seqrag-go/internal/websearch"
)

// DefaultMaxAttempts bounds the generate/grade-answer retry loop.
const DefaultMaxAttempts = 3

// DefaultTopK is the retrieval depth when the caller does not set one.
const DefaultTopK = 4

// docGrader grades retrieved passages for relevance.
type docGrader interface {
	GradePassages(ctx context.Context, question string, passages []rag.Passage) ([]rag.Passage, error)
}

// answerGrader judges whether a generated answer resolves the question.
type answerGrader interface {
	GradeAnswer(ctx context.Context, question, answer string) (bool, error)
}

// answerer produces the final answer from the question and context.
type answerer interface {
	Generate(ctx context.Context, question string, passages []rag.Passage) (*generator.Answer, error)
}

// Engine runs the question-answering workflow.
type Engine struct {
	retriever   rag.Retriever
	docs        docGrader
	answers     answerGrader
	gen         answerer
	tools       *websearch.Registry
	sessions    *Sessions
	topK        int
	maxAttempts int
}

// Options configures optional Engine behavior.
type Options struct {
	// TopK is the retrieval depth. Zero means DefaultTopK.
	TopK int
	// MaxAttempts bounds the retry loop. Zero means DefaultMaxAttempts.
	MaxAttempts int
}

// NewEngine wires the workflow from its components. The docs and answers
// graders are typically the same grader.Grader; they are separate
// parameters so tests can fake them independently.
func NewEngine(retriever rag.Retriever, docs docGrader, answers answerGrader, gen answerer, tools *websearch.Registry, sessions *Sessions, opts Options) (*Engine, error) {
	if retriever == nil {
		return nil, fmt.Errorf("workflow: retriever is required")
	}
	if docs == nil || answers == nil {
		return nil, fmt.Errorf("workflow: graders are required")
	}
	if gen == nil {
		return nil, fmt.Errorf("workflow: generator is required")
	}
	if tools == nil {
		return nil, fmt.Errorf("workflow: tool registry is required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("workflow: session store is required")
	}
	topK := opts.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}
	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Engine{
		retriever:   retriever,
		docs:        docs,
		answers:     answers,
		gen:         gen,
		tools:       tools,
		sessions:    sessions,
		topK:        topK,
		maxAttempts: maxAttempts,
	}, nil
}

// Sessions exposes the session store, for liveness gauges.
func (e *Engine) Sessions() *Sessions { return e.sessions }

// Ask runs the workflow for one request. New runs start at retrieval;
// requests carrying a SessionID resume a paused run with the given tool
// choice. Ask returns when the run finishes, pauses, or fails.
func (e *Engine) Ask(ctx context.Context, req Request) (*Result, error) {
	if req.SessionID != "" {
		return e.resume(ctx, req)
	}
	if req.Question == "" {
		return nil, fmt.Errorf("workflow: question is required")
	}

	state := &State{
		Question:   req.Question,
		Collection: req.Collection,
		Phase:      PhaseRetrieve,
	}
	if req.ToolChoice != "" {
		// A preselected tool skips the pause when retrieval comes up empty.
		if _, ok := e.tools.Lookup(req.ToolChoice); !ok {
			return nil, &InvalidChoiceError{Choice: req.ToolChoice, Options: e.tools.Options()}
		}
		state.ChosenTool = req.ToolChoice
	}
	return e.run(ctx, "", state)
}

// resume validates the tool choice and continues a paused run. An invalid
// choice leaves the session paused so the caller can try again; the last
// valid choice wins if the same session is resumed more than once.
func (e *Engine) resume(ctx context.Context, req Request) (*Result, error) {
	state, err := e.sessions.Get(req.SessionID)
	if err != nil {
		return nil, err
	}
	if state.Phase != PhaseAwaitToolChoice {
		return nil, fmt.Errorf("workflow: session %s is not awaiting a tool choice", req.SessionID)
	}

	if _, ok := e.tools.Lookup(req.ToolChoice); !ok {
		return nil, &InvalidChoiceError{Choice: req.ToolChoice, Options: e.tools.Options()}
	}

	state.ChosenTool = req.ToolChoice
	state.Phase = PhaseWebSearch
	return e.run(ctx, req.SessionID, state)
}

// run executes phases until the workflow finishes, pauses, or fails.
// sessionID is empty for runs that have never paused.
func (e *Engine) run(ctx context.Context, sessionID string, state *State) (*Result, error) {
	log := logging.FromContext(ctx)

	for {
		log.Debug("workflow phase", "phase", state.Phase, "attempts", state.Attempts)

		switch state.Phase {
		case PhaseRetrieve:
			docs, err := e.retriever.Retrieve(ctx, state.Collection, state.Question, e.topK)
			if err != nil {
				e.discard(sessionID)
				return nil, &DependencyError{Dependency: "retriever", Err: err}
			}
			// Each pass through retrieval replaces the working context.
			state.Passages = make([]rag.Passage, len(docs))
			for i, d := range docs {
				state.Passages[i] = d.Passage()
			}
			state.Phase = PhaseGradeDocs

		case PhaseGradeDocs:
			kept, err := e.docs.GradePassages(ctx, state.Question, state.Passages)
			if err != nil {
				e.discard(sessionID)
				return nil, &DependencyError{Dependency: "relevance grader", Err: err}
			}
			state.Passages = kept

			switch {
			case len(kept) > 0:
				state.Phase = PhaseGenerate
			case state.ChosenTool != "":
				// A tool was already chosen on an earlier loop; no
				// second pause.
				state.Phase = PhaseWebSearch
			default:
				return e.pause(sessionID, state)
			}

		case PhaseWebSearch:
			tool, ok := e.tools.Lookup(state.ChosenTool)
			if !ok {
				e.discard(sessionID)
				return nil, &InvalidChoiceError{Choice: state.ChosenTool, Options: e.tools.Options()}
			}
			passages, err := tool.Search(ctx, state.Question)
			if err != nil {
				e.discard(sessionID)
				return nil, &DependencyError{Dependency: "web search", Err: err}
			}
			// Web search results replace the context unconditionally; an
			// empty result set still proceeds so the generator can fall
			// back to its own knowledge.
			state.Passages = passages
			state.Phase = PhaseGenerate

		case PhaseGenerate:
			answer, err := e.gen.Generate(ctx, state.Question, state.Passages)
			if err != nil {
				e.discard(sessionID)
				return nil, &DependencyError{Dependency: "generator", Err: err}
			}
			state.Answer = answer
			state.Phase = PhaseGradeAnswer

		case PhaseGradeAnswer:
			useful, err := e.answers.GradeAnswer(ctx, state.Question, state.Answer.Text)
			if err != nil {
				e.discard(sessionID)
				return nil, &DependencyError{Dependency: "answer grader", Err: err}
			}
			state.Attempts++

			if useful {
				e.discard(sessionID)
				return &Result{
					Status:   StatusDone,
					Answer:   state.Answer,
					Attempts: state.Attempts,
				}, nil
			}
			if state.Attempts >= e.maxAttempts {
				e.discard(sessionID)
				return nil, &LoopLimitError{Attempts: state.Attempts}
			}
			log.Debug("answer rejected, retrying", "attempts", state.Attempts)
			state.Phase = PhaseRetrieve

		default:
			e.discard(sessionID)
			return nil, fmt.Errorf("workflow: unexpected phase %q", state.Phase)
		}
	}
}

// pause stores the state and returns the tool-choice prompt. A run that
// already has a session keeps its ID so in-flight references stay valid.
func (e *Engine) pause(sessionID string, state *State) (*Result, error) {
	state.Phase = PhaseAwaitToolChoice
	if sessionID == "" {
		sessionID = e.sessions.Put(state)
	} else {
		e.sessions.Update(sessionID, state)
	}
	return &Result{
		Status:        StatusAwaitingToolChoice,
		NeedUserInput: true,
		SessionID:     sessionID,
		Options:       e.tools.Options(),
	}, nil
}

// discard drops the session, if any. Runs end with no stored state.
func (e *Engine) discard(sessionID string) {
	if sessionID != "" {
		e.sessions.Delete(sessionID)
	}
}
