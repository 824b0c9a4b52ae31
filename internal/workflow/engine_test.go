package workflow

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/seqrag/seqrag-go/internal/generator"
	"github.com/seqrag/seqrag-go/internal/rag"
	"github.com/seqrag/seqrag-go/internal/websearch"
)

// fakeRetriever returns canned documents and records its calls.
type fakeRetriever struct {
	docs  []rag.Document
	err   error
	calls int
}

func (f *fakeRetriever) Retrieve(_ context.Context, _, _ string, _ int) ([]rag.Document, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.docs, nil
}

// fakeDocGrader keeps passages whose text contains "relevant".
type fakeDocGrader struct {
	err   error
	calls int
}

func (f *fakeDocGrader) GradePassages(_ context.Context, _ string, passages []rag.Passage) ([]rag.Passage, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	var kept []rag.Passage
	for _, p := range passages {
		if strings.Contains(p.Text, "relevant") {
			kept = append(kept, p)
		}
	}
	return kept, nil
}

// fakeAnswerGrader returns its verdicts in order, repeating the last one.
type fakeAnswerGrader struct {
	verdicts []bool
	err      error
	calls    int
}

func (f *fakeAnswerGrader) GradeAnswer(_ context.Context, _, _ string) (bool, error) {
	f.calls++
	if f.err != nil {
		return false, f.err
	}
	i := f.calls - 1
	if i >= len(f.verdicts) {
		i = len(f.verdicts) - 1
	}
	return f.verdicts[i], nil
}

// fakeGenerator echoes the passages it saw into the answer text.
type fakeGenerator struct {
	err          error
	calls        int
	lastPassages []rag.Passage
}

func (f *fakeGenerator) Generate(_ context.Context, question string, passages []rag.Passage) (*generator.Answer, error) {
	f.calls++
	f.lastPassages = passages
	if f.err != nil {
		return nil, f.err
	}
	return &generator.Answer{Text: "Step 1: Answer\nAbout " + question}, nil
}

// fakeTool implements websearch.Tool with canned passages.
type fakeTool struct {
	name     string
	passages []rag.Passage
	err      error
	calls    int
}

func (f *fakeTool) Name() string { return f.name }

func (f *fakeTool) Search(_ context.Context, _ string) ([]rag.Passage, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.passages, nil
}

// harness bundles an engine with its fakes for assertions.
type harness struct {
	engine    *Engine
	retriever *fakeRetriever
	docs      *fakeDocGrader
	answers   *fakeAnswerGrader
	gen       *fakeGenerator
	tavily    *fakeTool
	arxiv     *fakeTool
	wikipedia *fakeTool
	sessions  *Sessions
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		retriever: &fakeRetriever{},
		docs:      &fakeDocGrader{},
		answers:   &fakeAnswerGrader{verdicts: []bool{true}},
		gen:       &fakeGenerator{},
		tavily:    &fakeTool{name: websearch.NameTavily},
		arxiv:     &fakeTool{name: websearch.NameArxiv},
		wikipedia: &fakeTool{name: websearch.NameWikipedia},
		sessions:  NewSessions(time.Minute),
	}

	tools := websearch.NewRegistry(h.tavily, h.arxiv, h.wikipedia)
	engine, err := NewEngine(h.retriever, h.docs, h.answers, h.gen, tools, h.sessions, Options{})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	h.engine = engine
	return h
}

// TestAsk_HappyPath: relevant documents, accepted answer, no session left.
func TestAsk_HappyPath(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.retriever.docs = []rag.Document{
		{Content: "a relevant fact", Source: "doc.txt"},
		{Content: "an off-topic fact", Source: "doc.txt"},
	}

	result, err := h.engine.Ask(context.Background(), Request{Question: "q", Collection: "Custom"})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}

	if result.Status != StatusDone {
		t.Errorf("status: expected %q, got %q", StatusDone, result.Status)
	}
	if result.Answer == nil || result.Answer.Text == "" {
		t.Errorf("expected an answer")
	}
	if result.Attempts != 1 {
		t.Errorf("attempts: expected 1, got %d", result.Attempts)
	}
	if len(h.gen.lastPassages) != 1 || !strings.Contains(h.gen.lastPassages[0].Text, "relevant") {
		t.Errorf("generator should see only graded-relevant passages: %v", h.gen.lastPassages)
	}
	if h.sessions.Len() != 0 {
		t.Errorf("completed run must not leave a session, found %d", h.sessions.Len())
	}
	if h.tavily.calls+h.arxiv.calls+h.wikipedia.calls != 0 {
		t.Errorf("web search must not run when documents are relevant")
	}
}

// TestAsk_PausesWithOptions: nothing relevant, no tool chosen yet.
func TestAsk_PausesWithOptions(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.retriever.docs = []rag.Document{{Content: "an off-topic fact"}}

	result, err := h.engine.Ask(context.Background(), Request{Question: "how is carbon monoxide made?"})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}

	if result.Status != StatusAwaitingToolChoice {
		t.Fatalf("status: expected %q, got %q", StatusAwaitingToolChoice, result.Status)
	}
	if result.SessionID == "" {
		t.Errorf("paused result must carry a session id")
	}
	if !result.NeedUserInput {
		t.Errorf("paused result must set NeedUserInput")
	}
	want := []string{"Tavily", "Arxiv", "Wikipedia"}
	if len(result.Options) != len(want) {
		t.Fatalf("options: expected %v, got %v", want, result.Options)
	}
	for i := range want {
		if result.Options[i] != want[i] {
			t.Errorf("options[%d]: expected %q, got %q", i, want[i], result.Options[i])
		}
	}
	if h.gen.calls != 0 {
		t.Errorf("generation must not run while paused")
	}
	if h.sessions.Len() != 1 {
		t.Errorf("paused run must keep exactly one session, found %d", h.sessions.Len())
	}
}

// TestAsk_ResumeRunsChosenTool: resume with Wikipedia searches Wikipedia
// only and feeds its results to the generator.
func TestAsk_ResumeRunsChosenTool(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.retriever.docs = []rag.Document{{Content: "an off-topic fact"}}
	h.wikipedia.passages = []rag.Passage{{Text: "CO forms by incomplete combustion", SourceLabel: "wikipedia"}}

	paused, err := h.engine.Ask(context.Background(), Request{Question: "how is carbon monoxide made?"})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}

	result, err := h.engine.Ask(context.Background(), Request{
		SessionID:  paused.SessionID,
		ToolChoice: "Wikipedia",
	})
	if err != nil {
		t.Fatalf("resume: %v", err)
	}

	if result.Status != StatusDone {
		t.Errorf("status: expected %q, got %q", StatusDone, result.Status)
	}
	if h.wikipedia.calls != 1 {
		t.Errorf("wikipedia calls: expected 1, got %d", h.wikipedia.calls)
	}
	if h.tavily.calls != 0 || h.arxiv.calls != 0 {
		t.Errorf("unchosen tools must not run")
	}
	if len(h.gen.lastPassages) != 1 || h.gen.lastPassages[0].SourceLabel != "wikipedia" {
		t.Errorf("generator should see the web search results: %v", h.gen.lastPassages)
	}
	if h.sessions.Len() != 0 {
		t.Errorf("completed run must delete its session")
	}
}

// TestAsk_PreselectedToolSkipsPause: a new run carrying a tool choice never
// pauses; the chosen tool fills in when retrieval comes up empty.
func TestAsk_PreselectedToolSkipsPause(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.retriever.docs = []rag.Document{{Content: "an off-topic fact"}}
	h.wikipedia.passages = []rag.Passage{{Text: "CO forms by incomplete combustion", SourceLabel: "wikipedia"}}

	result, err := h.engine.Ask(context.Background(), Request{
		Question:   "how is carbon monoxide made?",
		ToolChoice: "Wikipedia",
	})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}

	if result.Status != StatusDone {
		t.Fatalf("status: expected %q, got %q", StatusDone, result.Status)
	}
	if h.wikipedia.calls != 1 {
		t.Errorf("wikipedia calls: expected 1, got %d", h.wikipedia.calls)
	}
	if h.sessions.Len() != 0 {
		t.Errorf("preselected run must not leave a session, found %d", h.sessions.Len())
	}
}

// TestAsk_InvalidPreselectedTool: an unknown tool name on a new run is
// rejected before any work happens.
func TestAsk_InvalidPreselectedTool(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	_, err := h.engine.Ask(context.Background(), Request{
		Question:   "how is carbon monoxide made?",
		ToolChoice: "AltaVista",
	})

	var choiceErr *InvalidChoiceError
	if !errors.As(err, &choiceErr) {
		t.Fatalf("expected InvalidChoiceError, got %v", err)
	}
	if h.retriever.calls != 0 {
		t.Errorf("retrieval must not run for a rejected request")
	}
}

// TestAsk_InvalidChoiceKeepsSession: a bad tool name is rejected and the
// session stays resumable.
func TestAsk_InvalidChoiceKeepsSession(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.retriever.docs = nil

	paused, err := h.engine.Ask(context.Background(), Request{Question: "q"})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}

	_, err = h.engine.Ask(context.Background(), Request{
		SessionID:  paused.SessionID,
		ToolChoice: "Bing",
	})
	var choiceErr *InvalidChoiceError
	if !errors.As(err, &choiceErr) {
		t.Fatalf("expected InvalidChoiceError, got %v", err)
	}
	if choiceErr.Choice != "Bing" {
		t.Errorf("choice: expected %q, got %q", "Bing", choiceErr.Choice)
	}
	if len(choiceErr.Options) != 3 {
		t.Errorf("error should re-offer the options, got %v", choiceErr.Options)
	}

	// The last valid choice wins.
	result, err := h.engine.Ask(context.Background(), Request{
		SessionID:  paused.SessionID,
		ToolChoice: "Tavily",
	})
	if err != nil {
		t.Fatalf("second resume: %v", err)
	}
	if result.Status != StatusDone {
		t.Errorf("status: expected %q, got %q", StatusDone, result.Status)
	}
	if h.tavily.calls != 1 {
		t.Errorf("tavily calls: expected 1, got %d", h.tavily.calls)
	}
}

// TestAsk_RetryLoopRefreshesContext: a rejected answer loops back through
// retrieval and the accepted result reports the total attempts.
func TestAsk_RetryLoopRefreshesContext(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.retriever.docs = []rag.Document{{Content: "a relevant fact"}}
	h.answers.verdicts = []bool{false, false, true}

	result, err := h.engine.Ask(context.Background(), Request{Question: "q"})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}

	if result.Attempts != 3 {
		t.Errorf("attempts: expected 3, got %d", result.Attempts)
	}
	if h.retriever.calls != 3 {
		t.Errorf("each retry must re-retrieve, got %d calls", h.retriever.calls)
	}
	if h.gen.calls != 3 {
		t.Errorf("generator calls: expected 3, got %d", h.gen.calls)
	}
}

// TestAsk_LoopLimit: every answer rejected exhausts the attempt limit.
func TestAsk_LoopLimit(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.retriever.docs = []rag.Document{{Content: "a relevant fact"}}
	h.answers.verdicts = []bool{false}

	_, err := h.engine.Ask(context.Background(), Request{Question: "q"})
	var limitErr *LoopLimitError
	if !errors.As(err, &limitErr) {
		t.Fatalf("expected LoopLimitError, got %v", err)
	}
	if limitErr.Attempts != DefaultMaxAttempts {
		t.Errorf("attempts: expected %d, got %d", DefaultMaxAttempts, limitErr.Attempts)
	}
	if h.sessions.Len() != 0 {
		t.Errorf("failed run must not leave a session")
	}
}

// TestAsk_ChosenToolPersistsAcrossRetries: once a tool has been chosen,
// later loops that find nothing relevant go straight to web search instead
// of pausing again.
func TestAsk_ChosenToolPersistsAcrossRetries(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.retriever.docs = nil
	h.answers.verdicts = []bool{false, true}

	paused, err := h.engine.Ask(context.Background(), Request{Question: "q"})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}

	result, err := h.engine.Ask(context.Background(), Request{
		SessionID:  paused.SessionID,
		ToolChoice: "Arxiv",
	})
	if err != nil {
		t.Fatalf("resume: %v", err)
	}

	if result.Status != StatusDone {
		t.Fatalf("status: expected %q, got %q", StatusDone, result.Status)
	}
	if result.Attempts != 2 {
		t.Errorf("attempts: expected 2, got %d", result.Attempts)
	}
	// First attempt searched on resume; the retry looped back through
	// retrieval, found nothing relevant again, and reused the choice.
	if h.arxiv.calls != 2 {
		t.Errorf("arxiv calls: expected 2, got %d", h.arxiv.calls)
	}
	if h.sessions.Len() != 0 {
		t.Errorf("run must not pause a second time")
	}
}

// TestAsk_EmptySearchStillGenerates: a chosen tool returning nothing lets
// the generator answer from its own knowledge.
func TestAsk_EmptySearchStillGenerates(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.retriever.docs = nil
	h.tavily.passages = nil

	paused, err := h.engine.Ask(context.Background(), Request{Question: "q"})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}

	result, err := h.engine.Ask(context.Background(), Request{
		SessionID:  paused.SessionID,
		ToolChoice: "Tavily",
	})
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if result.Status != StatusDone {
		t.Errorf("status: expected %q, got %q", StatusDone, result.Status)
	}
	if h.gen.calls != 1 {
		t.Errorf("generator must still run, got %d calls", h.gen.calls)
	}
	if len(h.gen.lastPassages) != 0 {
		t.Errorf("generator should see no passages, got %v", h.gen.lastPassages)
	}
}

// TestAsk_UnknownSession: resuming an expired or bogus ID fails cleanly.
func TestAsk_UnknownSession(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	_, err := h.engine.Ask(context.Background(), Request{
		SessionID:  "no-such-session",
		ToolChoice: "Tavily",
	})
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

// TestAsk_DependencyErrors: failures in wired components surface as
// DependencyError naming the component.
func TestAsk_DependencyErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*harness)
		want   string
	}{
		{
			name:   "retriever",
			mutate: func(h *harness) { h.retriever.err = errors.New("qdrant down") },
			want:   "retriever",
		},
		{
			name: "relevance grader",
			mutate: func(h *harness) {
				h.retriever.docs = []rag.Document{{Content: "a relevant fact"}}
				h.docs.err = errors.New("model down")
			},
			want: "relevance grader",
		},
		{
			name: "generator",
			mutate: func(h *harness) {
				h.retriever.docs = []rag.Document{{Content: "a relevant fact"}}
				h.gen.err = errors.New("model down")
			},
			want: "generator",
		},
		{
			name: "answer grader",
			mutate: func(h *harness) {
				h.retriever.docs = []rag.Document{{Content: "a relevant fact"}}
				h.answers.err = errors.New("model down")
			},
			want: "answer grader",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newHarness(t)
			tt.mutate(h)

			_, err := h.engine.Ask(context.Background(), Request{Question: "q"})
			var depErr *DependencyError
			if !errors.As(err, &depErr) {
				t.Fatalf("expected DependencyError, got %v", err)
			}
			if depErr.Dependency != tt.want {
				t.Errorf("dependency: expected %q, got %q", tt.want, depErr.Dependency)
			}
		})
	}
}

// TestAsk_WebSearchFailureDropsSession: a failing tool on resume surfaces
// as a DependencyError and discards the session.
func TestAsk_WebSearchFailureDropsSession(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.retriever.docs = nil
	h.tavily.err = errors.New("tavily 500")

	paused, err := h.engine.Ask(context.Background(), Request{Question: "q"})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}

	_, err = h.engine.Ask(context.Background(), Request{
		SessionID:  paused.SessionID,
		ToolChoice: "Tavily",
	})
	var depErr *DependencyError
	if !errors.As(err, &depErr) {
		t.Fatalf("expected DependencyError, got %v", err)
	}
	if depErr.Dependency != "web search" {
		t.Errorf("dependency: expected %q, got %q", "web search", depErr.Dependency)
	}
	if h.sessions.Len() != 0 {
		t.Errorf("failed run must not leave a session")
	}
}

func TestAsk_MissingQuestion(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	if _, err := h.engine.Ask(context.Background(), Request{}); err == nil {
		t.Fatalf("expected error for empty question")
	}
}
