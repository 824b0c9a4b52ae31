package generator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/seqrag/seqrag-go/internal/rag"
)

// fakeModel records the last prompt and returns a canned reply.
type fakeModel struct {
	reply      string
	err        error
	lastPrompt string
}

func (f *fakeModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	f.lastPrompt = input[len(input)-1].Content
	if f.err != nil {
		return nil, f.err
	}
	return schema.AssistantMessage(f.reply, nil), nil
}

func TestGenerate_WithContext(t *testing.T) {
	t.Parallel()

	m := &fakeModel{reply: "Step 1: Mix\nCombine the reagents."}
	g := New(m)

	passages := []rag.Passage{
		{Text: "CO is produced by partial oxidation.", SourceLabel: "wikipedia"},
		{Text: "CO binds hemoglobin.", SourceLabel: "pubmed"},
	}

	answer, err := g.Generate(context.Background(), "how is CO made?", passages)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if !strings.Contains(m.lastPrompt, "partial oxidation") {
		t.Errorf("prompt missing first passage: %q", m.lastPrompt)
	}
	if !strings.Contains(m.lastPrompt, "binds hemoglobin") {
		t.Errorf("prompt missing second passage: %q", m.lastPrompt)
	}
	if strings.Contains(m.lastPrompt, noContextNote) {
		t.Errorf("no-context note must not appear when passages exist")
	}
	if len(answer.Steps) != 1 {
		t.Errorf("expected 1 step, got %d", len(answer.Steps))
	}
}

// TestGenerate_NoContext verifies that an empty passage set still produces
// an answer, framed as the model's own knowledge.
func TestGenerate_NoContext(t *testing.T) {
	t.Parallel()

	m := &fakeModel{reply: "Step 1: Overview\nFrom general knowledge."}
	g := New(m)

	answer, err := g.Generate(context.Background(), "how is CO made?", nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.Contains(m.lastPrompt, noContextNote) {
		t.Errorf("prompt should carry the no-context note: %q", m.lastPrompt)
	}
	if answer.Text == "" {
		t.Errorf("expected a non-empty answer")
	}
}

func TestGenerate_EmptyContent(t *testing.T) {
	t.Parallel()

	g := New(&fakeModel{reply: "   \n  "})

	_, err := g.Generate(context.Background(), "q", nil)
	if !errors.Is(err, ErrEmptyGeneration) {
		t.Fatalf("expected ErrEmptyGeneration, got %v", err)
	}
}

func TestGenerate_ModelError(t *testing.T) {
	t.Parallel()

	wantErr := errors.New("model down")
	g := New(&fakeModel{err: wantErr})

	_, err := g.Generate(context.Background(), "q", nil)
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected wrapped model error, got %v", err)
	}
}

func TestParseAnswer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		raw       string
		wantKind  string
		wantSteps int
	}{
		{
			name:      "plain sequence",
			raw:       "Step 1: Mix\nCombine reagents.\nStep 2: Heat\nRaise to 300C.",
			wantKind:  "",
			wantSteps: 2,
		},
		{
			name:      "timeline tagged",
			raw:       "The following is a timeline sequence\nStep 1: 1912 - Titanic sinks\nThe ship hit an iceberg.",
			wantKind:  KindTimeline,
			wantSteps: 1,
		},
		{
			name:      "chemical tagged",
			raw:       "The following is a chemical sequence\nStep 1: Oxidation\nCarbon burns in limited oxygen.",
			wantKind:  KindChemicalSequence,
			wantSteps: 1,
		},
		{
			name:      "bolded step markers",
			raw:       "**Step 1**: Mix\nCombine reagents.",
			wantKind:  "",
			wantSteps: 1,
		},
		{
			name:      "prose without steps",
			raw:       "Carbon monoxide forms when carbon burns without enough oxygen.",
			wantKind:  "",
			wantSteps: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			answer := ParseAnswer(tt.raw)
			if answer.Kind != tt.wantKind {
				t.Errorf("kind: expected %q, got %q", tt.wantKind, answer.Kind)
			}
			if len(answer.Steps) != tt.wantSteps {
				t.Errorf("steps: expected %d, got %d", tt.wantSteps, len(answer.Steps))
			}
		})
	}
}

// TestParseAnswer_TimelineDates verifies the "Date - Event" split on
// timeline step headings.
func TestParseAnswer_TimelineDates(t *testing.T) {
	t.Parallel()

	raw := "The following is a timeline sequence\n" +
		"Step 1: 1905 - Special relativity published\nEinstein's paper appeared in Annalen der Physik.\n" +
		"Step 2: 1915 - General relativity published\nThe field equations were presented in Berlin."

	answer := ParseAnswer(raw)
	if len(answer.Steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(answer.Steps))
	}

	first := answer.Steps[0]
	if first.Date != "1905" {
		t.Errorf("date: expected %q, got %q", "1905", first.Date)
	}
	if first.Label != "Special relativity published" {
		t.Errorf("label: expected event text, got %q", first.Label)
	}
	if !strings.Contains(first.Text, "Annalen der Physik") {
		t.Errorf("explanation missing: %q", first.Text)
	}
}

// TestParseAnswer_PlainLabelKeepsDash verifies that non-timeline headings
// containing " - " are left intact.
func TestParseAnswer_PlainLabelKeepsDash(t *testing.T) {
	t.Parallel()

	answer := ParseAnswer("Step 1: Setup - initial state\nDescribe the starting point.")
	if len(answer.Steps) != 1 {
		t.Fatalf("expected 1 step, got %d", len(answer.Steps))
	}
	if answer.Steps[0].Label != "Setup - initial state" {
		t.Errorf("label split despite untagged answer: %q", answer.Steps[0].Label)
	}
	if answer.Steps[0].Date != "" {
		t.Errorf("date should be empty for untagged answers, got %q", answer.Steps[0].Date)
	}
}
