// Package generator produces the final step-by-step answer from the
// question and whatever context survived grading. The raw model output is
// parsed into a structured Answer so callers can render timelines and
// reaction sequences without re-parsing prose.
package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/seqrag/seqrag-go/internal/logging"
	"github.com/seqrag/seqrag-go/internal/rag"
)

// ErrEmptyGeneration reports that the model returned no content at all.
var ErrEmptyGeneration = errors.New("generator: model returned empty content")

// ChatModel is the subset of the eino chat model used by the generator.
type ChatModel interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

// generationPrompt instructs the model to reconstruct a sequence as
// numbered steps, tagging timelines and chemical sequences on the first
// line so the parser can classify the answer.
const generationPrompt = `You are an expert at reconstructing sequences based on user questions.

Using the provided context, answer the user's question in a step-by-step format.

Context: %s

If the sequence is a timeline or a chemical sequence, start your answer with:
- "The following is a timeline sequence" or
- "The following is a chemical sequence"
If the sequence is neither of these, do not include this line.

Structure your answer as follows:
Step 1: Heading
Explanation
Step 2: Heading
Explanation
Step 3: Heading
Explanation
...

*Important Instructions:*
- *If timeline reconstruction is involved, present each event in a separate step, sequenced based on the date of the event, with the date included and a brief explanation.*
  - For timelines, use the format: Step 1: Date - Event
- *Always include the source with your answer.*
- *Ensure that reactions are presented in their particular order, with explanations for each.*
- *Include an explanation for each step and any reactions involved.*

Question: %s
Answer:`

// noContextNote prefixes the context slot when nothing relevant survived
// grading, so the model answers from its own knowledge and says so.
const noContextNote = "No external sources were useful. Answer from your own knowledge."

// Generator produces structured answers via a chat model.
type Generator struct {
	model ChatModel
}

// New creates a Generator backed by the given chat model.
func New(m ChatModel) *Generator {
	return &Generator{model: m}
}

// Generate answers the question from the given passages. An empty passage
// slice is valid: the model is asked to answer from its own knowledge.
// The model returning no content is an error, never a silent empty answer.
func (g *Generator) Generate(ctx context.Context, question string, passages []rag.Passage) (*Answer, error) {
	docs := noContextNote
	if len(passages) > 0 {
		parts := make([]string, len(passages))
		for i, p := range passages {
			parts[i] = p.Text
		}
		docs = strings.Join(parts, "\n\n")
	}

	prompt := fmt.Sprintf(generationPrompt, docs, question)

	resp, err := g.model.Generate(ctx, []*schema.Message{schema.UserMessage(prompt)})
	if err != nil {
		return nil, fmt.Errorf("generator: generation failed: %w", err)
	}
	if strings.TrimSpace(resp.Content) == "" {
		return nil, ErrEmptyGeneration
	}

	answer := ParseAnswer(resp.Content)
	logging.FromContext(ctx).Debug("generated answer",
		"kind", answer.Kind,
		"steps", len(answer.Steps),
		"passages", len(passages),
	)
	return answer, nil
}
