// Package grader scores retrieved passages and generated answers with an
// LLM. Both graders prompt the model for a small JSON verdict and parse it
// defensively: anything that does not parse as a positive verdict counts as
// a negative one, so a flaky model degrades the workflow toward web search
// and retries rather than toward wrong answers.
package grader

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/seqrag/seqrag-go/internal/logging"
	"github.com/seqrag/seqrag-go/internal/rag"
)

// ChatModel is the subset of the eino chat model used by the graders.
type ChatModel interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

// relevancePrompt instructs the model to grade a single passage against the
// question. The verdict is a bare JSON object so it survives strict parsing.
const relevancePrompt = `You are a teacher grading a quiz. You will be given:
1/ a QUESTION
2/ a FACT provided by the student

You are grading RELEVANCE RECALL:
A score of 1 means that ANY of the statements in the FACT are relevant to the QUESTION.
A score of 0 means that NONE of the statements in the FACT are relevant to the QUESTION.
1 is the highest (best) score. 0 is the lowest score you can give.

Avoid simply stating the correct answer at the outset.

Question: %s

Fact: %s

Give a binary score 1 or 0 to indicate whether the document is relevant to the question.
Provide the score as a JSON object with a single key "score" and no preamble or explanation.`

// answerPrompt instructs the model to judge whether the generated answer is
// grounded in the question and useful.
const answerPrompt = `You are a grader assessing whether an answer is useful to resolve a question.

Here is the answer:
-------
%s
-------

Here is the question: %s

Give a binary score "yes" or "no" to indicate whether the answer is useful to resolve the question.
Provide the score as a JSON object with a single key "score" and no preamble or explanation.`

// Grader scores passages and answers via a chat model.
type Grader struct {
	model ChatModel
}

// New creates a Grader backed by the given chat model.
func New(m ChatModel) *Grader {
	return &Grader{model: m}
}

// relevanceVerdict is the JSON object the relevance grader emits. Score is
// kept loose because models return 1, "1" and "yes" interchangeably.
type relevanceVerdict struct {
	Score any `json:"score"`
}

// GradePassage scores a single passage against the question. It returns
// true only for an unambiguous positive verdict.
func (g *Grader) GradePassage(ctx context.Context, question string, passage rag.Passage) (bool, error) {
	prompt := fmt.Sprintf(relevancePrompt, question, passage.Text)

	resp, err := g.model.Generate(ctx, []*schema.Message{schema.UserMessage(prompt)})
	if err != nil {
		return false, fmt.Errorf("grader: relevance generation failed: %w", err)
	}

	relevant := parseRelevance(resp.Content)
	logging.FromContext(ctx).Debug("graded passage",
		"source", passage.SourceLabel,
		"relevant", relevant,
	)
	return relevant, nil
}

// GradePassages scores every passage and returns the relevant ones in their
// original order. Grading runs concurrently, one goroutine per passage.
func (g *Grader) GradePassages(ctx context.Context, question string, passages []rag.Passage) ([]rag.Passage, error) {
	type verdict struct {
		relevant bool
		err      error
	}

	verdicts := make([]verdict, len(passages))
	done := make(chan int, len(passages))
	for i := range passages {
		go func(i int) {
			relevant, err := g.GradePassage(ctx, question, passages[i])
			verdicts[i] = verdict{relevant: relevant, err: err}
			done <- i
		}(i)
	}
	for range passages {
		<-done
	}

	kept := make([]rag.Passage, 0, len(passages))
	for i, v := range verdicts {
		if v.err != nil {
			return nil, v.err
		}
		if v.relevant {
			kept = append(kept, passages[i])
		}
	}
	return kept, nil
}

// answerVerdict is the JSON object the answer grader emits.
type answerVerdict struct {
	Score string `json:"score"`
}

// GradeAnswer judges whether the answer resolves the question. It returns
// true only for an unambiguous "yes".
func (g *Grader) GradeAnswer(ctx context.Context, question, answer string) (bool, error) {
	prompt := fmt.Sprintf(answerPrompt, answer, question)

	resp, err := g.model.Generate(ctx, []*schema.Message{schema.UserMessage(prompt)})
	if err != nil {
		return false, fmt.Errorf("grader: answer generation failed: %w", err)
	}

	useful := parseAnswerVerdict(resp.Content)
	logging.FromContext(ctx).Debug("graded answer", "useful", useful)
	return useful, nil
}

// parseRelevance extracts the relevance verdict from model output. The
// score may arrive as a JSON number, a numeric string or a yes/no word;
// unparseable output counts as not relevant.
func parseRelevance(content string) bool {
	var v relevanceVerdict
	if err := json.Unmarshal([]byte(extractJSON(content)), &v); err != nil {
		return false
	}
	switch s := v.Score.(type) {
	case float64:
		return s == 1
	case string:
		trimmed := strings.ToLower(strings.TrimSpace(s))
		return trimmed == "1" || trimmed == "yes"
	case bool:
		return s
	default:
		return false
	}
}

// parseAnswerVerdict extracts the yes/no verdict from model output.
// Unparseable output counts as "no".
func parseAnswerVerdict(content string) bool {
	var v answerVerdict
	if err := json.Unmarshal([]byte(extractJSON(content)), &v); err != nil {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(v.Score), "yes")
}

// extractJSON returns the first top-level JSON object in content. Models
// occasionally wrap the verdict in markdown fences or prose despite the
// prompt asking for bare JSON.
func extractJSON(content string) string {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end == -1 || end < start {
		return content
	}
	return content[start : end+1]
}
