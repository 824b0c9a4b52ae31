package generator

import (
	"regexp"
	"strings"
)

// Answer kinds. The model tags timelines and chemical sequences on the
// first line of its output; everything else is an untagged sequence.
const (
	KindTimeline         = "timeline"
	KindChemicalSequence = "chemical-sequence"
)

// Step is one numbered step of an answer. Date is set only for timeline
// answers whose heading follows the "Date - Event" convention.
type Step struct {
	// Label is the step heading, e.g. "Mix the reagents" or
	// "1912 - Titanic sinks".
	Label string `json:"label"`

	// Date is the date portion of a timeline heading, empty otherwise.
	Date string `json:"date,omitempty"`

	// Text is the explanation below the heading.
	Text string `json:"text"`
}

// Answer is the parsed model output: the raw text plus any numbered steps
// recovered from it. Steps may be empty when the model answered in prose.
type Answer struct {
	// Kind is "timeline", "chemical-sequence" or empty.
	Kind string `json:"kind,omitempty"`

	// Steps are the numbered steps in order.
	Steps []Step `json:"steps,omitempty"`

	// Text is the full raw answer.
	Text string `json:"text"`
}

// stepPattern matches a step heading at the start of a line. The model is
// prompted to emit "Step N: Heading" but occasionally bolds the marker.
var stepPattern = regexp.MustCompile(`(?m)^\**Step (\d+)\**:\s*`)

// ParseAnswer classifies raw model output and splits it into steps. It
// never fails: output that doesn't match the expected shape comes back as
// an Answer with the raw text and no steps.
func ParseAnswer(raw string) *Answer {
	text := strings.TrimSpace(raw)
	answer := &Answer{Text: text}

	rest := text
	firstLine, remainder, _ := strings.Cut(text, "\n")
	switch {
	case strings.Contains(firstLine, "The following is a timeline sequence"):
		answer.Kind = KindTimeline
		rest = remainder
	case strings.Contains(firstLine, "The following is a chemical sequence"):
		answer.Kind = KindChemicalSequence
		rest = remainder
	}

	locs := stepPattern.FindAllStringSubmatchIndex(rest, -1)
	for i, loc := range locs {
		body := rest[loc[1]:]
		if i+1 < len(locs) {
			body = rest[loc[1]:locs[i+1][0]]
		}

		label, explanation, _ := strings.Cut(strings.TrimSpace(body), "\n")
		step := Step{
			Label: strings.TrimSpace(label),
			Text:  strings.TrimSpace(explanation),
		}
		if answer.Kind == KindTimeline {
			if date, event, found := strings.Cut(step.Label, " - "); found {
				step.Date = strings.TrimSpace(date)
				step.Label = strings.TrimSpace(event)
			}
		}
		answer.Steps = append(answer.Steps, step)
	}

	return answer
}
