package commtest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/engli-ai/engli/internal/llm"
)

const evaluationSystemPrompt = `Evaluate the following English communication test responses. For each response:
1. Assess grammar accuracy (score 0-10)
2. Check pronunciation clarity based on transcription
3. Evaluate response completeness and relevance
4. Provide specific improvement suggestions`

// evaluationSchema constrains the evaluation to a typed result instead
// of free text.
var evaluationSchema = &llm.Schema{
	Name:        "communication-test-evaluation",
	Description: "Aggregate evaluation of an English communication test",
	Definition: map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"overall_score": map[string]any{
				"type":        "number",
				"minimum":     0,
				"maximum":     10,
				"description": "Overall communication score out of 10",
			},
			"analysis": map[string]any{
				"type":        "string",
				"description": "Detailed analysis of the learner's responses",
			},
			"improvements": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Key areas for improvement",
			},
		},
		"required": []any{"overall_score", "analysis", "improvements"},
	},
}

// Evaluation is the aggregate scoring of one completed test.
type Evaluation struct {
	OverallScore float64  `json:"overall_score"`
	Analysis     string   `json:"analysis"`
	Improvements []string `json:"improvements"`
}

// Summary renders the evaluation in the "Overall Score: X/10" shape
// shown to the learner.
func (e *Evaluation) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Overall Score: %.1f/10\n", e.OverallScore)
	fmt.Fprintf(&b, "Detailed Analysis: %s\n", e.Analysis)
	b.WriteString("Key Areas for Improvement:\n")
	for _, imp := range e.Improvements {
		fmt.Fprintf(&b, "- %s\n", imp)
	}
	return b.String()
}

// Evaluator scores completed tests through the chat-completion
// provider.
type Evaluator struct {
	provider llm.Provider
}

// NewEvaluator creates an Evaluator over the given provider.
func NewEvaluator(provider llm.Provider) *Evaluator {
	return &Evaluator{provider: provider}
}

// Evaluate runs the aggregate scoring request for a test in the
// Evaluating phase and transitions it to Done. Evaluating a test twice
// returns the cached result; evaluating an unfinished test is an error.
func (ev *Evaluator) Evaluate(ctx context.Context, t *Test) (*Evaluation, error) {
	if r := t.Result(); r != nil {
		return r, nil
	}
	if t.Phase() != PhaseEvaluating {
		n, _, _ := t.Current()
		return nil, fmt.Errorf("%w: question %d of %d pending", ErrNotFinished, n, len(t.questions))
	}

	ctx = llm.WithPurpose(ctx, llm.PurposeEvaluation)
	resp, err := ev.provider.Generate(ctx, llm.Request{
		System:      evaluationSystemPrompt,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: formatAnswers(t.Answers())}},
		Schema:      evaluationSchema,
		MaxTokens:   1000,
		Temperature: 0.7,
	})
	if err != nil {
		return nil, fmt.Errorf("evaluate test: %w", err)
	}

	var result Evaluation
	if err := json.Unmarshal(resp.Content, &result); err != nil {
		return nil, fmt.Errorf("decode evaluation: %w", err)
	}

	t.setResult(&result)
	return &result, nil
}

func formatAnswers(answers []Answer) string {
	parts := make([]string, 0, len(answers))
	for i, a := range answers {
		parts = append(parts, fmt.Sprintf("Question %d: %s\nResponse: %s", i+1, a.Question, a.Response))
	}
	return strings.Join(parts, "\n\n")
}
