// Package commtest implements the timed communication test: ten
// questions sampled without replacement from a fixed pool, answered in
// order, then scored in one aggregate LLM evaluation.
package commtest

import (
	"errors"
	"fmt"
	"math/rand/v2"
)

// Lifecycle misuse errors. Callers map these onto conflict responses.
var (
	ErrFinished    = errors.New("all questions already answered")
	ErrNotFinished = errors.New("test not finished")
)

// Phase is the test's lifecycle state.
type Phase string

const (
	PhaseAsking     Phase = "asking"
	PhaseEvaluating Phase = "evaluating"
	PhaseDone       Phase = "done"
)

// Answer pairs a question with the learner's transcribed response.
type Answer struct {
	Question string `json:"question"`
	Response string `json:"response"`
}

// Test tracks one run of the communication test. Not safe for
// concurrent use; the owning session serializes access.
type Test struct {
	questions []string
	index     int // 0-based index of the next question to answer
	answers   []Answer
	result    *Evaluation
}

// New starts a test with a fresh sample of the pool: QuestionsPerTest
// questions drawn without replacement.
func New() *Test {
	return newWithRand(rand.Perm)
}

// newWithRand allows tests to inject a deterministic permutation.
func newWithRand(perm func(n int) []int) *Test {
	idx := perm(len(QuestionPool))
	questions := make([]string, 0, QuestionsPerTest)
	for _, i := range idx[:QuestionsPerTest] {
		questions = append(questions, QuestionPool[i])
	}
	return &Test{questions: questions}
}

// Phase returns the current lifecycle state.
func (t *Test) Phase() Phase {
	switch {
	case t.result != nil:
		return PhaseDone
	case t.index >= len(t.questions):
		return PhaseEvaluating
	default:
		return PhaseAsking
	}
}

// Questions returns the sampled question order.
func (t *Test) Questions() []string {
	out := make([]string, len(t.questions))
	copy(out, t.questions)
	return out
}

// Current returns the 1-based question number and text of the question
// awaiting an answer. ok is false once all questions are answered.
func (t *Test) Current() (number int, question string, ok bool) {
	if t.index >= len(t.questions) {
		return 0, "", false
	}
	return t.index + 1, t.questions[t.index], true
}

// Submit records the learner's answer to the current question and
// advances. Submitting after the last question is an error.
func (t *Test) Submit(response string) error {
	if t.index >= len(t.questions) {
		return fmt.Errorf("%w (%d of %d)", ErrFinished, len(t.answers), len(t.questions))
	}
	t.answers = append(t.answers, Answer{
		Question: t.questions[t.index],
		Response: response,
	})
	t.index++
	return nil
}

// Answers returns the recorded question/answer pairs in order.
func (t *Test) Answers() []Answer {
	out := make([]Answer, len(t.answers))
	copy(out, t.answers)
	return out
}

// Result returns the evaluation once the test is Done, nil before.
func (t *Test) Result() *Evaluation {
	return t.result
}

// setResult transitions Evaluating → Done. The evaluator calls this
// exactly once per run.
func (t *Test) setResult(e *Evaluation) {
	t.result = e
}
