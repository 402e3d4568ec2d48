package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/engli-ai/engli/internal/commtest"
	"github.com/engli-ai/engli/internal/session"
	"github.com/engli-ai/engli/internal/speech"
)

// ErrNoTest indicates a test endpoint was called before starting a run.
var ErrNoTest = errors.New("no test in progress")

type testStateResponse struct {
	Phase          commtest.Phase `json:"phase"`
	QuestionNumber int            `json:"question_number,omitempty"`
	Question       string         `json:"question,omitempty"`
	Total          int            `json:"total"`
}

func testState(t *commtest.Test) testStateResponse {
	resp := testStateResponse{
		Phase: t.Phase(),
		Total: commtest.QuestionsPerTest,
	}
	if n, q, ok := t.Current(); ok {
		resp.QuestionNumber = n
		resp.Question = q
	}
	return resp
}

// handleStartTest begins a communication test, or reports the state of
// the one already running.
func (s *Server) handleStartTest(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var resp testStateResponse
	sess.Do(func(state *session.State) {
		if *state.Test == nil {
			*state.Test = commtest.New()
		}
		resp = testState(*state.Test)
	})
	JSON(w, http.StatusOK, resp)
}

// handleTestState reports the state of the current run without
// starting one.
func (s *Server) handleTestState(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var resp testStateResponse
	var runErr error
	sess.Do(func(state *session.State) {
		if *state.Test == nil {
			runErr = ErrNoTest
			return
		}
		resp = testState(*state.Test)
	})

	if runErr != nil {
		s.writeTestError(w, runErr)
		return
	}
	JSON(w, http.StatusOK, resp)
}

// handleTestAnswer records the answer to the current question. The
// answer arrives like a conversation turn: multipart audio or JSON
// text. Audio is transcribed first; transcription failures leave the
// test untouched.
func (s *Server) handleTestAnswer(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	in, err := readUtterance(r)
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	var resp testStateResponse
	var runErr error
	sess.Do(func(state *session.State) {
		t := *state.Test
		if t == nil {
			runErr = ErrNoTest
			return
		}

		answer := in.Text
		if answer == "" {
			if len(in.Audio) == 0 {
				runErr = speech.ErrEmptyUtterance{}
				return
			}
			if s.transcriber == nil {
				runErr = fmt.Errorf("transcription not configured")
				return
			}
			answer, runErr = s.transcriber.Transcribe(r.Context(), in.Audio)
			if runErr != nil {
				return
			}
		}

		if runErr = t.Submit(answer); runErr != nil {
			return
		}
		resp = testState(t)
	})

	if runErr != nil {
		s.writeTestError(w, runErr)
		return
	}
	JSON(w, http.StatusOK, resp)
}

type testResultResponse struct {
	OverallScore float64  `json:"overall_score"`
	Analysis     string   `json:"analysis"`
	Improvements []string `json:"improvements"`
	Summary      string   `json:"summary"`
}

// handleTestResult evaluates a finished test. Repeated calls return
// the cached evaluation.
func (s *Server) handleTestResult(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var result *commtest.Evaluation
	var runErr error
	sess.Do(func(state *session.State) {
		t := *state.Test
		if t == nil {
			runErr = ErrNoTest
			return
		}
		result, runErr = s.evaluator.Evaluate(r.Context(), t)
	})

	if runErr != nil {
		s.writeTestError(w, runErr)
		return
	}

	JSON(w, http.StatusOK, testResultResponse{
		OverallScore: result.OverallScore,
		Analysis:     result.Analysis,
		Improvements: result.Improvements,
		Summary:      result.Summary(),
	})
}

// handleRestartTest discards any run in progress and samples a fresh
// question set.
func (s *Server) handleRestartTest(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var resp testStateResponse
	sess.Do(func(state *session.State) {
		*state.Test = commtest.New()
		resp = testState(*state.Test)
	})
	JSON(w, http.StatusOK, resp)
}

func (s *Server) writeTestError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrNoTest) ||
		errors.Is(err, commtest.ErrFinished) ||
		errors.Is(err, commtest.ErrNotFinished) {
		Error(w, http.StatusConflict, err.Error())
		return
	}
	s.writeDomainError(w, err)
}
