package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/engli-ai/engli/internal/commtest"
	"github.com/engli-ai/engli/internal/llm"
)

func multipartAudio(t *testing.T, wav []byte) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("audio", "recorded_audio.wav")
	require.NoError(t, err)
	_, err = part.Write(wav)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestCommunicationTestFlow(t *testing.T) {
	e := newTestEnv(t,
		llm.MockResponse{Content: json.RawMessage(`{"overall_score":7.5,"analysis":"Good range of vocabulary.","improvements":["Practice past tense"]}`)},
	)
	id := createSession(t, e, map[string]any{"name": "Maria"})

	// Start: first question of ten.
	rec := e.do(t, http.MethodPost, "/api/sessions/"+id+"/test", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	state := decode[testStateResponse](t, rec)
	assert.Equal(t, commtest.PhaseAsking, state.Phase)
	assert.Equal(t, 1, state.QuestionNumber)
	assert.NotEmpty(t, state.Question)
	assert.Equal(t, commtest.QuestionsPerTest, state.Total)

	// Starting again does not reshuffle.
	rec = e.do(t, http.MethodPost, "/api/sessions/"+id+"/test", nil)
	again := decode[testStateResponse](t, rec)
	assert.Equal(t, state.Question, again.Question)

	// Answer all ten questions.
	for i := 1; i <= commtest.QuestionsPerTest; i++ {
		rec = e.do(t, http.MethodPost, "/api/sessions/"+id+"/test/answers",
			map[string]any{"text": fmt.Sprintf("My answer number %d.", i)})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		state = decode[testStateResponse](t, rec)
		if i < commtest.QuestionsPerTest {
			assert.Equal(t, commtest.PhaseAsking, state.Phase)
			assert.Equal(t, i+1, state.QuestionNumber)
		} else {
			assert.Equal(t, commtest.PhaseEvaluating, state.Phase)
			assert.Zero(t, state.QuestionNumber)
		}
	}

	// One answer too many.
	rec = e.do(t, http.MethodPost, "/api/sessions/"+id+"/test/answers", map[string]any{"text": "extra"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Result.
	rec = e.do(t, http.MethodGet, "/api/sessions/"+id+"/test/result", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := decode[testResultResponse](t, rec)
	assert.Equal(t, 7.5, result.OverallScore)
	assert.Contains(t, result.Summary, "Overall Score: 7.5/10")
	assert.Contains(t, result.Summary, "Practice past tense")

	// Cached on repeat.
	rec = e.do(t, http.MethodGet, "/api/sessions/"+id+"/test/result", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, e.mock.CallCount())
}

func TestTestResult_BeforeFinishing(t *testing.T) {
	e := newTestEnv(t)
	id := createSession(t, e, nil)

	// No test started yet.
	rec := e.do(t, http.MethodGet, "/api/sessions/"+id+"/test/result", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	e.do(t, http.MethodPost, "/api/sessions/"+id+"/test", nil)
	e.do(t, http.MethodPost, "/api/sessions/"+id+"/test/answers", map[string]any{"text": "only one"})

	rec = e.do(t, http.MethodGet, "/api/sessions/"+id+"/test/result", nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	body := decode[map[string]string](t, rec)
	assert.Contains(t, body["error"], "not finished")
}

func TestTestState(t *testing.T) {
	e := newTestEnv(t)
	id := createSession(t, e, nil)

	// No run yet.
	rec := e.do(t, http.MethodGet, "/api/sessions/"+id+"/test", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	e.do(t, http.MethodPost, "/api/sessions/"+id+"/test", nil)
	e.do(t, http.MethodPost, "/api/sessions/"+id+"/test/answers", map[string]any{"text": "first"})

	rec = e.do(t, http.MethodGet, "/api/sessions/"+id+"/test", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	state := decode[testStateResponse](t, rec)
	assert.Equal(t, 2, state.QuestionNumber)
}

func TestTestAnswer_WithoutStarting(t *testing.T) {
	e := newTestEnv(t)
	id := createSession(t, e, nil)

	rec := e.do(t, http.MethodPost, "/api/sessions/"+id+"/test/answers", map[string]any{"text": "hello"})
	require.Equal(t, http.StatusConflict, rec.Code)
	body := decode[map[string]string](t, rec)
	assert.Contains(t, body["error"], "no test in progress")
}

func TestTestAnswer_MultipartAudio(t *testing.T) {
	e := newTestEnv(t)
	id := createSession(t, e, nil)
	e.do(t, http.MethodPost, "/api/sessions/"+id+"/test", nil)

	body, contentType := multipartAudio(t, []byte("fake-wav"))
	req := newMultipartRequest(t, "/api/sessions/"+id+"/test/answers", body, contentType)
	rec := doRaw(e, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	state := decode[testStateResponse](t, rec)
	assert.Equal(t, 2, state.QuestionNumber)
}

func TestRestartTest_Resamples(t *testing.T) {
	e := newTestEnv(t)
	id := createSession(t, e, nil)

	e.do(t, http.MethodPost, "/api/sessions/"+id+"/test", nil)
	e.do(t, http.MethodPost, "/api/sessions/"+id+"/test/answers", map[string]any{"text": "one"})

	rec := e.do(t, http.MethodPost, "/api/sessions/"+id+"/test/restart", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	state := decode[testStateResponse](t, rec)
	assert.Equal(t, commtest.PhaseAsking, state.Phase)
	assert.Equal(t, 1, state.QuestionNumber, "restart must begin at question 1")
}
