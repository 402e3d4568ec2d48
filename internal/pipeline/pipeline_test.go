package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/engli-ai/engli/internal/llm"
	"github.com/engli-ai/engli/internal/modules"
	"github.com/engli-ai/engli/internal/profile"
	"github.com/engli-ai/engli/internal/session"
	"github.com/engli-ai/engli/internal/speech"
	"github.com/engli-ai/engli/internal/store"
	"github.com/engli-ai/engli/internal/translate"
)

type fakeTranscriber struct {
	text string
	err  error
}

func (f *fakeTranscriber) Transcribe(_ context.Context, audio []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

type fakeSynth struct {
	audio  []byte
	err    error
	voices []string
}

func (f *fakeSynth) Speak(_ context.Context, text, voice string) ([]byte, error) {
	f.voices = append(f.voices, voice)
	if f.err != nil {
		return nil, f.err
	}
	return f.audio, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestSession(p profile.UserProfile, m modules.Module) *session.Session {
	mgr := session.NewManager(session.DefaultTTL, testLogger())
	sess := mgr.Create(p)
	if m != "" {
		reg := modules.NewRegistry()
		sess.Do(func(state *session.State) {
			state.Conversation.Select(m, reg, *state.Profile)
		})
	}
	return sess
}

func messageCount(sess *session.Session) int {
	n := 0
	sess.Do(func(state *session.State) {
		n = state.Conversation.Len()
	})
	return n
}

func TestRunTurn_TextWithTranslation(t *testing.T) {
	mock := llm.NewMockProvider(
		llm.MockResponse{Content: json.RawMessage(`Nice to meet you!`)},
		llm.MockResponse{Content: json.RawMessage(`Prazer em conhecer você!`)},
	)
	synth := &fakeSynth{audio: []byte("mp3")}
	p := New(nil, mock, translate.New(mock), synth, store.NopEventRepo{}, testLogger())

	sess := newTestSession(profile.UserProfile{MotherTongue: "Portuguese"}, modules.ConversationFriend)

	result, err := p.RunTurn(context.Background(), sess, Input{Text: "Hello!"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Transcript != "Hello!" {
		t.Fatalf("unexpected transcript: %q", result.Transcript)
	}
	if result.Reply != "Nice to meet you!" {
		t.Fatalf("unexpected reply: %q", result.Reply)
	}
	if result.Translated != "Prazer em conhecer você!" {
		t.Fatalf("unexpected translation: %q", result.Translated)
	}
	if string(result.Audio) != "mp3" {
		t.Fatal("expected synthesized audio")
	}

	// system + user + assistant + translated
	if n := messageCount(sess); n != 4 {
		t.Fatalf("expected 4 messages, got %d", n)
	}
	if mock.CallCount() != 2 {
		t.Fatalf("expected 2 provider calls (chat + translation), got %d", mock.CallCount())
	}
}

func TestRunTurn_EnglishSpeakerSkipsTranslation(t *testing.T) {
	mock := llm.NewMockProvider(
		llm.MockResponse{Content: json.RawMessage(`Grand, thanks for asking!`)},
	)
	p := New(nil, mock, translate.New(mock), nil, store.NopEventRepo{}, testLogger())

	sess := newTestSession(profile.UserProfile{MotherTongue: "English"}, modules.IrishSlang)

	result, err := p.RunTurn(context.Background(), sess, Input{Text: "How are you?"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Translated != "" {
		t.Fatalf("expected no translation, got %q", result.Translated)
	}
	if mock.CallCount() != 1 {
		t.Fatalf("expected 1 provider call, got %d", mock.CallCount())
	}
	if n := messageCount(sess); n != 3 {
		t.Fatalf("expected 3 messages, got %d", n)
	}
}

func TestRunTurn_GenerationFailureLeavesStateUnchanged(t *testing.T) {
	mock := llm.NewMockProvider(
		llm.MockResponse{Err: &llm.ErrProviderUnavailable{Err: errors.New("down")}},
	)
	p := New(nil, mock, nil, nil, store.NopEventRepo{}, testLogger())

	sess := newTestSession(profile.UserProfile{MotherTongue: "English"}, modules.ConversationFriend)
	before := messageCount(sess)

	_, err := p.RunTurn(context.Background(), sess, Input{Text: "Hello"})
	var genErr *ErrGeneration
	if !errors.As(err, &genErr) {
		t.Fatalf("expected ErrGeneration, got: %v", err)
	}
	if after := messageCount(sess); after != before {
		t.Fatalf("failed turn must not mutate history: %d -> %d", before, after)
	}
}

func TestRunTurn_TranslationFailureLeavesStateUnchanged(t *testing.T) {
	mock := llm.NewMockProvider(
		llm.MockResponse{Content: json.RawMessage(`Hi!`)},
		llm.MockResponse{Err: &llm.ErrProviderUnavailable{Err: errors.New("down")}},
	)
	p := New(nil, mock, translate.New(mock), nil, store.NopEventRepo{}, testLogger())

	sess := newTestSession(profile.UserProfile{MotherTongue: "Spanish"}, modules.ConversationFriend)
	before := messageCount(sess)

	_, err := p.RunTurn(context.Background(), sess, Input{Text: "Hello"})
	if err == nil {
		t.Fatal("expected error")
	}
	if after := messageCount(sess); after != before {
		t.Fatalf("failed turn must not mutate history: %d -> %d", before, after)
	}
}

func TestRunTurn_AudioTranscribed(t *testing.T) {
	mock := llm.NewMockProvider(
		llm.MockResponse{Content: json.RawMessage(`Good morning to you too.`)},
	)
	tr := &fakeTranscriber{text: "Good morning"}
	p := New(tr, mock, nil, nil, store.NopEventRepo{}, testLogger())

	sess := newTestSession(profile.UserProfile{MotherTongue: "English"}, modules.ConversationFriend)

	result, err := p.RunTurn(context.Background(), sess, Input{Audio: []byte("wav")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Transcript != "Good morning" {
		t.Fatalf("unexpected transcript: %q", result.Transcript)
	}

	// The transcript is sent as the newest user message.
	req := mock.LastCall()
	last := req.Messages[len(req.Messages)-1]
	if last.Role != llm.RoleUser || last.Content != "Good morning" {
		t.Fatalf("unexpected final message: %+v", last)
	}
}

func TestRunTurn_EmptyUtterance(t *testing.T) {
	tr := &fakeTranscriber{err: speech.ErrEmptyUtterance{}}
	p := New(tr, llm.NewMockProvider(), nil, nil, store.NopEventRepo{}, testLogger())

	sess := newTestSession(profile.UserProfile{}, modules.ConversationFriend)
	before := messageCount(sess)

	_, err := p.RunTurn(context.Background(), sess, Input{Audio: []byte("wav")})
	if !errors.Is(err, speech.ErrEmptyUtterance{}) {
		t.Fatalf("expected ErrEmptyUtterance, got: %v", err)
	}
	if after := messageCount(sess); after != before {
		t.Fatal("empty utterance must not mutate history")
	}

	// No input at all behaves the same.
	_, err = p.RunTurn(context.Background(), sess, Input{})
	if !errors.Is(err, speech.ErrEmptyUtterance{}) {
		t.Fatalf("expected ErrEmptyUtterance, got: %v", err)
	}
}

func TestRunTurn_NoModuleSelected(t *testing.T) {
	p := New(nil, llm.NewMockProvider(), nil, nil, store.NopEventRepo{}, testLogger())
	sess := newTestSession(profile.UserProfile{}, "")

	_, err := p.RunTurn(context.Background(), sess, Input{Text: "Hello"})
	if !errors.Is(err, ErrNoModule) {
		t.Fatalf("expected ErrNoModule, got: %v", err)
	}
}

func TestRunTurn_SynthesisFailureIsBestEffort(t *testing.T) {
	mock := llm.NewMockProvider(
		llm.MockResponse{Content: json.RawMessage(`Hello!`)},
	)
	synth := &fakeSynth{err: fmt.Errorf("deepgram API error 500")}
	p := New(nil, mock, nil, synth, store.NopEventRepo{}, testLogger())

	sess := newTestSession(profile.UserProfile{MotherTongue: "English"}, modules.ConversationFriend)

	result, err := p.RunTurn(context.Background(), sess, Input{Text: "Hi"})
	if err != nil {
		t.Fatalf("synthesis failure must not fail the turn: %v", err)
	}
	if result.AudioError == "" {
		t.Fatal("expected AudioError to be set")
	}
	if len(result.Audio) != 0 {
		t.Fatal("expected no audio")
	}
	if n := messageCount(sess); n != 3 {
		t.Fatalf("turn should be committed, got %d messages", n)
	}
}

func TestRunTurn_IrishModuleUsesIrishVoice(t *testing.T) {
	mock := llm.NewMockProvider(
		llm.MockResponse{Content: json.RawMessage(`Ah, grand so!`)},
	)
	synth := &fakeSynth{audio: []byte("mp3")}
	p := New(nil, mock, nil, synth, store.NopEventRepo{}, testLogger())

	sess := newTestSession(profile.UserProfile{MotherTongue: "English"}, modules.IrishSlang)

	if _, err := p.RunTurn(context.Background(), sess, Input{Text: "Hello"}); err != nil {
		t.Fatal(err)
	}
	if len(synth.voices) != 1 || synth.voices[0] != modules.VoiceIrish {
		t.Fatalf("expected %q, got %v", modules.VoiceIrish, synth.voices)
	}
}

func TestRunTurn_HistoryReplayedInOrder(t *testing.T) {
	mock := llm.NewMockProvider(
		llm.MockResponse{Content: json.RawMessage(`First reply`)},
		llm.MockResponse{Content: json.RawMessage(`Second reply`)},
	)
	p := New(nil, mock, nil, nil, store.NopEventRepo{}, testLogger())

	sess := newTestSession(profile.UserProfile{MotherTongue: "English"}, modules.ConversationFriend)

	if _, err := p.RunTurn(context.Background(), sess, Input{Text: "one"}); err != nil {
		t.Fatal(err)
	}
	if _, err := p.RunTurn(context.Background(), sess, Input{Text: "two"}); err != nil {
		t.Fatal(err)
	}

	req := mock.LastCall()
	if req.System == "" {
		t.Fatal("expected the system prompt to be set")
	}
	want := []llm.Message{
		{Role: llm.RoleUser, Content: "one"},
		{Role: llm.RoleAssistant, Content: "First reply"},
		{Role: llm.RoleUser, Content: "two"},
	}
	if len(req.Messages) != len(want) {
		t.Fatalf("expected %d messages, got %d", len(want), len(req.Messages))
	}
	for i, m := range want {
		if req.Messages[i] != m {
			t.Fatalf("message %d: expected %+v, got %+v", i, m, req.Messages[i])
		}
	}
}
