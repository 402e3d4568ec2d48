// Package pipeline drives one interaction turn: audio → transcription →
// generation → optional translation → synthesis → commit. Steps run
// strictly sequentially and the conversation is only mutated once every
// required step has succeeded.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/engli-ai/engli/internal/conversation"
	"github.com/engli-ai/engli/internal/llm"
	"github.com/engli-ai/engli/internal/session"
	"github.com/engli-ai/engli/internal/speech"
	"github.com/engli-ai/engli/internal/store"
	"github.com/engli-ai/engli/internal/translate"
)

// Apology is the canned reply surfaced when generation fails. It is
// never appended to the conversation.
const Apology = "Sorry, I'm having trouble generating a response right now."

// Conversation turns mirror the original deployment's sampling.
const (
	turnMaxTokens   = 1024
	turnTemperature = 1
	turnTopP        = 1
)

// ErrGeneration wraps a chat-completion failure. The turn was not
// committed; callers may show Apology.
type ErrGeneration struct {
	Err error
}

func (e *ErrGeneration) Error() string {
	return fmt.Sprintf("generating reply: %v", e.Err)
}

func (e *ErrGeneration) Unwrap() error { return e.Err }

// ErrNoModule indicates no module has been selected for the session.
var ErrNoModule = errors.New("no module selected")

// Pipeline orchestrates the external collaborators for one turn.
type Pipeline struct {
	transcriber speech.Transcriber
	provider    llm.Provider
	translator  *translate.Translator
	synth       speech.Synthesizer
	events      store.EventRepo
	logger      *slog.Logger
}

// New creates a Pipeline. synth may be nil (audio is skipped);
// transcriber may be nil if callers only ever submit text.
func New(
	transcriber speech.Transcriber,
	provider llm.Provider,
	translator *translate.Translator,
	synth speech.Synthesizer,
	events store.EventRepo,
	logger *slog.Logger,
) *Pipeline {
	return &Pipeline{
		transcriber: transcriber,
		provider:    provider,
		translator:  translator,
		synth:       synth,
		events:      events,
		logger:      logger,
	}
}

// Input is one user utterance: either captured audio or typed text.
type Input struct {
	Audio []byte
	Text  string
}

// TurnResult is the outcome of one committed turn.
type TurnResult struct {
	Transcript string `json:"transcript"`
	Reply      string `json:"reply"`
	Translated string `json:"translated,omitempty"`

	// Audio is the synthesized reply (MP3). Empty when synthesis was
	// unavailable or failed; AudioError carries the reason. Audio is
	// best-effort and never fails the turn.
	Audio      []byte `json:"-"`
	AudioError string `json:"audio_error,omitempty"`
}

// RunTurn executes one full turn against the session. The session's
// lock is held for the duration, so turns cannot interleave. On any
// error before commit the conversation is left exactly as it was.
func (p *Pipeline) RunTurn(ctx context.Context, sess *session.Session, in Input) (*TurnResult, error) {
	start := time.Now()

	var result *TurnResult
	var runErr error

	sess.Do(func(state *session.State) {
		result, runErr = p.runLocked(ctx, state, in)
		if runErr != nil {
			return
		}

		// Committed: record the turn event. Logging failures are not
		// turn failures.
		if err := p.events.AppendTurn(ctx, store.TurnEventData{
			SessionID:  sess.ID,
			Module:     string(state.Conversation.Module()),
			Transcript: result.Transcript,
			Reply:      result.Reply,
			Translated: result.Translated != "",
			AudioOK:    len(result.Audio) > 0,
			LatencyMs:  time.Since(start).Milliseconds(),
		}); err != nil {
			p.logger.Warn("failed to record turn event", "error", err)
		}
	})

	return result, runErr
}

func (p *Pipeline) runLocked(ctx context.Context, state *session.State, in Input) (*TurnResult, error) {
	conv := state.Conversation
	module := conv.Module()
	if module == "" {
		return nil, ErrNoModule
	}
	if !module.Conversational() {
		return nil, fmt.Errorf("module %s does not support conversation turns", module)
	}

	// Step 1-2: resolve the user's utterance.
	transcript := in.Text
	if transcript == "" {
		if len(in.Audio) == 0 {
			// Nothing captured; stay idle without touching state.
			return nil, speech.ErrEmptyUtterance{}
		}
		if p.transcriber == nil {
			return nil, fmt.Errorf("transcription not configured")
		}
		var err error
		transcript, err = p.transcriber.Transcribe(ctx, in.Audio)
		if err != nil {
			return nil, err
		}
	}

	// Step 3: generate the assistant reply over the filtered history.
	reply, err := p.generate(ctx, conv, transcript)
	if err != nil {
		return nil, &ErrGeneration{Err: err}
	}

	// Step 4: translate for non-English speakers. Translation is part
	// of the committed turn: if it fails, nothing is appended.
	translated := ""
	if p.translator != nil && !state.Profile.SpeaksEnglish() {
		translated, err = p.translator.Translate(ctx, reply, state.Profile.Sanitized().MotherTongue)
		if err != nil {
			return nil, fmt.Errorf("translating reply: %w", err)
		}
	}

	// Commit the turn atomically: user, assistant, translation.
	conv.AppendTurn(transcript, reply, translated)

	result := &TurnResult{
		Transcript: transcript,
		Reply:      reply,
		Translated: translated,
	}

	// Step 5: synthesize speech, best effort.
	if p.synth != nil {
		audio, err := p.synth.Speak(ctx, reply, module.Voice())
		if err != nil {
			p.logger.Warn("speech synthesis failed", "module", module, "error", err)
			result.AudioError = err.Error()
		} else {
			result.Audio = audio
		}
	}

	return result, nil
}

func (p *Pipeline) generate(ctx context.Context, conv *conversation.Conversation, userText string) (string, error) {
	history := conv.ForGeneration()

	req := llm.Request{
		MaxTokens:   turnMaxTokens,
		Temperature: turnTemperature,
		TopP:        turnTopP,
	}
	for _, m := range history {
		switch m.Role {
		case conversation.RoleSystem:
			req.System = m.Content
		case conversation.RoleUser:
			req.Messages = append(req.Messages, llm.Message{Role: llm.RoleUser, Content: m.Content})
		case conversation.RoleAssistant:
			req.Messages = append(req.Messages, llm.Message{Role: llm.RoleAssistant, Content: m.Content})
		}
	}
	req.Messages = append(req.Messages, llm.Message{Role: llm.RoleUser, Content: userText})

	resp, err := p.provider.Generate(llm.WithPurpose(ctx, llm.PurposeChat), req)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}
