// Package translate renders assistant replies (and ad hoc text) into
// the learner's mother tongue by reusing the chat-completion provider
// with a translation-only instruction.
package translate

import (
	"context"
	"fmt"
	"strings"

	"github.com/engli-ai/engli/internal/llm"
)

// Translation requests are deterministic and short.
const (
	maxTokens   = 512
	temperature = 0
)

// Translator translates text between the learner's languages.
type Translator struct {
	provider llm.Provider
}

// New creates a Translator over the given provider.
func New(provider llm.Provider) *Translator {
	return &Translator{provider: provider}
}

// Translate renders text into targetLanguage. The provider is
// instructed to return the translation only, no commentary.
func (t *Translator) Translate(ctx context.Context, text, targetLanguage string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}

	ctx = llm.WithPurpose(ctx, llm.PurposeTranslation)
	resp, err := t.provider.Generate(ctx, llm.Request{
		System: fmt.Sprintf(
			"Translate the following text into %s. Response should be just only the translation.",
			targetLanguage),
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: text}},
		MaxTokens:   maxTokens,
		Temperature: temperature,
		TopP:        1,
	})
	if err != nil {
		return "", fmt.Errorf("translate to %s: %w", targetLanguage, err)
	}

	return strings.TrimSpace(resp.Text()), nil
}

// ToEnglish translates mother-tongue input into English (the
// Translation module's one-shot operation).
func (t *Translator) ToEnglish(ctx context.Context, text string) (string, error) {
	return t.Translate(ctx, text, "English")
}
