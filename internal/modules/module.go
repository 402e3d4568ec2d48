// Package modules defines the fixed set of teaching personas and maps
// each one to its system prompt template and synthesis voice.
package modules

import (
	"fmt"

	"github.com/engli-ai/engli/internal/profile"
)

// Module identifies a teaching persona.
type Module string

const (
	ConversationFriend   Module = "conversation_friend"
	CorporateEnglish     Module = "corporate_english"
	IrishSlang           Module = "irish_slang"
	PronunciationChecker Module = "pronunciation_checker"
	Translation          Module = "translation"
	CommunicationTest    Module = "communication_test"
)

// All lists every module in presentation order.
func All() []Module {
	return []Module{
		ConversationFriend,
		CorporateEnglish,
		IrishSlang,
		PronunciationChecker,
		Translation,
		CommunicationTest,
	}
}

// Parse maps an identifier to a Module. Accepts the wire identifier
// ("irish_slang") as well as the display title ("Irish Slang").
func Parse(s string) (Module, error) {
	for _, m := range All() {
		if s == string(m) || s == m.Title() {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown module: %q", s)
}

// Title returns the module's human-readable name.
func (m Module) Title() string {
	switch m {
	case ConversationFriend:
		return "English Conversation Friend"
	case CorporateEnglish:
		return "Corporate English"
	case IrishSlang:
		return "Irish Slang"
	case PronunciationChecker:
		return "Pronunciation Checker"
	case Translation:
		return "Translation"
	case CommunicationTest:
		return "Communication Level Test"
	}
	return string(m)
}

// DisplayTitle returns the title shown to the learner. The Translation
// module is named after the learner's mother tongue.
func (m Module) DisplayTitle(p profile.UserProfile) string {
	if m == Translation {
		return fmt.Sprintf("%s to English", p.Sanitized().MotherTongue)
	}
	return m.Title()
}

// Conversational reports whether the module drives a chat conversation.
// PronunciationChecker and Translation are one-shot utilities with no
// message history.
func (m Module) Conversational() bool {
	switch m {
	case PronunciationChecker, Translation:
		return false
	}
	return true
}

// Deepgram voice models. Connor the Irish storyteller gets the Irish
// voice; everything else uses the default persona voice.
const (
	VoiceDefault = "aura-asteria-en"
	VoiceIrish   = "aura-angus-en"
)

// Voice returns the synthesis voice model for the module.
func (m Module) Voice() string {
	if m == IrishSlang {
		return VoiceIrish
	}
	return VoiceDefault
}
