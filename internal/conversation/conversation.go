// Package conversation implements the ordered message history for one
// learner session as an explicit state machine driven by discrete
// events (Select, Reset, AppendTurn) rather than presentation reruns.
package conversation

import (
	"github.com/engli-ai/engli/internal/modules"
	"github.com/engli-ai/engli/internal/profile"
)

// Role tags a message's author.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"

	// RoleAssistantTranslated marks a display-only translation of the
	// preceding assistant message. Never sent to the generation service.
	RoleAssistantTranslated Role = "assistant_translated"
)

// Message is one entry in the conversation. Insertion order is
// meaningful: it defines chat turn order and is replayed to the
// generation service on every turn.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Conversation is the message history for the active module. A fresh
// Conversation is Uninitialized (no module, no messages); the first
// Select seeds it with exactly one system message at index 0. That
// system message is never mutated or removed, and no second system
// message is ever appended.
//
// Conversation is not safe for concurrent use; the owning session
// serializes access.
type Conversation struct {
	module   modules.Module
	seeded   bool
	messages []Message
}

// New returns an Uninitialized conversation.
func New() *Conversation {
	return &Conversation{}
}

// Module returns the active module ("" while Uninitialized).
func (c *Conversation) Module() modules.Module {
	return c.module
}

// Len returns the number of messages, including the seeding system
// message and any display-only translations.
func (c *Conversation) Len() int {
	return len(c.messages)
}

// Select activates a module. If the conversation is uninitialized or
// the module differs from the active one, the history is replaced with
// a single system message rendered by the registry; selecting the
// already-active module is a no-op and preserves history.
func (c *Conversation) Select(m modules.Module, reg *modules.Registry, p profile.UserProfile) {
	if c.seeded && c.module == m {
		return
	}
	c.seed(m, reg, p)
}

// Reset re-seeds the conversation for the active module, discarding
// all history regardless of module equality. Resetting an
// uninitialized conversation is a no-op.
func (c *Conversation) Reset(reg *modules.Registry, p profile.UserProfile) {
	if !c.seeded {
		return
	}
	c.seed(c.module, reg, p)
}

func (c *Conversation) seed(m modules.Module, reg *modules.Registry, p profile.UserProfile) {
	c.module = m
	c.seeded = true
	c.messages = []Message{{Role: RoleSystem, Content: reg.SystemPrompt(m, p)}}
}

// AppendTurn commits one completed turn: the user's utterance, the
// assistant's reply, and optionally a display-only translation, in that
// order. Earlier messages are never touched. The caller is expected to
// have fully resolved the turn before appending; a half-finished turn
// is never committed.
func (c *Conversation) AppendTurn(userText, assistantText string, translated string) {
	c.messages = append(c.messages,
		Message{Role: RoleUser, Content: userText},
		Message{Role: RoleAssistant, Content: assistantText},
	)
	if translated != "" {
		c.messages = append(c.messages, Message{Role: RoleAssistantTranslated, Content: translated})
	}
}

// ForGeneration returns the payload for the chat-completion service:
// the full history in order with assistant_translated messages
// filtered out. The returned slice is a copy.
func (c *Conversation) ForGeneration() []Message {
	out := make([]Message, 0, len(c.messages))
	for _, m := range c.messages {
		if m.Role == RoleAssistantTranslated {
			continue
		}
		out = append(out, m)
	}
	return out
}

// Messages returns a copy of the full history, translations included,
// for display.
func (c *Conversation) Messages() []Message {
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}
