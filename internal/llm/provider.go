package llm

import (
	"context"
	"encoding/json"
)

// Provider is the abstraction over the hosted chat-completion service.
// The turn pipeline, translator, and test evaluator all speak to it
// through this interface.
type Provider interface {
	// Generate sends a conversation to the LLM and returns the
	// completion. When the request carries a Schema, the provider uses
	// its native structured-output mechanism and the response Content
	// is the validated JSON; otherwise Content is the raw reply text.
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID returns the model identifier this provider is configured
	// to use.
	ModelID() string
}

// Request describes one call to the chat-completion service.
type Request struct {
	// System is the system prompt seeding the persona.
	System string

	// Messages is the conversation history in order. Display-only
	// translation messages must already be filtered out by the caller.
	Messages []Message

	// Schema, when set, is the JSON Schema the response must conform
	// to. Used by the communication-test evaluator; plain chat turns
	// leave it nil.
	Schema *Schema

	// MaxTokens caps the completion length.
	MaxTokens int

	// Temperature controls randomness. Conversation turns use 1.0;
	// translation uses 0.
	Temperature float64

	// TopP is the nucleus sampling parameter. Zero means provider
	// default.
	TopP float64
}

// Message is a single role-tagged entry sent to the provider.
type Message struct {
	Role    Role
	Content string
}

// Role is the message sender role on the wire.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Schema defines the JSON structure expected from the LLM.
type Schema struct {
	// Name identifies this schema (tool name for Anthropic, schema
	// name for OpenAI-compatible APIs). Kebab-case.
	Name string

	// Description guides generation.
	Description string

	// Definition is the JSON Schema definition as a map.
	Definition map[string]any
}

// Response holds the LLM's output.
type Response struct {
	// Content is the generated output: validated JSON when the request
	// carried a Schema, raw reply text otherwise.
	Content json.RawMessage

	// Usage reports token consumption for this request.
	Usage Usage

	// Model is the actual model that served the request.
	Model string

	// StopReason is normalized to: "end", "max_tokens", "error".
	StopReason string
}

// Text returns the completion as plain text.
func (r *Response) Text() string {
	return string(r.Content)
}

// Usage tracks token consumption for a single request.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}
