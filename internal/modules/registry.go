package modules

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/engli-ai/engli/internal/profile"
)

// profileToken is the placeholder a template uses for the learner's
// one-line summary.
const profileToken = "{{profile}}"

// defaultPrompt seeds conversations for modules without a dedicated
// persona (and for unknown modules).
const defaultPrompt = "You are Engli, an AI English trainer. Help the learner practice spoken English. The user is: " + profileToken

// builtinTemplates are the persona prompts. Each is plain prose with a
// single {{profile}} placeholder; the registry interpolates the
// sanitized profile summary.
var builtinTemplates = map[Module]string{
	ConversationFriend: "You are Engli, a friendly English coach. Help learners improve communication skills through natural conversations. Add three dots '...' for pauses to make responses feel more human. Use conversational filler words like 'um' and 'uh'. Speak in short, natural sentences. Gently correct mistakes. Vary your speech pattern to sound authentic. Be warm and encouraging. Create a comfortable learning environment. Do not use any expressions like smiling, laughing and so on. Talk about the day, or anything as a casual friend. The user is: " + profileToken,

	CorporateEnglish: "You are a Corporate English Communication Coach named Engli. Add three dots '...' for pauses to simulate natural speech. Use conversational filler words like 'um' and 'uh' to sound more authentic. Explore professional communication skills. Keep responses concise and realistic. Provide practical workplace language tips. Mimic how a real professional might explain things. Adapt your tone to feel less robotic. Do not use any expressions like smiling, laughing and so on. The user is: " + profileToken,

	IrishSlang: "You're Paddy, named Connor an Irish storyteller. Add three dots '...' to create natural conversation pauses. Use 'um' and 'uh' to sound more human. Speak with authentic Irish rhythm. Sprinkle in local slang. Tell short, engaging stories... Make language learning feel like a casual chat. Keep it warm and unpredictable. Sound like a real person from Ireland. Do not use any expressions like smiling, laughing and so on. The user is: " + profileToken,

	CommunicationTest: "You are an English teacher conducting a communication test assessment. Ask questions clearly and evaluate responses for grammar, pronunciation, and fluency. Provide constructive feedback. The user is: " + profileToken,
}

// Registry maps modules to prompt templates. The zero value is not
// usable; construct with NewRegistry.
type Registry struct {
	templates map[Module]string
}

// NewRegistry returns a Registry with the built-in persona templates.
func NewRegistry() *Registry {
	t := make(map[Module]string, len(builtinTemplates))
	for m, tpl := range builtinTemplates {
		t[m] = tpl
	}
	return &Registry{templates: t}
}

// SystemPrompt renders the system prompt that seeds a conversation for
// the given module. Pure string interpolation: missing profile fields
// fall back to placeholder defaults, never an error. Modules without a
// template (and unknown modules) get the generic default prompt.
func (r *Registry) SystemPrompt(m Module, p profile.UserProfile) string {
	tpl, ok := r.templates[m]
	if !ok {
		tpl = defaultPrompt
	}
	return strings.ReplaceAll(tpl, profileToken, p.Summary())
}

// Override replaces the template for a module. Templates are data, not
// code: deployments can reshape a persona without a rebuild.
func (r *Registry) Override(m Module, template string) {
	r.templates[m] = template
}

// overrideFile is the YAML shape of a prompt-override file:
//
//	prompts:
//	  irish_slang: "You're Connor... The user is: {{profile}}"
type overrideFile struct {
	Prompts map[string]string `yaml:"prompts"`
}

// LoadOverrides applies prompt overrides from a YAML file. Environment
// variables inside the file are expanded. Unknown module keys are an
// error so typos don't silently keep the built-in prompt.
func (r *Registry) LoadOverrides(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading prompt overrides: %w", err)
	}

	var f overrideFile
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &f); err != nil {
		return fmt.Errorf("parsing prompt overrides: %w", err)
	}

	for key, tpl := range f.Prompts {
		m, err := Parse(key)
		if err != nil {
			return fmt.Errorf("prompt overrides: %w", err)
		}
		if strings.TrimSpace(tpl) == "" {
			return fmt.Errorf("prompt overrides: empty template for %s", m)
		}
		r.templates[m] = tpl
	}
	return nil
}
