package modules

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/engli-ai/engli/internal/profile"
)

func TestSystemPrompt_InterpolatesProfile(t *testing.T) {
	reg := NewRegistry()
	p := profile.UserProfile{Name: "Maria", Profession: "Nurse", Nationality: "Brazilian", Age: 29}

	prompt := reg.SystemPrompt(ConversationFriend, p)
	if !strings.Contains(prompt, "Name: Maria, Profession: Nurse, Nationality: Brazilian, Age: 29") {
		t.Fatalf("prompt missing profile summary: %q", prompt)
	}
	if strings.Contains(prompt, "{{profile}}") {
		t.Fatal("placeholder not interpolated")
	}
}

func TestSystemPrompt_EmptyProfileUsesPlaceholders(t *testing.T) {
	reg := NewRegistry()

	prompt := reg.SystemPrompt(IrishSlang, profile.UserProfile{})
	if !strings.Contains(prompt, "Name: User, Profession: Unknown, Nationality: Unknown, Age: Not Specified") {
		t.Fatalf("prompt missing placeholder summary: %q", prompt)
	}
	if !strings.Contains(prompt, "Connor") {
		t.Fatalf("expected the Irish persona, got: %q", prompt)
	}
}

func TestSystemPrompt_UnknownModuleGetsDefault(t *testing.T) {
	reg := NewRegistry()

	prompt := reg.SystemPrompt(Module("made_up"), profile.UserProfile{})
	if !strings.Contains(prompt, "Engli, an AI English trainer") {
		t.Fatalf("expected default prompt, got: %q", prompt)
	}
}

func TestOverride(t *testing.T) {
	reg := NewRegistry()
	reg.Override(CorporateEnglish, "Be brief. The user is: {{profile}}")

	prompt := reg.SystemPrompt(CorporateEnglish, profile.UserProfile{Name: "Ana"})
	if !strings.HasPrefix(prompt, "Be brief.") {
		t.Fatalf("override not applied: %q", prompt)
	}
	if !strings.Contains(prompt, "Name: Ana") {
		t.Fatalf("override lost interpolation: %q", prompt)
	}
}

func TestLoadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	content := "prompts:\n  irish_slang: \"Short Connor. The user is: {{profile}}\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	reg := NewRegistry()
	if err := reg.LoadOverrides(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	prompt := reg.SystemPrompt(IrishSlang, profile.UserProfile{})
	if !strings.HasPrefix(prompt, "Short Connor.") {
		t.Fatalf("override not applied: %q", prompt)
	}

	// Untouched modules keep their built-in prompt.
	if !strings.Contains(reg.SystemPrompt(ConversationFriend, profile.UserProfile{}), "friendly English coach") {
		t.Fatal("unrelated module prompt was changed")
	}
}

func TestLoadOverrides_UnknownModule(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	content := "prompts:\n  irish_slangg: \"typo\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	reg := NewRegistry()
	if err := reg.LoadOverrides(path); err == nil {
		t.Fatal("expected error for unknown module key")
	}
}

func TestLoadOverrides_ExpandsEnv(t *testing.T) {
	t.Setenv("ENGLI_TEST_PERSONA", "Quinn")

	path := filepath.Join(t.TempDir(), "prompts.yaml")
	content := "prompts:\n  conversation_friend: \"You are ${ENGLI_TEST_PERSONA}. The user is: {{profile}}\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	reg := NewRegistry()
	if err := reg.LoadOverrides(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(reg.SystemPrompt(ConversationFriend, profile.UserProfile{}), "You are Quinn.") {
		t.Fatal("env var not expanded")
	}
}
