package store

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAppendAndQueryLLMEvents(t *testing.T) {
	s := openTestStore(t)
	repo := s.EventRepo()
	ctx := context.Background()

	events := []LLMRequestEventData{
		{Provider: "groq", Model: "llama3-8b-8192", Purpose: "chat", InputTokens: 120, OutputTokens: 45, LatencyMs: 800, Success: true, RequestBody: "[user]\nhello", ResponseBody: "Hi!"},
		{Provider: "groq", Model: "llama3-8b-8192", Purpose: "translation", InputTokens: 30, OutputTokens: 20, LatencyMs: 400, Success: true},
		{Provider: "groq", Model: "llama3-8b-8192", Purpose: "chat", Success: false, ErrorMessage: "rate limited"},
	}
	for _, e := range events {
		if err := repo.AppendLLMRequest(ctx, e); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	got, err := repo.QueryLLMEvents(ctx, QueryOpts{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 events, got %d", len(got))
	}
	// Newest first.
	if got[0].Success || got[0].ErrorMessage != "rate limited" {
		t.Fatalf("unexpected newest event: %+v", got[0])
	}

	chat, err := repo.QueryLLMEvents(ctx, QueryOpts{Purpose: "chat"})
	if err != nil {
		t.Fatalf("query purpose: %v", err)
	}
	if len(chat) != 2 {
		t.Fatalf("expected 2 chat events, got %d", len(chat))
	}

	limited, err := repo.QueryLLMEvents(ctx, QueryOpts{Limit: 1})
	if err != nil {
		t.Fatalf("query limit: %v", err)
	}
	if len(limited) != 1 {
		t.Fatalf("expected 1 event, got %d", len(limited))
	}
}

func TestGetLLMEvent(t *testing.T) {
	s := openTestStore(t)
	repo := s.EventRepo()
	ctx := context.Background()

	if err := repo.AppendLLMRequest(ctx, LLMRequestEventData{
		Provider: "groq", Model: "llama3-8b-8192", Purpose: "evaluation",
		Success: true, RequestBody: "[user]\nQuestion 1: ...", ResponseBody: `{"overall_score":7}`,
	}); err != nil {
		t.Fatalf("append: %v", err)
	}

	listed, err := repo.QueryLLMEvents(ctx, QueryOpts{})
	if err != nil || len(listed) != 1 {
		t.Fatalf("query: %v (%d events)", err, len(listed))
	}

	e, err := repo.GetLLMEvent(ctx, listed[0].ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if e == nil {
		t.Fatal("expected event")
	}
	if e.RequestBody == "" || e.ResponseBody == "" {
		t.Fatalf("expected full bodies, got %+v", e)
	}

	missing, err := repo.GetLLMEvent(ctx, 9999)
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	if missing != nil {
		t.Fatal("expected nil for unknown ID")
	}
}

func TestTurnStats(t *testing.T) {
	s := openTestStore(t)
	repo := s.EventRepo()
	ctx := context.Background()

	turns := []TurnEventData{
		{SessionID: "s1", Module: "conversation_friend", Transcript: "hi", Reply: "hello", Translated: true, AudioOK: true, LatencyMs: 1000},
		{SessionID: "s1", Module: "conversation_friend", Transcript: "bye", Reply: "see you", Translated: true, AudioOK: false, LatencyMs: 2000},
		{SessionID: "s2", Module: "irish_slang", Transcript: "howya", Reply: "grand", Translated: false, AudioOK: true, LatencyMs: 3000},
	}
	for _, turn := range turns {
		if err := repo.AppendTurn(ctx, turn); err != nil {
			t.Fatalf("append turn: %v", err)
		}
	}

	stats, err := repo.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Turns != 3 {
		t.Fatalf("expected 3 turns, got %d", stats.Turns)
	}
	if stats.Sessions != 2 {
		t.Fatalf("expected 2 sessions, got %d", stats.Sessions)
	}
	if stats.Translated != 2 {
		t.Fatalf("expected 2 translated, got %d", stats.Translated)
	}
	if stats.AudioOK != 2 {
		t.Fatalf("expected 2 with audio, got %d", stats.AudioOK)
	}
	if stats.AvgLatencyMs != 2000 {
		t.Fatalf("expected avg 2000ms, got %d", stats.AvgLatencyMs)
	}
	if stats.ByModule["conversation_friend"] != 2 || stats.ByModule["irish_slang"] != 1 {
		t.Fatalf("unexpected module counts: %v", stats.ByModule)
	}
}

func TestStatsEmptyDatabase(t *testing.T) {
	s := openTestStore(t)

	stats, err := s.EventRepo().Stats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Turns != 0 || stats.Sessions != 0 {
		t.Fatalf("expected empty stats, got %+v", stats)
	}
}
