package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/engli-ai/engli/internal/commtest"
	"github.com/engli-ai/engli/internal/config"
	"github.com/engli-ai/engli/internal/llm"
	"github.com/engli-ai/engli/internal/modules"
	"github.com/engli-ai/engli/internal/pipeline"
	"github.com/engli-ai/engli/internal/server"
	"github.com/engli-ai/engli/internal/session"
	"github.com/engli-ai/engli/internal/speech"
	"github.com/engli-ai/engli/internal/store"
	"github.com/engli-ai/engli/internal/translate"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
}

func runServe(cmd *cobra.Command) error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	if p, _ := cmd.Flags().GetString("db"); p != "" {
		if err := store.EnsureDir(p); err != nil {
			return fmt.Errorf("prepare database directory: %w", err)
		}
		cfg.DBPath = p
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer st.Close()
	events := st.EventRepo()
	slog.Info("Database ready", "path", cfg.DBPath)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider, err := llm.NewProviderFromEnv(ctx, events)
	if err != nil {
		return fmt.Errorf("initialize LLM provider: %w", err)
	}
	slog.Info("LLM provider ready", "model", provider.ModelID())

	registry := modules.NewRegistry()
	if cfg.PromptOverrides != "" {
		if err := registry.LoadOverrides(cfg.PromptOverrides); err != nil {
			return fmt.Errorf("load prompt overrides: %w", err)
		}
		slog.Info("Prompt overrides loaded", "path", cfg.PromptOverrides)
	}

	// Transcription shares the Groq key with the chat provider.
	var transcriber speech.Transcriber
	if key := os.Getenv("GROQ_API_KEY"); key != "" {
		t, err := speech.NewWhisperTranscriber(speech.WhisperConfig{APIKey: key})
		if err != nil {
			return fmt.Errorf("initialize transcriber: %w", err)
		}
		transcriber = t
	} else {
		slog.Warn("GROQ_API_KEY not set, audio transcription disabled")
	}

	var synth speech.Synthesizer
	if cfg.DeepgramAPIKey != "" {
		dg, err := speech.NewDeepgramClient(speech.DeepgramConfig{
			APIKey:  cfg.DeepgramAPIKey,
			BaseURL: cfg.DeepgramBaseURL,
		})
		if err != nil {
			return fmt.Errorf("initialize speech synthesis: %w", err)
		}
		synth = dg
	} else {
		slog.Warn("DEEPGRAM_API_KEY not set, speech synthesis disabled")
	}

	translator := translate.New(provider)
	evaluator := commtest.NewEvaluator(provider)
	pipe := pipeline.New(transcriber, provider, translator, synth, events, logger)

	sessions := session.NewManager(cfg.SessionTTL, logger)
	sessions.StartSweeper(ctx, cfg.SweepInterval)
	slog.Info("Session sweeper started", "ttl", cfg.SessionTTL, "interval", cfg.SweepInterval)

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: server.New(
			sessions, registry, pipe,
			transcriber, synth, translator, evaluator,
			logger,
		).Router(cfg.AllowedOrigins),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  2 * time.Minute,
	}

	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	slog.Info("Server stopped")
	return nil
}
