package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/engli-ai/engli/internal/audio"
	"github.com/engli-ai/engli/internal/commtest"
	"github.com/engli-ai/engli/internal/llm"
	"github.com/engli-ai/engli/internal/modules"
	"github.com/engli-ai/engli/internal/pipeline"
	"github.com/engli-ai/engli/internal/profile"
	"github.com/engli-ai/engli/internal/session"
	"github.com/engli-ai/engli/internal/speech"
	"github.com/engli-ai/engli/internal/store"
	"github.com/engli-ai/engli/internal/translate"
)

const captureSampleRate = 16000

var talkCmd = &cobra.Command{
	Use:   "talk",
	Short: "Practice English from the terminal",
	Long: `Talk runs a practice session in the terminal: pick a module, speak
(or type with --text), and read the persona's replies. Microphone
capture requires a binary built with -tags portaudio.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTalk(cmd)
	},
}

func init() {
	talkCmd.Flags().String("module", string(modules.ConversationFriend), "Module to practice with")
	talkCmd.Flags().Bool("text", false, "Type utterances instead of using the microphone")
	talkCmd.Flags().Bool("no-db", false, "Skip event logging to the local database")
	talkCmd.Flags().String("save-audio", "", "Directory to save synthesized replies (MP3)")
	talkCmd.Flags().String("name", "", "Your name")
	talkCmd.Flags().Int("age", 0, "Your age")
	talkCmd.Flags().String("profession", "", "Your profession")
	talkCmd.Flags().String("nationality", "", "Your nationality")
	talkCmd.Flags().String("mother-tongue", "", "Your mother tongue (replies are translated unless English)")
	talkCmd.Flags().String("level", "", "Speaking level: Beginner, Intermediate, or Advanced")
}

func runTalk(cmd *cobra.Command) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	if err := godotenv.Load(); err == nil {
		logger.Info("loaded .env")
	}

	moduleName, _ := cmd.Flags().GetString("module")
	module, err := modules.Parse(moduleName)
	if err != nil {
		return err
	}

	textMode, _ := cmd.Flags().GetBool("text")
	noDB, _ := cmd.Flags().GetBool("no-db")
	saveDir, _ := cmd.Flags().GetString("save-audio")

	var events store.EventRepo = store.NopEventRepo{}
	if !noDB {
		dbPath, err := resolveDBPath(cmd)
		if err != nil {
			return fmt.Errorf("resolve database path: %w", err)
		}
		st, err := store.Open(dbPath)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer st.Close()
		events = st.EventRepo()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider, err := llm.NewProviderFromEnv(ctx, events)
	if err != nil {
		return fmt.Errorf("initialize LLM provider: %w", err)
	}

	var transcriber speech.Transcriber
	if !textMode {
		t, err := speech.NewWhisperTranscriber(speech.WhisperConfig{APIKey: os.Getenv("GROQ_API_KEY")})
		if err != nil {
			return fmt.Errorf("initialize transcriber: %w", err)
		}
		transcriber = t
	}

	var synth speech.Synthesizer
	if key := os.Getenv("DEEPGRAM_API_KEY"); key != "" && saveDir != "" {
		dg, err := speech.NewDeepgramClient(speech.DeepgramConfig{APIKey: key})
		if err != nil {
			return fmt.Errorf("initialize speech synthesis: %w", err)
		}
		synth = dg
		if err := os.MkdirAll(saveDir, 0o755); err != nil {
			return fmt.Errorf("create audio directory: %w", err)
		}
	}

	p := profileFromFlags(cmd)
	registry := modules.NewRegistry()
	translator := translate.New(provider)
	pipe := pipeline.New(transcriber, provider, translator, synth, events, logger)

	sessions := session.NewManager(session.DefaultTTL, logger)
	sess := sessions.Create(p)

	read := makeReader(ctx, textMode, logger)

	fmt.Printf("Engli / %s\n", module.DisplayTitle(p))
	fmt.Println("Say or type your message. Type \"quit\" to leave.")
	fmt.Println()

	if module == modules.CommunicationTest {
		return runTalkTest(ctx, sess, provider, read)
	}

	sess.Do(func(state *session.State) {
		state.Conversation.Select(module, registry, *state.Profile)
	})

	for {
		in, ok := read()
		if !ok {
			fmt.Println("Goodbye!")
			return nil
		}

		result, err := pipe.RunTurn(ctx, sess, in)
		if err != nil {
			if errors.Is(err, speech.ErrEmptyUtterance{}) {
				fmt.Println("(no speech detected, please repeat)")
				continue
			}
			var genErr *pipeline.ErrGeneration
			if errors.As(err, &genErr) {
				fmt.Println(pipeline.Apology)
				logger.Warn("turn failed", "error", err)
				continue
			}
			return err
		}

		fmt.Printf("You: %s\n", result.Transcript)
		fmt.Printf("%s: %s\n", module.Title(), result.Reply)
		if result.Translated != "" {
			fmt.Printf("(%s) %s\n", p.Sanitized().MotherTongue, result.Translated)
		}
		if len(result.Audio) > 0 && saveDir != "" {
			name := filepath.Join(saveDir, fmt.Sprintf("reply-%d.mp3", time.Now().UnixMilli()))
			if err := os.WriteFile(name, result.Audio, 0o644); err != nil {
				logger.Warn("failed to save audio", "error", err)
			} else {
				fmt.Printf("(audio saved to %s)\n", name)
			}
		}
		fmt.Println()
	}
}

// runTalkTest drives the communication test question by question and
// prints the evaluation.
func runTalkTest(ctx context.Context, sess *session.Session, provider llm.Provider, read func() (pipeline.Input, bool)) error {
	evaluator := commtest.NewEvaluator(provider)

	var t *commtest.Test
	sess.Do(func(state *session.State) {
		*state.Test = commtest.New()
		t = *state.Test
	})

	for {
		n, question, ok := t.Current()
		if !ok {
			break
		}
		fmt.Printf("Question %d/%d: %s\n", n, commtest.QuestionsPerTest, question)

		in, ok := read()
		if !ok {
			fmt.Println("Test abandoned.")
			return nil
		}
		if in.Text == "" {
			fmt.Println("(please answer in text mode: run with --text)")
			continue
		}
		if err := t.Submit(in.Text); err != nil {
			return err
		}
		fmt.Println()
	}

	fmt.Println("Evaluating your responses...")
	result, err := evaluator.Evaluate(ctx, t)
	if err != nil {
		return fmt.Errorf("evaluate test: %w", err)
	}
	fmt.Println()
	fmt.Println(result.Summary())
	return nil
}

// makeReader returns a function producing one utterance per call: typed
// text in text mode, a recorded WAV clip otherwise. ok is false when
// the user is done.
func makeReader(ctx context.Context, textMode bool, logger *slog.Logger) func() (pipeline.Input, bool) {
	if textMode {
		scanner := bufio.NewScanner(os.Stdin)
		return func() (pipeline.Input, bool) {
			fmt.Print("> ")
			if !scanner.Scan() {
				return pipeline.Input{}, false
			}
			text := strings.TrimSpace(scanner.Text())
			if text == "" {
				return pipeline.Input{}, true
			}
			if strings.EqualFold(text, "quit") || strings.EqualFold(text, "exit") {
				return pipeline.Input{}, false
			}
			return pipeline.Input{Text: text}, true
		}
	}

	recorder := audio.NewRecorder(captureSampleRate, logger)
	started := false
	return func() (pipeline.Input, bool) {
		if !started {
			if err := recorder.Start(ctx); err != nil {
				fmt.Fprintln(os.Stderr, err)
				fmt.Fprintln(os.Stderr, "falling back to text mode")
				return pipeline.Input{}, false
			}
			started = true
		}
		fmt.Println("(listening...)")
		wav, err := recorder.Record(ctx)
		if err != nil {
			if ctx.Err() != nil {
				recorder.Stop()
				return pipeline.Input{}, false
			}
			logger.Warn("recording failed", "error", err)
			return pipeline.Input{}, true
		}
		return pipeline.Input{Audio: wav}, true
	}
}

func profileFromFlags(cmd *cobra.Command) profile.UserProfile {
	name, _ := cmd.Flags().GetString("name")
	age, _ := cmd.Flags().GetInt("age")
	profession, _ := cmd.Flags().GetString("profession")
	nationality, _ := cmd.Flags().GetString("nationality")
	motherTongue, _ := cmd.Flags().GetString("mother-tongue")
	level, _ := cmd.Flags().GetString("level")

	return profile.UserProfile{
		Name:          name,
		Age:           age,
		Profession:    profession,
		Nationality:   nationality,
		MotherTongue:  motherTongue,
		SpeakingLevel: profile.ParseLevel(level),
	}
}
