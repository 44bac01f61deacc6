package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"

	"github.com/rmehran/campuschat/internal/ai"
	"github.com/rmehran/campuschat/internal/archive"
	"github.com/rmehran/campuschat/internal/config"
	"github.com/rmehran/campuschat/internal/document"
	"github.com/rmehran/campuschat/internal/flow"
	"github.com/rmehran/campuschat/internal/handler"
	appI18n "github.com/rmehran/campuschat/internal/i18n"
	"github.com/rmehran/campuschat/internal/roster"
	"github.com/rmehran/campuschat/internal/session"
	"github.com/rmehran/campuschat/internal/speech"
)

//go:generate templ generate

func main() {
	_ = godotenv.Load()
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "campuschat",
		Short: "Guided university course assistant",
	}

	serve := serveCmd()
	root.AddCommand(serve, exportCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP chat server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("data-dir", "data", "Directory holding course documents")
	f.String("roster", "data/students.xlsx", "Student roster workbook")
	f.String("ethics-doc", "ethics_guidance.pdf", "Ethics guidance document (relative to data dir)")
	f.String("openai-key", "", "OpenAI API key (or set CAMPUSCHAT_OPENAI_KEY)")
	f.String("openai-url", "", "OpenAI-compatible API base URL (empty = default)")
	f.String("model", "gpt-4o-mini", "Chat completion model")
	f.Int("max-tokens", ai.DefaultMaxTokens, "Maximum completion tokens per answer")
	f.Float64("temperature", float64(ai.DefaultTemperature), "Completion sampling temperature")
	f.String("tts-model", "tts-1", "Text-to-speech model")
	f.String("tts-voice", "alloy", "Default narration voice")
	f.StringP("lang", "l", "en", "Default UI language (en, ar, fr, es)")
	f.Bool("ethics-requires-auth", true, "Require student credentials before the ethics advisor")
	f.Bool("warn-partial-load", true, "Tell students when some module files could not be read")
	f.Bool("secure-cookies", true, "Set Secure flag on cookies")
	f.String("archive-db", "campuschat.db", "Transcript archive database (empty disables archiving)")
	f.String("admin-password", "", "Diagnostics page password (or set CAMPUSCHAT_ADMIN_PASSWORD)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export archived chat transcripts as JSON",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("archive-db", "campuschat.db", "Transcript archive database")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("CAMPUSCHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("campuschat")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/campuschat")
	v.AddConfigPath("/etc/campuschat")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	cfg := config.FromViper(viperForCmd(cmd))

	problems, warnings := cfg.Validate()
	for _, warning := range warnings {
		slog.Warn(warning)
	}
	for _, problem := range problems {
		slog.Error(problem)
	}

	if err := appI18n.Init(cfg.DefaultLang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	rosterStore := roster.New(cfg.RosterFile)
	if len(problems) == 0 {
		if _, err := rosterStore.Load(); err != nil {
			slog.Error("roster load failed", "error", err)
			problems = append(problems, fmt.Sprintf("roster workbook could not be read: %v", err))
		}
	}

	var arch *archive.Archive
	if cfg.ArchiveDB != "" {
		var err error
		arch, err = archive.New(cfg.ArchiveDB)
		if err != nil {
			return fmt.Errorf("open archive: %w", err)
		}
		defer arch.Close()
	}

	aiClient := ai.New(cfg.OpenAIKey, cfg.OpenAIBaseURL, cfg.Model, cfg.MaxTokens, cfg.Temperature)
	speechClient := speech.New(cfg.OpenAIKey, cfg.OpenAIBaseURL, cfg.TTSModel, cfg.TTSVoice)

	ctrl := flow.New(
		rosterStore,
		document.NewLoader(cfg.DataDir),
		aiClient,
		speechClient,
		arch,
		flow.Config{
			EthicsRequiresAuth: cfg.EthicsRequiresAuth,
			WarnPartialLoad:    cfg.WarnPartialLoad,
			EthicsDoc:          cfg.EthicsDoc,
		},
	)

	sessions := session.NewStore(session.DefaultTTL)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sessions.StartJanitor(ctx, time.Hour)

	var adminHash []byte
	if cfg.AdminPassword != "" {
		var err error
		adminHash, err = bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash admin password: %w", err)
		}
	}

	h := handler.New(sessions, ctrl, rosterStore, aiClient, speechClient, arch, handler.Config{
		SecureCookies:     cfg.SecureCookies,
		SetupProblems:     problems,
		AdminPasswordHash: adminHash,
	})

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	h.Routes(r)

	slog.Info("starting server",
		"addr", cfg.Addr,
		"data_dir", cfg.DataDir,
		"roster", cfg.RosterFile,
		"model", cfg.Model,
		"lang", cfg.DefaultLang,
		"ethics_requires_auth", cfg.EthicsRequiresAuth,
		"archive", cfg.ArchiveDB,
	)
	return http.ListenAndServe(cfg.Addr, r)
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	arch, err := archive.New(v.GetString("archive-db"))
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer arch.Close()

	transcripts, err := arch.ExportAll()
	if err != nil {
		return fmt.Errorf("export transcripts: %w", err)
	}

	data, err := json.MarshalIndent(transcripts, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = os.Stdout
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	_, _ = fmt.Fprintln(w)

	return nil
}
