package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/matheusmoura0/vestibular-tutor/internal/extract"
	"github.com/matheusmoura0/vestibular-tutor/internal/handler"
	appI18n "github.com/matheusmoura0/vestibular-tutor/internal/i18n"
	"github.com/matheusmoura0/vestibular-tutor/internal/llm"
	"github.com/matheusmoura0/vestibular-tutor/internal/model"
	"github.com/matheusmoura0/vestibular-tutor/internal/pdftext"
	"github.com/matheusmoura0/vestibular-tutor/internal/store"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "tutor",
		Short: "Study past entrance exams extracted from PDF",
	}

	serve := serveCmd()
	root.AddCommand(serve, extractCmd(), inspectCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `tutor --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

// addExtractionFlags registers the flags shared by every command that reads PDFs.
func addExtractionFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("layout", pdftext.TwoColumn.String(), "Exam page layout (two-column, single-column)")
	f.String("marker", extract.MarkerWord.String(), "Question marker style (strict: QUESTÃO N, loose: leading numeral)")
	f.StringSlice("boilerplate", extract.DefaultBoilerplate, "Substrings removed from the text before segmentation (repeatable)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP study server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.StringP("lang", "l", appI18n.DefaultLang, "Default UI language (pt, en)")
	f.String("llm-url", "https://api.openai.com/v1", "OpenAI-compatible API base URL")
	f.String("llm-key", "", "Server-side API key for explanations (users may supply their own)")
	f.String("llm-model", "gpt-4o-mini", "LLM model name")
	f.Int64("max-upload-mb", 32, "Maximum upload size in megabytes")
	f.String("base-path", "", "URL prefix for sub-path deployments (e.g. /tutor)")
	f.Bool("secure-cookies", true, "Set Secure flag on cookies")
	addExtractionFlags(cmd)
	return cmd
}

func extractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract questions and answer key from PDFs as JSON",
		Args:  cobra.NoArgs,
		RunE:  runExtract,
	}
	f := cmd.Flags()
	f.String("exam", "", "Exam PDF path (required)")
	f.String("answers", "", "Answer key PDF path")
	f.String("answer-text", "", "Pasted answer key, e.g. \"1-A 2-C\"")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	addExtractionFlags(cmd)

	_ = cmd.MarkFlagRequired("exam")

	return cmd
}

func inspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <file.pdf>",
		Short: "Report page count and extractable text per page",
		Args:  cobra.ExactArgs(1),
		RunE:  runInspect,
	}
	f := cmd.Flags()
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	f.Bool("json", false, "Print the report as JSON")
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

	v.SetEnvPrefix("TUTOR")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("tutor")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/tutor")
	v.AddConfigPath("/etc/tutor")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Debug("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

// pipelineFromConfig builds the extraction pipeline from layout, marker and boilerplate settings.
func pipelineFromConfig(v *viper.Viper) (*extract.Pipeline, error) {
	layout, err := pdftext.ParseLayout(v.GetString("layout"))
	if err != nil {
		return nil, err
	}
	marker, err := extract.ParseMarkerStyle(v.GetString("marker"))
	if err != nil {
		return nil, err
	}
	return extract.New(extract.Options{
		Layout:      layout,
		Marker:      marker,
		Boilerplate: v.GetStringSlice("boilerplate"),
	}), nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	pipeline, err := pipelineFromConfig(v)
	if err != nil {
		return fmt.Errorf("configure extraction: %w", err)
	}

	// Sessions live only as long as the process.
	db, err := store.New(":memory:")
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	defer db.Close()

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	llmClient, err := llm.New(
		v.GetString("llm-url"),
		v.GetString("llm-key"),
		v.GetString("llm-model"),
	)
	if err != nil {
		return fmt.Errorf("create LLM client: %w", err)
	}
	llmClient.WithLanguage(lang)
	if llmClient.HasDefaultKey() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := llmClient.Ping(ctx); err != nil {
			// Explanations are optional; the study flow works without them.
			slog.Warn("LLM health check failed", "url", v.GetString("llm-url"), "error", err)
		} else {
			slog.Info("LLM endpoint OK", "url", v.GetString("llm-url"), "model", v.GetString("llm-model"))
		}
		cancel()
	}

	// Normalize base path.
	basePath := strings.TrimRight(v.GetString("base-path"), "/")
	if basePath != "" && !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}

	studyCfg := model.StudyConfig{
		MaxUploadBytes: v.GetInt64("max-upload-mb") << 20,
		BasePath:       basePath,
		SecureCookies:  v.GetBool("secure-cookies"),
		DefaultAPIKey:  llmClient.HasDefaultKey(),
	}

	h, err := handler.New(db, pipeline, llmClient, studyCfg)
	if err != nil {
		return fmt.Errorf("create handler: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware(lang))

	if basePath != "" {
		r.Route(basePath, func(sub chi.Router) {
			sub.Use(h.BasePathMiddleware)
			h.Routes(sub)
		})
		r.Get(basePath, func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, basePath+"/", http.StatusMovedPermanently)
		})
	} else {
		r.Use(h.BasePathMiddleware)
		h.Routes(r)
	}

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"lang", lang,
		"layout", v.GetString("layout"),
		"marker", v.GetString("marker"),
		"model", v.GetString("llm-model"),
		"llm_url", v.GetString("llm-url"),
		"max_upload_mb", v.GetInt64("max-upload-mb"),
		"base_path", basePath,
	)
	return http.ListenAndServe(addr, r)
}

// extractOutput is the JSON document written by the extract command.
type extractOutput struct {
	Name         string             `json:"name"`
	Questions    model.QuestionMap  `json:"questions"`
	Answers      model.AnswerMap    `json:"answers"`
	AnswerSource model.AnswerSource `json:"answer_source"`
	EmptyBodies  []int              `json:"empty_bodies,omitempty"`
}

func runExtract(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	pipeline, err := pipelineFromConfig(v)
	if err != nil {
		return fmt.Errorf("configure extraction: %w", err)
	}

	examPath := v.GetString("exam")
	examData, err := os.ReadFile(examPath)
	if err != nil {
		return fmt.Errorf("read exam: %w", err)
	}
	var keyData []byte
	if p := v.GetString("answers"); p != "" {
		keyData, err = os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("read answer key: %w", err)
		}
	}

	exam, err := pipeline.Exam(filepath.Base(examPath), examData, keyData, v.GetString("answer-text"))
	if err != nil {
		if errors.Is(err, extract.ErrNoQuestionsRecognized) {
			slog.Warn("the PDF may be scanned and need OCR", "path", examPath)
		}
		return err
	}

	data, err := json.MarshalIndent(extractOutput{
		Name:         exam.Name,
		Questions:    exam.Questions,
		Answers:      exam.Answers,
		AnswerSource: exam.AnswerSource,
		EmptyBodies:  extract.EmptyBodies(exam.Questions),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = cmd.OutOrStdout()
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
	// Ensure trailing newline.
	_, _ = fmt.Fprintln(w)

	slog.Info("extracted exam",
		"name", exam.Name,
		"questions", len(exam.Questions),
		"answers", len(exam.Answers),
		"answer_source", exam.AnswerSource,
	)
	return nil
}

func runInspect(cmd *cobra.Command, args []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}
	info, err := pdftext.Inspect(data)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if v.GetBool("json") {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}

	fmt.Fprintf(out, "%s: %d pages\n", args[0], info.PageCount)
	for _, p := range info.Pages {
		fmt.Fprintf(out, "  page %d: %d glyphs, %d chars\n", p.Number, p.Glyphs, p.Chars)
	}
	if !info.HasText() {
		fmt.Fprintln(out, "no extractable text; the document is probably scanned and needs OCR")
	}
	return nil
}
