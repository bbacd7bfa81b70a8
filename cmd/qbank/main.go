package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"

	"github.com/pavelanni/qbank/internal/emit"
	"github.com/pavelanni/qbank/internal/extract"
	"github.com/pavelanni/qbank/internal/handler"
	appI18n "github.com/pavelanni/qbank/internal/i18n"
	"github.com/pavelanni/qbank/internal/ingest"
	"github.com/pavelanni/qbank/internal/llm"
	"github.com/pavelanni/qbank/internal/model"
	"github.com/pavelanni/qbank/internal/source"
	"github.com/pavelanni/qbank/internal/store"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "qbank",
		Short:        "Build multiple-choice question banks from quiz documents",
		SilenceUsage: true,
	}
	root.AddCommand(extractCmd(), importCmd(), exportCmd(), explainCmd(), serveCmd(), hashPasswordCmd())
	return root
}

func extractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract a question bank from a quiz document and its answer key",
		RunE:  runExtract,
	}
	f := cmd.Flags()
	f.StringP("questions", "q", "", "Question document (Markdown or HTML)")
	f.StringP("answers", "a", "", "Answer key document (Markdown or HTML)")
	f.String("subject", "", "Subject code, overrides the rules file")
	addRulesFlag(cmd)
	addEmitFlags(cmd)
	addCommonFlags(cmd)
	_ = cmd.MarkFlagRequired("questions")
	_ = cmd.MarkFlagRequired("answers")
	return cmd
}

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Extract a quiz document into the question database",
		RunE:  runImport,
	}
	f := cmd.Flags()
	f.StringP("questions", "q", "", "Question document (Markdown or HTML)")
	f.StringP("answers", "a", "", "Answer key document (Markdown or HTML)")
	f.String("subject", "", "Subject code, overrides the rules file")
	f.Bool("force", false, "Import even if the documents are unchanged")
	addRulesFlag(cmd)
	addDBFlag(cmd)
	addCommonFlags(cmd)
	_ = cmd.MarkFlagRequired("questions")
	_ = cmd.MarkFlagRequired("answers")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a stored subject's question bank",
		RunE:  runExport,
	}
	cmd.Flags().String("subject", "", "Subject code (required)")
	addEmitFlags(cmd)
	addDBFlag(cmd)
	addCommonFlags(cmd)
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}

func explainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "explain",
		Short: "Generate answer explanations for stored questions with an LLM",
		RunE:  runExplain,
	}
	f := cmd.Flags()
	f.String("subject", "", "Subject code (required)")
	f.Bool("overwrite", false, "Regenerate explanations that already exist")
	f.Duration("timeout", 2*time.Minute, "Timeout per LLM request")
	addLLMFlags(cmd)
	addDBFlag(cmd)
	addCommonFlags(cmd)
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP question bank API",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.String("addr", ":8080", "HTTP listen address")
	f.String("base-path", "", "URL prefix for sub-path deployments (e.g. /qbank)")
	f.String("admin-user", "admin", "User name for import endpoints")
	f.String("admin-password-hash", "", "bcrypt hash of the admin password (see hash-password)")
	f.Int64("max-upload-bytes", 10<<20, "Maximum size of an import upload")
	f.StringSlice("cors-origins", nil, "Browser origins allowed to call the API (repeatable)")
	addRulesFlag(cmd)
	addLLMFlags(cmd)
	addDBFlag(cmd)
	addCommonFlags(cmd)
	return cmd
}

func hashPasswordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hash-password",
		Short: "Read a password from stdin and print its bcrypt hash",
		RunE:  runHashPassword,
	}
	cmd.Flags().Int("cost", bcrypt.DefaultCost, "bcrypt cost")
	addCommonFlags(cmd)
	return cmd
}

func addCommonFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringP("lang", "l", "en", "Message language (en, ru)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
}

func addDBFlag(cmd *cobra.Command) {
	cmd.Flags().String("db", "qbank.db", "SQLite database path")
}

func addRulesFlag(cmd *cobra.Command) {
	cmd.Flags().StringP("rules", "r", "", "Extraction rules YAML file (default: built-in rules)")
}

func addEmitFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringP("format", "f", string(emit.FormatTS), "Output format (ts, json, pdf)")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	f.String("export-name", "", "TypeScript export name (default: <SUBJECT>_QUESTIONS)")
	f.String("types-import", "@/lib/types", "Module the TypeScript output imports its types from")
	f.String("title", "", "PDF title (default: subject)")
}

func addLLMFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("llm-url", "http://localhost:11434/v1", "OpenAI-compatible API base URL")
	f.String("llm-key", "ollama", "API key for LLM")
	f.String("llm-model", "llama3.2", "LLM model name")
}

func setupLogging(v *viper.Viper) {
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

	v.SetEnvPrefix("QBANK")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("qbank")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/qbank")
	v.AddConfigPath("/etc/qbank")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Debug("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

// setup configures logging and messages for a command and returns its
// configuration and a context carrying the localizer.
func setup(cmd *cobra.Command) (*viper.Viper, context.Context, error) {
	v := viperForCmd(cmd)
	setupLogging(v)

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return nil, nil, fmt.Errorf("init i18n: %w", err)
	}
	ctx := appI18n.WithLocalizer(cmd.Context(), appI18n.NewLocalizer(lang))
	return v, ctx, nil
}

func loadRules(v *viper.Viper) (extract.Rules, error) {
	rules := extract.DefaultRules()
	if path := v.GetString("rules"); path != "" {
		var err error
		if rules, err = extract.LoadRules(path); err != nil {
			return extract.Rules{}, err
		}
		slog.Debug("loaded rules", "path", path, "subject", rules.Subject)
	}
	if subject := strings.TrimSpace(v.GetString("subject")); subject != "" && subject != rules.Subject {
		rules = rules.WithSubject(subject)
	}
	return rules, nil
}

func newEmitter(v *viper.Viper) (emit.Emitter, error) {
	format, err := emit.ParseFormat(v.GetString("format"))
	if err != nil {
		return nil, err
	}
	return emit.New(format, emit.Options{
		ExportName:  v.GetString("export-name"),
		TypesImport: v.GetString("types-import"),
		Title:       v.GetString("title"),
	})
}

// writeOutput emits bank to path, or to stdout for "" and "-". Files are
// written completely or not at all.
func writeOutput(path string, e emit.Emitter, bank model.QuestionBank) error {
	if path == "" || path == "-" {
		return e.Emit(os.Stdout, bank)
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	if err := e.Emit(f, bank); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write output: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close output file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename output file: %w", err)
	}
	return nil
}

func printStats(ctx context.Context, w io.Writer, subject string, st model.ExtractStats) {
	subj := map[string]any{"Subject": subject}
	fmt.Fprintln(w, appI18n.Tp(ctx, "ExtractSummary", st.Questions, subj))
	if st.Unanswered > 0 {
		fmt.Fprintln(w, appI18n.Tp(ctx, "ExtractUnanswered", st.Unanswered, nil))
	}
	if st.Padded > 0 {
		fmt.Fprintln(w, appI18n.Tp(ctx, "ExtractPadded", st.Padded, nil))
	}
}

func runExtract(cmd *cobra.Command, _ []string) error {
	v, ctx, err := setup(cmd)
	if err != nil {
		return err
	}

	rules, err := loadRules(v)
	if err != nil {
		return err
	}
	emitter, err := newEmitter(v)
	if err != nil {
		return err
	}

	questions, err := source.ReadFile(v.GetString("questions"))
	if err != nil {
		return err
	}
	answers, err := source.ReadFile(v.GetString("answers"))
	if err != nil {
		return err
	}

	res := extract.Run(questions, answers, rules)
	slog.Debug("extraction done",
		"subject", rules.Subject,
		"answer_rows", len(res.Answers),
		"questions", res.Stats.Questions,
		"overfull", res.Stats.Overfull,
	)

	if err := writeOutput(v.GetString("output"), emitter, res.Bank); err != nil {
		return err
	}
	printStats(ctx, cmd.ErrOrStderr(), rules.Subject, res.Stats)
	return nil
}

func runImport(cmd *cobra.Command, _ []string) error {
	v, ctx, err := setup(cmd)
	if err != nil {
		return err
	}

	rules, err := loadRules(v)
	if err != nil {
		return err
	}
	questions, err := readDocument(v.GetString("questions"))
	if err != nil {
		return err
	}
	answers, err := readDocument(v.GetString("answers"))
	if err != nil {
		return err
	}

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	out, err := ingest.Import(db, ingest.Request{
		Questions: questions,
		Answers:   answers,
		Rules:     rules,
		Force:     v.GetBool("force"),
	})
	if err != nil {
		return err
	}

	w := cmd.ErrOrStderr()
	if out.Unchanged {
		fmt.Fprintln(w, appI18n.Td(ctx, "ImportUnchanged", map[string]any{"Subject": rules.Subject}))
		return nil
	}
	printStats(ctx, w, rules.Subject, out.Stats)
	fmt.Fprintln(w, appI18n.Tp(ctx, "ImportDone", out.Batch.QuestionCount, map[string]any{
		"Subject": rules.Subject,
		"Batch":   out.Batch.ID,
	}))
	return nil
}

func readDocument(path string) (ingest.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ingest.Document{}, fmt.Errorf("read %s: %w", path, err)
	}
	return ingest.Document{Name: path, Data: data}, nil
}

func runExport(cmd *cobra.Command, _ []string) error {
	v, ctx, err := setup(cmd)
	if err != nil {
		return err
	}
	emitter, err := newEmitter(v)
	if err != nil {
		return err
	}

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	subject := v.GetString("subject")
	bank, err := db.Bank(subject)
	if err != nil {
		return fmt.Errorf("load %s: %w", subject, err)
	}
	if len(bank.MCQ) == 0 {
		return errors.New(appI18n.Td(ctx, "ErrSubjectNotFound", map[string]any{"Subject": subject}))
	}
	return writeOutput(v.GetString("output"), emitter, bank)
}

func newLLMClient(ctx context.Context, v *viper.Viper) (*llm.Client, error) {
	client, err := llm.New(v.GetString("llm-url"), v.GetString("llm-key"), v.GetString("llm-model"))
	if err != nil {
		return nil, fmt.Errorf("create LLM client: %w", err)
	}
	if err := client.Ping(ctx); err != nil {
		return nil, fmt.Errorf("LLM health check: %w", err)
	}
	slog.Info("LLM endpoint OK", "url", v.GetString("llm-url"), "model", v.GetString("llm-model"))
	return client, nil
}

func runExplain(cmd *cobra.Command, _ []string) error {
	v, ctx, err := setup(cmd)
	if err != nil {
		return err
	}

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	subject := v.GetString("subject")
	var pending []model.MCQQuestion
	if v.GetBool("overwrite") {
		pending, err = db.ListQuestions(model.QuestionFilter{Subject: subject})
	} else {
		pending, err = db.MissingExplanations(subject)
	}
	if err != nil {
		return fmt.Errorf("list questions: %w", err)
	}
	w := cmd.ErrOrStderr()
	if len(pending) == 0 {
		fmt.Fprintln(w, appI18n.Td(ctx, "ExplainNothing", map[string]any{"Subject": subject}))
		return nil
	}

	client, err := newLLMClient(ctx, v)
	if err != nil {
		return err
	}

	timeout := v.GetDuration("timeout")
	written := 0
	for _, q := range pending {
		if err := ctx.Err(); err != nil {
			return err
		}
		reqCtx, cancel := context.WithTimeout(ctx, timeout)
		text, err := client.ExplainQuestion(reqCtx, q)
		cancel()
		if err != nil {
			slog.Warn("explanation failed, skipping", "id", q.ID, "error", err)
			continue
		}
		if err := db.SetExplanation(subject, q.ID, text); err != nil {
			return fmt.Errorf("save explanation for %s: %w", q.ID, err)
		}
		written++
		slog.Debug("explained question", "id", q.ID)
	}

	fmt.Fprintln(w, appI18n.Tp(ctx, "ExplainDone", written, map[string]any{"Subject": subject}))
	return nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	v, ctx, err := setup(cmd)
	if err != nil {
		return err
	}

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if path := v.GetString("rules"); path != "" {
		if _, err := extract.LoadRules(path); err != nil {
			return err
		}
	}

	// Study plans fall back to fixed text when the LLM is unreachable.
	var planner handler.StudyPlanner
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	client, err := newLLMClient(pingCtx, v)
	cancel()
	if err != nil {
		slog.Warn("LLM unavailable, study plans use fallback text", "error", err)
	} else {
		planner = client
	}

	adminHash := v.GetString("admin-password-hash")
	if adminHash == "" {
		slog.Warn("no admin password hash configured, import endpoints are disabled")
	}
	h, err := handler.New(db, planner, model.ServerConfig{
		AdminUser:         v.GetString("admin-user"),
		AdminPasswordHash: adminHash,
		RulesPath:         v.GetString("rules"),
		MaxUploadBytes:    v.GetInt64("max-upload-bytes"),
	})
	if err != nil {
		return fmt.Errorf("create handler: %w", err)
	}

	lang := v.GetString("lang")
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if origins := v.GetStringSlice("cors-origins"); len(origins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   origins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Content-Type", "Authorization", "Accept-Language"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}
	r.Use(appI18n.Middleware(lang))

	basePath := strings.TrimRight(v.GetString("base-path"), "/")
	if basePath != "" && !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	if basePath != "" {
		r.Route(basePath, h.Routes)
	} else {
		h.Routes(r)
	}

	addr := v.GetString("addr")
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-sigCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("starting server",
		"addr", addr,
		"base_path", basePath,
		"lang", lang,
		"llm", planner != nil,
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func runHashPassword(cmd *cobra.Command, _ []string) error {
	v := viperForCmd(cmd)
	setupLogging(v)

	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return errors.New("password is empty")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), v.GetInt("cost"))
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(hash))
	return nil
}
