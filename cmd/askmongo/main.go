package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/askmongo/askmongo/internal/app"
	"github.com/askmongo/askmongo/internal/batch"
	"github.com/askmongo/askmongo/internal/config"
	"github.com/askmongo/askmongo/internal/export"
	"github.com/askmongo/askmongo/internal/query"
	"github.com/askmongo/askmongo/internal/store"
	"github.com/askmongo/askmongo/internal/translate/gemini"
	"github.com/askmongo/askmongo/internal/util"
	"github.com/askmongo/askmongo/internal/version"
	"github.com/askmongo/askmongo/internal/web"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}

	switch os.Args[1] {
	case "help", "-h", "--help":
		usage(os.Stdout)
		return
	case "version":
		fmt.Println(version.Current)
		return
	case "serve":
		os.Exit(runServe(ctx, os.Args[2:]))
	case "ask":
		os.Exit(runAsk(ctx, os.Args[2:]))
	case "load":
		os.Exit(runLoad(ctx, os.Args[2:]))
	case "batch":
		os.Exit(runBatch(ctx, os.Args[2:]))
	default:
		_, _ = fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		usage(os.Stderr)
		os.Exit(2)
	}
}

func runServe(ctx context.Context, args []string) int {
	cfg, err := config.Load()
	if err != nil {
		return fail("config error", err)
	}

	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	listen := fs.String("listen", cfg.ListenAddr, "Address to serve HTTP on (env: LISTEN_ADDR)")
	applyCommonFlags(fs, &cfg)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	logger := log.New(os.Stdout, "", log.LstdFlags)

	a, closeStore, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return fail("startup error", err)
	}
	defer closeStore()

	if _, err := a.RefreshSchema(ctx); err != nil {
		// An empty or unreachable collection should not block serving: the
		// upload endpoint is how data arrives.
		logger.Printf("initial schema refresh failed: %s", util.RedactSecrets(err.Error()))
	}

	srv := &http.Server{
		Addr:              *listen,
		Handler:           web.NewServer(a, logger).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Printf("serving on %s", *listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return 0
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fail("serve failed", err)
		}
		return 0
	}
}

func runAsk(ctx context.Context, args []string) int {
	cfg, err := config.Load()
	if err != nil {
		return fail("config error", err)
	}

	fs := flag.NewFlagSet("ask", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	output := fs.String("output", "", "Write results to this CSV file instead of stdout")
	applyCommonFlags(fs, &cfg)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		_, _ = fmt.Fprintln(os.Stderr, "ask requires exactly one quoted question argument")
		return 2
	}
	question := fs.Arg(0)

	logger := log.New(os.Stderr, "", log.LstdFlags)
	a, closeStore, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return fail("startup error", err)
	}
	defer closeStore()

	if _, err := a.RefreshSchema(ctx); err != nil {
		return fail("schema refresh failed", err)
	}

	ans, err := a.Ask(ctx, question)
	if err != nil {
		return fail("ask failed", err)
	}

	printQuery(ans)
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			return fail("create output", err)
		}
		if err := export.WriteDocumentsCSV(f, ans.Docs); err != nil {
			_ = f.Close()
			return fail("write output", err)
		}
		if err := f.Close(); err != nil {
			return fail("close output", err)
		}
		fmt.Printf("%d rows written to %s\n", len(ans.Docs), *output)
		return 0
	}

	if err := export.WriteDocumentsCSV(os.Stdout, ans.Docs); err != nil {
		return fail("write results", err)
	}
	return 0
}

func runLoad(ctx context.Context, args []string) int {
	cfg, err := config.Load()
	if err != nil {
		return fail("config error", err)
	}

	fs := flag.NewFlagSet("load", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	input := fs.String("input", "", "Input CSV file path")
	applyStoreFlags(fs, &cfg)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *input == "" {
		_, _ = fmt.Fprintln(os.Stderr, "load requires --input")
		return 2
	}

	logger := log.New(os.Stderr, "", log.LstdFlags)
	if err := cfg.ValidateStore(); err != nil {
		return fail("config error", err)
	}
	st, err := store.Open(ctx, store.Config{
		URI:            cfg.MongoURI,
		Database:       cfg.Database,
		Collection:     cfg.Collection,
		ConnectTimeout: cfg.ConnectTimeout,
	})
	if err != nil {
		return fail("store error", err)
	}
	defer disconnect(st)

	// Loading needs no translator.
	a := app.New(st, nil, appOptions(cfg), logger)

	f, err := os.Open(*input)
	if err != nil {
		return fail("open input", err)
	}
	defer func() {
		_ = f.Close()
	}()

	n, err := a.LoadCSV(ctx, f)
	if err != nil {
		return fail("load failed", err)
	}
	fmt.Printf("inserted %d documents from %s\n", n, *input)
	return 0
}

func runBatch(ctx context.Context, args []string) int {
	cfg, err := config.Load()
	if err != nil {
		return fail("config error", err)
	}

	fs := flag.NewFlagSet("batch", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	questionsPath := fs.String("questions", "", "YAML file of named questions")
	outputDir := fs.String("output-dir", "results", "Directory for per-question CSVs and summary.csv")
	workers := fs.Int("workers", cfg.Workers, "Concurrent question workers (env: WORKERS)")
	maxRetries := fs.Int("max-retries", cfg.MaxRetries, "Max retries per question for transient failures (env: MAX_RETRIES)")
	rateLimitRPS := fs.Float64("rate-limit-rps", cfg.RateLimitRPS, "Global request rate limit (RPS), 0 disables (env: RATE_LIMIT_RPS)")
	failFast := fs.Bool("fail-fast", cfg.FailFast, "Abort the batch on first failure (env: FAIL_FAST)")
	applyCommonFlags(fs, &cfg)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *questionsPath == "" {
		_, _ = fmt.Fprintln(os.Stderr, "batch requires --questions")
		return 2
	}

	qf, err := os.Open(*questionsPath)
	if err != nil {
		return fail("open questions", err)
	}
	questions, err := batch.LoadQuestions(qf)
	_ = qf.Close()
	if err != nil {
		return fail("questions error", err)
	}

	logger := log.New(os.Stderr, "", log.LstdFlags)
	a, closeStore, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return fail("startup error", err)
	}
	defer closeStore()

	if _, err := a.RefreshSchema(ctx); err != nil {
		return fail("schema refresh failed", err)
	}

	policy := batch.FailurePolicyPartialOutput
	if *failFast {
		policy = batch.FailurePolicyFailFast
	}
	outputs, err := batch.Run(ctx, questions, a.AskDocs, batch.Options{
		Workers:       *workers,
		MaxRetries:    *maxRetries,
		RateLimitRPS:  *rateLimitRPS,
		FailurePolicy: policy,
	})
	if err != nil {
		return fail("batch failed", err)
	}

	if err := batch.WriteOutputs(*outputDir, outputs); err != nil {
		return fail("write outputs", err)
	}

	failed := 0
	for _, o := range outputs {
		if o.Err != nil {
			failed++
		}
	}
	fmt.Printf("batch complete: %d questions, %d failed, results in %s\n", len(outputs), failed, *outputDir)
	if failed > 0 {
		return 1
	}
	return 0
}

func buildApp(ctx context.Context, cfg config.Config, logger *log.Logger) (*app.App, func(), error) {
	if err := cfg.ValidateStore(); err != nil {
		return nil, nil, err
	}
	if err := cfg.ValidateGemini(); err != nil {
		return nil, nil, err
	}

	st, err := store.Open(ctx, store.Config{
		URI:            cfg.MongoURI,
		Database:       cfg.Database,
		Collection:     cfg.Collection,
		ConnectTimeout: cfg.ConnectTimeout,
	})
	if err != nil {
		return nil, nil, err
	}

	translator, err := gemini.New(ctx, gemini.Config{
		APIKey:  cfg.GeminiAPIKey,
		Model:   cfg.GeminiModel,
		BaseURL: cfg.GeminiBaseURL,
	})
	if err != nil {
		disconnect(st)
		return nil, nil, err
	}

	return app.New(st, translator, appOptions(cfg), logger), func() { disconnect(st) }, nil
}

func appOptions(cfg config.Config) app.Options {
	return app.Options{
		ResultLimit:        cfg.ResultLimit,
		SampleSize:         cfg.SampleSize,
		TranslateTimeout:   cfg.TranslateTimeout,
		TranslateRetryWait: cfg.TranslateRetryWait,
		QueryTimeout:       cfg.QueryTimeout,
	}
}

func disconnect(st *store.Store) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = st.Close(ctx)
}

func applyStoreFlags(fs *flag.FlagSet, cfg *config.Config) {
	fs.StringVar(&cfg.MongoURI, "mongo-uri", cfg.MongoURI, "MongoDB connection string (env: MONGO_URI)")
	fs.StringVar(&cfg.Database, "db", cfg.Database, "Database name (env: DB_NAME)")
	fs.StringVar(&cfg.Collection, "collection", cfg.Collection, "Collection name (env: COLLECTION_NAME)")
	fs.IntVar(&cfg.SampleSize, "sample-size", cfg.SampleSize, "Documents sampled for schema inference (env: SAMPLE_SIZE)")
}

func applyCommonFlags(fs *flag.FlagSet, cfg *config.Config) {
	applyStoreFlags(fs, cfg)
	fs.StringVar(&cfg.GeminiModel, "gemini-model", cfg.GeminiModel, "Gemini model name (env: GEMINI_MODEL)")
	fs.StringVar(&cfg.GeminiBaseURL, "gemini-base-url", cfg.GeminiBaseURL, "Gemini API base URL override (env: GEMINI_BASE_URL)")
	fs.IntVar(&cfg.ResultLimit, "result-limit", cfg.ResultLimit, "Maximum documents returned per question (env: RESULT_LIMIT)")
	fs.DurationVar(&cfg.TranslateTimeout, "translate-timeout", cfg.TranslateTimeout, "Per-question translation timeout (env: TRANSLATE_TIMEOUT)")
	fs.DurationVar(&cfg.QueryTimeout, "query-timeout", cfg.QueryTimeout, "Per-operation store timeout (env: QUERY_TIMEOUT)")
}

func printQuery(ans *app.Answer) {
	doc := map[string]any{"filter": query.Document(ans.Query.Filter)}
	if sorts := query.SortDocument(ans.Query.Sort); sorts != nil {
		doc["sort"] = sorts
	}
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(os.Stderr, "generated query:\n%s\n", b)
}

func fail(prefix string, err error) int {
	_, _ = fmt.Fprintf(os.Stderr, "%s: %s\n", prefix, util.RedactSecrets(err.Error()))
	return 1
}

func usage(w *os.File) {
	_, _ = fmt.Fprintf(w, `askmongo: ask a MongoDB collection questions in plain English

Usage:
  askmongo <command> [flags]

Commands:
  serve    Run the web UI and JSON API
  load     Ingest a CSV file into the collection
  ask      Answer one question and print/export the results
  batch    Run a YAML file of questions through the pipeline concurrently
  version  Print the version

Examples:
  askmongo load --input products.csv
  askmongo ask "products with rating below 4.5 and more than 200 reviews"
  askmongo serve --listen :8080
  askmongo batch --questions questions.yaml --output-dir results

Environment:
  MONGO_URI        MongoDB connection string (required)
  DB_NAME          Database name (required)
  COLLECTION_NAME  Collection name (required)
  GEMINI_API_KEY   Gemini API key (required except for load)
  GEMINI_MODEL     Gemini model name (default gemini-2.0-flash)
  RESULT_LIMIT     Maximum documents returned per question (default 100)

A .env file in the working directory is loaded automatically.

`)
}
