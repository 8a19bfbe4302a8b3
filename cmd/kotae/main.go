// Package main is the Kotae CLI entry point.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/cli"
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/generation"
	"github.com/hyperjump/kotae/internal/indexer"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/server"
	"github.com/hyperjump/kotae/internal/session"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/pkg/utils"
)

var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/kotae/config.yaml"
	defaultQuestion   = "What is this document about?"
)

// loadConfig loads config from path. When path is the default, config.yaml in the
// current directory wins if it exists, and a missing default file falls back to
// built-in defaults. Returns the config and the path that was loaded ("" for defaults).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
		if _, statErr := os.Stat(path); errors.Is(statErr, fs.ErrNotExist) {
			return config.Default(), "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	// A missing .env is fine; variables may come from the real environment.
	_ = godotenv.Load()

	args := os.Args[1:]
	command := "ask"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		command, args = args[0], args[1:]
	}
	switch command {
	case "ask":
		os.Exit(runAsk(args, os.Stdout, os.Stderr))
	case "chat":
		os.Exit(runChat(args, os.Stdin, os.Stdout, os.Stderr))
	case "serve", "server":
		os.Exit(runServe(args, os.Stderr))
	case "version", "--version", "-v":
		fmt.Printf("kotae version %s\n", version)
	case "help", "--help", "-h":
		printUsage(os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage(os.Stderr)
		os.Exit(1)
	}
}

// options are the flags shared by every subcommand.
type options struct {
	configPath string
	document   string
	debug      bool
	output     string
}

func newFlagSet(name string, stderr io.Writer) (*flag.FlagSet, *options) {
	flags := flag.NewFlagSet(name, flag.ContinueOnError)
	flags.SetOutput(stderr)
	opts := &options{}
	flags.StringVar(&opts.configPath, "config", defaultConfigPath, "config file path")
	flags.StringVar(&opts.document, "document", "", "document to answer from (overrides document.path)")
	flags.BoolVar(&opts.debug, "debug", false, "enable debug logging")
	flags.StringVar(&opts.output, "output", "text", "output format: text or json")
	return flags, opts
}

// valueFlags names the flags that consume the following argument.
var valueFlags = map[string]bool{"config": true, "document": true, "output": true}

// reorderArgs moves flags (and their values) ahead of the positional words so
// that flag.Parse sees them wherever they appear. The flag package stops at the
// first non-flag argument. Positional words keep their order; everything after
// "--" is positional.
func reorderArgs(args []string) []string {
	flagArgs := make([]string, 0, len(args))
	positional := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		a := args[i]
		if a == "--" {
			positional = append(positional, args[i+1:]...)
			break
		}
		if len(a) < 2 || a[0] != '-' {
			positional = append(positional, a)
			continue
		}
		flagArgs = append(flagArgs, a)
		name := strings.TrimLeft(a, "-")
		if strings.Contains(name, "=") {
			continue
		}
		if valueFlags[name] && i+1 < len(args) {
			i++
			flagArgs = append(flagArgs, args[i])
		}
	}
	return append(flagArgs, positional...)
}

// buildQuestion joins positional args so multi-word questions work with or
// without shell quoting. No args yields the default self-test question.
func buildQuestion(args []string) string {
	q := strings.TrimSpace(strings.Join(args, " "))
	if q == "" {
		return defaultQuestion
	}
	return q
}

// Components holds the long-lived pieces shared by every session.
type Components struct {
	Config     *config.Config
	Logger     *zap.Logger
	Embedder   embedding.Embedder
	Generator  generation.Generator
	Index      *session.SharedIndex
	Transcript storage.Transcript
}

// Close releases provider and storage resources.
func (c *Components) Close() {
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Transcript != nil {
		_ = c.Transcript.Close()
	}
}

// setup loads config, builds the logger, and checks the credential. Nothing is
// read from the document yet.
func setup(opts *options, stderr io.Writer) (*config.Config, *zap.Logger, string, error) {
	cfg, resolved, err := loadConfig(opts.configPath)
	if err != nil {
		return nil, nil, "", fmt.Errorf("failed to load config: %w", err)
	}
	if opts.document != "" {
		cfg.Document.Path = opts.document
	}
	debugMode := cfg.Debug || opts.debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		return nil, nil, "", fmt.Errorf("failed to create logger: %w", err)
	}
	logger.Debug("config loaded",
		zap.String("config_path", resolved),
		zap.String("document", cfg.Document.Path),
		zap.Bool("debug", debugMode))

	apiKey, err := cfg.Credential()
	if err != nil {
		fmt.Fprintf(stderr, "Set %s in the environment or a .env file, or switch providers in the config.\n", cfg.OpenAI.APIKeyEnv)
		return nil, nil, "", err
	}
	return cfg, logger, apiKey, nil
}

func initializeComponents(cfg *config.Config, apiKey string, logger *zap.Logger) (*Components, error) {
	embedder, err := embedding.New(cfg, apiKey, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedding provider: %w", err)
	}
	generator, err := generation.New(cfg, apiKey, logger)
	if err != nil {
		_ = embedder.Close()
		return nil, fmt.Errorf("failed to initialize generation provider: %w", err)
	}
	chunker, err := indexer.NewChunker(cfg.Chunking.Size, cfg.Chunking.OverlapOrDefault())
	if err != nil {
		_ = embedder.Close()
		return nil, err
	}
	idx := indexer.NewIndexer(
		extract.NewExtractor(extract.WithLogger(logger)),
		chunker,
		embedder,
		indexer.WithLogger(logger),
		indexer.WithBatchSize(cfg.Embedding.BatchSize),
		indexer.WithConcurrency(cfg.Embedding.Concurrency),
	)

	c := &Components{
		Config:    cfg,
		Logger:    logger,
		Embedder:  embedder,
		Generator: generator,
		Index:     session.FromIndexer(idx, cfg.Document.Path),
	}
	if cfg.Storage.DatabasePath != "" {
		transcript, err := storage.NewSQLiteTranscript(cfg.Storage.DatabasePath)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to initialize transcript storage: %w", err)
		}
		c.Transcript = transcript
	}
	return c, nil
}

// sessionOptions maps config onto session options.
func sessionOptions(cfg *config.Config) []session.Option {
	opts := []session.Option{
		session.WithTopK(cfg.Retrieval.TopK),
		session.WithMaxTurns(cfg.Memory.MaxTurns),
		session.WithCondenseQuestion(cfg.Retrieval.CondenseQuestion),
	}
	// 0 in the config means no score gate.
	if cfg.Retrieval.MinScore != 0 {
		opts = append(opts, session.WithMinScore(cfg.Retrieval.MinScore))
	}
	return opts
}

// NewSession creates a session over the shared index, registering it in the
// transcript when one is configured. An empty id gets a random one.
func (c *Components) NewSession(ctx context.Context, id string) (*session.Session, error) {
	if id == "" {
		id = uuid.NewString()
	}
	opts := append(sessionOptions(c.Config), session.WithID(id), session.WithLogger(c.Logger))
	if c.Transcript != nil {
		rec := &storage.SessionRecord{
			ID:         id,
			DocumentID: extract.DocumentID(c.Config.Document.Path),
			Source:     c.Config.Document.Path,
		}
		if err := c.Transcript.CreateSession(ctx, rec); err != nil {
			return nil, fmt.Errorf("failed to record session: %w", err)
		}
		opts = append(opts, session.WithRecorder(c.Transcript))
	}
	return session.New(c.Index, c.Embedder, c.Generator, opts...), nil
}

// start parses flags and builds components for a subcommand. It returns the
// remaining positional args.
func start(name string, args []string, stderr io.Writer) (*Components, *options, []string, int) {
	flags, opts := newFlagSet(name, stderr)
	if err := flags.Parse(reorderArgs(args)); err != nil {
		return nil, nil, nil, 2
	}
	cfg, logger, apiKey, err := setup(opts, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return nil, nil, nil, 1
	}
	components, err := initializeComponents(cfg, apiKey, logger)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		_ = logger.Sync()
		return nil, nil, nil, 1
	}
	return components, opts, flags.Args(), 0
}

func runAsk(args []string, stdout, stderr io.Writer) int {
	components, opts, rest, code := start("ask", args, stderr)
	if components == nil {
		return code
	}
	defer components.Close()
	defer components.Logger.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	sess, err := components.NewSession(ctx, "")
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 1
	}
	answer, err := sess.Ask(ctx, buildQuestion(rest))
	if err != nil {
		// A provider failure is still an answer: the run completed and
		// nothing was recorded.
		if models.IsRecoverable(err) {
			fmt.Fprintf(stdout, "%s%v\n", session.ErrorPrefix, err)
			return 0
		}
		fmt.Fprintf(stderr, "Failed to answer: %v\n", err)
		return 1
	}
	if err := cli.WriteAnswer(stdout, answer, cli.ParseOutputFormat(opts.output)); err != nil {
		fmt.Fprintf(stderr, "Output failed: %v\n", err)
		return 1
	}
	return 0
}

func runChat(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	components, opts, _, code := start("chat", args, stderr)
	if components == nil {
		return code
	}
	defer components.Close()
	defer components.Logger.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	sess, err := components.NewSession(ctx, "")
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 1
	}
	if err := sess.Initialize(ctx); err != nil {
		fmt.Fprintf(stderr, "Failed to load %s: %v\n", components.Config.Document.Path, err)
		return 1
	}
	format := cli.ParseOutputFormat(opts.output)
	fmt.Fprintf(stdout, "Ask about %s. /history shows the conversation, /quit exits.\n", filepath.Base(components.Config.Document.Path))

	scanner := bufio.NewScanner(stdin)
	for {
		fmt.Fprint(stdout, "> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return 0
		case "/history":
			cli.WriteHistory(stdout, sess.History())
			continue
		}
		answer, err := sess.Ask(ctx, line)
		switch {
		case err == nil:
			if err := cli.WriteAnswer(stdout, answer, format); err != nil {
				fmt.Fprintf(stderr, "Output failed: %v\n", err)
				return 1
			}
		case models.IsRecoverable(err):
			fmt.Fprintf(stdout, "%s%v\n", session.ErrorPrefix, err)
		default:
			fmt.Fprintf(stderr, "Failed to answer: %v\n", err)
			return 1
		}
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintf(stderr, "Failed to read input: %v\n", err)
		return 1
	}
	return 0
}

func runServe(args []string, stderr io.Writer) int {
	components, _, _, code := start("serve", args, stderr)
	if components == nil {
		return code
	}
	defer components.Close()
	defer components.Logger.Sync()
	logger := components.Logger

	manager := session.NewManager(components.NewSession)
	srv := server.NewServer(manager, components.Index, components.Transcript, components.Config, logger)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()
	go func() {
		if _, err := components.Index.Index(context.Background()); err != nil {
			logger.Warn("Index warm-up failed; first question will retry", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sigChan:
	case err := <-errCh:
		logger.Error("Server failed", zap.Error(err))
		return 1
	}

	logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
	return 0
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `kotae - Ask questions about a document

Usage:
  kotae [ask] [flags] [question]   Answer one question (default: "What is this document about?")
  kotae chat [flags]               Interactive conversation on stdin
  kotae serve [flags]              Start the HTTP server
  kotae version                    Show version
  kotae help                       Show this help

Flags:
  --config string     Config file path (default: /usr/local/etc/kotae/config.yaml, or ./config.yaml if present)
  --document string   Document to answer from (overrides document.path)
  --debug             Enable debug logging
  --output string     Output format: text or json (default: text)

Environment:
  OPENAI_API_KEY      Required when a provider is openai (name set by openai.api_key_env).
                      Read from the environment or a .env file in the working directory.

Examples:
  kotae
  kotae ask --document manual.pdf "How are fatigue scores calculated?"
  kotae ask --output json what does page 3 say
  kotae chat --document notes.txt
  kotae serve --config ./config.yaml`)
}
