// Command rsg generates random sentences from a Markov model of its input text.
//
// Usage:
//
//	rsg [flags] [file ...]
//
// Each file is fed into the model in order; "-" reads standard input. With no
// files and no model to load, standard input is read.
package main

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/CTAG07/rsg/pkg/markov"
	"github.com/CTAG07/rsg/pkg/templating"
	"github.com/natefinch/atomic"
)

// errUsage marks command-line errors the flag package has already reported.
var errUsage = errors.New("usage error")

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "rsg: %v\n", err)
		os.Exit(1)
	}
}

// parseFlags builds the effective configuration: defaults, then the config
// file, then every flag explicitly set on the command line. Problems that
// still leave a usable configuration are returned as warnings.
func parseFlags(args []string, stderr io.Writer) (*Config, []error, error) {
	fs := flag.NewFlagSet("rsg", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		configPath   = fs.String("config", "", "path to a JSON or YAML config file, created with defaults if missing")
		minWords     = fs.Int("min", markov.DefaultMinWords, "minimum number of words to generate")
		maxWords     = fs.Int("max", 0, "maximum number of words to generate (default 1.2 times -min)")
		loadPath     = fs.String("load", "", "model file to restore after feeding sources")
		savePath     = fs.String("save", "", "file to save the model to")
		dbPath       = fs.String("db", "", "SQLite database holding named models")
		modelName    = fs.String("model", "default", "name of the model in the database")
		replace      = fs.Bool("replace", false, "replace the fed model with the loaded one instead of merging")
		templatePath = fs.String("template", "", "render this template instead of printing one string")
		quiet        = fs.Bool("quiet", false, "only log errors and skip generation")
		logLevel     = fs.String("log-level", "info", "log level: debug, info, warn or error")
		version      = fs.Bool("version", false, "print version information and exit")
	)
	if err := fs.Parse(args); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", errUsage, err)
	}
	if *version {
		fmt.Fprintf(stderr, "rsg %s (commit %s, built %s)\n", Version, Commit, BuildDate)
		return nil, nil, flag.ErrHelp
	}

	var warnings []error
	config := DefaultConfig()
	if *configPath != "" {
		var err error
		config, err = LoadConfig(*configPath)
		switch {
		case errors.Is(err, ErrConfigNotWritten):
			warnings = append(warnings, err)
		case err != nil:
			return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
		}
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "min":
			config.MinWords = minWords
		case "max":
			config.MaxWords = maxWords
		case "load":
			config.LoadPath = *loadPath
		case "save":
			config.SavePath = *savePath
		case "db":
			config.DatabasePath = *dbPath
		case "model":
			config.ModelName = *modelName
		case "replace":
			config.Replace = *replace
		case "template":
			config.TemplatePath = *templatePath
		case "quiet":
			config.Quiet = *quiet
		case "log-level":
			config.LogLevel = *logLevel
		}
	})
	if fs.NArg() > 0 {
		config.Sources = fs.Args()
	}
	if len(config.Sources) == 0 && config.LoadPath == "" && config.DatabasePath == "" {
		config.Sources = []string{"-"}
	}
	return config, warnings, nil
}

func newLogger(config *Config, w io.Writer) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(config.LogLevel) {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	if config.Quiet {
		logLevel = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: logLevel}))
}

// run executes one invocation: feed sources, restore and sync persisted
// models, save, then generate.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	config, warnings, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	logger := newLogger(config, stderr)
	for _, warning := range warnings {
		logger.Warn("Continuing with default configuration", "error", warning)
	}

	model := markov.NewModel(markov.NewScanner(markov.WithMaxLineLength(config.MaxLineLength)))
	model.SetLogger(logger)

	for _, source := range config.Sources {
		if err = feedSource(ctx, model, source, stdin); err != nil {
			return err
		}
	}

	if config.LoadPath != "" {
		if err = restoreFile(ctx, model, config.LoadPath, config.Replace); err != nil {
			return err
		}
		logger.Info("Model restored", "path", config.LoadPath, "replace", config.Replace)
	}

	if config.DatabasePath != "" {
		if err = syncDatabase(ctx, logger, model, config); err != nil {
			return err
		}
	}

	stats := model.Stats()
	logger.Info("Model ready",
		"keys", stats.Keys,
		"links", stats.Links,
		"total_frequency", stats.TotalFrequency,
		"vocabulary", stats.Vocabulary)

	if config.SavePath != "" {
		var buf bytes.Buffer
		if err = model.Save(ctx, &buf); err != nil {
			return fmt.Errorf("failed to serialize model: %w", err)
		}
		if err = atomic.WriteFile(config.SavePath, &buf); err != nil {
			return fmt.Errorf("failed to write model file: %w", err)
		}
		logger.Info("Model saved", "path", config.SavePath)
	}

	if config.Quiet {
		return nil
	}

	if config.TemplatePath != "" {
		renderer := templating.NewRenderer(logger, model, config.Templates)
		if err = renderer.ParseFiles(config.TemplatePath); err != nil {
			return err
		}
		return renderer.Execute(stdout, filepath.Base(config.TemplatePath), stats)
	}

	var opts []markov.GenerateOption
	if config.MinWords != nil {
		opts = append(opts, markov.WithMinWords(*config.MinWords))
	}
	if config.MaxWords != nil {
		opts = append(opts, markov.WithMaxWords(*config.MaxWords))
	}
	out, err := model.Generate(ctx, opts...)
	if err != nil {
		return fmt.Errorf("failed to generate text: %w", err)
	}
	_, err = fmt.Fprintln(stdout, out)
	return err
}

func feedSource(ctx context.Context, model *markov.Model, source string, stdin io.Reader) error {
	if source == "-" {
		if err := model.Feed(ctx, stdin); err != nil {
			return fmt.Errorf("failed to feed standard input: %w", err)
		}
		return nil
	}
	f, err := os.Open(source)
	if err != nil {
		return fmt.Errorf("failed to open source: %w", err)
	}
	defer f.Close()
	if err = model.Feed(ctx, f); err != nil {
		return fmt.Errorf("failed to feed %q: %w", source, err)
	}
	return nil
}

func restoreFile(ctx context.Context, model *markov.Model, path string, replace bool) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open model file: %w", err)
	}
	defer f.Close()
	if err = model.Restore(ctx, f, replace); err != nil {
		return fmt.Errorf("failed to restore %q: %w", path, err)
	}
	return nil
}

// syncDatabase merges the named model from the database into model, then
// writes the combined model back under the same name.
func syncDatabase(ctx context.Context, logger *slog.Logger, model *markov.Model, config *Config) error {
	db, err := initDB(config.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database", "error", err)
		}
	}()

	if err = markov.SetupSchema(db); err != nil {
		return fmt.Errorf("failed to setup markov schema: %w", err)
	}
	store, err := markov.NewStore(db)
	if err != nil {
		return err
	}
	defer store.Close()
	store.SetLogger(logger)

	exported, err := store.Load(ctx, config.ModelName)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		logger.Info("Model not found in database, it will be created", "model", config.ModelName)
	case err != nil:
		return err
	default:
		if err = model.Import(ctx, exported, config.Replace); err != nil {
			return err
		}
	}

	if model.Len() == 0 {
		return nil
	}
	return store.Save(ctx, config.ModelName, model)
}
