// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/llmwatch"
	"github.com/poiesic/llmwatch/core"
	"github.com/poiesic/llmwatch/llm"
	"github.com/poiesic/llmwatch/pipeline"
	"github.com/poiesic/llmwatch/store"
	"github.com/poiesic/llmwatch/store/elastic"
	"github.com/poiesic/llmwatch/store/local"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "llmwatch",
		Usage: "Drain a watch index of LLM work items",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "watch",
				Usage:  "Poll the watch index and process queued documents",
				Action: watchCommand,
				Flags: append(storeFlags(),
					&cli.StringFlag{
						Name:  "config",
						Usage: "Path to a YAML config file (flags take precedence)",
					},
					&cli.StringFlag{
						Name:    "ollama-host",
						Usage:   "Base URL of an Ollama-compatible server",
						EnvVars: []string{"OLLAMA_API_URL"},
					},
					&cli.StringFlag{
						Name:    "openai-key",
						Usage:   "API key for the OpenAI-compatible backend",
						EnvVars: []string{"OPENAI_API_KEY"},
					},
					&cli.StringFlag{
						Name:    "openai-host",
						Usage:   "Base URL override for OpenAI-compatible backends",
						EnvVars: []string{"OPENAI_API_BASE"},
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of documents to fetch per cycle",
						Value: 10,
					},
					&cli.DurationFlag{
						Name:  "interval",
						Usage: "Pause between poll cycles",
						Value: 10 * time.Second,
					},
					&cli.BoolFlag{
						Name:  "retry-errors",
						Usage: "Also refetch documents already annotated with an error",
					},
					&cli.StringFlag{
						Name:  "sort-field",
						Usage: "Source field to sort each fetch by, ascending",
					},
					&cli.IntFlag{
						Name:  "pool-size",
						Usage: "Documents processed concurrently (0 = half the CPUs)",
					},
					&cli.DurationFlag{
						Name:  "item-timeout",
						Usage: "Deadline for processing a single document",
						Value: 2 * time.Minute,
					},
				),
			},
			{
				Name:      "seed",
				Usage:     "Queue JSON documents as work items on the watch index",
				ArgsUsage: "[file]",
				Action:    seedCommand,
				Flags: append(storeFlags(),
					&cli.StringFlag{
						Name:     "original-index",
						Usage:    "Destination index for the enriched documents",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "provider",
						Usage: "LLM backend variant (ollama, openai)",
						Value: "ollama",
					},
					&cli.StringFlag{
						Name:     "model",
						Usage:    "Model identifier for the backend",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "prompt",
						Usage:    "Prompt template rendered against each document",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "format",
						Usage: "JSON schema object describing the expected output",
					},
				),
			},
		},
	}
}

// storeFlags are shared by every command that talks to a document store.
// Exactly one of --es-url and --local-db must be provided.
func storeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "es-url",
			Usage:   "Base URL of the Elasticsearch-compatible server",
			EnvVars: []string{"ELASTICSEARCH_URL"},
		},
		&cli.StringFlag{
			Name:    "es-username",
			Usage:   "Basic auth username for Elasticsearch",
			EnvVars: []string{"ELASTICSEARCH_USERNAME"},
		},
		&cli.StringFlag{
			Name:    "es-password",
			Usage:   "Basic auth password for Elasticsearch",
			EnvVars: []string{"ELASTICSEARCH_PASSWORD"},
		},
		&cli.StringFlag{
			Name:  "local-db",
			Usage: "Path to an embedded BadgerDB store (alternative to --es-url)",
		},
		&cli.StringFlag{
			Name:    "index",
			Aliases: []string{"i"},
			Usage:   "Watch index holding queued work items",
			Value:   "llm-queue",
			EnvVars: []string{"WATCH_INDEX"},
		},
	}
}

// settings is the merged view of flags, environment and config file for the
// watch command.
type settings struct {
	ESURL      string
	ESUsername string
	ESPassword string
	LocalDB    string
	Index      string

	OllamaHost string
	OpenAIKey  string
	OpenAIHost string

	BatchSize   int
	Interval    time.Duration
	RetryErrors bool
	SortField   string
	PoolSize    int
	ItemTimeout time.Duration
}

func resolveSettings(c *cli.Context) (*settings, error) {
	file := &fileConfig{}
	if path := c.String("config"); path != "" {
		loaded, err := loadFileConfig(path)
		if err != nil {
			return nil, err
		}
		file = loaded
	}

	fileInterval, err := file.interval()
	if err != nil {
		return nil, err
	}
	fileItemTimeout, err := file.itemTimeout()
	if err != nil {
		return nil, err
	}

	s := &settings{
		ESURL:      stringSetting(c, "es-url", file.Elasticsearch.URL),
		ESUsername: stringSetting(c, "es-username", file.Elasticsearch.Username),
		ESPassword: stringSetting(c, "es-password", file.Elasticsearch.Password),
		LocalDB:    stringSetting(c, "local-db", file.LocalDB),
		Index:      stringSetting(c, "index", file.WatchIndex),

		OllamaHost: stringSetting(c, "ollama-host", file.Ollama.Host),
		OpenAIKey:  stringSetting(c, "openai-key", file.OpenAI.Key),
		OpenAIHost: stringSetting(c, "openai-host", file.OpenAI.Host),

		BatchSize:   intSetting(c, "batch-size", file.BatchSize),
		Interval:    durationSetting(c, "interval", fileInterval),
		RetryErrors: boolSetting(c, "retry-errors", file.RetryErrors),
		SortField:   stringSetting(c, "sort-field", file.SortField),
		PoolSize:    intSetting(c, "pool-size", file.PoolSize),
		ItemTimeout: durationSetting(c, "item-timeout", fileItemTimeout),
	}

	if s.ESURL == "" && s.LocalDB == "" {
		return nil, errors.New("either --es-url or --local-db is required")
	}
	if s.ESURL != "" && s.LocalDB != "" {
		return nil, errors.New("--es-url and --local-db are mutually exclusive")
	}

	return s, nil
}

// stringSetting resolves a string value: explicit flag or environment first,
// then the config file, then the flag default.
func stringSetting(c *cli.Context, name, fileValue string) string {
	if c.IsSet(name) {
		return c.String(name)
	}
	if fileValue != "" {
		return fileValue
	}
	return c.String(name)
}

func intSetting(c *cli.Context, name string, fileValue int) int {
	if c.IsSet(name) || fileValue == 0 {
		return c.Int(name)
	}
	return fileValue
}

func durationSetting(c *cli.Context, name string, fileValue time.Duration) time.Duration {
	if c.IsSet(name) || fileValue == 0 {
		return c.Duration(name)
	}
	return fileValue
}

func boolSetting(c *cli.Context, name string, fileValue bool) bool {
	if c.IsSet(name) {
		return c.Bool(name)
	}
	return fileValue
}

func watchCommand(c *cli.Context) error {
	s, err := resolveSettings(c)
	if err != nil {
		return err
	}

	llmConfig := llm.NewConfig(
		llm.WithOllamaHost(s.OllamaHost),
		llm.WithOpenAIKey(s.OpenAIKey),
		llm.WithOpenAIHost(s.OpenAIHost),
	)
	if err := llmConfig.Validate(); err != nil {
		return fmt.Errorf("invalid LLM configuration: %w", err)
	}

	var watcher *llmwatch.Watcher
	if s.ESURL != "" {
		watcher, err = llmwatch.NewElasticWatcher(s.ESURL, s.ESUsername, s.ESPassword,
			llmwatch.WithLLMConfig(llmConfig))
	} else {
		watcher, err = llmwatch.NewLocalWatcher(s.LocalDB,
			llmwatch.WithLLMConfig(llmConfig))
	}
	if err != nil {
		return fmt.Errorf("failed to open document store: %w", err)
	}
	defer watcher.Close()

	workerConfig := pipeline.DefaultConfig()
	workerConfig.WatchIndex = s.Index
	workerConfig.BatchSize = s.BatchSize
	workerConfig.Interval = s.Interval
	workerConfig.RetryErrors = s.RetryErrors
	workerConfig.SortField = s.SortField
	workerConfig.ItemTimeout = s.ItemTimeout
	if s.PoolSize > 0 {
		workerConfig.PoolSize = s.PoolSize
	}

	worker, err := watcher.NewWorker(workerConfig)
	if err != nil {
		return fmt.Errorf("invalid worker configuration: %w", err)
	}
	defer worker.Release()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := worker.Run(ctx); !errors.Is(err, context.Canceled) {
		return err
	}

	slog.Info("shutting down")
	return nil
}

func seedCommand(c *cli.Context) error {
	s := &settings{
		ESURL:      c.String("es-url"),
		ESUsername: c.String("es-username"),
		ESPassword: c.String("es-password"),
		LocalDB:    c.String("local-db"),
		Index:      c.String("index"),
	}
	if s.ESURL == "" && s.LocalDB == "" {
		return errors.New("either --es-url or --local-db is required")
	}
	if s.ESURL != "" && s.LocalDB != "" {
		return errors.New("--es-url and --local-db are mutually exclusive")
	}

	var format map[string]any
	if raw := c.String("format"); raw != "" {
		parsed, err := parseFormat(raw)
		if err != nil {
			return err
		}
		format = parsed
	}

	control, err := buildControl(c.String("original-index"), c.String("provider"),
		c.String("model"), c.String("prompt"), format)
	if err != nil {
		return err
	}

	payload, err := readPayload(c.Args().First())
	if err != nil {
		return err
	}
	docs, err := decodeDocuments(payload)
	if err != nil {
		return err
	}

	documents, closer, err := openStore(s)
	if err != nil {
		return fmt.Errorf("failed to open document store: %w", err)
	}
	if closer != nil {
		defer closer.Close()
	}

	ctx := context.Background()
	for _, doc := range docs {
		id := newDocumentID()
		doc[core.ControlField] = control
		if err := documents.Upsert(ctx, s.Index, id, doc); err != nil {
			return fmt.Errorf("failed to queue document %s: %w", id, err)
		}
		slog.Debug("queued document", "index", s.Index, "id", id)
	}

	slog.Info("seeding complete", "index", s.Index, "count", len(docs))
	return nil
}

func openStore(s *settings) (store.DocumentStore, io.Closer, error) {
	if s.ESURL != "" {
		client, err := elastic.NewClient(s.ESURL, s.ESUsername, s.ESPassword)
		if err != nil {
			return nil, nil, err
		}
		return client, nil, nil
	}

	documents, err := local.Open(s.LocalDB, false)
	if err != nil {
		return nil, nil, err
	}
	return documents, documents, nil
}

// readPayload reads the documents to queue from the given file, or from
// stdin when the argument is empty or "-".
func readPayload(path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	// Map string to slog.Level
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	// Configure slog with the specified level
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
