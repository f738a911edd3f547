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

// Package llmwatch drains a watch index of LLM work items: each queued
// document names a provider, a model and a prompt template, and the worker
// loop renders the prompt, invokes the backend, merges the structured result
// over the source document and moves it to its destination index.
package llmwatch

import (
	"io"
	"log/slog"

	"github.com/poiesic/llmwatch/core"
	"github.com/poiesic/llmwatch/llm"
	"github.com/poiesic/llmwatch/llm/ollama"
	"github.com/poiesic/llmwatch/llm/openai"
	"github.com/poiesic/llmwatch/pipeline"
	"github.com/poiesic/llmwatch/store"
	"github.com/poiesic/llmwatch/store/elastic"
	"github.com/poiesic/llmwatch/store/local"
)

// Watcher bundles a document store and the provider registry behind a single
// handle. It is the assembly point: backends are constructed once from the
// LLM configuration, and workers created through the watcher share them.
type Watcher struct {
	store    store.DocumentStore
	closer   io.Closer
	registry *llm.Registry
	logger   *slog.Logger
}

// WatcherOption configures a Watcher.
type WatcherOption func(*watcherOptions)

type watcherOptions struct {
	llmConfig *llm.Config
	logger    *slog.Logger
}

// WithLLMConfig sets the backend configuration.
// At least one backend must be configured.
func WithLLMConfig(config *llm.Config) WatcherOption {
	return func(o *watcherOptions) {
		o.llmConfig = config
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) WatcherOption {
	return func(o *watcherOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func applyOptions(opts []WatcherOption) *watcherOptions {
	options := &watcherOptions{
		llmConfig: llm.NewConfig(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

// NewElasticWatcher creates a watcher backed by an Elasticsearch-compatible
// server. Username and password may be empty for unauthenticated servers.
func NewElasticWatcher(baseURL, username, password string, opts ...WatcherOption) (*Watcher, error) {
	options := applyOptions(opts)

	client, err := elastic.NewClient(baseURL, username, password, elastic.WithLogger(options.logger))
	if err != nil {
		return nil, err
	}

	return newWatcher(client, nil, options)
}

// NewLocalWatcher creates a watcher backed by an embedded Badger store at
// filePath. Intended for single-process deployments and development setups
// that have no Elasticsearch at hand.
func NewLocalWatcher(filePath string, opts ...WatcherOption) (*Watcher, error) {
	options := applyOptions(opts)

	documents, err := local.Open(filePath, false)
	if err != nil {
		return nil, err
	}

	return newWatcher(documents, documents, options)
}

func newWatcher(documents store.DocumentStore, closer io.Closer, options *watcherOptions) (*Watcher, error) {
	registry, err := NewRegistry(options.llmConfig)
	if err != nil {
		if closer != nil {
			closer.Close()
		}
		return nil, err
	}

	return &Watcher{
		store:    documents,
		closer:   closer,
		registry: registry,
		logger:   options.logger,
	}, nil
}

// NewRegistry builds a provider registry holding a generator for every
// backend the configuration enables.
func NewRegistry(config *llm.Config) (*llm.Registry, error) {
	if config == nil {
		config = llm.NewConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	registry := llm.NewRegistry()

	if config.OllamaHost != "" {
		generator, err := ollama.NewGenerator(config)
		if err != nil {
			return nil, err
		}
		registry.Register(core.ProviderOllama, generator)
	}

	if config.OpenAIKey != "" {
		generator, err := openai.NewGenerator(config)
		if err != nil {
			return nil, err
		}
		registry.Register(core.ProviderOpenAI, generator)
	}

	return registry, nil
}

// Store returns the underlying document store.
func (w *Watcher) Store() store.DocumentStore {
	return w.store
}

// Registry returns the provider registry.
func (w *Watcher) Registry() *llm.Registry {
	return w.registry
}

// NewWorker creates a worker draining this watcher's store.
// A nil config uses pipeline.DefaultConfig().
func (w *Watcher) NewWorker(config *pipeline.Config, opts ...pipeline.Option) (*pipeline.Worker, error) {
	opts = append([]pipeline.Option{pipeline.WithLogger(w.logger)}, opts...)
	return pipeline.NewWorker(w.store, w.registry, config, opts...)
}

// Close releases the underlying store. Watchers over remote stores hold no
// local resources and Close is a no-op for them.
func (w *Watcher) Close() error {
	if w.closer == nil {
		return nil
	}
	if err := w.closer.Close(); err != nil {
		w.logger.Error("error closing document store", "err", err)
		return err
	}
	return nil
}
