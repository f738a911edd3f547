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

package pipeline

import (
	"context"
	"encoding/json"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/llmwatch/core"
	"github.com/poiesic/llmwatch/llm"
	"github.com/poiesic/llmwatch/store"
)

// Config holds configuration for the worker loop.
type Config struct {
	// WatchIndex is the queue index polled for work items.
	WatchIndex string

	// BatchSize bounds how many items a single cycle fetches.
	BatchSize int

	// Interval is the pause between the end of one cycle and the start of
	// the next.
	Interval time.Duration

	// RetryErrors also refetches items that already carry a failure
	// annotation. When false, failed items stay parked until the
	// annotation is cleared externally.
	RetryErrors bool

	// SortField orders each fetch ascending by the named source field.
	// Empty means backend-defined order.
	SortField string

	// PoolSize is the number of items processed concurrently within a
	// cycle. Default is runtime.NumCPU() / 2, with a minimum of 1.
	PoolSize int

	// ItemTimeout bounds the processing of a single item, provider call
	// included. Zero means no per-item deadline.
	ItemTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}

	return &Config{
		WatchIndex:  "llm-queue",
		BatchSize:   10,
		Interval:    10 * time.Second,
		PoolSize:    poolSize,
		ItemTimeout: 2 * time.Minute,
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.WatchIndex == "" {
		return ErrWatchIndexRequired
	}
	if c.BatchSize < 1 {
		return ErrInvalidBatchSize
	}
	if c.Interval <= 0 {
		return ErrInvalidInterval
	}
	if c.PoolSize < 1 {
		return ErrInvalidPoolSize
	}
	return nil
}

// Worker drives the poll loop: fetch a batch from the watch index, dispatch
// each item on a bounded pool, annotate failures in place, sleep, repeat.
type Worker struct {
	store     store.DocumentStore
	processor *Processor
	config    *Config
	pool      *ants.Pool
	logger    *slog.Logger
}

// Option configures a Worker.
type Option func(*Worker) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) error {
		if logger == nil {
			logger = slog.Default()
		}
		w.logger = logger
		return nil
	}
}

// NewWorker creates a worker draining the configured watch index.
// A nil config uses DefaultConfig().
func NewWorker(documents store.DocumentStore, providers *llm.Registry, config *Config, opts ...Option) (*Worker, error) {
	if documents == nil {
		return nil, ErrDocumentStoreRequired
	}
	if providers == nil {
		return nil, ErrRegistryRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	w := &Worker{
		store:  documents,
		config: config,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(w); optErr != nil {
			return nil, optErr
		}
	}

	processor, err := NewProcessor(documents, providers, config.WatchIndex, w.logger)
	if err != nil {
		return nil, err
	}
	w.processor = processor

	pool, err := ants.NewPool(config.PoolSize)
	if err != nil {
		return nil, err
	}
	w.pool = pool

	return w, nil
}

// Run polls until ctx is cancelled, then returns ctx.Err(). Cancellation is
// observed between cycles; items already dispatched run to completion.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("watching", "index", w.config.WatchIndex, "interval", w.config.Interval, "batch_size", w.config.BatchSize)

	for {
		w.RunCycle(ctx)

		timer := time.NewTimer(w.config.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

type itemFailure struct {
	item  *core.WorkItem
	cause error
}

// RunCycle executes a single fetch, dispatch and reconcile pass. Errors are
// handled within the cycle: fetch errors are logged and end the cycle early,
// item errors are logged and annotated on the watch entry. An empty fetch
// produces no writes and no log output.
func (w *Worker) RunCycle(ctx context.Context) {
	items, err := w.store.FetchBatch(ctx, w.config.WatchIndex, store.FetchOptions{
		Size:           w.config.BatchSize,
		IncludeErrored: w.config.RetryErrors,
		SortField:      w.config.SortField,
	})
	if err != nil {
		w.logger.Error("error fetching batch", "index", w.config.WatchIndex, "err", err)
		return
	}
	if len(items) == 0 {
		return
	}

	var (
		mu       sync.Mutex
		failures []itemFailure
		wg       sync.WaitGroup
	)

	record := func(item *core.WorkItem, cause error) {
		w.logger.Error("error processing item", "id", item.ID, "err", cause)
		mu.Lock()
		failures = append(failures, itemFailure{item: item, cause: cause})
		mu.Unlock()
	}

	for _, item := range items {
		wg.Add(1)
		err := w.pool.Submit(func() {
			defer wg.Done()
			if procErr := w.processItem(ctx, item); procErr != nil {
				record(item, procErr)
			}
		})
		if err != nil {
			wg.Done()
			record(item, err)
		}
	}
	wg.Wait()

	for _, f := range failures {
		w.annotateFailure(ctx, f.item, f.cause)
	}

	w.logger.Info("cycle complete",
		"index", w.config.WatchIndex,
		"fetched", len(items),
		"succeeded", len(items)-len(failures),
		"failed", len(failures))
}

func (w *Worker) processItem(ctx context.Context, item *core.WorkItem) error {
	if w.config.ItemTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.config.ItemTimeout)
		defer cancel()
	}
	return w.processor.Process(ctx, item)
}

// annotateFailure rewrites the pre-processing snapshot of a failed item with
// the failure message stored under the control block, keeping the item
// visible in the watch index. Annotation write errors are logged and
// dropped; the original entry survives either way.
func (w *Worker) annotateFailure(ctx context.Context, item *core.WorkItem, cause error) {
	var snapshot map[string]any
	if err := json.Unmarshal(item.Raw, &snapshot); err != nil {
		w.logger.Error("error decoding failure snapshot", "id", item.ID, "err", err)
		return
	}

	control, ok := snapshot[core.ControlField].(map[string]any)
	if !ok {
		control = map[string]any{}
		snapshot[core.ControlField] = control
	}
	control["error"] = cause.Error()

	if err := w.store.Upsert(ctx, w.config.WatchIndex, item.ID, snapshot); err != nil {
		w.logger.Error("error writing failure annotation", "id", item.ID, "err", err)
	}
}

// Release releases the worker pool.
// The worker should not be used after calling Release.
func (w *Worker) Release() {
	if w.pool != nil {
		w.pool.Release()
	}
}
