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
	"fmt"
	"log/slog"

	"github.com/poiesic/llmwatch/core"
	"github.com/poiesic/llmwatch/llm"
	"github.com/poiesic/llmwatch/prompt"
	"github.com/poiesic/llmwatch/store"
)

// Processor runs a single work item through its full lifecycle: parse the
// control block, render the prompt against the source document, invoke the
// selected provider, shallow-merge the structured result over the source,
// write the merged document to its destination index, and finally delete
// the watch entry.
//
// The watch entry is deleted only after the destination write succeeded, so
// an error at any earlier step leaves the item in the queue. Processor never
// writes failure annotations; that belongs to the caller, which still holds
// the pre-processing snapshot.
type Processor struct {
	store      store.DocumentStore
	providers  *llm.Registry
	watchIndex string
	logger     *slog.Logger
}

// NewProcessor creates a processor draining watchIndex.
func NewProcessor(documents store.DocumentStore, providers *llm.Registry, watchIndex string, logger *slog.Logger) (*Processor, error) {
	if documents == nil {
		return nil, ErrDocumentStoreRequired
	}
	if providers == nil {
		return nil, ErrRegistryRequired
	}
	if watchIndex == "" {
		return nil, ErrWatchIndexRequired
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Processor{
		store:      documents,
		providers:  providers,
		watchIndex: watchIndex,
		logger:     logger,
	}, nil
}

// Process handles one work item. A nil return means the destination document
// was written and the watch entry removed. A non-nil return means the watch
// entry is still present and the destination index was not touched, except
// when the delete itself failed, in which case both documents exist until a
// later cycle reprocesses the item.
func (p *Processor) Process(ctx context.Context, item *core.WorkItem) error {
	control, err := core.ParseControl(item.Source)
	if err != nil {
		return err
	}

	rendered, err := prompt.Render(control.Prompt, item.Source)
	if err != nil {
		return fmt.Errorf("rendering prompt for %s: %w", item.ID, err)
	}

	generator, err := p.providers.Generator(control.Provider)
	if err != nil {
		return err
	}

	p.logger.Debug("generating", "id", item.ID, "provider", control.Provider.String(), "model", control.Model)
	result, err := generator.Generate(ctx, control.Model, rendered, control.Format)
	if err != nil {
		return fmt.Errorf("generating output for %s: %w", item.ID, err)
	}

	merged := core.MergeResult(item.Source, result)
	if err := p.store.Upsert(ctx, control.OriginalIndex, item.ID, merged); err != nil {
		return fmt.Errorf("writing %s to %s: %w", item.ID, control.OriginalIndex, err)
	}

	return p.store.Delete(ctx, p.watchIndex, item.ID)
}
