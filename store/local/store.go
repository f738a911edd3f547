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


// Package local implements store.DocumentStore on an embedded BadgerDB.
//
// Documents are stored as raw JSON under doc/{index}/{id} keys. The filter,
// sort and size options are applied during prefix iteration, so the package
// honors the same fetch contract as the Elasticsearch client: a nonexistent
// index is simply an empty prefix.
package local

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/poiesic/llmwatch/core"
	"github.com/poiesic/llmwatch/store"
)

const docKeyPrefix = "doc/"

// Store is a BadgerDB-backed document store.
type Store struct {
	db     *badger.DB
	logger *slog.Logger
}

var _ store.DocumentStore = (*Store)(nil)

// badgerLoggerAdapter adapts slog.Logger to badger.Logger interface.
type badgerLoggerAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLoggerAdapter)(nil)

func (bl *badgerLoggerAdapter) Errorf(msg string, items ...any) {
	bl.logger.Error(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Warningf(msg string, items ...any) {
	bl.logger.Warn(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Infof(msg string, items ...any) {
	bl.logger.Info(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Debugf(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

// Open opens a BadgerDB document store at the specified path.
// Creates the directory if it doesn't exist.
func Open(filePath string, inMemory bool) (*Store, error) {
	var opts badger.Options

	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		info, err := os.Stat(filePath)
		if err != nil {
			if os.IsNotExist(err) {
				if err := os.MkdirAll(filePath, 0755); err != nil {
					return nil, err
				}
				info, err = os.Stat(filePath)
				if err != nil {
					return nil, err
				}
			} else {
				return nil, err
			}
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%s is not a directory", filePath)
		}
		opts = badger.DefaultOptions(filePath)
	}

	opts.Logger = &badgerLoggerAdapter{logger: slog.Default()}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &Store{
		db:     db,
		logger: slog.Default().With("component", "local-store"),
	}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// FetchBatch returns up to opts.Size work items from index, applying the
// error filter and ascending sort during iteration.
func (s *Store) FetchBatch(ctx context.Context, index string, opts store.FetchOptions) ([]*core.WorkItem, error) {
	if err := s.ready(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrFetchFailed, err)
	}

	var items []*core.WorkItem
	prefix := []byte(docKeyPrefix + index + "/")

	err := s.db.View(func(tx *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = prefix
		iter := tx.NewIterator(iterOpts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			item := iter.Item()
			raw, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}

			var source map[string]any
			if err := json.Unmarshal(raw, &source); err != nil {
				return fmt.Errorf("decoding document %s: %w", item.Key(), err)
			}
			if !opts.IncludeErrored && hasErrorAnnotation(source) {
				continue
			}

			items = append(items, &core.WorkItem{
				ID:     string(bytes.TrimPrefix(item.KeyCopy(nil), prefix)),
				Source: source,
				Raw:    raw,
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrFetchFailed, err)
	}

	if opts.SortField != "" {
		slices.SortStableFunc(items, func(a, b *core.WorkItem) int {
			return compareFieldValues(a.Source[opts.SortField], b.Source[opts.SortField])
		})
	}
	if opts.Size > 0 && len(items) > opts.Size {
		items = items[:opts.Size]
	}
	return items, nil
}

// Upsert fully replaces the document at id in index.
func (s *Store) Upsert(ctx context.Context, index, id string, doc map[string]any) error {
	if err := s.ready(ctx); err != nil {
		return fmt.Errorf("%w: %w", store.ErrWriteFailed, err)
	}

	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: encoding document %s: %w", store.ErrWriteFailed, id, err)
	}

	err = s.db.Update(func(tx *badger.Txn) error {
		return tx.Set(docKey(index, id), payload)
	})
	if err != nil {
		return fmt.Errorf("%w: %w", store.ErrWriteFailed, err)
	}
	return nil
}

// Delete removes the document at id in index. An absent document is a delete
// error, matching the remote store contract.
func (s *Store) Delete(ctx context.Context, index, id string) error {
	if err := s.ready(ctx); err != nil {
		return fmt.Errorf("%w: %w", store.ErrDeleteFailed, err)
	}

	err := s.db.Update(func(tx *badger.Txn) error {
		key := docKey(index, id)
		if _, err := tx.Get(key); err != nil {
			return err
		}
		return tx.Delete(key)
	})
	if err != nil {
		return fmt.Errorf("%w: %s/%s: %w", store.ErrDeleteFailed, index, id, err)
	}
	return nil
}

func (s *Store) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.db.IsClosed() {
		return store.ErrStoreClosed
	}
	return nil
}

func docKey(index, id string) []byte {
	return []byte(docKeyPrefix + index + "/" + id)
}

// hasErrorAnnotation reports whether the document carries a failure
// annotation under the control block, mirroring the exists-field filter the
// remote store applies server-side.
func hasErrorAnnotation(source map[string]any) bool {
	control, ok := source[core.ControlField].(map[string]any)
	if !ok {
		return false
	}
	value, ok := control["error"]
	if !ok || value == nil {
		return false
	}
	if s, ok := value.(string); ok && s == "" {
		return false
	}
	return true
}

// compareFieldValues orders two JSON field values ascending: numbers
// numerically, strings lexically, anything else by string form. Missing
// values sort first.
func compareFieldValues(a, b any) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		default:
			return 1
		}
	}

	if fa, ok := a.(float64); ok {
		if fb, ok := b.(float64); ok {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			default:
				return 0
			}
		}
	}
	if sa, ok := a.(string); ok {
		if sb, ok := b.(string); ok {
			return strings.Compare(sa, sb)
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}
