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


// Package mock provides a test double for llm.Generator.
package mock

import (
	"context"
	"sync"

	"github.com/poiesic/llmwatch/llm"
)

// Call records the arguments of one Generate invocation.
type Call struct {
	Model  string
	Prompt string
	Format map[string]any
}

// Generator is a scripted test double for llm.Generator.
// It is safe for concurrent use; calls are recorded for assertions.
type Generator struct {
	mu    sync.Mutex
	calls []Call

	// Result is returned by Generate when GenerateFunc is nil.
	// A nil Result yields an empty object.
	Result map[string]any

	// Err, when set, is returned instead of Result.
	Err error

	// GenerateFunc, when set, fully overrides Generate behavior.
	GenerateFunc func(ctx context.Context, model, prompt string, format map[string]any) (map[string]any, error)
}

var _ llm.Generator = (*Generator)(nil)

// NewGenerator creates a mock generator returning an empty result.
func NewGenerator() *Generator {
	return &Generator{}
}

// Generate records the call and returns the scripted outcome.
func (g *Generator) Generate(ctx context.Context, model, prompt string, format map[string]any) (map[string]any, error) {
	g.mu.Lock()
	g.calls = append(g.calls, Call{Model: model, Prompt: prompt, Format: format})
	fn := g.GenerateFunc
	result, err := g.Result, g.Err
	g.mu.Unlock()

	if fn != nil {
		return fn(ctx, model, prompt, format)
	}
	if err != nil {
		return nil, err
	}
	if result == nil {
		return map[string]any{}, nil
	}
	return result, nil
}

// Calls returns a copy of the recorded calls.
func (g *Generator) Calls() []Call {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]Call(nil), g.calls...)
}
