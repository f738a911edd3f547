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


package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"

	"github.com/poiesic/llmwatch/llm"
)

// Generator implements llm.Generator against an Ollama-compatible chat API.
type Generator struct {
	serverURL string
	logger    *slog.Logger
}

var _ llm.Generator = (*Generator)(nil)

// NewGenerator creates a generator for the configured Ollama server.
func NewGenerator(config *llm.Config) (*Generator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.OllamaHost == "" {
		return nil, llm.ErrOllamaHostRequired
	}

	return &Generator{
		serverURL: config.OllamaHost,
		logger:    slog.Default().With("component", "ollama-generator"),
	}, nil
}

// Generate invokes the chat endpoint in JSON output mode and decodes the
// message content as the generation result.
func (g *Generator) Generate(ctx context.Context, model, prompt string, format map[string]any) (map[string]any, error) {
	// The model is carried per document, so the client is built per call.
	client, err := ollama.New(
		ollama.WithServerURL(g.serverURL),
		ollama.WithModel(model),
		ollama.WithFormat("json"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating ollama client: %w", err)
	}

	content := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(formatInstruction(format))},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(prompt)},
		},
	}

	g.logger.Debug("ollama request", "model", model)
	response, err := client.GenerateContent(ctx, content, llms.WithTemperature(0.0))
	if err != nil {
		return nil, fmt.Errorf("ollama generation: %w", err)
	}
	if len(response.Choices) < 1 {
		return nil, fmt.Errorf("%w: no choices returned", llm.ErrInvalidOutput)
	}

	g.logger.Debug("ollama response", "model", model, "content", response.Choices[0].Content)
	return llm.DecodeResult(response.Choices[0].Content)
}

// formatInstruction carries the advisory output schema as a generation
// constraint. The chat API format field only accepts the "json" literal, so
// the schema itself rides in a system message.
func formatInstruction(format map[string]any) string {
	if len(format) == 0 {
		return "Respond with a single JSON object."
	}
	schema, err := json.Marshal(format)
	if err != nil {
		return "Respond with a single JSON object."
	}
	return "Respond with a single JSON object conforming to this JSON schema:\n" + string(schema)
}
