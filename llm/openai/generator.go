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


package openai

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/poiesic/llmwatch/llm"
)

// generateFunctionName is the synthetic tool the backend is asked to call;
// its parameter schema is the document's advisory output format, which
// forces function-call style structured output.
const generateFunctionName = "generate_output"

// Generator implements llm.Generator against an OpenAI-compatible
// chat-completion API.
type Generator struct {
	token   string
	baseURL string
	logger  *slog.Logger
}

var _ llm.Generator = (*Generator)(nil)

// NewGenerator creates a generator authenticating with the configured key.
func NewGenerator(config *llm.Config) (*Generator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.OpenAIKey == "" {
		return nil, llm.ErrOpenAIKeyRequired
	}

	return &Generator{
		token:   config.OpenAIKey,
		baseURL: config.OpenAIHost,
		logger:  slog.Default().With("component", "openai-generator"),
	}, nil
}

// Generate posts a chat completion with a single generate_output tool and
// decodes the function-call arguments as the generation result.
func (g *Generator) Generate(ctx context.Context, model, prompt string, format map[string]any) (map[string]any, error) {
	opts := []openai.Option{
		openai.WithToken(g.token),
		openai.WithModel(model),
	}
	if g.baseURL != "" {
		opts = append(opts, openai.WithBaseURL(g.baseURL))
	}
	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating openai client: %w", err)
	}

	if format == nil {
		format = map[string]any{}
	}
	tools := []llms.Tool{
		{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        generateFunctionName,
				Description: "Generates structured output based on the given format.",
				Parameters:  format,
			},
		},
	}

	content := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(prompt)},
		},
	}

	g.logger.Debug("openai request", "model", model)
	response, err := client.GenerateContent(ctx, content,
		llms.WithTemperature(0.0),
		llms.WithTools(tools),
		llms.WithToolChoice("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("openai generation: %w", err)
	}
	if len(response.Choices) < 1 {
		return nil, fmt.Errorf("%w: no choices returned", llm.ErrInvalidOutput)
	}

	choice := response.Choices[0]
	for _, call := range choice.ToolCalls {
		if call.FunctionCall != nil && call.FunctionCall.Name == generateFunctionName {
			return llm.DecodeResult(call.FunctionCall.Arguments)
		}
	}

	// Some compatible backends answer inline instead of calling the tool.
	return llm.DecodeResult(choice.Content)
}
