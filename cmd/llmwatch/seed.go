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
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/poiesic/llmwatch/core"
)

// buildControl assembles the control block attached to every queued
// document. The provider literal is validated up front so a typo fails the
// whole seed run instead of parking every document with an error.
func buildControl(originalIndex, provider, model, prompt string, format map[string]any) (map[string]any, error) {
	if originalIndex == "" {
		return nil, fmt.Errorf("original index is required")
	}
	if model == "" {
		return nil, fmt.Errorf("model is required")
	}
	if prompt == "" {
		return nil, fmt.Errorf("prompt is required")
	}
	if _, err := core.ParseProvider(provider); err != nil {
		return nil, err
	}

	control := map[string]any{
		"original_index": originalIndex,
		"provider":       provider,
		"model":          model,
		"prompt":         prompt,
	}
	if format != nil {
		control["format"] = format
	}
	return control, nil
}

// parseFormat parses the --format flag value as a JSON object.
func parseFormat(raw string) (map[string]any, error) {
	var format map[string]any
	if err := json.Unmarshal([]byte(raw), &format); err != nil {
		return nil, fmt.Errorf("invalid format: %w", err)
	}
	return format, nil
}

// decodeDocuments parses the seed payload as either a single JSON object or
// an array of objects.
func decodeDocuments(payload []byte) ([]map[string]any, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty payload")
	}

	if trimmed[0] == '[' {
		var docs []map[string]any
		if err := json.Unmarshal(trimmed, &docs); err != nil {
			return nil, fmt.Errorf("invalid document array: %w", err)
		}
		return docs, nil
	}

	var doc map[string]any
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, fmt.Errorf("invalid document: %w", err)
	}
	return []map[string]any{doc}, nil
}

func newDocumentID() string {
	return uuid.NewString()
}
