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


package core

import "fmt"

// ParseProvider maps a provider literal carried in control metadata to a
// Provider value. The literal originates in untrusted document data, so an
// unknown value is a runtime error rather than a panic.
func ParseProvider(literal string) (Provider, error) {
	switch literal {
	case "ollama":
		return ProviderOllama, nil
	case "openai":
		return ProviderOpenAI, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownProvider, literal)
}

// ParseControl extracts and validates the control block from a work item
// source. All shape problems surface as a single ErrMalformedControl class,
// wrapped with field detail, so callers never deep-index into the raw map.
//
// Required fields: original_index, provider, model, prompt.
// Optional fields: format (defaults to an empty object), processed, error.
func ParseControl(source map[string]any) (*ControlMeta, error) {
	raw, ok := source[ControlField]
	if !ok {
		return nil, fmt.Errorf("%w: missing %s block", ErrMalformedControl, ControlField)
	}
	block, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not an object", ErrMalformedControl, ControlField)
	}

	meta := &ControlMeta{Format: map[string]any{}}

	var err error
	if meta.OriginalIndex, err = requiredString(block, "original_index"); err != nil {
		return nil, err
	}
	if meta.Model, err = requiredString(block, "model"); err != nil {
		return nil, err
	}
	if meta.Prompt, err = requiredString(block, "prompt"); err != nil {
		return nil, err
	}

	literal, err := requiredString(block, "provider")
	if err != nil {
		return nil, err
	}
	if meta.Provider, err = ParseProvider(literal); err != nil {
		return nil, err
	}

	if raw, ok := block["format"]; ok && raw != nil {
		format, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: format is not an object", ErrMalformedControl)
		}
		meta.Format = format
	}
	if raw, ok := block["processed"]; ok && raw != nil {
		processed, ok := raw.(bool)
		if !ok {
			return nil, fmt.Errorf("%w: processed is not a boolean", ErrMalformedControl)
		}
		meta.Processed = processed
	}
	if raw, ok := block["error"]; ok && raw != nil {
		message, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("%w: error is not a string", ErrMalformedControl)
		}
		meta.Error = message
	}

	return meta, nil
}

// requiredString reads a mandatory non-empty string field from the control block.
func requiredString(block map[string]any, key string) (string, error) {
	raw, ok := block[key]
	if !ok {
		return "", fmt.Errorf("%w: missing %s", ErrMalformedControl, key)
	}
	value, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s is not a string", ErrMalformedControl, key)
	}
	if value == "" {
		return "", fmt.Errorf("%w: %s is empty", ErrMalformedControl, key)
	}
	return value, nil
}
