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


package llm

import "strings"

// Config holds configuration for LLM backends. Which backends are set
// determines which provider variants the process can serve; documents naming
// an unconfigured backend fail individually at dispatch time.
type Config struct {
	// OllamaHost is the base URL of an Ollama-compatible server.
	// Example: "http://localhost:11434"
	OllamaHost string

	// OpenAIKey is the bearer token for the OpenAI-compatible backend.
	OpenAIKey string

	// OpenAIHost optionally overrides the OpenAI API base URL for
	// compatible backends. Empty means the public API.
	OpenAIHost string
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithOllamaHost sets the Ollama server base URL.
func WithOllamaHost(host string) ConfigOption {
	return func(c *Config) {
		c.OllamaHost = host
	}
}

// WithOpenAIKey sets the OpenAI API key.
func WithOpenAIKey(key string) ConfigOption {
	return func(c *Config) {
		c.OpenAIKey = key
	}
}

// WithOpenAIHost overrides the OpenAI API base URL.
func WithOpenAIHost(host string) ConfigOption {
	return func(c *Config) {
		c.OpenAIHost = host
	}
}

// NewConfig creates a Config and applies the provided options.
func NewConfig(opts ...ConfigOption) *Config {
	cfg := &Config{}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in canonical form.
func (c *Config) Normalize() {
	c.OllamaHost = strings.TrimSuffix(c.OllamaHost, "/")
	c.OpenAIHost = strings.TrimSuffix(c.OpenAIHost, "/")
}

// Validate checks that at least one backend is configured.
// It normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	if c.OllamaHost == "" && c.OpenAIKey == "" {
		return ErrNoBackendConfigured
	}
	return nil
}
