package llm

import "errors"

var (
	// ErrNoBackendConfigured is returned when neither an Ollama host nor an
	// OpenAI key is configured.
	ErrNoBackendConfigured = errors.New("llm config: no backend configured")

	// ErrProviderNotConfigured is returned when a document names a backend
	// the process was started without.
	ErrProviderNotConfigured = errors.New("llm provider not configured")

	// ErrInvalidOutput indicates the backend payload could not be decoded
	// as a JSON object.
	ErrInvalidOutput = errors.New("generation output is not a JSON object")

	// ErrOllamaHostRequired is returned when building the Ollama generator
	// without a configured host.
	ErrOllamaHostRequired = errors.New("llm config: ollama host is required")

	// ErrOpenAIKeyRequired is returned when building the OpenAI generator
	// without a configured API key.
	ErrOpenAIKeyRequired = errors.New("llm config: openai api key is required")
)
