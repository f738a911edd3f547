package llm

import "context"

// Generator turns a rendered prompt into a parsed structured result using an
// LLM backend. Implementations must be thread-safe for concurrent use.
type Generator interface {
	// Generate invokes the backend with the given model and prompt.
	// format is the advisory JSON-schema-like object describing the
	// expected output; it is passed through to the backend as a
	// generation constraint and the result is never validated against it.
	// A non-success transport response or an undecodable payload is a
	// generation error; Generate never returns partial data.
	Generate(ctx context.Context, model, prompt string, format map[string]any) (map[string]any, error)
}
