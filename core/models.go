package core

import "encoding/json"

// ControlField is the reserved source key carrying routing and processing
// instructions for a work item.
const ControlField = "_llm_watcher"

// Provider identifies an LLM backend variant. The set is closed: dispatch on
// Provider values is exhaustive at compile time, and only ParseProvider deals
// with untrusted string literals.
type Provider int

const (
	// ProviderOllama is an Ollama-compatible backend.
	ProviderOllama Provider = iota + 1
	// ProviderOpenAI is an OpenAI-compatible chat-completion backend.
	ProviderOpenAI
)

// String returns the wire literal for the provider.
func (p Provider) String() string {
	switch p {
	case ProviderOllama:
		return "ollama"
	case ProviderOpenAI:
		return "openai"
	}
	return "unknown"
}

// WorkItem is a document fetched from the watch index.
//
// Raw holds the source exactly as it was fetched. Failure annotations are
// written from this snapshot, so in-memory mutations made during processing
// never leak into the error record.
type WorkItem struct {
	ID     string
	Source map[string]any
	Raw    json.RawMessage
}

// ControlMeta is the validated, typed form of the control block.
type ControlMeta struct {
	// OriginalIndex is the destination index for the enriched document.
	OriginalIndex string
	// Provider selects the LLM backend for this item.
	Provider Provider
	// Model is the backend model identifier.
	Model string
	// Prompt is the template text rendered against the item's source.
	Prompt string
	// Format is the advisory JSON-schema-like object describing the
	// expected generation output. Never nil after ParseControl.
	Format map[string]any
	// Processed and Error are bookkeeping fields written by the pipeline.
	Processed bool
	Error     string
}

// MergeResult builds the destination document for a successfully processed
// item: the source minus the control block, shallow-overlaid with the
// generation result. Result fields win on key collision.
func MergeResult(source, result map[string]any) map[string]any {
	merged := make(map[string]any, len(source)+len(result))
	for k, v := range source {
		if k == ControlField {
			continue
		}
		merged[k] = v
	}
	for k, v := range result {
		merged[k] = v
	}
	return merged
}
