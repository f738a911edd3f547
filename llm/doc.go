// Package llm defines the generator abstraction over interchangeable LLM
// backends and the runtime registry that dispatches per-document provider
// selections to them.
//
// Concrete backends live in subpackages: llm/ollama for Ollama-compatible
// servers and llm/openai for OpenAI-compatible chat-completion APIs. Both
// return generation results as parsed JSON objects; the output schema
// carried in control metadata is advisory and never enforced here.
package llm
