package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/poiesic/llmwatch/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chatHandler emulates the Ollama /api/chat endpoint, answering every
// request with the given assistant message content.
func chatHandler(t *testing.T, content string, gotRequest *map[string]any) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/chat", r.URL.Path)

		if gotRequest != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(gotRequest))
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"model":      "m",
			"created_at": "2025-01-01T00:00:00Z",
			"message":    map[string]any{"role": "assistant", "content": content},
			"done":       true,
		})
	}
}

func newTestGenerator(t *testing.T, handler http.HandlerFunc) *Generator {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	g, err := NewGenerator(llm.NewConfig(llm.WithOllamaHost(ts.URL)))
	require.NoError(t, err)
	return g
}

func TestGenerate(t *testing.T) {
	var gotRequest map[string]any
	g := newTestGenerator(t, chatHandler(t, `{"reply":"hello"}`, &gotRequest))

	format := map[string]any{"type": "object"}
	result, err := g.Generate(context.Background(), "m", "say hello", format)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"reply": "hello"}, result)

	assert.Equal(t, "m", gotRequest["model"])
	assert.Equal(t, "json", gotRequest["format"])

	messages := gotRequest["messages"].([]any)
	require.Len(t, messages, 2)
	system := messages[0].(map[string]any)
	user := messages[1].(map[string]any)
	assert.Equal(t, "system", system["role"])
	assert.Contains(t, system["content"], "JSON schema")
	assert.Equal(t, "user", user["role"])
	assert.Equal(t, "say hello", user["content"])
}

func TestGenerate_UndecodablePayload(t *testing.T) {
	g := newTestGenerator(t, chatHandler(t, "definitely not json", nil))

	_, err := g.Generate(context.Background(), "m", "say hello", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, llm.ErrInvalidOutput)
}

func TestGenerate_ServerError(t *testing.T) {
	g := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	})

	_, err := g.Generate(context.Background(), "m", "say hello", nil)
	assert.Error(t, err)
}

func TestNewGenerator_RequiresHost(t *testing.T) {
	_, err := NewGenerator(llm.NewConfig(llm.WithOpenAIKey("sk-test")))
	assert.ErrorIs(t, err, llm.ErrOllamaHostRequired)
}

func TestFormatInstruction(t *testing.T) {
	assert.Equal(t, "Respond with a single JSON object.", formatInstruction(nil))
	assert.Equal(t, "Respond with a single JSON object.", formatInstruction(map[string]any{}))

	withSchema := formatInstruction(map[string]any{"type": "object"})
	assert.Contains(t, withSchema, `"type":"object"`)
}
