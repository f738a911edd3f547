package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSource() map[string]any {
	return map[string]any{
		"text": "hi",
		ControlField: map[string]any{
			"original_index": "out",
			"provider":       "ollama",
			"model":          "m",
			"prompt":         "{{.ctx.text}}",
			"format":         map[string]any{"type": "object"},
		},
	}
}

func TestParseControl_Valid(t *testing.T) {
	meta, err := ParseControl(validSource())
	require.NoError(t, err)

	assert.Equal(t, "out", meta.OriginalIndex)
	assert.Equal(t, ProviderOllama, meta.Provider)
	assert.Equal(t, "m", meta.Model)
	assert.Equal(t, "{{.ctx.text}}", meta.Prompt)
	assert.Equal(t, map[string]any{"type": "object"}, meta.Format)
	assert.False(t, meta.Processed)
	assert.Empty(t, meta.Error)
}

func TestParseControl_OptionalFields(t *testing.T) {
	source := validSource()
	block := source[ControlField].(map[string]any)
	delete(block, "format")
	block["processed"] = true
	block["error"] = "previous failure"

	meta, err := ParseControl(source)
	require.NoError(t, err)

	assert.NotNil(t, meta.Format)
	assert.Empty(t, meta.Format)
	assert.True(t, meta.Processed)
	assert.Equal(t, "previous failure", meta.Error)
}

func TestParseControl_Malformed(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(source map[string]any)
	}{
		{
			name:   "missing control block",
			mutate: func(source map[string]any) { delete(source, ControlField) },
		},
		{
			name:   "control block is not an object",
			mutate: func(source map[string]any) { source[ControlField] = "nope" },
		},
		{
			name: "missing original_index",
			mutate: func(source map[string]any) {
				delete(source[ControlField].(map[string]any), "original_index")
			},
		},
		{
			name: "empty model",
			mutate: func(source map[string]any) {
				source[ControlField].(map[string]any)["model"] = ""
			},
		},
		{
			name: "prompt is not a string",
			mutate: func(source map[string]any) {
				source[ControlField].(map[string]any)["prompt"] = 42
			},
		},
		{
			name: "format is not an object",
			mutate: func(source map[string]any) {
				source[ControlField].(map[string]any)["format"] = []any{"x"}
			},
		},
		{
			name: "processed is not a boolean",
			mutate: func(source map[string]any) {
				source[ControlField].(map[string]any)["processed"] = "yes"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := validSource()
			tt.mutate(source)

			_, err := ParseControl(source)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedControl)
		})
	}
}

func TestParseControl_UnknownProvider(t *testing.T) {
	source := validSource()
	source[ControlField].(map[string]any)["provider"] = "acme"

	_, err := ParseControl(source)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownProvider)
	assert.NotErrorIs(t, err, ErrMalformedControl)
}

func TestParseProvider(t *testing.T) {
	p, err := ParseProvider("ollama")
	require.NoError(t, err)
	assert.Equal(t, ProviderOllama, p)

	p, err = ParseProvider("openai")
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenAI, p)

	_, err = ParseProvider("")
	assert.ErrorIs(t, err, ErrUnknownProvider)
}
