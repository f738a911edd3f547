package llmwatch

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/poiesic/llmwatch/core"
	"github.com/poiesic/llmwatch/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLocalWatcher(t *testing.T) {
	w, err := NewLocalWatcher(filepath.Join(t.TempDir(), "db"),
		WithLLMConfig(llm.NewConfig(llm.WithOllamaHost("http://localhost:11434"))))
	require.NoError(t, err)
	defer w.Close()

	// The store works end to end through the facade.
	doc := map[string]any{"text": "hello"}
	require.NoError(t, w.Store().Upsert(context.Background(), "idx", "1", doc))

	worker, err := w.NewWorker(nil)
	require.NoError(t, err)
	worker.Release()
}

func TestNewLocalWatcher_RequiresBackend(t *testing.T) {
	_, err := NewLocalWatcher(filepath.Join(t.TempDir(), "db"))
	assert.ErrorIs(t, err, llm.ErrNoBackendConfigured)
}

func TestNewElasticWatcher_RequiresURL(t *testing.T) {
	_, err := NewElasticWatcher("", "", "",
		WithLLMConfig(llm.NewConfig(llm.WithOllamaHost("http://localhost:11434"))))
	assert.Error(t, err)
}

func TestNewRegistry(t *testing.T) {
	reg, err := NewRegistry(llm.NewConfig(
		llm.WithOllamaHost("http://localhost:11434"),
		llm.WithOpenAIKey("sk-test"),
	))
	require.NoError(t, err)

	_, err = reg.Generator(core.ProviderOllama)
	assert.NoError(t, err)
	_, err = reg.Generator(core.ProviderOpenAI)
	assert.NoError(t, err)
}

func TestNewRegistry_PartialConfiguration(t *testing.T) {
	reg, err := NewRegistry(llm.NewConfig(llm.WithOllamaHost("http://localhost:11434")))
	require.NoError(t, err)

	_, err = reg.Generator(core.ProviderOpenAI)
	assert.ErrorIs(t, err, llm.ErrProviderNotConfigured)
}

func TestNewRegistry_NilConfig(t *testing.T) {
	_, err := NewRegistry(nil)
	assert.ErrorIs(t, err, llm.ErrNoBackendConfigured)
}
