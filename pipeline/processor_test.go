package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/llmwatch/core"
	"github.com/poiesic/llmwatch/llm"
	"github.com/poiesic/llmwatch/llm/mock"
	"github.com/poiesic/llmwatch/store"
	"github.com/poiesic/llmwatch/store/local"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testWatchIndex  = "llm-queue"
	testSourceIndex = "articles"
)

func openTestStore(t *testing.T) *local.Store {
	t.Helper()
	s, err := local.Open(t.TempDir(), false)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// watchDoc builds a queue document routed to testSourceIndex.
func watchDoc(provider, prompt string, fields map[string]any) map[string]any {
	doc := map[string]any{
		core.ControlField: map[string]any{
			"original_index": testSourceIndex,
			"provider":       provider,
			"model":          "test-model",
			"prompt":         prompt,
		},
	}
	for k, v := range fields {
		doc[k] = v
	}
	return doc
}

func seedItem(t *testing.T, s store.DocumentStore, index, id string, doc map[string]any) *core.WorkItem {
	t.Helper()
	require.NoError(t, s.Upsert(context.Background(), index, id, doc))

	items := fetchAll(t, s, index, true)
	for _, item := range items {
		if item.ID == id {
			return item
		}
	}
	t.Fatalf("seeded item %s not fetched back", id)
	return nil
}

func fetchAll(t *testing.T, s store.DocumentStore, index string, includeErrored bool) []*core.WorkItem {
	t.Helper()
	items, err := s.FetchBatch(context.Background(), index, store.FetchOptions{
		Size:           100,
		IncludeErrored: includeErrored,
	})
	require.NoError(t, err)
	return items
}

func registryWith(provider core.Provider, gen llm.Generator) *llm.Registry {
	reg := llm.NewRegistry()
	reg.Register(provider, gen)
	return reg
}

func TestProcess(t *testing.T) {
	s := openTestStore(t)
	gen := mock.NewGenerator()
	gen.Result = map[string]any{"summary": "short version"}

	item := seedItem(t, s, testWatchIndex, "doc-1",
		watchDoc("ollama", "Summarize: {{.ctx.text}}", map[string]any{"text": "a long article"}))

	p, err := NewProcessor(s, registryWith(core.ProviderOllama, gen), testWatchIndex, nil)
	require.NoError(t, err)
	require.NoError(t, p.Process(context.Background(), item))

	calls := gen.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "test-model", calls[0].Model)
	assert.Equal(t, "Summarize: a long article", calls[0].Prompt)

	// The queue entry is gone and the merged document landed in the
	// destination index without the control block.
	assert.Empty(t, fetchAll(t, s, testWatchIndex, true))

	written := fetchAll(t, s, testSourceIndex, true)
	require.Len(t, written, 1)
	assert.Equal(t, "doc-1", written[0].ID)
	assert.Equal(t, "a long article", written[0].Source["text"])
	assert.Equal(t, "short version", written[0].Source["summary"])
	assert.NotContains(t, written[0].Source, core.ControlField)
}

func TestProcess_ResultWinsOnCollision(t *testing.T) {
	s := openTestStore(t)
	gen := mock.NewGenerator()
	gen.Result = map[string]any{"title": "rewritten"}

	item := seedItem(t, s, testWatchIndex, "doc-1",
		watchDoc("ollama", "Rewrite {{.ctx.title}}", map[string]any{"title": "original"}))

	p, err := NewProcessor(s, registryWith(core.ProviderOllama, gen), testWatchIndex, nil)
	require.NoError(t, err)
	require.NoError(t, p.Process(context.Background(), item))

	written := fetchAll(t, s, testSourceIndex, true)
	require.Len(t, written, 1)
	assert.Equal(t, "rewritten", written[0].Source["title"])
}

func TestProcess_MalformedControl(t *testing.T) {
	s := openTestStore(t)

	doc := watchDoc("ollama", "p", nil)
	delete(doc[core.ControlField].(map[string]any), "model")
	item := seedItem(t, s, testWatchIndex, "doc-1", doc)

	p, err := NewProcessor(s, registryWith(core.ProviderOllama, mock.NewGenerator()), testWatchIndex, nil)
	require.NoError(t, err)

	err = p.Process(context.Background(), item)
	assert.ErrorIs(t, err, core.ErrMalformedControl)

	// Item stays queued, nothing written downstream.
	assert.Len(t, fetchAll(t, s, testWatchIndex, true), 1)
	assert.Empty(t, fetchAll(t, s, testSourceIndex, true))
}

func TestProcess_UnknownProviderLiteral(t *testing.T) {
	s := openTestStore(t)
	item := seedItem(t, s, testWatchIndex, "doc-1", watchDoc("groq", "p", nil))

	p, err := NewProcessor(s, registryWith(core.ProviderOllama, mock.NewGenerator()), testWatchIndex, nil)
	require.NoError(t, err)

	err = p.Process(context.Background(), item)
	assert.ErrorIs(t, err, core.ErrUnknownProvider)
	assert.Len(t, fetchAll(t, s, testWatchIndex, true), 1)
}

func TestProcess_ProviderNotConfigured(t *testing.T) {
	s := openTestStore(t)
	item := seedItem(t, s, testWatchIndex, "doc-1", watchDoc("openai", "p", nil))

	p, err := NewProcessor(s, registryWith(core.ProviderOllama, mock.NewGenerator()), testWatchIndex, nil)
	require.NoError(t, err)

	err = p.Process(context.Background(), item)
	assert.ErrorIs(t, err, llm.ErrProviderNotConfigured)
	assert.Len(t, fetchAll(t, s, testWatchIndex, true), 1)
}

func TestProcess_RenderFailure(t *testing.T) {
	s := openTestStore(t)
	gen := mock.NewGenerator()
	item := seedItem(t, s, testWatchIndex, "doc-1", watchDoc("ollama", "{{.ctx.nope}}", nil))

	p, err := NewProcessor(s, registryWith(core.ProviderOllama, gen), testWatchIndex, nil)
	require.NoError(t, err)

	err = p.Process(context.Background(), item)
	require.Error(t, err)

	// The provider was never invoked and the item stays queued.
	assert.Empty(t, gen.Calls())
	assert.Len(t, fetchAll(t, s, testWatchIndex, true), 1)
}

func TestProcess_GenerationFailure(t *testing.T) {
	s := openTestStore(t)
	gen := mock.NewGenerator()
	gen.Err = errors.New("model exploded")

	item := seedItem(t, s, testWatchIndex, "doc-1", watchDoc("ollama", "p", nil))

	p, err := NewProcessor(s, registryWith(core.ProviderOllama, gen), testWatchIndex, nil)
	require.NoError(t, err)

	err = p.Process(context.Background(), item)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model exploded")

	assert.Len(t, fetchAll(t, s, testWatchIndex, true), 1)
	assert.Empty(t, fetchAll(t, s, testSourceIndex, true))
}

func TestProcess_DestinationWriteFailure(t *testing.T) {
	s := openTestStore(t)
	flaky := &flakyStore{DocumentStore: s, failUpsertIndex: testSourceIndex}

	gen := mock.NewGenerator()
	item := seedItem(t, s, testWatchIndex, "doc-1", watchDoc("ollama", "p", nil))

	p, err := NewProcessor(flaky, registryWith(core.ProviderOllama, gen), testWatchIndex, nil)
	require.NoError(t, err)

	err = p.Process(context.Background(), item)
	assert.ErrorIs(t, err, store.ErrWriteFailed)

	// The queue entry must survive a failed destination write.
	assert.Zero(t, flaky.deletes.Load())
	assert.Len(t, fetchAll(t, s, testWatchIndex, true), 1)
}

func TestNewProcessor_Validation(t *testing.T) {
	s := openTestStore(t)
	reg := llm.NewRegistry()

	_, err := NewProcessor(nil, reg, testWatchIndex, nil)
	assert.ErrorIs(t, err, ErrDocumentStoreRequired)

	_, err = NewProcessor(s, nil, testWatchIndex, nil)
	assert.ErrorIs(t, err, ErrRegistryRequired)

	_, err = NewProcessor(s, reg, "", nil)
	assert.ErrorIs(t, err, ErrWatchIndexRequired)
}
