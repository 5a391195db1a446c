package chatsvc

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/mida-chat/internal/chat/store"
	"github.com/kart-io/mida-chat/pkg/llm"
	cacheopts "github.com/kart-io/mida-chat/pkg/options/cache"
	chatopts "github.com/kart-io/mida-chat/pkg/options/chat"
	llmopts "github.com/kart-io/mida-chat/pkg/options/llm"
	logopts "github.com/kart-io/mida-chat/pkg/options/logger"
	middlewareopts "github.com/kart-io/mida-chat/pkg/options/middleware"
	milvusopts "github.com/kart-io/mida-chat/pkg/options/milvus"
	httpopts "github.com/kart-io/mida-chat/pkg/options/server/http"
	tracingopts "github.com/kart-io/mida-chat/pkg/options/tracing"
)

func ollamaOptions(baseURL string) *llmopts.ProviderOptions {
	return &llmopts.ProviderOptions{Provider: "ollama", BaseURL: baseURL, Model: "all-minilm"}
}

func writeIndex(t *testing.T, model string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, store.SaveIndex(dir, model, []*store.Passage{
		{ID: "p1", Text: "MIDA stands for Malaysian Investment Development Authority.", Vector: []float32{1, 0}},
	}))
	return dir
}

func TestOpenIndexFile(t *testing.T) {
	dir := writeIndex(t, "all-minilm")

	vs, err := OpenIndex(context.Background(), &chatopts.IndexOptions{Backend: chatopts.BackendFile, Path: dir}, nil)
	require.NoError(t, err)
	defer vs.Close(context.Background())

	assert.Equal(t, store.BackendMemory, vs.Backend())
	assert.Equal(t, "all-minilm", vs.Model())
	n, err := vs.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestOpenIndexErrors(t *testing.T) {
	_, err := OpenIndex(context.Background(), &chatopts.IndexOptions{Backend: chatopts.BackendFile, Path: t.TempDir()}, nil)
	assert.ErrorIs(t, err, store.ErrIndexNotFound)

	_, err = OpenIndex(context.Background(), &chatopts.IndexOptions{Backend: "sqlite", Path: "x"}, nil)
	assert.Error(t, err)
}

func TestNewEmbeddingProviderCacheDisabled(t *testing.T) {
	provider, closeFn, err := NewEmbeddingProvider(context.Background(), ollamaOptions("http://localhost:11434"), cacheopts.NewOptions())
	require.NoError(t, err)
	assert.Nil(t, closeFn)
	assert.Equal(t, "ollama", provider.Name())
	_, cached := provider.(*llm.CachedEmbeddingProvider)
	assert.False(t, cached)
}

func TestNewEmbeddingProviderWithCache(t *testing.T) {
	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	cache := cacheopts.NewOptions()
	cache.Enabled = true
	cache.Redis.Host = mr.Host()
	cache.Redis.Port = port

	provider, closeFn, err := NewEmbeddingProvider(context.Background(), ollamaOptions("http://localhost:11434"), cache)
	require.NoError(t, err)
	require.NotNil(t, closeFn)
	defer closeFn(context.Background())

	_, cached := provider.(*llm.CachedEmbeddingProvider)
	assert.True(t, cached)
}

func TestNewEmbeddingProviderRedisDownDegrades(t *testing.T) {
	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)
	mr.Close()

	cache := cacheopts.NewOptions()
	cache.Enabled = true
	cache.Redis.Host = "127.0.0.1"
	cache.Redis.Port = port
	cache.Redis.DialTimeout = 200 * time.Millisecond

	provider, closeFn, err := NewEmbeddingProvider(context.Background(), ollamaOptions("http://localhost:11434"), cache)
	require.NoError(t, err)
	assert.Nil(t, closeFn)
	_, cached := provider.(*llm.CachedEmbeddingProvider)
	assert.False(t, cached)
}

func newTestConfig(t *testing.T, indexDir string) *Config {
	t.Helper()
	backend := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(backend.Close)

	httpOptions := httpopts.NewOptions()
	httpOptions.Addr = "127.0.0.1:0"
	httpOptions.Mode = "test"
	httpOptions.ShutdownTimeout = 5 * time.Second

	chat := chatopts.NewOptions()
	chat.Index.Path = indexDir
	chat.Session.IdleTTL = 0
	chat.LLM = &llmopts.ProviderOptions{Provider: "ollama", BaseURL: backend.URL, Model: "llama3:8b"}
	chat.Embedding = ollamaOptions(backend.URL)

	return &Config{
		HTTPOptions:       httpOptions,
		LogOptions:        logopts.NewOptions(),
		TracingOptions:    tracingopts.NewOptions(),
		MiddlewareOptions: middlewareopts.NewOptions(),
		MilvusOptions:     milvusopts.NewOptions(),
		ChatOptions:       chat,
		CacheOptions:      cacheopts.NewOptions(),
	}
}

func TestServerLifecycle(t *testing.T) {
	cfg := newTestConfig(t, writeIndex(t, "sentence-transformers/all-MiniLM-L6-v2"))

	srv, err := cfg.NewServer(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestNewServerMissingIndexIsFatal(t *testing.T) {
	cfg := newTestConfig(t, t.TempDir())

	_, err := cfg.NewServer(context.Background())
	assert.ErrorIs(t, err, store.ErrIndexNotFound)
}
