package chatsvc

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/mida-chat/internal/chat/biz"
	"github.com/kart-io/mida-chat/internal/chat/store"
	cacheopts "github.com/kart-io/mida-chat/pkg/options/cache"
	indexopts "github.com/kart-io/mida-chat/pkg/options/index"
	logopts "github.com/kart-io/mida-chat/pkg/options/logger"
	milvusopts "github.com/kart-io/mida-chat/pkg/options/milvus"
	poolopts "github.com/kart-io/mida-chat/pkg/options/pool"
	"github.com/kart-io/mida-chat/pkg/utils/json"
)

// newEmbedServer 模拟 Ollama /api/embed，每个输入返回一个二维向量。
func newEmbedServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		vectors := make([][]float32, len(req.Input))
		for i := range req.Input {
			vectors[i] = []float32{float32(len(req.Input[i])), 1}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"embeddings": vectors})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestBuildFileIndex(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "mida.txt"),
		[]byte("MIDA stands for Malaysian Investment Development Authority."), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "notes.md"), []byte("Incentives for manufacturing."), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "skip.pdf"), []byte("binary"), 0o644))

	out := filepath.Join(t.TempDir(), "index")
	index := indexopts.NewOptions()
	index.Source = src
	index.Path = out

	cfg := &BuildConfig{
		LogOptions:       logopts.NewOptions(),
		IndexOptions:     index,
		EmbeddingOptions: ollamaOptions(newEmbedServer(t).URL),
		WorkerOptions:    poolopts.NewOptions(),
		MilvusOptions:    milvusopts.NewOptions(),
		CacheOptions:     cacheopts.NewOptions(),
	}

	report, err := cfg.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Documents)
	assert.Equal(t, 2, report.Chunks)

	idx, err := store.LoadIndex(out)
	require.NoError(t, err)
	assert.Equal(t, 2, idx.Len())
	assert.Equal(t, "all-minilm", idx.Model())
}

func TestBuildEmptySource(t *testing.T) {
	index := indexopts.NewOptions()
	index.Source = t.TempDir()
	index.Path = filepath.Join(t.TempDir(), "index")

	cfg := &BuildConfig{
		LogOptions:       logopts.NewOptions(),
		IndexOptions:     index,
		EmbeddingOptions: ollamaOptions(newEmbedServer(t).URL),
		WorkerOptions:    poolopts.NewOptions(),
		MilvusOptions:    milvusopts.NewOptions(),
		CacheOptions:     cacheopts.NewOptions(),
	}

	_, err := cfg.Build(context.Background())
	assert.ErrorIs(t, err, biz.ErrNoDocuments)
}
