package chatsvc

import (
	"context"
	"fmt"

	"github.com/kart-io/logger"

	"github.com/kart-io/mida-chat/internal/chat/biz"
	"github.com/kart-io/mida-chat/internal/chat/store"
	"github.com/kart-io/mida-chat/pkg/component/milvus"
	"github.com/kart-io/mida-chat/pkg/infra/app"
	"github.com/kart-io/mida-chat/pkg/infra/pool"
	cacheopts "github.com/kart-io/mida-chat/pkg/options/cache"
	chatopts "github.com/kart-io/mida-chat/pkg/options/chat"
	indexopts "github.com/kart-io/mida-chat/pkg/options/index"
	llmopts "github.com/kart-io/mida-chat/pkg/options/llm"
	logopts "github.com/kart-io/mida-chat/pkg/options/logger"
	milvusopts "github.com/kart-io/mida-chat/pkg/options/milvus"
	poolopts "github.com/kart-io/mida-chat/pkg/options/pool"
)

// IndexerName is the name of the index builder.
const IndexerName = "mida-index"

// BuildConfig contains the index builder configuration.
type BuildConfig struct {
	LogOptions       *logopts.Options
	IndexOptions     *indexopts.Options
	EmbeddingOptions *llmopts.ProviderOptions
	WorkerOptions    *poolopts.Options
	MilvusOptions    *milvusopts.Options
	CacheOptions     *cacheopts.Options
}

// Build reads the source documents, embeds them and writes the passage index.
func (cfg *BuildConfig) Build(ctx context.Context) (*biz.IndexReport, error) {
	if err := app.InitLogger(cfg.LogOptions, IndexerName); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	embedProvider, closeCache, err := NewEmbeddingProvider(ctx, cfg.EmbeddingOptions, cfg.CacheOptions)
	if err != nil {
		return nil, err
	}
	if closeCache != nil {
		defer func() { _ = closeCache(context.Background()) }()
	}

	writer, closeWriter, err := cfg.newWriter(ctx)
	if err != nil {
		return nil, err
	}
	defer closeWriter()

	workers, err := pool.NewFromOptions("index-embed", cfg.WorkerOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize worker pool: %w", err)
	}
	defer workers.Release()

	indexer := biz.NewIndexer(embedProvider, writer, workers, &biz.IndexerConfig{
		ChunkSize:    cfg.IndexOptions.ChunkSize,
		ChunkOverlap: cfg.IndexOptions.ChunkOverlap,
		BatchSize:    cfg.IndexOptions.BatchSize,
		Model:        cfg.EmbeddingOptions.Model,
	})
	return indexer.IndexDirectory(ctx, cfg.IndexOptions.Source)
}

func (cfg *BuildConfig) newWriter(ctx context.Context) (store.PassageWriter, func(), error) {
	opts := cfg.IndexOptions
	if opts.Backend != chatopts.BackendMilvus {
		return &store.FileWriter{Dir: opts.Path}, func() {}, nil
	}

	client, err := milvus.New(ctx, cfg.MilvusOptions)
	if err != nil {
		return nil, nil, err
	}
	logger.Infow("Milvus client initialized", "address", cfg.MilvusOptions.Address, "collection", opts.Path)

	ms := store.NewMilvusStore(client, opts.Path)
	ms.Recreate = opts.Recreate
	return ms, func() { _ = ms.Close(context.Background()) }, nil
}
