// Package chatsvc provides the chat server implementation.
package chatsvc

import (
	"context"
	"fmt"

	"github.com/kart-io/logger"

	"github.com/kart-io/mida-chat/internal/chat/biz"
	"github.com/kart-io/mida-chat/internal/chat/handler"
	"github.com/kart-io/mida-chat/internal/chat/router"
	"github.com/kart-io/mida-chat/internal/chat/store"
	"github.com/kart-io/mida-chat/pkg/component/milvus"
	"github.com/kart-io/mida-chat/pkg/component/redis"
	"github.com/kart-io/mida-chat/pkg/infra/app"
	"github.com/kart-io/mida-chat/pkg/infra/pool"
	"github.com/kart-io/mida-chat/pkg/infra/server"
	"github.com/kart-io/mida-chat/pkg/infra/tracing"
	"github.com/kart-io/mida-chat/pkg/llm"
	// 导入 LLM 供应商以自动注册
	_ "github.com/kart-io/mida-chat/pkg/llm/bedrock"
	_ "github.com/kart-io/mida-chat/pkg/llm/huggingface"
	_ "github.com/kart-io/mida-chat/pkg/llm/ollama"
	cacheopts "github.com/kart-io/mida-chat/pkg/options/cache"
	chatopts "github.com/kart-io/mida-chat/pkg/options/chat"
	llmopts "github.com/kart-io/mida-chat/pkg/options/llm"
	logopts "github.com/kart-io/mida-chat/pkg/options/logger"
	middlewareopts "github.com/kart-io/mida-chat/pkg/options/middleware"
	milvusopts "github.com/kart-io/mida-chat/pkg/options/milvus"
	httpopts "github.com/kart-io/mida-chat/pkg/options/server/http"
	tracingopts "github.com/kart-io/mida-chat/pkg/options/tracing"
)

// Name is the name of the application.
const Name = "mida-chat"

// Config contains application-related configurations.
type Config struct {
	HTTPOptions       *httpopts.Options
	LogOptions        *logopts.Options
	TracingOptions    *tracingopts.Options
	MiddlewareOptions *middlewareopts.Options
	MilvusOptions     *milvusopts.Options
	ChatOptions       *chatopts.Options
	CacheOptions      *cacheopts.Options
}

// Server represents the chat server.
type Server struct {
	srv      *server.Manager
	cleanups []func(context.Context) error
}

// NewServer initializes and returns a new Server instance.
func (cfg *Config) NewServer(ctx context.Context) (_ *Server, err error) {
	printBanner(cfg)
	s := &Server{}
	defer func() {
		if err != nil {
			s.cleanup(context.Background())
		}
	}()

	// 1. 初始化日志
	if err := app.InitLogger(cfg.LogOptions, Name); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Info("Starting chat service...")

	// 2. 初始化链路追踪
	cfg.TracingOptions.ServiceVersion = app.GetVersion()
	tp, err := tracing.NewProvider(ctx, cfg.TracingOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	s.onClose(tp.Shutdown)
	logger.Infow("Tracing initialized", "enabled", tp.Enabled())

	// 3. 初始化 Embedding 供应商（可选 Redis 缓存）
	embedProvider, closeCache, err := NewEmbeddingProvider(ctx, cfg.ChatOptions.Embedding, cfg.CacheOptions)
	if err != nil {
		return nil, err
	}
	s.onClose(closeCache)

	// 4. 加载段落索引
	vectorStore, err := OpenIndex(ctx, cfg.ChatOptions.Index, cfg.MilvusOptions)
	if err != nil {
		return nil, err
	}
	s.onClose(vectorStore.Close)
	if model := vectorStore.Model(); model != "" && model != cfg.ChatOptions.Embedding.Model {
		logger.Warnw("index was built with a different embedding model, retrieval quality may degrade",
			"index.model", model,
			"embedding.model", cfg.ChatOptions.Embedding.Model,
		)
	}

	// 5. 初始化 Chat 供应商
	chatProvider, err := llm.NewChatProvider(cfg.ChatOptions.LLM.Provider, cfg.ChatOptions.LLM.ToConfigMap())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize chat provider: %w", err)
	}
	logger.Infow("Chat provider initialized",
		"provider", cfg.ChatOptions.LLM.Provider,
		"model", cfg.ChatOptions.LLM.Model,
	)

	// 6. 初始化 Biz 层
	workers, err := pool.NewFromOptions("chat-turns", cfg.ChatOptions.Workers)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize worker pool: %w", err)
	}
	s.onClose(func(context.Context) error { workers.Release(); return nil })

	sessions := biz.NewMemorySessionStore(cfg.ChatOptions.Session.IdleTTL)
	s.onClose(func(context.Context) error { return sessions.Close() })

	chatService := biz.NewChatService(vectorStore, embedProvider, chatProvider, sessions, workers, &biz.ServiceConfig{
		TopK:         cfg.ChatOptions.Retrieval.TopK,
		SystemPolicy: cfg.ChatOptions.Prompt.SystemPolicy,
	})
	logger.Infow("Chat service initialized",
		"retrieval.top_k", cfg.ChatOptions.Retrieval.TopK,
		"session.idle_ttl", cfg.ChatOptions.Session.IdleTTL,
		"workers.capacity", cfg.ChatOptions.Workers.Capacity,
	)

	// 7. 初始化 Handler 层与路由
	engine := router.NewEngine(cfg.HTTPOptions.Mode, cfg.MiddlewareOptions)
	router.Register(engine, &router.Handlers{
		Page: handler.NewPageHandler(chatService, cfg.ChatOptions.Session.CookieName),
		Chat: handler.NewChatHandler(chatService),
		Ops:  handler.NewOpsHandler(chatService, Name),
	})

	// 8. 初始化服务器
	s.srv = server.NewManager(cfg.HTTPOptions.ShutdownTimeout, server.NewHTTPServer(cfg.HTTPOptions, engine))

	logger.Infow("Chat service is ready", "addr", cfg.HTTPOptions.Addr)
	return s, nil
}

// Run starts the server and blocks until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	defer s.cleanup(context.Background())
	return s.srv.Run(ctx)
}

func (s *Server) onClose(fn func(context.Context) error) {
	if fn != nil {
		s.cleanups = append(s.cleanups, fn)
	}
}

// cleanup 逆序释放资源，错误只记录日志。
func (s *Server) cleanup(ctx context.Context) {
	for i := len(s.cleanups) - 1; i >= 0; i-- {
		if err := s.cleanups[i](ctx); err != nil {
			logger.Warnw("failed to release resource", "error", err.Error())
		}
	}
	s.cleanups = nil
}

// OpenIndex opens the passage index selected by opts. A missing or corrupt
// index is an error; the caller owns the returned store.
func OpenIndex(ctx context.Context, opts *chatopts.IndexOptions, milvusOptions *milvusopts.Options) (store.VectorStore, error) {
	switch opts.Backend {
	case chatopts.BackendMilvus:
		client, err := milvus.New(ctx, milvusOptions)
		if err != nil {
			return nil, err
		}
		logger.Infow("Milvus client initialized", "address", milvusOptions.Address)
		ms := store.NewMilvusStore(client, opts.Path)
		if err := ms.Open(ctx); err != nil {
			_ = ms.Close(ctx)
			return nil, fmt.Errorf("failed to open passage index: %w", err)
		}
		return ms, nil
	case chatopts.BackendFile:
		idx, err := store.LoadIndex(opts.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to load passage index: %w", err)
		}
		logger.Infow("Passage index loaded",
			"path", opts.Path,
			"passages", idx.Len(),
			"dimension", idx.Dimension(),
			"model", idx.Model(),
		)
		return idx, nil
	default:
		return nil, fmt.Errorf("unknown index backend %q", opts.Backend)
	}
}

// NewEmbeddingProvider creates the embedding provider, wrapped with the Redis
// cache when enabled. An unreachable Redis disables the cache with a warning.
// The returned close function may be nil.
func NewEmbeddingProvider(
	ctx context.Context,
	opts *llmopts.ProviderOptions,
	cacheOptions *cacheopts.Options,
) (llm.EmbeddingProvider, func(context.Context) error, error) {
	provider, err := llm.NewEmbeddingProvider(opts.Provider, opts.ToConfigMap())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize embedding provider: %w", err)
	}
	logger.Infow("Embedding provider initialized",
		"provider", opts.Provider,
		"model", opts.Model,
	)

	if cacheOptions == nil || !cacheOptions.Enabled {
		logger.Info("Embedding cache is disabled")
		return provider, nil, nil
	}

	rdb, err := redis.New(ctx, cacheOptions.Redis)
	if err != nil {
		logger.Warnw("failed to connect to redis, embedding cache will be disabled", "error", err.Error())
		return provider, nil, nil
	}
	logger.Infow("Embedding cache initialized",
		"addr", cacheOptions.Redis.Addr(),
		"ttl", cacheOptions.TTL,
	)

	cached := llm.NewCachedEmbeddingProvider(provider, opts.Model, rdb.Client(), &llm.EmbeddingCacheConfig{
		Enabled:   true,
		TTL:       cacheOptions.TTL,
		KeyPrefix: cacheOptions.KeyPrefix,
	})
	return cached, func(context.Context) error { return rdb.Close() }, nil
}

func printBanner(cfg *Config) {
	fmt.Printf("Starting %s...\n", Name)
	fmt.Printf("  Index: %s (%s)\n", cfg.ChatOptions.Index.Backend, cfg.ChatOptions.Index.Path)
	fmt.Printf("  Embedding: %s (%s)\n", cfg.ChatOptions.Embedding.Provider, cfg.ChatOptions.Embedding.Model)
	fmt.Printf("  Chat: %s (%s)\n", cfg.ChatOptions.LLM.Provider, cfg.ChatOptions.LLM.Model)
}
