package biz

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/kart-io/logger"
	"github.com/kart-io/mida-chat/internal/chat/metrics"
	"github.com/kart-io/mida-chat/internal/chat/store"
	"github.com/kart-io/mida-chat/pkg/infra/pool"
	"github.com/kart-io/mida-chat/pkg/infra/tracing"
	"github.com/kart-io/mida-chat/pkg/llm"
)

const tracerName = "mida-chat/biz"

// FallbackAnswer 在模型返回空回答时使用。
const FallbackAnswer = "I'm not sure."

var (
	// ErrEmptyQuestion 问题为空或只有空白。
	ErrEmptyQuestion = errors.New("question must not be empty")
	// ErrTurnInFlight 同一会话已有进行中的轮次。
	ErrTurnInFlight = errors.New("a turn is already in flight for this session")
	// ErrServiceUnavailable 工作池已满或已关闭。
	ErrServiceUnavailable = errors.New("chat service unavailable")
)

// TurnState 表示一轮问答所处的阶段。
type TurnState int32

const (
	StateIdle TurnState = iota
	StateAwaitingUserInput
	StateRetrieving
	StateGenerating
	StateSanitizing
	StateRendered
)

func (s TurnState) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateAwaitingUserInput:
		return "AwaitingUserInput"
	case StateRetrieving:
		return "Retrieving"
	case StateGenerating:
		return "Generating"
	case StateSanitizing:
		return "Sanitizing"
	case StateRendered:
		return "Rendered"
	default:
		return fmt.Sprintf("TurnState(%d)", int32(s))
	}
}

// ServiceConfig 对话服务配置。
type ServiceConfig struct {
	// TopK 每轮检索的段落数量。
	TopK int
	// SystemPolicy 系统策略，包含 {context} 占位符。
	SystemPolicy string
}

// TurnResult 是一轮成功问答的结果。
type TurnResult struct {
	SessionID string                `json:"session_id"`
	Question  string                `json:"question"`
	Answer    string                `json:"answer"`
	Raw       string                `json:"raw"`
	Passages  []*store.SearchResult `json:"passages"`
	Index     int                   `json:"index"`
	Duration  time.Duration         `json:"duration"`
}

// Service 定义对话服务接口。
type Service interface {
	// CreateSession 创建新会话。
	CreateSession(ctx context.Context) (*Session, error)
	// Session 获取已存在的会话。
	Session(ctx context.Context, sessionID string) (*Session, error)
	// SessionFor 获取会话，不存在时创建。
	SessionFor(ctx context.Context, sessionID string) (*Session, error)
	// Ask 执行一轮问答。
	Ask(ctx context.Context, sessionID, question string) (*TurnResult, error)
	// Index 返回索引状态。
	Index(ctx context.Context) (*IndexStats, error)
	// Stats 返回服务统计信息。
	Stats(ctx context.Context) (*ServiceStats, error)
	// Metrics 返回业务指标收集器。
	Metrics() *metrics.ChatMetrics
}

// ChatService 组合 Retriever、Generator 和 SessionStore，实现单轮问答状态机。
type ChatService struct {
	sessions  SessionStore
	retriever *Retriever
	generator *Generator
	workers   *pool.Pool
	metrics   *metrics.ChatMetrics
	config    *ServiceConfig

	vectorStore   store.VectorStore
	embedProvider llm.EmbeddingProvider
	chatProvider  llm.ChatProvider
}

// NewChatService 创建对话服务实例。workers 为 nil 时轮次在调用方 goroutine 中执行。
func NewChatService(
	vectorStore store.VectorStore,
	embedProvider llm.EmbeddingProvider,
	chatProvider llm.ChatProvider,
	sessions SessionStore,
	workers *pool.Pool,
	config *ServiceConfig,
) *ChatService {
	if config == nil {
		config = &ServiceConfig{}
	}
	if config.SystemPolicy == "" {
		config.SystemPolicy = DefaultSystemPolicy
	}
	return &ChatService{
		sessions:      sessions,
		retriever:     NewRetriever(vectorStore, embedProvider),
		generator:     NewGenerator(chatProvider),
		workers:       workers,
		metrics:       metrics.GetChatMetrics(),
		config:        config,
		vectorStore:   vectorStore,
		embedProvider: embedProvider,
		chatProvider:  chatProvider,
	}
}

// WithMetrics 替换指标收集器。
func (s *ChatService) WithMetrics(m *metrics.ChatMetrics) *ChatService {
	s.metrics = m
	return s
}

// Metrics 返回业务指标收集器。
func (s *ChatService) Metrics() *metrics.ChatMetrics { return s.metrics }

// CreateSession 创建新会话。
func (s *ChatService) CreateSession(ctx context.Context) (*Session, error) {
	sess, err := s.sessions.Create(ctx)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordSessionCreated()
	return sess, nil
}

// Session 获取已存在的会话。
func (s *ChatService) Session(ctx context.Context, sessionID string) (*Session, error) {
	return s.sessions.Get(ctx, sessionID)
}

// SessionFor 获取会话，不存在时创建新会话。
func (s *ChatService) SessionFor(ctx context.Context, sessionID string) (*Session, error) {
	sess, err := s.sessions.GetOrCreate(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.ID() != sessionID {
		s.metrics.RecordSessionCreated()
	}
	return sess, nil
}

// Ask 执行一轮问答。失败时会话保持不变，用户可以重试。
func (s *ChatService) Ask(ctx context.Context, sessionID, question string) (*TurnResult, error) {
	if strings.TrimSpace(question) == "" {
		return nil, ErrEmptyQuestion
	}

	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if !sess.tryBegin() {
		s.metrics.RecordRejected()
		return nil, fmt.Errorf("%w: %s", ErrTurnInFlight, sessionID)
	}
	logTransition(sess, StateIdle, StateAwaitingUserInput)
	defer func() {
		prev := sess.State()
		sess.setState(StateIdle)
		logTransition(sess, prev, StateIdle)
	}()

	start := time.Now()
	var result *TurnResult
	run := func(ctx context.Context) error {
		var runErr error
		result, runErr = s.runTurn(ctx, sess, question)
		return runErr
	}

	if s.workers != nil {
		err = s.workers.Go(ctx, run)
		if errors.Is(err, pool.ErrPoolOverload) || errors.Is(err, pool.ErrPoolClosed) {
			err = fmt.Errorf("%w: %w", ErrServiceUnavailable, err)
		}
	} else {
		err = run(ctx)
	}

	s.metrics.RecordTurn(time.Since(start), err)
	if err != nil {
		logger.Warnw("chat turn failed",
			"session_id", sessionID,
			"state", sess.State().String(),
			"error", err.Error(),
		)
		return nil, err
	}

	result.Duration = time.Since(start)
	logger.Infow("chat turn completed",
		"session_id", sessionID,
		"index", result.Index,
		"passages", len(result.Passages),
		"duration", result.Duration.String(),
	)
	return result, nil
}

func (s *ChatService) runTurn(ctx context.Context, sess *Session, question string) (*TurnResult, error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "chat.turn")
	defer span.End()
	tracing.AddSpanAttributes(ctx,
		attribute.String("session.id", sess.ID()),
		attribute.Int("question.length", len(question)),
	)

	// 1. 检索
	s.transition(sess, StateRetrieving)
	retrieved, err := s.retrieve(ctx, question)
	if err != nil {
		tracing.RecordError(ctx, err)
		return nil, err
	}

	// 2. 生成
	s.transition(sess, StateGenerating)
	prompt := Compose(s.config.SystemPolicy, retrieved, question)
	raw, err := s.generate(ctx, prompt)
	if err != nil {
		tracing.RecordError(ctx, err)
		return nil, err
	}
	if strings.TrimSpace(raw) == "" {
		s.metrics.RecordFallback()
		raw = FallbackAnswer
	}

	// 3. 清理
	s.transition(sess, StateSanitizing)
	answer := Sanitize(raw)

	// 4. 渲染：用户与助手消息一次性追加
	now := time.Now()
	sess.Append(
		Turn{Role: llm.RoleUser, Text: question, CreatedAt: now},
		Turn{Role: llm.RoleAssistant, Text: answer, CreatedAt: now},
	)
	s.transition(sess, StateRendered)

	return &TurnResult{
		SessionID: sess.ID(),
		Question:  question,
		Answer:    answer,
		Raw:       raw,
		Passages:  retrieved.Passages,
		Index:     sess.Questions(),
	}, nil
}

func (s *ChatService) retrieve(ctx context.Context, question string) (*RetrievedSet, error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "chat.retrieve")
	defer span.End()

	start := time.Now()
	retrieved, err := s.retriever.Retrieve(ctx, question, s.config.TopK)
	s.metrics.RecordRetrieval(time.Since(start), err)
	if err != nil {
		tracing.RecordError(ctx, err)
		return nil, err
	}
	tracing.AddSpanAttributes(ctx, attribute.Int("passages", len(retrieved.Passages)))
	return retrieved, nil
}

func (s *ChatService) generate(ctx context.Context, prompt Prompt) (string, error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "chat.generate")
	defer span.End()

	start := time.Now()
	raw, err := s.generator.Generate(ctx, prompt)
	s.metrics.RecordGeneration(time.Since(start), err)
	if err != nil {
		tracing.RecordError(ctx, err)
		return "", err
	}
	return raw, nil
}

func (s *ChatService) transition(sess *Session, to TurnState) {
	from := sess.State()
	sess.setState(to)
	logTransition(sess, from, to)
}

func logTransition(sess *Session, from, to TurnState) {
	logger.Debugw("turn state changed",
		"session_id", sess.ID(),
		"from", from.String(),
		"to", to.String(),
	)
}

// IndexStats 索引状态。
type IndexStats struct {
	Backend  string `json:"backend"`
	Model    string `json:"model,omitempty"`
	Passages int64  `json:"passages"`
}

// ServiceStats 服务统计信息，用于 /v1/chat/stats。
type ServiceStats struct {
	Index             IndexStats       `json:"index"`
	EmbeddingProvider string           `json:"embedding_provider"`
	ChatProvider      string           `json:"chat_provider"`
	TopK              int              `json:"top_k"`
	Workers           *pool.Stats      `json:"workers,omitempty"`
	Metrics           metrics.Snapshot `json:"metrics"`
}

// Index 返回索引状态。索引不可用时返回错误。
func (s *ChatService) Index(ctx context.Context) (*IndexStats, error) {
	count, err := s.vectorStore.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to count passages: %w", ErrServiceUnavailable, err)
	}
	return &IndexStats{
		Backend:  s.vectorStore.Backend(),
		Model:    s.vectorStore.Model(),
		Passages: count,
	}, nil
}

// Stats 返回服务统计信息。
func (s *ChatService) Stats(ctx context.Context) (*ServiceStats, error) {
	index, err := s.Index(ctx)
	if err != nil {
		return nil, err
	}

	snapshot := s.metrics.Snapshot()
	snapshot.Sessions.Active = s.sessions.Count()

	stats := &ServiceStats{
		Index:             *index,
		EmbeddingProvider: s.embedProvider.Name(),
		ChatProvider:      s.chatProvider.Name(),
		TopK:              s.config.TopK,
		Metrics:           snapshot,
	}
	if s.workers != nil {
		ws := s.workers.Stats()
		stats.Workers = &ws
	}
	return stats, nil
}

// 确保 ChatService 实现了 Service 接口。
var _ Service = (*ChatService)(nil)
