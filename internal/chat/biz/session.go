package biz

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kart-io/logger"
	"github.com/kart-io/mida-chat/internal/pkg/textutil"
	"github.com/kart-io/mida-chat/pkg/llm"
	"github.com/kart-io/mida-chat/pkg/utils/id"
)

// Greeting 是每个新会话的第一条助手消息。
const Greeting = "Hello! I'm here to help you with any questions you have about MIDA Malaysia and investment opportunities. Feel free to ask me anything!"

// exchangeLabelRunes 是折叠标题中问题的最大字符数。
const exchangeLabelRunes = 50

var (
	// ErrSessionNotFound 会话不存在或已过期。
	ErrSessionNotFound = errors.New("session not found")
	// ErrStoreClosed 会话存储已关闭。
	ErrStoreClosed = errors.New("session store closed")
)

// Turn 是会话中的一条消息。
type Turn struct {
	Role      llm.Role  `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Exchange 是一问一答，用于页面折叠展示。
type Exchange struct {
	// Index 从 1 开始的问题序号。
	Index    int    `json:"index"`
	Label    string `json:"label"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Session 保存一个浏览器会话的对话记录。只追加，不删除、不重排。
type Session struct {
	id        string
	createdAt time.Time

	mu         sync.RWMutex
	turns      []Turn
	lastActive time.Time

	state atomic.Int32
}

// NewSession 创建会话，并写入问候语作为唯一的一条助手消息。
func NewSession(id string) *Session {
	now := time.Now()
	return &Session{
		id:         id,
		createdAt:  now,
		lastActive: now,
		turns:      []Turn{{Role: llm.RoleAssistant, Text: Greeting, CreatedAt: now}},
	}
}

// ID 返回会话 ID。
func (s *Session) ID() string { return s.id }

// CreatedAt 返回会话创建时间。
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// Append 原子地追加消息。
func (s *Session) Append(turns ...Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = append(s.turns, turns...)
	s.lastActive = time.Now()
}

// All 返回全部消息的副本。
func (s *Session) All() []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// Len 返回消息数量。
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.turns)
}

// Questions 返回已回答的问题数量。
func (s *Session) Questions() int {
	return (s.Len() - 1) / 2
}

// Pairs 按顺序返回一问一答。问候语不参与配对。
func (s *Session) Pairs() []Exchange {
	turns := s.All()
	pairs := make([]Exchange, 0, len(turns)/2)
	for i := 1; i+1 < len(turns); i += 2 {
		q, a := turns[i], turns[i+1]
		if q.Role != llm.RoleUser || a.Role != llm.RoleAssistant {
			continue
		}
		n := i/2 + 1
		pairs = append(pairs, Exchange{
			Index:    n,
			Label:    ExchangeLabel(n, q.Text),
			Question: q.Text,
			Answer:   a.Text,
		})
	}
	return pairs
}

// ExchangeLabel 生成折叠标题，例如 "Question 1: What is MIDA?..."。
func ExchangeLabel(n int, question string) string {
	return fmt.Sprintf("Question %d: %s...", n, textutil.TruncateRunes(question, exchangeLabelRunes))
}

// LastActive 返回最后一次活动时间。
func (s *Session) LastActive() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastActive
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastActive = time.Now()
	s.mu.Unlock()
}

// State 返回当前轮次状态。
func (s *Session) State() TurnState { return TurnState(s.state.Load()) }

// Busy 报告当前是否有一轮问答在进行。
func (s *Session) Busy() bool { return s.State() != StateIdle }

// tryBegin 从 Idle 进入 AwaitingUserInput，已有进行中的轮次时返回 false。
func (s *Session) tryBegin() bool {
	return s.state.CompareAndSwap(int32(StateIdle), int32(StateAwaitingUserInput))
}

func (s *Session) setState(state TurnState) { s.state.Store(int32(state)) }

// SessionStore 会话存储接口。
type SessionStore interface {
	// Create 创建新会话。
	Create(ctx context.Context) (*Session, error)
	// Get 获取会话，不存在时返回 ErrSessionNotFound。
	Get(ctx context.Context, id string) (*Session, error)
	// GetOrCreate 获取会话，不存在时创建一个新 ID 的会话。
	GetOrCreate(ctx context.Context, id string) (*Session, error)
	// Count 返回当前会话数。
	Count() int
	// Close 停止后台清理。
	Close() error
}

// MemorySessionStore 进程内会话存储，空闲超过 idleTTL 的会话会被清理。
type MemorySessionStore struct {
	idleTTL time.Duration
	ids     id.Generator

	mu       sync.RWMutex
	sessions map[string]*Session

	closed atomic.Bool
	stopCh chan struct{}
	doneCh chan struct{}
}

var _ SessionStore = (*MemorySessionStore)(nil)

// NewMemorySessionStore 创建内存会话存储。idleTTL 为 0 时不清理。
func NewMemorySessionStore(idleTTL time.Duration) *MemorySessionStore {
	s := &MemorySessionStore{
		idleTTL:  idleTTL,
		ids:      id.NewULIDGenerator(),
		sessions: make(map[string]*Session),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	if idleTTL > 0 {
		go s.sweepLoop(sweepInterval(idleTTL))
	} else {
		close(s.doneCh)
	}
	return s
}

func sweepInterval(ttl time.Duration) time.Duration {
	interval := ttl / 2
	if interval > time.Minute {
		interval = time.Minute
	}
	if interval < time.Second {
		interval = time.Second
	}
	return interval
}

// Create 创建新会话。
func (s *MemorySessionStore) Create(_ context.Context) (*Session, error) {
	if s.closed.Load() {
		return nil, ErrStoreClosed
	}
	sess := NewSession(s.ids.Generate())

	s.mu.Lock()
	s.sessions[sess.ID()] = sess
	s.mu.Unlock()

	logger.Debugw("session created", "session_id", sess.ID())
	return sess, nil
}

// Get 获取会话。已过期但尚未被清理的会话也视为不存在。
// 查找与 touch 在写锁内完成，sweep 不会删除刚被取出的会话。
func (s *MemorySessionStore) Get(_ context.Context, sessionID string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok || s.expired(sess, time.Now()) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	sess.touch()
	return sess, nil
}

// GetOrCreate 获取会话，不存在时创建新会话。新会话的 ID 与传入的不同。
func (s *MemorySessionStore) GetOrCreate(ctx context.Context, sessionID string) (*Session, error) {
	if sessionID != "" {
		sess, err := s.Get(ctx, sessionID)
		if err == nil {
			return sess, nil
		}
		if !errors.Is(err, ErrSessionNotFound) {
			return nil, err
		}
	}
	return s.Create(ctx)
}

// Count 返回当前会话数。
func (s *MemorySessionStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Close 停止后台清理并等待其退出。
func (s *MemorySessionStore) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	close(s.stopCh)
	<-s.doneCh
	return nil
}

func (s *MemorySessionStore) expired(sess *Session, now time.Time) bool {
	if s.idleTTL <= 0 || sess.Busy() {
		return false
	}
	return now.Sub(sess.LastActive()) > s.idleTTL
}

func (s *MemorySessionStore) sweepLoop(interval time.Duration) {
	defer close(s.doneCh)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case now := <-ticker.C:
			s.sweep(now)
		}
	}
}

// sweep 删除空闲超时的会话，返回删除数量。
func (s *MemorySessionStore) sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for sid, sess := range s.sessions {
		if s.expired(sess, now) {
			delete(s.sessions, sid)
			evicted++
		}
	}
	if evicted > 0 {
		logger.Debugw("idle sessions evicted", "count", evicted, "remaining", len(s.sessions))
	}
	return evicted
}
