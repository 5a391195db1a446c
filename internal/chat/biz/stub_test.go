package biz

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kart-io/mida-chat/internal/chat/store"
	"github.com/kart-io/mida-chat/pkg/llm"
)

// stubEmbedder 对任意文本返回固定向量。
type stubEmbedder struct {
	vector []float32
	err    error
	calls  atomic.Int32
}

func (e *stubEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.calls.Add(1)
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = append([]float32(nil), e.vector...)
	}
	return out, nil
}

func (e *stubEmbedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (e *stubEmbedder) Name() string { return "stub-embed" }

// stubChat 记录收到的消息并返回预设回答。
type stubChat struct {
	mu       sync.Mutex
	answer   string
	err      error
	messages [][]llm.Message
	// block 非 nil 时 Chat 等待其关闭。
	block   chan struct{}
	started chan struct{}
}

func (c *stubChat) Chat(_ context.Context, messages []llm.Message) (string, error) {
	c.mu.Lock()
	c.messages = append(c.messages, messages)
	c.mu.Unlock()

	if c.started != nil {
		close(c.started)
	}
	if c.block != nil {
		<-c.block
	}
	return c.answer, c.err
}

func (c *stubChat) Name() string { return "stub-chat" }

func (c *stubChat) lastMessages() []llm.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.messages) == 0 {
		return nil
	}
	return c.messages[len(c.messages)-1]
}

const midaPassage = "MIDA stands for Malaysian Investment Development Authority."

func midaIndex(t *testing.T) *store.MemoryIndex {
	t.Helper()
	idx, err := store.NewMemoryIndex("stub-embed", []*store.Passage{
		{ID: "p1", Text: midaPassage, Source: "mida.txt", Vector: []float32{1, 0, 0}},
	})
	require.NoError(t, err)
	return idx
}
