package biz

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kart-io/logger"
	"github.com/kart-io/mida-chat/pkg/llm"
)

// ErrGeneration 标记生成阶段的失败。
var ErrGeneration = errors.New("generation failed")

// Generator 调用 Chat 供应商生成原始回答。不重试、不缓存。
type Generator struct {
	chatProvider llm.ChatProvider
}

// NewGenerator 创建生成器实例。
func NewGenerator(chatProvider llm.ChatProvider) *Generator {
	return &Generator{chatProvider: chatProvider}
}

// Generate 返回模型原始输出，未经清理。
func (g *Generator) Generate(ctx context.Context, prompt Prompt) (string, error) {
	start := time.Now()
	raw, err := g.chatProvider.Chat(ctx, prompt.Messages())
	if err != nil && !errors.Is(err, llm.ErrEmptyResponse) {
		return "", fmt.Errorf("%w: %s: %w", ErrGeneration, g.chatProvider.Name(), err)
	}

	logger.Debugw("answer generated",
		"provider", g.chatProvider.Name(),
		"raw_len", len(raw),
		"elapsed", time.Since(start).String(),
	)
	return raw, nil
}
