package biz

import (
	"strings"

	"github.com/kart-io/mida-chat/pkg/llm"
)

// ContextPlaceholder 在系统策略中标记检索段落的插入位置。
const ContextPlaceholder = "{context}"

// DefaultSystemPolicy 默认系统策略。
const DefaultSystemPolicy = "You are a knowledgeable and friendly assistant specialized in answering questions about MIDA Malaysia. " +
	"Your goal is to provide clear, direct answers to the questions the user asks, without generating additional questions or follow-up responses. " +
	"Only answer the specific question that the user provides. " +
	"Do not introduce new questions, continue the conversation, or provide extra context unless asked. " +
	"Do not include any prefixes such as 'Answer:' or 'Human:' in your response.\n\n" +
	ContextPlaceholder

const passageSeparator = "\n\n"

// Prompt 是发给生成模型的两段式提示：系统消息和用户问题。
type Prompt struct {
	System string
	Human  string
}

// Messages 转换为 Chat 供应商使用的消息列表。
func (p Prompt) Messages() []llm.Message {
	return []llm.Message{
		{Role: llm.RoleSystem, Content: p.System},
		{Role: llm.RoleUser, Content: p.Human},
	}
}

// Compose 组装提示。纯函数，passages 可以为 nil。
func Compose(policy string, passages *RetrievedSet, question string) Prompt {
	joined := strings.Join(passages.Texts(), passageSeparator)

	var system string
	if strings.Contains(policy, ContextPlaceholder) {
		system = strings.ReplaceAll(policy, ContextPlaceholder, joined)
	} else {
		system = policy + passageSeparator + joined
	}

	return Prompt{System: system, Human: question}
}
