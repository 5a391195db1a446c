package llm

import (
	"fmt"
	"strings"
)

// PromptFormat 决定文本补全类模型如何把消息列表渲染成单个 prompt。
type PromptFormat string

const (
	// FormatTranscript 渲染为 "System: ...\nHuman: ..." 对话记录。
	FormatTranscript PromptFormat = "transcript"
	// FormatLlama3 渲染为 Llama 3 instruct 模板。
	FormatLlama3 PromptFormat = "llama3"
)

// ParsePromptFormat 解析格式名，空字符串视为 transcript。
func ParsePromptFormat(s string) (PromptFormat, error) {
	switch PromptFormat(s) {
	case "", FormatTranscript:
		return FormatTranscript, nil
	case FormatLlama3:
		return FormatLlama3, nil
	default:
		return "", fmt.Errorf("unknown prompt format %q", s)
	}
}

// RenderPrompt 将消息渲染为 prompt 字符串。
func RenderPrompt(format PromptFormat, messages []Message) string {
	if format == FormatLlama3 {
		return renderLlama3(messages)
	}
	return renderTranscript(messages)
}

func transcriptLabel(role Role) string {
	switch role {
	case RoleSystem:
		return "System"
	case RoleAssistant:
		return "AI"
	default:
		return "Human"
	}
}

func renderTranscript(messages []Message) string {
	lines := make([]string, 0, len(messages))
	for _, msg := range messages {
		lines = append(lines, transcriptLabel(msg.Role)+": "+msg.Content)
	}
	return strings.Join(lines, "\n")
}

// renderLlama3 以 assistant 头结尾，模型从该位置开始续写。
func renderLlama3(messages []Message) string {
	var b strings.Builder
	b.WriteString("<|begin_of_text|>")
	for _, msg := range messages {
		b.WriteString("<|start_header_id|>")
		b.WriteString(string(msg.Role))
		b.WriteString("<|end_header_id|>\n\n")
		b.WriteString(msg.Content)
		b.WriteString("<|eot_id|>")
	}
	b.WriteString("<|start_header_id|>assistant<|end_header_id|>\n\n")
	return b.String()
}
