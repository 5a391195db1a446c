// Package huggingface 提供 HuggingFace Inference API 供应商实现。
// Embedding 使用 feature-extraction pipeline，Chat 使用 text-generation。
package huggingface

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kart-io/mida-chat/pkg/llm"
	"github.com/kart-io/mida-chat/pkg/utils/httpclient"
	"github.com/kart-io/mida-chat/pkg/utils/json"
)

// ProviderName 是 HuggingFace 供应商的名称标识符
const ProviderName = "huggingface"

func init() {
	llm.RegisterProvider(ProviderName, NewProvider)
}

// Config HuggingFace 供应商配置。
type Config struct {
	// BaseURL API 基础地址。
	BaseURL string `json:"base_url" mapstructure:"base_url"`

	// APIKey HuggingFace API Token，公开模型可以为空。
	APIKey string `json:"-" mapstructure:"api_key"`

	// EmbedModel 用于生成嵌入的模型 ID。
	EmbedModel string `json:"embed_model" mapstructure:"embed_model"`

	// ChatModel 用于生成回答的模型 ID。
	ChatModel string `json:"chat_model" mapstructure:"chat_model"`

	// Timeout 请求超时时间，0 表示不限制。
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	// MaxRetries 5xx 时的重试次数。
	MaxRetries int `json:"max_retries" mapstructure:"max_retries"`

	MaxNewTokens int     `json:"max_gen_len" mapstructure:"max_gen_len"`
	Temperature  float64 `json:"temperature" mapstructure:"temperature"`
	TopP         float64 `json:"top_p" mapstructure:"top_p"`

	// PromptFormat 消息渲染格式。
	PromptFormat llm.PromptFormat `json:"prompt_format" mapstructure:"prompt_format"`
}

// DefaultConfig 返回默认配置。
func DefaultConfig() *Config {
	return &Config{
		BaseURL:      "https://router.huggingface.co/hf-inference",
		EmbedModel:   "sentence-transformers/all-MiniLM-L6-v2",
		ChatModel:    "meta-llama/Meta-Llama-3-8B-Instruct",
		Timeout:      60 * time.Second,
		MaxNewTokens: 512,
		Temperature:  0.5,
		TopP:         0.9,
		PromptFormat: llm.FormatTranscript,
	}
}

// Provider HuggingFace 供应商实现。
type Provider struct {
	config *Config
	client *httpclient.Client
}

// NewProvider 从配置 map 创建 HuggingFace 供应商。
func NewProvider(configMap map[string]any) (llm.Provider, error) {
	cfg := DefaultConfig()
	cfg.BaseURL = strings.TrimRight(llm.ConfigString(configMap, "base_url", cfg.BaseURL), "/")
	cfg.APIKey = llm.ConfigString(configMap, "api_key", cfg.APIKey)
	cfg.EmbedModel = llm.ConfigString(configMap, "embed_model", cfg.EmbedModel)
	cfg.ChatModel = llm.ConfigString(configMap, "chat_model", cfg.ChatModel)
	cfg.Timeout = llm.ConfigDuration(configMap, "timeout", cfg.Timeout)
	cfg.MaxRetries = llm.ConfigNonNegativeInt(configMap, "max_retries", cfg.MaxRetries)
	cfg.MaxNewTokens = llm.ConfigInt(configMap, "max_gen_len", cfg.MaxNewTokens)
	cfg.Temperature = llm.ConfigFloat(configMap, "temperature", cfg.Temperature)
	cfg.TopP = llm.ConfigFloat(configMap, "top_p", cfg.TopP)

	format, err := llm.ParsePromptFormat(llm.ConfigString(configMap, "prompt_format", string(cfg.PromptFormat)))
	if err != nil {
		return nil, fmt.Errorf("huggingface: %w", err)
	}
	cfg.PromptFormat = format

	return NewProviderWithConfig(cfg), nil
}

// NewProviderWithConfig 使用结构化配置创建 HuggingFace 供应商。
func NewProviderWithConfig(cfg *Config) *Provider {
	return &Provider{
		config: cfg,
		client: httpclient.NewClient(cfg.Timeout, cfg.MaxRetries),
	}
}

// Name 返回供应商名称。
func (p *Provider) Name() string {
	return ProviderName
}

type embeddingRequest struct {
	Inputs []string `json:"inputs"`
}

// Embed 为多个文本生成向量嵌入。
// sentence-transformers 模型返回 [n][dim]，部分模型返回 token 级别的 [n][tokens][dim]，此时取平均。
func (p *Provider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	url := fmt.Sprintf("%s/models/%s/pipeline/feature-extraction", p.config.BaseURL, p.config.EmbedModel)
	var raw json.RawMessage
	if err := p.client.PostJSON(ctx, url, p.headers(), embeddingRequest{Inputs: texts}, &raw); err != nil {
		return nil, fmt.Errorf("huggingface embed: %w", err)
	}

	embeddings, err := decodeEmbeddings(raw)
	if err != nil {
		return nil, fmt.Errorf("huggingface embed: %w", err)
	}
	if len(embeddings) != len(texts) {
		return nil, fmt.Errorf("huggingface embed: got %d vectors for %d inputs", len(embeddings), len(texts))
	}
	return embeddings, nil
}

func decodeEmbeddings(raw []byte) ([][]float32, error) {
	var embeddings [][]float32
	if err := json.Unmarshal(raw, &embeddings); err == nil {
		return embeddings, nil
	}

	var tokenEmbeddings [][][]float32
	if err := json.Unmarshal(raw, &tokenEmbeddings); err != nil {
		return nil, fmt.Errorf("failed to decode feature-extraction output: %w", err)
	}
	embeddings = make([][]float32, len(tokenEmbeddings))
	for i, tokens := range tokenEmbeddings {
		embeddings[i] = meanPool(tokens)
	}
	return embeddings, nil
}

func meanPool(tokens [][]float32) []float32 {
	if len(tokens) == 0 {
		return nil
	}
	out := make([]float32, len(tokens[0]))
	for _, token := range tokens {
		for j, v := range token {
			if j < len(out) {
				out[j] += v
			}
		}
	}
	for j := range out {
		out[j] /= float32(len(tokens))
	}
	return out
}

// EmbedSingle 为单个文本生成向量嵌入。
func (p *Provider) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := p.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 || len(embeddings[0]) == 0 {
		return nil, llm.ErrEmptyResponse
	}
	return embeddings[0], nil
}

type chatRequest struct {
	Inputs     string     `json:"inputs"`
	Parameters chatParams `json:"parameters"`
}

type chatParams struct {
	MaxNewTokens   int     `json:"max_new_tokens,omitempty"`
	Temperature    float64 `json:"temperature,omitempty"`
	TopP           float64 `json:"top_p,omitempty"`
	ReturnFullText bool    `json:"return_full_text"`
}

type chatResponse struct {
	GeneratedText string `json:"generated_text"`
}

// Chat 将消息渲染为 prompt 后调用 text-generation。
func (p *Provider) Chat(ctx context.Context, messages []llm.Message) (string, error) {
	req := chatRequest{
		Inputs: llm.RenderPrompt(p.config.PromptFormat, messages),
		Parameters: chatParams{
			MaxNewTokens: p.config.MaxNewTokens,
			Temperature:  p.config.Temperature,
			TopP:         p.config.TopP,
		},
	}

	url := fmt.Sprintf("%s/models/%s", p.config.BaseURL, p.config.ChatModel)
	var responses []chatResponse
	if err := p.client.PostJSON(ctx, url, p.headers(), req, &responses); err != nil {
		return "", fmt.Errorf("huggingface generate: %w", err)
	}
	if len(responses) == 0 {
		return "", fmt.Errorf("huggingface generate: %w", llm.ErrEmptyResponse)
	}
	return responses[0].GeneratedText, nil
}

func (p *Provider) headers() http.Header {
	h := http.Header{}
	if p.config.APIKey != "" {
		h.Set("Authorization", "Bearer "+p.config.APIKey)
	}
	return h
}
