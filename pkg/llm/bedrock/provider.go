// Package bedrock 提供 AWS Bedrock Runtime 上的 Meta Llama 文本补全供应商。
// 只实现 ChatProvider，Embedding 由其他供应商负责。
package bedrock

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/kart-io/logger"

	"github.com/kart-io/mida-chat/pkg/llm"
	"github.com/kart-io/mida-chat/pkg/utils/json"
)

// ProviderName 是 Bedrock 供应商的名称标识符。
const ProviderName = "bedrock"

func init() {
	llm.RegisterChatProvider(ProviderName, NewProvider)
}

// Config Bedrock 供应商配置。
type Config struct {
	Region          string `json:"region" mapstructure:"region"`
	AccessKeyID     string `json:"-" mapstructure:"access_key_id"`
	SecretAccessKey string `json:"-" mapstructure:"secret_access_key"`
	ModelID         string `json:"chat_model" mapstructure:"chat_model"`

	// Endpoint 覆盖默认的 Bedrock Runtime 地址，为空时使用区域默认地址。
	Endpoint string `json:"base_url" mapstructure:"base_url"`

	// Timeout 单次调用超时，0 表示不限制。
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	MaxGenLen    int              `json:"max_gen_len" mapstructure:"max_gen_len"`
	Temperature  float64          `json:"temperature" mapstructure:"temperature"`
	TopP         float64          `json:"top_p" mapstructure:"top_p"`
	PromptFormat llm.PromptFormat `json:"prompt_format" mapstructure:"prompt_format"`
}

// DefaultConfig 返回 Llama 3 8B Instruct 的默认配置。
func DefaultConfig() *Config {
	return &Config{
		ModelID:      "meta.llama3-8b-instruct-v1:0",
		MaxGenLen:    512,
		Temperature:  0.5,
		TopP:         0.9,
		PromptFormat: llm.FormatTranscript,
	}
}

// invoker 是 bedrockruntime.Client 中本供应商用到的部分。
type invoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// Provider Bedrock 供应商实现。
type Provider struct {
	config *Config
	client invoker
}

// NewProvider 从配置 map 创建 Bedrock 供应商。
func NewProvider(configMap map[string]any) (llm.ChatProvider, error) {
	cfg := DefaultConfig()
	cfg.Region = llm.ConfigString(configMap, "region", cfg.Region)
	cfg.AccessKeyID = llm.ConfigString(configMap, "access_key_id", cfg.AccessKeyID)
	cfg.SecretAccessKey = llm.ConfigString(configMap, "secret_access_key", cfg.SecretAccessKey)
	cfg.ModelID = llm.ConfigString(configMap, "chat_model", cfg.ModelID)
	cfg.Endpoint = llm.ConfigString(configMap, "base_url", cfg.Endpoint)
	cfg.Timeout = llm.ConfigDuration(configMap, "timeout", cfg.Timeout)
	cfg.MaxGenLen = llm.ConfigInt(configMap, "max_gen_len", cfg.MaxGenLen)
	cfg.Temperature = llm.ConfigFloat(configMap, "temperature", cfg.Temperature)
	cfg.TopP = llm.ConfigFloat(configMap, "top_p", cfg.TopP)

	format, err := llm.ParsePromptFormat(llm.ConfigString(configMap, "prompt_format", string(cfg.PromptFormat)))
	if err != nil {
		return nil, fmt.Errorf("bedrock: %w", err)
	}
	cfg.PromptFormat = format

	return NewProviderWithConfig(context.Background(), cfg)
}

// NewProviderWithConfig 使用结构化配置创建 Bedrock 供应商。
// SDK 重试被关闭，每次 Chat 只发出一次请求。
func NewProviderWithConfig(ctx context.Context, cfg *Config) (*Provider, error) {
	if cfg.Region == "" {
		return nil, fmt.Errorf("bedrock: region is required")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithRetryMaxAttempts(1),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("bedrock: failed to load aws config: %w", err)
	}

	client := bedrockruntime.NewFromConfig(awsCfg, func(o *bedrockruntime.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	logger.Infow("bedrock provider initialized", "region", cfg.Region, "model", cfg.ModelID, "prompt_format", cfg.PromptFormat)
	return &Provider{config: cfg, client: client}, nil
}

// Name 返回供应商名称。
func (p *Provider) Name() string {
	return ProviderName
}

// llamaRequest 是 Meta Llama 模型的 InvokeModel 请求体。
type llamaRequest struct {
	Prompt      string  `json:"prompt"`
	MaxGenLen   int     `json:"max_gen_len"`
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
}

type llamaResponse struct {
	Generation           *string `json:"generation"`
	PromptTokenCount     int     `json:"prompt_token_count"`
	GenerationTokenCount int     `json:"generation_token_count"`
	StopReason           string  `json:"stop_reason"`
}

// Chat 渲染 prompt 并调用 InvokeModel，返回未经处理的 generation 文本。
func (p *Provider) Chat(ctx context.Context, messages []llm.Message) (string, error) {
	body, err := json.Marshal(llamaRequest{
		Prompt:      llm.RenderPrompt(p.config.PromptFormat, messages),
		MaxGenLen:   p.config.MaxGenLen,
		Temperature: p.config.Temperature,
		TopP:        p.config.TopP,
	})
	if err != nil {
		return "", fmt.Errorf("bedrock: failed to encode request: %w", err)
	}

	if p.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.config.Timeout)
		defer cancel()
	}

	out, err := p.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(p.config.ModelID),
		Body:        body,
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("bedrock invoke %s: %w", p.config.ModelID, err)
	}

	var resp llamaResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return "", fmt.Errorf("bedrock: malformed response: %w", err)
	}
	if resp.Generation == nil {
		return "", fmt.Errorf("bedrock: malformed response: missing generation")
	}

	logger.Debugw("bedrock generation finished",
		"model", p.config.ModelID,
		"prompt_tokens", resp.PromptTokenCount,
		"generation_tokens", resp.GenerationTokenCount,
		"stop_reason", resp.StopReason,
	)
	return *resp.Generation, nil
}
