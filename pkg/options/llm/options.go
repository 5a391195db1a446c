// Package llm provides LLM provider configuration options.
package llm

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/mida-chat/pkg/options"
)

var _ options.IOptions = (*ProviderOptions)(nil)

// ProviderOptions 定义 LLM 供应商配置。
type ProviderOptions struct {
	// Provider 供应商名称（bedrock, huggingface, ollama）。
	Provider string `json:"provider" mapstructure:"provider"`

	// BaseURL API 基础地址（HTTP 供应商使用）。
	BaseURL string `json:"base-url" mapstructure:"base-url"`

	// APIKey API 密钥（HuggingFace 需要）。
	APIKey string `json:"-" mapstructure:"api-key"`

	// Model 使用的模型名称。
	Model string `json:"model" mapstructure:"model"`

	// Timeout 请求超时时间，0 表示不限制。
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	// MaxRetries HTTP 供应商的最大重试次数。
	MaxRetries int `json:"max-retries" mapstructure:"max-retries"`

	// Region AWS 区域（Bedrock）。
	Region string `json:"region" mapstructure:"region"`

	// AccessKeyID AWS 访问密钥 ID（Bedrock）。
	AccessKeyID string `json:"-" mapstructure:"access-key-id"`

	// SecretAccessKey AWS 访问密钥（Bedrock）。
	SecretAccessKey string `json:"-" mapstructure:"secret-access-key"`

	// MaxGenLen 最大生成 token 数。
	MaxGenLen int `json:"max-gen-len" mapstructure:"max-gen-len"`

	// Temperature 采样温度。
	Temperature float64 `json:"temperature" mapstructure:"temperature"`

	// TopP nucleus 采样阈值。
	TopP float64 `json:"top-p" mapstructure:"top-p"`

	// PromptFormat 消息渲染为 prompt 字符串的格式（transcript, llama3）。
	PromptFormat string `json:"prompt-format" mapstructure:"prompt-format"`
}

// NewChatOptions 创建默认 Chat 供应商配置（Bedrock Llama 3 8B Instruct）。
func NewChatOptions() *ProviderOptions {
	return &ProviderOptions{
		Provider:     "bedrock",
		Model:        "meta.llama3-8b-instruct-v1:0",
		MaxGenLen:    512,
		Temperature:  0.5,
		TopP:         0.9,
		PromptFormat: "transcript",
	}
}

// NewEmbeddingOptions 创建默认 Embedding 供应商配置。
func NewEmbeddingOptions() *ProviderOptions {
	return &ProviderOptions{
		Provider: "huggingface",
		BaseURL:  "https://router.huggingface.co/hf-inference",
		Model:    "sentence-transformers/all-MiniLM-L6-v2",
		Timeout:  60 * time.Second,
	}
}

// ToConfigMap 转换为配置 map，用于供应商工厂。
func (o *ProviderOptions) ToConfigMap() map[string]any {
	return map[string]any{
		"base_url":          o.BaseURL,
		"api_key":           o.APIKey,
		"embed_model":       o.Model,
		"chat_model":        o.Model,
		"timeout":           o.Timeout,
		"max_retries":       o.MaxRetries,
		"region":            o.Region,
		"access_key_id":     o.AccessKeyID,
		"secret_access_key": o.SecretAccessKey,
		"max_gen_len":       o.MaxGenLen,
		"temperature":       o.Temperature,
		"top_p":             o.TopP,
		"prompt_format":     o.PromptFormat,
	}
}

// AddFlags adds flags for LLM provider options to the specified FlagSet.
func (o *ProviderOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...)
	fs.StringVar(&o.Provider, p+"provider", o.Provider, "Provider name (bedrock, huggingface, ollama).")
	fs.StringVar(&o.BaseURL, p+"base-url", o.BaseURL, "API base URL for HTTP providers.")
	fs.StringVar(&o.APIKey, p+"api-key", o.APIKey, "API key for HTTP providers.")
	fs.StringVar(&o.Model, p+"model", o.Model, "Model name.")
	fs.DurationVar(&o.Timeout, p+"timeout", o.Timeout, "Request timeout, 0 means unlimited.")
	fs.IntVar(&o.MaxRetries, p+"max-retries", o.MaxRetries, "Maximum retries for HTTP providers.")
	fs.StringVar(&o.Region, p+"region", o.Region, "AWS region (env REGION_NAME).")
	fs.StringVar(&o.AccessKeyID, p+"access-key-id", o.AccessKeyID, "AWS access key ID (env AWS_ACCESS_KEY_ID).")
	fs.StringVar(&o.SecretAccessKey, p+"secret-access-key", o.SecretAccessKey, "AWS secret access key (env AWS_SECRET_ACCESS_KEY).")
	fs.IntVar(&o.MaxGenLen, p+"max-gen-len", o.MaxGenLen, "Maximum generated tokens.")
	fs.Float64Var(&o.Temperature, p+"temperature", o.Temperature, "Sampling temperature.")
	fs.Float64Var(&o.TopP, p+"top-p", o.TopP, "Nucleus sampling threshold.")
	fs.StringVar(&o.PromptFormat, p+"prompt-format", o.PromptFormat, "Prompt rendering (transcript, llama3).")
}

// Complete 从环境变量补全 Bedrock 凭证。
func (o *ProviderOptions) Complete() error {
	if o.Provider != "bedrock" {
		return nil
	}
	if o.Region == "" {
		o.Region = os.Getenv("REGION_NAME")
	}
	if o.AccessKeyID == "" {
		o.AccessKeyID = os.Getenv("AWS_ACCESS_KEY_ID")
	}
	if o.SecretAccessKey == "" {
		o.SecretAccessKey = os.Getenv("AWS_SECRET_ACCESS_KEY")
	}
	return nil
}

// Validate validates the LLM provider options.
func (o *ProviderOptions) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.Provider == "" {
		errs = append(errs, fmt.Errorf("provider is required"))
	}
	if o.Model == "" {
		errs = append(errs, fmt.Errorf("model is required"))
	}
	if o.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout must not be negative"))
	}

	switch o.Provider {
	case "bedrock":
		if o.Region == "" {
			errs = append(errs, fmt.Errorf("region is required for bedrock provider (REGION_NAME)"))
		}
		if o.AccessKeyID == "" {
			errs = append(errs, fmt.Errorf("access-key-id is required for bedrock provider (AWS_ACCESS_KEY_ID)"))
		}
		if o.SecretAccessKey == "" {
			errs = append(errs, fmt.Errorf("secret-access-key is required for bedrock provider (AWS_SECRET_ACCESS_KEY)"))
		}
	case "huggingface", "ollama":
		if o.BaseURL == "" {
			errs = append(errs, fmt.Errorf("base-url is required for %s provider", o.Provider))
		}
	}

	switch o.PromptFormat {
	case "", "transcript", "llama3":
	default:
		errs = append(errs, fmt.Errorf("prompt-format %q is not one of transcript, llama3", o.PromptFormat))
	}
	return errs
}
