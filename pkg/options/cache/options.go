// Package cache provides embedding cache options.
package cache

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/mida-chat/pkg/options"
	redisopts "github.com/kart-io/mida-chat/pkg/options/redis"
)

var _ options.IOptions = (*Options)(nil)

// Options 定义 Embedding 缓存配置。
type Options struct {
	// Enabled 是否启用 Redis 缓存。Redis 不可达时启动阶段自动降级为不缓存。
	Enabled bool `json:"enabled" mapstructure:"enabled"`

	// TTL 缓存过期时间，0 表示不过期。
	TTL time.Duration `json:"ttl" mapstructure:"ttl"`

	// KeyPrefix 缓存键前缀。
	KeyPrefix string `json:"key-prefix" mapstructure:"key-prefix"`

	// Redis 连接配置。
	Redis *redisopts.Options `json:"redis" mapstructure:"redis"`
}

// NewOptions 创建默认缓存配置，默认关闭。
func NewOptions() *Options {
	return &Options{
		Enabled:   false,
		TTL:       24 * time.Hour,
		KeyPrefix: "mida:emb:",
		Redis:     redisopts.NewOptions(),
	}
}

// AddFlags adds cache flags under "<prefixes>.cache.".
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...) + "cache."
	fs.BoolVar(&o.Enabled, p+"enabled", o.Enabled, "Cache query embeddings in Redis.")
	fs.DurationVar(&o.TTL, p+"ttl", o.TTL, "Embedding cache TTL, 0 means no expiry.")
	fs.StringVar(&o.KeyPrefix, p+"key-prefix", o.KeyPrefix, "Embedding cache key prefix.")
	o.Redis.AddFlags(fs, append(prefixes, "cache")...)
}

// Complete completes the nested Redis options.
func (o *Options) Complete() error {
	return o.Redis.Complete()
}

// Validate validates the cache options. Redis settings are only checked when
// the cache is enabled.
func (o *Options) Validate() []error {
	if o == nil || !o.Enabled {
		return nil
	}

	var errs []error
	if o.TTL < 0 {
		errs = append(errs, fmt.Errorf("cache.ttl must not be negative"))
	}
	if o.KeyPrefix == "" {
		errs = append(errs, fmt.Errorf("cache.key-prefix is required"))
	}
	return append(errs, o.Redis.Validate()...)
}
