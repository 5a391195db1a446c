// Package options contains flags and options for initializing the chat server.
package options

import (
	"fmt"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	chatsvc "github.com/kart-io/mida-chat/internal/chat"
	cliflag "github.com/kart-io/mida-chat/pkg/app/cliflag"
	cacheopts "github.com/kart-io/mida-chat/pkg/options/cache"
	chatopts "github.com/kart-io/mida-chat/pkg/options/chat"
	logopts "github.com/kart-io/mida-chat/pkg/options/logger"
	middlewareopts "github.com/kart-io/mida-chat/pkg/options/middleware"
	milvusopts "github.com/kart-io/mida-chat/pkg/options/milvus"
	httpopts "github.com/kart-io/mida-chat/pkg/options/server/http"
	tracingopts "github.com/kart-io/mida-chat/pkg/options/tracing"
)

// ServerOptions contains the configuration options for the server.
type ServerOptions struct {
	// HTTPOptions contains HTTP server configuration.
	HTTPOptions *httpopts.Options `json:"http" mapstructure:"http"`

	// LogOptions contains logger configuration.
	LogOptions *logopts.Options `json:"log" mapstructure:"log"`

	// TracingOptions contains OpenTelemetry configuration.
	TracingOptions *tracingopts.Options `json:"tracing" mapstructure:"tracing"`

	// MiddlewareOptions contains HTTP middleware configuration.
	MiddlewareOptions *middlewareopts.Options `json:"middleware" mapstructure:"middleware"`

	// MilvusOptions is used when chat.index.backend is milvus.
	MilvusOptions *milvusopts.Options `json:"milvus" mapstructure:"milvus"`

	// ChatOptions contains index, retrieval, prompt, session and provider configuration.
	ChatOptions *chatopts.Options `json:"chat" mapstructure:"chat"`

	// CacheOptions contains the embedding cache configuration.
	CacheOptions *cacheopts.Options `json:"cache" mapstructure:"cache"`
}

// NewServerOptions creates a ServerOptions instance with default values.
func NewServerOptions() *ServerOptions {
	return &ServerOptions{
		HTTPOptions:       httpopts.NewOptions(),
		LogOptions:        logopts.NewOptions(),
		TracingOptions:    tracingopts.NewOptions(),
		MiddlewareOptions: middlewareopts.NewOptions(),
		MilvusOptions:     milvusopts.NewOptions(),
		ChatOptions:       chatopts.NewOptions(),
		CacheOptions:      cacheopts.NewOptions(),
	}
}

// Flags returns flags for a specific server by section name.
func (o *ServerOptions) Flags() (fss cliflag.NamedFlagSets) {
	o.HTTPOptions.AddFlags(fss.FlagSet("http"))
	o.LogOptions.AddFlags(fss.FlagSet("log"))
	o.TracingOptions.AddFlags(fss.FlagSet("tracing"))
	o.MiddlewareOptions.AddFlags(fss.FlagSet("middleware"))
	o.MilvusOptions.AddFlags(fss.FlagSet("milvus"))
	o.ChatOptions.AddFlags(fss.FlagSet("chat"))
	o.CacheOptions.AddFlags(fss.FlagSet("cache"))
	return fss
}

// Complete completes all the required options.
func (o *ServerOptions) Complete() error {
	if err := o.HTTPOptions.Complete(); err != nil {
		return err
	}
	if err := o.TracingOptions.Complete(); err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	if err := o.ChatOptions.Complete(); err != nil {
		return err
	}
	if err := o.CacheOptions.Complete(); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	return nil
}

// Validate checks whether the options in ServerOptions are valid.
func (o *ServerOptions) Validate() error {
	errs := []error{}

	errs = append(errs, o.HTTPOptions.Validate()...)
	errs = append(errs, o.LogOptions.Validate()...)
	errs = append(errs, o.TracingOptions.Validate()...)
	errs = append(errs, o.MiddlewareOptions.Validate()...)
	errs = append(errs, o.ChatOptions.Validate()...)
	errs = append(errs, o.CacheOptions.Validate()...)
	if o.ChatOptions.Index.Backend == chatopts.BackendMilvus {
		errs = append(errs, o.MilvusOptions.Validate()...)
	}

	return utilerrors.NewAggregate(errs)
}

// Config builds a chatsvc.Config based on ServerOptions.
func (o *ServerOptions) Config() (*chatsvc.Config, error) {
	return &chatsvc.Config{
		HTTPOptions:       o.HTTPOptions,
		LogOptions:        o.LogOptions,
		TracingOptions:    o.TracingOptions,
		MiddlewareOptions: o.MiddlewareOptions,
		MilvusOptions:     o.MilvusOptions,
		ChatOptions:       o.ChatOptions,
		CacheOptions:      o.CacheOptions,
	}, nil
}
