// Package options contains flags and options for the index builder.
package options

import (
	"fmt"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	chatsvc "github.com/kart-io/mida-chat/internal/chat"
	cliflag "github.com/kart-io/mida-chat/pkg/app/cliflag"
	cacheopts "github.com/kart-io/mida-chat/pkg/options/cache"
	chatopts "github.com/kart-io/mida-chat/pkg/options/chat"
	indexopts "github.com/kart-io/mida-chat/pkg/options/index"
	llmopts "github.com/kart-io/mida-chat/pkg/options/llm"
	logopts "github.com/kart-io/mida-chat/pkg/options/logger"
	milvusopts "github.com/kart-io/mida-chat/pkg/options/milvus"
	poolopts "github.com/kart-io/mida-chat/pkg/options/pool"
)

// IndexOptions contains the configuration options for the index builder.
type IndexOptions struct {
	LogOptions       *logopts.Options         `json:"log" mapstructure:"log"`
	IndexOptions     *indexopts.Options       `json:"index" mapstructure:"index"`
	EmbeddingOptions *llmopts.ProviderOptions `json:"embedding" mapstructure:"embedding"`
	WorkerOptions    *poolopts.Options        `json:"workers" mapstructure:"workers"`
	MilvusOptions    *milvusopts.Options      `json:"milvus" mapstructure:"milvus"`
	CacheOptions     *cacheopts.Options       `json:"cache" mapstructure:"cache"`
}

// NewIndexOptions creates an IndexOptions instance with default values.
func NewIndexOptions() *IndexOptions {
	workers := poolopts.NewOptions()
	workers.Capacity = 4

	return &IndexOptions{
		LogOptions:       logopts.NewOptions(),
		IndexOptions:     indexopts.NewOptions(),
		EmbeddingOptions: llmopts.NewEmbeddingOptions(),
		WorkerOptions:    workers,
		MilvusOptions:    milvusopts.NewOptions(),
		CacheOptions:     cacheopts.NewOptions(),
	}
}

// Flags returns flags grouped by section.
func (o *IndexOptions) Flags() (fss cliflag.NamedFlagSets) {
	o.LogOptions.AddFlags(fss.FlagSet("log"))
	o.IndexOptions.AddFlags(fss.FlagSet("index"))
	o.EmbeddingOptions.AddFlags(fss.FlagSet("embedding"), "embedding")
	o.WorkerOptions.AddFlags(fss.FlagSet("workers"))
	o.MilvusOptions.AddFlags(fss.FlagSet("milvus"))
	o.CacheOptions.AddFlags(fss.FlagSet("cache"))
	return fss
}

// Complete completes all the required options.
func (o *IndexOptions) Complete() error {
	if err := o.IndexOptions.Complete(); err != nil {
		return err
	}
	if err := o.EmbeddingOptions.Complete(); err != nil {
		return fmt.Errorf("embedding: %w", err)
	}
	if err := o.WorkerOptions.Complete(); err != nil {
		return err
	}
	return o.CacheOptions.Complete()
}

// Validate checks whether the options are valid.
func (o *IndexOptions) Validate() error {
	errs := []error{}

	errs = append(errs, o.LogOptions.Validate()...)
	errs = append(errs, o.IndexOptions.Validate()...)
	for _, err := range o.EmbeddingOptions.Validate() {
		errs = append(errs, fmt.Errorf("embedding: %w", err))
	}
	errs = append(errs, o.WorkerOptions.Validate()...)
	errs = append(errs, o.CacheOptions.Validate()...)
	if o.IndexOptions.Backend == chatopts.BackendMilvus {
		errs = append(errs, o.MilvusOptions.Validate()...)
	}

	return utilerrors.NewAggregate(errs)
}

// Config builds a chatsvc.BuildConfig.
func (o *IndexOptions) Config() *chatsvc.BuildConfig {
	return &chatsvc.BuildConfig{
		LogOptions:       o.LogOptions,
		IndexOptions:     o.IndexOptions,
		EmbeddingOptions: o.EmbeddingOptions,
		WorkerOptions:    o.WorkerOptions,
		MilvusOptions:    o.MilvusOptions,
		CacheOptions:     o.CacheOptions,
	}
}
