// Package chat provides the conversational retrieval options.
package chat

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/mida-chat/pkg/options"
	llmopts "github.com/kart-io/mida-chat/pkg/options/llm"
	poolopts "github.com/kart-io/mida-chat/pkg/options/pool"
)

var _ options.IOptions = (*Options)(nil)

const (
	// BackendFile loads passages from <path>/index.json into memory.
	BackendFile = "file"
	// BackendMilvus searches the Milvus collection named by path.
	BackendMilvus = "milvus"
)

// IndexOptions selects where passages come from.
type IndexOptions struct {
	Backend string `json:"backend" mapstructure:"backend"`
	Path    string `json:"path" mapstructure:"path"`
}

// RetrievalOptions controls similarity search.
type RetrievalOptions struct {
	TopK int `json:"top-k" mapstructure:"top-k"`
}

// PromptOptions controls prompt composition.
type PromptOptions struct {
	// SystemPolicy overrides the built-in policy. {context} marks where the
	// retrieved passages go. Empty means the built-in policy.
	SystemPolicy string `json:"system-policy" mapstructure:"system-policy"`
}

// SessionOptions controls in-memory conversation sessions.
type SessionOptions struct {
	// IdleTTL evicts sessions that saw no turn for this long. 0 disables eviction.
	IdleTTL time.Duration `json:"idle-ttl" mapstructure:"idle-ttl"`
	// CookieName is the browser cookie that carries the session ID.
	CookieName string `json:"cookie-name" mapstructure:"cookie-name"`
}

// Options contains everything the chat service needs besides the servers.
type Options struct {
	Index     *IndexOptions            `json:"index" mapstructure:"index"`
	Retrieval *RetrievalOptions        `json:"retrieval" mapstructure:"retrieval"`
	Prompt    *PromptOptions           `json:"prompt" mapstructure:"prompt"`
	Session   *SessionOptions          `json:"session" mapstructure:"session"`
	Workers   *poolopts.Options        `json:"workers" mapstructure:"workers"`
	LLM       *llmopts.ProviderOptions `json:"llm" mapstructure:"llm"`
	Embedding *llmopts.ProviderOptions `json:"embedding" mapstructure:"embedding"`
}

// NewOptions returns chat defaults.
func NewOptions() *Options {
	return &Options{
		Index:     &IndexOptions{Backend: BackendFile, Path: "data/index"},
		Retrieval: &RetrievalOptions{TopK: 4},
		Prompt:    &PromptOptions{},
		Session:   &SessionOptions{IdleTTL: 24 * time.Hour, CookieName: "mida_session"},
		Workers:   poolopts.NewOptions(),
		LLM:       llmopts.NewChatOptions(),
		Embedding: llmopts.NewEmbeddingOptions(),
	}
}

// AddFlags adds flags under "<prefixes>.chat.".
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	prefixes = append(prefixes, "chat")
	p := options.Join(prefixes...)

	fs.StringVar(&o.Index.Backend, p+"index.backend", o.Index.Backend, "Passage index backend (file, milvus).")
	fs.StringVar(&o.Index.Path, p+"index.path", o.Index.Path, "Index directory (file) or collection name (milvus).")
	fs.IntVar(&o.Retrieval.TopK, p+"retrieval.top-k", o.Retrieval.TopK, "Number of passages retrieved per question.")
	fs.StringVar(&o.Prompt.SystemPolicy, p+"prompt.system-policy", o.Prompt.SystemPolicy, "System policy template, {context} is replaced by the passages.")
	fs.DurationVar(&o.Session.IdleTTL, p+"session.idle-ttl", o.Session.IdleTTL, "Evict sessions idle longer than this, 0 disables eviction.")
	fs.StringVar(&o.Session.CookieName, p+"session.cookie-name", o.Session.CookieName, "Cookie carrying the session ID.")

	o.Workers.AddFlags(fs, prefixes...)
	o.LLM.AddFlags(fs, append(prefixes, "llm")...)
	o.Embedding.AddFlags(fs, append(prefixes, "embedding")...)
}

// Complete fills provider credentials from the environment.
func (o *Options) Complete() error {
	o.Index.Backend = strings.ToLower(strings.TrimSpace(o.Index.Backend))
	if err := o.Workers.Complete(); err != nil {
		return err
	}
	if err := o.LLM.Complete(); err != nil {
		return fmt.Errorf("chat.llm: %w", err)
	}
	if err := o.Embedding.Complete(); err != nil {
		return fmt.Errorf("chat.embedding: %w", err)
	}
	return nil
}

// Validate validates the chat options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	switch o.Index.Backend {
	case BackendFile, BackendMilvus:
	default:
		errs = append(errs, fmt.Errorf("chat.index.backend %q is not one of file, milvus", o.Index.Backend))
	}
	if o.Index.Path == "" {
		errs = append(errs, fmt.Errorf("chat.index.path is required"))
	}
	if o.Retrieval.TopK < 0 {
		errs = append(errs, fmt.Errorf("chat.retrieval.top-k must not be negative"))
	}
	if o.Session.IdleTTL < 0 {
		errs = append(errs, fmt.Errorf("chat.session.idle-ttl must not be negative"))
	}
	if o.Session.CookieName == "" {
		errs = append(errs, fmt.Errorf("chat.session.cookie-name is required"))
	}

	errs = append(errs, o.Workers.Validate()...)
	for _, err := range o.LLM.Validate() {
		errs = append(errs, fmt.Errorf("chat.llm: %w", err))
	}
	for _, err := range o.Embedding.Validate() {
		errs = append(errs, fmt.Errorf("chat.embedding: %w", err))
	}
	return errs
}
