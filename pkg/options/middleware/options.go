// Package middleware provides HTTP middleware options.
package middleware

import (
	"github.com/spf13/pflag"

	"github.com/kart-io/mida-chat/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options configures the gin middleware chain.
type Options struct {
	// EnableStackTrace returns panic stacks to clients. Ignored when
	// APP_ENV is production.
	EnableStackTrace bool `json:"enable-stack-trace" mapstructure:"enable-stack-trace"`

	// SkipPaths are not access-logged or traced.
	SkipPaths []string `json:"skip-paths" mapstructure:"skip-paths"`

	// Tracing wraps requests in server spans.
	Tracing bool `json:"tracing" mapstructure:"tracing"`
}

// NewOptions returns middleware defaults.
func NewOptions() *Options {
	return &Options{
		SkipPaths: []string{"/healthz", "/readyz"},
		Tracing:   true,
	}
}

// AddFlags adds middleware flags.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...) + "middleware."
	fs.BoolVar(&o.EnableStackTrace, p+"enable-stack-trace", o.EnableStackTrace, "Return panic stack traces to clients (non-production only).")
	fs.StringSliceVar(&o.SkipPaths, p+"skip-paths", o.SkipPaths, "Paths excluded from access logs and tracing.")
	fs.BoolVar(&o.Tracing, p+"tracing", o.Tracing, "Start a server span per request.")
}

// Validate validates the middleware options.
func (o *Options) Validate() []error {
	return nil
}
