// Package pool provides worker pool options.
package pool

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/mida-chat/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options configures an ants-backed worker pool.
type Options struct {
	// Capacity is the maximum number of concurrently running workers.
	Capacity int `json:"capacity" mapstructure:"capacity"`
	// ExpiryDuration is how long an idle worker is kept.
	ExpiryDuration time.Duration `json:"expiry-duration" mapstructure:"expiry-duration"`
	// Nonblocking makes Submit fail instead of waiting when the pool is full.
	Nonblocking bool `json:"nonblocking" mapstructure:"nonblocking"`
	// MaxBlockingTasks caps waiting submitters, 0 means unlimited.
	MaxBlockingTasks int `json:"max-blocking-tasks" mapstructure:"max-blocking-tasks"`
}

// NewOptions returns pool defaults sized for chat turns.
func NewOptions() *Options {
	return &Options{
		Capacity:       64,
		ExpiryDuration: 10 * time.Second,
	}
}

// AddFlags adds pool flags under "<prefixes>.workers.".
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...) + "workers."
	fs.IntVar(&o.Capacity, p+"capacity", o.Capacity, "Maximum number of concurrent workers.")
	fs.DurationVar(&o.ExpiryDuration, p+"expiry-duration", o.ExpiryDuration, "Idle worker expiry.")
	fs.BoolVar(&o.Nonblocking, p+"nonblocking", o.Nonblocking, "Reject submissions when all workers are busy.")
	fs.IntVar(&o.MaxBlockingTasks, p+"max-blocking-tasks", o.MaxBlockingTasks, "Maximum waiting submissions, 0 means unlimited.")
}

// Validate validates the pool options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.Capacity <= 0 {
		errs = append(errs, fmt.Errorf("workers.capacity must be positive"))
	}
	if o.MaxBlockingTasks < 0 {
		errs = append(errs, fmt.Errorf("workers.max-blocking-tasks must not be negative"))
	}
	return errs
}

// Complete completes the pool options with defaults.
func (o *Options) Complete() error {
	if o.ExpiryDuration <= 0 {
		o.ExpiryDuration = 10 * time.Second
	}
	return nil
}
