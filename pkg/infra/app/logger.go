package app

import (
	logopts "github.com/kart-io/mida-chat/pkg/options/logger"
)

// InitLogger installs the global logger, stamping every entry with the
// service name and build version.
func InitLogger(opts *logopts.Options, name string) error {
	return opts.WithService(name, GetVersion()).Init()
}
