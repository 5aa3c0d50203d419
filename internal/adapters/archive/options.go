package archive

import "github.com/dottey/cupctl/pkg/logger"

// Option configures a Packager.
type Option func(*Packager)

// WithLogger sets the logger used for packaging diagnostics.
func WithLogger(l logger.Logger) Option {
	return func(p *Packager) {
		p.logger = l
	}
}
