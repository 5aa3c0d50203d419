package worktree

import (
	"time"

	"github.com/dottey/cupctl/pkg/logger"
)

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger used for per-file resolution reporting.
func WithLogger(l logger.Logger) Option {
	return func(r *Resolver) {
		r.logger = l
	}
}

// WithClock overrides the timestamp source used when archiving the
// combined-data file. Tests pin it for stable filenames.
func WithClock(clock func() time.Time) Option {
	return func(r *Resolver) {
		r.clock = clock
	}
}
