package lifecycle

import "github.com/dottey/cupctl/pkg/logger"

// Option applies a configuration option to the Manager.
type Option func(*Manager)

// WithLogger sets a custom logger for the manager.
func WithLogger(l logger.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithTemplateFormat names the formats registry entry used as the
// template when creating cups.
func WithTemplateFormat(code string) Option {
	return func(m *Manager) {
		if code != "" {
			m.templateFormat = code
		}
	}
}
