// Package config defines process configuration structures and loading hooks.
//
// Conventions:
// - Keep fields unexported where possible and use functional options.
// - Provide New() initializer to build a Config with defaults.
// - External errors must be wrapped via this package's error helpers.
package config

// DefaultRoot is the data root used when no override is configured.
// It matches the layout of a pvpoke source checkout.
const DefaultRoot = "/var/www/pvpoke/src/data"

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Root is the data root every artifact path is resolved against.
	Root string `koanf:"root"`

	// TemplateFormat names the formats registry entry used as the
	// template when deriving entries for newly created cups.
	TemplateFormat string `koanf:"template_format"`

	// DistDir receives packaged cup archives. Relative paths are
	// resolved against Root.
	DistDir string `koanf:"dist_dir"`

	// DistBaseURL is the base of the retrieval URL reported for
	// packaged archives.
	DistBaseURL string `koanf:"dist_base_url"`

	// MetricsDir is the node_exporter textfile collector directory.
	// Empty disables the metrics export.
	MetricsDir string `koanf:"metrics_dir"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:       "info",
		Root:           DefaultRoot,
		TemplateFormat: "all",
		DistDir:        "dist",
		DistBaseURL:    "https://builder.devon.gg/cups",
		MetricsDir:     "",
	}
}
