package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):.
//  1. defaults (New())
//  2. file (YAML) if CUPCTL_CONFIG is set
//  3. env (prefix CUPCTL_)
func Load(ctx context.Context) (*Config, error) {
	// Start with defaults
	base := New()

	k := koanf.New(".")

	// Load from file if provided
	if path := os.Getenv("CUPCTL_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: CUPCTL_ROOT, CUPCTL_TEMPLATE_FORMAT, ...
	// Map env keys like CUPCTL_DIST_DIR -> dist_dir (flat keys).
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("CUPCTL_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "cupctl_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// Unmarshal into a copy
	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// Basic validation
	if cfg.Root == "" {
		return nil, fmt.Errorf("%w: root must not be empty", ErrInvalidConfig)
	}
	if cfg.TemplateFormat == "" {
		return nil, fmt.Errorf("%w: template_format must not be empty", ErrInvalidConfig)
	}
	return &cfg, nil
}
