package config

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment contract.
const (
	EnvPrefix     = "SEASONSIM_"
	EnvConfigFile = "SEASONSIM_CONFIG"
)

// LoadOption customizes Load.
type LoadOption func(*loadOptions)

type loadOptions struct {
	file      string
	overrides map[string]any
}

// WithFile loads the given YAML file instead of $SEASONSIM_CONFIG.
func WithFile(path string) LoadOption {
	return func(o *loadOptions) {
		if path != "" {
			o.file = path
		}
	}
}

// WithOverrides applies explicit values (typically CLI flags) last.
// Keys are koanf keys such as "trials" or "seed".
func WithOverrides(values map[string]any) LoadOption {
	return func(o *loadOptions) {
		for k, v := range values {
			o.overrides[k] = v
		}
	}
}

// Load builds a Config by layering defaults, optional file, env vars and
// explicit overrides. Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) from WithFile or SEASONSIM_CONFIG
//  3. env (prefix SEASONSIM_)
//  4. overrides
func Load(ctx context.Context, opts ...LoadOption) (*Config, error) {
	o := loadOptions{file: os.Getenv(EnvConfigFile), overrides: map[string]any{}}
	for _, opt := range opts {
		opt(&o)
	}

	base := New()
	k := koanf.New(".")

	if o.file != "" {
		if err := k.Load(file.Provider(o.file), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: read %s: %w", ErrLoadConfig, o.file, err)
		}
	}

	// SEASONSIM_TRIALS -> trials. Underscores are kept to match the koanf tags.
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, strings.ToLower(EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}
	k.Delete("config")

	keys := make([]string, 0, len(o.overrides))
	for key := range o.overrides {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if err := k.Set(key, o.overrides[key]); err != nil {
			return nil, fmt.Errorf("%w: override %s: %w", ErrLoadConfig, key, err)
		}
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
