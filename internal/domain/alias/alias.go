// Package alias canonicalizes team codes across data vintages.
//
// Mappings are data: the built-in relocation table can be extended from
// configuration or a YAML file without code changes. Unknown codes pass
// through unchanged so the metadata lookup can report them.
package alias

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/okian/seasonsim/pkg/logger"
)

// builtin holds relocations and short codes seen across play-by-play vintages.
var builtin = map[string]string{ //nolint:gochecknoglobals // read-only default table
	"OAK": "LV",
	"LVR": "LV",
	"SD":  "LAC",
	"STL": "LAR",
	"LA":  "LAR",
	"WSH": "WAS",
	"JAC": "JAX",
	"ARZ": "ARI",
	"BLT": "BAL",
	"CLV": "CLE",
	"HST": "HOU",
}

// Normalizer maps raw team codes to one current code per franchise.
// It is safe for concurrent use once built.
type Normalizer struct {
	table  map[string]string
	extra  map[string]string
	logger logger.Logger
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithAliases merges extra mappings over the built-in table.
func WithAliases(m map[string]string) Option {
	return func(n *Normalizer) {
		for k, v := range m {
			n.extra[clean(k)] = clean(v)
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(n *Normalizer) {
		if l != nil {
			n.logger = l
		}
	}
}

// New builds a Normalizer. Alias chains (A -> B -> C) are collapsed so
// Normalize is a single lookup; a cycle is a configuration error.
func New(opts ...Option) (*Normalizer, error) {
	n := &Normalizer{
		extra:  map[string]string{},
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(n)
	}

	raw := make(map[string]string, len(builtin)+len(n.extra))
	for k, v := range builtin {
		raw[k] = v
	}
	for k, v := range n.extra {
		if k == "" || v == "" {
			continue
		}
		raw[k] = v
	}

	n.table = make(map[string]string, len(raw))
	for _, k := range sortedKeys(raw) {
		target, err := resolve(raw, k)
		if err != nil {
			return nil, err
		}
		if target != k {
			n.table[k] = target
		}
	}
	n.extra = nil
	n.logger.Debug(context.Background(), "alias table built", logger.Int("aliases", len(n.table)))
	return n, nil
}

// MustNew is New for the built-in table only, which cannot fail.
func MustNew() *Normalizer {
	n, err := New()
	if err != nil {
		panic(err)
	}
	return n
}

// Normalize returns the canonical code for raw. It is idempotent.
func (n *Normalizer) Normalize(raw string) string {
	code := clean(raw)
	if n == nil {
		return code
	}
	if v, ok := n.table[code]; ok {
		return v
	}
	return code
}

// Aliases returns a copy of the resolved table.
func (n *Normalizer) Aliases() map[string]string {
	out := make(map[string]string, len(n.table))
	for k, v := range n.table {
		out[k] = v
	}
	return out
}

// LoadFile reads a YAML mapping of raw code to canonical code. A file with
// an "aliases" key is accepted as well as a bare mapping.
func LoadFile(path string) (map[string]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAliasFile, err)
	}
	var wrapped struct {
		Aliases map[string]string `yaml:"aliases"`
	}
	if err := yaml.Unmarshal(b, &wrapped); err == nil && len(wrapped.Aliases) > 0 {
		return wrapped.Aliases, nil
	}
	var bare map[string]string
	if err := yaml.Unmarshal(b, &bare); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %w", ErrAliasFile, path, err)
	}
	return bare, nil
}

func resolve(raw map[string]string, start string) (string, error) {
	seen := map[string]struct{}{start: {}}
	cur := start
	for {
		next, ok := raw[cur]
		if !ok || next == cur {
			return cur, nil
		}
		if _, dup := seen[next]; dup {
			return "", fmt.Errorf("%w: %s -> %s", ErrAliasCycle, start, next)
		}
		seen[next] = struct{}{}
		cur = next
	}
}

func clean(s string) string { return strings.ToUpper(strings.TrimSpace(s)) }

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
