package models

import (
	_ "embed"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

//go:embed registry.yaml
var registryYAML []byte

// Capabilities describes a registry entry: the provider-qualified model path
// and a short description used for model selection.
type Capabilities struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// Registry maps short aliases (e.g. "gpt-5") to provider-qualified model paths
// (e.g. "openai/gpt-5"), optionally filtered down to an allow-list.
type Registry struct {
	models map[string]Capabilities
}

// NewRegistry parses the embedded model table. allowed is a comma-separated
// allow-list matched against aliases and path suffixes; empty means no
// restriction.
func NewRegistry(allowed string) (*Registry, error) {
	all := map[string]Capabilities{}
	if err := yaml.Unmarshal(registryYAML, &all); err != nil {
		return nil, errors.Wrap(err, "failed to parse embedded model registry")
	}

	if strings.TrimSpace(allowed) == "" {
		return &Registry{models: all}, nil
	}

	allowedNames := map[string]bool{}
	for _, name := range strings.Split(allowed, ",") {
		name = strings.ToLower(strings.TrimSpace(name))
		if name != "" {
			allowedNames[name] = true
		}
	}

	filtered := map[string]Capabilities{}
	for key, m := range all {
		if allowedNames[strings.ToLower(key)] {
			filtered[key] = m
			continue
		}
		if idx := strings.LastIndex(m.Name, "/"); idx >= 0 {
			if allowedNames[strings.ToLower(m.Name[idx+1:])] {
				filtered[key] = m
			}
		}
	}

	return &Registry{models: filtered}, nil
}

// Aliases returns the short names in deterministic order.
func (r *Registry) Aliases() []string {
	ret := make([]string, 0, len(r.models))
	for key := range r.models {
		ret = append(ret, key)
	}
	sort.Strings(ret)
	return ret
}

// Get returns the capabilities for a short alias.
func (r *Registry) Get(alias string) (Capabilities, bool) {
	m, ok := r.models[alias]
	return m, ok
}

// Resolve maps a model name to its provider-qualified path. Names that already
// contain a provider prefix pass through unchanged; otherwise the alias table
// is consulted, then a path-suffix match. Returns "" when nothing matches.
func (r *Registry) Resolve(name string) string {
	if name == "" {
		return ""
	}

	// Already a full provider/model path.
	if strings.Contains(name, "/") {
		return name
	}

	nameLower := strings.ToLower(name)
	if m, ok := r.models[nameLower]; ok {
		return m.Name
	}

	for _, m := range r.models {
		if strings.HasSuffix(m.Name, "/"+nameLower) {
			return m.Name
		}
	}

	return ""
}

// ShortName is the reverse lookup: full provider-qualified path to short alias.
// Returns "" when the path is not in the registry (custom paths stay verbatim
// at the caller).
func (r *Registry) ShortName(fullName string) string {
	if fullName == "" {
		return ""
	}
	for key, m := range r.models {
		if m.Name == fullName {
			return key
		}
	}
	return ""
}
