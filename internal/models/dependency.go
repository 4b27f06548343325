package models

import (
	"fmt"
	"strings"
)

// Comparators recognized in version constraints, longest first so that a
// scan picks the longest match.
var comparators = []string{">=", "<=", "~=", "><", "=", ">", "<", "~"}

// Dependency is a named requirement (or conflict) on a package or virtual
// provider, optionally restricted by a version constraint.
type Dependency struct {
	Name string `json:"name" yaml:"name"`

	// Op is one of =, >=, <=, >, <, ~=, ~ or >< and is empty for a bare
	// name constraint.
	Op      string `json:"op,omitempty" yaml:"op,omitempty"`
	Version string `json:"version,omitempty" yaml:"version,omitempty"`

	// Conflict is set for anti-dependencies written as !name.
	Conflict bool `json:"conflict,omitempty" yaml:"conflict,omitempty"`

	// RepoPin is the repository tag after @, e.g. foo@testing.
	RepoPin string `json:"repo_pin,omitempty" yaml:"repo_pin,omitempty"`

	// Priority is the provider or replaces priority that applies to this
	// entry, if one was declared.
	Priority *uint32 `json:"priority,omitempty" yaml:"priority,omitempty"`
}

// ParseDependency parses a dependency string such as "ruby>=3.0",
// "!sample-legacy" or "so:libc.musl-x86_64.so.1".
func ParseDependency(s string) (Dependency, error) {
	var dep Dependency

	s = strings.TrimSpace(s)
	if s == "" {
		return dep, fmt.Errorf("empty dependency")
	}

	if rest, ok := strings.CutPrefix(s, "!"); ok {
		dep.Conflict = true
		s = rest
	}

	if i := strings.LastIndexByte(s, '@'); i >= 0 {
		dep.RepoPin = s[i+1:]
		s = s[:i]
		if dep.RepoPin == "" {
			return dep, fmt.Errorf("invalid dependency %q: empty repository pin", s)
		}
	}

	idx := strings.IndexAny(s, "<>=~")
	if idx < 0 {
		dep.Name = s
	} else {
		dep.Name = s[:idx]
		op, version, err := splitConstraint(s[idx:])
		if err != nil {
			return dep, fmt.Errorf("invalid dependency %q: %w", s, err)
		}
		dep.Op = op
		dep.Version = version
	}

	if dep.Name == "" {
		return dep, fmt.Errorf("invalid dependency %q: missing name", s)
	}
	if strings.ContainsAny(dep.Name, " \t\n!") {
		return dep, fmt.Errorf("invalid dependency %q: malformed name", s)
	}
	return dep, nil
}

// splitConstraint splits "<op><version>" by the longest matching comparator.
func splitConstraint(s string) (string, string, error) {
	end := 0
	for end < len(s) && strings.IndexByte("<>=~", s[end]) >= 0 {
		end++
	}
	token := s[:end]

	for _, op := range comparators {
		if token == op {
			version := strings.TrimSpace(s[end:])
			if version == "" {
				return "", "", fmt.Errorf("missing version after %q", op)
			}
			return op, version, nil
		}
	}
	return "", "", fmt.Errorf("unknown comparator %q", token)
}

// String renders the dependency in apk's compact syntax.
func (d Dependency) String() string {
	var b strings.Builder
	if d.Conflict {
		b.WriteByte('!')
	}
	b.WriteString(d.Name)
	if d.Op != "" {
		b.WriteString(d.Op)
		b.WriteString(d.Version)
	}
	if d.RepoPin != "" {
		b.WriteByte('@')
		b.WriteString(d.RepoPin)
	}
	return b.String()
}

// ParseDependencies parses each item, reporting failures as warnings on
// field and skipping the offending entries.
func ParseDependencies(field string, items []string, warnings *Warnings) []Dependency {
	deps := make([]Dependency, 0, len(items))
	for _, item := range items {
		dep, err := ParseDependency(item)
		if err != nil {
			warnings.Addf(WarnInvalidField, field, 0, "%v", err)
			continue
		}
		deps = append(deps, dep)
	}
	return deps
}

// WithPriority returns a copy of deps whose entries carry priority p.
func WithPriority(deps []Dependency, p *uint32) []Dependency {
	if p == nil {
		return deps
	}
	out := make([]Dependency, len(deps))
	for i, d := range deps {
		v := *p
		d.Priority = &v
		out[i] = d
	}
	return out
}
