// Package apkbuild extracts metadata from APKBUILD build descriptors.
package apkbuild

import (
	"context"
	"os"
	"strconv"
	"strings"

	"github.com/ralt/alpkit/internal/models"
	"github.com/sirupsen/logrus"
)

// ParseConfig configures Parse.
type ParseConfig struct {
	// ArchAll is what "all" and "noarch" expand to. Nil means ArchAll.
	ArchAll []string
}

// Config configures a Reader.
type Config struct {
	Eval  EvalConfig
	Parse ParseConfig
}

// DefaultConfig returns the Reader defaults.
func DefaultConfig() Config {
	return Config{Eval: DefaultEvalConfig()}
}

// Reader evaluates and parses descriptors.
type Reader struct {
	evaluator *Evaluator
	cfg       ParseConfig
}

// NewReader creates a Reader.
func NewReader(cfg Config) *Reader {
	return &Reader{evaluator: NewEvaluator(cfg.Eval), cfg: cfg.Parse}
}

// Read evaluates the descriptor at path and parses the result.
func (r *Reader) Read(ctx context.Context, path string) (*models.Apkbuild, error) {
	text, err := os.ReadFile(path)
	if err != nil {
		return nil, models.WithPath(models.NewError(models.ErrFileOp, err), path)
	}

	raw, err := r.evaluator.Evaluate(ctx, path)
	if err != nil {
		return nil, err
	}

	fields, err := DecodeOutput(raw)
	if err != nil {
		return nil, models.WithPath(err, path)
	}

	return Parse(fields, text, r.cfg), nil
}

// Parse builds descriptor metadata from evaluated fields and the raw
// descriptor text, from which comment-only data is read. Invalid values are
// reported in the result's Warnings, so Parse itself never fails.
func Parse(fields Fields, text []byte, cfg ParseConfig) *models.Apkbuild {
	archAll := cfg.ArchAll
	if archAll == nil {
		archAll = ArchAll
	}

	var warnings models.Warnings
	scalar := func(name string) string {
		v, _ := fields.Scalar(name)
		return v
	}
	deps := func(name string) []models.Dependency {
		return models.ParseDependencies(name, fields.List(name), &warnings)
	}

	a := &models.Apkbuild{
		Name:         scalar("pkgname"),
		Version:      scalar("pkgver"),
		Description:  scalar("pkgdesc"),
		URL:          scalar("url"),
		License:      scalar("license"),
		PCPrefix:     scalar("pcprefix"),
		SonamePrefix: scalar("sonameprefix"),

		Depends:          deps("depends"),
		MakeDepends:      deps("makedepends"),
		MakeDependsBuild: deps("makedepends_build"),
		MakeDependsHost:  deps("makedepends_host"),
		CheckDepends:     deps("checkdepends"),
		InstallIf:        deps("install_if"),

		PkgUsers:  words("pkgusers", fields.List("pkgusers"), userNameRe.MatchString, &warnings),
		PkgGroups: words("pkggroups", fields.List("pkggroups"), userNameRe.MatchString, &warnings),
		Install:   words("install", fields.List("install"), nil, &warnings),
		Options:   words("options", fields.List("options"), negatableWordRe.MatchString, &warnings),
	}

	if a.Name != "" && !pkgnameRe.MatchString(a.Name) {
		warnings.Addf(models.WarnInvalidField, "pkgname", 0, "invalid package name %q", a.Name)
	}
	if a.Version != "" && !pkgverRe.MatchString(a.Version) {
		warnings.Addf(models.WarnInvalidField, "pkgver", 0, "invalid version %q", a.Version)
	}
	if v, ok := fields.Scalar("pkgrel"); ok {
		n, err := strconv.ParseUint(v, 10, 31)
		if err != nil {
			warnings.Addf(models.WarnInvalidField, "pkgrel", 0, "not a release number: %q", v)
		} else {
			a.Release = int(n)
		}
	}

	a.Arch = expandArch(fields.List("arch"), archAll)
	for _, arch := range a.Arch {
		if !wordRe.MatchString(arch) {
			warnings.Addf(models.WarnInvalidField, "arch", 0, "invalid architecture %q", arch)
		}
	}

	a.ProviderPriority = priority("provider_priority", fields, &warnings)
	a.Provides = models.WithPriority(deps("provides"), a.ProviderPriority)
	a.ReplacesPriority = priority("replaces_priority", fields, &warnings)
	a.Replaces = models.WithPriority(deps("replaces"), a.ReplacesPriority)

	a.Triggers = make([]models.Trigger, 0, len(fields.List("triggers")))
	for _, item := range fields.List("triggers") {
		name, pattern, ok := strings.Cut(item, "=")
		if !ok {
			warnings.Addf(models.WarnInvalidField, "triggers", 0, "trigger %q has no pattern", item)
		}
		a.Triggers = append(a.Triggers, models.Trigger{Name: name, Pattern: pattern})
	}

	a.Subpackages = make([]models.Subpackage, 0, len(fields.List("subpackages")))
	for _, item := range fields.List("subpackages") {
		parts := strings.SplitN(item, ":", 3)
		sub := models.Subpackage{Name: parts[0]}
		if len(parts) > 1 {
			sub.SplitFunc = parts[1]
		}
		if len(parts) > 2 {
			sub.Arch = parts[2]
		}
		if !pkgnameRe.MatchString(sub.Name) {
			warnings.Addf(models.WarnInvalidField, "subpackages", 0, "invalid package name %q", sub.Name)
		}
		a.Subpackages = append(a.Subpackages, sub)
	}

	a.Sources = pairSources(fields.List("source"), fields.List("sha512sums"), fields.List("sha256sums"), &warnings)

	lines := strings.Split(string(text), "\n")
	a.Maintainer = parseMaintainer(lines)
	a.Contributors = parseContributors(lines)
	a.Secfixes = parseSecfixes(lines, firstFunctionLine(text), &warnings)

	a.Raw = make(map[string]string, len(fields.Scalars))
	for k, v := range fields.Scalars {
		a.Raw[k] = v
	}

	a.Warnings = warnings
	for _, w := range warnings {
		logrus.Debugf("%s-%s-r%d: %s", a.Name, a.Version, a.Release, w)
	}
	return a
}

// words returns the items of a list field that valid accepts, reporting
// the others. A nil valid accepts everything.
func words(field string, items []string, valid func(string) bool, warnings *models.Warnings) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if valid != nil && !valid(item) {
			warnings.Addf(models.WarnInvalidField, field, 0, "invalid value %q", item)
			continue
		}
		out = append(out, item)
	}
	return out
}

func priority(field string, fields Fields, warnings *models.Warnings) *uint32 {
	v, ok := fields.Scalar(field)
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		warnings.Addf(models.WarnInvalidField, field, 0, "not a priority: %q", v)
		return nil
	}
	p := uint32(n)
	return &p
}
