// Package config loads alpkit settings from defaults, an optional YAML file
// and ALPKIT_* environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ralt/alpkit/internal/apk"
	"github.com/ralt/alpkit/internal/apkbuild"
	"github.com/ralt/alpkit/internal/models"
	"github.com/ralt/alpkit/internal/output"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment variables, e.g. ALPKIT_APKBUILD_TIMEOUT.
const EnvPrefix = "ALPKIT"

// Config holds all settings.
type Config struct {
	Apk      ApkConfig      `mapstructure:"apk"`
	Apkbuild ApkbuildConfig `mapstructure:"apkbuild"`
	Scan     ScanConfig     `mapstructure:"scan"`
	Output   OutputConfig   `mapstructure:"output"`
}

// ApkConfig configures container decoding.
type ApkConfig struct {
	MaxSegmentBytes  int64 `mapstructure:"max_segment_bytes"`
	SkipFiles        bool  `mapstructure:"skip_files"`
	StrictEntryKinds bool  `mapstructure:"strict_entry_kinds"`
}

// ApkbuildConfig configures descriptor evaluation.
type ApkbuildConfig struct {
	Shell   string        `mapstructure:"shell"`
	Timeout time.Duration `mapstructure:"timeout"`
	// Env entries are VAR=VALUE. A list keeps variable names case
	// sensitive, which map keys would not be.
	Env            []string `mapstructure:"env"`
	InheritEnv     bool     `mapstructure:"inherit_env"`
	ExtraVars      []string `mapstructure:"extra_vars"`
	MaxOutputBytes int64    `mapstructure:"max_output_bytes"`
	ArchAll        []string `mapstructure:"arch_all"`
}

// ScanConfig configures directory scans.
type ScanConfig struct {
	Jobs int `mapstructure:"jobs"`
}

// OutputConfig configures rendering.
type OutputConfig struct {
	Format string `mapstructure:"format"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	apkDefaults := apk.DefaultConfig()
	evalDefaults := apkbuild.DefaultEvalConfig()
	return &Config{
		Apk: ApkConfig{
			MaxSegmentBytes: apkDefaults.MaxSegmentBytes,
		},
		Apkbuild: ApkbuildConfig{
			Shell:          evalDefaults.Shell,
			Timeout:        evalDefaults.Timeout,
			Env:            []string{},
			MaxOutputBytes: evalDefaults.MaxOutputBytes,
			ArchAll:        append([]string(nil), apkbuild.ArchAll...),
		},
		Scan: ScanConfig{
			Jobs: 4,
		},
		Output: OutputConfig{
			Format: string(output.FormatJSON),
		},
	}
}

// Load reads the configuration. path names a YAML config file and may be
// empty.
func Load(path string) (*Config, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("apk.max_segment_bytes", defaults.Apk.MaxSegmentBytes)
	v.SetDefault("apk.skip_files", defaults.Apk.SkipFiles)
	v.SetDefault("apk.strict_entry_kinds", defaults.Apk.StrictEntryKinds)
	v.SetDefault("apkbuild.shell", defaults.Apkbuild.Shell)
	v.SetDefault("apkbuild.timeout", defaults.Apkbuild.Timeout)
	v.SetDefault("apkbuild.env", defaults.Apkbuild.Env)
	v.SetDefault("apkbuild.inherit_env", defaults.Apkbuild.InheritEnv)
	v.SetDefault("apkbuild.extra_vars", defaults.Apkbuild.ExtraVars)
	v.SetDefault("apkbuild.max_output_bytes", defaults.Apkbuild.MaxOutputBytes)
	v.SetDefault("apkbuild.arch_all", defaults.Apkbuild.ArchAll)
	v.SetDefault("scan.jobs", defaults.Scan.Jobs)
	v.SetDefault("output.format", defaults.Output.Format)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, models.WithPath(models.NewError(models.ErrInvalidConfig,
				fmt.Errorf("failed to read config file: %w", err)), path)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, models.NewError(models.ErrInvalidConfig, fmt.Errorf("failed to parse config: %w", err))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return models.NewError(models.ErrInvalidConfig, fmt.Errorf(format, args...))
	}

	if c.Apk.MaxSegmentBytes < 0 {
		return invalid("apk.max_segment_bytes must not be negative")
	}
	if c.Apkbuild.Shell == "" {
		return invalid("apkbuild.shell is required")
	}
	if c.Apkbuild.Timeout < 0 {
		return invalid("apkbuild.timeout must not be negative")
	}
	if _, err := ParseEnv(c.Apkbuild.Env); err != nil {
		return models.NewError(models.ErrInvalidConfig, fmt.Errorf("apkbuild.env: %w", err))
	}
	if c.Apkbuild.MaxOutputBytes < 0 {
		return invalid("apkbuild.max_output_bytes must not be negative")
	}
	if c.Scan.Jobs < 1 {
		return invalid("scan.jobs must be at least 1, got %d", c.Scan.Jobs)
	}
	if _, err := output.ParseFormat(c.Output.Format); err != nil {
		return invalid("output.format: %v", err)
	}
	return nil
}

// ApkConfig returns the container decoder settings.
func (c *Config) ApkConfig() apk.Config {
	return apk.Config{
		MaxSegmentBytes:  c.Apk.MaxSegmentBytes,
		SkipFiles:        c.Apk.SkipFiles,
		StrictEntryKinds: c.Apk.StrictEntryKinds,
	}
}

// ApkbuildConfig returns the descriptor reader settings. The configuration
// must have passed Validate.
func (c *Config) ApkbuildConfig() apkbuild.Config {
	env, _ := ParseEnv(c.Apkbuild.Env)
	return apkbuild.Config{
		Eval: apkbuild.EvalConfig{
			Shell:          c.Apkbuild.Shell,
			Timeout:        c.Apkbuild.Timeout,
			Env:            env,
			InheritEnv:     c.Apkbuild.InheritEnv,
			ExtraVars:      c.Apkbuild.ExtraVars,
			MaxOutputBytes: c.Apkbuild.MaxOutputBytes,
		},
		Parse: apkbuild.ParseConfig{
			ArchAll: c.Apkbuild.ArchAll,
		},
	}
}

// ParseEnv parses VAR=VALUE entries. Later entries win.
func ParseEnv(entries []string) (map[string]string, error) {
	env := make(map[string]string, len(entries))
	for _, entry := range entries {
		k, v, ok := strings.Cut(entry, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("expected VAR=VALUE, got %q", entry)
		}
		env[k] = v
	}
	return env, nil
}
