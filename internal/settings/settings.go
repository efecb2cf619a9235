// Package settings loads the buildcfg CLI settings from buildcfg.toml
// and BUILDCFG_* environment variables. Command-line flags override
// whatever is loaded here.
package settings

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigtoml"

	"github.com/roach88/buildcfg/internal/engine"
	"github.com/roach88/buildcfg/internal/project"
)

// DefaultFile is the settings file looked up in the working directory.
const DefaultFile = "buildcfg.toml"

// EnvPrefix prefixes every environment override, e.g. BUILDCFG_LOG_LEVEL.
const EnvPrefix = "BUILDCFG"

// Settings describes all configuration options
type Settings struct {
	Format   string `default:"text" toml:"format" env:"FORMAT" usage:"Output format (text or json)"`
	LogLevel string `default:"warn" toml:"log_level" env:"LOG_LEVEL" usage:"Log level (debug, info, warn or error)"`

	// Journal is the SQLite evaluation journal. Empty disables journaling.
	Journal string `toml:"journal" env:"JOURNAL" usage:"Path of the evaluation journal database"`

	Plugins []string `toml:"plugins" env:"PLUGINS" usage:"CUE plugin catalog directories"`
	Catalog string   `toml:"catalog" env:"CATALOG" usage:"Resolver catalog YAML file"`

	DependencyPolicy string `default:"last-write-wins" toml:"dependency_policy" env:"DEPENDENCY_POLICY" usage:"last-write-wins, highest-version or fail-on-conflict"`
	IdentityPolicy   string `default:"overwrite" toml:"identity_policy" env:"IDENTITY_POLICY" usage:"overwrite or reject"`
	StrictScopes     bool   `default:"true" toml:"strict_scopes" env:"STRICT_SCOPES" usage:"Reject dependencies in scopes no plugin binds"`
}

var logLevels = map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

// Load reads settings from path, or from DefaultFile when path is empty,
// then applies environment overrides and validates the result.
// A missing DefaultFile is not an error; a missing explicit path is.
func Load(path string) (*Settings, error) {
	cfg, loader := loaderFor(path)
	if err := loader.Load(); err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loaderFor(path string) (*Settings, *aconfig.Loader) {
	files := []string{DefaultFile}
	if path != "" {
		files = []string{path}
	}
	cfg := Settings{}
	return &cfg, aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix:          EnvPrefix,
		SkipFlags:          true,
		Files:              files,
		FailOnFileNotFound: path != "",
		FileDecoders: map[string]aconfig.FileDecoder{
			".toml": aconfigtoml.New(),
		},
	})
}

// Default returns the settings used when nothing is configured.
func Default() *Settings {
	cfg := Settings{}
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		SkipFiles: true,
		SkipEnv:   true,
		SkipFlags: true,
	})
	if err := loader.Load(); err != nil {
		panic(fmt.Sprintf("settings defaults: %v", err))
	}
	return &cfg
}

// Validate verifies that all fields have valid values
func (s *Settings) Validate() error {
	switch s.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid value for format: %s (must be text or json)", s.Format)
	}
	if _, ok := logLevels[strings.ToLower(s.LogLevel)]; !ok {
		return fmt.Errorf("invalid value for log_level: %s", s.LogLevel)
	}
	if _, err := project.ParseDependencyPolicy(s.DependencyPolicy); err != nil {
		return fmt.Errorf("invalid value for dependency_policy: %w", err)
	}
	if _, err := project.ParseIdentityPolicy(s.IdentityPolicy); err != nil {
		return fmt.Errorf("invalid value for identity_policy: %w", err)
	}
	for _, dir := range s.Plugins {
		if dir == "" {
			return fmt.Errorf("invalid value for plugins: empty directory")
		}
	}
	return nil
}

// Level converts LogLevel to a slog.Level. Unknown levels map to warn.
func (s *Settings) Level() slog.Level {
	if level, ok := logLevels[strings.ToLower(s.LogLevel)]; ok {
		return level
	}
	return slog.LevelWarn
}

// Logger builds a stderr logger at Level, JSON when Format is json.
func (s *Settings) Logger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: s.Level()}
	if s.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// EvaluatorOptions translates the policy settings into engine options.
// Settings are validated on Load, so parse errors are reported here
// only for values changed afterwards.
func (s *Settings) EvaluatorOptions() ([]engine.Option, error) {
	dep, err := project.ParseDependencyPolicy(s.DependencyPolicy)
	if err != nil {
		return nil, err
	}
	id, err := project.ParseIdentityPolicy(s.IdentityPolicy)
	if err != nil {
		return nil, err
	}
	return []engine.Option{
		engine.WithDependencyPolicy(dep),
		engine.WithIdentityPolicy(id),
		engine.WithStrictScopes(s.StrictScopes),
	}, nil
}
