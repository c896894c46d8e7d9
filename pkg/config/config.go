// Package config loads runtime settings from a TOML or YAML file and turns
// them into builtins.RuntimeOption values.
package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/sandrolain/jqcore/pkg/builtins"
	"github.com/sandrolain/jqcore/pkg/types"
)

// Config mirrors the runtime settings a host may keep in a file.
type Config struct {
	LibraryPaths   []string          `toml:"library_paths" yaml:"library_paths"`
	ProgOrigin     string            `toml:"prog_origin" yaml:"prog_origin"`
	JQOrigin       string            `toml:"jq_origin" yaml:"jq_origin"`
	Timezone       string            `toml:"timezone" yaml:"timezone"`
	RegexCacheSize int               `toml:"regex_cache_size" yaml:"regex_cache_size"`
	RegexTimeout   string            `toml:"regex_timeout" yaml:"regex_timeout"`
	Debug          bool              `toml:"debug" yaml:"debug"`
	Environ        map[string]string `toml:"environ" yaml:"environ"`
}

// Load reads path, choosing the decoder from its extension.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, types.NewError(types.ErrCapability, "cannot read config").WithCause(err)
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		return ParseTOML(data)
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return nil, types.Errorf(types.ErrCapability, "unsupported config format %q", ext)
	}
}

// ParseTOML decodes a TOML document. Unknown keys are rejected.
func ParseTOML(data []byte) (*Config, error) {
	var c Config
	md, err := toml.Decode(string(data), &c)
	if err != nil {
		return nil, types.NewError(types.ErrCapability, "invalid TOML config").WithCause(err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, types.Errorf(types.ErrCapability, "unknown config key %q", undecoded[0].String())
	}
	return &c, nil
}

// ParseYAML decodes a YAML document. Unknown keys are rejected.
func ParseYAML(data []byte) (*Config, error) {
	var c Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return nil, types.NewError(types.ErrCapability, "invalid YAML config").WithCause(err)
	}
	return &c, nil
}

// Options converts the configuration into runtime options. Environ entries
// override the process environment.
func (c *Config) Options() ([]builtins.RuntimeOption, error) {
	var opts []builtins.RuntimeOption

	if len(c.LibraryPaths) > 0 {
		opts = append(opts, builtins.WithLibraryPaths(c.LibraryPaths...))
	}
	if c.ProgOrigin != "" || c.JQOrigin != "" {
		opts = append(opts, builtins.WithOrigins(c.ProgOrigin, c.JQOrigin))
	}
	if c.Timezone != "" {
		loc, err := time.LoadLocation(c.Timezone)
		if err != nil {
			return nil, types.Errorf(types.ErrCapability, "unknown timezone %q", c.Timezone).WithCause(err)
		}
		opts = append(opts, builtins.WithLocation(loc))
	}
	if c.RegexCacheSize < 0 {
		return nil, types.Errorf(types.ErrDomain, "regex_cache_size must not be negative")
	}
	if c.RegexCacheSize > 0 {
		opts = append(opts, builtins.WithRegexCacheSize(c.RegexCacheSize))
	}
	if c.RegexTimeout != "" {
		d, err := time.ParseDuration(c.RegexTimeout)
		if err != nil {
			return nil, types.Errorf(types.ErrDomain, "invalid regex_timeout %q", c.RegexTimeout).WithCause(err)
		}
		opts = append(opts, builtins.WithRegexTimeout(d))
	}
	if c.Debug {
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
		opts = append(opts, builtins.WithLogger(logger))
	}
	if len(c.Environ) > 0 {
		overrides := make([]string, 0, len(c.Environ))
		for k, v := range c.Environ {
			overrides = append(overrides, k+"="+v)
		}
		sort.Strings(overrides)
		opts = append(opts, builtins.WithEnviron(func() []string {
			return append(os.Environ(), overrides...)
		}))
	}
	return opts, nil
}
