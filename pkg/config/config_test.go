package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/sandrolain/jqcore/pkg/builtins"
)

func applied(t *testing.T, c *Config) builtins.RuntimeOptions {
	t.Helper()
	opts, err := c.Options()
	if err != nil {
		t.Fatalf("Options: %v", err)
	}
	var o builtins.RuntimeOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// ── Loading ─────────────────────────────────────────────────────────────────

func TestLoad(t *testing.T) {
	for _, name := range []string{"runtime.toml", "runtime.yaml"} {
		t.Run(name, func(t *testing.T) {
			c, err := Load(filepath.Join("testdata", name))
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			want := &Config{
				LibraryPaths:   []string{"~/.jq", "$ORIGIN/../lib/jq"},
				ProgOrigin:     "/srv/jq",
				JQOrigin:       "/usr/local/bin",
				Timezone:       "Europe/Rome",
				RegexCacheSize: 64,
				RegexTimeout:   "250ms",
				Environ:        map[string]string{"JQ_COLORS": "0;31"},
			}
			if !reflect.DeepEqual(c, want) {
				t.Errorf("got %+v, want %+v", c, want)
			}
		})
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) string {
		t.Helper()
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
			t.Fatal(err)
		}
		return p
	}

	tests := []struct {
		name string
		path string
		want string
	}{
		{"missing file", filepath.Join(dir, "none.toml"), "cannot read config"},
		{"extension", write("c.json", "{}"), "unsupported config format"},
		{"bad toml", write("c.toml", "debug = "), "invalid TOML config"},
		{"unknown toml key", write("u.toml", "verbose = true"), "unknown config key \"verbose\""},
		{"bad yaml", write("c.yaml", "debug: [1"), "invalid YAML config"},
		{"unknown yaml key", write("u.yml", "verbose: true"), "invalid YAML config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.path)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("got %v, want %q", err, tt.want)
			}
		})
	}
}

// ── Options ─────────────────────────────────────────────────────────────────

func TestOptions(t *testing.T) {
	c, err := ParseYAML([]byte("library_paths: [a, b]\nprog_origin: /p\ntimezone: UTC\nregex_cache_size: 8\nregex_timeout: 2s\n"))
	if err != nil {
		t.Fatal(err)
	}
	o := applied(t, c)
	if !reflect.DeepEqual(o.LibraryPaths, []string{"a", "b"}) {
		t.Errorf("LibraryPaths = %v", o.LibraryPaths)
	}
	if o.ProgOrigin != "/p" || o.JQOrigin != "" {
		t.Errorf("origins = %q, %q", o.ProgOrigin, o.JQOrigin)
	}
	if o.Location == nil || o.Location.String() != "UTC" {
		t.Errorf("Location = %v", o.Location)
	}
	if o.RegexCacheSize != 8 || o.RegexTimeout != 2*time.Second {
		t.Errorf("regex = %d, %v", o.RegexCacheSize, o.RegexTimeout)
	}
	if o.Logger != nil {
		t.Error("logger set without debug")
	}
}

func TestOptionsEmpty(t *testing.T) {
	opts, err := (&Config{}).Options()
	if err != nil || len(opts) != 0 {
		t.Errorf("got %d options, %v", len(opts), err)
	}
}

func TestOptionsDebug(t *testing.T) {
	o := applied(t, &Config{Debug: true})
	if o.Logger == nil {
		t.Fatal("no logger")
	}
	if !o.Logger.Handler().Enabled(t.Context(), slog.LevelDebug) {
		t.Error("debug level is not enabled")
	}
}

func TestOptionsEnviron(t *testing.T) {
	t.Setenv("JQCORE_TEST", "process")
	o := applied(t, &Config{Environ: map[string]string{"JQCORE_TEST": "config", "EXTRA": "1"}})

	env := builtins.NewRuntime(builtins.WithEnviron(o.Environ))
	fn, ok := builtins.GetFunction("env", 1)
	if !ok {
		t.Fatal("env/0 is not registered")
	}
	got, err := fn.Impl(env, []any{nil})
	if err != nil {
		t.Fatal(err)
	}
	m := got.(map[string]any)
	if m["JQCORE_TEST"] != "config" || m["EXTRA"] != "1" {
		t.Errorf("env = %v, %v", m["JQCORE_TEST"], m["EXTRA"])
	}
}

func TestOptionsErrors(t *testing.T) {
	tests := []struct {
		name string
		c    Config
		want string
	}{
		{"timezone", Config{Timezone: "Mars/Olympus"}, "unknown timezone"},
		{"timeout", Config{RegexTimeout: "soon"}, "invalid regex_timeout"},
		{"cache size", Config{RegexCacheSize: -1}, "must not be negative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.c.Options()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("got %v, want %q", err, tt.want)
			}
		})
	}
}
