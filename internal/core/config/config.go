package config

import (
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"cssnav/internal/core/errors"
)

// DefaultFileName is looked up in the working directory when no config path
// is given.
const DefaultFileName = "cssnav.toml"

type Config struct {
	Version       int           `toml:"version"`
	Workspace     Workspace     `toml:"workspace"`
	Release       Release       `toml:"release"`
	Service       Service       `toml:"service"`
	Watch         Watch         `toml:"watch"`
	Observability Observability `toml:"observability"`
	Logging       Logging       `toml:"logging"`
}

type Workspace struct {
	StartPath      string   `toml:"start_path"`
	CSSExtensions  []string `toml:"css_extensions"`
	HTMLExtensions []string `toml:"html_extensions"`
	Exclude        []string `toml:"exclude"`
	AlwaysInclude  []string `toml:"always_include"`
	IgnoreFiles    []string `toml:"ignore_files"`
	MaxFiles       int      `toml:"max_files"`
}

type Release struct {
	IdleTimeout         time.Duration `toml:"idle_timeout"`
	ImportSweepInterval time.Duration `toml:"import_sweep_interval"`
	ImportExpiry        time.Duration `toml:"import_expiry"`
}

type Service struct {
	ClassNameDiagnostics  bool  `toml:"class_name_diagnostics"`
	IgnoreSameNameCSSFile *bool `toml:"ignore_same_name_css_file"`
	EmbeddedCSS           *bool `toml:"embedded_css"`
	ParseConcurrency      int   `toml:"parse_concurrency"`
}

type Watch struct {
	Debounce time.Duration `toml:"debounce"`
}

type Observability struct {
	MetricsAddress string `toml:"metrics_address"`
	OTLPEndpoint   string `toml:"otlp_endpoint"`
}

type Logging struct {
	Level string `toml:"level"`
}

var (
	defaultCSSExtensions  = []string{"css", "scss", "less", "sass"}
	defaultHTMLExtensions = []string{"html", "htm", "jsx", "tsx", "js", "ts", "vue", "php", "svelte"}
	defaultExclude        = []string{"**/node_modules/**", "**/bower_components/**", "**/vendor/**", "**/.git/**"}
	defaultIgnoreFiles    = []string{".gitignore"}
)

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load reads, defaults and validates the config at path. Environment
// overrides are applied before validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeIO, "read config"), errors.CtxPath, path)
	}
	return Parse(string(data))
}

// Parse decodes TOML content into a validated config.
func Parse(content string) (*Config, error) {
	var cfg Config
	md, err := toml.Decode(content, &cfg)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeValidationError, "decode config")
	}

	// An explicit zero idle timeout disables release.
	idle := cfg.Release.IdleTimeout
	applyDefaults(&cfg)
	if md.IsDefined("release", "idle_timeout") {
		cfg.Release.IdleTimeout = idle
	}
	ApplyEnvOverrides(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads path when it exists and falls back to the defaults
// otherwise. An explicit path that does not exist is an error.
func LoadOrDefault(path string) (*Config, error) {
	explicit := strings.TrimSpace(path) != ""
	if !explicit {
		path = DefaultFileName
	}
	if _, err := os.Stat(path); err != nil {
		if explicit {
			return nil, errors.AddContext(errors.Wrap(err, errors.CodeNotFound, "config file"), errors.CtxPath, path)
		}
		cfg := DefaultConfig()
		ApplyEnvOverrides(cfg)
		if err := Validate(cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	return Load(path)
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}

	if strings.TrimSpace(cfg.Workspace.StartPath) == "" {
		cfg.Workspace.StartPath = "."
	}
	if len(cfg.Workspace.CSSExtensions) == 0 {
		cfg.Workspace.CSSExtensions = append([]string(nil), defaultCSSExtensions...)
	}
	if len(cfg.Workspace.HTMLExtensions) == 0 {
		cfg.Workspace.HTMLExtensions = append([]string(nil), defaultHTMLExtensions...)
	}
	if cfg.Workspace.Exclude == nil {
		cfg.Workspace.Exclude = append([]string(nil), defaultExclude...)
	}
	if cfg.Workspace.IgnoreFiles == nil {
		cfg.Workspace.IgnoreFiles = append([]string(nil), defaultIgnoreFiles...)
	}
	if cfg.Workspace.MaxFiles == 0 {
		cfg.Workspace.MaxFiles = 1000
	}
	cfg.Workspace.CSSExtensions = normalizeExtensions(cfg.Workspace.CSSExtensions)
	cfg.Workspace.HTMLExtensions = normalizeExtensions(cfg.Workspace.HTMLExtensions)

	if cfg.Release.IdleTimeout == 0 {
		cfg.Release.IdleTimeout = 5 * time.Minute
	}
	if cfg.Release.ImportSweepInterval == 0 {
		cfg.Release.ImportSweepInterval = 5 * time.Minute
	}
	if cfg.Release.ImportExpiry == 0 {
		cfg.Release.ImportExpiry = 5 * time.Minute
	}

	if cfg.Service.IgnoreSameNameCSSFile == nil {
		v := true
		cfg.Service.IgnoreSameNameCSSFile = &v
	}
	if cfg.Service.EmbeddedCSS == nil {
		v := true
		cfg.Service.EmbeddedCSS = &v
	}
	if cfg.Service.ParseConcurrency == 0 {
		cfg.Service.ParseConcurrency = 4
	}

	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 200 * time.Millisecond
	}

	if strings.TrimSpace(cfg.Logging.Level) == "" {
		cfg.Logging.Level = "info"
	}
	cfg.Logging.Level = strings.ToLower(strings.TrimSpace(cfg.Logging.Level))
}

func normalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	seen := make(map[string]bool, len(exts))
	for _, ext := range exts {
		ext = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
		if ext == "" || seen[ext] {
			continue
		}
		seen[ext] = true
		out = append(out, ext)
	}
	return out
}

// IgnoreSameNameCSS reports the effective value of the shadowing switch.
func (s Service) IgnoreSameNameCSS() bool {
	return s.IgnoreSameNameCSSFile == nil || *s.IgnoreSameNameCSSFile
}

// ParseEmbeddedCSS reports the effective value of the embedded CSS switch.
func (s Service) ParseEmbeddedCSS() bool {
	return s.EmbeddedCSS == nil || *s.EmbeddedCSS
}
