package config

import (
	"log/slog"
	"strings"

	"github.com/gobwas/glob"

	"cssnav/internal/core/errors"
)

// Validate checks every section and returns the first problem as a
// VALIDATION_ERROR naming the offending field.
func Validate(cfg *Config) error {
	validators := []func(*Config) error{
		validateVersion,
		validateWorkspace,
		validateRelease,
		validateService,
		validateWatch,
		validateLogging,
	}
	for _, validate := range validators {
		if err := validate(cfg); err != nil {
			return err
		}
	}
	return nil
}

func invalid(field, format string, args ...interface{}) error {
	err := errors.Newf(errors.CodeValidationError, format, args...)
	return errors.AddContext(err, errors.CtxField, field)
}

func validateVersion(cfg *Config) error {
	if cfg.Version != 1 {
		return invalid("version", "unsupported config version %d; supported version is 1", cfg.Version)
	}
	return nil
}

func validateWorkspace(cfg *Config) error {
	ws := cfg.Workspace
	if strings.ContainsAny(ws.StartPath, "*?[]{}") {
		return invalid("workspace.start_path", "workspace.start_path must be a folder, not a pattern: %q", ws.StartPath)
	}
	if len(ws.CSSExtensions) == 0 {
		return invalid("workspace.css_extensions", "workspace.css_extensions must not be empty")
	}
	if ws.MaxFiles < 0 {
		return invalid("workspace.max_files", "workspace.max_files must be >= 0, got %d", ws.MaxFiles)
	}

	css := make(map[string]bool, len(ws.CSSExtensions))
	for _, ext := range ws.CSSExtensions {
		css[ext] = true
	}
	for _, ext := range ws.HTMLExtensions {
		if css[ext] {
			return invalid("workspace.html_extensions", "extension %q is listed as both css and html", ext)
		}
	}

	lists := map[string][]string{
		"workspace.exclude":        ws.Exclude,
		"workspace.always_include": ws.AlwaysInclude,
	}
	for field, patterns := range lists {
		for _, pattern := range patterns {
			if strings.TrimSpace(pattern) == "" {
				return invalid(field, "%s must not include empty values", field)
			}
			if _, err := glob.Compile(pattern, '/'); err != nil {
				return invalid(field, "invalid glob %q in %s: %v", pattern, field, err)
			}
		}
	}
	for _, name := range ws.IgnoreFiles {
		if strings.TrimSpace(name) == "" || strings.ContainsAny(name, `/\`) {
			return invalid("workspace.ignore_files", "workspace.ignore_files entries must be file names, got %q", name)
		}
	}
	return nil
}

func validateRelease(cfg *Config) error {
	r := cfg.Release
	if r.IdleTimeout < 0 {
		return invalid("release.idle_timeout", "release.idle_timeout must be >= 0")
	}
	if r.ImportSweepInterval < 0 {
		return invalid("release.import_sweep_interval", "release.import_sweep_interval must be >= 0")
	}
	if r.ImportExpiry < 0 {
		return invalid("release.import_expiry", "release.import_expiry must be >= 0")
	}
	return nil
}

func validateService(cfg *Config) error {
	if cfg.Service.ParseConcurrency < 1 || cfg.Service.ParseConcurrency > 64 {
		return invalid("service.parse_concurrency", "service.parse_concurrency must be between 1 and 64, got %d", cfg.Service.ParseConcurrency)
	}
	return nil
}

func validateWatch(cfg *Config) error {
	if cfg.Watch.Debounce < 0 {
		return invalid("watch.debounce", "watch.debounce must be >= 0")
	}
	return nil
}

func validateLogging(cfg *Config) error {
	if _, ok := ParseLevel(cfg.Logging.Level); !ok {
		return invalid("logging.level", "logging.level must be one of: debug, info, warn, error; got %q", cfg.Logging.Level)
	}
	return nil
}

// ParseLevel maps a config level name to a slog level.
func ParseLevel(level string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, true
	case "info", "":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	return slog.LevelInfo, false
}
