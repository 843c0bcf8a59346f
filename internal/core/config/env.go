package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: CSSNAV_[SECTION]_[KEY] (e.g., CSSNAV_WORKSPACE_MAX_FILES).
// List values are comma separated.
func ApplyEnvOverrides(cfg *Config) {
	// Workspace
	setEnvString(&cfg.Workspace.StartPath, "CSSNAV_WORKSPACE_START_PATH")
	setEnvList(&cfg.Workspace.CSSExtensions, "CSSNAV_WORKSPACE_CSS_EXTENSIONS")
	setEnvList(&cfg.Workspace.HTMLExtensions, "CSSNAV_WORKSPACE_HTML_EXTENSIONS")
	setEnvList(&cfg.Workspace.Exclude, "CSSNAV_WORKSPACE_EXCLUDE")
	setEnvList(&cfg.Workspace.AlwaysInclude, "CSSNAV_WORKSPACE_ALWAYS_INCLUDE")
	setEnvList(&cfg.Workspace.IgnoreFiles, "CSSNAV_WORKSPACE_IGNORE_FILES")
	setEnvInt(&cfg.Workspace.MaxFiles, "CSSNAV_WORKSPACE_MAX_FILES")

	// Release
	setEnvDuration(&cfg.Release.IdleTimeout, "CSSNAV_RELEASE_IDLE_TIMEOUT")
	setEnvDuration(&cfg.Release.ImportSweepInterval, "CSSNAV_RELEASE_IMPORT_SWEEP_INTERVAL")
	setEnvDuration(&cfg.Release.ImportExpiry, "CSSNAV_RELEASE_IMPORT_EXPIRY")

	// Service
	setEnvBool(&cfg.Service.ClassNameDiagnostics, "CSSNAV_SERVICE_CLASS_NAME_DIAGNOSTICS")
	setEnvBoolPtr(&cfg.Service.IgnoreSameNameCSSFile, "CSSNAV_SERVICE_IGNORE_SAME_NAME_CSS_FILE")
	setEnvBoolPtr(&cfg.Service.EmbeddedCSS, "CSSNAV_SERVICE_EMBEDDED_CSS")
	setEnvInt(&cfg.Service.ParseConcurrency, "CSSNAV_SERVICE_PARSE_CONCURRENCY")

	// Watch
	setEnvDuration(&cfg.Watch.Debounce, "CSSNAV_WATCH_DEBOUNCE")

	// Observability
	setEnvString(&cfg.Observability.MetricsAddress, "CSSNAV_OBSERVABILITY_METRICS_ADDRESS")
	setEnvString(&cfg.Observability.OTLPEndpoint, "CSSNAV_OBSERVABILITY_OTLP_ENDPOINT")

	// Logging
	setEnvString(&cfg.Logging.Level, "CSSNAV_LOGGING_LEVEL")

	cfg.Workspace.CSSExtensions = normalizeExtensions(cfg.Workspace.CSSExtensions)
	cfg.Workspace.HTMLExtensions = normalizeExtensions(cfg.Workspace.HTMLExtensions)
	cfg.Logging.Level = strings.ToLower(strings.TrimSpace(cfg.Logging.Level))
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key, "value", val)
		*target = val
	}
}

func setEnvList(target *[]string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key, "value", val)
		var items []string
		for _, item := range strings.Split(val, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		*target = items
	}
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = i
		}
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.ToLower(val))
		if err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = b
		}
	}
}

func setEnvBoolPtr(target **bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.ToLower(val))
		if err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = &b
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = d
		}
	}
}
