package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/jaredboynton/postman-probe-sub001/internal/infrastructure/config"
)

// dirPermissions is the permission mode for log directories created on
// demand.
const dirPermissions = 0750

// Logger wraps slog.Logger with Postman Probe-specific functionality:
// mandatory sanitisation of every entry and a gated audit channel.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Logger struct {
	*slog.Logger
	auditEnabled bool
}

// New creates a Logger from the logging configuration.
//
// It configures:
//   - Output format (json or human-readable text)
//   - Level filtering (debug, info, warn, error)
//   - Console sink (stdout/stderr) and optional rotating file sink
//   - The sanitisation pipeline (PMAK masking, credential redaction,
//     header exclusion) applied to every entry before any sink
//
// If the file sink is enabled and its parent directory does not exist it
// is created, intermediate directories included. Directory-creation
// failure degrades to console-only logging rather than failing startup.
func New(cfg config.LoggingConfig, version string) *Logger {
	var sinks []io.Writer

	switch strings.ToLower(cfg.Output) {
	case "stderr":
		sinks = append(sinks, os.Stderr)
	case "none":
	default:
		sinks = append(sinks, os.Stdout)
	}

	if cfg.File.Enabled && cfg.File.Path != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File.Path), dirPermissions); err == nil {
			sinks = append(sinks, &lumberjack.Logger{
				Filename:   cfg.File.Path,
				MaxSize:    cfg.File.MaxSize,
				MaxBackups: cfg.File.MaxBackups,
				MaxAge:     cfg.File.MaxAge,
				Compress:   cfg.File.Compress,
			})
		}
	}

	var out io.Writer
	switch len(sinks) {
	case 0:
		out = io.Discard
	case 1:
		out = sinks[0]
	default:
		out = io.MultiWriter(sinks...)
	}

	sanitizer := NewSanitizer(cfg.Security.MaskAPIKeys, cfg.Security.ExcludedHeaderSet())
	handler := newEntryHandler(out, cfg.Format, parseLevel(cfg.Level), sanitizer)

	withDefaults := handler.WithAttrs([]slog.Attr{
		slog.String("service", "postman-probe"),
		slog.String("version", version),
	})

	return &Logger{
		Logger:       slog.New(withDefaults),
		auditEnabled: cfg.Security.Audit.Enabled,
	}
}

// parseLevel converts a string log level to slog.Level.
// Defaults to info if unrecognised.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// With returns a new Logger with additional default attributes.
//
// Example:
//
//	collectorLog := logger.With("component", "collector")
//	collectorLog.Info("run started") // includes component=collector
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		Logger:       l.Logger.With(args...),
		auditEnabled: l.auditEnabled,
	}
}

// Audit emits a security audit event. It is a no-op unless
// logging.security.audit.enabled is set.
//
// The entry has a fixed shape: an info-level record with message "AUDIT",
// the event name, the details map and a security_audit type discriminator.
// Details pass through the same sanitisation pipeline as ordinary entries.
func (l *Logger) Audit(event string, details map[string]any) {
	if !l.auditEnabled {
		return
	}
	l.Logger.Info("AUDIT",
		"event", event,
		"details", details,
		"type", "security_audit",
	)
}

// AuditEnabled reports whether the audit channel is active.
func (l *Logger) AuditEnabled() bool {
	return l.auditEnabled
}

// Default creates a logger for use before configuration is loaded.
// It writes JSON to stdout at info level with sanitisation enabled.
func Default() *Logger {
	return New(config.LoggingConfig{
		Level:  "info",
		Format: "json",
		Output: "stdout",
		Security: config.SecurityConfig{
			MaskAPIKeys: true,
		},
	}, "dev")
}
