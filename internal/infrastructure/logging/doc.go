// Package logging provides structured, sanitised logging for Postman Probe.
//
// It wraps Go's log/slog with a custom handler that masks sensitive data
// in every entry before it reaches any sink. Sanitisation is applied to
// the message and recursively to all metadata:
//
//   - Postman API keys (PMAK-...) are partially masked, keeping the prefix
//     and the first/last four key characters
//   - Quoted "password"/"secret"/"token" fields have values replaced with
//     [REDACTED], preserving the key name
//   - Metadata keys on the configured exclude-header list are redacted
//     wholesale regardless of value type
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr, none
//	  file:
//	    enabled: true
//	    path: "./logs/probe.log"
//	    max_size: 10     # MB before rotation
//	    max_backups: 5
//	  security:
//	    mask_api_keys: true
//	    exclude_headers: ["authorization", "x-api-key"]
//	    audit:
//	      enabled: true
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("collection run complete", "collections", 42)
//	logger.Audit("collection_run", map[string]any{"trigger": "cron"})
//
// Logging is fire-and-forget: calls never panic or return errors to the
// caller, and transport failures are swallowed.
package logging
