package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Core entry fields. In text mode the metadata block excludes these.
const (
	fieldLevel     = "level"
	fieldMessage   = "message"
	fieldTimestamp = "timestamp"
)

// timestampLayout renders entry timestamps with millisecond precision.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// entryHandler is a slog.Handler that sanitises every record before
// emission and renders it in the probe's wire formats:
//
//   - json: one flat object per line {level, message, timestamp, ...meta}
//   - text: <timestamp> [<LEVEL>] <message> <json-of-extra-metadata>
//
// The unsanitised record never reaches the writer. Handle never panics
// past the logger boundary: malformed metadata degrades to best-effort
// rendering and write errors are swallowed (fire-and-forget transport).
type entryHandler struct {
	mu        *sync.Mutex
	out       io.Writer
	level     slog.Level
	textMode  bool
	sanitizer *Sanitizer

	// attrs accumulated via WithAttrs, applied to every record.
	attrs []slog.Attr

	// groups accumulated via WithGroup; keys are flattened with a
	// dot-separated prefix.
	groups []string
}

func newEntryHandler(out io.Writer, format string, level slog.Level, sanitizer *Sanitizer) *entryHandler {
	return &entryHandler{
		mu:        &sync.Mutex{},
		out:       out,
		level:     level,
		textMode:  strings.EqualFold(format, "text"),
		sanitizer: sanitizer,
	}
}

// Enabled reports whether records at the given level are emitted.
func (h *entryHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

// Handle renders and writes a single record.
func (h *entryHandler) Handle(_ context.Context, r slog.Record) error {
	// Logging must never take the caller down.
	defer func() {
		_ = recover()
	}()

	entry := make(map[string]any, r.NumAttrs()+len(h.attrs)+3)

	prefix := strings.Join(h.groups, ".")
	for _, attr := range h.attrs {
		addAttr(entry, prefix, attr)
	}
	r.Attrs(func(attr slog.Attr) bool {
		addAttr(entry, prefix, attr)
		return true
	})

	// Core fields are set last so metadata cannot shadow them.
	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	entry[fieldTimestamp] = ts.Format(timestampLayout)
	entry[fieldLevel] = strings.ToLower(r.Level.String())
	entry[fieldMessage] = r.Message

	sanitized, ok := h.sanitizer.SanitizeValue(entry).(map[string]any)
	if !ok {
		return nil
	}
	sanitized[fieldMessage] = h.sanitizer.SanitizeString(r.Message)

	var line []byte
	if h.textMode {
		line = h.renderText(sanitized)
	} else {
		line = h.renderJSON(sanitized)
	}
	if line == nil {
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, _ = h.out.Write(append(line, '\n'))
	return nil
}

// renderJSON serialises the sanitised entry as a single flat object.
func (h *entryHandler) renderJSON(entry map[string]any) []byte {
	data, err := json.Marshal(entry)
	if err != nil {
		// Metadata contained something unserialisable; fall back to the
		// core fields so the message is not lost.
		data, err = json.Marshal(map[string]any{
			fieldTimestamp: entry[fieldTimestamp],
			fieldLevel:     entry[fieldLevel],
			fieldMessage:   entry[fieldMessage],
		})
		if err != nil {
			return nil
		}
	}
	return data
}

// renderText renders `<timestamp> [<LEVEL>] <message>` with the non-core
// metadata serialised as trailing JSON. Entries carrying only the three
// core fields omit the metadata block entirely.
func (h *entryHandler) renderText(entry map[string]any) []byte {
	level, _ := entry[fieldLevel].(string)
	message, _ := entry[fieldMessage].(string)
	ts, _ := entry[fieldTimestamp].(string)

	line := fmt.Sprintf("%s [%s] %s", ts, strings.ToUpper(level), message)

	if len(entry) > 3 {
		meta := make(map[string]any, len(entry)-3)
		for k, v := range entry {
			switch k {
			case fieldLevel, fieldMessage, fieldTimestamp:
			default:
				meta[k] = v
			}
		}
		if data, err := json.Marshal(meta); err == nil {
			line += " " + string(data)
		}
	}

	return []byte(line)
}

// addAttr flattens an attribute into the entry map, resolving LogValuers
// and expanding groups with dotted prefixes.
func addAttr(entry map[string]any, prefix string, attr slog.Attr) {
	value := attr.Value.Resolve()

	if value.Kind() == slog.KindGroup {
		groupPrefix := attr.Key
		if prefix != "" {
			groupPrefix = prefix + "." + attr.Key
		}
		group := make(map[string]any)
		for _, nested := range value.Group() {
			addAttr(group, "", nested)
		}
		key := groupPrefix
		if key == "" {
			// Inline group: merge members directly.
			for k, v := range group {
				entry[k] = v
			}
			return
		}
		entry[key] = group
		return
	}

	key := attr.Key
	if key == "" {
		return
	}
	if prefix != "" {
		key = prefix + "." + key
	}
	entry[key] = attrValue(value)
}

// attrValue converts a resolved slog.Value into a plain Go value for
// sanitisation and serialisation.
func attrValue(v slog.Value) any {
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindInt64:
		return v.Int64()
	case slog.KindUint64:
		return v.Uint64()
	case slog.KindFloat64:
		return v.Float64()
	case slog.KindBool:
		return v.Bool()
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return v.Time().Format(timestampLayout)
	default:
		raw := v.Any()
		if err, isErr := raw.(error); isErr && err != nil {
			// Go errors carry no stack; the wrapped chain string is the
			// closest equivalent and still goes through sanitisation.
			return err.Error()
		}
		return raw
	}
}

// WithAttrs returns a handler that includes the given attributes on every
// record.
func (h *entryHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &clone
}

// WithGroup returns a handler that nests subsequent attribute keys under
// the named group.
func (h *entryHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.groups = append(append([]string{}, h.groups...), name)
	return &clone
}
