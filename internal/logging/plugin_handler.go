package logging

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
)

// Host plugin log framing. Each stderr line carries a level marker between
// a SOH and STX byte; the host routes the remainder into its plugin log.
const (
	frameStart = '\x01'
	frameEnd   = '\x02'
)

func levelChar(level slog.Level) byte {
	switch {
	case level >= slog.LevelError:
		return 'e'
	case level >= slog.LevelWarn:
		return 'w'
	case level >= slog.LevelInfo:
		return 'i'
	case level >= slog.LevelDebug:
		return 'd'
	default:
		return 't'
	}
}

// PluginHandler writes level-framed lines understood by the host's plugin
// log reader. Attributes are appended as key=value pairs; embedded newlines
// are collapsed so one record stays one framed line.
type PluginHandler struct {
	mu     sync.Mutex
	writer io.Writer
	level  *slog.LevelVar
	attrs  []slog.Attr
	groups []string
}

// NewPluginHandler constructs a handler for the host plugin log protocol.
func NewPluginHandler(w io.Writer, lvl *slog.LevelVar) *PluginHandler {
	return &PluginHandler{writer: w, level: lvl}
}

func (h *PluginHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *PluginHandler) Handle(_ context.Context, record slog.Record) error {
	if record.Level < h.level.Level() {
		return nil
	}

	kvs := make([]kv, 0, record.NumAttrs()+len(h.attrs))
	flattenAttrs(&kvs, h.groups, h.attrs)
	record.Attrs(func(attr slog.Attr) bool {
		flattenAttr(&kvs, h.groups, attr)
		return true
	})

	var component string
	filtered := kvs[:0]
	for _, kv := range kvs {
		if kv.key == FieldComponent {
			if component == "" {
				component = attrString(kv.value)
			}
			continue
		}
		filtered = append(filtered, kv)
	}
	kvs = filtered

	var buf bytes.Buffer
	buf.Grow(64 + len(kvs)*24)
	buf.WriteByte(frameStart)
	buf.WriteByte(levelChar(record.Level))
	buf.WriteByte(frameEnd)

	if component != "" {
		buf.WriteString(component)
		buf.WriteString(": ")
	}
	buf.WriteString(sanitizeLine(record.Message))

	for _, kv := range kvs {
		if kv.key == "" {
			continue
		}
		buf.WriteByte(' ')
		buf.WriteString(kv.key)
		buf.WriteByte('=')
		buf.WriteString(sanitizeLine(formatValue(kv.value)))
	}
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.writer.Write(buf.Bytes())
	return err
}

func (h *PluginHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := h.clone()
	clone.attrs = append(clone.attrs, attrs...)
	return clone
}

func (h *PluginHandler) WithGroup(name string) slog.Handler {
	clone := h.clone()
	clone.groups = append(clone.groups, name)
	return clone
}

func (h *PluginHandler) clone() *PluginHandler {
	clone := &PluginHandler{writer: h.writer, level: h.level}
	if len(h.attrs) > 0 {
		clone.attrs = make([]slog.Attr, len(h.attrs))
		copy(clone.attrs, h.attrs)
	}
	if len(h.groups) > 0 {
		clone.groups = make([]string, len(h.groups))
		copy(clone.groups, h.groups)
	}
	return clone
}

func sanitizeLine(s string) string {
	if !strings.ContainsAny(s, "\r\n") {
		return strings.TrimSpace(s)
	}
	replacer := strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")
	return strings.TrimSpace(replacer.Replace(s))
}
