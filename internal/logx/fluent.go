package logx

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// Poster is the part of *fluent.Fluent the handler uses.
type Poster interface {
	Post(tag string, message interface{}) error
}

// FluentHandler is a slog.Handler that posts each record as a flat map,
// tagged with its lower-case level.
type FluentHandler struct {
	client   Poster
	minLevel slog.Leveler
	attrs    []slog.Attr
	group    string
}

func NewFluentHandler(client Poster, minLevel slog.Leveler) *FluentHandler {
	if minLevel == nil {
		minLevel = slog.LevelInfo
	}
	return &FluentHandler{client: client, minLevel: minLevel}
}

func (h *FluentHandler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= h.minLevel.Level()
}

func (h *FluentHandler) Handle(_ context.Context, r slog.Record) error {
	data := make(map[string]interface{}, len(h.attrs)+r.NumAttrs()+3)
	for _, a := range h.attrs {
		addAttr(data, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		addAttr(data, h.group, a)
		return true
	})
	data["level"] = strings.ToLower(r.Level.String())
	data["message"] = r.Message
	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	data["timestamp"] = ts.UTC().Format(time.RFC3339Nano)

	return h.client.Post(strings.ToLower(r.Level.String()), data)
}

func (h *FluentHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	next.attrs = append(next.attrs, h.attrs...)
	for _, a := range attrs {
		if h.group != "" {
			a.Key = h.group + "." + a.Key
		}
		next.attrs = append(next.attrs, a)
	}
	return &next
}

func (h *FluentHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	if h.group != "" {
		name = h.group + "." + name
	}
	next.group = name
	return &next
}

// addAttr flattens groups into dotted keys.
func addAttr(data map[string]interface{}, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	key := a.Key
	if prefix != "" && key != "" {
		key = prefix + "." + key
	} else if key == "" {
		key = prefix
	}
	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			addAttr(data, key, ga)
		}
		return
	}
	switch v := a.Value.Any().(type) {
	case error:
		data[key] = v.Error()
	case time.Duration:
		data[key] = v.String()
	case time.Time:
		data[key] = v.UTC().Format(time.RFC3339Nano)
	default:
		data[key] = v
	}
}
