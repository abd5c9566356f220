package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// LogRow is one persisted engine log line.
type LogRow struct {
	Time     time.Time
	Level    string
	Message  string
	Metadata json.RawMessage
}

// LogSink stores log rows for a job.
type LogSink interface {
	InsertLog(ctx context.Context, jobID uuid.UUID, row LogRow) error
}

// DBLogHandler is a slog.Handler that writes records to the job's log
// table. Records below Level are dropped.
type DBLogHandler struct {
	Sink  LogSink
	JobID uuid.UUID
	Level slog.Leveler

	attrs  []slog.Attr
	groups []string
}

func NewDBLogHandler(sink LogSink, jobID uuid.UUID) *DBLogHandler {
	return &DBLogHandler{
		Sink:  sink,
		JobID: jobID,
		Level: slog.LevelInfo,
	}
}

func (h *DBLogHandler) Enabled(_ context.Context, level slog.Level) bool {
	min := slog.LevelInfo
	if h.Level != nil {
		min = h.Level.Level()
	}
	return level >= min
}

func (h *DBLogHandler) Handle(ctx context.Context, r slog.Record) error {
	meta := map[string]any{}
	for _, a := range h.attrs {
		addAttr(meta, a)
	}

	target := meta
	for _, g := range h.groups {
		sub, ok := target[g].(map[string]any)
		if !ok {
			sub = map[string]any{}
			target[g] = sub
		}
		target = sub
	}
	r.Attrs(func(a slog.Attr) bool {
		addAttr(target, a)
		return true
	})

	metaJSON, err := json.Marshal(meta)
	if err != nil {
		metaJSON = []byte("{}")
	}

	// Logs must persist even when the request that started the job is gone.
	return h.Sink.InsertLog(context.WithoutCancel(ctx), h.JobID, LogRow{
		Time:     r.Time,
		Level:    r.Level.String(),
		Message:  r.Message,
		Metadata: metaJSON,
	})
}

func (h *DBLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	c := h.clone()
	if len(c.groups) == 0 {
		c.attrs = append(c.attrs, attrs...)
		return c
	}
	// Attributes added inside a group belong to that group.
	c.attrs = append(c.attrs, nest(c.groups, attrs)...)
	return c
}

func (h *DBLogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := h.clone()
	c.groups = append(c.groups, name)
	return c
}

func (h *DBLogHandler) clone() *DBLogHandler {
	c := *h
	c.attrs = append([]slog.Attr(nil), h.attrs...)
	c.groups = append([]string(nil), h.groups...)
	return &c
}

func nest(groups []string, attrs []slog.Attr) []slog.Attr {
	if len(groups) == 0 {
		return attrs
	}
	return []slog.Attr{{Key: groups[0], Value: slog.GroupValue(nest(groups[1:], attrs)...)}}
}

func addAttr(m map[string]any, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		sub, ok := m[a.Key].(map[string]any)
		if !ok {
			sub = map[string]any{}
		}
		for _, ga := range a.Value.Group() {
			addAttr(sub, ga)
		}
		if a.Key == "" {
			for k, v := range sub {
				m[k] = v
			}
			return
		}
		m[a.Key] = sub
		return
	}
	switch v := a.Value.Any().(type) {
	case error:
		m[a.Key] = v.Error()
	default:
		m[a.Key] = v
	}
}
