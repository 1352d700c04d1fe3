package logger

import (
	"context"
	log "log/slog"
)

// fanoutHandler 同一条记录写入多个 Handler，任一启用即视为启用
type fanoutHandler struct {
	handlers []log.Handler
}

func (s *fanoutHandler) Enabled(ctx context.Context, level log.Level) bool {
	for _, h := range s.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (s *fanoutHandler) Handle(ctx context.Context, r log.Record) error {
	var firstErr error
	for _, h := range s.handlers {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s *fanoutHandler) WithAttrs(attrs []log.Attr) log.Handler {
	next := make([]log.Handler, len(s.handlers))
	for i, h := range s.handlers {
		next[i] = h.WithAttrs(attrs)
	}
	return &fanoutHandler{handlers: next}
}

func (s *fanoutHandler) WithGroup(name string) log.Handler {
	next := make([]log.Handler, len(s.handlers))
	for i, h := range s.handlers {
		next[i] = h.WithGroup(name)
	}
	return &fanoutHandler{handlers: next}
}

// remoteFilterHandler 只上报请求/任务链路内的日志，以及 Warn 以上的日志
type remoteFilterHandler struct {
	next log.Handler
}

func (s *remoteFilterHandler) Enabled(ctx context.Context, level log.Level) bool {
	return s.next.Enabled(ctx, level)
}

func (s *remoteFilterHandler) Handle(ctx context.Context, r log.Record) error {
	if r.Level >= log.LevelWarn || hasTraceID(r) {
		return s.next.Handle(ctx, r)
	}
	return nil
}

func (s *remoteFilterHandler) WithAttrs(attrs []log.Attr) log.Handler {
	return &remoteFilterHandler{next: s.next.WithAttrs(attrs)}
}

func (s *remoteFilterHandler) WithGroup(name string) log.Handler {
	return &remoteFilterHandler{next: s.next.WithGroup(name)}
}

func hasTraceID(r log.Record) bool {
	found := false
	r.Attrs(func(a log.Attr) bool {
		if a.Key == TraceIDKey && a.Value.String() != "" {
			found = true
			return false
		}
		return true
	})
	return found
}
