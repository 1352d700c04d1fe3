package logger

import (
	"context"
	log "log/slog"

	"github.com/google/uuid"
)

const (
	TraceIDKey = "trace_id"
	// UserIDKey 与鉴权中间件写入请求 ctx 的键一致
	UserIDKey = "user_id"
)

func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// NewJobContext 后台任务的根 ctx，trace_id 形如 {prefix}-{uuid}
func NewJobContext(prefix string) (context.Context, string) {
	traceID := prefix + "-" + uuid.NewString()
	return WithTraceID(context.Background(), traceID), traceID
}

// ContextHandler 从 ctx 中提取 trace_id 与当前用户
type ContextHandler struct {
	log.Handler
}

func (h *ContextHandler) Handle(ctx context.Context, r log.Record) error {
	if ctx != nil {
		if traceID, ok := ctx.Value(TraceIDKey).(string); ok && traceID != "" {
			r.AddAttrs(log.String(TraceIDKey, traceID))
		}
		if userID, ok := ctx.Value(UserIDKey).(uint64); ok && userID != 0 {
			r.AddAttrs(log.Uint64(UserIDKey, userID))
		}
	}
	return h.Handler.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []log.Attr) log.Handler {
	return &ContextHandler{h.Handler.WithAttrs(attrs)}
}

func (h *ContextHandler) WithGroup(name string) log.Handler {
	return &ContextHandler{h.Handler.WithGroup(name)}
}
