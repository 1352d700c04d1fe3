// Package event 反应变更事件及其分发
package event

import (
	"context"
	log "log/slog"
	"time"
)

type Kind string

const (
	KindCreated   Kind = "created"
	KindDestroyed Kind = "destroyed"
)

// ReactionEvent 消费方应按 Count 重算而不是累加，事件可能重复投递
type ReactionEvent struct {
	PostID     uint64    `json:"post_id"`
	Count      int64     `json:"count"`
	ActorID    uint64    `json:"actor_id"`
	OwnerID    uint64    `json:"owner_id"`
	Kind       Kind      `json:"kind"`
	Reaction   string    `json:"reaction"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Handler 一个下游关注点，例如实时广播或统计
type Handler interface {
	Name() string
	Handle(ctx context.Context, ev ReactionEvent) error
}

// Publisher 由反应服务调用
type Publisher interface {
	Publish(ctx context.Context, ev ReactionEvent)
}

type Notifier struct {
	handlers []Handler
	attempts int
	backoff  time.Duration
}

// NewNotifier 每个 handler 最多尝试 attempts 次
func NewNotifier(attempts int, handlers ...Handler) *Notifier {
	if attempts < 1 {
		attempts = 1
	}
	return &Notifier{
		handlers: handlers,
		attempts: attempts,
		backoff:  50 * time.Millisecond,
	}
}

// Publish 依次投递给各 handler，失败只记录日志
func (n *Notifier) Publish(ctx context.Context, ev ReactionEvent) {
	for _, h := range n.handlers {
		if err := n.deliver(ctx, h, ev); err != nil {
			log.ErrorContext(ctx, "reaction event delivery failed",
				"handler", h.Name(), "post_id", ev.PostID, "kind", ev.Kind, "err", err)
		}
	}
}

func (n *Notifier) deliver(ctx context.Context, h Handler, ev ReactionEvent) error {
	var err error
	wait := n.backoff
	for i := 0; i < n.attempts; i++ {
		if err = h.Handle(ctx, ev); err == nil {
			return nil
		}
		if i == n.attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		wait *= 2
	}
	return err
}
