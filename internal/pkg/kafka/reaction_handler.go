package kafka

import (
	"Insightful/internal/pkg/event"
	"Insightful/internal/pkg/redis"
	"Insightful/internal/service"
	"context"
	log "log/slog"

	"github.com/IBM/sarama"
)

// ReactionEventsHandler 反应事件的统计与通知消费者，重复投递是幂等的
type ReactionEventsHandler struct {
	sysBoxSvc service.SysBoxService
}

func NewReactionEventsHandler(sysBoxSvc service.SysBoxService) *ReactionEventsHandler {
	return &ReactionEventsHandler{
		sysBoxSvc: sysBoxSvc,
	}
}

func (s *ReactionEventsHandler) Setup(sarama.ConsumerGroupSession) error {
	log.Info("reaction events consumer setup")
	return nil
}

func (s *ReactionEventsHandler) Cleanup(sarama.ConsumerGroupSession) error {
	log.Info("reaction events consumer cleanup")
	return nil
}

func (s *ReactionEventsHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	log.Info("topic-reaction consume claim", "partition", claim.Partition())
	err := pullMessageBatch(session, claim, s.logic)
	if err != nil {
		log.Error("topic-reaction process batch error", "err", err)
		return err
	}
	return nil
}

func (s *ReactionEventsHandler) logic(ctx context.Context, msg *sarama.ConsumerMessage) error {
	ev, err := ToReactionEvent(msg)
	if err != nil {
		// 无法解析的消息重试也不会成功，直接跳过
		log.ErrorContext(ctx, "skip malformed reaction event", "err", err)
		return nil
	}
	return s.Apply(ctx, ev)
}

// Apply 删除帖子计数缓存，由读路径从数据库回填，created 事件为作者写入通知
// 事件携带的计数可能是重复投递或乱序的旧值，不直接写入缓存
func (s *ReactionEventsHandler) Apply(ctx context.Context, ev *event.ReactionEvent) error {
	if err := redis.DeleteKey(ctx, service.PostCountCacheKey(ev.PostID)); err != nil {
		return err
	}
	if ev.Kind == event.KindCreated {
		if err := s.sysBoxSvc.NotifyReaction(ctx, *ev); err != nil {
			return err
		}
	}
	log.InfoContext(ctx, "reaction event applied", "post_id", ev.PostID, "kind", ev.Kind, "count", ev.Count)
	return nil
}
