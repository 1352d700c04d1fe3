package kafka

import (
	"Insightful/internal/pkg/event"
	"Insightful/internal/pkg/logger"
	"context"
	"fmt"
	log "log/slog"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/goccy/go-json"
	"github.com/pkg/errors"
)

const (
	batchSize        = 32
	batchTimeout     = 1 * time.Second
	maxRetryAttempts = 8
	maxRetryInterval = 5 * time.Second
)

var errEmptyEvent = errors.New("reaction event missing post id")

type LogicFunc func(ctx context.Context, msg *sarama.ConsumerMessage) error

// pullMessageBatch 拉取一批消息并执行业务逻辑
func pullMessageBatch(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim, logic LogicFunc) error {
	batch := make([]*sarama.ConsumerMessage, 0, batchSize)
	ticker := time.NewTicker(batchTimeout)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		processBatch(session, batch, logic)
		batch = make([]*sarama.ConsumerMessage, 0, batchSize)
	}

	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				flush()
				return nil
			}
			batch = append(batch, msg)
			if len(batch) >= batchSize {
				flush()
				ticker.Reset(batchTimeout)
			}
		case <-ticker.C:
			flush()
		case <-session.Context().Done():
			return nil
		}
	}
}

// processBatch 按消息 key（帖子 ID）分组，组间并发、组内按 offset 顺序执行
// 事件携带的是绝对计数，同一帖子乱序应用会用旧值覆盖新值
func processBatch(session sarama.ConsumerGroupSession, messages []*sarama.ConsumerMessage, logic LogicFunc) {
	var wg sync.WaitGroup
	for _, group := range groupByKey(messages) {
		wg.Add(1)
		go func(msgs []*sarama.ConsumerMessage) {
			defer wg.Done()
			for _, m := range msgs {
				if !runWithRetry(session.Context(), m, logic) {
					return
				}
			}
		}(group)
	}
	wg.Wait()

	if session.Context().Err() != nil {
		return
	}
	session.MarkMessage(messages[len(messages)-1], "")
}

func groupByKey(messages []*sarama.ConsumerMessage) [][]*sarama.ConsumerMessage {
	index := make(map[string]int)
	var groups [][]*sarama.ConsumerMessage
	for _, m := range messages {
		k := string(m.Key)
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], m)
	}
	return groups
}

// runWithRetry 指数退避重试，超过次数后放弃该消息；返回 false 表示会话已结束
func runWithRetry(ctx context.Context, m *sarama.ConsumerMessage, logic LogicFunc) bool {
	ctx = logger.WithTraceID(ctx, fmt.Sprintf("kafka-%s-%d-%d", m.Topic, m.Partition, m.Offset))
	interval := 100 * time.Millisecond
	for attempt := 1; ; attempt++ {
		err := logic(ctx, m)
		if err == nil {
			return true
		}
		if attempt >= maxRetryAttempts {
			log.ErrorContext(ctx, "drop message after retries", "offset", m.Offset, "attempts", attempt, "err", err)
			return true
		}
		log.WarnContext(ctx, "process message error", "offset", m.Offset, "attempt", attempt, "err", err)

		select {
		case <-ctx.Done():
			return false
		case <-time.After(interval):
		}
		interval = min(interval*2, maxRetryInterval)
	}
}

// ToReactionEvent 解析 Kafka 消息中的反应事件
func ToReactionEvent(msg *sarama.ConsumerMessage) (*event.ReactionEvent, error) {
	var ev event.ReactionEvent
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		return nil, errors.Wrapf(err, "decode reaction event at offset %d", msg.Offset)
	}
	if ev.PostID == 0 {
		return nil, errors.WithStack(errEmptyEvent)
	}
	return &ev, nil
}
