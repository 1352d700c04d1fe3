package kafka

import (
	"Insightful/internal/api/config"
	"Insightful/internal/service"
	"context"
	log "log/slog"

	"github.com/IBM/sarama"
)

// ConsumerManager 管理 Kafka 消费者
type ConsumerManager struct {
	reactionConsumer sarama.ConsumerGroup
	reactionHandler  sarama.ConsumerGroupHandler
}

// NewConsumerManager 构造函数
func NewConsumerManager(cfg *config.Config, sysBoxSvc service.SysBoxService) (*ConsumerManager, error) {
	saramaCfg := newSaramaConfig(cfg.Kafka)

	reactionConsumer, err := sarama.NewConsumerGroup(cfg.Kafka.Brokers, cfg.KafkaReactionConsumer.GroupID, saramaCfg)
	if err != nil {
		return nil, err
	}

	return &ConsumerManager{
		reactionConsumer: reactionConsumer,
		reactionHandler:  NewReactionEventsHandler(sysBoxSvc),
	}, nil
}

// Start 启动所有消费者，阻塞直到 ctx 结束
func (m *ConsumerManager) Start(ctx context.Context, cfg *config.Config) error {
	go func() {
		topic := cfg.KafkaReactionConsumer.Topic
		log.Info("Reaction consumer started", "topic", topic)
		for {
			if err := m.reactionConsumer.Consume(ctx, []string{topic}, m.reactionHandler); err != nil {
				log.Error("Error from consumer", "err", err)
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()

	go func() {
		for err := range m.reactionConsumer.Errors() {
			log.Error("Reaction consumer error", "err", err)
		}
	}()

	<-ctx.Done()
	log.Info("Kafka Manager shutting down...")

	if err := m.reactionConsumer.Close(); err != nil {
		log.Error("Failed to close reaction consumer", "err", err)
	}

	return nil
}
