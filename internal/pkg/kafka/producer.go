package kafka

import (
	"Insightful/internal/api/config"
	"Insightful/internal/pkg/event"
	"context"
	"strconv"

	"github.com/IBM/sarama"
	"github.com/goccy/go-json"
)

// ReactionEventProducer 将反应事件写入 Kafka，供统计与通知消费者使用
type ReactionEventProducer struct {
	producer sarama.SyncProducer
	topic    string
}

func NewReactionEventProducer(cfg config.KafkaConfig) (*ReactionEventProducer, error) {
	producer, err := sarama.NewSyncProducer(cfg.Brokers, newProducerConfig(cfg))
	if err != nil {
		return nil, err
	}
	return NewReactionEventProducerWith(producer, cfg.Producer.Topic), nil
}

func NewReactionEventProducerWith(producer sarama.SyncProducer, topic string) *ReactionEventProducer {
	return &ReactionEventProducer{
		producer: producer,
		topic:    topic,
	}
}

func (p *ReactionEventProducer) Name() string {
	return "kafka_producer"
}

func (p *ReactionEventProducer) Handle(_ context.Context, ev event.ReactionEvent) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, _, err = p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(strconv.FormatUint(ev.PostID, 10)),
		Value: sarama.ByteEncoder(value),
	})
	return err
}

func (p *ReactionEventProducer) Close() error {
	return p.producer.Close()
}
