package kafka

import (
	"Insightful/internal/api/config"
	"testing"
	"time"

	"github.com/IBM/sarama"
)

func TestNewProducerConfig(t *testing.T) {
	c := newProducerConfig(config.KafkaConfig{
		Brokers:  []string{"localhost:9092"},
		Sasl:     config.SaslConfig{Enable: true, Username: "u", Password: "p"},
		Producer: config.ProducerConfig{Topic: "reaction-events", RetryMax: 7, Timeout: 2},
	})

	if c.Producer.RequiredAcks != sarama.WaitForAll || !c.Producer.Return.Successes {
		t.Fatal("producer must wait for all replicas and return successes")
	}
	if c.Producer.Retry.Max != 7 || c.Producer.Timeout != 2*time.Second {
		t.Fatalf("unexpected retry/timeout: %d %v", c.Producer.Retry.Max, c.Producer.Timeout)
	}
	if !c.Net.SASL.Enable || c.Net.SASL.User != "u" {
		t.Fatal("expected sasl settings")
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("invalid sarama config: %v", err)
	}
}

func TestNewSaramaConfig_KeepsDefaultsForZeroValues(t *testing.T) {
	c := newSaramaConfig(config.KafkaConfig{})
	def := sarama.NewConfig()
	if c.Consumer.Group.Session.Timeout != def.Consumer.Group.Session.Timeout {
		t.Fatalf("expected default session timeout, got %v", c.Consumer.Group.Session.Timeout)
	}
	if c.Consumer.Offsets.AutoCommit.Enable {
		t.Fatal("offsets are committed manually")
	}
}
