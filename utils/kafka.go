package utils

import (
	"time"

	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"

	"github.com/petalboard/petalboard-backend/config"
)

// KafkaClients are the playlist-sync producer and consumer.
type KafkaClients struct {
	Writer *kafka.Writer
	Reader *kafka.Reader
}

func (k *KafkaClients) Close() {
	if err := k.Writer.Close(); err != nil {
		log.WithError(err).Warn("close kafka writer")
	}
	if err := k.Reader.Close(); err != nil {
		log.WithError(err).Warn("close kafka reader")
	}
}

// InitializeKafka builds the sync topic clients, or returns nil when no
// brokers are configured.
func InitializeKafka(cfg *config.Config) *KafkaClients {
	if len(cfg.KafkaBrokers) == 0 {
		log.Info("KAFKA_BROKERS not set, playlist sync runs in-process")
		return nil
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaSyncTopic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           50 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.KafkaBrokers,
		GroupID:        cfg.KafkaGroupID,
		Topic:          cfg.KafkaSyncTopic,
		MinBytes:       1,
		MaxBytes:       1 << 20,
		CommitInterval: 0,
	})

	log.WithFields(log.Fields{"brokers": cfg.KafkaBrokers, "topic": cfg.KafkaSyncTopic}).Info("✅ Kafka initialized")
	return &KafkaClients{Writer: writer, Reader: reader}
}
