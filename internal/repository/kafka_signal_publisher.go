package repository

import (
	"context"

	"SignalPull/internal/domain/models"
	drepo "SignalPull/internal/domain/repository"
	pkgkafka "SignalPull/pkg/kafka"
)

// KafkaSignalPublisher writes saved-signal events keyed by influencer so one author's
// events stay ordered within a partition.
type KafkaSignalPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

var _ drepo.SignalPublisher = (*KafkaSignalPublisher)(nil)

func NewKafkaSignalPublisher(producer *pkgkafka.Producer, topic string) *KafkaSignalPublisher {
	return &KafkaSignalPublisher{producer: producer, topic: topic}
}

func (p *KafkaSignalPublisher) PublishSaved(ctx context.Context, ev *models.SignalEvent) error {
	return p.producer.Publish(ctx, p.topic, []byte(ev.InfluencerID), ev)
}

// Close is a no-op; the producer is shared and closed by its owner.
func (p *KafkaSignalPublisher) Close() error { return nil }

// NopSignalPublisher drops events when Kafka is disabled.
type NopSignalPublisher struct{}

func (NopSignalPublisher) PublishSaved(context.Context, *models.SignalEvent) error { return nil }
func (NopSignalPublisher) Close() error                                            { return nil }
