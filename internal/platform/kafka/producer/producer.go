// Package producer publishes ledger events to Kafka. Records are keyed by
// tender id, so all events of one tender land on one partition and external
// consumers see them in sequence order.
package producer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"tenderledger/internal/ledger"
)

// Producer wraps a franz-go client for one topic.
type Producer struct {
	client *kgo.Client
	topic  string
}

// New connects to the given brokers. The caller owns the producer and must
// Close it.
func New(brokers []string, topic string) (*Producer, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &Producer{client: client, topic: topic}, nil
}

// EnsureTopic creates the topic if it does not exist yet. Safe to call on
// every startup.
func (p *Producer) EnsureTopic(ctx context.Context, partitions int32, replication int16) error {
	adm := kadm.NewClient(p.client)
	resp, err := adm.CreateTopics(ctx, partitions, replication, nil, p.topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", p.topic, err)
	}
	for _, res := range resp {
		if res.Err != nil && !errors.Is(res.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", res.Topic, res.Err)
		}
	}
	return nil
}

// Publish synchronously produces one event.
func (p *Producer) Publish(ctx context.Context, e ledger.Event) error {
	value, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event seq %d: %w", e.Seq, err)
	}
	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(e.TenderID.String()),
		Value: value,
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce event seq %d: %w", e.Seq, err)
	}
	return nil
}

// Close flushes and releases the client.
func (p *Producer) Close() {
	p.client.Close()
}
