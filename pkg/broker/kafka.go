package broker

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/segmentio/kafka-go"

	"github.com/ghuser/marketplace/pkg/events"
	"github.com/ghuser/marketplace/pkg/logger"
)

// headerMessageUUID carries the watermill message UUID across Kafka.
const headerMessageUUID = "_watermill_message_uuid"

// KafkaConfig configures the Kafka driver.
type KafkaConfig struct {
	Brokers      []string
	WriteTimeout time.Duration
}

// Kafka is the segmentio/kafka-go driver. Connect probes the cluster and
// returns a writer that partitions by the message routing key.
type Kafka struct {
	cfg KafkaConfig
	log logger.Logger
}

// NewKafka validates cfg and returns a Kafka connector. No connection is made
// until Connect.
func NewKafka(cfg KafkaConfig, log logger.Logger) (*Kafka, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("broker: no kafka brokers configured")
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	return &Kafka{cfg: cfg, log: log}, nil
}

// Connect dials the first reachable broker and returns the transport.
func (k *Kafka) Connect(ctx context.Context) (message.Publisher, error) {
	if err := k.probe(ctx); err != nil {
		return nil, err
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(k.cfg.Brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		// The Publisher owns the retry policy: one attempt per publish.
		MaxAttempts:            1,
		BatchSize:              1,
		WriteTimeout:           k.cfg.WriteTimeout,
		AllowAutoTopicCreation: true,
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...any) {
			k.log.Error(fmt.Sprintf(msg, args...), "component", "kafka-writer")
		}),
	}
	return &kafkaPublisher{writer: w, kafka: k}, nil
}

func (k *Kafka) probe(ctx context.Context) error {
	var errs []error
	for _, addr := range k.cfg.Brokers {
		conn, err := kafka.DialContext(ctx, "tcp", addr)
		if err == nil {
			_ = conn.Close()
			return nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", addr, err))
	}
	return fmt.Errorf("broker: dial kafka: %w", errors.Join(errs...))
}

// Consume reads topics as consumer group until ctx is cancelled. Each message
// is committed after handler succeeds or exhausts its retries; a failed
// message is logged and skipped so the partition keeps moving.
func (k *Kafka) Consume(ctx context.Context, group string, topics []string, handler Handler) error {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     k.cfg.Brokers,
		GroupID:     group,
		GroupTopics: topics,
		MinBytes:    1,
		MaxBytes:    10e6,
		MaxWait:     500 * time.Millisecond,
		// Commits are explicit.
		CommitInterval: 0,
	})
	defer func() { _ = r.Close() }()

	for {
		km, err := r.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return fmt.Errorf("broker: fetch kafka message: %w", err)
		}
		msg := fromKafkaMessage(km)
		msgCtx := messageContext(ctx, msg)
		if err := retryWithBackoff(msgCtx, msg, handler, maxRetries, retryBaseDelay, k.log); err != nil {
			k.log.ErrorContext(msgCtx, "broker: dropping kafka message",
				"topic", km.Topic, "partition", km.Partition, "offset", km.Offset, "error", err)
		}
		if err := r.CommitMessages(ctx, km); err != nil {
			return fmt.Errorf("broker: commit kafka offset: %w", err)
		}
	}
}

type kafkaPublisher struct {
	writer *kafka.Writer
	kafka  *Kafka
}

// Publish writes msgs to topic using the first message's context.
func (p *kafkaPublisher) Publish(topic string, msgs ...*message.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	kms := make([]kafka.Message, 0, len(msgs))
	for _, m := range msgs {
		kms = append(kms, toKafkaMessage(topic, m))
	}
	if err := p.writer.WriteMessages(msgs[0].Context(), kms...); err != nil {
		return fmt.Errorf("broker: kafka write to %s: %w", topic, err)
	}
	return nil
}

// Ping re-dials the cluster.
func (p *kafkaPublisher) Ping(ctx context.Context) error {
	return p.kafka.probe(ctx)
}

func (p *kafkaPublisher) Close() error {
	return p.writer.Close()
}

// toKafkaMessage maps the routing key to the Kafka key and every metadata
// entry to a header, in sorted order.
func toKafkaMessage(topic string, m *message.Message) kafka.Message {
	keys := make([]string, 0, len(m.Metadata))
	for k := range m.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	headers := make([]kafka.Header, 0, len(keys)+1)
	headers = append(headers, kafka.Header{Key: headerMessageUUID, Value: []byte(m.UUID)})
	for _, k := range keys {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(m.Metadata[k])})
	}

	ts := events.HeadersOf(m).Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return kafka.Message{
		Topic:   topic,
		Key:     []byte(events.KeyOf(m)),
		Value:   m.Payload,
		Headers: headers,
		Time:    ts,
	}
}

func fromKafkaMessage(km kafka.Message) *message.Message {
	uuid := ""
	metadata := make(message.Metadata, len(km.Headers))
	for _, h := range km.Headers {
		if h.Key == headerMessageUUID {
			uuid = string(h.Value)
			continue
		}
		metadata.Set(h.Key, string(h.Value))
	}
	if uuid == "" {
		uuid = watermill.NewUUID()
	}
	if metadata.Get(events.MetadataKey) == "" && len(km.Key) > 0 {
		metadata.Set(events.MetadataKey, string(km.Key))
	}
	msg := message.NewMessage(uuid, km.Value)
	msg.Metadata = metadata
	return msg
}
