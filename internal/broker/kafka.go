package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"golang.org/x/sync/errgroup"

	"gateway/internal/config"
	"gateway/internal/constants"
	"gateway/internal/logger"
	"gateway/pkg/logging"
	"gateway/pkg/metrics"
	"gateway/pkg/models"
	"gateway/pkg/retry"
	"gateway/pkg/tracing"
)

// MessageWriter is the subset of *kafka.Writer used by the producer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// MessageReader is the subset of *kafka.Reader used by the consumer.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaProducer struct {
	writer MessageWriter
	logger logger.Logger
}

func NewKafkaProducer(cfg config.KafkaConfig, log logger.Logger) *KafkaProducer {
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.Hash{},
		BatchTimeout: constants.KafkaBatchTimeout,
		WriteTimeout: constants.KafkaWriteTimeout,
		RequiredAcks: kafka.RequireAll,
		Async:        false,
	}
	return NewKafkaProducerWithWriter(w, log)
}

func NewKafkaProducerWithWriter(w MessageWriter, log logger.Logger) *KafkaProducer {
	return &KafkaProducer{writer: w, logger: log}
}

// Publish writes the envelope with its dedup key as the message key, so
// events sharing a key land on the same partition.
func (p *KafkaProducer) Publish(ctx context.Context, topic string, msg models.EventEnvelope) error {
	headers := make([]kafka.Header, 0, len(msg.Headers)+2)
	for _, h := range msg.Headers {
		headers = append(headers, kafka.Header{Key: h.Key, Value: []byte(h.Value)})
	}
	if _, ok := msg.Headers.Get(models.HeaderEventType); !ok && msg.EventType != "" {
		headers = append(headers, kafka.Header{Key: models.HeaderEventType, Value: []byte(msg.EventType)})
	}
	headers = tracing.InjectTraceContext(ctx, headers)

	var key []byte
	if msg.DedupKey != "" {
		key = []byte(msg.DedupKey)
	}

	start := time.Now()
	err := p.writer.WriteMessages(ctx,
		kafka.Message{
			Topic:   topic,
			Key:     key,
			Value:   msg.Payload,
			Headers: headers,
			Time:    start,
		},
	)
	metrics.ObserveKafkaWriteDuration(topic, time.Since(start))

	if err != nil {
		return classifyWriteError(fmt.Errorf("failed to write kafka message: %w", err))
	}

	metrics.KafkaMessagesWrittenTotal.WithLabelValues(topic).Inc()
	metrics.ObserveKafkaMessageSize(topic, "out", len(msg.Payload))
	return nil
}

func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}

// classifyWriteError marks broker error codes that Kafka documents as
// retriable, and makes every other code fatal so retry loops stop early.
// Transport errors carry no code and are left as they are.
func classifyWriteError(err error) error {
	var writeErrs kafka.WriteErrors
	if errors.As(err, &writeErrs) && len(writeErrs) == 1 && writeErrs[0] != nil {
		err = fmt.Errorf("%w: %w", err, writeErrs[0])
	}

	var code kafka.Error
	if !errors.As(err, &code) {
		return err
	}
	if code.Temporary() {
		return retry.NewRetryableError(err)
	}
	return retry.NewFatalError(err)
}

// KafkaConsumer reads one topic and fans messages out to one worker per
// partition. Each worker resolves its messages strictly in order and commits
// only after the handler returns nil.
type KafkaConsumer struct {
	topic     string
	reader    MessageReader
	queueSize int
	logger    logger.Logger
}

func NewKafkaConsumer(cfg config.KafkaConfig, topic string, log logger.Logger) *KafkaConsumer {
	log.Infow("Creating Kafka reader",
		"topic", topic,
		"brokers", cfg.Brokers,
		"group_id", cfg.GroupID,
	)

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		GroupID:        cfg.GroupID,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		MaxWait:        500 * time.Millisecond,
		CommitInterval: 0,
		StartOffset:    kafka.FirstOffset,
	})

	return NewKafkaConsumerWithReader(reader, topic, cfg.QueueSize, log)
}

func NewKafkaConsumerWithReader(reader MessageReader, topic string, queueSize int, log logger.Logger) *KafkaConsumer {
	if queueSize < 1 {
		queueSize = constants.DefaultPartitionQueueSize
	}
	return &KafkaConsumer{
		topic:     topic,
		reader:    reader,
		queueSize: queueSize,
		logger:    log,
	}
}

func (c *KafkaConsumer) Topic() string {
	return c.topic
}

// Consume blocks until ctx is cancelled or a handler reports an unresolved
// message. On cancellation each worker finishes its in-flight message and
// leaves buffered ones uncommitted. Returns nil on a requested stop.
func (c *KafkaConsumer) Consume(ctx context.Context, handler HandlerFunc) error {
	g, gCtx := errgroup.WithContext(ctx)
	queues := make(map[int]chan kafka.Message)

	c.logger.InfowCtx(ctx, "Started consuming", "topic", c.topic)

	g.Go(func() error {
		for {
			m, err := c.reader.FetchMessage(gCtx)
			if err != nil {
				if gCtx.Err() != nil {
					return nil
				}
				c.logger.ErrorwCtx(ctx, "Error fetching kafka message",
					"error", err,
					"topic", c.topic,
				)
				select {
				case <-gCtx.Done():
					return nil
				case <-time.After(time.Second):
				}
				continue
			}
			metrics.KafkaMessagesReadTotal.WithLabelValues(c.topic).Inc()

			queue, ok := queues[m.Partition]
			if !ok {
				queue = make(chan kafka.Message, c.queueSize)
				queues[m.Partition] = queue
				partition := m.Partition
				g.Go(func() error {
					return c.work(gCtx, partition, queue, handler)
				})
			}

			select {
			case queue <- m:
				metrics.PartitionQueueSize.WithLabelValues(c.topic, strconv.Itoa(m.Partition)).Set(float64(len(queue)))
			case <-gCtx.Done():
				return nil
			}
		}
	})

	err := g.Wait()
	c.logger.InfowCtx(ctx, "Stopped consuming", "topic", c.topic, "error", err)
	return err
}

func (c *KafkaConsumer) work(stopCtx context.Context, partition int, queue <-chan kafka.Message, handler HandlerFunc) error {
	partitionLabel := strconv.Itoa(partition)
	for {
		select {
		case <-stopCtx.Done():
			return nil
		case m := <-queue:
			if stopCtx.Err() != nil {
				return nil
			}
			metrics.PartitionQueueSize.WithLabelValues(c.topic, partitionLabel).Set(float64(len(queue)))

			// The message is in flight from here: it runs to completion even
			// if the consumer is asked to stop.
			if err := c.process(context.WithoutCancel(stopCtx), m, handler); err != nil {
				return err
			}
		}
	}
}

func (c *KafkaConsumer) process(ctx context.Context, m kafka.Message, handler HandlerFunc) error {
	msgCtx, span := tracing.StartSpanFromKafkaMessage(ctx, "kafka.consume", m)
	defer span.End()

	if sc := span.SpanContext(); sc.HasTraceID() {
		msgCtx = logging.WithTraceID(msgCtx, sc.TraceID().String())
	}
	msgCtx = logging.WithMessageID(msgCtx, fmt.Sprintf("%s/%d/%d", m.Topic, m.Partition, m.Offset))

	metrics.ObserveKafkaMessageSize(m.Topic, "in", len(m.Value))

	delivery := Delivery{
		Envelope:  EnvelopeFromMessage(m),
		Topic:     m.Topic,
		Partition: m.Partition,
		Offset:    m.Offset,
	}

	if err := handler(msgCtx, delivery); err != nil {
		return fmt.Errorf("message %s/%d/%d unresolved: %w", m.Topic, m.Partition, m.Offset, err)
	}

	if err := c.reader.CommitMessages(msgCtx, m); err != nil {
		c.logger.ErrorwCtx(msgCtx, "Failed to commit message",
			"error", err,
			"topic", m.Topic,
			"partition", m.Partition,
			"offset", m.Offset,
		)
	}
	return nil
}

func (c *KafkaConsumer) Close() error {
	return c.reader.Close()
}

// EnvelopeFromMessage maps a Kafka record onto an EventEnvelope. The event
// type comes from the eventType header and falls back to the topic name.
func EnvelopeFromMessage(m kafka.Message) models.EventEnvelope {
	headers := make(models.Headers, 0, len(m.Headers))
	for _, h := range m.Headers {
		headers.Set(h.Key, string(h.Value))
	}

	eventType := headers.Value(models.HeaderEventType)
	if eventType == "" {
		eventType = m.Topic
	}

	return models.EventEnvelope{
		EventType: eventType,
		DedupKey:  string(m.Key),
		Payload:   json.RawMessage(m.Value),
		Headers:   headers,
	}
}
