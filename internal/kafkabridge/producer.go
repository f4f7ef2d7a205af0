// Package kafkabridge is the boundary between the event log and
// Kafka: inbound per-topic consumers translating external messages
// into Commands, and an outbound publisher used by the publish_cart
// retry-queue task. Grounded on messagequeue/kafka/kafka.go
// (Writer/Reader wrapping segmentio/kafka-go, otel span
// injection/extraction, prometheus counters) and
// messagequeue/kafka/subscriber.go (per-topic consumer lifecycle).
package kafkabridge

import (
	"context"
	"encoding/json"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/wyfcoding/cartd/internal/cart"
	"github.com/wyfcoding/cartd/internal/logging"
	"github.com/wyfcoding/cartd/internal/metrics"
	"github.com/wyfcoding/cartd/internal/xerrors"
)

// Producer publishes to the published-carts topic. Satisfies
// internal/queue.CartPublisher structurally.
type Producer struct {
	writer  *kafkago.Writer
	logger  *logging.Logger
	metrics *metrics.Metrics
}

// NewProducer builds a Producer for the given topic. One Producer per
// topic, matching the teacher's one-Writer-per-topic Producer shape.
func NewProducer(brokers []string, topic string, log *logging.Logger, m *metrics.Metrics) *Producer {
	return &Producer{
		writer: &kafkago.Writer{
			Addr:         kafkago.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafkago.Hash{},
			RequiredAcks: kafkago.RequireAll,
			WriteTimeout: 10 * time.Second,
		},
		logger:  log.With("kafka-producer"),
		metrics: m,
	}
}

// Publish writes msg keyed by cart_id so downstream consumers can
// dedupe a retried publish on that correlation key.
func (p *Producer) Publish(ctx context.Context, msg cart.ExternalPublishCart) error {
	start := time.Now()
	tracer := otel.Tracer("cartd-kafka-producer")
	ctx, span := tracer.Start(ctx, "kafkabridge.Publish", trace.WithSpanKind(trace.SpanKindProducer))
	defer span.End()

	value, err := json.Marshal(msg)
	if err != nil {
		return xerrors.PermanentInfra("marshal published-carts message", err)
	}

	headers := make([]kafkago.Header, 0)
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	for k, v := range carrier {
		headers = append(headers, kafkago.Header{Key: k, Value: []byte(v)})
	}

	err = p.writer.WriteMessages(ctx, kafkago.Message{
		Key:     []byte(msg.CartID),
		Value:   value,
		Headers: headers,
		Time:    time.Now(),
	})
	elapsed := time.Since(start)

	outcome := "success"
	if err != nil {
		outcome = "failed"
	}
	if p.metrics != nil {
		p.metrics.KafkaProduced.WithLabelValues(p.writer.Topic, outcome).Inc()
	}
	if err != nil {
		p.logger.Error("failed to publish message", "topic", p.writer.Topic, "elapsed", elapsed, "error", err)
		return xerrors.TransientInfra("publish kafka message", err)
	}
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
