package kafkabridge

import (
	"context"
	"errors"
	"sync"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/wyfcoding/cartd/internal/database"
	"github.com/wyfcoding/cartd/internal/logging"
	"github.com/wyfcoding/cartd/internal/metrics"
)

// kafkaTopicRow is the checkpoint row recording the last committed
// offset per inbound topic, co-located with the event log in the same
// Postgres instance per the spec.
type kafkaTopicRow struct {
	Topic      string `gorm:"column:topic;primaryKey"`
	LastOffset int64  `gorm:"column:last_offset"`
}

func (kafkaTopicRow) TableName() string { return "kafka_topic" }

// Translator turns one inbound message's raw bytes into a Decision and
// runs it. An error is logged and the message skipped (the default
// malformed-payload policy); the offset still advances so one bad
// message never blocks the rest of the topic.
type Translator func(ctx context.Context, payload []byte) error

// Bridge owns one Kafka reader goroutine per registered topic.
// Grounded on messagequeue/kafka/subscriber.go's per-topic consumer
// bookkeeping, trimmed to a static topic set registered before Run
// instead of dynamic Subscribe/Unsubscribe (this repo has a fixed,
// known set of inbound topics).
type Bridge struct {
	brokers []string
	db      *database.DB
	logger  *logging.Logger
	metrics *metrics.Metrics

	mu         sync.Mutex
	translator map[string]Translator
}

func NewBridge(brokers []string, db *database.DB, log *logging.Logger, m *metrics.Metrics) *Bridge {
	return &Bridge{
		brokers:    brokers,
		db:         db,
		logger:     log.With("kafka-bridge"),
		metrics:    m,
		translator: make(map[string]Translator),
	}
}

// RegisterTopic associates an inbound topic with its translator.
func (b *Bridge) RegisterTopic(topic string, t Translator) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.translator[topic] = t
}

func (b *Bridge) AutoMigrate() error {
	return b.db.AutoMigrate(&kafkaTopicRow{})
}

// Run starts one goroutine per registered topic and blocks until ctx
// is cancelled.
func (b *Bridge) Run(ctx context.Context) {
	b.mu.Lock()
	topics := make([]string, 0, len(b.translator))
	for topic := range b.translator {
		topics = append(topics, topic)
	}
	b.mu.Unlock()

	var wg sync.WaitGroup
	for _, topic := range topics {
		wg.Add(1)
		go func(topic string) {
			defer wg.Done()
			b.consumeTopic(ctx, topic)
		}(topic)
	}
	wg.Wait()
}

func (b *Bridge) consumeTopic(ctx context.Context, topic string) {
	log := b.logger.With(topic)
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:        b.brokers,
		GroupID:        "cartd",
		Topic:          topic,
		MinBytes:       10e3,
		MaxBytes:       10e6,
		MaxWait:        time.Second,
		CommitInterval: 0, // commit explicitly, after the translated Decision has been appended
	})
	defer reader.Close()

	tracer := otel.Tracer("cartd-kafka-consumer")
	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error("failed to fetch message", "error", err)
			continue
		}

		lastOffset, err := b.loadCheckpoint(ctx, topic)
		if err != nil {
			log.Error("failed to load kafka_topic checkpoint, leaving message uncommitted", "offset", msg.Offset, "error", err)
			continue
		}
		if msg.Offset <= lastOffset {
			log.Debug("skipping message already covered by checkpoint", "offset", msg.Offset, "last_offset", lastOffset)
			if err := reader.CommitMessages(ctx, msg); err != nil {
				log.Error("failed to commit already-applied offset", "error", err)
			}
			continue
		}

		carrier := propagation.MapCarrier{}
		for _, h := range msg.Headers {
			carrier[h.Key] = string(h.Value)
		}
		msgCtx := otel.GetTextMapPropagator().Extract(ctx, carrier)
		msgCtx, span := tracer.Start(msgCtx, "kafkabridge.Consume", trace.WithSpanKind(trace.SpanKindConsumer))

		start := time.Now()
		b.mu.Lock()
		translate := b.translator[topic]
		b.mu.Unlock()

		outcome := "success"
		if err := translate(msgCtx, msg.Value); err != nil {
			outcome = "skipped"
			log.Error("translator failed, skipping message", "offset", msg.Offset, "error", err)
		}
		if b.metrics != nil {
			b.metrics.KafkaConsumed.WithLabelValues(topic, outcome).Inc()
		}
		span.End()
		_ = time.Since(start)

		// Checkpoint the database before acking Kafka: if the process
		// dies between the two, redelivery finds the checkpoint already
		// advanced and skips re-applying above. Acking Kafka first would
		// risk the opposite crash window — a committed offset the
		// checkpoint never recorded, silently dropping the message.
		b.advanceCheckpoint(ctx, topic, msg.Offset)
		if err := reader.CommitMessages(ctx, msg); err != nil {
			log.Error("failed to commit offset", "error", err)
		}
	}
}

func (b *Bridge) loadCheckpoint(ctx context.Context, topic string) (int64, error) {
	var row kafkaTopicRow
	err := b.db.WithContext(ctx).Where("topic = ?", topic).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return row.LastOffset, nil
}

func (b *Bridge) advanceCheckpoint(ctx context.Context, topic string, offset int64) {
	err := b.db.WithContext(ctx).Exec(
		`INSERT INTO kafka_topic (topic, last_offset) VALUES (?, ?)
		 ON CONFLICT (topic) DO UPDATE SET last_offset = excluded.last_offset
		 WHERE kafka_topic.last_offset < excluded.last_offset`,
		topic, offset,
	).Error
	if err != nil {
		b.logger.Error("failed to advance kafka_topic checkpoint", "topic", topic, "error", err)
	}
}
