package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier публикует уведомления в топик; доставку в чат делает
// отдельный потребитель. Ключ сообщения — получатель, чтобы порядок
// для одного пользователя сохранялся.
type KafkaNotifier struct {
	w     messageWriter
	topic string
}

// Таймауты писателя короче DefaultDeliverTimeout: пачка уходит сразу,
// недоступный брокер не держит запись дольше.
const (
	kafkaBatchTimeout = 10 * time.Millisecond
	kafkaWriteTimeout = time.Second
)

func NewKafkaNotifier(brokers []string, topic string) *KafkaNotifier {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           kafkaBatchTimeout,
		ReadTimeout:            kafkaWriteTimeout,
		WriteTimeout:           kafkaWriteTimeout,
		MaxAttempts:            2,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return &KafkaNotifier{w: w, topic: topic}
}

func newKafkaNotifierWithWriter(w messageWriter, topic string) *KafkaNotifier {
	return &KafkaNotifier{w: w, topic: topic}
}

func (k *KafkaNotifier) Notify(ctx context.Context, n Notification) error {
	return k.NotifyAll(ctx, n)
}

// NotifyAll публикует все уведомления одним WriteMessages.
func (k *KafkaNotifier) NotifyAll(ctx context.Context, ns ...Notification) error {
	if len(ns) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(ns))
	for _, n := range ns {
		payload, err := json.Marshal(n)
		if err != nil {
			return fmt.Errorf("marshal notification: %w", err)
		}
		msg := kafka.Message{
			Key:   []byte(strconv.FormatInt(n.Recipient, 10)),
			Value: payload,
			Headers: []kafka.Header{
				{Key: "event_id", Value: []byte(uuid.NewString())},
				{Key: "event_type", Value: []byte(n.Kind)},
			},
		}
		msg.Headers = injectTraceHeaders(ctx, msg.Headers)
		msgs = append(msgs, msg)
	}

	if err := k.w.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("kafka write %s: %w", k.topic, err)
	}
	return nil
}

func (k *KafkaNotifier) Close() error {
	return k.w.Close()
}

func injectTraceHeaders(ctx context.Context, headers []kafka.Header) []kafka.Header {
	carrier := &headerCarrier{headers: headers}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	return carrier.headers
}

type headerCarrier struct {
	headers []kafka.Header
}

func (c *headerCarrier) Get(key string) string {
	for _, h := range c.headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c *headerCarrier) Keys() []string {
	keys := make([]string, 0, len(c.headers))
	for _, h := range c.headers {
		keys = append(keys, h.Key)
	}
	return keys
}

func (c *headerCarrier) Set(key, value string) {
	for i := range c.headers {
		if c.headers[i].Key == key {
			c.headers[i].Value = []byte(value)
			return
		}
	}
	c.headers = append(c.headers, kafka.Header{Key: key, Value: []byte(value)})
}

var (
	_ propagation.TextMapCarrier = (*headerCarrier)(nil)
	_ BatchNotifier              = (*KafkaNotifier)(nil)
)
