package recorder

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"FinUp/internal/model"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageWriter is the part of kafka.Writer the recorder uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaRecorder streams evaluation events to a Kafka topic, keyed by account.
type KafkaRecorder struct {
	w       MessageWriter
	timeout time.Duration
}

// NewKafkaWriter constructs a writer for topic.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}
	return kafka.NewWriter(kafka.WriterConfig{
		Brokers:      brokers,
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		Dialer:       dialer,
		BatchTimeout: 200 * time.Millisecond,
		RequiredAcks: int(kafka.RequireOne),
	})
}

// EnsureTopic creates the topic if the broker allows it. Failures are only logged.
func EnsureTopic(ctx context.Context, broker, topic string) {
	conn, err := kafka.DialContext(ctx, "tcp", broker)
	if err != nil {
		zap.L().Warn("kafka dial failed", zap.String("broker", broker), zap.Error(err))
		return
	}
	defer conn.Close()

	err = conn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	})
	if err != nil {
		zap.L().Info("kafka create topic", zap.String("topic", topic), zap.Error(err))
	}
}

func NewKafkaRecorder(w MessageWriter, timeout time.Duration) *KafkaRecorder {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &KafkaRecorder{w: w, timeout: timeout}
}

type indicatorMessage struct {
	At         time.Time                 `json:"at"`
	Indicators []model.EconomicIndicator `json:"indicators"`
}

func (k *KafkaRecorder) RecordEvaluation(evt *EvaluationEvent) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return k.write(kafka.Message{
		Key:     []byte(strconv.FormatInt(evt.AccountID, 10)),
		Value:   payload,
		Time:    evt.At,
		Headers: []kafka.Header{{Key: "type", Value: []byte("evaluation")}},
	})
}

func (k *KafkaRecorder) RecordIndicators(at time.Time, inds []model.EconomicIndicator) error {
	payload, err := json.Marshal(indicatorMessage{At: at, Indicators: inds})
	if err != nil {
		return err
	}
	return k.write(kafka.Message{
		Key:     []byte("indicators"),
		Value:   payload,
		Time:    at,
		Headers: []kafka.Header{{Key: "type", Value: []byte("indicators")}},
	})
}

func (k *KafkaRecorder) write(msg kafka.Message) error {
	ctx, cancel := context.WithTimeout(context.Background(), k.timeout)
	defer cancel()
	if err := k.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}

func (k *KafkaRecorder) Close() error {
	zap.L().Info("closing kafka recorder")
	return k.w.Close()
}
