package kafka

import (
	"cbr-rates/internal/models"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"
)

type Producer interface {
	SendRatesSavedEvent(ctx context.Context, event models.RatesSavedEvent) error
	Close() error
}

type KafkaProducer struct {
	producer sarama.SyncProducer
	topic    string
	log      *slog.Logger
}

func NewKafkaProducer(brokers []string, topic string, log *slog.Logger) (Producer, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Timeout = 5 * time.Second

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	log.Info("kafka producer создан", slog.String("topic", topic), slog.Any("brokers", brokers))

	return NewKafkaProducerWithClient(producer, topic, log), nil
}

func NewKafkaProducerWithClient(producer sarama.SyncProducer, topic string, log *slog.Logger) *KafkaProducer {
	return &KafkaProducer{
		producer: producer,
		topic:    topic,
		log:      log,
	}
}

// SendRatesSavedEvent публикует пакет курсов за дату. Ключ сообщения - дата, поэтому
// повторные сохранения одной даты идут в одну партицию по порядку.
func (p *KafkaProducer) SendRatesSavedEvent(ctx context.Context, event models.RatesSavedEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg, err := p.ratesSavedMessage(event)
	if err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		partition, offset, err := p.producer.SendMessage(msg)
		if err == nil {
			p.log.Debug("курсы опубликованы",
				slog.String("event_id", event.EventID),
				slog.String("date", event.Date),
				slog.Int("partition", int(partition)),
				slog.Int64("offset", offset))
		}
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("kafka.SendRatesSavedEvent: %s: %w", event.Date, err)
		}
		return nil
	case <-ctx.Done():
		p.log.Warn("публикация курсов прервана",
			slog.String("event_id", event.EventID),
			slog.String("date", event.Date))
		return ctx.Err()
	}
}

func (p *KafkaProducer) ratesSavedMessage(event models.RatesSavedEvent) (*sarama.ProducerMessage, error) {
	if event.Currencies == 0 {
		event.Currencies = len(event.Rates)
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("kafka: marshal %s event: %w", event.Date, err)
	}

	return &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(event.Date),
		Value: sarama.ByteEncoder(payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(models.RatesSavedEventType)},
			{Key: []byte("source"), Value: []byte(event.Source)},
		},
		Timestamp: event.SavedAt,
	}, nil
}

func (p *KafkaProducer) Close() error {
	if p.producer == nil {
		return nil
	}
	p.log.Info("закрытие kafka producer")
	return p.producer.Close()
}

type NoOpProducer struct {
	log *slog.Logger
}

func NewNoOpProducer(log *slog.Logger) Producer {
	return &NoOpProducer{log: log}
}

func (p *NoOpProducer) SendRatesSavedEvent(ctx context.Context, event models.RatesSavedEvent) error {
	p.log.Debug("kafka отключен, событие не отправлено",
		slog.String("event_id", event.EventID),
		slog.String("date", event.Date))
	return nil
}

func (p *NoOpProducer) Close() error {
	return nil
}
