package kafka

import (
	"cbr-rates/internal/models"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestKafkaProducer_SendRatesSavedEvent_Success(t *testing.T) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	mockProducer := mocks.NewSyncProducer(t, cfg)

	event := models.RatesSavedEvent{
		EventID:    "evt-1",
		Date:       "2024-03-01",
		Source:     models.SourceCBR,
		Currencies: 2,
		Rates:      map[string]float64{"USD": 90.8545, "EUR": 98.1},
		SavedAt:    time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	mockProducer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		key, err := msg.Key.Encode()
		if err != nil {
			return err
		}
		if string(key) != event.Date {
			return fmt.Errorf("key %q, want %q", key, event.Date)
		}

		headers := make(map[string]string, len(msg.Headers))
		for _, h := range msg.Headers {
			headers[string(h.Key)] = string(h.Value)
		}
		if headers["event_type"] != models.RatesSavedEventType || headers["source"] != models.SourceCBR {
			return fmt.Errorf("unexpected headers %v", headers)
		}

		val, err := msg.Value.Encode()
		if err != nil {
			return err
		}
		var got models.RatesSavedEvent
		if err := json.Unmarshal(val, &got); err != nil {
			return err
		}
		if got.Currencies != 2 || got.Rates["USD"] != 90.8545 {
			return errors.New("unexpected payload")
		}
		return nil
	})

	producer := NewKafkaProducerWithClient(mockProducer, "rates-saved", testLogger())

	err := producer.SendRatesSavedEvent(context.Background(), event)
	assert.NoError(t, err)

	require.NoError(t, producer.Close())
}

func TestKafkaProducer_CurrenciesDefaultsToBatchSize(t *testing.T) {
	producer := NewKafkaProducerWithClient(nil, "rates-saved", testLogger())

	msg, err := producer.ratesSavedMessage(models.RatesSavedEvent{
		Date:  "2024-03-01",
		Rates: map[string]float64{"USD": 90.5, "EUR": 98.2, "CNY": 12.4},
	})
	require.NoError(t, err)

	val, err := msg.Value.Encode()
	require.NoError(t, err)
	var got models.RatesSavedEvent
	require.NoError(t, json.Unmarshal(val, &got))
	assert.Equal(t, 3, got.Currencies)
}

func TestKafkaProducer_CanceledContext(t *testing.T) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	mockProducer := mocks.NewSyncProducer(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	producer := NewKafkaProducerWithClient(mockProducer, "rates-saved", testLogger())
	err := producer.SendRatesSavedEvent(ctx, models.RatesSavedEvent{EventID: "evt-4", Date: "2024-03-01"})

	assert.ErrorIs(t, err, context.Canceled)
	require.NoError(t, producer.Close())
}

func TestKafkaProducer_SendRatesSavedEvent_Failure(t *testing.T) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	mockProducer := mocks.NewSyncProducer(t, cfg)

	mockProducer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	producer := NewKafkaProducerWithClient(mockProducer, "rates-saved", testLogger())

	err := producer.SendRatesSavedEvent(context.Background(), models.RatesSavedEvent{EventID: "evt-2", Date: "2024-03-01"})
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)

	require.NoError(t, producer.Close())
}

func TestNoOpProducer(t *testing.T) {
	producer := NewNoOpProducer(testLogger())

	assert.NoError(t, producer.SendRatesSavedEvent(context.Background(), models.RatesSavedEvent{EventID: "evt-3"}))
	assert.NoError(t, producer.Close())
}
