package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/KotFed0t/finplan/internal/metrics"
	"github.com/KotFed0t/finplan/utils"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

const (
	InvestmentCreated    = "investment.created"
	TransactionCreated   = "transaction.created"
	SIPExecuted          = "sip.executed"
	PaymentStatusChanged = "payment.status_changed"
)

type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Time      time.Time `json:"time"`
	RequestID string    `json:"request_id,omitempty"`
	UserID    uuid.UUID `json:"user_id"`
	Payload   any       `json:"payload"`
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// Emit publishes without failing the caller: domain writes have already
// committed when events go out.
func Emit(ctx context.Context, p Publisher, eventType string, userID uuid.UUID, payload any) {
	err := p.Publish(ctx, Event{Type: eventType, UserID: userID, Payload: payload})
	if err != nil {
		slog.Error("failed to publish event",
			slog.String("rqID", utils.GetRequestIDFromCtx(ctx)),
			slog.String("type", eventType),
			slog.String("err", err.Error()),
		)
	}
}

type KafkaPublisher struct {
	writer *kafka.Writer
	topic  string
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 10 * time.Millisecond,
			RequiredAcks: kafka.RequireOne,
		},
		topic: topic,
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	msg, err := newMessage(ctx, event)
	if err != nil {
		return err
	}

	if err = p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	metrics.RecordEventPublished(p.topic, event.Type)
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// newMessage keys by user so one user's events stay ordered within a partition.
func newMessage(ctx context.Context, event Event) (kafka.Message, error) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Time.IsZero() {
		event.Time = time.Now().UTC()
	}
	if event.RequestID == "" {
		event.RequestID = utils.GetRequestIDFromCtx(ctx)
	}

	data, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to marshal event: %w", err)
	}

	return kafka.Message{
		Key:   []byte(event.UserID.String()),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(event.Type)},
		},
	}, nil
}

// NopPublisher is used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

func (NopPublisher) Close() error { return nil }

func New(brokers []string, topic string) Publisher {
	if len(brokers) == 0 {
		return NopPublisher{}
	}
	return NewKafkaPublisher(brokers, topic)
}
