package email

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl/plain"
)

// KafkaConfig points the outbox at a topic a mail worker consumes.
type KafkaConfig struct {
	Brokers  []string
	Topic    string
	Username string
	Password string
}

// messageWriter is the part of *kafka.Writer the mailer needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaMailer publishes rendered mails as JSON events, keyed by recipient
// address so mails to one person stay ordered.
type KafkaMailer struct {
	writer messageWriter
	now    func() time.Time
}

func NewKafkaMailer(cfg KafkaConfig) *KafkaMailer {
	transport := &kafka.Transport{}
	if cfg.Username != "" {
		transport.SASL = plain.Mechanism{Username: cfg.Username, Password: cfg.Password}
		transport.TLS = &tls.Config{}
	}

	return &KafkaMailer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Transport:    transport,
			WriteTimeout: 10 * time.Second,
		},
		now: time.Now,
	}
}

type mailEvent struct {
	Message
	QueuedAt time.Time `json:"queuedAt"`
}

func (m *KafkaMailer) Send(ctx context.Context, msg Message) error {
	value, err := json.Marshal(mailEvent{Message: msg, QueuedAt: m.now().UTC()})
	if err != nil {
		return fmt.Errorf("encode mail event: %w", err)
	}

	err = m.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.To.Email),
		Value: value,
		Time:  m.now(),
	})
	if err != nil {
		return fmt.Errorf("publish mail event: %w", err)
	}

	return nil
}

func (m *KafkaMailer) Close() error {
	return m.writer.Close()
}
