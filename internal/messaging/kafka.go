// Package messaging publishes feedback events to Kafka: the one
// legitimate async fan-out in an otherwise single-writer-per-session
// core. Grounded on the teacher's internal/messaging/kafka.go
// (kafka.Writer construction, header shape, structured logging on
// failure) but trimmed to publish-only — this service has no consumer
// side of its own, the events are for downstream audit/analytics
// consumers out of this spec's scope.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

const FeedbackEventsTopic = "feedback.events"

// FeedbackRecorded is published once per processed interaction, after
// the model update and history append have both succeeded.
type FeedbackRecorded struct {
	SessionID   string    `json:"session_id"`
	ProductID   string    `json:"product_id"`
	Action      string    `json:"action"`
	Reward      float64   `json:"reward"`
	ScoreBefore float64   `json:"score_before"`
	ScoreAfter  float64   `json:"score_after"`
	Timestamp   time.Time `json:"timestamp"`
}

// Publisher wraps a kafka.Writer for the feedback events topic.
type Publisher struct {
	writer *kafka.Writer
	logger *logrus.Logger
}

// NewPublisher builds a Publisher. A nil or empty brokers list yields
// a Publisher whose Publish calls are no-ops, so the recommendation
// core stays correct with Kafka entirely absent (spec treats this as
// an ambient effect, not a dependency of correctness).
func NewPublisher(brokers []string, logger *logrus.Logger) *Publisher {
	if len(brokers) == 0 {
		return &Publisher{logger: logger}
	}
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        FeedbackEventsTopic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			Async:        true,
			BatchTimeout: 10 * time.Millisecond,
			BatchSize:    50,
		},
		logger: logger,
	}
}

// Publish writes a FeedbackRecorded event. Failures are logged, never
// returned: feedback processing must not fail because the event bus is
// unavailable.
func (p *Publisher) Publish(ctx context.Context, event FeedbackRecorded) {
	if p.writer == nil {
		return
	}

	body, err := json.Marshal(event)
	if err != nil {
		p.logger.WithError(err).Error("failed to marshal feedback event")
		return
	}

	msg := kafka.Message{
		Key:   []byte(event.SessionID),
		Value: body,
		Headers: []kafka.Header{
			{Key: "action", Value: []byte(event.Action)},
			{Key: "timestamp", Value: []byte(event.Timestamp.Format(time.RFC3339))},
		},
	}

	writeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := p.writer.WriteMessages(writeCtx, msg); err != nil {
		p.logger.WithError(err).WithFields(logrus.Fields{
			"session_id": event.SessionID,
			"product_id": event.ProductID,
		}).Warn(fmt.Sprintf("failed to publish to %s", FeedbackEventsTopic))
	}
}

// Close releases the underlying writer, if any.
func (p *Publisher) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
