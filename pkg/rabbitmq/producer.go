/**
 * @description
 * This package provides a producer for publishing economy events to RabbitMQ.
 * It encapsulates connecting to the broker and publishing JSON payloads to an
 * exchange/routing key, with a no-op fallback for when the broker is
 * unavailable at startup so the service can still boot.
 *
 * @dependencies
 * - context, encoding/json, time: Standard Go libraries.
 * - github.com/rabbitmq/amqp091-go: The RabbitMQ client library.
 */
package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
)

// SettlementEvent is published after an enrollment settlement commits.
type SettlementEvent struct {
	LearnerID       uuid.UUID `json:"learner_id"`
	InstructorID    uuid.UUID `json:"instructor_id"`
	CourseID        uuid.UUID `json:"course_id"`
	CreditsSpent    int64     `json:"credits_spent"`
	InstructorNet   int64     `json:"instructor_net"`
	PlatformFee     int64     `json:"platform_fee"`
	DiscountApplied float64   `json:"discount_applied"`
	Timestamp       time.Time `json:"timestamp"`
}

// BadgeEvent is published when a user's badge changes (award, promotion, or
// decay), for notification fan-out.
type BadgeEvent struct {
	UserID    uuid.UUID `json:"user_id"`
	Change    string    `json:"change"`
	OldBadge  string    `json:"old_badge"`
	NewBadge  string    `json:"new_badge"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher is the interface implemented by types that can publish events.
type Publisher interface {
	Publish(ctx context.Context, exchange, routingKey string, body interface{}) error
	PublishSettlementEvent(ctx context.Context, event SettlementEvent) error
	PublishBadgeEvent(ctx context.Context, event BadgeEvent) error
	Close()
}

// EventProducer holds the RabbitMQ connection and channel for publishing.
type EventProducer struct {
	conn    *amqp091.Connection
	channel *amqp091.Channel
}

// EventProducerFallback is a no-op publisher used when RabbitMQ is
// unavailable at startup.
type EventProducerFallback struct{}

// NewEventProducerFallback returns a publisher that drops every event with a
// warning log.
func NewEventProducerFallback() *EventProducerFallback {
	return &EventProducerFallback{}
}

func (p *EventProducerFallback) Publish(ctx context.Context, exchange, routingKey string, body interface{}) error {
	log.Printf("level=warn component=rabbitmq_producer mode=fallback msg=\"publish skipped\" exchange=%s routing_key=%s", exchange, routingKey)
	return nil
}

func (p *EventProducerFallback) PublishSettlementEvent(ctx context.Context, event SettlementEvent) error {
	log.Printf("level=warn component=rabbitmq_producer mode=fallback msg=\"settlement event publish skipped\" learner_id=%s course_id=%s", event.LearnerID, event.CourseID)
	return nil
}

func (p *EventProducerFallback) PublishBadgeEvent(ctx context.Context, event BadgeEvent) error {
	log.Printf("level=warn component=rabbitmq_producer mode=fallback msg=\"badge event publish skipped\" user_id=%s", event.UserID)
	return nil
}

func (p *EventProducerFallback) Close() {}

func sanitizeAMQPURL(raw string) (string, error) {
	clean := strings.TrimSpace(raw)
	clean = strings.Trim(clean, "\"'")
	// If any stray characters precede the scheme, slice from the first amqp.
	idx := strings.Index(strings.ToLower(clean), "amqp")
	if idx > 0 {
		clean = clean[idx:]
	}
	u, err := url.Parse(clean)
	if err != nil {
		return "", err
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return "", errors.New("AMQP scheme must be either 'amqp://' or 'amqps://'")
	}
	return clean, nil
}

// NewEventProducer creates and returns a new EventProducer.
func NewEventProducer(amqpURL string) (*EventProducer, error) {
	cleanURL, err := sanitizeAMQPURL(amqpURL)
	if err != nil {
		return nil, err
	}

	// Bounded dial timeout so startup does not hang indefinitely.
	conn, err := amqp091.DialConfig(cleanURL, amqp091.Config{Dial: amqp091.DefaultDial(10 * time.Second)})
	if err != nil {
		return nil, err
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	return &EventProducer{conn: conn, channel: channel}, nil
}

// Publish sends a JSON-encoded message to the given exchange and routing key.
func (p *EventProducer) Publish(ctx context.Context, exchange, routingKey string, body interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	publishCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return p.channel.PublishWithContext(publishCtx,
		exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         payload,
		},
	)
}

// PublishSettlementEvent publishes a settlement event on the economy exchange.
func (p *EventProducer) PublishSettlementEvent(ctx context.Context, event SettlementEvent) error {
	return p.Publish(ctx, "economy.events", "settlement.completed", event)
}

// PublishBadgeEvent publishes a badge change event on the economy exchange.
func (p *EventProducer) PublishBadgeEvent(ctx context.Context, event BadgeEvent) error {
	return p.Publish(ctx, "economy.events", "badge.changed", event)
}

// Close shuts down the channel and connection.
func (p *EventProducer) Close() {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}
