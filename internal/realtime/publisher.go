package realtime

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

// exchange is the topic exchange events are published to; the routing key
// is the event channel, so consumers can bind "chat.*" or a single chat.
const exchange = "realtime"

// publishTimeout bounds the whole dial+publish. The publish happens after
// the local commit and must never stall the request for long.
const publishTimeout = 3 * time.Second

// Publisher delivers events to RabbitMQ. Publishing is best-effort:
// every error is logged and returned so callers can ignore failures
// without interrupting the main request flow. An empty URL disables
// publishing entirely.
type Publisher struct {
	url string
}

func NewPublisher(url string) *Publisher {
	return &Publisher{url: url}
}

// Publish sends one envelope to the broadcaster. The connection is dialed
// per call; at chat-message volume that is cheaper than keeping a channel
// healthy across broker restarts.
func (p *Publisher) Publish(ctx context.Context, channel, event string, payload any) error {
	if p == nil || p.url == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	conn, err := amqp.Dial(p.url)
	if err != nil {
		log.Warn().Err(err).Str("channel", channel).Msg("realtime: dial failed")
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Warn().Err(err).Str("channel", channel).Msg("realtime: channel open failed")
		return err
	}
	defer func() { _ = ch.Close() }()

	// Idempotent declare; durable so the exchange survives broker restarts.
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		log.Warn().Err(err).Msg("realtime: exchange declare failed")
		return err
	}

	body, err := json.Marshal(Event{Channel: channel, Event: event, Payload: payload})
	if err != nil {
		log.Warn().Err(err).Msg("realtime: marshal event failed")
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, exchange, channel, false, false, pub); err != nil {
		log.Warn().Err(err).Str("channel", channel).Msg("realtime: publish failed")
		return err
	}
	return nil
}
