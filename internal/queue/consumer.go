package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/iliyamo/student-housing-api/internal/mailer"
)

// Notifier delivers email.  *mailer.Mailer satisfies it.
type Notifier interface {
	Send(email mailer.Email) error
}

// Consumer drains the event queues, writes one structured log line per
// event and emails students when their booking is confirmed.
type Consumer struct {
	url      string
	logger   *zerolog.Logger
	notifier Notifier
}

// NewConsumer returns a consumer.  notifier may be nil.
func NewConsumer(url string, logger *zerolog.Logger, notifier Notifier) *Consumer {
	return &Consumer{url: url, logger: logger, notifier: notifier}
}

// Run connects, declares every event queue and consumes until ctx is
// cancelled.  Broker failures trigger a reconnect with exponential backoff
// capped at 30 seconds.
func (c *Consumer) Run(ctx context.Context) {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return
		}
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.logger.Warn().Err(err).Dur("retry_in", backoff).Msg("event consumer: dial failed")
			if !sleep(ctx, backoff) {
				return
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return
		}
		c.logger.Warn().Err(err).Msg("event consumer: loop ended, reconnecting")
		if !sleep(ctx, 2*time.Second) {
			return
		}
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.logger.Warn().Err(err).Msg("event consumer: set QoS failed")
	}

	deliveries := make(chan amqp.Delivery)
	for _, key := range Keys {
		if _, err := ch.QueueDeclare(key, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue declare %s: %w", key, err)
		}
		msgs, err := ch.Consume(key, "", false, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("queue consume %s: %w", key, err)
		}
		go func(in <-chan amqp.Delivery) {
			for d := range in {
				select {
				case deliveries <- d:
				case <-ctx.Done():
					return
				}
			}
		}(msgs)
	}

	closed := conn.NotifyClose(make(chan *amqp.Error, 1))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case amqpErr := <-closed:
			if amqpErr != nil {
				return amqpErr
			}
			return errors.New("connection closed")
		case d := <-deliveries:
			if err := c.Handle(d.RoutingKey, d.Body); err != nil {
				c.logger.Error().Err(err).Str("queue", d.RoutingKey).Str("message_id", d.MessageId).Msg("event consumer: handle failed")
				_ = d.Nack(false, false) // do not requeue poison messages
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// Handle processes one message body published under key.
func (c *Consumer) Handle(key string, body []byte) error {
	switch key {
	case BookingConfirmedKey:
		var ev BookingConfirmedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		c.logger.Info().
			Str("event", key).
			Str("booking_id", ev.BookingID).
			Str("property_id", ev.PropertyID).
			Str("student_id", ev.StudentID).
			Str("move_in", ev.MoveInDate).
			Int("months", ev.DurationMonths).
			Float64("total", ev.TotalAmount).
			Msg("booking confirmed")
		if c.notifier != nil && ev.StudentEmail != "" {
			return c.notifier.Send(mailer.Email{
				To:      []string{ev.StudentEmail},
				Subject: "Your booking is confirmed",
				Body: fmt.Sprintf("Your booking for %q is confirmed. Move-in date: %s, duration: %d months.",
					ev.PropertyTitle, ev.MoveInDate, ev.DurationMonths),
			})
		}
		return nil

	case MeetingUpdatedKey:
		var ev MeetingUpdatedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		c.logger.Info().
			Str("event", key).
			Str("meeting_id", ev.MeetingID).
			Str("action", ev.Action).
			Str("status", ev.Status).
			Str("actor_role", ev.ActorRole).
			Msg("meeting updated")
		return nil

	case RoomShareDeactivatedKey:
		var ev RoomShareDeactivatedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		c.logger.Info().
			Str("event", key).
			Str("roomshare_id", ev.RoomShareID).
			Str("reason", ev.Reason).
			Msg("room share deactivated")
		return nil
	}
	return fmt.Errorf("unknown routing key %q", key)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
