package consumer

import (
	"context"
	"log/slog"
	"time"

	"github.com/md-rashed-zaman/dojobook/libs/kafkax"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type Handler func(ctx context.Context, msg kafka.Message) error

// Reader is the part of *kafka.Reader the consumer needs.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Inbox interface {
	Record(ctx context.Context, eventID, eventType string) (bool, error)
	Release(ctx context.Context, eventID string) error
}

type Config struct {
	// Attempts is how often the handler runs for one message before it is given up.
	Attempts int
	Backoff  time.Duration
}

type Consumer struct {
	reader   Reader
	logger   *slog.Logger
	inbox    Inbox
	handler  Handler
	attempts int
	backoff  time.Duration
}

func New(logger *slog.Logger, reader Reader, inbox Inbox, cfg Config, handler Handler) *Consumer {
	if cfg.Attempts <= 0 {
		cfg.Attempts = 3
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = time.Second
	}
	return &Consumer{
		reader:   reader,
		logger:   logger,
		inbox:    inbox,
		handler:  handler,
		attempts: cfg.Attempts,
		backoff:  cfg.Backoff,
	}
}

// Run consumes until ctx is cancelled. Offsets are committed only after a
// message is handled, skipped as duplicate, or given up.
func (c *Consumer) Run(ctx context.Context) {
	defer c.reader.Close()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("kafka read error", "err", err)
			if !sleep(ctx, c.backoff) {
				return
			}
			continue
		}

		if !c.process(ctx, msg) {
			return
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.logger.Error("kafka commit failed", "err", err, "topic", msg.Topic, "offset", msg.Offset)
		}
	}
}

// process reports false only when ctx was cancelled mid-message.
func (c *Consumer) process(ctx context.Context, msg kafka.Message) bool {
	ctxMsg := kafkax.ExtractTraceContext(ctx, msg)
	ctxSpan, span := otel.Tracer("kafka").Start(ctxMsg, "kafka.consume",
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination", msg.Topic),
		),
	)
	defer span.End()

	meta := kafkax.ExtractEventMeta(msg)

	var fresh bool
	for {
		var err error
		fresh, err = c.inbox.Record(ctxSpan, meta.EventID, meta.EventType)
		if err == nil {
			break
		}
		c.logger.Error("inbox record failed", "err", err, "event_id", meta.EventID)
		span.RecordError(err)
		if !sleep(ctx, c.backoff) {
			return false
		}
	}
	if !fresh {
		c.logger.Info("duplicate event ignored", "event_id", meta.EventID, "event_type", meta.EventType)
		return true
	}

	for attempt := 1; ; attempt++ {
		err := c.handler(ctxSpan, msg)
		if err == nil {
			return true
		}
		span.RecordError(err)
		c.logger.Error("handler error", "err", err, "event_id", meta.EventID, "attempt", attempt)
		if attempt >= c.attempts {
			break
		}
		if !sleep(ctx, time.Duration(attempt)*c.backoff) {
			c.release(meta.EventID)
			return false
		}
	}

	// Free the claim so a replay of this event is not treated as a duplicate.
	c.release(meta.EventID)
	c.logger.Error("event dropped after retries", "event_id", meta.EventID, "event_type", meta.EventType)
	return true
}

func (c *Consumer) release(eventID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.inbox.Release(ctx, eventID); err != nil {
		c.logger.Error("inbox release failed", "err", err, "event_id", eventID)
	}
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
