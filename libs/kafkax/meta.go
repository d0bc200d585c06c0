package kafkax

import (
	"context"

	"github.com/segmentio/kafka-go"
)

// Header keys set on every event the outbox publishes.
const (
	HeaderEventID   = "event_id"
	HeaderEventType = "event_type"
)

// EventMeta identifies one event on the wire.
type EventMeta struct {
	EventID   string
	EventType string
}

// NewMessage builds the message for one event. The topic is the event type and the
// trace context of ctx travels in the headers.
func NewMessage(ctx context.Context, meta EventMeta, key string, value []byte) kafka.Message {
	headers := []kafka.Header{
		{Key: HeaderEventID, Value: []byte(meta.EventID)},
		{Key: HeaderEventType, Value: []byte(meta.EventType)},
	}
	return kafka.Message{
		Topic:   meta.EventType,
		Key:     []byte(key),
		Value:   value,
		Headers: InjectTraceHeaders(ctx, headers),
	}
}

// ExtractEventMeta reads the event headers. Messages produced without them fall back
// to the key and topic.
func ExtractEventMeta(msg kafka.Message) EventMeta {
	meta := EventMeta{
		EventID:   HeaderValue(msg.Headers, HeaderEventID),
		EventType: HeaderValue(msg.Headers, HeaderEventType),
	}
	if meta.EventID == "" {
		meta.EventID = string(msg.Key)
	}
	if meta.EventType == "" {
		meta.EventType = msg.Topic
	}
	return meta
}

// HeaderValue returns the first header named key.
func HeaderValue(headers []kafka.Header, key string) string {
	for _, h := range headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
