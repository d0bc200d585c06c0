package kafkax

import (
	"context"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// headers adapts Kafka message headers to the OpenTelemetry carrier interface.
// Set replaces an existing key so re-injecting never duplicates traceparent.
type headers []kafka.Header

var _ propagation.TextMapCarrier = (*headers)(nil)

func (h *headers) Get(key string) string { return HeaderValue(*h, key) }

func (h *headers) Set(key, value string) {
	for i := range *h {
		if (*h)[i].Key == key {
			(*h)[i].Value = []byte(value)
			return
		}
	}
	*h = append(*h, kafka.Header{Key: key, Value: []byte(value)})
}

func (h *headers) Keys() []string {
	keys := make([]string, len(*h))
	for i, hdr := range *h {
		keys[i] = hdr.Key
	}
	return keys
}

// InjectTraceHeaders adds the span context of ctx to hs.
func InjectTraceHeaders(ctx context.Context, hs []kafka.Header) []kafka.Header {
	c := headers(hs)
	otel.GetTextMapPropagator().Inject(ctx, &c)
	return c
}

// ExtractTraceContext continues the producer's trace for a consumed message.
func ExtractTraceContext(ctx context.Context, msg kafka.Message) context.Context {
	c := headers(msg.Headers)
	return otel.GetTextMapPropagator().Extract(ctx, &c)
}
