// Package requestid carries a per-request correlation id across HTTP and gRPC hops.
package requestid

import (
	"context"

	"github.com/google/uuid"
)

const (
	// Header is the HTTP header used on requests and responses.
	Header = "X-Request-Id"
	// MetadataKey is the gRPC metadata key. gRPC lowercases keys on the wire.
	MetadataKey = "x-request-id"

	maxLen = 64
)

type ctxKey struct{}

// New returns a fresh random id.
func New() string {
	return uuid.NewString()
}

// Clean returns id when it is safe to echo back and log, or "" otherwise.
// Accepted ids are at most 64 characters of letters, digits, '-', '_' and '.'.
func Clean(id string) string {
	if id == "" || len(id) > maxLen {
		return ""
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '-', c == '_', c == '.':
		default:
			return ""
		}
	}
	return id
}

// OrNew cleans an inbound id and falls back to a new one.
func OrNew(id string) string {
	if id = Clean(id); id != "" {
		return id
	}
	return New()
}

// NewContext stores id in ctx. An empty id leaves ctx untouched.
func NewContext(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the id stored by NewContext, or "".
func FromContext(ctx context.Context) string {
	v, _ := ctx.Value(ctxKey{}).(string)
	return v
}
