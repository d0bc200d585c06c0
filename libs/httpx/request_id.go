package httpx

import (
	"net/http"

	"github.com/md-rashed-zaman/dojobook/libs/requestid"
)

const RequestIDHeader = requestid.Header

// WithRequestID accepts a well-formed inbound X-Request-Id or mints one, stores it in
// the request context and echoes it on the response.
func WithRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := requestid.OrNew(r.Header.Get(RequestIDHeader))
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(requestid.NewContext(r.Context(), id)))
	})
}
