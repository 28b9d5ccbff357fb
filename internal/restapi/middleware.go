package restapi

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type contextKey string

const requestIDKey contextKey = "request-id"

// requestID returns the correlation ID stashed in ctx by withRequestID, or
// "" if none is present.
func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// withRequestID assigns every inbound request a UUID, so a log line can be
// traced across the handler and whatever it dispatches to the controller.
// The ID is also echoed back on the response for the caller's own logs.
func withRequestID(log *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(resp http.ResponseWriter, req *http.Request) {
			id := uuid.NewString()
			resp.Header().Set("X-Request-Id", id)

			ctx := context.WithValue(req.Context(), requestIDKey, id)
			req = req.WithContext(ctx)

			log.WithFields(logrus.Fields{
				"request_id": id,
				"method":     req.Method,
				"path":       req.URL.Path,
			}).Debug("request received")

			next.ServeHTTP(resp, req)
		})
	}
}
