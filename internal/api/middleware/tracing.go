package middleware

import (
	"fmt"
	"net/http"

	"github.com/getsentry/sentry-go"
)

// Tracing opens a Sentry transaction per request and records its outcome.
// Inbound sentry-trace/baggage headers are honored so traces continue across
// service boundaries. When Sentry was never initialized the transactions are
// no-ops and the middleware costs almost nothing.
func Tracing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub := sentry.GetHubFromContext(r.Context())
		if hub == nil {
			hub = sentry.CurrentHub().Clone()
		}

		opts := []sentry.SpanOption{
			sentry.WithOpName("http.server"),
			sentry.WithTransactionSource(sentry.SourceURL),
		}
		if trace := r.Header.Get("sentry-trace"); trace != "" {
			opts = append(opts, sentry.ContinueFromHeaders(trace, r.Header.Get("baggage")))
		}

		ctx := sentry.SetHubOnContext(r.Context(), hub)
		tx := sentry.StartTransaction(ctx, r.Method+" "+r.URL.Path, opts...)
		defer tx.Finish()

		ctx = tx.Context()
		r = r.WithContext(ctx)

		hub.Scope().SetContext("request", map[string]interface{}{
			"method":      r.Method,
			"path":        r.URL.Path,
			"query":       r.URL.RawQuery,
			"remote_addr": r.RemoteAddr,
		})
		if id := GetRequestID(ctx); id != "" {
			hub.Scope().SetTag("request_id", id)
			tx.SetTag("request_id", id)
		}

		defer func() {
			if v := recover(); v != nil {
				tx.Status = sentry.SpanStatusInternalError
				hub.RecoverWithContext(ctx, v)
				panic(v)
			}
		}()

		rec := &responseRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		code := rec.status
		if code == 0 {
			code = http.StatusOK
		}
		tx.Status = spanStatus(code)
		tx.SetData("http.response.status_code", code)

		if code >= 500 {
			hub.CaptureMessage(fmt.Sprintf("HTTP %d: %s", code, http.StatusText(code)))
		}
	})
}

func spanStatus(code int) sentry.SpanStatus {
	switch {
	case code < 400:
		return sentry.SpanStatusOK
	case code == http.StatusNotFound:
		return sentry.SpanStatusNotFound
	case code == http.StatusTooManyRequests:
		return sentry.SpanStatusResourceExhausted
	case code < 500:
		return sentry.SpanStatusInvalidArgument
	case code == http.StatusNotImplemented:
		return sentry.SpanStatusUnimplemented
	case code == http.StatusBadGateway, code == http.StatusServiceUnavailable:
		return sentry.SpanStatusUnavailable
	case code == http.StatusGatewayTimeout:
		return sentry.SpanStatusDeadlineExceeded
	default:
		return sentry.SpanStatusInternalError
	}
}
