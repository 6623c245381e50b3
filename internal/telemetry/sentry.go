// Package telemetry wraps Sentry tracing behind a small surface so the rest
// of the codebase never imports sentry-go directly outside middleware.
package telemetry

import (
	"context"
	"log"
	"time"

	"github.com/getsentry/sentry-go"
)

const serviceName = "reposift"

// Config holds the configuration for Sentry initialization.
type Config struct {
	DSN              string
	Environment      string
	TracesSampleRate float64
	Debug            bool
}

// Init starts Sentry with tracing enabled and returns a shutdown function
// that flushes pending events. An empty DSN, or an init failure, yields a
// no-op shutdown; tracing is never a reason to refuse to start.
func Init(cfg Config) (func(), error) {
	if cfg.DSN == "" {
		return func() {}, nil
	}
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.TracesSampleRate == 0 {
		cfg.TracesSampleRate = 1.0
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		EnableTracing:    true,
		TracesSampleRate: cfg.TracesSampleRate,
		TracesSampler:    sampler(cfg.TracesSampleRate),
		Debug:            cfg.Debug,
		ServerName:       serviceName,
	})
	if err != nil {
		log.Printf("sentry: init failed, continuing without tracing: %v", err)
		return func() {}, nil
	}

	log.Printf("sentry: tracing initialized (environment: %s, sample_rate: %.2f)", cfg.Environment, cfg.TracesSampleRate)
	return func() { sentry.Flush(5 * time.Second) }, nil
}

// sampler drops health-check noise and keeps child spans on their parent's
// sampling decision so traces stay whole.
func sampler(rate float64) sentry.TracesSampler {
	return func(sc sentry.SamplingContext) float64 {
		if sc.Span.Name == "GET /health" {
			return 0.0
		}
		var root sentry.SpanID
		if sc.Span.ParentSpanID != root {
			if sc.Span.Sampled.Bool() {
				return 1.0
			}
			return 0.0
		}
		return rate
	}
}

// SpanAttributes carries the fields worth attaching to a span. Repository
// becomes a searchable tag; Query and Operation ride along as span data.
type SpanAttributes struct {
	Repository string
	Query      string
	Operation  string
}

// StartSpan opens a span under the transaction already in ctx, or starts a
// fresh transaction when there is none (background jobs, tests).
func StartSpan(ctx context.Context, name string, attrs SpanAttributes) (context.Context, *Span) {
	var inner *sentry.Span
	if parent := sentry.SpanFromContext(ctx); parent != nil {
		inner = parent.StartChild(name)
	} else {
		inner = sentry.StartSpan(ctx, name, sentry.WithTransactionName(name))
	}

	if attrs.Repository != "" {
		inner.SetTag("repository", attrs.Repository)
	}
	if attrs.Query != "" {
		inner.SetData("query", attrs.Query)
	}
	if attrs.Operation != "" {
		inner.SetData("operation", attrs.Operation)
	}

	return inner.Context(), &Span{inner: inner}
}

// Span is a nil-safe handle on a sentry span.
type Span struct {
	inner *sentry.Span
}

// End finishes the span.
func (s *Span) End() {
	if s.inner != nil {
		s.inner.Finish()
	}
}

// SetError marks the span failed and reports the error.
func (s *Span) SetError(err error) {
	if s.inner == nil {
		return
	}
	s.inner.Status = sentry.SpanStatusInternalError
	if hub := sentry.GetHubFromContext(s.inner.Context()); hub != nil {
		hub.CaptureException(err)
	}
}

// Context returns the context carrying the span.
func (s *Span) Context() context.Context {
	if s.inner != nil {
		return s.inner.Context()
	}
	return context.Background()
}

// CaptureError reports an error outside any span, preferring the hub bound
// to ctx when one exists.
func CaptureError(ctx context.Context, err error) {
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.CaptureException(err)
		return
	}
	sentry.CaptureException(err)
}
