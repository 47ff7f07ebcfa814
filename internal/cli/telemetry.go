package cli

import (
	"context"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/Amayakite/AutoClicker/internal/engine"
)

// telemetry owns the tracer provider used by run --trace.
type telemetry struct {
	provider *sdktrace.TracerProvider
	spans    *spanLogger
}

func newTelemetry(log *slog.Logger) *telemetry {
	spans := &spanLogger{log: log}
	return &telemetry{
		provider: sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans)),
		spans:    spans,
	}
}

func (t *telemetry) Tracer() trace.Tracer {
	return t.provider.Tracer(engine.TracerName)
}

// TraceID returns the trace of the most recent root span, or "".
func (t *telemetry) TraceID() string {
	return t.spans.traceID()
}

func (t *telemetry) Close() {
	_ = t.provider.Shutdown(context.Background())
}

// spanLogger is a SpanProcessor that writes each finished span as one log
// line, with its attributes and tap event count.
type spanLogger struct {
	log *slog.Logger

	mu   sync.Mutex
	last trace.TraceID
}

func (p *spanLogger) OnStart(_ context.Context, span sdktrace.ReadWriteSpan) {
	if span.Parent().IsValid() {
		return
	}
	p.mu.Lock()
	p.last = span.SpanContext().TraceID()
	p.mu.Unlock()
}

func (p *spanLogger) OnEnd(span sdktrace.ReadOnlySpan) {
	taps := 0
	for _, ev := range span.Events() {
		if ev.Name == engine.TapEventName {
			taps++
		}
	}

	args := []any{
		"span", span.Name(),
		"trace_id", span.SpanContext().TraceID().String(),
		"duration", span.EndTime().Sub(span.StartTime()),
		"tap_events", taps,
	}
	for _, attr := range span.Attributes() {
		args = append(args, string(attr.Key), attr.Value.Emit())
	}

	if status := span.Status(); status.Code == codes.Error {
		p.log.Warn("span failed", append(args, "error", status.Description)...)
		return
	}
	p.log.Info("span finished", args...)
}

func (p *spanLogger) Shutdown(context.Context) error {
	return nil
}

func (p *spanLogger) ForceFlush(context.Context) error {
	return nil
}

func (p *spanLogger) traceID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.last.IsValid() {
		return ""
	}
	return p.last.String()
}
