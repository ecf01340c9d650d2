package telemetry

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestOTELHookAddsTraceIDs(t *testing.T) {
	provider := sdktrace.NewTracerProvider(sdktrace.WithSampler(sdktrace.AlwaysSample()))
	defer provider.Shutdown(context.Background())

	ctx, span := provider.Tracer("test").Start(context.Background(), "reconcile")
	defer span.End()

	var buf bytes.Buffer
	logger := zerolog.New(&buf).Hook(OTELHook{})
	logger.Info().Ctx(ctx).Msg("hello")

	out := buf.String()
	if !strings.Contains(out, span.SpanContext().TraceID().String()) {
		t.Errorf("log line missing trace id: %s", out)
	}
	if !strings.Contains(out, span.SpanContext().SpanID().String()) {
		t.Errorf("log line missing span id: %s", out)
	}
}

func TestOTELHookWithoutSpan(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Hook(OTELHook{})
	logger.Info().Ctx(context.Background()).Msg("hello")

	if strings.Contains(buf.String(), "trace_id") {
		t.Errorf("log line has a trace id with no span in context: %s", buf.String())
	}
}

func TestLogReconcileLifecycle(t *testing.T) {
	provider := sdktrace.NewTracerProvider(sdktrace.WithSampler(sdktrace.AlwaysSample()))
	defer provider.Shutdown(context.Background())

	ctx, span := provider.Tracer("test").Start(context.Background(), "run")
	defer span.End()

	var buf bytes.Buffer
	l := &Logger{Logger: zerolog.New(&buf).Hook(OTELHook{})}

	l.LogReconcileStart(ctx, 3, true)
	l.LogReconcileEnd(ctx, 2, 0, nil)

	out := buf.String()
	if !strings.Contains(out, "reconcile started") || !strings.Contains(out, "reconcile finished") {
		t.Fatalf("lifecycle messages missing: %s", out)
	}
	if !strings.Contains(out, span.SpanContext().TraceID().String()) {
		t.Errorf("lifecycle logs missing trace id: %s", out)
	}
}
