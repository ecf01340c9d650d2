package telemetry

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OTELHook adds trace and span IDs to every log entry
type OTELHook struct{}

func (h OTELHook) Run(e *zerolog.Event, level zerolog.Level, msg string) {
	ctx := e.GetCtx()
	if ctx == nil {
		return
	}

	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return
	}

	e.Str("trace_id", span.SpanContext().TraceID().String())
	e.Str("span_id", span.SpanContext().SpanID().String())

	if level == zerolog.ErrorLevel {
		span.SetStatus(codes.Error, msg)
	}
}

// Logger wraps zerolog with OTEL integration
type Logger struct {
	zerolog.Logger
}

// NewLogger creates a new logger with OTEL hooks
func NewLogger(service string) *Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs

	logger := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", service).
		Logger().
		Hook(OTELHook{})

	return &Logger{Logger: logger}
}

// WithContext returns a logger with context (for trace propagation)
func (l *Logger) WithContext(ctx context.Context) *zerolog.Logger {
	logger := l.Logger.With().Ctx(ctx).Logger()
	return &logger
}

// LogReconcileStart logs the start of a reconcile run
func (l *Logger) LogReconcileStart(ctx context.Context, specs int, check bool) {
	l.WithContext(ctx).Info().
		Int("specs", specs).
		Bool("check", check).
		Msg("reconcile started")
}

// LogReconcileEnd logs the outcome of a reconcile run
func (l *Logger) LogReconcileEnd(ctx context.Context, changed, failed int, err error) {
	logger := l.WithContext(ctx)
	if err != nil {
		logger.Error().
			Err(err).
			Int("changed", changed).
			Int("failed", failed).
			Msg("reconcile failed")
		return
	}
	logger.Info().
		Int("changed", changed).
		Int("failed", failed).
		Msg("reconcile finished")
}
