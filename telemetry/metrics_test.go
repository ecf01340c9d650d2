package telemetry

import (
	"context"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

func TestInitMetrics(t *testing.T) {
	provider := sdkmetric.NewMeterProvider()
	defer provider.Shutdown(context.Background())

	m, err := InitMetrics(provider.Meter("test"))
	if err != nil {
		t.Fatalf("InitMetrics() error = %v", err)
	}

	if m.MutationsIssued == nil || m.RescuesApplied == nil || m.ReconcileDuration == nil {
		t.Fatal("instruments not initialized")
	}

	// Recording must not panic, including through the nil receiver guards
	ctx := context.Background()
	m.RecordPage(ctx)
	m.RecordPoll(ctx)
	m.RecordMutation(ctx, "droplet", "create", "confirmed")
	m.RecordRescue(ctx, "ssh_key")
	m.RecordAmbiguous(ctx, "droplet")
	m.RecordManaged(ctx, "droplet", 3)
	m.RecordReconcileDuration(ctx, false, 1.25)

	var nilMetrics *Metrics
	nilMetrics.RecordPage(ctx)
	nilMetrics.RecordPoll(ctx)
	nilMetrics.RecordMutation(ctx, "droplet", "create", "confirmed")
}

func TestInitOTEL(t *testing.T) {
	ctx := context.Background()

	shutdown, err := InitOTEL(ctx, Config{ServiceName: "atoll-test", Environment: "test"})
	if err != nil {
		t.Fatalf("InitOTEL() error = %v", err)
	}
	defer shutdown(ctx)

	if PrometheusRegistry == nil {
		t.Error("prometheus registry not initialized")
	}
	if Tracer == nil || Meter == nil {
		t.Error("global handles not initialized")
	}
}
