package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the reconcile run instruments
type Metrics struct {
	// Counters
	PagesFetched    metric.Int64Counter
	PollTicks       metric.Int64Counter
	MutationsIssued metric.Int64Counter
	RescuesApplied  metric.Int64Counter
	AmbiguousHalts  metric.Int64Counter

	// Gauges
	ResourcesManaged metric.Int64Gauge

	// Histograms
	ReconcileDuration metric.Float64Histogram
}

// InitMetrics initializes all reconcile instruments
func InitMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	if err := m.initCounters(meter); err != nil {
		return nil, err
	}
	if err := m.initGauges(meter); err != nil {
		return nil, err
	}
	if err := m.initHistograms(meter); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *Metrics) initCounters(meter metric.Meter) error {
	var err error

	m.PagesFetched, err = meter.Int64Counter(
		"atoll.pages.fetched.total",
		metric.WithDescription("Total number of list pages fetched from the API"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}

	m.PollTicks, err = meter.Int64Counter(
		"atoll.polls.total",
		metric.WithDescription("Total number of status poll requests issued"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}

	m.MutationsIssued, err = meter.Int64Counter(
		"atoll.mutations.total",
		metric.WithDescription("Total number of create, update and delete calls issued"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}

	m.RescuesApplied, err = meter.Int64Counter(
		"atoll.rescues.total",
		metric.WithDescription("Total number of duplicate creates resolved to the existing record"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}

	m.AmbiguousHalts, err = meter.Int64Counter(
		"atoll.ambiguous.total",
		metric.WithDescription("Total number of runs halted by an ambiguous match"),
		metric.WithUnit("1"),
	)
	return err
}

func (m *Metrics) initGauges(meter metric.Meter) error {
	var err error

	m.ResourcesManaged, err = meter.Int64Gauge(
		"atoll.resources.managed",
		metric.WithDescription("Resources currently matched by declared specs"),
		metric.WithUnit("1"),
	)
	return err
}

func (m *Metrics) initHistograms(meter metric.Meter) error {
	var err error

	m.ReconcileDuration, err = meter.Float64Histogram(
		"atoll.reconcile.duration.seconds",
		metric.WithDescription("Time taken to complete a reconcile run"),
		metric.WithUnit("s"),
	)
	return err
}

// RecordPage records one fetched list page
func (m *Metrics) RecordPage(ctx context.Context) {
	if m == nil {
		return
	}
	m.PagesFetched.Add(ctx, 1)
}

// RecordPoll records one status poll request
func (m *Metrics) RecordPoll(ctx context.Context) {
	if m == nil {
		return
	}
	m.PollTicks.Add(ctx, 1)
}

// RecordMutation records one issued mutation and its outcome
func (m *Metrics) RecordMutation(ctx context.Context, kind, op, status string) {
	if m == nil {
		return
	}
	m.MutationsIssued.Add(ctx, 1,
		metric.WithAttributeSet(attribute.NewSet(
			attribute.String("kind", kind),
			attribute.String("op", op),
			attribute.String("status", status),
		)),
	)
}

// RecordRescue records a duplicate create resolved in place
func (m *Metrics) RecordRescue(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.RescuesApplied.Add(ctx, 1,
		metric.WithAttributeSet(attribute.NewSet(
			attribute.String("kind", kind),
		)),
	)
}

// RecordAmbiguous records a run halted on an ambiguous match
func (m *Metrics) RecordAmbiguous(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.AmbiguousHalts.Add(ctx, 1,
		metric.WithAttributeSet(attribute.NewSet(
			attribute.String("kind", kind),
		)),
	)
}

// RecordManaged records how many resources declared specs matched
func (m *Metrics) RecordManaged(ctx context.Context, kind string, count int64) {
	if m == nil {
		return
	}
	m.ResourcesManaged.Record(ctx, count,
		metric.WithAttributeSet(attribute.NewSet(
			attribute.String("kind", kind),
		)),
	)
}

// RecordReconcileDuration records a full run duration
func (m *Metrics) RecordReconcileDuration(ctx context.Context, check bool, seconds float64) {
	if m == nil {
		return
	}
	m.ReconcileDuration.Record(ctx, seconds,
		metric.WithAttributeSet(attribute.NewSet(
			attribute.Bool("check", check),
		)),
	)
}
