package metrics

import (
	"context"
	"fmt"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const serviceName = "tstit"

// OTLPConfig holds OTLP exporter configuration.
type OTLPConfig struct {
	Endpoint       string
	Insecure       bool
	ServiceVersion string
}

// OTLPExporter exports plan metrics to an OpenTelemetry collector over
// gRPC.
type OTLPExporter struct {
	provider     *sdkmetric.MeterProvider
	plansTotal   metric.Int64Counter
	failures     metric.Int64Counter
	durationHist metric.Float64Histogram
	runsTotal    metric.Int64Counter
	runDuration  metric.Float64Histogram
}

// NewOTLPExporter creates an exporter pushing to cfg.Endpoint.
func NewOTLPExporter(ctx context.Context, cfg OTLPConfig) (*OTLPExporter, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("OTLP endpoint not configured")
	}

	opts := []otlpmetricgrpc.Option{
		otlpmetricgrpc.WithEndpoint(cfg.Endpoint),
	}
	if cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())))
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}

	exp, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating OTLP exporter: %w", err)
	}

	return newOTLPExporter(ctx, sdkmetric.NewPeriodicReader(exp), cfg.ServiceVersion)
}

func newOTLPExporter(ctx context.Context, reader sdkmetric.Reader, version string) (*OTLPExporter, error) {
	if version == "" {
		version = "dev"
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(reader),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)
	e := &OTLPExporter{provider: provider}

	if e.plansTotal, err = meter.Int64Counter(
		"tstit_plans_total",
		metric.WithDescription("Testplans executed"),
		metric.WithUnit("{plan}"),
	); err != nil {
		return nil, fmt.Errorf("creating plans counter: %w", err)
	}
	if e.failures, err = meter.Int64Counter(
		"tstit_plan_failures_total",
		metric.WithDescription("Failed testplans by error kind"),
		metric.WithUnit("{plan}"),
	); err != nil {
		return nil, fmt.Errorf("creating failures counter: %w", err)
	}
	if e.durationHist, err = meter.Float64Histogram(
		"tstit_plan_duration_seconds",
		metric.WithDescription("Testplan duration in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("creating duration histogram: %w", err)
	}
	if e.runsTotal, err = meter.Int64Counter(
		"tstit_runs_total",
		metric.WithDescription("Completed runs"),
		metric.WithUnit("{run}"),
	); err != nil {
		return nil, fmt.Errorf("creating runs counter: %w", err)
	}
	if e.runDuration, err = meter.Float64Histogram(
		"tstit_run_duration_seconds",
		metric.WithDescription("Summed testplan duration of a run in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("creating run duration histogram: %w", err)
	}
	return e, nil
}

// ExportSingle records the counters and duration of one plan.
func (e *OTLPExporter) ExportSingle(ctx context.Context, m *PlanMetrics) error {
	outcome := "succeeded"
	if !m.Succeeded {
		outcome = "failed"
	}
	attrs := []attribute.KeyValue{
		attribute.String("plan", m.PlanPath),
		attribute.String("outcome", outcome),
	}
	if m.RequestMethod != "" {
		attrs = append(attrs, attribute.String("http.method", m.RequestMethod))
	}
	if m.StatusCode != 0 {
		attrs = append(attrs, attribute.String("http.status_code", strconv.Itoa(m.StatusCode)))
	}
	opt := metric.WithAttributes(attrs...)

	e.plansTotal.Add(ctx, 1, opt)
	e.durationHist.Record(ctx, m.DurationMs/1000, opt)
	if !m.Succeeded {
		e.failures.Add(ctx, 1, metric.WithAttributes(
			attribute.String("plan", m.PlanPath),
			attribute.String("error_kind", m.ErrorKind),
		))
	}
	return nil
}

// Export records the run totals.
func (e *OTLPExporter) Export(ctx context.Context, a *AggregateMetrics) error {
	outcome := "succeeded"
	if a.FailureCount > 0 {
		outcome = "failed"
	}
	opt := metric.WithAttributes(attribute.String("outcome", outcome))
	e.runsTotal.Add(ctx, 1, opt)
	e.runDuration.Record(ctx, a.TotalDurationMs/1000, opt)
	return nil
}

// Close shuts down the exporter and flushes any pending metrics.
func (e *OTLPExporter) Close(ctx context.Context) error {
	return e.provider.Shutdown(ctx)
}
