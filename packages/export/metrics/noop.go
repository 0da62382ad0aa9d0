package metrics

import "context"

// NoOpExporter is a metrics exporter that does nothing.
type NoOpExporter struct{}

// NewNoOpExporter creates a new no-op exporter, used when an exporter
// could not be set up.
func NewNoOpExporter() *NoOpExporter {
	return &NoOpExporter{}
}

func (e *NoOpExporter) Export(context.Context, *AggregateMetrics) error {
	return nil
}

func (e *NoOpExporter) ExportSingle(context.Context, *PlanMetrics) error {
	return nil
}

func (e *NoOpExporter) Close(context.Context) error {
	return nil
}
