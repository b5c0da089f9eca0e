package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/Liam-Lillieroth/MetaTasks/ext"
	"github.com/Liam-Lillieroth/MetaTasks/id"
	"github.com/Liam-Lillieroth/MetaTasks/item"
	"github.com/Liam-Lillieroth/MetaTasks/workflow"
)

const instrumentationName = "github.com/Liam-Lillieroth/MetaTasks/observability"

// Compile-time interface checks.
var (
	_ ext.Extension         = (*MetricsExtension)(nil)
	_ ext.ItemCreated       = (*MetricsExtension)(nil)
	_ ext.TransitionApplied = (*MetricsExtension)(nil)
	_ ext.MovedBackward     = (*MetricsExtension)(nil)
	_ ext.MoveDenied        = (*MetricsExtension)(nil)
)

// MetricsExtension records lifecycle counters via OpenTelemetry. Register
// it as a MetaTasks extension to track item creation rates, forward and
// backward move counts, and denial rates.
type MetricsExtension struct {
	itemsCreated  metric.Int64Counter
	movesApplied  metric.Int64Counter
	movesBackward metric.Int64Counter
	movesDenied   metric.Int64Counter
}

// NewMetricsExtension creates a MetricsExtension using the global
// MeterProvider.
func NewMetricsExtension() (*MetricsExtension, error) {
	return NewMetricsExtensionWithProvider(otel.GetMeterProvider())
}

// NewMetricsExtensionWithProvider creates a MetricsExtension with the
// provided MeterProvider. Use a noop provider for testing.
func NewMetricsExtensionWithProvider(mp metric.MeterProvider) (*MetricsExtension, error) {
	meter := mp.Meter(instrumentationName)

	itemsCreated, err := meter.Int64Counter("metatasks.item.created",
		metric.WithDescription("Work items created"))
	if err != nil {
		return nil, err
	}
	movesApplied, err := meter.Int64Counter("metatasks.move.applied",
		metric.WithDescription("Forward transitions applied"))
	if err != nil {
		return nil, err
	}
	movesBackward, err := meter.Int64Counter("metatasks.move.backward",
		metric.WithDescription("Backward moves committed"))
	if err != nil {
		return nil, err
	}
	movesDenied, err := meter.Int64Counter("metatasks.move.denied",
		metric.WithDescription("Moves rejected during validation"))
	if err != nil {
		return nil, err
	}

	return &MetricsExtension{
		itemsCreated:  itemsCreated,
		movesApplied:  movesApplied,
		movesBackward: movesBackward,
		movesDenied:   movesDenied,
	}, nil
}

// Name implements ext.Extension.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnItemCreated implements ext.ItemCreated.
func (m *MetricsExtension) OnItemCreated(ctx context.Context, w *item.WorkItem, _ *item.HistoryEntry) error {
	m.itemsCreated.Add(ctx, 1, metric.WithAttributes(
		attribute.String("workflow_id", w.WorkflowID.String()),
	))
	return nil
}

// OnTransitionApplied implements ext.TransitionApplied.
func (m *MetricsExtension) OnTransitionApplied(ctx context.Context, w *item.WorkItem, t *workflow.Transition, _ *item.HistoryEntry) error {
	attrs := []attribute.KeyValue{
		attribute.String("workflow_id", w.WorkflowID.String()),
	}
	if t != nil {
		attrs = append(attrs, attribute.String("permission_level", string(t.PermissionLevel)))
	}
	m.movesApplied.Add(ctx, 1, metric.WithAttributes(attrs...))
	return nil
}

// OnMovedBackward implements ext.MovedBackward.
func (m *MetricsExtension) OnMovedBackward(ctx context.Context, w *item.WorkItem, _ *item.HistoryEntry) error {
	m.movesBackward.Add(ctx, 1, metric.WithAttributes(
		attribute.String("workflow_id", w.WorkflowID.String()),
	))
	return nil
}

// OnMoveDenied implements ext.MoveDenied.
func (m *MetricsExtension) OnMoveDenied(ctx context.Context, _ id.ItemID, _ id.ActorID, moveErr error) error {
	attrs := []attribute.KeyValue{}
	if moveErr != nil {
		attrs = append(attrs, attribute.String("reason", denialReason(moveErr)))
	}
	m.movesDenied.Add(ctx, 1, metric.WithAttributes(attrs...))
	return nil
}
