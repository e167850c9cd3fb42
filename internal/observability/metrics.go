package observability

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/brforum/forum-backend/internal/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

// AppMetrics holds the forum's domain instruments. All record helpers no-op
// until InitMetrics has run, so tests and tools need no metrics setup.
type AppMetrics struct {
	accountFlowCounter   metric.Int64Counter
	accountFlowDuration  metric.Float64Histogram
	photoOpCounter       metric.Int64Counter
	photoRollbackCounter metric.Int64Counter
	repoOpCounter        metric.Int64Counter
	loginThrottleCounter metric.Int64Counter
}

var (
	metricsMu  sync.RWMutex
	appMetrics *AppMetrics
)

func InitMetrics(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*sdkmetric.MeterProvider, error) {
	if !cfg.OTELMetricsEnabled {
		mp := sdkmetric.NewMeterProvider()
		otel.SetMeterProvider(mp)
		logger.Info("otel metrics disabled")
		return mp, nil
	}

	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.OTELExporterOTLPEndpoint)}
	if cfg.OTELExporterOTLPInsecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create otlp metric exporter: %w", err)
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		attribute.String("service.name", cfg.OTELServiceName),
		attribute.String("deployment.environment", cfg.Env),
	))
	if err != nil {
		return nil, fmt.Errorf("create metric resource: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(cfg.OTELMetricsExportInterval))),
	)
	otel.SetMeterProvider(mp)

	meter := mp.Meter("forum-backend")
	m := &AppMetrics{}
	if m.accountFlowCounter, err = meter.Int64Counter("account.flow.results"); err != nil {
		return nil, err
	}
	if m.accountFlowDuration, err = meter.Float64Histogram("account.flow.duration"); err != nil {
		return nil, err
	}
	if m.photoOpCounter, err = meter.Int64Counter("photo.store.operations"); err != nil {
		return nil, err
	}
	if m.photoRollbackCounter, err = meter.Int64Counter("photo.store.rollbacks"); err != nil {
		return nil, err
	}
	if m.repoOpCounter, err = meter.Int64Counter("repository.operations"); err != nil {
		return nil, err
	}
	if m.loginThrottleCounter, err = meter.Int64Counter("account.login.throttled"); err != nil {
		return nil, err
	}

	metricsMu.Lock()
	appMetrics = m
	metricsMu.Unlock()

	logger.Info("otel metrics initialized", "endpoint", cfg.OTELExporterOTLPEndpoint)
	return mp, nil
}

func current() *AppMetrics {
	metricsMu.RLock()
	defer metricsMu.RUnlock()
	return appMetrics
}

// RecordAccountFlow counts one account flow outcome (register, login, ...).
func RecordAccountFlow(ctx context.Context, flow, status string) {
	m := current()
	if m == nil {
		return
	}
	m.accountFlowCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("flow", flow),
		attribute.String("status", status),
	))
}

func RecordAccountFlowDuration(ctx context.Context, flow, status string, d time.Duration) {
	m := current()
	if m == nil {
		return
	}
	m.accountFlowDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("flow", flow),
		attribute.String("status", status),
	))
}

func RecordPhotoOperation(ctx context.Context, op, status string) {
	m := current()
	if m == nil {
		return
	}
	m.photoOpCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("op", op),
		attribute.String("status", status),
	))
}

// RecordPhotoRollback counts a compensating delete of a just-stored photo.
func RecordPhotoRollback(ctx context.Context, flow string) {
	m := current()
	if m == nil {
		return
	}
	m.photoRollbackCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("flow", flow)))
}

func RecordRepositoryOperation(ctx context.Context, entity, op, status string) {
	m := current()
	if m == nil {
		return
	}
	m.repoOpCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("entity", entity),
		attribute.String("op", op),
		attribute.String("status", status),
	))
}

func RecordLoginThrottled(ctx context.Context) {
	m := current()
	if m == nil {
		return
	}
	m.loginThrottleCounter.Add(ctx, 1)
}
