package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const instrumentationName = "timesheet/timer"

// Setup устанавливает глобальный MeterProvider. Без stdout экспортёра
// остаётся провайдер по умолчанию, который ничего не делает.
func Setup(ctx context.Context, stdout bool, interval time.Duration) (func(context.Context) error, error) {
	if !stdout {
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := stdoutmetric.New()
	if err != nil {
		return nil, fmt.Errorf("создание stdout экспортёра метрик: %w", err)
	}
	if interval <= 0 {
		interval = time.Minute
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))),
	)
	otel.SetMeterProvider(provider)
	return provider.Shutdown, nil
}

type TimerMetrics struct {
	transitions metric.Int64Counter
	tracked     metric.Int64Counter
}

func NewTimerMetrics(meter metric.Meter) (*TimerMetrics, error) {
	if meter == nil {
		meter = otel.Meter(instrumentationName)
	}

	transitions, err := meter.Int64Counter("timesheet.timer.transitions",
		metric.WithDescription("Количество переходов таймера"),
		metric.WithUnit("{transition}"))
	if err != nil {
		return nil, fmt.Errorf("счётчик переходов: %w", err)
	}

	tracked, err := meter.Int64Counter("timesheet.timer.tracked_seconds",
		metric.WithDescription("Учтённое время работы над задачами"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("счётчик учтённого времени: %w", err)
	}

	return &TimerMetrics{transitions: transitions, tracked: tracked}, nil
}

// RecordTransition безопасен для nil-получателя
func (m *TimerMetrics) RecordTransition(ctx context.Context, action, outcome string) {
	if m == nil {
		return
	}
	m.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("action", action),
		attribute.String("outcome", outcome),
	))
}

func (m *TimerMetrics) RecordTracked(ctx context.Context, action string, seconds int64) {
	if m == nil || seconds <= 0 {
		return
	}
	m.tracked.Add(ctx, seconds, metric.WithAttributes(attribute.String("action", action)))
}
