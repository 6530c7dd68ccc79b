package metrics

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ServiceName      string
	Environment      string
}

// Metrics exposes booking and billing domain instruments.
type Metrics struct {
	bookingTransitions metric.Int64Counter
	billsGenerated     metric.Int64Counter
	creditsApplied     metric.Int64Counter
	notifications      metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithInsecure()}
	if endpoint := strings.TrimSpace(cfg.ExporterEndpoint); endpoint != "" {
		opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
	}
	exporter, err := otlpmetrichttp.New(context.Background(), opts...)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				log.Info("shutting down meter provider")
				return provider.Shutdown(ctx)
			},
		})
	}

	log.Info("metrics initialized", zap.String("endpoint", cfg.ExporterEndpoint))
	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "slotwise"
	}
	meter := provider.Meter(name)

	bookingTransitions, err := meter.Int64Counter("slotwise_booking_transitions_total")
	if err != nil {
		return nil, err
	}
	billsGenerated, err := meter.Int64Counter("slotwise_bills_generated_total")
	if err != nil {
		return nil, err
	}
	creditsApplied, err := meter.Int64Counter("slotwise_credits_applied_total")
	if err != nil {
		return nil, err
	}
	notifications, err := meter.Int64Counter("slotwise_notifications_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		bookingTransitions: bookingTransitions,
		billsGenerated:     billsGenerated,
		creditsApplied:     creditsApplied,
		notifications:      notifications,
	}, nil
}

func (m *Metrics) RecordBookingTransition(ctx context.Context, to string, count int64) {
	if m == nil || count <= 0 {
		return
	}
	m.bookingTransitions.Add(ctx, count, metric.WithAttributes(attribute.String("status", to)))
}

func (m *Metrics) RecordBillGenerated(ctx context.Context) {
	if m == nil {
		return
	}
	m.billsGenerated.Add(ctx, 1)
}

// RecordCreditApplied counts the amount of credit that actually reduced a fee.
func (m *Metrics) RecordCreditApplied(ctx context.Context, amount int64) {
	if m == nil || amount <= 0 {
		return
	}
	m.creditsApplied.Add(ctx, amount)
}

func (m *Metrics) RecordNotification(ctx context.Context, template, channel string, ok bool) {
	if m == nil {
		return
	}
	outcome := "sent"
	if !ok {
		outcome = "failed"
	}
	m.notifications.Add(ctx, 1, metric.WithAttributes(
		attribute.String("template", template),
		attribute.String("channel", channel),
		attribute.String("outcome", outcome),
	))
}
