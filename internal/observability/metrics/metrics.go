package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
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
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	reportsInitiated metric.Int64Counter
	creditsDebited   metric.Int64Counter
	creditsRejected  metric.Int64Counter
	reportsCancelled metric.Int64Counter
	documentUploads  metric.Int64Counter
	paymentEvents    metric.Int64Counter
	otpSent          metric.Int64Counter
	rateLimitDenied  metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "credmatrix"
	}
	meter := provider.Meter(name)

	reportsInitiated, err := meter.Int64Counter("credmatrix_reports_initiated_total")
	if err != nil {
		return nil, err
	}
	creditsDebited, err := meter.Int64Counter("credmatrix_credits_debited_total")
	if err != nil {
		return nil, err
	}
	creditsRejected, err := meter.Int64Counter("credmatrix_credits_rejected_total")
	if err != nil {
		return nil, err
	}
	reportsCancelled, err := meter.Int64Counter("credmatrix_reports_cancelled_total")
	if err != nil {
		return nil, err
	}
	documentUploads, err := meter.Int64Counter("credmatrix_document_uploads_total")
	if err != nil {
		return nil, err
	}
	paymentEvents, err := meter.Int64Counter("credmatrix_payment_events_total")
	if err != nil {
		return nil, err
	}
	otpSent, err := meter.Int64Counter("credmatrix_otp_sent_total")
	if err != nil {
		return nil, err
	}
	rateLimitDenied, err := meter.Int64Counter("credmatrix_rate_limit_denied_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		reportsInitiated: reportsInitiated,
		creditsDebited:   creditsDebited,
		creditsRejected:  creditsRejected,
		reportsCancelled: reportsCancelled,
		documentUploads:  documentUploads,
		paymentEvents:    paymentEvents,
		otpSent:          otpSent,
		rateLimitDenied:  rateLimitDenied,
	}, nil
}

// RecordReportInitiated counts a report initiation and the credits it charged.
func (m *Metrics) RecordReportInitiated(ctx context.Context, credits int64) {
	if m == nil {
		return
	}
	m.reportsInitiated.Add(ctx, 1)
	if credits > 0 {
		m.creditsDebited.Add(ctx, credits)
	}
}

// RecordCreditsRejected counts a debit refused for insufficient balance.
func (m *Metrics) RecordCreditsRejected(ctx context.Context) {
	if m == nil {
		return
	}
	m.creditsRejected.Add(ctx, 1)
}

// RecordReportCancelled counts cancellations, split by whether credits were refunded.
func (m *Metrics) RecordReportCancelled(ctx context.Context, refunded bool) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.Bool("refunded", refunded))
	m.reportsCancelled.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordDocumentUpload counts upload lifecycle events (requested, confirmed).
func (m *Metrics) RecordDocumentUpload(ctx context.Context, stage string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("stage", strings.TrimSpace(stage)))
	m.documentUploads.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordPaymentEvent increments payment event counts.
func (m *Metrics) RecordPaymentEvent(ctx context.Context, provider, eventType string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("provider", strings.TrimSpace(provider)),
		attribute.String("event_type", strings.TrimSpace(eventType)),
	)
	m.paymentEvents.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordOTPSent(ctx context.Context) {
	if m == nil {
		return
	}
	m.otpSent.Add(ctx, 1)
}

// RecordRateLimitDenied increments rate limit deny counts.
func (m *Metrics) RecordRateLimitDenied(ctx context.Context, endpoint, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("endpoint", strings.TrimSpace(endpoint)),
		attribute.String("reason", strings.TrimSpace(reason)),
	)
	m.rateLimitDenied.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"endpoint":    {},
	"status_code": {},
	"stage":       {},
	"provider":    {},
	"event_type":  {},
	"refunded":    {},
	"reason":      {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
