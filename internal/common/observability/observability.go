package observability

import (
	"context"
	"time"

	"fleet-assistant/internal/common/logger"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

type Observability struct {
	meterProvider  *metric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
	meter          otelmetric.Meter
	aiCalls        otelmetric.Int64Counter
	aiDuration     otelmetric.Float64Histogram
	turnDuration   otelmetric.Float64Histogram
	logger         logger.Logger
}

// New installs the global meter provider (bridged to Prometheus) and, when
// jaegerEndpoint is set, a global tracer provider exporting to Jaeger.
func New(serviceName, jaegerEndpoint string, log logger.Logger) *Observability {
	o := &Observability{logger: log}

	res := resource.NewSchemaless(attribute.String("service.name", serviceName))

	exporter, err := prometheus.New()
	if err != nil {
		log.Warn("failed to create Prometheus exporter", map[string]interface{}{"error": err})
	} else {
		o.meterProvider = metric.NewMeterProvider(metric.WithReader(exporter), metric.WithResource(res))
		otel.SetMeterProvider(o.meterProvider)
		o.meter = o.meterProvider.Meter(serviceName)

		o.aiCalls, _ = o.meter.Int64Counter(
			"ai.calls",
			otelmetric.WithDescription("Number of AI reply endpoint calls"),
		)
		o.aiDuration, _ = o.meter.Float64Histogram(
			"ai.duration",
			otelmetric.WithDescription("AI reply endpoint call duration"),
			otelmetric.WithUnit("ms"),
		)
		o.turnDuration, _ = o.meter.Float64Histogram(
			"chat.turn.duration",
			otelmetric.WithDescription("Time to produce the reply for one visitor turn"),
			otelmetric.WithUnit("ms"),
		)
	}

	if jaegerEndpoint != "" {
		traceExporter, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(jaegerEndpoint)))
		if err != nil {
			log.Warn("failed to create Jaeger exporter", map[string]interface{}{"error": err})
		} else {
			o.tracerProvider = sdktrace.NewTracerProvider(
				sdktrace.WithBatcher(traceExporter),
				sdktrace.WithResource(res),
			)
			otel.SetTracerProvider(o.tracerProvider)
		}
	}

	return o
}

// RecordAICall is safe to call on a zero Observability.
func (o *Observability) RecordAICall(ctx context.Context, duration time.Duration, outcome string) {
	if o == nil {
		return
	}
	attrs := otelmetric.WithAttributes(attribute.String("outcome", outcome))
	if o.aiCalls != nil {
		o.aiCalls.Add(ctx, 1, attrs)
	}
	if o.aiDuration != nil {
		o.aiDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	}
}

func (o *Observability) RecordTurn(ctx context.Context, duration time.Duration, source string) {
	if o == nil || o.turnDuration == nil {
		return
	}
	o.turnDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
		attribute.String("source", source),
	))
}

func (o *Observability) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if o.tracerProvider != nil {
		if err := o.tracerProvider.Shutdown(ctx); err != nil {
			o.logger.Warn("tracer provider shutdown failed", map[string]interface{}{"error": err})
		}
	}
	if o.meterProvider != nil {
		if err := o.meterProvider.Shutdown(ctx); err != nil {
			o.logger.Warn("meter provider shutdown failed", map[string]interface{}{"error": err})
		}
	}
}
