package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"

	"github.com/annel0/blockverse/internal/logging"
)

// ShutdownFunc останавливает экспорт и сбрасывает буфер спанов
type ShutdownFunc func(context.Context) error

// InitTelemetry настраивает OTLP экспортер и устанавливает глобальный TracerProvider.
// endpoint - host:port коллектора; пустая строка - OTEL_EXPORTER_OTLP_ENDPOINT или localhost:4318.
// Возвращает функцию shutdown, которую нужно вызвать при завершении приложения.
func InitTelemetry(ctx context.Context, serviceName, endpoint string) (ShutdownFunc, error) {
	var opts []otlptracehttp.Option
	if endpoint != "" {
		opts = append(opts, otlptracehttp.WithEndpoint(endpoint), otlptracehttp.WithInsecure())
	}
	exp, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, err
	}

	tp, err := newProvider(ctx, serviceName, trace.WithBatcher(exp))
	if err != nil {
		return nil, err
	}

	otel.SetTracerProvider(tp)
	logging.GetServerLogger().Info("OpenTelemetry инициализирован (service=%s)", serviceName)

	return shutdownWithTimeout(tp), nil
}

// InitWithExporter ставит TracerProvider с синхронным экспортом в exp.
// Используется в тестах со tracetest.InMemoryExporter.
func InitWithExporter(ctx context.Context, serviceName string, exp trace.SpanExporter) (ShutdownFunc, error) {
	tp, err := newProvider(ctx, serviceName, trace.WithSyncer(exp))
	if err != nil {
		return nil, err
	}
	otel.SetTracerProvider(tp)
	return shutdownWithTimeout(tp), nil
}

func newProvider(ctx context.Context, serviceName string, opts ...trace.TracerProviderOption) (*trace.TracerProvider, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName(serviceName)),
	)
	if err != nil {
		return nil, err
	}
	opts = append(opts, trace.WithResource(res))
	return trace.NewTracerProvider(opts...), nil
}

func shutdownWithTimeout(tp *trace.TracerProvider) ShutdownFunc {
	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return tp.Shutdown(ctx)
	}
}
