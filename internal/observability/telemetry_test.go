package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestInitWithExporterRecordsSpans(t *testing.T) {
	prev := otel.GetTracerProvider()
	defer otel.SetTracerProvider(prev)

	exp := tracetest.NewInMemoryExporter()
	shutdown, err := InitWithExporter(context.Background(), "blockverse-test", exp)
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(context.Background(), "streaming.Tick")
	span.End()

	spans := exp.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "streaming.Tick", spans[0].Name)

	require.NoError(t, shutdown(context.Background()))
}
