package observability_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/aretw0/turing/pkg/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func restoreProvider(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
}

func TestInitTracing_Disabled(t *testing.T) {
	restoreProvider(t)

	shutdown, err := observability.InitTracing(context.Background(), observability.TracingConfig{}, nil)
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(context.Background(), "noop")
	assert.False(t, span.SpanContext().IsValid())
	span.End()
	assert.NoError(t, shutdown(context.Background()))
}

func TestInitTracing_WritesSpans(t *testing.T) {
	restoreProvider(t)

	var buf bytes.Buffer
	shutdown, err := observability.InitTracing(context.Background(), observability.TracingConfig{
		Enabled:     true,
		SampleRatio: 1,
		Writer:      &buf,
	}, nil)
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(context.Background(), "session.create")
	require.True(t, span.SpanContext().IsValid())
	span.End()

	observability.ShutdownWithTimeout(context.Background(), shutdown, nil)
	assert.Contains(t, buf.String(), `"Name":"session.create"`)
	assert.Contains(t, buf.String(), "turing")
}
