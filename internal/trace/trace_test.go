package trace

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestDisabledIsNoop(t *testing.T) {
	require.NoError(t, Init(false, &bytes.Buffer{}))

	ctx, span := StartSpan(context.Background(), "workflow.router")
	assert.NotNil(t, ctx)
	assert.False(t, span.SpanContext().IsValid())
	EndSpan(span, errors.New("ignored"))
	assert.False(t, Enabled())
}

func TestEnabledExportsSpans(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, Init(true, &out))
	t.Cleanup(func() { enabled = false })

	_, span := StartSpan(context.Background(), "workflow.summary", attribute.String("stock_code", "AAPL"))
	assert.True(t, span.SpanContext().IsValid())
	EndSpan(span, nil)

	require.NoError(t, Shutdown(context.Background()))
	assert.Contains(t, out.String(), "workflow.summary")
}
