package telemetry

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupExportsSpans(t *testing.T) {
	var buf bytes.Buffer
	tp, shutdown, err := Setup(true, &buf)
	require.NoError(t, err)

	_, span := tp.Tracer("test").Start(context.Background(), "manage.GetNode")
	span.End()
	require.NoError(t, shutdown(context.Background()))

	assert.Contains(t, buf.String(), "manage.GetNode")
}

func TestSetupDisabled(t *testing.T) {
	var buf bytes.Buffer
	tp, shutdown, err := Setup(false, &buf)
	require.NoError(t, err)

	_, span := tp.Tracer("test").Start(context.Background(), "ignored")
	span.End()
	require.NoError(t, shutdown(context.Background()))

	assert.Empty(t, buf.String())
}
