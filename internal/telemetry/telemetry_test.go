package telemetry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AiSchool-Admin/quran-miracles/internal/telemetry"
)

func TestNew_DisabledProviderStillProducesUsableSpans(t *testing.T) {
	p, err := telemetry.New("test-service", false)
	require.NoError(t, err)
	require.NotNil(t, p)

	ctx, span := p.StartStage(context.Background(), "route_query", "sess-1", 1)
	require.NotNil(t, span)
	require.NotNil(t, ctx)
	telemetry.EndStage(span, nil)

	require.NoError(t, p.Shutdown(context.Background()))
}

func TestNilProvider_StartStageReturnsUsableNoopSpan(t *testing.T) {
	var p *telemetry.Provider
	ctx, span := p.StartStage(context.Background(), "route_query", "sess-1", 1)
	assert.NotNil(t, ctx)
	assert.NotNil(t, span)
	telemetry.EndStage(span, errors.New("boom")) // must not panic on a no-op span
}

func TestNilProvider_ShutdownIsANoop(t *testing.T) {
	var p *telemetry.Provider
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestShutdown_IsIdempotent(t *testing.T) {
	p, err := telemetry.New("test-service", false)
	require.NoError(t, err)

	require.NoError(t, p.Shutdown(context.Background()))
	require.NoError(t, p.Shutdown(context.Background()))
}
