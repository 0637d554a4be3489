package logx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestFromFallsBackToGlobal(t *testing.T) {
	assert.Same(t, L, From(context.Background()))
}

func TestWithCarriesFields(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	prev := L
	L = zap.New(core)
	t.Cleanup(func() { L = prev })

	ctx := With(context.Background(), zap.String("method", "GET"))
	ctx = Participant(ctx, "r1", "u1")
	From(ctx).Info("joined")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "GET", fields["method"])
	assert.Equal(t, "r1", fields["roomId"])
	assert.Equal(t, "u1", fields["userId"])
}

func TestInit(t *testing.T) {
	prev := L
	t.Cleanup(func() { L = prev })

	require.NoError(t, Init("prod"))
	assert.NotNil(t, L)
	require.NoError(t, Init("dev"))
	assert.NotNil(t, L)
}
