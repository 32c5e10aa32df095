package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestIdentityContext(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	_, ok := IdentityFromContext(ctx)
	assert.False(t, ok)
	assert.Panics(t, func() { MustIdentityFromContext(ctx) })

	want := Identity{ID: "u-1", Roles: []string{"admin"}}
	ctx = ContextWithIdentity(ctx, want)
	got, ok := IdentityFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, want, got)
	assert.Equal(t, want, MustIdentityFromContext(ctx))
}

func TestClaimsContext(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	_, ok := ClaimsFromContext(ctx)
	assert.False(t, ok)

	_, ok = ClaimsFromContext(ContextWithClaims(ctx, nil))
	assert.False(t, ok)

	c := &Claims{Subject: "s"}
	got, ok := ClaimsFromContext(ContextWithClaims(ctx, c))
	require.True(t, ok)
	assert.Same(t, c, got)
}

func TestTraceIDFromContext(t *testing.T) {
	t.Parallel()
	_, ok := TraceIDFromContext(context.Background())
	assert.False(t, ok)

	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	id, ok := TraceIDFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, span.SpanContext().TraceID().String(), id)
}
