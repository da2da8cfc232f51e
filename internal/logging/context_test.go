package logging

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextFields_Empty(t *testing.T) {
	assert.Empty(t, ContextFields(context.Background()))
}

func TestWithFeature(t *testing.T) {
	ctx := WithFeature(context.Background(), "payments")
	assert.Equal(t, "payments", FeatureFromContext(ctx))

	// Empty feature leaves the context untouched.
	assert.Equal(t, "", FeatureFromContext(WithFeature(context.Background(), "")))
}

func TestWithRequestID(t *testing.T) {
	ctx := WithRequestID(context.Background(), "0f8fad5b-d9cb-469f-a165-70867728950e")
	assert.Equal(t, "0f8fad5b-d9cb-469f-a165-70867728950e", RequestIDFromContext(ctx))

	invalid := []string{"", "has space", "semi;colon", strings.Repeat("a", maxRequestIDLen+1), "\xff"}
	for _, id := range invalid {
		assert.False(t, ValidRequestID(id), id)
		assert.Panics(t, func() { WithRequestID(context.Background(), id) }, id)
	}
	assert.True(t, ValidRequestID(strings.Repeat("a", maxRequestIDLen)))
}

func TestContextFields_Order(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-7")
	ctx = WithTool(ctx, "get_task")
	ctx = WithFeature(ctx, "search")

	fields := ContextFields(ctx)
	keys := make([]string, 0, len(fields))
	for _, f := range fields {
		keys = append(keys, f.Key)
	}
	assert.Equal(t, []string{"feature", "tool", "request.id"}, keys)
}

func TestFromContext(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()))

	tl := NewTestLogger()
	ctx := WithLogger(context.Background(), tl.Logger)
	assert.Same(t, tl.Logger, FromContext(ctx))
}
