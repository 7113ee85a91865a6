package log

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestToFields(t *testing.T) {
	now := time.Now()
	err := errors.New("boom")

	tests := []struct {
		name  string
		input []any
		want  int
	}{
		{"empty input", []any{}, 0},
		{"string-int-bool", []any{"a", "x", "b", 123, "c", true}, 3},
		{"time type", []any{"t", now}, 1},
		{"float type", []any{"pi", 3.14}, 1},
		{"bytes", []any{"data", []byte("xyz")}, 1},
		{"error only", []any{err}, 1},
		{"multiple errors", []any{err, errors.New("again")}, 2},
		{"mixed field types", []any{"msg", "ok", zap.String("x", "y"), "num", 42}, 3},
		{"odd number of args", []any{"key1", "val1", "key2"}, 2},
		{"non-string key", []any{123, "value", true, 99}, 2},
		{"nil values", []any{"a", nil, "b", (*int)(nil)}, 2},
		{"map value", []any{"a", map[string]string{"xyz": "123"}}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := toFields(tt.input...)

			assert.Len(t, fields, tt.want)
			for _, f := range fields {
				assert.NotEmpty(t, f.Key, "field has empty key: %+v", f)
			}
		})
	}
}

func TestFromContext(t *testing.T) {
	assert.Equal(t, Std(), FromContext(context.Background()))

	l := NewNopLogger().WithName("req")
	ctx := NewContext(context.Background(), l)
	assert.Equal(t, l, FromContext(ctx))
}

func TestOptionsValidate(t *testing.T) {
	opts := NewOptions()
	assert.Empty(t, opts.Validate())

	opts.Format = "xml"
	opts.Level = "loud"
	assert.Len(t, opts.Validate(), 2)
}
