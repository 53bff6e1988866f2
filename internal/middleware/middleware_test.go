package middleware

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChainOrder(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next Handler) Handler {
			return func(ctx context.Context) error {
				order = append(order, name)
				return next(ctx)
			}
		}
	}

	h := Chain(func(context.Context) error {
		order = append(order, "handler")
		return nil
	}, mark("outer"), mark("inner"))

	assert.NoError(t, h(context.Background()))
	assert.Equal(t, []string{"outer", "inner", "handler"}, order)
}

func TestRecoverReturnsPanicAsError(t *testing.T) {
	h := Chain(func(context.Context) error { panic("boom") }, Recover, Logger("test"))
	err := h(context.Background())
	assert.ErrorContains(t, err, "boom")
}

func TestLoggerPassesErrorThrough(t *testing.T) {
	want := errors.New("failed")
	h := Logger("test")(func(context.Context) error { return want })
	assert.ErrorIs(t, h(context.Background()), want)
}
