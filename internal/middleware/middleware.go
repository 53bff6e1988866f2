package middleware

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/pavelc4/aether-ddl-bot/pkg/logger"
)

const slowHandler = 500 * time.Millisecond

// Handler processes one update.
type Handler func(ctx context.Context) error

type Middleware func(Handler) Handler

// Recover turns a panic in next into an error.
func Recover(next Handler) Handler {
	return func(ctx context.Context) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("Panic recovered", "error", r, "stack", string(debug.Stack()))
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		return next(ctx)
	}
}

func Logger(name string) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context) error {
			start := time.Now()
			err := next(ctx)
			switch took := time.Since(start); {
			case err != nil:
				logger.ErrorWithDuration("Handler failed", start, "name", name, "error", err)
			case took > slowHandler:
				logger.InfoWithDuration("Handler completed (slow)", start, "name", name)
			default:
				logger.Debug("Handler completed", "name", name, "duration", took)
			}
			return err
		}
	}
}

// Chain wraps h so that the first middleware runs outermost.
func Chain(h Handler, mws ...Middleware) Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}
