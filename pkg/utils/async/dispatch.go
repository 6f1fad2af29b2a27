package async

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/getsentry/sentry-go"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
)

// Dispatch runs handler in a new goroutine on a background context that keeps only the logger
// of ctx, so the handler outlives the request that triggered it. Panics and returned errors are
// logged and reported to Sentry; sentry calls are no-ops unless sentry.Init was called.
func Dispatch(ctx context.Context, handler func(ctx context.Context) error) {
	newCtx := newBackgroundContext(ctx)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				stack := debug.Stack()
				logger := ctxlog.From(newCtx)
				logger.Error("panic in async handler",
					"recover", r,
					"stack", string(stack))
				sentry.CaptureException(goerr.New(fmt.Sprintf("panic in async handler: %v", r)))
			}
		}()

		if err := handler(newCtx); err != nil {
			logger := ctxlog.From(newCtx)
			logger.Error("error in async handler", "error", err)
			sentry.CaptureException(err)
		}
	}()
}

// Sync runs handler in the calling goroutine with the same context handling as Dispatch
func Sync(ctx context.Context, handler func(ctx context.Context) error) {
	newCtx := newBackgroundContext(ctx)
	if err := handler(newCtx); err != nil {
		ctxlog.From(newCtx).Error("error in handler", "error", err)
		sentry.CaptureException(err)
	}
}

func newBackgroundContext(ctx context.Context) context.Context {
	return ctxlog.With(context.Background(), ctxlog.From(ctx))
}
