package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/joshwoo0/gsa-bot/internal/command"
	logx "github.com/joshwoo0/gsa-bot/pkg/logx"
)

// Call is one command invocation travelling through the middleware chain.
type Call struct {
	Kind    string // KindMessage or KindLazy
	Command command.Command
	Req     *command.Request
	// Prev is the request that armed a lazy continuation.
	Prev *command.Request
	Log  logx.Logger
}

const (
	KindMessage = "message"
	KindLazy    = "lazy"
	KindCron    = "cron"
)

type HandlerFunc func(ctx context.Context, c *Call) error

type Middleware func(next HandlerFunc) HandlerFunc

func Chain(h HandlerFunc, m ...Middleware) HandlerFunc {
	for i := len(m) - 1; i >= 0; i-- {
		h = m[i](h)
	}
	return h
}

func MWTimeout(d time.Duration) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, c *Call) error {
			if d <= 0 {
				return next(ctx, c)
			}
			cctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()
			return next(cctx, c)
		}
	}
}

func MWPanicRecover(log logx.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, c *Call) (err error) {
			defer func() {
				if r := recover(); r != nil {
					logger := log
					if c != nil && !c.Log.IsZero() {
						logger = c.Log
					}
					logger.Error("panic recovered", logx.Any("panic", r), logx.Stack(logx.StackTrace(3, 32)))
					err = fmt.Errorf("panic: %v", r)
				}
			}()
			return next(ctx, c)
		}
	}
}

func MWRequestLog(log logx.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, c *Call) error {
			start := time.Now()
			logger := log
			if !c.Log.IsZero() {
				logger = c.Log
			}
			err := next(ctx, c)
			d := time.Since(start)

			fields := []logx.Field{
				logx.String("kind", c.Kind),
				logx.String("cmd", c.Command.Name()),
				logx.Duration("dur", d),
			}
			switch {
			case err != nil && !errors.Is(err, command.ErrSkipLazy):
				logger.Warn("request failed", append(fields, logx.Err(err))...)
			case d >= 750*time.Millisecond:
				// Keep INFO useful: short successful requests go to DEBUG.
				logger.Info("request ok", fields...)
			default:
				logger.Debug("request ok", fields...)
			}
			return err
		}
	}
}
