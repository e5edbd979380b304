package scheduler

import (
	"fmt"
	"time"

	logx "github.com/joshwoo0/gsa-bot/pkg/logx"
)

const failureWarnThrottle = 30 * time.Second

func (s *Service) reportFailure(name string, err error) {
	now := time.Now()
	s.warnMu.Lock()
	last := s.lastWarn[name]
	if !last.IsZero() && now.Sub(last) < failureWarnThrottle {
		s.warnMu.Unlock()
		s.log.Debug("schedule run failed", logx.String("schedule", name), logx.Err(err))
		return
	}
	s.lastWarn[name] = now
	s.warnMu.Unlock()

	s.log.Warn("schedule run failed", logx.String("schedule", name), logx.Err(err))
}

// cronLogger routes robfig/cron's internal logging (panics, skips) into logx.
type cronLogger struct{ log logx.Logger }

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	// cron logs every wake-up at info; keep those at trace.
	l.log.Trace("cron: "+msg, kvFields(keysAndValues)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	fields := append(kvFields(keysAndValues), logx.Err(err))
	l.log.Error("cron: "+msg, fields...)
}

func kvFields(kv []interface{}) []logx.Field {
	out := make([]logx.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, logx.Any(fmt.Sprint(kv[i]), kv[i+1]))
	}
	return out
}
