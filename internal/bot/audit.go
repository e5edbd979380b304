package bot

import (
	"context"
	"errors"

	"github.com/joshwoo0/gsa-bot/internal/eventbus"
	"github.com/joshwoo0/gsa-bot/internal/storage"
	"github.com/joshwoo0/gsa-bot/internal/task/scheduler"
	logx "github.com/joshwoo0/gsa-bot/pkg/logx"
)

// RunAudit persists command and cron events until ctx is done.
func RunAudit(ctx context.Context, bus eventbus.Bus, store storage.Store, log logx.Logger) error {
	if bus == nil || store == nil {
		return nil
	}
	err := eventbus.Consume(ctx, bus, 256, func(e eventbus.Event) {
		entry, ok := auditEntry(e)
		if !ok {
			return
		}
		if err := store.AppendAudit(ctx, entry); err != nil {
			log.Warn("audit append failed", logx.String("event", e.Type), logx.Err(err))
		}
	}, EventCommand, scheduler.EventFinished, scheduler.EventFailed)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func auditEntry(e eventbus.Event) (storage.AuditEntry, bool) {
	switch v := e.Data.(type) {
	case storage.AuditEntry:
		return v, true
	case scheduler.RunEvent:
		return storage.AuditEntry{
			At:      v.Started,
			Kind:    KindCron,
			Command: v.Name,
			OK:      v.Error == "",
			Error:   v.Error,
			TookMS:  v.Duration.Milliseconds(),
		}, true
	}
	return storage.AuditEntry{}, false
}
