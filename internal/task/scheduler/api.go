package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/joshwoo0/gsa-bot/internal/command"
	"github.com/joshwoo0/gsa-bot/internal/eventbus"
	logx "github.com/joshwoo0/gsa-bot/pkg/logx"
)

// AddCron registers job under name, replacing any schedule with the same name.
//
// spec accepts 5-field and 6-field (with seconds) cron expressions and
// descriptors like "@daily" or "@every 55m". opt.Before fires each run that
// much earlier; opt.StartDate and opt.EndDate bound the firings.
func (s *Service) AddCron(name, spec string, opt command.CronOptions, job func(ctx context.Context) error) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("name required")
	}
	if job == nil {
		return "", errors.New("job required")
	}
	if _, err := s.parser.Parse(spec); err != nil {
		return "", fmt.Errorf("cron %q: %w", spec, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Upsert by name so repeated registration never duplicates a schedule.
	_ = s.removeScheduleLocked(name)
	d := scheduleDef{
		id:    fmt.Sprintf("cron:%d", time.Now().UnixNano()),
		name:  name,
		spec:  spec,
		opt:   opt,
		job:   job,
		stats: &runStats{},
	}
	s.defs = append(s.defs, d)
	if s.c == nil {
		return name, nil
	}
	if err := s.addCronLocked(&s.defs[len(s.defs)-1]); err != nil {
		s.log.Error("schedule register failed", logx.String("name", name), logx.String("spec", spec), logx.Err(err))
		return name, err
	}
	args := []logx.Field{logx.String("name", name), logx.String("spec", spec)}
	if next := s.previewNextRunsLocked(spec, opt, 4); next != "" {
		args = append(args, logx.String("next", next))
	}
	s.log.Debug("schedule registered", args...)
	return name, nil
}

// Remove unschedules the schedule with the given name. It reports whether
// something was removed. Safe to call when the scheduler is not started.
func (s *Service) Remove(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	s.mu.Lock()
	removed := s.removeScheduleLocked(name)
	s.mu.Unlock()

	s.warnMu.Lock()
	delete(s.lastWarn, name)
	s.warnMu.Unlock()

	if removed {
		s.log.Debug("schedule removed", logx.String("name", name))
	}
	return removed
}

// NextRuns previews up to n trigger times of spec after from.
func (s *Service) NextRuns(spec string, opt command.CronOptions, from time.Time, n int) ([]time.Time, error) {
	sched, err := s.buildSchedule(spec, opt)
	if err != nil {
		return nil, err
	}
	out := make([]time.Time, 0, n)
	t := from
	for i := 0; i < n; i++ {
		t = sched.Next(t)
		if t.IsZero() {
			break
		}
		out = append(out, t)
	}
	return out, nil
}

// removeScheduleLocked drops all defs matching name. Call with s.mu held.
func (s *Service) removeScheduleLocked(name string) bool {
	removed := false
	n := 0
	for _, d := range s.defs {
		if d.name == name {
			if s.c != nil && d.entryID != 0 {
				s.c.Remove(d.entryID)
			}
			removed = true
			continue
		}
		s.defs[n] = d
		n++
	}
	s.defs = s.defs[:n]
	return removed
}

func (s *Service) buildSchedule(spec string, opt command.CronOptions) (cron.Schedule, error) {
	base, err := s.parser.Parse(spec)
	if err != nil {
		return nil, err
	}
	var sched cron.Schedule = base
	if opt.Before > 0 {
		sched = &shiftedSchedule{base: sched, shift: opt.Before}
	}
	if !opt.StartDate.IsZero() || !opt.EndDate.IsZero() {
		sched = &windowSchedule{base: sched, start: opt.StartDate, end: opt.EndDate}
	}
	return sched, nil
}

func (s *Service) addCronLocked(d *scheduleDef) error {
	sched, err := s.buildSchedule(d.spec, d.opt)
	if err != nil {
		return err
	}
	name, job, stats := d.name, d.job, d.stats
	ctx := s.runCtx
	timeout := s.cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	d.entryID = s.c.Schedule(sched, cron.FuncJob(func() {
		s.run(ctx, name, timeout, stats, job)
	}))
	return nil
}

func (s *Service) run(parent context.Context, name string, timeout time.Duration, stats *runStats, job func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	start := time.Now()
	err := job(ctx)
	ev := RunEvent{Name: name, Started: start, Duration: time.Since(start)}
	stats.runs.Add(1)

	typ := EventFinished
	if err != nil {
		stats.failures.Add(1)
		ev.Error = err.Error()
		typ = EventFailed
		s.reportFailure(name, err)
	} else {
		s.log.Debug("schedule run finished", logx.String("name", name), logx.Duration("took", ev.Duration))
	}
	s.record(ev)
	if s.bus != nil {
		s.bus.Publish(eventbus.Event{Type: typ, Time: time.Now(), Data: ev})
	}
}

func (s *Service) record(ev RunEvent) {
	s.mu.Lock()
	size := s.cfg.History
	s.mu.Unlock()
	if size <= 0 {
		size = defaultHistory
	}

	s.histMu.Lock()
	s.history = append(s.history, ev)
	if over := len(s.history) - size; over > 0 {
		s.history = append(s.history[:0], s.history[over:]...)
	}
	s.histMu.Unlock()
}

func (s *Service) restartLocked() {
	if s.c != nil {
		<-s.c.Stop().Done()
	}
	s.loc = s.loadLocationLocked()
	s.c = s.newCronLocked()
	for i := range s.defs {
		if err := s.addCronLocked(&s.defs[i]); err != nil {
			s.log.Error("schedule register failed", logx.String("name", s.defs[i].name), logx.Err(err))
		}
	}
	s.c.Start()
	s.log.Info("service restarted", logx.String("tz", s.loc.String()), logx.Int("schedules", len(s.defs)))
}

func (s *Service) loadLocationLocked() *time.Location {
	tz := strings.TrimSpace(s.cfg.Timezone)
	if tz == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		s.log.Warn("invalid timezone; falling back to Local", logx.String("tz", tz), logx.Err(err))
		return time.Local
	}
	return loc
}

// previewNextRunsLocked returns a short list of upcoming run times for debug
// logging. Call with s.mu held.
func (s *Service) previewNextRunsLocked(spec string, opt command.CronOptions, n int) string {
	if !s.log.Enabled(logx.LevelDebug) {
		return ""
	}
	loc := s.loc
	if loc == nil {
		loc = s.loadLocationLocked()
	}
	runs, err := s.NextRuns(spec, opt, time.Now().In(loc), n)
	if err != nil {
		return ""
	}
	parts := make([]string, 0, len(runs))
	for _, t := range runs {
		parts = append(parts, t.Format("2006-01-02 15:04:05"))
	}
	return strings.Join(parts, ", ")
}
