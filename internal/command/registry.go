package command

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	logx "github.com/joshwoo0/gsa-bot/pkg/logx"
)

// Match is a resolved message. Command is nil when nothing matched.
type Match struct {
	Command  Command
	Args     Args
	Residual string
}

// Registry holds commands ordered by specificity: structured before natural,
// then more arguments or slots first. Equal entries keep registration order.
type Registry struct {
	mu    sync.RWMutex
	cmds  []Command
	sched Scheduler

	reporter Reporter
	log      logx.Logger
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
}

type Option func(*Registry)

func WithLogger(l logx.Logger) Option { return func(r *Registry) { r.log = l } }

// WithReporter sets where cron firings are reported.
func WithReporter(rep Reporter) Option { return func(r *Registry) { r.reporter = rep } }

// WithClock replaces time.Now for the firing time passed to ExecuteCron.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

func NewRegistry(opts ...Option) *Registry {
	r := &Registry{now: time.Now, sleep: sleepCtx}
	for _, o := range opts {
		if o != nil {
			o(r)
		}
	}
	if r.log.IsZero() {
		r.log = logx.Nop()
	}
	return r
}

// Register adds cmd. A name already in use is rejected and the earlier
// command stays registered. When a scheduler is attached the cron jobs of
// cmd are bound before it becomes visible.
func (r *Registry) Register(cmd Command) error {
	if cmd == nil {
		return fmt.Errorf("%w: command", ErrMissingField)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range r.cmds {
		if c.Name() == cmd.Name() {
			return fmt.Errorf("%w: %q", ErrDuplicateName, cmd.Name())
		}
	}
	if r.sched != nil {
		if err := r.bindLocked(r.sched, cmd); err != nil {
			return err
		}
	}

	r.cmds = append(r.cmds, cmd)
	sort.SliceStable(r.cmds, func(i, j int) bool {
		a, b := r.cmds[i], r.cmds[j]
		if a.Kind() != b.Kind() {
			return a.Kind() == KindStructured
		}
		return a.Specificity() > b.Specificity()
	})

	r.log.Debug("command registered",
		logx.String("name", cmd.Name()),
		logx.String("kind", cmd.Kind().String()),
		logx.Int("specificity", cmd.Specificity()),
		logx.Int("cron_jobs", len(cmd.CronJobs())),
	)
	return nil
}

// MustRegister panics on error. Meant for wiring at startup.
func (r *Registry) MustRegister(cmds ...Command) {
	for _, c := range cmds {
		if err := r.Register(c); err != nil {
			panic(err)
		}
	}
}

// AttachScheduler binds the cron jobs of every registered command to s, and
// of every command registered later.
func (r *Registry) AttachScheduler(s Scheduler) error {
	if s == nil {
		return fmt.Errorf("%w: scheduler", ErrMissingField)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for _, c := range r.cmds {
		if err := r.bindLocked(s, c); err != nil {
			errs = append(errs, err)
		}
	}
	r.sched = s
	return errors.Join(errs...)
}

func (r *Registry) bindLocked(s Scheduler, cmd Command) error {
	jobs := cmd.CronJobs()
	for idx, j := range jobs {
		if err := j.validate(); err != nil {
			r.unbind(s, cmd, idx)
			return fmt.Errorf("%s: cron job %d: %w", cmd.Name(), idx, err)
		}
		name := cronName(cmd, idx)
		opt := j.Options()
		if _, err := s.AddCron(name, j.Cron, opt, r.cronJob(cmd, idx, j.After)); err != nil {
			r.unbind(s, cmd, idx+1)
			return fmt.Errorf("%s: cron job %d: %w", cmd.Name(), idx, err)
		}
		r.log.Debug("cron bound", logx.String("name", name), logx.String("spec", j.Cron), logx.String("comment", j.Comment))
	}
	return nil
}

// unbind removes the first n cron jobs of cmd.
func (r *Registry) unbind(s Scheduler, cmd Command, n int) {
	for i := 0; i < n; i++ {
		s.Remove(cronName(cmd, i))
	}
}

func (r *Registry) cronJob(cmd Command, idx int, after time.Duration) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if err := r.sleep(ctx, after); err != nil {
			return err
		}
		at := r.now()
		start := time.Now()
		err := cmd.ExecuteCron(ctx, idx, at)

		if r.reporter != nil {
			rep := CronReport{
				Command: cmd.Name(),
				Icon:    cmd.Icon(),
				Kind:    cmd.Kind(),
				Index:   idx,
				At:      at,
				Took:    time.Since(start),
				Err:     err,
			}
			if rerr := r.reporter.ReportCron(ctx, rep); rerr != nil {
				r.log.Warn("cron report failed", logx.String("name", cronName(cmd, idx)), logx.Err(rerr))
			}
		}
		return err
	}
}

// Resolve finds the first visible command whose grammar accepts text.
//
// With debugMode on only debugChannels see commands. Otherwise a command
// with a channel list is visible in those channels and in debugChannels.
// Leading and trailing whitespace of text is ignored.
func (r *Registry) Resolve(text, channelID string, debugChannels []string, debugMode bool) (Match, bool) {
	inDebug := slices.Contains(debugChannels, channelID)
	if debugMode && !inDebug {
		return Match{}, false
	}
	text = strings.TrimSpace(text)

	for _, c := range r.Commands() {
		if len(c.Channels()) > 0 && !inDebug && !visibleIn(c, channelID) {
			continue
		}
		if args, residual, ok := c.resolve(text); ok {
			return Match{Command: c, Args: args, Residual: residual}, true
		}
	}
	return Match{}, false
}

func visibleIn(c Command, channelID string) bool {
	for _, ch := range c.Channels() {
		if ch.ID == channelID {
			return true
		}
	}
	return false
}

// Commands returns the commands in resolution order.
func (r *Registry) Commands() []Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Command(nil), r.cmds...)
}

// Find looks a command up by name or icon.
func (r *Registry) Find(nameOrIcon string) (Command, bool) {
	nameOrIcon = strings.TrimSpace(nameOrIcon)
	for _, c := range r.Commands() {
		if c.Name() == nameOrIcon || c.Icon() == nameOrIcon {
			return c, true
		}
	}
	return nil, false
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.cmds)
}
