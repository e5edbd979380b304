// Package app assembles the bot from configuration and runs it until shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joshwoo0/gsa-bot/internal/bot"
	"github.com/joshwoo0/gsa-bot/internal/config"
	"github.com/joshwoo0/gsa-bot/internal/eventbus"
	rtsup "github.com/joshwoo0/gsa-bot/internal/runtime/supervisor"
	"github.com/joshwoo0/gsa-bot/internal/transport"
	"github.com/joshwoo0/gsa-bot/internal/transport/discord"
	"github.com/joshwoo0/gsa-bot/internal/transport/telegram"
	logx "github.com/joshwoo0/gsa-bot/pkg/logx"
	"github.com/joshwoo0/gsa-bot/pkg/systemd"
)

type App struct {
	cfgm *config.Manager
	sup  *rtsup.Supervisor

	log  logx.Logger
	logs *logx.Service
	bus  *eventbus.MemBus

	adapter transport.Adapter
	core    *Core
	disp    *bot.Dispatcher

	in chan transport.Message
}

// New loads cfgPath and builds every component. Nothing is started.
func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	logs, log := logx.New(mapLogConfig(cfg))
	log = log.Component("app")

	ad, err := newAdapter(cfg, log)
	if err != nil {
		_ = logs.Close()
		return nil, err
	}
	sender := bot.RateLimited(ad, cfg.Bot.ReplyRatePerSec)
	bus := eventbus.New()

	core, err := BuildCore(context.Background(), cfg, sender, bus, log)
	if err != nil {
		_ = logs.Close()
		return nil, err
	}
	logs.SetSender(&bot.LogSink{Sender: sender, Mode: core.Mode})

	d, err := mapBotDurations(cfg)
	if err != nil {
		_ = core.Close()
		_ = logs.Close()
		return nil, err
	}
	disp := bot.New(bot.Options{
		Registry:       core.Registry,
		Sender:         sender,
		Mode:           core.Mode,
		Store:          core.Store,
		Bus:            bus,
		Log:            log.Component("dispatch"),
		Workers:        cfg.Bot.Workers,
		LazyTimeout:    d.lazy,
		CommandTimeout: d.command,
		Now:            func() time.Time { return time.Now().In(core.Location) },
	})

	log.Info("bot assembled",
		logx.String("transport", ad.Name()),
		logx.Int("commands", core.Registry.Len()),
		logx.Bool("storage", core.Store != nil),
		logx.Bool("debug", core.Mode.Debug()),
	)
	return &App{
		cfgm:    cfgm,
		log:     log,
		logs:    logs,
		bus:     bus,
		adapter: ad,
		core:    core,
		disp:    disp,
		in:      make(chan transport.Message, 256),
	}, nil
}

func newAdapter(cfg *config.Config, log logx.Logger) (transport.Adapter, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Bot.Transport)) {
	case "telegram":
		if cfg.Telegram == nil {
			return nil, errors.New("telegram section is required")
		}
		poll, err := config.ParseDurationOrDefault("telegram.poll_timeout", cfg.Telegram.PollTimeout, 10*time.Second)
		if err != nil {
			return nil, err
		}
		return telegram.New(telegram.Config{Token: cfg.Telegram.Token, PollTimeout: poll}, log.Component("telegram"))
	case "discord":
		if cfg.Discord == nil {
			return nil, errors.New("discord section is required")
		}
		return discord.New(discord.Config{Token: cfg.Discord.Token}, log.Component("discord"))
	default:
		return nil, fmt.Errorf("unknown bot.transport: %q", cfg.Bot.Transport)
	}
}

// Done is closed when the supervisor context is canceled (fatal error or Stop).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor.
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = rtsup.New(ctx, rtsup.WithLogger(a.log.Component("supervisor")), rtsup.WithCancelOnError(true))

	a.cfgm.SetLogger(a.log.Component("config"))
	a.cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error {
		if _, err := mapSchedulerConfig(cfg); err != nil {
			return err
		}
		if _, err := mapBotDurations(cfg); err != nil {
			return err
		}
		_, err := parseRooms(cfg.School.Rooms)
		return err
	})

	if err := a.adapter.Start(a.sup.Context(), a.in); err != nil {
		return err
	}
	if a.core.Sched.Enabled() {
		a.core.Sched.Start(a.sup.Context())
	}

	a.sup.Go("dispatch", func(c context.Context) error {
		return a.disp.Run(c, a.in)
	})
	if a.core.Store != nil {
		a.sup.GoRestart("audit", func(c context.Context) error {
			return bot.RunAudit(c, a.bus, a.core.Store, a.log.Component("audit"))
		}, rtsup.WithBackoff(time.Second, 30*time.Second))
	}
	a.sup.Go("eventbus.log", func(c context.Context) error {
		err := eventbus.Consume(c, a.bus, 128, func(e eventbus.Event) {
			a.log.Debug("event", logx.String("type", e.Type), logx.Time("time", e.Time))
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	a.sup.Go("config.reload", a.reloadLoop)
	a.sup.Go("config.watch", a.cfgm.Watch)
	a.sup.Go("systemd.watchdog", systemd.Watchdog)

	if _, err := systemd.Ready(); err != nil {
		a.log.Warn("systemd notify failed", logx.Err(err))
	}
	_, _ = systemd.Status(fmt.Sprintf("serving %d commands on %s", a.core.Registry.Len(), a.adapter.Name()))
	a.log.Info("app started")
	return nil
}

func (a *App) reloadLoop(c context.Context) error {
	sub := a.cfgm.Subscribe(8)
	defer a.cfgm.Unsubscribe(sub)
	last := a.cfgm.Get()
	for {
		select {
		case <-c.Done():
			return nil
		case next, ok := <-sub:
			if !ok {
				return nil
			}
			// Coalesce bursts: keep only the latest config in the channel.
		drain:
			for {
				select {
				case newer := <-sub:
					if newer != nil {
						next = newer
					}
				default:
					break drain
				}
			}
			a.apply(c, last, next)
			last = next
		}
	}
}

// apply pushes the live-reloadable parts of next into the running bot.
func (a *App) apply(ctx context.Context, prev, next *config.Config) {
	sections, fields := config.SummarizeChange(prev, next)
	if len(sections) == 0 {
		a.log.Info("config reloaded (no changes)")
		return
	}
	if restart := config.RestartRequired(prev, next); len(restart) > 0 {
		a.log.Warn("config change needs a restart to take effect", logx.Strs("sections", restart))
	}

	a.logs.Apply(mapLogConfig(next))

	mode := a.core.Mode
	mode.SetDebugChannels(next.Bot.DebugChannels)
	mode.SetLogChannel(next.Bot.LogChannel)
	// The debug switch is also flipped by command; only an edited value overrides it.
	if prev == nil || prev.Bot.DebugMode != next.Bot.DebugMode {
		mode.SetDebug(next.Bot.DebugMode)
	}

	sched := a.core.Sched
	scfg, err := mapSchedulerConfig(next)
	if err != nil {
		a.log.Warn("invalid scheduler config; keeping previous", logx.Err(err))
	} else {
		was := sched.Enabled()
		sched.Apply(scfg)
		switch {
		case was && !scfg.Enabled:
			a.log.Info("scheduler disabled via config")
			stopCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			sched.Stop(stopCtx)
			cancel()
		case !was && scfg.Enabled:
			a.log.Info("scheduler enabled via config")
			sched.Start(ctx)
		}
	}

	fields = append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, fields...)
	a.log.Info("config reloaded", fields...)
}

func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))
	_, _ = systemd.Stopping()

	a.sup.Cancel()

	step := func(name string, max time.Duration, fn func(context.Context) error) {
		start := time.Now()
		stepCtx := ctx
		if max > 0 {
			// respect the caller's deadline; never extend it
			if dl, ok := ctx.Deadline(); ok && time.Until(dl) < max {
				max = time.Until(dl)
			}
			var cancel context.CancelFunc
			stepCtx, cancel = context.WithTimeout(ctx, max)
			defer cancel()
		}

		done := make(chan error, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- fmt.Errorf("panic in stop step %s: %v", name, r)
				}
			}()
			done <- fn(stepCtx)
		}()

		select {
		case err := <-done:
			if err != nil {
				a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
			}
			a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
		case <-stepCtx.Done():
			a.log.Warn("stop step deadline reached (continuing)",
				logx.String("name", name),
				logx.Duration("elapsed", time.Since(start)),
			)
		}
	}

	step("scheduler", 2*time.Second, func(c context.Context) error { a.core.Sched.Stop(c); return nil })
	step("adapter", 2*time.Second, a.adapter.Stop)
	// Dispatch workers drain their queues before the store goes away.
	step("supervisor", 3*time.Second, a.sup.Wait)
	step("storage", time.Second, func(context.Context) error { return a.core.Close() })

	a.log.Info("stopped")
	return a.logs.Close()
}
