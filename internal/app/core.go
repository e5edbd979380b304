package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joshwoo0/gsa-bot/internal/bot"
	"github.com/joshwoo0/gsa-bot/internal/builtin"
	"github.com/joshwoo0/gsa-bot/internal/command"
	"github.com/joshwoo0/gsa-bot/internal/config"
	"github.com/joshwoo0/gsa-bot/internal/dictionary"
	"github.com/joshwoo0/gsa-bot/internal/eventbus"
	"github.com/joshwoo0/gsa-bot/internal/neis"
	"github.com/joshwoo0/gsa-bot/internal/storage"
	"github.com/joshwoo0/gsa-bot/internal/task/scheduler"
	"github.com/joshwoo0/gsa-bot/internal/transport"
	"github.com/joshwoo0/gsa-bot/pkg/datetime"
	logx "github.com/joshwoo0/gsa-bot/pkg/logx"
)

// Core is everything that answers commands, without a chat connection.
// The run command wraps it in an App; check and match use it directly.
type Core struct {
	Config   *config.Config
	Location *time.Location
	Dates    *datetime.Parser
	Mode     *bot.Mode
	Store    storage.Store // nil when storage is disabled
	Dicts    *dictionary.Store
	Sched    *scheduler.Service
	Registry *command.Registry
}

// BuildCore wires storage, dictionaries, the scheduler and the built-in
// commands. sender receives every reply and cron message.
func BuildCore(ctx context.Context, cfg *config.Config, sender transport.Sender, bus eventbus.Bus, log logx.Logger) (*Core, error) {
	if cfg == nil {
		return nil, errors.New("nil config")
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	loc, err := loadLocation(cfg)
	if err != nil {
		return nil, err
	}
	now := func() time.Time { return time.Now().In(loc) }

	c := &Core{
		Config:   cfg,
		Location: loc,
		Dates:    datetime.New(datetime.WithLocation(loc)),
		Mode:     bot.NewMode(cfg.Bot.DebugMode, cfg.Bot.DebugChannels, cfg.Bot.LogChannel),
	}

	scfg, enabled, err := mapStorageConfig(cfg)
	if err != nil {
		return nil, err
	}
	if enabled {
		c.Store, err = storage.Open(scfg, log.Component("storage"))
		if err != nil {
			return nil, fmt.Errorf("storage: %w", err)
		}
	}
	ok := false
	defer func() {
		if !ok {
			c.Close()
		}
	}()

	if path := strings.TrimSpace(cfg.School.EventsFile); path != "" {
		if err := c.importEvents(ctx, path, log); err != nil {
			return nil, err
		}
	}

	c.Dicts, err = dictionary.Load(cfg.Dictionary.Dir, log.Component("dictionary"))
	if err != nil {
		return nil, err
	}
	dict, err := c.Dicts.Get(dictionary.DefaultID)
	if err != nil {
		return nil, err
	}
	perCommand := make(map[string]command.Dictionary, len(cfg.Dictionary.Commands))
	for name, id := range cfg.Dictionary.Commands {
		d, err := c.Dicts.Get(id)
		if err != nil {
			return nil, fmt.Errorf("dictionary for %s: %w", name, err)
		}
		perCommand[name] = d
	}

	schedCfg, err := mapSchedulerConfig(cfg)
	if err != nil {
		return nil, err
	}
	c.Sched = scheduler.New(schedCfg, log.Component("scheduler"), bus)

	c.Registry = command.NewRegistry(
		command.WithLogger(log.Component("commands")),
		command.WithReporter(&bot.CronReporter{Sender: sender, Mode: c.Mode}),
		command.WithClock(now),
	)

	rooms, err := parseRooms(cfg.School.Rooms)
	if err != nil {
		return nil, err
	}
	deps := builtin.Deps{
		Registry:     c.Registry,
		Mode:         c.Mode,
		Sender:       sender,
		Dates:        c.Dates,
		Dictionary:   dict,
		Dictionaries: perCommand,
		Store:        c.Store,
		StaffChannel: strings.TrimSpace(cfg.Bot.StaffChannel),
		Departments:  cfg.School.Departments,
		CohortOffset: cfg.School.CohortOffset,
		Rooms:        rooms,
		Log:          log.Component("builtin"),
	}
	ncfg, hasNeis, err := mapNeisConfig(cfg)
	if err != nil {
		return nil, err
	}
	if hasNeis {
		client, err := neis.New(ncfg, log.Component("neis"))
		if err != nil {
			return nil, err
		}
		deps.Meals = client
	}
	if err := builtin.Register(deps); err != nil {
		return nil, err
	}
	if err := c.Registry.AttachScheduler(c.Sched); err != nil {
		return nil, err
	}

	ok = true
	return c, nil
}

func (c *Core) importEvents(ctx context.Context, path string, log logx.Logger) error {
	events, err := storage.ParseEventsFile(path)
	if err != nil {
		return fmt.Errorf("school.events_file: %w", err)
	}
	if c.Store == nil {
		log.Warn("events file ignored: storage is disabled", logx.String("path", path))
		return nil
	}
	if err := c.Store.ReplaceEvents(ctx, events); err != nil {
		return fmt.Errorf("import events: %w", err)
	}
	log.Info("school events imported", logx.String("path", path), logx.Int("count", len(events)))
	return nil
}

// Close releases the store. It is safe to call more than once.
func (c *Core) Close() error {
	if c == nil || c.Store == nil {
		return nil
	}
	err := c.Store.Close()
	c.Store = nil
	return err
}
