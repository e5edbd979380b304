// Package builtin holds the school bot's commands: debug switch, help,
// student council notices, meal menus and the academic calendar.
package builtin

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/joshwoo0/gsa-bot/internal/bot"
	"github.com/joshwoo0/gsa-bot/internal/command"
	"github.com/joshwoo0/gsa-bot/internal/storage"
	"github.com/joshwoo0/gsa-bot/internal/transport"
	"github.com/joshwoo0/gsa-bot/pkg/datetime"
	logx "github.com/joshwoo0/gsa-bot/pkg/logx"
)

// Reply prefixes.
const (
	iconWarn    = "⚠"
	iconSuccess = "✅"
	iconInfo    = "ℹ️"

	rule = "——"
)

// DefaultDepartments may post notices when the config lists none.
var DefaultDepartments = []string{
	"회장", "부회장", "학생회", "생체부", "환경부", "통계부",
	"문예부", "체육부", "홍보부", "정책부", "정보부", "총무부",
}

type Deps struct {
	Registry *command.Registry
	Mode     *bot.Mode
	Sender   transport.Sender
	Dates    *datetime.Parser
	// Dictionary feeds the natural commands.
	Dictionary command.Dictionary
	// Dictionaries overrides Dictionary per command name.
	Dictionaries map[string]command.Dictionary

	// Store backs the calendar and the cohort room fallback. Without it
	// the calendar command is not registered.
	Store storage.Store
	// Meals backs the meal command. Without it the meal command is not registered.
	Meals MealSource

	// StaffChannel is where notices may be written. Empty disables notices.
	StaffChannel string
	Departments  []string
	CohortOffset int // default 15
	Rooms        map[int]string

	Log logx.Logger
}

func (d Deps) dictionaryFor(name string) command.Dictionary {
	if dict, ok := d.Dictionaries[name]; ok {
		return dict
	}
	return d.Dictionary
}

// Register builds every command Deps allows and adds them to d.Registry.
func Register(d Deps) error {
	if d.Registry == nil || d.Mode == nil || d.Sender == nil || d.Dates == nil {
		return errors.New("builtin: registry, mode, sender and dates are required")
	}
	if d.Log.IsZero() {
		d.Log = logx.Nop()
	}
	if len(d.Departments) == 0 {
		d.Departments = DefaultDepartments
	}
	if d.CohortOffset <= 0 {
		d.CohortOffset = 15
	}

	out := outlet{mode: d.Mode, sender: d.Sender}
	rooms := NewRooms(d.Rooms, d.Store)

	builders := []func() (command.Command, error){
		func() (command.Command, error) { return newDebug(d.Mode) },
		func() (command.Command, error) { return newHelp(d.Registry, out) },
	}
	if d.StaffChannel != "" {
		builders = append(builders, func() (command.Command, error) {
			return newNotice(noticeDeps{
				staff:       d.StaffChannel,
				departments: d.Departments,
				offset:      d.CohortOffset,
				dates:       d.Dates,
				rooms:       rooms,
				out:         out,
				log:         d.Log.With(logx.String("cmd", "공지")),
			})
		})
	} else {
		d.Log.Warn("bot.staff_channel is empty; notice command disabled")
	}
	if d.Meals != nil {
		builders = append(builders, func() (command.Command, error) {
			return newMeal(d.Meals, d.dictionaryFor("급식"), d.Dates, rooms, out)
		})
	} else {
		d.Log.Warn("school codes missing; meal command disabled")
	}
	if d.Store != nil {
		builders = append(builders, func() (command.Command, error) {
			return newEvents(d.Store, d.dictionaryFor("일정"), d.Dates, rooms, out)
		})
	} else {
		d.Log.Warn("storage disabled; calendar command disabled")
	}

	for _, build := range builders {
		cmd, err := build()
		if err != nil {
			return err
		}
		if err := d.Registry.Register(cmd); err != nil {
			return err
		}
	}
	return nil
}

func warn(text string) string    { return iconWarn + " " + text }
func success(text string) string { return iconSuccess + " " + text }
func info(text string) string    { return iconInfo + " " + text }

// outlet routes command output. While debug mode is on everything goes to
// the first debug channel instead of its usual destination.
type outlet struct {
	mode   *bot.Mode
	sender transport.Sender
}

func (o outlet) debugTarget() (string, bool) {
	if !o.mode.Debug() {
		return "", false
	}
	t := o.mode.DebugTarget()
	return t, t != ""
}

func (o outlet) reply(ctx context.Context, req *command.Request, text string) error {
	if t, ok := o.debugTarget(); ok {
		return o.sender.SendText(ctx, t, text)
	}
	return req.Reply(ctx, text)
}

// broadcast sends text to every cohort room in ascending cohort order.
func (o outlet) broadcast(ctx context.Context, rooms *Rooms, text string) error {
	if t, ok := o.debugTarget(); ok {
		return o.sender.SendText(ctx, t, text)
	}
	all := rooms.All(ctx)
	cohorts := make([]int, 0, len(all))
	for n := range all {
		cohorts = append(cohorts, n)
	}
	sort.Ints(cohorts)

	var errs []error
	for _, n := range cohorts {
		if err := o.sender.SendText(ctx, all[n], text); err != nil {
			errs = append(errs, fmt.Errorf("cohort %d: %w", n, err))
		}
	}
	return errors.Join(errs...)
}

func joinInts(ns []int, sep string) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = fmt.Sprint(n)
	}
	return strings.Join(parts, sep)
}
