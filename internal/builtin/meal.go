package builtin

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/joshwoo0/gsa-bot/internal/command"
	"github.com/joshwoo0/gsa-bot/internal/neis"
	"github.com/joshwoo0/gsa-bot/pkg/datetime"
)

// MealSource returns the menu of the day t falls on.
type MealSource interface {
	Meals(ctx context.Context, t time.Time) (neis.Meals, error)
}

const (
	mealIcon   = "🍚"
	mealSlot   = "급식"
	noMealText = "급식 정보가 없습니다."
	cronDelay  = 10 * time.Second
)

var mealIcons = map[neis.MealKind]string{
	neis.Breakfast: "🍳",
	neis.Lunch:     "🍔",
	neis.Dinner:    "🍱",
}

// Aliases that name a meal also pick it, whatever the time says.
var mealByAlias = map[string]neis.MealKind{
	"조식": neis.Breakfast, "아침": neis.Breakfast, "아침밥": neis.Breakfast,
	"중식": neis.Lunch, "점심": neis.Lunch, "점심밥": neis.Lunch,
	"석식": neis.Dinner, "저녁": neis.Dinner, "저녁밥": neis.Dinner,
}

func newMeal(src MealSource, dict command.Dictionary, dates *datetime.Parser, rooms *Rooms, out outlet) (command.Command, error) {
	m := &mealCmd{src: src, dates: dates}
	return command.NewNatural(command.NaturalOptions{
		Info: command.Info{
			Name: "급식",
			Icon: mealIcon,
			Description: "입력한 시간에 맞춰 급식을 전송합니다. 시간을 생략하면 메시지를 전송한 시각으로 설정됩니다.\n" +
				"예를 들어, 아침과 점심 시간 사이에 명령어를 호출하면 점심 급식을 알려주고, 점심과 저녁 시간 사이에는 저녁 급식을 알려줍니다.\n" +
				"또한, 매일 자정 그 날의 모든 급식을 알려주고, 3교시에서 4교시로 가는 쉬는 시간에는 점심, 7교시 이후 청소 시간에 저녁 급식을 정기적으로 전송합니다.",
			Examples: []command.Example{
				{"그제 급식"}, {"오늘 밥"}, {"모레 급식"}, {"석식"}, {"내일 점심밥"}, {"금요일 아침"}, {"급식 3/29"}, {"급식 다다음 주 목요일"},
			},
			CronJobs: []command.CronJob{
				{Cron: "0 0 * * *", Comment: "매일 자정에 그 날의 모든 메뉴 전송", After: cronDelay},
				{Cron: "40 11 * * *", Comment: "3교시 쉬는 시간 (11:40)에 점심 메뉴 전송", After: cronDelay},
				{Cron: "20 16 * * *", Comment: "7교시 이후 청소 시간 (16:20)에 저녁 메뉴 전송", After: cronDelay},
			},
			Execute: func(ctx context.Context, req *command.Request) error {
				msg, err := m.answer(ctx, req.Args)
				if err != nil {
					return err
				}
				return out.reply(ctx, req, msg)
			},
			Cron: func(ctx context.Context, index int, at time.Time) error {
				msg, err := m.scheduled(ctx, index, at.In(dates.Location()))
				if err != nil || msg == "" {
					return err
				}
				return out.broadcast(ctx, rooms, msg)
			},
		},
		Query: command.Query{
			mealSlot:             command.Required(),
			command.SlotDateTime: command.Lazy(func() any { return dates.Now() }),
		},
		Dictionary: dict,
		Margin:     command.MarginOf(0),
		DateMode:   command.DateTime,
		KeepEnding: true,
		Dates:      dates,
	})
}

type mealCmd struct {
	src   MealSource
	dates *datetime.Parser
}

// answer picks what to show for a request: the meal named by the alias,
// the whole day at midnight, or the next meal after the given time.
func (m *mealCmd) answer(ctx context.Context, args command.Args) (string, error) {
	t, ok := args.Time(command.SlotDateTime)
	if !ok {
		t = m.dates.Now()
	}
	alias, _ := args.String(mealSlot)

	kind, named := mealByAlias[alias]
	if !named {
		if t.Hour() == 0 && t.Minute() == 0 {
			meals, err := m.src.Meals(ctx, t)
			if err != nil {
				return "", err
			}
			return m.fullDay(t, meals), nil
		}
		kind, t = nextMeal(t)
	}
	meals, err := m.src.Meals(ctx, t)
	if err != nil {
		return "", err
	}
	return m.single(t, kind, meals.Of(kind)), nil
}

// nextMeal is the meal still to come at t: breakfast until 8:10 (8:50 on
// weekends), lunch until 13:10, dinner until 19:10, then breakfast of the
// following day.
func nextMeal(t time.Time) (neis.MealKind, time.Time) {
	minutes := t.Hour()*60 + t.Minute()
	breakfastEnd := 8*60 + 10
	if wd := t.Weekday(); wd == time.Saturday || wd == time.Sunday {
		breakfastEnd = 8*60 + 50
	}
	switch {
	case minutes < breakfastEnd:
		return neis.Breakfast, t
	case minutes < 13*60+10:
		return neis.Lunch, t
	case minutes < 19*60+10:
		return neis.Dinner, t
	default:
		return neis.Breakfast, t.AddDate(0, 0, 1)
	}
}

func (m *mealCmd) scheduled(ctx context.Context, index int, at time.Time) (string, error) {
	meals, err := m.src.Meals(ctx, at)
	if err != nil {
		return "", err
	}
	switch index {
	case 0:
		if meals.Empty() {
			return "", nil
		}
		return m.fullDay(at, meals), nil
	case 1, 2:
		kind := neis.Lunch
		if index == 2 {
			kind = neis.Dinner
		}
		dishes := meals.Of(kind)
		if len(dishes) == 0 {
			return "", nil
		}
		return m.single(at, kind, dishes), nil
	}
	return "", fmt.Errorf("meal: unknown cron index %d", index)
}

func (m *mealCmd) fullDay(t time.Time, meals neis.Meals) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s 급식\n%s", mealIcon, m.dates.Humanize(t), rule)
	for i, k := range []neis.MealKind{neis.Breakfast, neis.Lunch, neis.Dinner} {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "\n%s %s\n%s", mealIcons[k], k, dishList(meals.Of(k), " · "))
	}
	return b.String()
}

func (m *mealCmd) single(t time.Time, kind neis.MealKind, dishes []string) string {
	return fmt.Sprintf("%s %s %s\n%s\n%s", mealIcons[kind], m.dates.Humanize(t), kind, rule, dishList(dishes, "· "))
}

func dishList(dishes []string, bullet string) string {
	if len(dishes) == 0 {
		return noMealText
	}
	lines := make([]string, len(dishes))
	for i, d := range dishes {
		lines[i] = bullet + d
	}
	return strings.Join(lines, "\n")
}
