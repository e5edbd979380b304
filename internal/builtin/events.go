package builtin

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/joshwoo0/gsa-bot/internal/command"
	"github.com/joshwoo0/gsa-bot/internal/storage"
	"github.com/joshwoo0/gsa-bot/pkg/datetime"
)

const eventsIcon = "📅"

func newEvents(store storage.Store, dict command.Dictionary, dates *datetime.Parser, rooms *Rooms, out outlet) (command.Command, error) {
	return command.NewNatural(command.NaturalOptions{
		Info: command.Info{
			Name:        "일정",
			Icon:        eventsIcon,
			Description: "학사일정을 입력한 날짜 및 기간에 맞춰 알려줍니다.",
			Examples:    []command.Example{{"행사 3월 1일"}, {"3월 1일부터 3월 5일까지 학사일정"}, {"다음 주까지 학교 행사"}},
			CronJobs: []command.CronJob{
				{Cron: "0 0 * * 1", Comment: "월요일 자정에는 그 주의 모든 일정을 전송", After: cronDelay},
				{Cron: "0 0 * * 0,2-6", Comment: "월요일을 제외한 모든 요일의 자정에는 그 날의 일정을 전송", After: cronDelay},
			},
			Execute: func(ctx context.Context, req *command.Request) error {
				if req.Residual != "" {
					return nil
				}
				span, ok := req.Args.Span(command.SlotDuration)
				if !ok {
					return nil
				}
				list, err := eventList(ctx, store, span.From, span.To)
				if err != nil {
					return err
				}
				if list == "" {
					list = "해당 기간에 학사일정이 없습니다."
				}
				return out.reply(ctx, req, fmt.Sprintf("%s 학사일정 (%s ~ %s)\n%s\n%s",
					eventsIcon, dates.Humanize(span.From), dates.Humanize(span.To), rule, list))
			},
			Cron: func(ctx context.Context, index int, at time.Time) error {
				at = at.In(dates.Location())
				from, to, label := at, at, "오늘"
				if index == 0 {
					to, label = sundayOf(at), "이번 주"
				}
				list, err := eventList(ctx, store, from, to)
				if err != nil || list == "" {
					return err
				}
				return out.broadcast(ctx, rooms, fmt.Sprintf("%s %s 학사일정\n%s\n%s", eventsIcon, label, rule, list))
			},
		},
		Query:      command.Query{"학교행사": command.Required()},
		Dictionary: dict,
		Margin:     command.MarginOf(0),
		DateMode:   command.DateSpan,
		Dates:      dates,
	})
}

// sundayOf returns the Sunday ending t's Monday-first week.
func sundayOf(t time.Time) time.Time {
	return t.AddDate(0, 0, (7-int(t.Weekday()))%7)
}

// eventList renders the events between from and to grouped by day:
//
//	3월 4일:
//	    · 입학식
//	    · 개학식
func eventList(ctx context.Context, store storage.Store, from, to time.Time) (string, error) {
	events, err := store.EventsBetween(ctx, storage.Day(from), storage.Day(to.In(from.Location())))
	if err != nil {
		return "", err
	}
	var lines []string
	last := ""
	for _, e := range events {
		if e.Day != last {
			day, err := time.Parse("2006-01-02", e.Day)
			if err != nil {
				continue
			}
			lines = append(lines, fmt.Sprintf("%d월 %d일:", int(day.Month()), day.Day()))
			last = e.Day
		}
		lines = append(lines, "    · "+e.Title)
	}
	return strings.Join(lines, "\n"), nil
}
