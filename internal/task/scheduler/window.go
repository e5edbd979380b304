package scheduler

import (
	"time"

	"github.com/robfig/cron/v3"
)

// shiftedSchedule fires shift earlier than its base schedule.
type shiftedSchedule struct {
	base  cron.Schedule
	shift time.Duration
}

func (s *shiftedSchedule) Next(t time.Time) time.Time {
	n := s.base.Next(t.Add(s.shift))
	if n.IsZero() {
		return n
	}
	return n.Add(-s.shift)
}

// windowSchedule only yields times within [start, end]. A zero bound is open.
// Past the end it returns the zero time, which cron treats as "never".
type windowSchedule struct {
	base  cron.Schedule
	start time.Time
	end   time.Time
}

func (s *windowSchedule) Next(t time.Time) time.Time {
	if !s.start.IsZero() && t.Before(s.start) {
		// Next is strictly after its argument; step back so start itself can fire.
		t = s.start.Add(-time.Second)
	}
	n := s.base.Next(t)
	if n.IsZero() || (!s.end.IsZero() && n.After(s.end)) {
		return time.Time{}
	}
	return n
}
