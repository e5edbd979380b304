package scheduler

import "time"

func (s *Service) Snapshot() Snapshot {
	s.mu.Lock()
	cfg := s.cfg
	defs := make([]scheduleDef, len(s.defs))
	copy(defs, s.defs)
	c := s.c
	loc := s.loc
	s.mu.Unlock()

	if loc == nil {
		loc = time.Local
	}
	tz := cfg.Timezone
	if tz == "" {
		tz = loc.String()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	items := make([]ScheduleInfo, 0, len(defs))
	for _, d := range defs {
		it := ScheduleInfo{
			ID:       d.id,
			Name:     d.name,
			Spec:     d.spec,
			Before:   d.opt.Before,
			Start:    d.opt.StartDate,
			End:      d.opt.EndDate,
			Runs:     d.stats.runs.Load(),
			Failures: d.stats.failures.Load(),
		}
		if c != nil && d.entryID != 0 {
			e := c.Entry(d.entryID)
			it.Next = e.Next
			it.Prev = e.Prev
		}
		items = append(items, it)
	}

	s.histMu.Lock()
	hist := append([]HistoryItem(nil), s.history...)
	s.histMu.Unlock()

	return Snapshot{
		Enabled:   cfg.Enabled,
		Running:   c != nil,
		Timezone:  tz,
		Timeout:   timeout,
		Schedules: items,
		History:   hist,
	}
}
