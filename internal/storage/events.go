package storage

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"
)

// ParseEvents reads a calendar JSON object mapping a date to a comma
// separated list of events:
//
//	{"2024-03-04": "입학식, 개학식", "2024-03-15": "학부모 총회"}
//
// Dates may also be written "2024.03.04" or "20240304".
func ParseEvents(r io.Reader) ([]SchoolEvent, error) {
	var raw map[string]string
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("events: %w", err)
	}
	out := make([]SchoolEvent, 0, len(raw))
	for date, list := range raw {
		day, err := normalizeDay(date)
		if err != nil {
			return nil, err
		}
		for _, title := range strings.Split(list, ",") {
			if title = strings.TrimSpace(title); title != "" {
				out = append(out, SchoolEvent{Day: day, Title: title})
			}
		}
	}
	sortEvents(out)
	return out, nil
}

func ParseEventsFile(path string) ([]SchoolEvent, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseEvents(f)
}

func normalizeDay(s string) (string, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{dayLayout, "2006.01.02", "2006.1.2", "20060102", "2006-1-2"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(dayLayout), nil
		}
	}
	return "", fmt.Errorf("events: invalid date %q", s)
}

// sortEvents orders by day and keeps the file order of a day's events.
func sortEvents(ev []SchoolEvent) {
	sort.SliceStable(ev, func(i, j int) bool { return ev[i].Day < ev[j].Day })
}

func filterEvents(all []SchoolEvent, from, to string) []SchoolEvent {
	var out []SchoolEvent
	for _, e := range all {
		if from <= e.Day && e.Day <= to {
			out = append(out, e)
		}
	}
	return out
}
