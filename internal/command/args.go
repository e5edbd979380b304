package command

import (
	"time"

	"github.com/joshwoo0/gsa-bot/pkg/datetime"
)

// Args maps argument or slot names to parsed values.
//
// Structured values are int, []int, string, []string, time.Time or
// datetime.Span; an omitted optional single value is nil. Natural slots hold
// the matched alias text or their default.
type Args map[string]any

func (a Args) Has(name string) bool { return a[name] != nil }

func (a Args) Int(name string) (int, bool) {
	v, ok := a[name].(int)
	return v, ok
}

func (a Args) Ints(name string) []int {
	v, _ := a[name].([]int)
	return v
}

func (a Args) String(name string) (string, bool) {
	v, ok := a[name].(string)
	return v, ok
}

func (a Args) Strings(name string) []string {
	v, _ := a[name].([]string)
	return v
}

func (a Args) Time(name string) (time.Time, bool) {
	v, ok := a[name].(time.Time)
	return v, ok
}

func (a Args) Span(name string) (datetime.Span, bool) {
	v, ok := a[name].(datetime.Span)
	return v, ok
}
