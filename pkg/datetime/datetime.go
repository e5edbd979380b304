package datetime

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// Span is an inclusive time range.
type Span struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t lies within the span (bounds included).
func (s Span) Contains(t time.Time) bool {
	return !t.Before(s.From) && !t.After(s.To)
}

// Parser resolves expressions relative to its clock and location.
type Parser struct {
	loc *time.Location
	now func() time.Time
}

type Option func(*Parser)

// WithLocation sets the location used for "today" and calendar dates.
func WithLocation(loc *time.Location) Option {
	return func(p *Parser) {
		if loc != nil {
			p.loc = loc
		}
	}
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(p *Parser) {
		if now != nil {
			p.now = now
		}
	}
}

func New(opts ...Option) *Parser {
	p := &Parser{loc: time.Local, now: time.Now}
	for _, o := range opts {
		if o != nil {
			o(p)
		}
	}
	return p
}

// Now returns the parser's current time in its location.
func (p *Parser) Now() time.Time { return p.now().In(p.loc) }

// Location returns the parser's location.
func (p *Parser) Location() *time.Location { return p.loc }

// ParseTime parses text that consists of a single point-in-time expression.
func (p *Parser) ParseTime(text string) (time.Time, bool) {
	t, rest, ok := p.ExtractTime(text, true)
	if !ok || rest != "" {
		return time.Time{}, false
	}
	return t, true
}

// ParseSpan parses text that consists of a single span expression.
func (p *Parser) ParseSpan(text string) (Span, bool) {
	s, rest, ok := p.ExtractSpan(text, true)
	if !ok || rest != "" {
		return Span{}, false
	}
	return s, true
}

// ExtractTime finds the first point-in-time expression in text and returns it
// together with the remaining text. When includeEnding is set a directly
// attached particle (에, 의, 은, 는, 쯤) is removed too.
func (p *Parser) ExtractTime(text string, includeEnding bool) (time.Time, string, bool) {
	text = collapse(text)
	now := p.Now()
	for i := 0; i < len(text); {
		if st, end, ok := parseRun(text, i); ok {
			t, ok := st.point(now)
			if ok {
				if includeEnding {
					end += prefixLen(text[end:], pointEndings)
				}
				return t, cut(text, i, end), true
			}
		}
		_, w := utf8.DecodeRuneInString(text[i:])
		i += w
	}
	return time.Time{}, text, false
}

// ExtractSpan finds the first span expression in text and returns it together
// with the remaining text.
func (p *Parser) ExtractSpan(text string, includeEnding bool) (Span, string, bool) {
	text = collapse(text)
	now := p.Now()
	for i := 0; i < len(text); {
		if span, end, ok := p.spanAt(text, i, now); ok {
			if includeEnding {
				end += prefixLen(text[end:], spanEndings)
			}
			return span, cut(text, i, end), true
		}
		_, w := utf8.DecodeRuneInString(text[i:])
		i += w
	}
	return Span{}, text, false
}

var (
	reFromSep    = regexp.MustCompile(`^ ?(?:부터|~|-) ?`)
	reUntil      = regexp.MustCompile(`^ ?까지`)
	pointEndings = []string{"에는", "에", "의", "은", "는", "쯤"}
	spanEndings  = []string{"동안", "의", "에", "은", "는"}
)

func (p *Parser) spanAt(text string, i int, now time.Time) (Span, int, bool) {
	from, end, ok := parseRun(text, i)
	if !ok {
		return Span{}, 0, false
	}
	fromSpan, ok := from.span(now)
	if !ok {
		return Span{}, 0, false
	}

	if loc := reFromSep.FindStringIndex(text[end:]); loc != nil {
		j := end + loc[1]
		if to, toEnd, ok := parseRun(text, j); ok {
			if toSpan, ok := to.span(now); ok {
				toTime := toSpan.To
				if to.hasTime() {
					toTime, _ = to.point(now)
				}
				fromTime := fromSpan.From
				if from.hasTime() {
					fromTime, _ = from.point(now)
				}
				if toTime.Before(fromTime) {
					return Span{}, 0, false
				}
				if m := reUntil.FindStringIndex(text[toEnd:]); m != nil {
					toEnd += m[1]
				}
				return Span{From: fromTime, To: toTime}, toEnd, true
			}
		}
		// "A부터" with no end: A alone.
		return fromSpan, j, true
	}

	if m := reUntil.FindStringIndex(text[end:]); m != nil {
		to := fromSpan.To
		if from.hasTime() {
			to, _ = from.point(now)
		}
		if to.Before(now) {
			return Span{}, 0, false
		}
		return Span{From: now, To: to}, end + m[1], true
	}
	return fromSpan, end, true
}

func collapse(s string) string { return strings.Join(strings.Fields(s), " ") }

func cut(text string, start, end int) string {
	return collapse(text[:start] + " " + text[end:])
}

func prefixLen(s string, prefixes []string) int {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return len(p)
		}
	}
	return 0
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

var (
	dayNames     = map[int]string{-2: "그제", -1: "어제", 0: "오늘", 1: "내일", 2: "모레"}
	weekdayNames = [...]string{"일", "월", "화", "수", "목", "금", "토"}
)

// Humanize names the day of t relative to the parser's today ("오늘",
// "내일", ...) and falls back to "3월 14일 (목)".
func (p *Parser) Humanize(t time.Time) string {
	t = t.In(p.loc)
	days := int(math.Round(midnight(t).Sub(midnight(p.Now())).Hours() / 24))
	if name, ok := dayNames[days]; ok {
		return name
	}
	return fmt.Sprintf("%d월 %d일 (%s)", t.Month(), t.Day(), weekdayNames[t.Weekday()])
}
