package datetime

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

type compKind int

const (
	compDate compKind = iota
	compWeek
	compWeekday
	compShift
	compPeriod
	compMeridiem
	compClock
)

// component is one matched piece of an expression. For compDate, a is the
// year (0 = current), -1 for a bare day of month, or -2 for a relative day
// whose offset is in c.
type component struct {
	kind    compKind
	a, b, c int
	word    string
}

var (
	reYMD     = regexp.MustCompile(`^(\d{4})[-./](\d{1,2})[-./](\d{1,2})`)
	reMD      = regexp.MustCompile(`^(\d{1,2})월 ?(\d{1,2})일`)
	reSlash   = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})`)
	reShift   = regexp.MustCompile(`^(\d{1,3}) ?(일|주) ?(뒤|후|전)`)
	reDay     = regexp.MustCompile(`^(\d{1,2})일`)
	reClock   = regexp.MustCompile(`^(\d{1,2}):(\d{2})`)
	reHour    = regexp.MustCompile(`^(\d{1,2})시(?: ?(\d{1,2})분| ?(반))?`)
	reWeek    = regexp.MustCompile(`^(지지난|지난|이번|다다음|다음) ?주`)
	reWeekday = regexp.MustCompile(`^([월화수목금토일])요일`)
)

var relativeDays = []struct {
	word   string
	offset int
}{
	{"그저께", -2}, {"그제", -2}, {"어제", -1}, {"오늘", 0}, {"내일", 1}, {"모레", 2}, {"글피", 3},
}

var periods = []struct {
	word string
	hour int
}{
	{"새벽", 3}, {"아침", 8}, {"점심", 12}, {"저녁", 18}, {"밤", 21},
}

var weekOffsets = map[string]int{"지지난": -2, "지난": -1, "이번": 0, "다음": 1, "다다음": 2}

// Monday-based index.
var weekdays = map[string]int{"월": 0, "화": 1, "수": 2, "목": 3, "금": 4, "토": 5, "일": 6}

// Words that may directly follow a part-of-day word without making it part
// of a longer noun (아침밥, 저녁노을).
var periodFollowers = []string{"에", "의", "은", "는", "쯤", "부터", "까지", "동안", "~"}

// matchComponent matches one date/time component at text[i:].
func matchComponent(text string, i int) (component, int, bool) {
	s := text[i:]
	if s == "" {
		return component{}, 0, false
	}
	if isDigit(s[0]) && i > 0 && isDigit(text[i-1]) {
		return component{}, 0, false
	}

	if m := reYMD.FindStringSubmatch(s); m != nil {
		return component{kind: compDate, a: atoi(m[1]), b: atoi(m[2]), c: atoi(m[3])}, len(m[0]), true
	}
	if m := reMD.FindStringSubmatch(s); m != nil {
		return component{kind: compDate, b: atoi(m[1]), c: atoi(m[2])}, len(m[0]), true
	}
	if m := reShift.FindStringSubmatch(s); m != nil {
		n := atoi(m[1])
		if m[2] == "주" {
			n *= 7
		}
		if m[3] == "전" {
			n = -n
		}
		return component{kind: compShift, a: n}, len(m[0]), true
	}
	if m := reClock.FindStringSubmatch(s); m != nil {
		h, mm := atoi(m[1]), atoi(m[2])
		if h > 24 || mm > 59 {
			return component{}, 0, false
		}
		return component{kind: compClock, a: h, b: mm}, len(m[0]), true
	}
	if m := reSlash.FindStringSubmatch(s); m != nil {
		return component{kind: compDate, b: atoi(m[1]), c: atoi(m[2])}, len(m[0]), true
	}
	if m := reHour.FindStringSubmatch(s); m != nil {
		h, mm := atoi(m[1]), 0
		if m[2] != "" {
			mm = atoi(m[2])
		} else if m[3] != "" {
			mm = 30
		}
		if h > 24 || mm > 59 {
			return component{}, 0, false
		}
		return component{kind: compClock, a: h, b: mm}, len(m[0]), true
	}
	if m := reDay.FindStringSubmatch(s); m != nil {
		return component{kind: compDate, c: atoi(m[1]), a: -1}, len(m[0]), true
	}
	if m := reWeek.FindStringSubmatch(s); m != nil {
		return component{kind: compWeek, a: weekOffsets[m[1]]}, len(m[0]), true
	}
	if m := reWeekday.FindStringSubmatch(s); m != nil {
		return component{kind: compWeekday, a: weekdays[m[1]]}, len(m[0]), true
	}
	for _, d := range relativeDays {
		if strings.HasPrefix(s, d.word) {
			return component{kind: compDate, a: -2, c: d.offset, word: d.word}, len(d.word), true
		}
	}
	for _, p := range periods {
		if strings.HasPrefix(s, p.word) && periodBoundary(text, i+len(p.word)) {
			return component{kind: compPeriod, a: p.hour, word: p.word}, len(p.word), true
		}
	}
	switch {
	case strings.HasPrefix(s, "오전"):
		return component{kind: compMeridiem, a: 0}, len("오전"), true
	case strings.HasPrefix(s, "오후"):
		return component{kind: compMeridiem, a: 12}, len("오후"), true
	}
	return component{}, 0, false
}

func periodBoundary(text string, end int) bool {
	rest := strings.TrimPrefix(text[end:], " ")
	if rest == "" || rest != text[end:] {
		return true
	}
	r, _ := utf8.DecodeRuneInString(rest)
	if r < 0xAC00 || r > 0xD7A3 {
		return true
	}
	for _, f := range periodFollowers {
		if strings.HasPrefix(rest, f) {
			return true
		}
	}
	_, _, ok := matchComponent(text, end)
	return ok
}

// state accumulates the components of one run.
type state struct {
	seen map[compKind]bool

	// compDate: year/month/day; year 0 = current, month 0 = current.
	year, month, day int
	relDay           *int

	week     int
	weekday  int
	shift    int
	period   int
	meridiem int
	hour     int
	minute   int
}

func (s *state) apply(c component) bool {
	if s.seen == nil {
		s.seen = map[compKind]bool{}
	}
	if s.seen[c.kind] {
		return false
	}
	// A calendar date and a week reference do not combine.
	if (c.kind == compDate && (s.seen[compWeek] || s.seen[compWeekday])) ||
		((c.kind == compWeek || c.kind == compWeekday) && s.seen[compDate]) {
		return false
	}
	s.seen[c.kind] = true

	switch c.kind {
	case compDate:
		switch c.a {
		case -2:
			off := c.c
			s.relDay = &off
		case -1:
			s.day = c.c
		default:
			s.year, s.month, s.day = c.a, c.b, c.c
		}
	case compWeek:
		s.week = c.a
	case compWeekday:
		s.weekday = c.a
	case compShift:
		s.shift = c.a
	case compPeriod:
		s.period = c.a
	case compMeridiem:
		s.meridiem = c.a
	case compClock:
		s.hour, s.minute = c.a, c.b
	}
	return true
}

func (s *state) hasTime() bool {
	return s.seen[compPeriod] || s.seen[compClock] || s.seen[compMeridiem]
}

// parseRun reads consecutive components starting at text[i:], separated by
// at most one space.
func parseRun(text string, i int) (state, int, bool) {
	var st state
	pos, n := i, 0
	for {
		j := pos
		if n > 0 && strings.HasPrefix(text[j:], " ") {
			j++
		}
		c, l, ok := matchComponent(text, j)
		if !ok || !st.apply(c) {
			break
		}
		pos = j + l
		n++
	}
	return st, pos, n > 0
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func mondayOf(t time.Time) time.Time {
	t = midnight(t)
	return t.AddDate(0, 0, -((int(t.Weekday()) + 6) % 7))
}

func endOfDay(t time.Time) time.Time {
	return midnight(t).AddDate(0, 0, 1).Add(-time.Second)
}

// date resolves the calendar day of the run.
func (s *state) date(now time.Time) (time.Time, bool) {
	today := midnight(now)
	d := today
	switch {
	case s.relDay != nil:
		d = today.AddDate(0, 0, *s.relDay)
	case s.seen[compDate]:
		y, m := s.year, time.Month(s.month)
		if y == 0 {
			y = today.Year()
		}
		if m == 0 {
			m = today.Month()
		}
		d = time.Date(y, m, s.day, 0, 0, 0, 0, now.Location())
		if d.Month() != m || d.Day() != s.day {
			return time.Time{}, false
		}
	case s.seen[compWeek]:
		monday := mondayOf(today).AddDate(0, 0, 7*s.week)
		switch {
		case s.seen[compWeekday]:
			d = monday.AddDate(0, 0, s.weekday)
		case s.week == 0:
			d = today
		default:
			d = monday
		}
	case s.seen[compWeekday]:
		d = mondayOf(today).AddDate(0, 0, s.weekday)
	}
	return d.AddDate(0, 0, s.shift), true
}

func (s *state) clock() (int, int) {
	h, m := 0, 0
	switch {
	case s.seen[compClock]:
		h, m = s.hour, s.minute
		pm := (s.seen[compMeridiem] && s.meridiem == 12) ||
			(s.seen[compPeriod] && (s.period >= 18 || (s.period == 12 && h < 6)))
		switch {
		case pm && h < 12:
			h += 12
		case s.seen[compMeridiem] && s.meridiem == 0 && h == 12:
			h = 0
		case !s.seen[compMeridiem] && !s.seen[compPeriod] && h >= 1 && h <= 6:
			h += 12
		}
	case s.seen[compPeriod]:
		h = s.period
	case s.seen[compMeridiem] && s.meridiem == 0:
		h = 9
	case s.seen[compMeridiem]:
		h = 13
	}
	if h >= 24 {
		h, m = 23, 59
	}
	return h, m
}

func (s *state) point(now time.Time) (time.Time, bool) {
	d, ok := s.date(now)
	if !ok {
		return time.Time{}, false
	}
	if !s.hasTime() {
		return d, true
	}
	h, m := s.clock()
	return d.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute), true
}

// span covers the whole day of the run, or Monday..Sunday for a bare week.
func (s *state) span(now time.Time) (Span, bool) {
	if s.seen[compWeek] && !s.seen[compWeekday] && !s.seen[compShift] {
		monday := mondayOf(now).AddDate(0, 0, 7*s.week)
		return Span{From: monday, To: endOfDay(monday.AddDate(0, 0, 6))}, true
	}
	d, ok := s.date(now)
	if !ok {
		return Span{}, false
	}
	return Span{From: d, To: endOfDay(d)}, true
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
