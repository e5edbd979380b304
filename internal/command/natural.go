package command

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Dictionary maps a canonical token to the literal aliases that signal it.
type Dictionary map[string][]string

// Default is the value a natural slot takes when no alias matched it.
type Default struct {
	value  any
	supply func() any
}

// Required marks a slot that must be matched.
func Required() Default { return Default{} }

// Literal uses v when the slot is not matched. A nil v behaves like Required.
func Literal(v any) Default { return Default{value: v} }

// Lazy calls fn at match time when the slot is not matched.
func Lazy(fn func() any) Default { return Default{supply: fn} }

func (d Default) required() bool { return d.supply == nil && d.value == nil }

func (d Default) resolve() (any, bool) {
	if d.supply != nil {
		v := d.supply()
		return v, v != nil
	}
	return d.value, d.value != nil
}

// Query lists the slots a natural command wants, with their defaults.
type Query map[string]Default

// DateMode selects what a natural command extracts besides aliases.
type DateMode uint8

const (
	DateNone DateMode = iota
	// DateTime stores a time.Time under SlotDateTime.
	DateTime
	// DateSpan stores a datetime.Span under SlotDuration.
	DateSpan
)

const (
	SlotDateTime = "datetime"
	SlotDuration = "duration"

	DefaultMargin = 3
)

type alias struct {
	text  string
	token string
	runes []rune
}

type matcher struct {
	aliases       []alias
	query         Query
	margin        int
	mode          DateMode
	includeEnding bool
	dates         DateParser
}

func newMatcher(dict Dictionary, q Query, margin int, mode DateMode, includeEnding bool, dates DateParser) (*matcher, error) {
	if len(q) == 0 {
		return nil, fmt.Errorf("%w: query", ErrMissingField)
	}
	if mode != DateNone && dates == nil {
		return nil, fmt.Errorf("%w: date parser", ErrMissingField)
	}

	q = copyQuery(q)
	if slot := mode.slot(); slot != "" {
		if _, ok := q[slot]; !ok {
			q[slot] = Required()
		}
	}

	byAlias := map[string]string{}
	tokens := make([]string, 0, len(dict))
	for tok := range dict {
		tokens = append(tokens, tok)
	}
	sort.Strings(tokens)
	for _, tok := range tokens {
		if _, wanted := q[tok]; !wanted {
			continue
		}
		for _, a := range dict[tok] {
			if a = strings.TrimSpace(a); a != "" {
				byAlias[a] = tok
			}
		}
	}
	for slot, def := range q {
		if slot == mode.slot() || !def.required() {
			continue
		}
		if _, ok := dict[slot]; !ok {
			return nil, fmt.Errorf("%w: no dictionary entry for slot %q", ErrMissingField, slot)
		}
	}

	aliases := make([]alias, 0, len(byAlias))
	for text, tok := range byAlias {
		aliases = append(aliases, alias{text: text, token: tok, runes: []rune(text)})
	}
	sort.Slice(aliases, func(i, j int) bool {
		li, lj := len(aliases[i].runes), len(aliases[j].runes)
		if li != lj {
			return li > lj
		}
		return aliases[i].text < aliases[j].text
	})

	return &matcher{
		aliases:       aliases,
		query:         q,
		margin:        margin,
		mode:          mode,
		includeEnding: includeEnding,
		dates:         dates,
	}, nil
}

func (m DateMode) slot() string {
	switch m {
	case DateTime:
		return SlotDateTime
	case DateSpan:
		return SlotDuration
	default:
		return ""
	}
}

func copyQuery(q Query) Query {
	out := make(Query, len(q))
	for k, v := range q {
		out[k] = v
	}
	return out
}

var spaceRun = regexp.MustCompile(`\s+`)

const skipPunct = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

func skippable(r rune) bool {
	return unicode.IsSpace(r) || (r >= '0' && r <= '9') || (r < utf8.RuneSelf && strings.ContainsRune(skipPunct, r))
}

func hasRunePrefix(s, prefix []rune) bool {
	if len(prefix) > len(s) {
		return false
	}
	for i, r := range prefix {
		if s[i] != r {
			return false
		}
	}
	return true
}

// match runs the alias scan, the optional date extraction and the residual
// check. It returns the slot values and the unexplained remainder.
func (m *matcher) match(text string) (Args, string, bool) {
	text = spaceRun.ReplaceAllString(text, " ")

	values := Args{}
	var found []string
	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		if skippable(runes[i]) {
			continue
		}
		for _, a := range m.aliases {
			if _, done := values[a.token]; done {
				continue
			}
			if hasRunePrefix(runes[i:], a.runes) {
				values[a.token] = a.text
				found = append(found, a.text)
				i += len(a.runes) - 1
				break
			}
		}
	}

	filtered := text
	switch m.mode {
	case DateTime:
		if t, rest, ok := m.dates.ExtractTime(filtered, m.includeEnding); ok {
			values[SlotDateTime] = t
			filtered = rest
		}
	case DateSpan:
		if s, rest, ok := m.dates.ExtractSpan(filtered, m.includeEnding); ok {
			values[SlotDuration] = s
			filtered = rest
		}
	}

	for _, a := range found {
		filtered = strings.Replace(filtered, a, "", 1)
	}
	if utf8.RuneCountInString(spaceRun.ReplaceAllString(filtered, "")) > m.margin {
		return nil, "", false
	}

	out := make(Args, len(m.query))
	for slot, def := range m.query {
		if v, ok := values[slot]; ok {
			out[slot] = v
			continue
		}
		v, ok := def.resolve()
		if !ok {
			return nil, "", false
		}
		out[slot] = v
	}
	return out, strings.TrimSpace(spaceRun.ReplaceAllString(filtered, " ")), true
}
