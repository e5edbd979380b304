package command

import (
	"fmt"
	"regexp"
	"strings"
)

var placeholderRe = regexp.MustCompile(`\s*<.+?>`)

// kinds in prefix-match order.
var argKinds = []string{"int", "str", "date"}

// Grammar is a compiled usage string.
type Grammar struct {
	Usage   string
	Args    []Arg
	Pattern string

	re *regexp.Regexp
}

// CompileUsage compiles a usage string into an anchored regular expression
// with one capture group per placeholder, in order. Literal text between
// placeholders is used as regular expression source as written, and the
// whitespace in front of a placeholder is kept in the pattern.
//
// dates may be nil when the usage has no date placeholder.
func CompileUsage(usage string, dates DateParser) (*Grammar, error) {
	if strings.TrimSpace(usage) == "" {
		return nil, fmt.Errorf("%w: usage", ErrMissingField)
	}

	var (
		b    strings.Builder
		args []Arg
		last int
	)
	b.WriteString("^")
	for _, loc := range placeholderRe.FindAllStringIndex(usage, -1) {
		b.WriteString(usage[last:loc[0]])
		last = loc[1]

		m := usage[loc[0]:loc[1]]
		lt := strings.IndexByte(m, '<')
		ws := m[:lt]

		arg, err := parsePlaceholder(m[lt+1:len(m)-1], dates)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %w", ErrInvalidUsage, strings.TrimSpace(m), err)
		}
		args = append(args, arg)

		unit := ws + "(" + arg.Pattern() + ")"
		if arg.Optional() {
			unit = "(?:" + unit + ")?"
		}
		b.WriteString(unit)
	}
	b.WriteString(usage[last:])
	b.WriteString("$")

	pattern := b.String()
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidUsage, err)
	}
	if re.NumSubexp() != len(args) {
		return nil, fmt.Errorf("%w: literal text must not contain capture groups", ErrInvalidUsage)
	}
	return &Grammar{Usage: usage, Args: args, Pattern: pattern, re: re}, nil
}

// parsePlaceholder reads "name:kind[modifier] key=value ..." (without brackets).
func parsePlaceholder(inner string, dates DateParser) (Arg, error) {
	parts := strings.Fields(inner)
	if len(parts) == 0 {
		return nil, fmt.Errorf("empty placeholder")
	}
	name, typ, ok := strings.Cut(parts[0], ":")
	if !ok || name == "" {
		return nil, fmt.Errorf("expected name:kind")
	}

	var kind string
	for _, k := range argKinds {
		if strings.HasPrefix(typ, k) {
			kind = k
			break
		}
	}
	if kind == "" {
		return nil, fmt.Errorf("unknown kind %q", typ)
	}

	base := argBase{name: name}
	switch mod := strings.TrimSpace(typ[len(kind):]); mod {
	case "":
	case "[]":
		base.many = true
	case "?":
		base.optional = true
	case "[]?":
		base.many, base.optional = true, true
	default:
		return nil, fmt.Errorf("unknown modifier %q", mod)
	}

	var arg Arg
	switch kind {
	case "int":
		arg = &IntArg{argBase: base}
	case "str":
		arg = &StrArg{argBase: base}
	case "date":
		base.many = false
		arg = &DateArg{argBase: base, dates: dates}
	}

	for _, p := range parts[1:] {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("expected key=value, got %q", p)
		}
		if err := arg.setProp(k, parsePropValue(v)); err != nil {
			return nil, err
		}
	}
	if err := arg.validate(); err != nil {
		return nil, err
	}
	return arg, nil
}

// Match tests text against the grammar and parses every captured argument.
// It fails when the pattern does not match or any argument is invalid.
func (g *Grammar) Match(text string) (Args, bool) {
	idx := g.re.FindStringSubmatchIndex(text)
	if idx == nil {
		return nil, false
	}
	out := make(Args, len(g.Args))
	for i, arg := range g.Args {
		s, e := idx[2*(i+1)], idx[2*(i+1)+1]
		var raw string
		if s >= 0 {
			raw = text[s:e]
		}
		res := arg.Parse(raw, s >= 0)
		if res.State == Invalid {
			return nil, false
		}
		out[arg.Name()] = res.Value
	}
	return out, true
}

// Display renders the usage with placeholders reduced to <name> or <name...>.
func (g *Grammar) Display() string {
	i := 0
	return displayRe.ReplaceAllStringFunc(g.Usage, func(string) string {
		a := g.Args[i]
		i++
		if a.Many() {
			return "<" + a.Name() + "...>"
		}
		return "<" + a.Name() + ">"
	})
}

var displayRe = regexp.MustCompile(`<.+?>`)
