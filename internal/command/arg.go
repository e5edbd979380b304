package command

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joshwoo0/gsa-bot/pkg/datetime"
)

// State tells apart an omitted argument from one that is present but unusable.
type State uint8

const (
	Absent State = iota
	Matched
	Invalid
)

func (s State) String() string {
	switch s {
	case Matched:
		return "matched"
	case Invalid:
		return "invalid"
	default:
		return "absent"
	}
}

// Result is the outcome of parsing one captured argument.
type Result struct {
	State State
	Value any
}

func matched(v any) Result { return Result{State: Matched, Value: v} }
func absent(v any) Result  { return Result{State: Absent, Value: v} }

var invalid = Result{State: Invalid}

// Arg is a typed usage placeholder. The set is closed: *IntArg, *StrArg, *DateArg.
type Arg interface {
	Name() string
	Many() bool
	Optional() bool
	// Pattern returns the regular expression source without a capture group.
	Pattern() string
	// Parse interprets the captured text. present is false when the capture
	// group did not participate in the match.
	Parse(raw string, present bool) Result

	kind() string
	setProp(key string, v propValue) error
	validate() error
	describe() string
}

type argBase struct {
	name     string
	many     bool
	optional bool
}

func (a *argBase) Name() string   { return a.name }
func (a *argBase) Many() bool     { return a.many }
func (a *argBase) Optional() bool { return a.optional }

// repeat wraps a unit pattern for space separated repetition.
func (a *argBase) repeat(unit string) string {
	if !a.many {
		return unit
	}
	if a.optional {
		return "(?:" + unit + `\s?)*`
	}
	return "(?:" + unit + `\s?)+`
}

func (a *argBase) flags() string {
	var fl []string
	if a.many {
		fl = append(fl, "여러 개 입력 가능")
	}
	if a.optional {
		fl = append(fl, "생략 허용")
	}
	if len(fl) == 0 {
		return ""
	}
	return " (" + strings.Join(fl, ", ") + ")"
}

// ---- int ----

// IntArg captures signed integers, optionally bounded (inclusive).
type IntArg struct {
	argBase
	Min *int
	Max *int
}

func (a *IntArg) kind() string { return "int" }

func (a *IntArg) Pattern() string {
	if a.optional {
		return a.repeat(`[+-]?\d*`)
	}
	return a.repeat(`[+-]?\d+`)
}

func (a *IntArg) inBounds(v int) bool {
	if a.Min != nil && v < *a.Min {
		return false
	}
	if a.Max != nil && v > *a.Max {
		return false
	}
	return true
}

func (a *IntArg) Parse(raw string, present bool) Result {
	if a.many {
		items := strings.Fields(raw)
		if !present || len(items) == 0 {
			return absent([]int{})
		}
		out := make([]int, 0, len(items))
		for _, it := range items {
			v, err := strconv.Atoi(it)
			if err != nil || !a.inBounds(v) {
				return invalid
			}
			out = append(out, v)
		}
		return matched(out)
	}

	// A lone sign carries no number and counts as not given.
	if !present || raw == "" || raw == "+" || raw == "-" {
		return absent(nil)
	}
	v, err := strconv.Atoi(raw)
	if err != nil || !a.inBounds(v) {
		return invalid
	}
	return matched(v)
}

func (a *IntArg) setProp(key string, v propValue) error {
	switch key {
	case "min":
		n, err := v.asInt()
		if err != nil {
			return err
		}
		a.Min = &n
	case "max":
		n, err := v.asInt()
		if err != nil {
			return err
		}
		a.Max = &n
	default:
		return fmt.Errorf("unknown int property %q", key)
	}
	return nil
}

func (a *IntArg) validate() error {
	if a.Min != nil && a.Max != nil && *a.Min > *a.Max {
		return fmt.Errorf("%w: %s: min %d > max %d", ErrInvalidBounds, a.name, *a.Min, *a.Max)
	}
	return nil
}

func (a *IntArg) describe() string {
	var props []string
	if a.Min != nil {
		props = append(props, strconv.Itoa(*a.Min)+"이상")
	}
	if a.Max != nil {
		props = append(props, strconv.Itoa(*a.Max)+"이하")
	}
	props = append(props, "숫자")
	return "· " + a.name + ": " + strings.Join(props, " ") + a.flags()
}

// ---- str ----

// StrArg captures whitespace free text. Length is exclusive with MinLength/MaxLength.
type StrArg struct {
	argBase
	Length    *int
	MinLength *int
	MaxLength *int
}

func (a *StrArg) kind() string { return "str" }

func (a *StrArg) Pattern() string {
	var unit string
	switch {
	case a.Length != nil:
		unit = fmt.Sprintf(`\S{%d}`, *a.Length)
	case a.MinLength != nil && a.MaxLength != nil:
		unit = fmt.Sprintf(`\S{%d,%d}`, *a.MinLength, *a.MaxLength)
	case a.MinLength != nil:
		unit = fmt.Sprintf(`\S{%d,}`, *a.MinLength)
	case a.optional:
		unit = `\S*`
	default:
		unit = `\S+`
	}
	return a.repeat(unit)
}

func (a *StrArg) Parse(raw string, present bool) Result {
	if a.many {
		items := strings.Fields(raw)
		if !present || len(items) == 0 {
			return absent([]string{})
		}
		return matched(items)
	}
	if !present || raw == "" {
		return absent(nil)
	}
	return matched(raw)
}

func (a *StrArg) setProp(key string, v propValue) error {
	var dst **int
	switch key {
	case "length":
		dst = &a.Length
	case "minLength":
		dst = &a.MinLength
	case "maxLength":
		dst = &a.MaxLength
	default:
		return fmt.Errorf("unknown str property %q", key)
	}
	n, err := v.asInt()
	if err != nil {
		return err
	}
	*dst = &n
	return nil
}

func (a *StrArg) validate() error {
	if a.Length != nil && (a.MinLength != nil || a.MaxLength != nil) {
		return fmt.Errorf("%w: %s: length cannot be used with minLength or maxLength", ErrInvalidBounds, a.name)
	}
	if a.Length != nil && *a.Length < 1 {
		return fmt.Errorf("%w: %s: length must be at least 1", ErrInvalidBounds, a.name)
	}
	if a.MinLength != nil && *a.MinLength < 1 {
		return fmt.Errorf("%w: %s: minLength must be at least 1", ErrInvalidBounds, a.name)
	}
	if a.MaxLength != nil && *a.MaxLength < 1 {
		return fmt.Errorf("%w: %s: maxLength must be at least 1", ErrInvalidBounds, a.name)
	}
	if a.MinLength != nil && a.MaxLength != nil && *a.MinLength > *a.MaxLength {
		return fmt.Errorf("%w: %s: minLength %d > maxLength %d", ErrInvalidBounds, a.name, *a.MinLength, *a.MaxLength)
	}
	if a.MinLength == nil && a.MaxLength != nil {
		one := 1
		a.MinLength = &one
	}
	return nil
}

func (a *StrArg) describe() string {
	var props []string
	switch {
	case a.Length != nil:
		props = append(props, strconv.Itoa(*a.Length)+"글자")
	default:
		if a.MinLength != nil {
			props = append(props, strconv.Itoa(*a.MinLength)+"글자 이상")
		}
		if a.MaxLength != nil {
			props = append(props, strconv.Itoa(*a.MaxLength)+"글자 이하")
		}
	}
	props = append(props, "문자열")
	return "· " + a.name + ": " + strings.Join(props, " ") + a.flags()
}

// ---- date ----

// DateParser is the date collaborator used by date arguments and natural commands.
type DateParser interface {
	ParseTime(text string) (time.Time, bool)
	ParseSpan(text string) (datetime.Span, bool)
	ExtractTime(text string, includeEnding bool) (time.Time, string, bool)
	ExtractSpan(text string, includeEnding bool) (datetime.Span, string, bool)
}

// DateArg captures a date expression and resolves it to a time.Time, or to a
// datetime.Span when Duration is set. Repetition is not supported.
type DateArg struct {
	argBase
	Duration bool

	dates DateParser
}

const datePattern = `[0-9+\-ㄱ-ㅎㅏ-ㅣ가-힣:./ ]`

func (a *DateArg) kind() string { return "date" }

func (a *DateArg) Pattern() string {
	if a.optional {
		return datePattern + "*"
	}
	return datePattern + "+"
}

func (a *DateArg) Parse(raw string, present bool) Result {
	raw = strings.TrimSpace(raw)
	if !present || raw == "" {
		return absent(nil)
	}
	if a.Duration {
		s, ok := a.dates.ParseSpan(raw)
		if !ok {
			return invalid
		}
		return matched(s)
	}
	t, ok := a.dates.ParseTime(raw)
	if !ok {
		return invalid
	}
	return matched(t)
}

func (a *DateArg) setProp(key string, v propValue) error {
	if key != "duration" {
		return fmt.Errorf("unknown date property %q", key)
	}
	b, err := v.asBool()
	if err != nil {
		return err
	}
	a.Duration = b
	return nil
}

func (a *DateArg) validate() error {
	if a.dates == nil {
		return fmt.Errorf("%w: %s: date argument needs a date parser", ErrMissingField, a.name)
	}
	return nil
}

func (a *DateArg) describe() string {
	typ := "날짜"
	if a.Duration {
		typ = "기간"
	}
	return "· " + a.name + ": " + typ + a.flags()
}

// ---- properties ----

// propValue is a placeholder property value, coerced like the usage DSL does:
// numbers and booleans when they look like one, text otherwise.
type propValue struct {
	raw string
	num *float64
	b   *bool
}

func parsePropValue(raw string) propValue {
	pv := propValue{raw: raw}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		pv.num = &f
		return pv
	}
	if b, err := strconv.ParseBool(raw); err == nil && (raw == "true" || raw == "false") {
		pv.b = &b
	}
	return pv
}

func (v propValue) asInt() (int, error) {
	if v.num == nil || *v.num != float64(int(*v.num)) {
		return 0, fmt.Errorf("%q is not an integer", v.raw)
	}
	return int(*v.num), nil
}

func (v propValue) asBool() (bool, error) {
	if v.b == nil {
		return false, fmt.Errorf("%q is not a boolean", v.raw)
	}
	return *v.b, nil
}
