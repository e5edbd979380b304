package command

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/joshwoo0/gsa-bot/pkg/hangul"
)

const (
	manualRule  = "——————————"
	sectionRule = "——"
)

// FormatExample renders an example. Lines after the first are indented as
// replies: "╰ ", "╰─ ", "╰── ", ...
func FormatExample(e Example) string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0]
	}
	var b strings.Builder
	for i, line := range e {
		if i > 0 {
			b.WriteString("\n╰")
			b.WriteString(strings.Repeat("─", i-1))
			b.WriteString(" ")
		}
		b.WriteString(line)
	}
	b.WriteString("\n")
	return b.String()
}

// manual lays out the shared help sections around the kind specific ones and
// substitutes $key placeholders from formats.
func (c *core) manual(contents []string, formats map[string]string) string {
	lines := []string{
		fmt.Sprintf("🧩 '%s' 명령어 도움말", c.info.Name),
		manualRule,
		c.info.Description,
		"",
	}
	lines = append(lines, contents...)
	lines = append(lines, "")

	if len(c.info.CronJobs) > 0 {
		lines = append(lines, "📌 자동 실행 주기", sectionRule)
		for _, j := range c.info.CronJobs {
			lines = append(lines, "· "+j.Comment)
		}
		lines = append(lines, "")
	}
	if len(c.info.Channels) > 0 {
		lines = append(lines, "📌 활성화된 방", sectionRule)
		for _, ch := range c.info.Channels {
			name := ch.Name
			if name == "" {
				name = ch.ID
			}
			lines = append(lines, "· "+name)
		}
		lines = append(lines, "")
	}
	if len(c.info.Examples) > 0 {
		lines = append(lines, "📌 예시", sectionRule)
		for _, e := range c.info.Examples {
			lines = append(lines, FormatExample(e))
		}
	}

	out := strings.Join(lines, "\n")
	keys := make([]string, 0, len(formats))
	for k := range formats {
		keys = append(keys, k)
	}
	// Longer keys first so $username is not eaten by $user.
	sort.Slice(keys, func(i, j int) bool { return len(keys[i]) > len(keys[j]) })
	for _, k := range keys {
		out = strings.ReplaceAll(out, "$"+k, formats[k])
	}
	return out
}

func (c *StructuredCommand) Manual(formats map[string]string) string {
	contents := []string{"📌 입력 양식", sectionRule, c.grammar.Display()}
	for _, a := range c.grammar.Args {
		contents = append(contents, a.describe())
	}
	return c.manual(contents, formats)
}

func (c *NaturalCommand) Manual(formats map[string]string) string {
	contents := []string{"📌 필수 포함 용어", sectionRule}

	slots := make([]string, 0, len(c.m.query))
	for k := range c.m.query {
		if k != SlotDateTime && k != SlotDuration {
			slots = append(slots, k)
		}
	}
	sort.Strings(slots)
	for _, slot := range slots {
		var ex []string
		for _, a := range c.m.aliases {
			if a.token == slot && len(ex) < 4 {
				ex = append(ex, a.text)
			}
		}
		line := fmt.Sprintf("· %s 의미하는 용어 (ex. %s, ...)", hangul.Josa(slot, "을/를"), strings.Join(ex, ", "))
		contents = append(contents, line+defaultSuffix(c.m.query[slot]))
	}

	switch c.m.mode {
	case DateTime:
		contents = append(contents, "· 날짜 및 시간을 의미하는 용어 (ex. 3월 14일, 내일 저녁, 4일 뒤 5시, ...)"+defaultSuffix(c.m.query[SlotDateTime]))
	case DateSpan:
		contents = append(contents, "· 기간을 의미하는 용어 (ex. 다음 주까지, 내일부터 모레 저녁까지, ...)"+defaultSuffix(c.m.query[SlotDuration]))
	}
	return c.manual(contents, formats)
}

func defaultSuffix(d Default) string {
	v, ok := d.resolve()
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case time.Time:
		return fmt.Sprintf(" (생략 시 기본값 = %s)", t.Format("1월 2일 15:04"))
	default:
		return fmt.Sprintf(" (생략 시 기본값 = %v)", t)
	}
}
