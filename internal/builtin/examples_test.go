package builtin

import (
	"strings"
	"testing"

	"github.com/joshwoo0/gsa-bot/internal/bot"
	"github.com/joshwoo0/gsa-bot/internal/command"
	"github.com/joshwoo0/gsa-bot/pkg/datetime"
)

// Every example shown in help must reach the command it documents.
func TestExamplesResolveToTheirCommand(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	debug := []string{"dbg1", "dbg2"}
	if h.reg.Len() != 5 {
		t.Fatalf("registered %d commands, want 5", h.reg.Len())
	}
	for _, cmd := range h.reg.Commands() {
		channel := "c1"
		if chs := cmd.Channels(); len(chs) > 0 {
			channel = chs[0].ID
		}
		for _, ex := range cmd.Examples() {
			if len(ex) == 0 {
				continue
			}
			text := strings.TrimPrefix(ex[0], "$user: ")
			m, ok := h.reg.Resolve(text, channel, debug, false)
			if !ok {
				t.Fatalf("%s example %q did not resolve", cmd.Name(), text)
			}
			if m.Command.Name() != cmd.Name() {
				t.Fatalf("%s example %q resolved to %s", cmd.Name(), text, m.Command.Name())
			}
		}
	}
}

func TestRegisterPerCommandDictionary(t *testing.T) {
	t.Parallel()

	reg := command.NewRegistry()
	err := Register(Deps{
		Registry:   reg,
		Mode:       bot.NewMode(false, nil, ""),
		Sender:     &fakeSender{},
		Dates:      datetime.New(),
		Dictionary: command.Dictionary{"급식": {"급식"}, "학교행사": {"행사"}},
		Dictionaries: map[string]command.Dictionary{
			"일정": {"학교행사": {"캘린더"}},
		},
		Meals: &fakeMeals{},
		Store: newHarness(t).store,
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	tests := []struct {
		text string
		want string
	}{
		{"캘린더", "일정"},
		{"급식", "급식"},
		{"행사", ""},
	}
	for _, tt := range tests {
		m, ok := reg.Resolve(tt.text, "c1", nil, false)
		got := ""
		if ok {
			got = m.Command.Name()
		}
		if got != tt.want {
			t.Fatalf("Resolve(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}
