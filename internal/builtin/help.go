package builtin

import (
	"context"
	"fmt"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/joshwoo0/gsa-bot/internal/command"
)

func newHelp(reg *command.Registry, out outlet) (command.Command, error) {
	return command.NewStructured(command.StructuredOptions{
		Info: command.Info{
			Name:        "도움말",
			Icon:        "❓",
			Description: "명령어에 대한 상세한 도움말을 표시합니다. 명령어 이름(또는 아이콘)을 생략할 경우, 대신 등록되어 있는 명령어 목록을 전부 출력합니다.",
			Examples: []command.Example{
				{"도움말"}, {"도움말 공지"}, {"도움말 급식"}, {"도움말 일정"}, {"도움말 📅"}, {"도움말 🍚"},
			},
			Execute: func(ctx context.Context, req *command.Request) error {
				name, ok := req.Args.String("명령어")
				if !ok {
					return out.reply(ctx, req, commandList(reg, req.Channel.ID))
				}
				if cmd, found := reg.Find(name); found {
					return req.Reply(ctx, cmd.Manual(map[string]string{"user": req.SenderName}))
				}
				msg := fmt.Sprintf("명령어 이름이 '%s'인 명령어는 존재하지 않습니다.", name)
				if s := suggest(reg, name); s != "" {
					msg += fmt.Sprintf("\n혹시 '%s' 명령어를 찾으셨나요?", s)
				}
				return req.Reply(ctx, warn(msg))
			},
		},
		Usage: "도움말 <명령어:str?>",
	})
}

// commandList lists the commands usable in channelID.
func commandList(reg *command.Registry, channelID string) string {
	lines := []string{"📦 명령어 목록", "———"}
	for _, cmd := range reg.Commands() {
		if visible(cmd, channelID) {
			lines = append(lines, fmt.Sprintf("· %s (%s)", cmd.Name(), cmd.Icon()))
		}
	}
	lines = append(lines, "\n\"도움말 <명령어>\"로\n세부 도움말을 확인하세요.")
	return strings.Join(lines, "\n")
}

func visible(cmd command.Command, channelID string) bool {
	chans := cmd.Channels()
	if len(chans) == 0 {
		return true
	}
	for _, ch := range chans {
		if ch.ID == channelID {
			return true
		}
	}
	return false
}

// suggest returns the registered name closest to name, or "".
func suggest(reg *command.Registry, name string) string {
	cmds := reg.Commands()
	names := make([]string, len(cmds))
	for i, c := range cmds {
		names[i] = c.Name()
	}
	if m := fuzzy.Find(name, names); len(m) > 0 {
		return m[0].Str
	}
	// "급식표" still suggests "급식".
	for _, n := range names {
		if len(fuzzy.Find(n, []string{name})) > 0 {
			return n
		}
	}
	return ""
}
