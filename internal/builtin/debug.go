package builtin

import (
	"context"
	"encoding/json"

	"github.com/joshwoo0/gsa-bot/internal/bot"
	"github.com/joshwoo0/gsa-bot/internal/command"
)

func newDebug(mode *bot.Mode) (command.Command, error) {
	var chans []command.Channel
	for _, id := range mode.DebugChannels() {
		chans = append(chans, command.Channel{ID: id})
	}
	return command.NewStructured(command.StructuredOptions{
		Info: command.Info{
			Name:        "디버그",
			Icon:        "🔧",
			Description: "디버그 모드를 실행하거나 종료합니다. 디버그 모드를 실행하면 테스트방을 제외한 모든 명령어의 사용이 제한됩니다.",
			Channels:    chans,
			Examples:    []command.Example{{"디버그 시작"}, {"디버그 종료"}, {"디버그"}, {"디버그 객체"}},
			Execute: func(ctx context.Context, req *command.Request) error {
				sw, _ := req.Args.String("스위치")
				switch sw {
				case "시작":
					mode.SetDebug(true)
				case "종료":
					mode.SetDebug(false)
				case "":
					mode.ToggleDebug()
				case "객체":
					return req.Reply(ctx, info(describe(req)))
				default:
					return req.Reply(ctx, warn("올바른 스위치를 입력해주세요."))
				}
				if mode.Debug() {
					return req.Reply(ctx, success("디버그 모드가 시작되었습니다."))
				}
				return req.Reply(ctx, success("디버그 모드가 종료되었습니다."))
			},
		},
		Usage: "디버그 <스위치:str?>",
	})
}

// describe dumps what the bot knows about the request's channel and sender.
func describe(req *command.Request) string {
	b, err := json.MarshalIndent(struct {
		RequestID   string               `json:"request_id"`
		Channel     command.Channel      `json:"channel"`
		SenderID    string               `json:"sender_id"`
		SenderName  string               `json:"sender_name"`
		Text        string               `json:"text"`
		Attachments []command.Attachment `json:"attachments,omitempty"`
	}{req.ID, req.Channel, req.SenderID, req.SenderName, req.Text, req.Attachments}, "", "  ")
	if err != nil {
		return err.Error()
	}
	return string(b)
}
