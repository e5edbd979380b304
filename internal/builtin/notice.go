package builtin

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/joshwoo0/gsa-bot/internal/command"
	"github.com/joshwoo0/gsa-bot/pkg/datetime"
	"github.com/joshwoo0/gsa-bot/pkg/hangul"
	logx "github.com/joshwoo0/gsa-bot/pkg/logx"
)

const noticeIcon = "📢"

type noticeDeps struct {
	staff       string
	departments []string
	offset      int
	dates       *datetime.Parser
	rooms       *Rooms
	out         outlet
	log         logx.Logger
}

// newNotice builds the two-step notice command: the first message names
// the department and cohorts, the next one from the same sender is the
// notice itself.
func newNotice(d noticeDeps) (command.Command, error) {
	senior := d.dates.Now().Year() - 2000 + d.offset
	cohorts := func(args command.Args) []int {
		if ns := args.Ints("기수"); len(ns) > 0 {
			return ns
		}
		return []int{senior, senior + 1, senior + 2}
	}

	return command.NewStructured(command.StructuredOptions{
		Info: command.Info{
			Name: "공지",
			Icon: noticeIcon,
			Description: "학생회 공지를 전송합니다. 기수를 지정하지 않으면 재학 중인 기수 톡방에 전송됩니다.\n" +
				"먼저 입력 양식에 맞춰 명령어를 작성해 전송한 뒤, 공지사항(메시지, 사진, 영상, 파일)을 작성해 한 번 더 전송하세요.\n" +
				"공지사항 내용 대신 메시지로 '취소'라고 보낼 경우 공지 명령어가 중단됩니다.\n" +
				"<부서>에는 다음과 같은 문자열이 들어갑니다. " + strings.Join(d.departments, ", "),
			Channels: []command.Channel{{ID: d.staff}},
			Examples: []command.Example{
				{"$user: 생체부 알림", fmt.Sprintf("봇: %d, %d, %d기에 생체부로서 공지할 내용을 작성해주세요.", senior, senior+1, senior+2), "$user: 기숙사 3월 기상곡입니다 ..."},
				{"$user: 정책부 알림 " + fmt.Sprint(senior), fmt.Sprintf("봇: %d기에 정책부로서 공지할 내용을 작성해주세요.", senior), "$user: 정책부에서 야간자율학습 휴대폰 사용 관련 문의를 ..."},
				{fmt.Sprintf("$user: 홍보부 알림 %d %d", senior+1, senior+2), fmt.Sprintf("봇: %d, %d기에 홍보부로서 공지할 내용을 작성해주세요.", senior+1, senior+2), "$user: 취소", "봇: 취소되었습니다."},
			},
			Execute: func(ctx context.Context, req *command.Request) error {
				dept, _ := req.Args.String("부서")
				if !slices.Contains(d.departments, dept) {
					msg := fmt.Sprintf("%s 적절한 부서가 아닙니다.\n\n가능한 부서: %s",
						hangul.Josa(dept, "은/는"), strings.Join(d.departments, ", "))
					if err := req.Reply(ctx, warn(msg)); err != nil {
						return err
					}
					return command.ErrSkipLazy
				}
				return req.Reply(ctx, info(fmt.Sprintf("%s서 %s기에 공지할 내용을 작성해주세요.\n'취소'라고 보내면 중단됩니다.",
					hangul.Josa(dept, "으로/로"), joinInts(cohorts(req.Args), ", "))))
			},
			Lazy: func(ctx context.Context, req, prev *command.Request) error {
				if strings.TrimSpace(req.Text) == "취소" && len(req.Attachments) == 0 {
					return req.Reply(ctx, success("취소되었습니다."))
				}
				dept, _ := prev.Args.String("부서")
				msg := fmt.Sprintf("%s %s 알림\n%s\n%s", noticeIcon, dept, rule, noticeBody(req))

				if d.out.mode.Debug() {
					return d.sendDebug(ctx, req, dept, msg)
				}
				for _, n := range cohorts(prev.Args) {
					id, ok := d.rooms.Lookup(ctx, n)
					if !ok {
						_ = req.Reply(ctx, warn(fmt.Sprintf("%d기 톡방은 존재하지 않습니다.", n)))
						continue
					}
					if err := d.out.sender.SendText(ctx, id, msg); err != nil {
						d.log.Warn("notice send failed", logx.Int("cohort", n), logx.String("channel_id", id), logx.Err(err))
						_ = req.Reply(ctx, warn(fmt.Sprintf("%d기에 %s 공지 전송에 실패했습니다.\n%v", n, dept, err)))
						continue
					}
					_ = req.Reply(ctx, success(fmt.Sprintf("%d기에 %s 공지가 전송되었습니다.", n, dept)))
				}
				return nil
			},
		},
		Usage: fmt.Sprintf("<부서:str> 알림 <기수:int[]? min=%d max=%d>", senior, senior+2),
	})
}

// sendDebug delivers a notice written in one debug channel to another one.
func (d noticeDeps) sendDebug(ctx context.Context, req *command.Request, dept, msg string) error {
	var target string
	for _, id := range d.out.mode.DebugChannels() {
		if id != req.Channel.ID {
			target = id
			break
		}
	}
	if target == "" {
		return req.Reply(ctx, warn("공지를 받을 다른 디버그 방이 없습니다."))
	}
	if err := d.out.sender.SendText(ctx, target, msg); err != nil {
		return req.Reply(ctx, warn(fmt.Sprintf("%s에 %s 공지 전송에 실패했습니다.\n%v", target, dept, err)))
	}
	return req.Reply(ctx, success(fmt.Sprintf("%s에 %s 공지가 전송되었습니다.", target, dept)))
}

// noticeBody renders the attachments of req, one per line, followed by its text.
func noticeBody(req *command.Request) string {
	var lines []string
	for _, a := range req.Attachments {
		size := humanize.Bytes(uint64(max(a.Size, 0)))
		switch a.Kind {
		case command.AttachmentFile:
			lines = append(lines, fmt.Sprintf("📄 %s (%s, %s)", a.URL, a.Name, size))
		case command.AttachmentPhoto:
			lines = append(lines, fmt.Sprintf("🖼 %s (%s)", a.URL, size))
		case command.AttachmentVideo:
			lines = append(lines, fmt.Sprintf("🎥 %s (%s, %s)", a.URL, clock(a.Duration), size))
		}
	}
	if text := strings.TrimSpace(req.Text); text != "" {
		lines = append(lines, text)
	}
	return strings.Join(lines, "\n")
}

// clock formats d as m:ss, or h:mm:ss from an hour up.
func clock(d time.Duration) string {
	s := int(d.Round(time.Second) / time.Second)
	if s >= 3600 {
		return fmt.Sprintf("%d:%02d:%02d", s/3600, s%3600/60, s%60)
	}
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}
