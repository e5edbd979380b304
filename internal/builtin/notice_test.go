package builtin

import (
	"strings"
	"testing"
	"time"

	"github.com/joshwoo0/gsa-bot/internal/command"
	"github.com/joshwoo0/gsa-bot/internal/storage"
	"github.com/joshwoo0/gsa-bot/internal/transport"
)

func TestNoticeBroadcast(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	if got := h.say("c1", "생체부 알림"); len(got) != 0 {
		t.Fatalf("notice accepted outside the staff channel: %+v", got)
	}

	prompt := h.say("staff", "생체부 알림")
	want := "ℹ️ 생체부로서 39, 40, 41기에 공지할 내용을 작성해주세요.\n'취소'라고 보내면 중단됩니다."
	if len(prompt) != 1 || prompt[0].text != want {
		t.Fatalf("prompt=%+v", prompt)
	}

	// Cohort 40 is only known from a seen channel named "40".
	ch := storage.ChannelRecord{ID: "chan40", Name: "40", LastSeen: time.Now()}
	if err := h.store.UpsertChannel(t.Context(), ch); err != nil {
		t.Fatal(err)
	}

	got := h.say("staff", "기숙사 3월 기상곡입니다")
	body := "📢 생체부 알림\n——\n기숙사 3월 기상곡입니다"
	wantSent := []sent{
		{"room39", body},
		{"staff", "✅ 39기에 생체부 공지가 전송되었습니다."},
		{"chan40", body},
		{"staff", "✅ 40기에 생체부 공지가 전송되었습니다."},
		{"staff", "⚠ 41기 톡방은 존재하지 않습니다."},
	}
	if len(got) != len(wantSent) {
		t.Fatalf("sent=%+v", got)
	}
	for i := range wantSent {
		if got[i] != wantSent[i] {
			t.Fatalf("sent[%d]=%+v want %+v", i, got[i], wantSent[i])
		}
	}
}

func TestNoticeCohortsAndCancel(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	prompt := h.say("staff", "홍보부 알림 40 41")
	if len(prompt) != 1 || !strings.HasPrefix(prompt[0].text, "ℹ️ 홍보부로서 40, 41기에") {
		t.Fatalf("prompt=%+v", prompt)
	}
	if got := h.say("staff", "취소"); len(got) != 1 || got[0].text != "✅ 취소되었습니다." {
		t.Fatalf("cancel=%+v", got)
	}
	// Out of range cohorts do not match the usage at all.
	if got := h.say("staff", "홍보부 알림 12"); len(got) != 0 {
		t.Fatalf("out of range cohort accepted: %+v", got)
	}
}

func TestNoticeRejectsUnknownDepartment(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	got := h.say("staff", "미술부 알림")
	want := "⚠ 미술부는 적절한 부서가 아닙니다.\n\n가능한 부서: " + strings.Join(DefaultDepartments, ", ")
	if len(got) != 1 || got[0].text != want {
		t.Fatalf("sent=%+v", got)
	}
	if h.disp.PendingLazy() != 0 {
		t.Fatalf("continuation armed for an invalid department")
	}
}

func TestNoticeInDebugMode(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.mode.SetDebug(true)

	h.say("dbg2", "정보부 알림")
	got := h.say("dbg2", "테스트 공지")
	if len(got) != 2 || got[0] != (sent{"dbg1", "📢 정보부 알림\n——\n테스트 공지"}) || got[1].channel != "dbg2" {
		t.Fatalf("sent=%+v", got)
	}
}

func TestNoticeBody(t *testing.T) {
	t.Parallel()

	req := &command.Request{
		Text: "첨부 확인 부탁드립니다",
		Attachments: []command.Attachment{
			{Kind: command.AttachmentFile, URL: "https://f/1", Name: "안내.pdf", Size: 1_500_000},
			{Kind: command.AttachmentPhoto, URL: "https://f/2", Size: 2048},
			{Kind: command.AttachmentVideo, URL: "https://f/3", Size: 3_000_000, Duration: 65 * time.Second},
		},
	}
	want := "📄 https://f/1 (안내.pdf, 1.5 MB)\n" +
		"🖼 https://f/2 (2.0 kB)\n" +
		"🎥 https://f/3 (1:05, 3.0 MB)\n" +
		"첨부 확인 부탁드립니다"
	if got := noticeBody(req); got != want {
		t.Fatalf("body=%q\nwant %q", got, want)
	}
	if got := clock(2*time.Hour + 3*time.Second); got != "2:00:03" {
		t.Fatalf("clock=%q", got)
	}
}

func TestNoticeAttachmentOnly(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	h.say("staff", "문예부 알림 39")
	got := h.say("staff", "", transport.Attachment{Kind: transport.AttachmentPhoto, URL: "https://p", Size: 1000})
	if len(got) != 2 || got[0] != (sent{"room39", "📢 문예부 알림\n——\n🖼 https://p (1.0 kB)"}) {
		t.Fatalf("sent=%+v", got)
	}
}
