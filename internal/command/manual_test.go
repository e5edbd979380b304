package command

import (
	"strings"
	"testing"
)

func TestFormatExample(t *testing.T) {
	t.Parallel()

	if got := FormatExample(Example{"도움말"}); got != "도움말" {
		t.Fatalf("single line=%q", got)
	}
	got := FormatExample(Example{"$user: 생체부 알림", "봇: 작성해주세요.", "$user: 내용"})
	want := "$user: 생체부 알림\n╰ 봇: 작성해주세요.\n╰─ $user: 내용\n"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestStructuredManual(t *testing.T) {
	t.Parallel()

	c, err := NewStructured(StructuredOptions{
		Info: Info{
			Name: "공지", Icon: "📢", Description: "학생회 공지를 전송합니다.", Execute: noop,
			Channels: []Channel{{ID: "staff", Name: "학생회 임원방"}},
			Examples: []Example{{"$user: 생체부 알림", "봇: $user님, 작성해주세요."}},
		},
		Usage: noticeUsage + " <코드:str minLength=2 maxLength=4>",
	})
	if err != nil {
		t.Fatalf("NewStructured: %v", err)
	}
	got := c.Manual(map[string]string{"user": "홍길동"})
	for _, want := range []string{
		"🧩 '공지' 명령어 도움말\n——————————\n학생회 공지를 전송합니다.",
		"📌 입력 양식\n——\n<부서> 알림 <기수...> <코드>",
		"· 부서: 문자열",
		"· 기수: 54이상 56이하 숫자 (여러 개 입력 가능, 생략 허용)",
		"· 코드: 2글자 이상 4글자 이하 문자열",
		"📌 활성화된 방\n——\n· 학생회 임원방",
		"📌 예시\n——\n홍길동: 생체부 알림\n╰ 봇: 홍길동님, 작성해주세요.",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("manual missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "자동 실행 주기") {
		t.Fatalf("no cron section expected")
	}
}

func TestNaturalManual(t *testing.T) {
	t.Parallel()

	c, err := NewNatural(NaturalOptions{
		Info: Info{
			Name: "급식", Icon: "🍚", Description: "급식을 알려줍니다.", Execute: noop,
			CronJobs: []CronJob{{Cron: "0 0 * * *", Comment: "매일 자정에 그 날의 모든 메뉴 전송"}},
			Cron:     nopCron,
		},
		Query:      Query{"급식": Required()},
		Dictionary: mealDict,
		DateMode:   DateTime,
		Dates:      fixedDates(),
	})
	if err != nil {
		t.Fatalf("NewNatural: %v", err)
	}
	got := c.Manual(nil)
	for _, want := range []string{
		"📌 필수 포함 용어",
		"· 급식을 의미하는 용어 (ex. 급식, 식단, 밥, ...)",
		"· 날짜 및 시간을 의미하는 용어 (ex. 3월 14일, 내일 저녁, 4일 뒤 5시, ...)",
		"📌 자동 실행 주기\n——\n· 매일 자정에 그 날의 모든 메뉴 전송",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("manual missing %q:\n%s", want, got)
		}
	}
}
