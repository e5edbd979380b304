package datetime

import (
	"testing"
	"time"
)

var seoul = time.FixedZone("KST", 9*60*60)

// Wednesday.
func testParser() *Parser {
	now := time.Date(2024, 3, 13, 10, 0, 0, 0, seoul)
	return New(WithLocation(seoul), WithClock(func() time.Time { return now }))
}

func at(y int, m time.Month, d, h, min int) time.Time {
	return time.Date(y, m, d, h, min, 0, 0, seoul)
}

func TestExtractTime(t *testing.T) {
	t.Parallel()
	p := testParser()

	cases := []struct {
		in       string
		want     time.Time
		wantRest string
	}{
		{"오늘 밥 줘", at(2024, 3, 13, 0, 0), "밥 줘"},
		{"내일 저녁 급식", at(2024, 3, 14, 18, 0), "급식"},
		{"급식 3/29", at(2024, 3, 29, 0, 0), "급식"},
		{"금요일 아침", at(2024, 3, 15, 8, 0), ""},
		{"급식 다다음주 목요일", at(2024, 3, 28, 0, 0), "급식"},
		{"4일 뒤 5시", at(2024, 3, 17, 17, 0), ""},
		{"오후 3시 반에 보자", at(2024, 3, 13, 15, 30), "보자"},
		{"3월 14일 점심", at(2024, 3, 14, 12, 0), ""},
		{"그제 급식", at(2024, 3, 11, 0, 0), "급식"},
		{"2024-04-01 19:10", at(2024, 4, 1, 19, 10), ""},
		{"2주 전", at(2024, 2, 28, 0, 0), ""},
	}
	for _, tc := range cases {
		got, rest, ok := p.ExtractTime(tc.in, true)
		if !ok {
			t.Fatalf("ExtractTime(%q) failed", tc.in)
		}
		if !got.Equal(tc.want) {
			t.Fatalf("ExtractTime(%q)=%v want %v", tc.in, got, tc.want)
		}
		if rest != tc.wantRest {
			t.Fatalf("ExtractTime(%q) rest=%q want %q", tc.in, rest, tc.wantRest)
		}
	}
}

func TestExtractTimeKeepsMealWords(t *testing.T) {
	t.Parallel()
	p := testParser()

	if _, rest, ok := p.ExtractTime("저녁밥", true); ok || rest != "저녁밥" {
		t.Fatalf("저녁밥 must not be read as a time: ok=%v rest=%q", ok, rest)
	}
	got, rest, ok := p.ExtractTime("내일 점심밥", true)
	if !ok || !got.Equal(at(2024, 3, 14, 0, 0)) || rest != "점심밥" {
		t.Fatalf("got %v %q %v", got, rest, ok)
	}
}

func TestExtractTimeEnding(t *testing.T) {
	t.Parallel()
	p := testParser()

	_, rest, ok := p.ExtractTime("내일의 급식", false)
	if !ok || rest != "의 급식" {
		t.Fatalf("without ending: rest=%q ok=%v", rest, ok)
	}
	_, rest, ok = p.ExtractTime("내일의 급식", true)
	if !ok || rest != "급식" {
		t.Fatalf("with ending: rest=%q ok=%v", rest, ok)
	}
}

func TestParseTime(t *testing.T) {
	t.Parallel()
	p := testParser()

	if _, ok := p.ParseTime("내일 밥"); ok {
		t.Fatalf("trailing text must fail")
	}
	if _, ok := p.ParseTime("2월 30일"); ok {
		t.Fatalf("invalid calendar date must fail")
	}
	got, ok := p.ParseTime("모레")
	if !ok || !got.Equal(at(2024, 3, 15, 0, 0)) {
		t.Fatalf("모레: %v %v", got, ok)
	}
}

func TestExtractSpan(t *testing.T) {
	t.Parallel()
	p := testParser()
	now := p.Now()

	cases := []struct {
		in       string
		want     Span
		wantRest string
	}{
		{"다음 주까지 학교 행사", Span{now, endOfDay(at(2024, 3, 24, 0, 0))}, "학교 행사"},
		{"3월 1일부터 3월 5일까지 학사일정", Span{at(2024, 3, 1, 0, 0), endOfDay(at(2024, 3, 5, 0, 0))}, "학사일정"},
		{"내일부터 모레 저녁까지", Span{at(2024, 3, 14, 0, 0), at(2024, 3, 15, 18, 0)}, ""},
		{"행사 3월 1일", Span{at(2024, 3, 1, 0, 0), endOfDay(at(2024, 3, 1, 0, 0))}, "행사"},
		{"이번 주 일정", Span{at(2024, 3, 11, 0, 0), endOfDay(at(2024, 3, 17, 0, 0))}, "일정"},
		{"3/20 ~ 3/22 일정", Span{at(2024, 3, 20, 0, 0), endOfDay(at(2024, 3, 22, 0, 0))}, "일정"},
	}
	for _, tc := range cases {
		got, rest, ok := p.ExtractSpan(tc.in, true)
		if !ok {
			t.Fatalf("ExtractSpan(%q) failed", tc.in)
		}
		if !got.From.Equal(tc.want.From) || !got.To.Equal(tc.want.To) {
			t.Fatalf("ExtractSpan(%q)=%v..%v want %v..%v", tc.in, got.From, got.To, tc.want.From, tc.want.To)
		}
		if rest != tc.wantRest {
			t.Fatalf("ExtractSpan(%q) rest=%q want %q", tc.in, rest, tc.wantRest)
		}
	}
}

func TestExtractSpanRejectsBackwards(t *testing.T) {
	t.Parallel()
	p := testParser()

	if _, ok := p.ParseSpan("3월 5일부터 3월 1일까지"); ok {
		t.Fatalf("reversed span must fail")
	}
	if _, ok := p.ParseSpan("어제까지"); ok {
		t.Fatalf("span ending in the past must fail")
	}
}

func TestSpanContains(t *testing.T) {
	t.Parallel()

	s := Span{From: at(2024, 3, 1, 0, 0), To: endOfDay(at(2024, 3, 1, 0, 0))}
	if !s.Contains(at(2024, 3, 1, 23, 59)) || s.Contains(at(2024, 3, 2, 0, 0)) {
		t.Fatalf("Contains mismatch")
	}
}

func TestHumanize(t *testing.T) {
	t.Parallel()
	p := testParser()

	tests := []struct {
		in   time.Time
		want string
	}{
		{at(2024, 3, 13, 23, 59), "오늘"},
		{at(2024, 3, 14, 0, 0), "내일"},
		{at(2024, 3, 15, 12, 0), "모레"},
		{at(2024, 3, 11, 8, 0), "그제"},
		{at(2024, 3, 18, 0, 0), "3월 18일 (월)"},
	}
	for _, tt := range tests {
		if got := p.Humanize(tt.in); got != tt.want {
			t.Fatalf("Humanize(%v)=%q, want %q", tt.in, got, tt.want)
		}
	}
}
