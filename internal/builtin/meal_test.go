package builtin

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/joshwoo0/gsa-bot/internal/neis"
)

func lunchOnly(dishes ...string) neis.Meals {
	var m neis.Meals
	m.Dishes[neis.Lunch-1] = dishes
	return m
}

func TestMealAnswers(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.meals.days["2024-03-13"] = neis.Meals{Dishes: [3][]string{{"토스트"}, {"잡곡밥", "미역국"}, {"카레"}}}

	tests := []struct{ text, want string }{
		{"급식", "🍔 오늘 중식\n——\n· 잡곡밥\n· 미역국"},
		{"석식", "🍱 오늘 석식\n——\n· 카레"},
		{"아침밥", "🍳 오늘 조식\n——\n· 토스트"},
		{"내일 석식", "🍱 내일 석식\n——\n급식 정보가 없습니다."},
		{"오늘 밥", "🍚 오늘 급식\n——\n🍳 조식\n · 토스트\n\n🍔 중식\n · 잡곡밥\n · 미역국\n\n🍱 석식\n · 카레"},
	}
	for _, tt := range tests {
		got := h.say("c1", tt.text)
		if len(got) != 1 || got[0] != (sent{"c1", tt.want}) {
			t.Fatalf("%q: sent=%+v\nwant %q", tt.text, got, tt.want)
		}
	}

	if got := h.say("c1", "급식 좀 알려줘"); len(got) != 0 {
		t.Fatalf("extra words should not match: %+v", got)
	}
}

func TestMealSourceFailure(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.meals.err = errors.New("neis down")

	got := h.say("c1", "급식")
	if len(got) != 1 || got[0].text != "❌ 명령어를 처리하는 중 오류가 발생했습니다." {
		t.Fatalf("sent=%+v", got)
	}
}

func TestNextMeal(t *testing.T) {
	t.Parallel()

	wed := func(h, m int) time.Time { return time.Date(2024, 3, 13, h, m, 0, 0, seoul) }
	sat := func(h, m int) time.Time { return time.Date(2024, 3, 16, h, m, 0, 0, seoul) }
	tests := []struct {
		at      time.Time
		kind    neis.MealKind
		wantDay int
	}{
		{wed(8, 9), neis.Breakfast, 13},
		{wed(8, 10), neis.Lunch, 13},
		{sat(8, 30), neis.Breakfast, 16},
		{sat(8, 50), neis.Lunch, 16},
		{wed(13, 9), neis.Lunch, 13},
		{wed(13, 10), neis.Dinner, 13},
		{wed(19, 9), neis.Dinner, 13},
		{wed(19, 10), neis.Breakfast, 14},
	}
	for _, tt := range tests {
		kind, day := nextMeal(tt.at)
		if kind != tt.kind || day.Day() != tt.wantDay {
			t.Fatalf("nextMeal(%v)=%v %v", tt.at, kind, day)
		}
	}
}

func TestMealCron(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	cmd, ok := h.reg.Find("급식")
	if !ok {
		t.Fatalf("meal command not registered")
	}
	ctx := context.Background()
	midnight := time.Date(2024, 3, 14, 0, 0, 10, 0, seoul)

	// Nothing published for the day: the midnight run stays quiet.
	if err := cmd.ExecuteCron(ctx, 0, midnight); err != nil {
		t.Fatal(err)
	}
	if got := h.out.take(); len(got) != 0 {
		t.Fatalf("sent=%+v", got)
	}

	h.meals.days["2024-03-14"] = lunchOnly("비빔밥")
	if err := cmd.ExecuteCron(ctx, 0, midnight); err != nil {
		t.Fatal(err)
	}
	got := h.out.take()
	if len(got) != 1 || got[0].channel != "room39" || got[0].text != "🍚 내일 급식\n——\n🍳 조식\n급식 정보가 없습니다.\n\n🍔 중식\n · 비빔밥\n\n🍱 석식\n급식 정보가 없습니다." {
		t.Fatalf("sent=%+v", got)
	}

	if err := cmd.ExecuteCron(ctx, 2, midnight); err != nil {
		t.Fatal(err)
	}
	if got := h.out.take(); len(got) != 0 {
		t.Fatalf("dinner without a menu was sent: %+v", got)
	}

	h.mode.SetDebug(true)
	if err := cmd.ExecuteCron(ctx, 1, midnight); err != nil {
		t.Fatal(err)
	}
	if got := h.out.take(); len(got) != 1 || got[0] != (sent{"dbg1", "🍔 내일 중식\n——\n· 비빔밥"}) {
		t.Fatalf("sent=%+v", got)
	}
}
