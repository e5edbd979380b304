package hangul

import "testing"

func TestJosa(t *testing.T) {
	t.Parallel()

	cases := []struct {
		word, pair, want string
	}{
		{"급식", "을/를", "급식을"},
		{"일정", "을/를", "일정을"},
		{"기간", "은/는", "기간은"},
		{"부서", "은/는", "부서는"},
		{"생체부", "으로/로", "생체부로"},
		{"학생회", "으로/로", "학생회로"},
		{"총무", "이/가", "총무가"},
		{"서울", "으로/로", "서울로"},
		{"부엌", "으로/로", "부엌으로"},
		{"54", "이/가", "54가"},
		{"41", "을/를", "41을"},
		{"abc", "을/를", "abc를"},
	}
	for _, tc := range cases {
		if got := Josa(tc.word, tc.pair); got != tc.want {
			t.Fatalf("Josa(%q, %q)=%q want %q", tc.word, tc.pair, got, tc.want)
		}
	}
}

func TestHasBatchim(t *testing.T) {
	t.Parallel()

	if !HasBatchim("밥") {
		t.Fatalf("밥 should have a final consonant")
	}
	if HasBatchim("저녁 ") == false {
		t.Fatalf("trailing space should be ignored")
	}
	if HasBatchim("메뉴") {
		t.Fatalf("메뉴 has no final consonant")
	}
	if _, ok := Final("!"); ok {
		t.Fatalf("punctuation is not a syllable")
	}
}
