// Package hangul picks Korean postpositional particles (josa) for a word.
//
// The particle depends on whether the last syllable of the word ends with a
// final consonant (batchim). Digits are read the way they are spoken
// (1 = 일, 2 = 이, ...) and latin letters are treated as vowel-final.
package hangul

import (
	"strings"
	"unicode/utf8"
)

const (
	syllableFirst = 0xAC00
	syllableLast  = 0xD7A3
	finalCount    = 28
	finalRieul    = 8
)

// Final reports the final consonant index (0 = none) of the last character of s.
// The second result is false when the character is neither a Hangul syllable nor a digit.
func Final(s string) (int, bool) {
	s = strings.TrimRight(s, " \t\n)]}'\"")
	r, _ := utf8.DecodeLastRuneInString(s)
	switch {
	case r >= syllableFirst && r <= syllableLast:
		return int(r-syllableFirst) % finalCount, true
	case r >= '0' && r <= '9':
		// 영 일 이 삼 사 오 육 칠 팔 구
		return [...]int{21, 8, 0, 16, 0, 0, 1, 8, 8, 0}[r-'0'], true
	default:
		return 0, false
	}
}

// HasBatchim reports whether the last syllable of s ends with a final consonant.
func HasBatchim(s string) bool {
	f, _ := Final(s)
	return f != 0
}

// Particle returns the particle from pair ("을/를", "은/는", "이/가", "과/와",
// "으로/로") that fits word, without the word itself.
func Particle(word, pair string) string {
	withFinal, withoutFinal, ok := strings.Cut(pair, "/")
	if !ok {
		return pair
	}
	f, _ := Final(word)
	if withFinal == "으로" {
		// ㄹ-final words take 로 like vowel-final ones.
		if f == 0 || f == finalRieul {
			return withoutFinal
		}
		return withFinal
	}
	if f != 0 {
		return withFinal
	}
	return withoutFinal
}

// Josa returns word followed by the fitting particle from pair.
func Josa(word, pair string) string { return word + Particle(word, pair) }
