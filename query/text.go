package query

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MinTermLength is the minimum rune length of a kept term.
const MinTermLength = 2

// particles are Korean postpositions stripped from the end of a token,
// longest first.
var particles = []string{
	"에서는", "으로는", "에게서", "이라는", "까지는",
	"에서", "으로", "에게", "한테", "까지", "부터", "처럼", "보다", "이나", "라도", "과의", "와의", "에는", "이란",
	"은", "는", "이", "가", "을", "를", "의", "에", "로", "와", "과", "도", "만",
}

// stopWords are dropped from query terms. They carry request phrasing,
// not document identity.
var stopWords = map[string]bool{
	// english
	"the": true, "a": true, "an": true, "of": true, "and": true, "in": true,
	"to": true, "for": true, "on": true, "with": true, "is": true, "are": true,
	"me": true, "please": true, "find": true, "show": true, "about": true,
	// korean request phrasing
	"찾아줘": true, "찾아": true, "알려줘": true, "보여줘": true, "주세요": true,
	"해줘": true, "관련": true, "관련된": true, "대한": true, "대해": true,
	"어디": true, "무엇": true, "뭐야": true, "있어": true, "있나요": true,
}

// dateUnitPattern matches numeric tokens carrying a Korean date unit.
var dateUnitPattern = regexp.MustCompile(`^(\d+)(?:년|월|일)$`)

// Tokenize lowercases s and splits it on every rune that is neither a
// letter nor a digit. Empty tokens are dropped.
func Tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Normalize lowercases s and collapses every delimiter run into one space.
func Normalize(s string) string {
	return strings.Join(Tokenize(s), " ")
}

// StripParticle removes one trailing Korean particle from token when the
// remainder still has at least MinTermLength runes.
func StripParticle(token string) string {
	for _, p := range particles {
		if !strings.HasSuffix(token, p) {
			continue
		}
		stem := strings.TrimSuffix(token, p)
		if utf8.RuneCountInString(stem) >= MinTermLength {
			return stem
		}
	}
	return token
}

// IsStopWord reports whether token is dropped from query terms.
func IsStopWord(token string) bool {
	return stopWords[token]
}

// Terms returns the particle-stripped, stopword-free tokens of q that have at
// least MinTermLength runes, in order of appearance. Duplicates are kept.
func Terms(q string) []string {
	tokens := Tokenize(q)
	terms := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		tok = StripParticle(tok)
		if m := dateUnitPattern.FindStringSubmatch(tok); m != nil {
			tok = m[1]
		}
		if utf8.RuneCountInString(tok) < MinTermLength || IsStopWord(tok) {
			continue
		}
		terms = append(terms, tok)
	}
	return terms
}
