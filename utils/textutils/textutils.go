// Copyright 2025 The POIBench Authors
// SPDX-License-Identifier: Apache-2.0

// Package textutils canonicalizes place names and addresses so records coming
// from different providers can be compared token by token.
package textutils

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ligatures are letters that do not decompose into a base letter plus marks.
var ligatures = strings.NewReplacer(
	"ß", "ss",
	"ẞ", "ss",
	"æ", "ae",
	"Æ", "ae",
	"œ", "oe",
	"Œ", "oe",
	"ø", "o",
	"Ø", "o",
	"ł", "l",
	"Ł", "l",
	"đ", "d",
	"Đ", "d",
	"þ", "th",
	"Þ", "th",
)

// LowerASCIIFolding removes accents, lowercases, and trims spaces.
func LowerASCIIFolding(s string) string {
	s, _, _ = transform.String(
		transform.Chain(
			norm.NFD,
			runes.Remove(runes.In(unicode.Mn)),
			norm.NFC,
		),
		strings.TrimSpace(strings.ToLower(s)),
	)

	return s
}

// apostrophes are dropped instead of split on, so "Joe's" and "Joes" agree.
var apostrophes = strings.NewReplacer("'", "", "’", "", "‘", "", "ʼ", "")

// Normalize drops apostrophes, lowercases s, transliterates ligatures, strips diacritics, replaces
// every rune that is not a letter or a digit with a space and collapses runs of
// whitespace. Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	s = LowerASCIIFolding(ligatures.Replace(apostrophes.Replace(s)))

	s = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}

		return ' '
	}, s)

	return strings.Join(strings.Fields(s), " ")
}

// Tokens returns the whitespace separated tokens of Normalize(s).
func Tokens(s string) []string {
	return strings.Fields(Normalize(s))
}

// Similarity returns 1 - levenshtein(a, b) / max(len(a), len(b)), measured in
// runes. Two empty strings are identical; one empty string scores 0.
func Similarity(a, b string) float64 {
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if longest == 0 {
		return 1
	}

	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}
