// Copyright 2025 The MapAudit Authors
// SPDX-License-Identifier: Apache-2.0

// Package textutils holds the string normalisation shared by the matchers
// and caches.
package textutils

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// LowerASCIIFolding lowercases s and strips its diacritics, so "Rīga" and
// "riga" compare equal.
func LowerASCIIFolding(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

	result, _, err := transform.String(t, s)
	if err != nil {
		return strings.ToLower(s)
	}

	return strings.ToLower(result)
}

// NormalizeSpaces trims s and collapses runs of whitespace into one space.
func NormalizeSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

var punctuation = regexp.MustCompile(`[^a-z0-9\s]+`)

// Tokens folds s and splits it into alphanumeric words.
func Tokens(s string) []string {
	return strings.Fields(punctuation.ReplaceAllString(LowerASCIIFolding(s), " "))
}

// Vectorize turns s into a bag of words.
func Vectorize(s string) map[string]int {
	v := make(map[string]int)
	for _, w := range Tokens(s) {
		v[w]++
	}

	return v
}

// CosineSimilarity compares two bags of words, 1 meaning the same words in
// the same proportions and 0 nothing in common.
func CosineSimilarity(v1, v2 map[string]int) float64 {
	dot := 0
	for k, v := range v1 {
		dot += v * v2[k]
	}

	mag1 := 0
	for _, v := range v1 {
		mag1 += v * v
	}

	mag2 := 0
	for _, v := range v2 {
		mag2 += v * v
	}

	if mag1 == 0 || mag2 == 0 {
		return 0
	}

	return float64(dot) / (math.Sqrt(float64(mag1)) * math.Sqrt(float64(mag2)))
}

// Similarity is the cosine similarity of the words of a and b.
func Similarity(a, b string) float64 {
	return CosineSimilarity(Vectorize(a), Vectorize(b))
}

// FormatInt formats n with comma thousands separators.
func FormatInt(n int64) string {
	s := strconv.FormatInt(n, 10)

	sign := ""
	if n < 0 {
		sign, s = "-", s[1:]
	}

	if len(s) <= 3 {
		return sign + s
	}

	var b strings.Builder

	b.WriteString(sign)

	head := len(s) % 3
	if head > 0 {
		b.WriteString(s[:head])
	}

	for i := head; i < len(s); i += 3 {
		if b.Len() > len(sign) {
			b.WriteByte(',')
		}

		b.WriteString(s[i : i+3])
	}

	return b.String()
}
