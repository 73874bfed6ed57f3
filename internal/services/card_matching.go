package services

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	numberOfSuffix = regexp.MustCompile(`(?i)\s+of\s+\d+\s*$`)
	// OP01-001, ST10-012, P-001, LOB-EN005, LOB-005
	numberSetPrefix = regexp.MustCompile(`^[A-Za-z]{1,6}\d{0,3}-(?:[A-Za-z]{2})?([A-Za-z]?\d+[A-Za-z]?)$`)

	nameVariantSuffix = regexp.MustCompile(`\s+(ex|gx|v|vmax|vstar)$`)
	nameVariantPrefix = regexp.MustCompile(`^(mega|m)\s+`)
	nonAlnum          = regexp.MustCompile(`[^a-z0-9]+`)
	leadingDigits     = regexp.MustCompile(`\d+`)
)

// diacriticFolder strips combining marks so "Flabébé" compares equal to "Flabebe".
var diacriticFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// CleanCollectorNumber reduces a raw collector number as printed on the card
// ("#025", "198/165", "25 of 102", "OP01-001") to the bare number.
// Never fails: anything unrecognized comes back trimmed.
func CleanCollectorNumber(raw string) string {
	n := strings.TrimSpace(raw)
	n = strings.TrimPrefix(n, "#")
	n = strings.TrimSpace(n)

	if idx := strings.Index(n, "/"); idx > 0 {
		n = n[:idx]
	}
	n = numberOfSuffix.ReplaceAllString(n, "")
	n = strings.TrimSpace(n)

	if m := numberSetPrefix.FindStringSubmatch(n); m != nil {
		n = m[1]
	}
	return strings.TrimSpace(n)
}

// NumberVariants returns the spellings a catalog might use for a collector
// number: as given, zero-padded to width, and zero-stripped. Order is preserved
// and duplicates removed. width <= 0 disables padding.
func NumberVariants(number string, width int) []string {
	number = strings.TrimSpace(number)
	if number == "" {
		return nil
	}

	// Split "025a" into "025" + "a" so padding only touches the digits
	digitEnd := 0
	for digitEnd < len(number) && number[digitEnd] >= '0' && number[digitEnd] <= '9' {
		digitEnd++
	}

	variants := []string{number}
	if digitEnd > 0 {
		digits, suffix := number[:digitEnd], number[digitEnd:]
		if width > 0 && len(digits) < width {
			variants = append(variants, strings.Repeat("0", width-len(digits))+digits+suffix)
		}
		stripped := strings.TrimLeft(digits, "0")
		if stripped == "" {
			stripped = "0"
		}
		variants = append(variants, stripped+suffix)
	}

	seen := make(map[string]bool, len(variants))
	out := variants[:0]
	for _, v := range variants {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

// ParseCollectorNumber extracts the first run of digits ("TG05" -> 5).
func ParseCollectorNumber(number string) (int, bool) {
	digits := leadingDigits.FindString(number)
	if digits == "" {
		return 0, false
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return n, true
}

// foldName lowercases, strips diacritics and collapses punctuation to single spaces
func foldName(s string) string {
	folded, _, err := transform.String(diacriticFolder, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(folded)
	folded = strings.ReplaceAll(folded, "'", "")
	folded = strings.ReplaceAll(folded, "’", "")
	folded = nonAlnum.ReplaceAllString(folded, " ")
	return strings.TrimSpace(folded)
}

// NormalizeSetName strips everything but lowercase letters and digits
func NormalizeSetName(s string) string {
	return strings.ReplaceAll(foldName(s), " ", "")
}

// stripVariantTokens removes trailing ex/gx/v/vmax/vstar and a leading mega/m
func stripVariantTokens(folded string) string {
	prev := ""
	for folded != prev {
		prev = folded
		folded = nameVariantSuffix.ReplaceAllString(folded, "")
		folded = nameVariantPrefix.ReplaceAllString(folded, "")
	}
	return strings.TrimSpace(folded)
}

func containsEither(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

func significantWords(folded string) []string {
	var words []string
	for _, w := range strings.Fields(folded) {
		if len(w) >= 3 {
			words = append(words, w)
		}
	}
	return words
}

// NamesMatch is a tolerant equality for card names. AI readings of foil and
// full-art cards are often right about the creature and wrong about the suffix
// (or the reverse), so exact matching rejects too many true positives.
// The first rule that matches wins:
//  1. case/punctuation/diacritic-insensitive equality
//  2. substring containment either direction
//  3. containment after stripping variant tokens (ex, gx, v, vmax, vstar, mega, m)
//  4. at least half of the smaller set of 3+ letter words overlap by substring
func NamesMatch(a, b string) bool {
	fa, fb := foldName(a), foldName(b)
	if fa == "" || fb == "" {
		return false
	}

	if strings.ReplaceAll(fa, " ", "") == strings.ReplaceAll(fb, " ", "") {
		return true
	}

	if containsEither(fa, fb) {
		return true
	}

	if containsEither(stripVariantTokens(fa), stripVariantTokens(fb)) {
		return true
	}

	wa, wb := significantWords(fa), significantWords(fb)
	if len(wa) == 0 || len(wb) == 0 {
		return false
	}
	smaller, larger := wa, wb
	if len(wb) < len(wa) {
		smaller, larger = wb, wa
	}
	overlap := 0
	for _, s := range smaller {
		for _, l := range larger {
			if strings.Contains(l, s) || strings.Contains(s, l) {
				overlap++
				break
			}
		}
	}
	return overlap*2 >= len(smaller)
}

// DropLastWord removes the final word of a name ("Dark Magician Girl" ->
// "Dark Magician"). Returns "" when there is only one word.
func DropLastWord(name string) string {
	words := strings.Fields(name)
	if len(words) < 2 {
		return ""
	}
	return strings.Join(words[:len(words)-1], " ")
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
