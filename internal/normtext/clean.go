package normtext

import (
	"regexp"
	"strings"
)

// DefaultStopwords are PT-BR stopwords common in budget line descriptions.
var DefaultStopwords = map[string]struct{}{
	"de": {}, "da": {}, "do": {}, "das": {}, "dos": {},
	"em": {}, "no": {}, "na": {}, "nos": {}, "nas": {},
	"a": {}, "o": {}, "e": {}, "para": {}, "com": {}, "sem": {},
	"por": {}, "ao": {}, "aos": {}, "um": {}, "uma": {},
	"uns": {}, "umas": {}, "ou": {}, "como": {}, "mais": {}, "menos": {},
}

var (
	letterThenDigit = regexp.MustCompile(`(\pL)(\d)`)
	digitThenLetter = regexp.MustCompile(`(\d)(\pL)`)
	commaDecimal    = regexp.MustCompile(`\b(\d+),(\d+)\b`)
)

// SplitStickyNumbers separates numbers glued to letters ("fck30" ->
// "fck 30", "30mpa" -> "30 mpa"). Ratio notation has no letters and is
// unaffected.
func SplitStickyNumbers(s string) string {
	s = letterThenDigit.ReplaceAllString(s, "$1 $2")
	return digitThenLetter.ReplaceAllString(s, "$1 $2")
}

// NormalizeDecimals converts comma decimals to dot decimals ("3,5" ->
// "3.5") and reports whether any conversion happened.
func NormalizeDecimals(s string) (string, bool) {
	if !commaDecimal.MatchString(s) {
		return s, false
	}
	return commaDecimal.ReplaceAllString(s, "$1.$2"), true
}

// RemoveStopwords drops words present in the given set. A nil set uses
// DefaultStopwords.
func RemoveStopwords(s string, stopwords map[string]struct{}) string {
	if stopwords == nil {
		stopwords = DefaultStopwords
	}
	words := strings.Fields(s)
	kept := words[:0]
	for _, w := range words {
		if _, ok := stopwords[strings.ToLower(w)]; !ok {
			kept = append(kept, w)
		}
	}
	return strings.Join(kept, " ")
}

// CleanConfig selects which cleanup rules CleanDescriptions applies.
type CleanConfig struct {
	SplitNumbers    bool
	Decimals        bool
	StripAccents    bool
	StripPunct      bool
	RemoveStopwords bool
	Stopwords       map[string]struct{} // nil = DefaultStopwords
}

// DefaultCleanConfig mirrors the normalization defaults used by the
// interactive pipeline: everything on except stopword removal.
func DefaultCleanConfig() CleanConfig {
	return CleanConfig{
		SplitNumbers: true,
		Decimals:     true,
		StripAccents: true,
		StripPunct:   true,
	}
}

// CleanStats counts how many descriptions each rule changed.
type CleanStats struct {
	StickyNumbers int
	Decimals      int
	Accents       int
	Punctuation   int
	Stopwords     int
	Reverted      int
}

// CleanDescriptions applies the configured rules to every description
// and returns the cleaned values plus per-rule change counts. A
// description that ends up empty is reverted to its basic normalized
// form rather than being zeroed out.
func CleanDescriptions(descriptions []string, cfg CleanConfig) ([]string, CleanStats) {
	out := make([]string, len(descriptions))
	var stats CleanStats

	for i, original := range descriptions {
		cur := original

		if cfg.SplitNumbers {
			if next := SplitStickyNumbers(cur); next != cur {
				stats.StickyNumbers++
				cur = next
			}
		}
		if cfg.Decimals {
			var changed bool
			cur, changed = NormalizeDecimals(cur)
			if changed {
				stats.Decimals++
			}
		}
		if cfg.StripAccents {
			next := NormalizeWith(cur, Options{StripPunct: false})
			if next != strings.ToLower(cur) {
				stats.Accents++
			}
			cur = next
		}
		if cfg.StripPunct {
			if next := NormalizeWith(cur, Options{StripPunct: true, KeepDecimals: cfg.Decimals}); next != cur {
				stats.Punctuation++
				cur = next
			}
		}
		if cfg.RemoveStopwords {
			if next := RemoveStopwords(cur, cfg.Stopwords); next != cur {
				stats.Stopwords++
				cur = next
			}
		}

		cur = collapseSpaces(cur)
		if cur == "" && strings.TrimSpace(original) != "" {
			// Over-aggressive cleanup zeroed the text; keep the basic form.
			cur = Normalize(original)
			stats.Reverted++
		}
		out[i] = cur
	}

	return out, stats
}
