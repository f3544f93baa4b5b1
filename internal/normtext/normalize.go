// Package normtext canonicalizes free-text budget descriptions for
// rule matching: accent stripping, casing, punctuation and whitespace
// normalization, all deterministic and allocation-light.
package normtext

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ratioPattern matches mortar-mix ratio notation (1:3, 1:2:3) which must
// survive punctuation stripping intact.
var ratioPattern = regexp.MustCompile(`\d+:\d+(?::\d+)?`)

// Compatibility decomposition so superscripts fold to plain digits
// ("m³" -> "m3") alongside accent stripping.
var deaccent = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFKC)

// decimalPattern matches dot decimals ("3.5") so they can survive
// punctuation stripping when requested.
var decimalPattern = regexp.MustCompile(`\d+\.\d+`)

// Options controls the optional steps of Normalize.
type Options struct {
	// StripPunct replaces punctuation with spaces. Ratio notation is
	// protected and restored.
	StripPunct bool
	// KeepDecimals additionally protects dot decimals from the
	// punctuation pass.
	KeepDecimals bool
}

// Normalize canonicalizes text for matching: trims, strips accents,
// lowercases, strips punctuation (ratios preserved) and collapses
// whitespace. It never fails and is idempotent.
func Normalize(s string) string {
	return NormalizeWith(s, Options{StripPunct: true})
}

// NormalizeWith is Normalize with caller-controlled options.
func NormalizeWith(s string, opts Options) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	if out, _, err := transform.String(deaccent, s); err == nil {
		s = out
	}
	s = strings.ToLower(s)

	if opts.StripPunct {
		if opts.KeepDecimals {
			s = stripPunct(s, decimalPattern)
		} else {
			s = stripPunct(s)
		}
	}

	return collapseSpaces(s)
}

// stripPunct replaces every rune that is not a letter, digit or space
// with a space. Matches of the protect patterns are substituted with
// placeholder tokens first and restored afterwards so their internal
// punctuation survives.
func stripPunct(s string, protect ...*regexp.Regexp) string {
	var traces []string
	for _, p := range append([]*regexp.Regexp{ratioPattern}, protect...) {
		traces = append(traces, p.FindAllString(s, -1)...)
	}
	for i, tr := range traces {
		s = strings.Replace(s, tr, tracePlaceholder(i), 1)
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	s = b.String()

	for i, tr := range traces {
		s = strings.Replace(s, tracePlaceholder(i), tr, 1)
	}
	return s
}

func tracePlaceholder(i int) string {
	return fmt.Sprintf("qztrace%dqz", i)
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
