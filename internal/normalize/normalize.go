// Package normalize provides utilities for normalizing texture names, slugs, and language tags.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Supported catalog languages. Names are stored in both; candidates may
// arrive tagged with either.
const (
	LangEnglish = "en"
	LangRussian = "ru"
)

var caseFolder = cases.Fold()

// Name normalizes a texture name for comparison: Unicode case folding
// plus whitespace collapse. Two names that normalize equal are treated
// as the same real-world material by the exact-match path.
func Name(raw string) string {
	folded := caseFolder.String(raw)
	return strings.Join(strings.Fields(folded), " ")
}

// Language canonicalizes a BCP 47 language tag to its base language
// ("en-US" -> "en"). Unknown or empty tags fall back to English.
func Language(tag string) string {
	if tag == "" {
		return LangEnglish
	}
	t, err := language.Parse(tag)
	if err != nil {
		return LangEnglish
	}
	base, _ := t.Base()
	return base.String()
}

// IdempotencyKey builds the deterministic key used to detect duplicate
// texture creation: normalized name plus canonical language tag.
func IdempotencyKey(rawName, languageTag string) string {
	return Name(rawName) + "|" + Language(languageTag)
}

// Slug converts a display name into a URL-safe slug: lowercase ASCII
// letters and digits with hyphens between words. Non-alphanumeric runs
// collapse to a single hyphen.
func Slug(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	lastHyphen := true // suppress leading hyphen
	for _, r := range strings.ToLower(name) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
