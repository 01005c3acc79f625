package domain

import (
	"strings"
	"unicode"
)

// NormalizeText prepares Turkish message text for routing:
//   - trims leading/trailing whitespace
//   - lowercases with Turkish casing rules (İ→i, I→ı)
//   - compresses runs of whitespace into single spaces
//
// Diacritics are preserved; use FoldText when a diacritic-insensitive
// comparison is needed.
func NormalizeText(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(text))
	prevSpace := false
	for _, r := range text {
		switch {
		case unicode.IsSpace(r):
			if prevSpace {
				continue
			}
			prevSpace = true
			b.WriteRune(' ')
		default:
			prevSpace = false
			b.WriteRune(lowerTurkish(r))
		}
	}
	return b.String()
}

// FoldText maps Turkish diacritics to their ASCII base letters after
// normalizing. "Değiştir" → "degistir". Keyword tables are stored folded,
// so matching is insensitive to how the user typed accents.
func FoldText(text string) string {
	text = NormalizeText(text)
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		b.WriteRune(foldTurkish(r))
	}
	return b.String()
}

// Tokenize splits normalized text into word tokens on unicode boundaries.
// Digits stay attached to letters ("4g" is one token).
func Tokenize(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func lowerTurkish(r rune) rune {
	switch r {
	case 'İ':
		return 'i'
	case 'I':
		return 'ı'
	}
	return unicode.ToLower(r)
}

func foldTurkish(r rune) rune {
	switch r {
	case 'ç':
		return 'c'
	case 'ğ':
		return 'g'
	case 'ı':
		return 'i'
	case 'ö':
		return 'o'
	case 'ş':
		return 's'
	case 'ü':
		return 'u'
	case 'â':
		return 'a'
	case 'î':
		return 'i'
	case 'û':
		return 'u'
	}
	return r
}
