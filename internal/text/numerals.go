package text

import (
	"strings"

	"golang.org/x/text/language"
)

// numeralZero maps a base language to the code point of its native digit
// zero. Digits one through nine follow contiguously in every listed script.
var numeralZero = map[string]rune{
	"hi": '०', // Devanagari
	"mr": '०', // Devanagari
	"bn": '০', // Bengali
	"ta": '௦', // Tamil
	"te": '౦', // Telugu
	"kn": '೦', // Kannada
	"ml": '൦', // Malayalam
	"gu": '૦', // Gujarati
}

// BaseLanguage returns the ISO 639-1 base of a language tag such as "te-IN".
// Unparseable tags yield an empty string.
func BaseLanguage(tag string) string {
	t, err := language.Parse(strings.TrimSpace(tag))
	if err != nil {
		return ""
	}
	base, _ := t.Base()
	return base.String()
}

// LocalizeDigits rewrites ASCII digits into the numeral script used by the
// language of tag. Text for languages without a mapped script (English
// included) is returned unchanged.
func LocalizeDigits(s, tag string) string {
	zero, ok := numeralZero[BaseLanguage(tag)]
	if !ok {
		return s
	}

	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return zero + (r - '0')
		}
		return r
	}, s)
}
