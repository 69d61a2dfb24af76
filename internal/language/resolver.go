package language

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidSelection is returned for any reply that is not a menu digit.
var ErrInvalidSelection = errors.New("invalid language selection")

// Entry is one row of the language menu.
type Entry struct {
	Digit       string `json:"digit"`
	Code        string `json:"code"`
	Label       string `json:"label"`
	Locale      string `json:"locale"`
	NativeLabel string `json:"native_label"`
}

var menu = []Entry{
	{Digit: "1", Code: "hi", Label: "Hindi", Locale: "hi-IN", NativeLabel: "हिंदी"},
	{Digit: "2", Code: "en", Label: "English", Locale: "en-IN", NativeLabel: "English"},
	{Digit: "3", Code: "bn", Label: "Bengali", Locale: "bn-IN", NativeLabel: "বাংলা"},
	{Digit: "4", Code: "ta", Label: "Tamil", Locale: "ta-IN", NativeLabel: "தமிழ்"},
	{Digit: "5", Code: "te", Label: "Telugu", Locale: "te-IN", NativeLabel: "తెలుగు"},
	{Digit: "6", Code: "kn", Label: "Kannada", Locale: "kn-IN", NativeLabel: "ಕನ್ನಡ"},
	{Digit: "7", Code: "ml", Label: "Malayalam", Locale: "ml-IN", NativeLabel: "മലയാളം"},
	{Digit: "8", Code: "mr", Label: "Marathi", Locale: "mr-IN", NativeLabel: "मराठी"},
	{Digit: "9", Code: "gu", Label: "Gujarati", Locale: "gu-IN", NativeLabel: "ગુજરાતી"},
}

var (
	byDigit = make(map[string]Entry, len(menu))
	byCode  = make(map[string]Entry, len(menu))
)

func init() {
	for _, e := range menu {
		byDigit[e.Digit] = e
		byCode[e.Code] = e
	}
}

// Resolve maps a menu reply to its entry. Input is trimmed and lower-cased
// first; anything but "1".."9" yields ErrInvalidSelection.
func Resolve(input string) (Entry, error) {
	e, ok := byDigit[strings.ToLower(strings.TrimSpace(input))]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %q", ErrInvalidSelection, input)
	}
	return e, nil
}

// Menu returns the menu rows in display order.
func Menu() []Entry {
	out := make([]Entry, len(menu))
	copy(out, menu)
	return out
}

// Locale returns the locale-qualified code for a short code such as "te".
// Codes that already carry a region, and unknown codes, are returned as is.
func Locale(code string) string {
	if e, ok := byCode[strings.ToLower(code)]; ok {
		return e.Locale
	}
	return code
}

// TextMenu renders the numbered menu with native-script labels.
func TextMenu() string {
	var b strings.Builder
	b.WriteString("🗣️ In which language would you like to hear the summary?\n")
	for _, e := range menu {
		fmt.Fprintf(&b, "%s. %s\n", e.Digit, e.NativeLabel)
	}
	b.WriteString("\n👉 Reply with the number (1–9).")
	return b.String()
}

// SpokenMenu renders the menu as text for speech synthesis.
func SpokenMenu() string {
	var b strings.Builder
	for _, e := range menu {
		fmt.Fprintf(&b, "%s %s\n", e.Digit, e.Label)
	}
	b.WriteString("\nPlease send the number of your preferred language.")
	return b.String()
}
