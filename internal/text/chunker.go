package text

import (
	"regexp"
	"strings"
)

// sentenceBoundary matches a line break, or a whitespace run that follows
// sentence-ending punctuation. The punctuation itself stays with the
// preceding fragment.
var sentenceBoundary = regexp.MustCompile(`[\r\n]|[.?!]\s+`)

// SplitSentences breaks text into sentence fragments in input order.
// Fragments may be empty when the input contains consecutive boundaries.
func SplitSentences(text string) []string {
	matches := sentenceBoundary.FindAllStringIndex(text, -1)
	parts := make([]string, 0, len(matches)+1)

	start := 0
	for _, m := range matches {
		end := m[0]
		// Keep the terminating punctuation on the fragment it closes.
		if c := text[m[0]]; c == '.' || c == '?' || c == '!' {
			end = m[0] + 1
		}
		parts = append(parts, text[start:end])
		start = m[1]
	}
	parts = append(parts, text[start:])
	return parts
}

// Chunk splits text into ordered chunks of at most maxLen characters.
//
// Fragments are accumulated into a running buffer; when appending the next
// fragment would overflow maxLen the buffer is flushed and the fragment starts
// a new one. A single fragment longer than maxLen is emitted whole and is
// allowed to exceed the limit. Length is measured in runes so non-Latin
// scripts are not penalized for their UTF-8 width. Empty and whitespace-only
// chunks are never returned.
func Chunk(text string, maxLen int) []string {
	if maxLen <= 0 {
		maxLen = 1
	}

	var chunks []string
	var current strings.Builder
	currentLen := 0

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			chunks = append(chunks, s)
		}
		current.Reset()
		currentLen = 0
	}

	for _, fragment := range SplitSentences(text) {
		fragment = strings.TrimSpace(fragment)
		if fragment == "" {
			continue
		}
		fragmentLen := len([]rune(fragment))

		if currentLen == 0 {
			current.WriteString(fragment)
			currentLen = fragmentLen
			continue
		}

		if currentLen+1+fragmentLen > maxLen {
			flush()
			current.WriteString(fragment)
			currentLen = fragmentLen
			continue
		}

		current.WriteByte(' ')
		current.WriteString(fragment)
		currentLen += 1 + fragmentLen
	}
	flush()

	return chunks
}
