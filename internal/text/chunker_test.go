package text

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{
			name: "punctuation followed by space",
			in:   "Take one tablet. Drink water! Any questions? Done",
			want: []string{"Take one tablet.", "Drink water!", "Any questions?", "Done"},
		},
		{
			name: "newline boundaries",
			in:   "line one\nline two\r\nline three",
			want: []string{"line one", "line two", "", "line three"},
		},
		{
			name: "decimal point is not a boundary",
			in:   "Take 2.5 ml twice.",
			want: []string{"Take 2.5 ml twice."},
		},
		{
			name: "punctuation directly before newline",
			in:   "First.\nSecond.",
			want: []string{"First.", "Second."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitSentences(tt.in)
			if len(got) != len(tt.want) {
				t.Fatalf("SplitSentences(%q) = %q, want %q", tt.in, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("fragment %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestChunkShortTextIsSingleChunk(t *testing.T) {
	in := "  Take one tablet after breakfast. Avoid alcohol.  "
	chunks := Chunk(in, 400)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d: %q", len(chunks), chunks)
	}
	if chunks[0] != strings.TrimSpace(in) {
		t.Errorf("chunk = %q, want %q", chunks[0], strings.TrimSpace(in))
	}
}

func TestChunkRespectsBound(t *testing.T) {
	sentence := "Take the blue tablet twice a day after meals."
	in := strings.Repeat(sentence+" ", 30)

	for _, maxLen := range []int{50, 100, 200, 400} {
		chunks := Chunk(in, maxLen)
		if len(chunks) == 0 {
			t.Fatalf("maxLen %d: no chunks", maxLen)
		}
		for i, c := range chunks {
			if utf8.RuneCountInString(c) > maxLen {
				t.Errorf("maxLen %d: chunk %d has %d chars", maxLen, i, utf8.RuneCountInString(c))
			}
		}
		if got := strings.Join(chunks, " "); got != strings.TrimSpace(in) {
			t.Errorf("maxLen %d: rejoined text differs from input", maxLen)
		}
	}
}

func TestChunkOversizedSentenceIsNotSplit(t *testing.T) {
	long := strings.Repeat("word ", 30) + "end."
	in := "Short one. " + long + " Short two."

	chunks := Chunk(in, 40)
	want := []string{"Short one.", strings.TrimSpace(long), "Short two."}
	if len(chunks) != len(want) {
		t.Fatalf("got %d chunks %q, want %d", len(chunks), chunks, len(want))
	}
	for i := range want {
		if chunks[i] != want[i] {
			t.Errorf("chunk %d = %q, want %q", i, chunks[i], want[i])
		}
	}
}

func TestChunkPreservesOrder(t *testing.T) {
	in := "One. Two. Three. Four. Five. Six."
	chunks := Chunk(in, 10)

	got := strings.Join(chunks, " ")
	if got != in {
		t.Errorf("rejoined = %q, want %q", got, in)
	}
}

func TestChunkDropsBlankInput(t *testing.T) {
	for _, in := range []string{"", "   ", "\n\n", " . "} {
		chunks := Chunk(in, 400)
		for _, c := range chunks {
			if strings.TrimSpace(c) == "" {
				t.Errorf("Chunk(%q) emitted blank chunk", in)
			}
		}
	}
	if chunks := Chunk("\n \r\n", 400); len(chunks) != 0 {
		t.Errorf("expected no chunks for whitespace input, got %q", chunks)
	}
}

func TestChunkCountsRunes(t *testing.T) {
	// Multi-byte script: the bound must apply to runes, not bytes.
	sentence := "नमस्ते दुनि."
	in := sentence + " " + sentence
	chunks := Chunk(in, utf8.RuneCountInString(in))
	if len(chunks) != 1 {
		t.Fatalf("expected a single chunk, got %d", len(chunks))
	}
}
