package text

import "testing"

func TestLocalizeDigits(t *testing.T) {
	tests := []struct {
		tag  string
		in   string
		want string
	}{
		{"hi-IN", "Take 2 tablets at 10", "Take २ tablets at १०"},
		{"mr-IN", "0123456789", "०१२३४५६७८९"},
		{"bn-IN", "5", "৫"},
		{"ta-IN", "7", "௭"},
		{"te-IN", "3 times", "౩ times"},
		{"kn-IN", "9", "೯"},
		{"ml-IN", "1", "൧"},
		{"gu-IN", "8", "૮"},
		{"en-IN", "Take 2 tablets", "Take 2 tablets"},
		{"", "42", "42"},
		{"not a tag!", "42", "42"},
	}

	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			if got := LocalizeDigits(tt.in, tt.tag); got != tt.want {
				t.Errorf("LocalizeDigits(%q, %q) = %q, want %q", tt.in, tt.tag, got, tt.want)
			}
		})
	}
}

func TestBaseLanguage(t *testing.T) {
	if got := BaseLanguage("te-IN"); got != "te" {
		t.Errorf("BaseLanguage(te-IN) = %q", got)
	}
	if got := BaseLanguage("hi"); got != "hi" {
		t.Errorf("BaseLanguage(hi) = %q", got)
	}
}
