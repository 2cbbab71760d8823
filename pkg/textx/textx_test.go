package textx

import "testing"

func TestSanitizeText(t *testing.T) {
	in := "he\x00llo\nwo\x7frld\t!"
	got := SanitizeText(in)
	if got != "hello\nworld\t!" {
		t.Fatalf("unexpected: %q", got)
	}
}

func TestSnippet(t *testing.T) {
	if got := Snippet("abcdef", 3); got != "abc" {
		t.Fatalf("unexpected: %q", got)
	}
	if got := Snippet("ab", 10); got != "ab" {
		t.Fatalf("unexpected: %q", got)
	}
	if got := Snippet("ab", 0); got != "ab" {
		t.Fatalf("unexpected: %q", got)
	}
}
