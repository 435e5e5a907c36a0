package logger

import "testing"

func TestSanitizeLimit(t *testing.T) {
	if got := SanitizeLimit("a\x00b\u200bc\tdé", 5); got != "abc\td" {
		t.Fatalf("SanitizeLimit = %q", got)
	}
	if got, cut := SummarizeStrings([]string{"a", "b", "c"}, 2); got != "a, b" || !cut {
		t.Fatalf("SummarizeStrings = %q %v", got, cut)
	}
}
