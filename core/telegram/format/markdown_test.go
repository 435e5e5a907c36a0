package format

import "testing"

func TestEscapeV2(t *testing.T) {
	got := EscapeV2("Mr. Brightside (Live) - 2:03!")
	want := `Mr\. Brightside \(Live\) \- 2:03\!`
	if got != want {
		t.Fatalf("EscapeV2 = %q, want %q", got, want)
	}
}

func TestEscapeMarkdownV1(t *testing.T) {
	got, err := EscapeMarkdown("a_b*c", MarkdownV1)
	if err != nil {
		t.Fatalf("escape: %v", err)
	}
	if got != `a\_b\*c` {
		t.Fatalf("got %q", got)
	}
	if _, err := EscapeMarkdown("x", 3); err == nil {
		t.Fatal("expected error for unknown version")
	}
}

func TestDeref(t *testing.T) {
	s := "  x "
	n := 7
	if Text(&s) != "x" || Text(nil) != "" {
		t.Fatal("Text")
	}
	if Deref(&n, 0) != 7 || Deref[int](nil, 3) != 3 {
		t.Fatal("Deref")
	}
}
