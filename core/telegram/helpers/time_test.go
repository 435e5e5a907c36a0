package helpers

import "testing"

func TestFormatReleaseDate(t *testing.T) {
	cases := []struct {
		date, precision, want string
	}{
		{"2004-06-15", "day", "15 June 2004"},
		{"2004-06", "month", "June 2004"},
		{"2004", "year", "2004"},
		{"2004-06-15", "", "15 June 2004"},
		{"2004", "", "2004"},
		{"", "day", ""},
		{"soon", "day", "soon"},
	}
	for _, tc := range cases {
		if got := FormatReleaseDate(tc.date, tc.precision); got != tc.want {
			t.Fatalf("FormatReleaseDate(%q, %q) = %q, want %q", tc.date, tc.precision, got, tc.want)
		}
	}
}
