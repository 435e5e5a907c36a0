package logger

import "testing"

func TestRatioSamplerAllowsNumeratorPerWindow(t *testing.T) {
	s := newRatioSampler(2, 5)
	allowed := 0
	for i := 0; i < 10; i++ {
		if s.Allow() {
			allowed++
		}
	}
	if allowed != 4 {
		t.Fatalf("allowed = %d, want 4", allowed)
	}
}

func TestRatioSamplerDisabledAllowsAll(t *testing.T) {
	s := newRatioSampler(0, 0)
	for i := 0; i < 3; i++ {
		if !s.Allow() {
			t.Fatal("disabled sampler must allow every event")
		}
	}
}

func TestParseRatioSpec(t *testing.T) {
	cases := []struct {
		spec     string
		num, den int
	}{
		{"1/10", 1, 10},
		{"20", 1, 20},
		{"junk", 0, 0},
		{"a/b", 0, 0},
	}
	for _, tc := range cases {
		if n, d := parseRatioSpec(tc.spec); n != tc.num || d != tc.den {
			t.Fatalf("%q -> %d/%d", tc.spec, n, d)
		}
	}
}
