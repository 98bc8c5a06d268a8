package polling

import (
	"math"
	"testing"
)

func TestRandomBackoff_NoFailuresNeverSkips(t *testing.T) {
	b := &RandomBackoff{uint64n: func(uint64) uint64 {
		t.Fatal("random source should not be consulted without failures")
		return 0
	}}
	if b.Skip("docker-/usr/bin/docker", 0) {
		t.Error("Skip with zero failures = true")
	}
}

func TestRandomBackoff_Factor(t *testing.T) {
	tests := []struct {
		failures int
		want     uint64
	}{
		{1, 2},
		{2, 4},
		{3, 8},
		{5, 32},
		{9, 32},
	}
	for _, tt := range tests {
		var got uint64
		b := &RandomBackoff{uint64n: func(n uint64) uint64 {
			got = n
			return 0
		}}
		if b.Skip("id", tt.failures) {
			t.Errorf("failures=%d: a zero draw must probe", tt.failures)
		}
		if got != tt.want {
			t.Errorf("failures=%d: factor = %d, want %d", tt.failures, got, tt.want)
		}
	}

	b := &RandomBackoff{uint64n: func(n uint64) uint64 { return n - 1 }}
	if !b.Skip("id", 1) {
		t.Error("a non-zero draw must skip")
	}
}

func TestRandomBackoff_Distribution(t *testing.T) {
	b := NewRandomBackoff()
	const trials = 20000

	prev := 1.0
	for failures := 1; failures <= MaxFailures; failures++ {
		probes := 0
		for i := 0; i < trials; i++ {
			if !b.Skip("id", failures) {
				probes++
			}
		}
		rate := float64(probes) / trials
		want := 1 / math.Pow(2, float64(failures))
		if math.Abs(rate-want) > 0.02 {
			t.Errorf("failures=%d: probe rate %.3f, want about %.3f", failures, rate, want)
		}
		if rate > prev {
			t.Errorf("failures=%d: probe rate %.3f grew from %.3f", failures, rate, prev)
		}
		prev = rate
	}
}

func TestTickBackoff_Pattern(t *testing.T) {
	tests := []struct {
		failures int
		want     []bool // true = skip
	}{
		{0, []bool{false, false, false}},
		{1, []bool{true, false, true, false}},
		{2, []bool{true, true, true, false, true, true, true, false}},
	}
	for _, tt := range tests {
		b := NewTickBackoff()
		for i, want := range tt.want {
			if got := b.Skip("id", tt.failures); got != want {
				t.Errorf("failures=%d tick %d: Skip = %v, want %v", tt.failures, i, got, want)
			}
		}
	}
}

func TestTickBackoff_CappedAndReset(t *testing.T) {
	b := NewTickBackoff()

	skips := 0
	for b.Skip("id", 50) {
		skips++
	}
	if skips != 31 {
		t.Errorf("skips before probe at high failure count = %d, want 31", skips)
	}

	b.Skip("id", 3)
	if b.Skip("id", 0) {
		t.Error("recovery must not skip")
	}
	if got := len(b.waited); got != 0 {
		t.Errorf("waited entries after recovery = %d, want 0", got)
	}
}

func TestParseBackoff(t *testing.T) {
	tests := []struct {
		name string
		ok   bool
	}{
		{"", true},
		{"random", true},
		{"deterministic", true},
		{"linear", false},
	}
	for _, tt := range tests {
		b, ok := ParseBackoff(tt.name)
		if ok != tt.ok || (ok && b == nil) {
			t.Errorf("ParseBackoff(%q) = %v, %v", tt.name, b, ok)
		}
	}
	if _, ok := mustParse(t, "deterministic").(*TickBackoff); !ok {
		t.Error("deterministic should select TickBackoff")
	}
}

func mustParse(t *testing.T, name string) Backoff {
	t.Helper()
	b, ok := ParseBackoff(name)
	if !ok {
		t.Fatalf("ParseBackoff(%q) failed", name)
	}
	return b
}
