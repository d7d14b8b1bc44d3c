package color

import (
	"math/rand"
	"testing"
)

// scriptedRand replays fixed values, cycling when it runs out.
type scriptedRand struct {
	values []int
	next   int
}

func (s *scriptedRand) Intn(n int) int {
	v := s.values[s.next%len(s.values)]
	s.next++
	return v % n
}

func TestDistanceAndLuminance(t *testing.T) {
	cases := []struct {
		name string
		a, b RGB
		want int
	}{
		{name: "identical", a: Cyan, b: Cyan, want: 0},
		{name: "cyan vs magenta", a: Cyan, b: Magenta, want: 510},
		{name: "single channel", a: RGB{R: 10}, b: RGB{R: 40}, want: 30},
		{name: "symmetric", a: RGB{R: 200, G: 5, B: 90}, b: RGB{R: 100, G: 50, B: 100}, want: 155},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Distance(tc.a, tc.b); got != tc.want {
				t.Fatalf("Distance = %d, want %d", got, tc.want)
			}
			if got := Distance(tc.b, tc.a); got != tc.want {
				t.Fatalf("Distance not symmetric: %d", got)
			}
		})
	}

	if l := (RGB{}).Luminance(); l != 0 {
		t.Fatalf("black luminance = %v", l)
	}
	if l := (RGB{R: 255, G: 255, B: 255}).Luminance(); l < 254.9 || l > 255.1 {
		t.Fatalf("white luminance = %v", l)
	}
}

func TestAllocateRejectsDarkAndClose(t *testing.T) {
	existing := []RGB{{R: 200, G: 200, B: 200}}
	rng := &scriptedRand{values: []int{
		0, 0, 0, // too dark
		190, 210, 200, // too close to existing
		20, 250, 30, // acceptable
	}}
	a := NewAllocator(rng, DefaultOptions())

	got := a.Allocate(existing)
	want := RGB{R: 20, G: 250, B: 30}
	if got != want {
		t.Fatalf("Allocate = %v, want %v", got, want)
	}
	if rng.next != 9 {
		t.Fatalf("expected 3 attempts (9 draws), got %d draws", rng.next)
	}
}

func TestAllocateFallsBackAfterBudget(t *testing.T) {
	// Always black: never acceptable, so the last candidate comes back.
	rng := &scriptedRand{values: []int{0}}
	a := NewAllocator(rng, Options{MinLuminance: 60, MinDistance: 120, MaxAttempts: 7})

	got := a.Allocate(nil)
	if got != (RGB{}) {
		t.Fatalf("Allocate = %v, want black fallback", got)
	}
	if rng.next != 21 {
		t.Fatalf("expected budget of 7 attempts (21 draws), got %d", rng.next)
	}
}

func TestAllocatePropertySeeded(t *testing.T) {
	a := NewAllocator(rand.New(rand.NewSource(42)), DefaultOptions())
	var existing []RGB
	for i := 0; i < 5; i++ {
		c := a.Allocate(existing)
		if !a.Acceptable(c, existing) {
			t.Fatalf("color %d (%v) violates separation against %v", i, c, existing)
		}
		existing = append(existing, c)
	}
}

func TestHexRoundTrip(t *testing.T) {
	for _, c := range []RGB{Cyan, Magenta, LightGray, Background, {R: 1, G: 2, B: 3}} {
		text, err := c.MarshalText()
		if err != nil {
			t.Fatal(err)
		}
		var back RGB
		if err := back.UnmarshalText(text); err != nil {
			t.Fatalf("UnmarshalText(%s): %v", text, err)
		}
		if back != c {
			t.Fatalf("round trip %v -> %s -> %v", c, text, back)
		}
	}

	if _, err := ParseHex("#12345"); err == nil {
		t.Fatal("expected error for short hex")
	}
	if _, err := ParseHex("zzzzzz"); err == nil {
		t.Fatal("expected error for non-hex digits")
	}
}
