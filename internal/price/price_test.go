package price

import "testing"

func TestFormat(t *testing.T) {
	cases := []struct {
		cents int64
		want  string
	}{
		{0, "€ 0,00"},
		{1250, "€ 12,50"},
		{2995, "€ 29,95"},
		{4000, "€ 40,00"},
		{123450, "€ 1.234,50"},
		{-495, "-€ 4,95"},
	}
	for _, tc := range cases {
		if got := Format(tc.cents); got != tc.want {
			t.Errorf("Format(%d)=%q want %q", tc.cents, got, tc.want)
		}
	}
}

func TestDiscountPercent(t *testing.T) {
	cases := []struct {
		name            string
		cents, original int64
		want            int
	}{
		{"no original", 1000, 0, 0},
		{"same price", 1000, 1000, 0},
		{"original lower", 1200, 1000, 0},
		{"quarter off", 750, 1000, 25},
		{"rounds down", 1450, 1690, 14},
		{"rounds up", 4890, 5490, 11},
		{"free", 0, 1000, 100},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DiscountPercent(tc.cents, tc.original); got != tc.want {
				t.Fatalf("DiscountPercent(%d, %d)=%d want %d", tc.cents, tc.original, got, tc.want)
			}
		})
	}
}

func TestHasDiscount(t *testing.T) {
	if HasDiscount(1000, 0) {
		t.Fatal("zero original must not be a discount")
	}
	if !HasDiscount(999, 1000) {
		t.Fatal("expected discount")
	}
}
