package repository

import "testing"

func TestNormalizePair(t *testing.T) {
	tests := []struct {
		a, b, want1, want2 uint64
	}{
		{1, 2, 1, 2},
		{2, 1, 1, 2},
		{7, 7, 7, 7},
	}
	for _, tt := range tests {
		u1, u2 := NormalizePair(tt.a, tt.b)
		if u1 != tt.want1 || u2 != tt.want2 {
			t.Errorf("NormalizePair(%d,%d) = (%d,%d), want (%d,%d)",
				tt.a, tt.b, u1, u2, tt.want1, tt.want2)
		}
	}
}

func TestNormalizePairSymmetric(t *testing.T) {
	// Both orderings of a pair must map to the same canonical row key.
	a1, a2 := NormalizePair(10, 3)
	b1, b2 := NormalizePair(3, 10)
	if a1 != b1 || a2 != b2 {
		t.Errorf("orderings diverge: (%d,%d) vs (%d,%d)", a1, a2, b1, b2)
	}
}
