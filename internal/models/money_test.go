package models

import "testing"

func TestCentsFromFloat(t *testing.T) {
	tests := []struct {
		in   float64
		want Cents
	}{
		{0.1, 10},
		{0.2, 20},
		{0.3, 30},
		{19.99, 1999},
		{1_000_000, MaxTargetAmount},
		{0.004, 0},
	}
	for _, tt := range tests {
		if got := CentsFromFloat(tt.in); got != tt.want {
			t.Errorf("CentsFromFloat(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}

	if sum := CentsFromFloat(0.1) + CentsFromFloat(0.2); sum != CentsFromFloat(0.3) {
		t.Errorf("0.1 + 0.2 = %d cents, want %d", sum, CentsFromFloat(0.3))
	}
	if got := Cents(1999).Float(); got != 19.99 {
		t.Errorf("Float() = %v, want 19.99", got)
	}
}
