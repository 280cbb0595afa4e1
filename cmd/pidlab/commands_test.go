package main

import "testing"

func TestFormatRoots(t *testing.T) {
	tests := []struct {
		roots []complex128
		want  string
	}{
		{nil, "none"},
		{[]complex128{complex(1.5, 0), complex(-0.2, 0)}, "-0.2 1.5"},
		{[]complex128{complex(-1, 2)}, "-1+2i"},
	}
	for _, tt := range tests {
		if got := formatRoots(tt.roots); got != tt.want {
			t.Errorf("formatRoots(%v) = %q, want %q", tt.roots, got, tt.want)
		}
	}
}
