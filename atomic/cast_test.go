package atomic_test

import (
	"testing"

	"github.com/nabbar/staticd/atomic"
)

func TestCast_Success(t *testing.T) {
	v, ok := atomic.Cast[int](42)
	if !ok || v != 42 {
		t.Fatalf("Cast[int](42) = %d, %v, want 42, true", v, ok)
	}
}

func TestCast_WrongType(t *testing.T) {
	v, ok := atomic.Cast[string](42)
	if ok || v != "" {
		t.Fatalf("Cast[string](42) = %q, %v, want \"\", false", v, ok)
	}
}

func TestCast_ZeroValue(t *testing.T) {
	v, ok := atomic.Cast[int](0)
	if ok || v != 0 {
		t.Fatalf("Cast[int](0) = %d, %v, want 0, false", v, ok)
	}
}

func TestIsEmpty(t *testing.T) {
	cases := []struct {
		name string
		src  any
		want bool
	}{
		{"nil", nil, true},
		{"wrong type", 42, true},
		{"zero string", "", true},
		{"non-zero string", "hi", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := atomic.IsEmpty[string](tc.src); got != tc.want {
				t.Fatalf("IsEmpty[string](%v) = %v, want %v", tc.src, got, tc.want)
			}
		})
	}
}
