package dice

import (
	"testing"

	"github.com/jwebster45206/d20"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Deterministic(t *testing.T) {
	a := New(42)
	b := New(42)
	for i := 0; i < 100; i++ {
		if x, y := a.IntN(1000), b.IntN(1000); x != y {
			t.Fatalf("draw %d differs: %d != %d", i, x, y)
		}
	}
}

func TestRange(t *testing.T) {
	src := New(7)
	for i := 0; i < 1000; i++ {
		v := Range(src, 2, 4)
		if v < 2 || v >= 4 {
			t.Fatalf("Range(2,4) = %d, out of bounds", v)
		}
	}
	if got := Range(src, 5, 5); got != 5 {
		t.Errorf("Range(5,5) = %d, want 5", got)
	}
}

func TestPercent(t *testing.T) {
	src := New(9)
	for i := 0; i < 1000; i++ {
		v := Percent(src)
		if v < 0 || v >= 100 {
			t.Fatalf("Percent() = %f, out of bounds", v)
		}
	}
}

func TestScripted(t *testing.T) {
	s := NewScripted(3, 12, -1).WithFloats(0.25)

	if got := s.IntN(10); got != 3 {
		t.Errorf("IntN(10) = %d, want 3", got)
	}
	if got := s.IntN(10); got != 2 {
		t.Errorf("IntN(10) = %d, want 2 (12 mod 10)", got)
	}
	if got := s.IntN(10); got != 9 {
		t.Errorf("IntN(10) = %d, want 9 (-1 mod 10)", got)
	}
	if got := s.IntN(10); got != 0 {
		t.Errorf("exhausted IntN(10) = %d, want 0", got)
	}
	if got := s.Float64(); got != 0.25 {
		t.Errorf("Float64() = %f, want 0.25", got)
	}
	if got := s.Float64(); got != 0.99 {
		t.Errorf("exhausted Float64() = %f, want 0.99", got)
	}
	if s.IntCalls != 4 || s.FloatCalls != 2 {
		t.Errorf("calls = %d/%d, want 4/2", s.IntCalls, s.FloatCalls)
	}
}

func TestNew_RollsLikeD20(t *testing.T) {
	src := New(74)
	ref := d20.NewRoller(74)
	for i := 0; i < 50; i++ {
		want, err := ref.Roll("1d20")
		require.NoError(t, err)
		assert.Equal(t, want.Value-1, src.IntN(20), "roll %d", i)
	}
}

func TestRoller_Bounds(t *testing.T) {
	src := New(3)
	for i := 0; i < 2000; i++ {
		if v := src.IntN(10); v < 0 || v >= 10 {
			t.Fatalf("IntN(10) = %d, out of bounds", v)
		}
		if v := src.IntN(1); v != 0 {
			t.Fatalf("IntN(1) = %d, want 0", v)
		}
		if f := src.Float64(); f < 0 || f >= 1 {
			t.Fatalf("Float64() = %f, out of bounds", f)
		}
	}
}

func TestRoller_Roll(t *testing.T) {
	r := New(11).(*Roller)
	for i := 0; i < 500; i++ {
		if v := r.Roll(20); v < 1 || v > 20 {
			t.Fatalf("Roll(20) = %d, out of bounds", v)
		}
	}
	assert.Panics(t, func() { r.Roll(0) })
}
