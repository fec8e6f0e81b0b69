package mathutil

import (
	"math"
	"testing"
)

func TestClamp(t *testing.T) {
	if got := Clamp(5, 0, 3); got != 3 {
		t.Fatalf("Clamp=%d want 3", got)
	}
	if got := Clamp(-1.5, -1, 1); got != -1 {
		t.Fatalf("Clamp=%v want -1", got)
	}
	if got := Clamp(uint32(23000), 4000, 40000); got != 23000 {
		t.Fatalf("Clamp=%d want 23000", got)
	}
}

func TestMapInt_PulseRange(t *testing.T) {
	cases := []struct {
		v, min, max, want int
	}{
		{1000, 1000, 2000, 1000},
		{1500, 1000, 2000, 1500},
		{1500, 988, 2012, 1500},
		{2012, 988, 2012, 2000},
		{988, 988, 2012, 1000},
	}
	for _, c := range cases {
		if got := MapInt(c.v, c.min, c.max, 1000, 2000); got != c.want {
			t.Fatalf("MapInt(%d,[%d,%d])=%d want %d", c.v, c.min, c.max, got, c.want)
		}
	}
}

func TestMap_DegenerateRange(t *testing.T) {
	if got := Map(3.0, 1, 1, 5, 10); got != 5 {
		t.Fatalf("Map=%v want 5", got)
	}
}

func TestDeadband(t *testing.T) {
	if got := Deadband(5, 10); got != 0 {
		t.Fatalf("Deadband(5,10)=%d want 0", got)
	}
	if got := Deadband(-10, 10); got != 0 {
		t.Fatalf("Deadband(-10,10)=%d want 0", got)
	}
	if got := Deadband(25, 10); got != 15 {
		t.Fatalf("Deadband(25,10)=%d want 15", got)
	}
	if got := Deadband(-25, 10); got != -15 {
		t.Fatalf("Deadband(-25,10)=%d want -15", got)
	}
}

func TestLerp(t *testing.T) {
	if got := Lerp(1000, 2000, 0.25); got != 1250 {
		t.Fatalf("Lerp=%v want 1250", got)
	}
}

func TestRadiansDegrees(t *testing.T) {
	if got := Radians(180); math.Abs(got-math.Pi) > 1e-12 {
		t.Fatalf("Radians(180)=%v", got)
	}
	if got := Degrees(math.Pi / 2); math.Abs(got-90) > 1e-12 {
		t.Fatalf("Degrees(pi/2)=%v", got)
	}
}

func TestFinite(t *testing.T) {
	if Finite(math.NaN()) || Finite(math.Inf(1)) || !Finite(1) {
		t.Fatal("Finite misclassified")
	}
}
