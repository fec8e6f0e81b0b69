package filter

import (
	"math"
	"testing"
)

func TestNonePassesThrough(t *testing.T) {
	var f Filter
	for _, v := range []float64{1, -3, 1500} {
		if got := f.Update(v); got != v {
			t.Fatalf("Update(%v)=%v want passthrough", v, got)
		}
	}
}

func TestZeroFrequencyPassesThrough(t *testing.T) {
	f := New(Config{Type: PT1}, 1000)
	if got := f.Update(1500); got != 1500 {
		t.Fatalf("got=%v want 1500", got)
	}
	if got := f.Update(1000); got != 1000 {
		t.Fatalf("got=%v want 1000", got)
	}
}

func TestFirstSamplePrimes(t *testing.T) {
	for _, typ := range []Type{PT1, PT2, Biquad, FIR2} {
		f := New(Config{Type: typ, Freq: 30}, 1000)
		if got := f.Update(1500); got != 1500 {
			t.Fatalf("%s: first output=%v want 1500", typ, got)
		}
		if got := f.Update(1500); math.Abs(got-1500) > 1e-9 {
			t.Fatalf("%s: steady output=%v want 1500", typ, got)
		}
	}
}

func TestLowPassConverges(t *testing.T) {
	for _, typ := range []Type{PT1, PT2, Biquad} {
		f := New(Config{Type: typ, Freq: 20}, 1000)
		f.Update(0)
		var out float64
		for i := 0; i < 2000; i++ {
			out = f.Update(1)
		}
		if math.Abs(out-1) > 1e-3 {
			t.Fatalf("%s: did not converge, out=%v", typ, out)
		}
	}
}

func TestLowPassAttenuatesStep(t *testing.T) {
	f := New(Config{Type: PT1, Freq: 10}, 1000)
	f.Update(0)
	if got := f.Update(1); got <= 0 || got >= 0.1 {
		t.Fatalf("first step output=%v want small positive", got)
	}
}

func TestFIR2Averages(t *testing.T) {
	f := New(Config{Type: FIR2}, 1000)
	f.Update(1000)
	if got := f.Update(2000); got != 1500 {
		t.Fatalf("got=%v want 1500", got)
	}
}

func TestReconfigureKeepsState(t *testing.T) {
	f := New(Config{Type: PT1, Freq: 20}, 1000)
	f.Update(1500)
	f.Reconfigure(Config{Type: PT1, Freq: 40}, 1000)
	if got := f.Update(1500); math.Abs(got-1500) > 1e-9 {
		t.Fatalf("got=%v want 1500 after reconfigure", got)
	}
	if f.Config().Freq != 40 {
		t.Fatalf("freq=%v want 40", f.Config().Freq)
	}
}

func TestParseType(t *testing.T) {
	if typ, ok := ParseType("biquad"); !ok || typ != Biquad {
		t.Fatalf("ParseType(biquad)=%v,%v", typ, ok)
	}
	if _, ok := ParseType("kalman"); ok {
		t.Fatal("ParseType accepted unknown name")
	}
}
