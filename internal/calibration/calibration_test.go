package calibration

import (
	"errors"
	"math"
	"sync"
	"testing"
)

const tolerance = 1e-9

func mustNew(t *testing.T, min, max float64, opts ...Option) *Axis {
	t.Helper()
	x, err := New(min, max, opts...)
	if err != nil {
		t.Fatalf("New(%v, %v) failed: %v", min, max, err)
	}
	return x
}

func TestPassthrough(t *testing.T) {
	x := mustNew(t, -1, 1)
	a, b, c := x.Coefficients()
	if a != 0 || b != 1 || c != 0 {
		t.Fatalf("expected (0, 1, 0), got (%v, %v, %v)", a, b, c)
	}
	if got := x.Evaluate(0.5); got != 0.5 {
		t.Fatalf("Evaluate(0.5) = %v, want 0.5", got)
	}
}

func TestOffset(t *testing.T) {
	x := mustNew(t, 0, 1)
	a, b, c := x.Coefficients()
	if a != 0 || b != 2 || c != -1 {
		t.Fatalf("expected (0, 2, -1), got (%v, %v, %v)", a, b, c)
	}
	if got := x.Evaluate(0.25); got != -0.5 {
		t.Fatalf("Evaluate(0.25) = %v, want -0.5", got)
	}
}

func TestFixedPoints(t *testing.T) {
	tests := []struct {
		name             string
		min, centre, max float64
	}{
		{name: "symmetric unit", min: -1, centre: 0, max: 1},
		{name: "16-bit signed", min: -32768, centre: 0, max: 32767},
		{name: "off-centre yoke", min: -29800, centre: 1250, max: 31020},
		{name: "unsigned throttle", min: 0, centre: 20000, max: 65535},
		{name: "inverted", min: 31000, centre: -400, max: -30500},
		{name: "fractional", min: 0.1, centre: 0.35, max: 0.9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x := mustNew(t, tt.min, tt.max, WithCentre(tt.centre))
			for _, c := range []struct {
				reading, want float64
			}{
				{tt.min, -1},
				{tt.centre, 0},
				{tt.max, 1},
			} {
				if got := x.Raw(c.reading); math.Abs(got-c.want) > tolerance {
					t.Errorf("Raw(%v) = %v, want %v", c.reading, got, c.want)
				}
			}
		})
	}
}

func TestCurvedFitIsQuadratic(t *testing.T) {
	// f(x) = -x²/6 + 7x/6 - 1 passes through (0,-1), (1,0), (4,1).
	x := mustNew(t, 0, 4, WithCentre(1))
	a, b, c := x.Coefficients()
	if math.Abs(a+1.0/6) > tolerance || math.Abs(b-7.0/6) > tolerance || c != -1 {
		t.Fatalf("expected (-1/6, 7/6, -1), got (%v, %v, %v)", a, b, c)
	}
	if got := x.Evaluate(2); math.Abs(got-2.0/3) > tolerance {
		t.Fatalf("Evaluate(2) = %v, want 2/3", got)
	}
}

func TestDeadZone(t *testing.T) {
	x := mustNew(t, -1, 1, WithDeadZone(0.1))
	tests := []struct {
		reading float64
		want    float64
	}{
		{0, 0},
		{0.05, 0},
		{-0.05, 0},
		{0.1, 0},
		{-0.1, 0},
		{0.1000001, 0.1000001},
		{-0.5, -0.5},
		{0.9, 0.9},
		{1.5, 1.5},
	}
	for _, tt := range tests {
		if got := x.Evaluate(tt.reading); got != tt.want {
			t.Errorf("Evaluate(%v) = %v, want %v", tt.reading, got, tt.want)
		}
	}
	if x.DeadZone() != 0.1 {
		t.Errorf("DeadZone() = %v, want 0.1", x.DeadZone())
	}
}

func TestDeadZoneIsOutputSpace(t *testing.T) {
	// Curved calibration: the suppressed raw band is asymmetric around centre.
	x := mustNew(t, 0, 4, WithCentre(1), WithDeadZone(0.2))
	var below, above float64
	for r := 1.0; r >= 0; r -= 0.001 {
		if x.Evaluate(r) != 0 {
			below = 1 - r
			break
		}
	}
	for r := 1.0; r <= 4; r += 0.001 {
		if x.Evaluate(r) != 0 {
			above = r - 1
			break
		}
	}
	if math.Abs(below-above) < 0.01 {
		t.Fatalf("expected asymmetric raw dead band, got below=%v above=%v", below, above)
	}
}

func TestDegenerate(t *testing.T) {
	tests := []struct {
		name string
		min  float64
		max  float64
		opts []Option
	}{
		{name: "min == max", min: 5, max: 5},
		{name: "min == centre", min: 0, max: 10, opts: []Option{WithCentre(0)}},
		{name: "centre == max", min: 0, max: 10, opts: []Option{WithCentre(10)}},
		{name: "all equal", min: 3, max: 3, opts: []Option{WithCentre(3)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, err := New(tt.min, tt.max, tt.opts...)
			if !errors.Is(err, ErrDegenerate) {
				t.Fatalf("expected ErrDegenerate, got %v", err)
			}
			if x != nil {
				t.Fatalf("expected nil axis on error")
			}
		})
	}
}

func TestInvalidOptions(t *testing.T) {
	if _, err := New(-1, 1, WithDeadZone(-0.1)); !errors.Is(err, ErrNegativeDeadZone) {
		t.Errorf("expected ErrNegativeDeadZone, got %v", err)
	}
	if _, err := New(math.NaN(), 1); !errors.Is(err, ErrNotFinite) {
		t.Errorf("expected ErrNotFinite for NaN, got %v", err)
	}
	if _, err := New(-1, math.Inf(1)); !errors.Is(err, ErrNotFinite) {
		t.Errorf("expected ErrNotFinite for +Inf, got %v", err)
	}
}

func TestExtrapolation(t *testing.T) {
	x := mustNew(t, 0, 1)
	if got := x.Evaluate(2); got != 3 {
		t.Fatalf("Evaluate(2) = %v, want 3", got)
	}
	if got := x.Evaluate(-1); got != -3 {
		t.Fatalf("Evaluate(-1) = %v, want -3", got)
	}
	if x.InRange(2) || !x.InRange(0.5) {
		t.Fatalf("InRange mismatch")
	}
}

func TestInverted(t *testing.T) {
	x := mustNew(t, 100, -100, WithCentre(0))
	if got := x.Evaluate(100); math.Abs(got+1) > tolerance {
		t.Errorf("Evaluate(100) = %v, want -1", got)
	}
	if got := x.Evaluate(-100); math.Abs(got-1) > tolerance {
		t.Errorf("Evaluate(-100) = %v, want 1", got)
	}
	if !x.InRange(-50) || x.InRange(150) {
		t.Errorf("InRange mismatch for inverted axis")
	}
}

func TestConcurrentEvaluate(t *testing.T) {
	x := mustNew(t, -32768, 32767, WithCentre(300), WithDeadZone(0.02))
	want := x.Evaluate(12000)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				if got := x.Evaluate(12000); got != want {
					t.Errorf("concurrent Evaluate = %v, want %v", got, want)
					return
				}
			}
		}()
	}
	wg.Wait()
}
