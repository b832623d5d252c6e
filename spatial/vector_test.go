package spatial

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

// Helper function to compare floats with epsilon tolerance
func almostEqual(a, b, epsilon float64) bool {
	return math.Abs(a-b) < epsilon
}

// Helper function to compare spatial vectors with epsilon tolerance
func vectorAlmostEqual(a, b Vector, epsilon float64) bool {
	for i := 0; i < 6; i++ {
		if !almostEqual(a.At(i), b.At(i), epsilon) {
			return false
		}
	}
	return true
}

func TestVectorArithmetic(t *testing.T) {
	v := MotionVector(mgl64.Vec3{1, -2, 3}, mgl64.Vec3{0.5, 0, -1})
	u := MotionVector(mgl64.Vec3{-1, 0, 2}, mgl64.Vec3{2, 1, 1})

	t.Run("add then subtract returns original", func(t *testing.T) {
		got := v.Add(u).Sub(u)
		if !vectorAlmostEqual(got, v, 1e-15) {
			t.Errorf("Expected %v, got %v", v, got)
		}
	})

	t.Run("scale distributes over dot", func(t *testing.T) {
		if !almostEqual(v.Scale(2.5).Dot(u), 2.5*v.Dot(u), 1e-12) {
			t.Error("Expected Scale to distribute over Dot")
		}
	})

	t.Run("zero detection", func(t *testing.T) {
		if !(Vector{}).IsZero() {
			t.Error("Expected zero value to report IsZero")
		}
		if v.IsZero() {
			t.Error("Expected nonzero vector to not report IsZero")
		}
	})
}

func TestVectorIndexing(t *testing.T) {
	v := Vector{Angular: mgl64.Vec3{1, 2, 3}, Linear: mgl64.Vec3{4, 5, 6}}

	t.Run("At reads angular then linear", func(t *testing.T) {
		for i := 0; i < 6; i++ {
			if v.At(i) != float64(i+1) {
				t.Errorf("Expected component %d = %d, got %v", i, i+1, v.At(i))
			}
		}
	})

	t.Run("SetAt writes the matching slot", func(t *testing.T) {
		var w Vector
		for i := 0; i < 6; i++ {
			w.SetAt(i, float64(10+i))
		}
		for i := 0; i < 6; i++ {
			if w.At(i) != float64(10+i) {
				t.Errorf("Expected component %d = %d, got %v", i, 10+i, w.At(i))
			}
		}
	})
}

func TestSkew(t *testing.T) {
	a := mgl64.Vec3{1.5, -0.5, 2}
	b := mgl64.Vec3{-1, 3, 0.25}

	got := Skew(a).Mul3x1(b)
	want := a.Cross(b)
	if !almostEqual(got[0], want[0], 1e-15) ||
		!almostEqual(got[1], want[1], 1e-15) ||
		!almostEqual(got[2], want[2], 1e-15) {
		t.Errorf("Expected Skew(a)·b = a×b = %v, got %v", want, got)
	}
}

func TestCrossProductsAreDual(t *testing.T) {
	// The force cross product is minus the transpose of the motion cross
	// product: (v ×f f)·u = −f·(v ×m u) for every motion u and force f.
	v := MotionVector(mgl64.Vec3{0.3, -1, 0.7}, mgl64.Vec3{1, 0.2, -0.4})
	u := MotionVector(mgl64.Vec3{-0.8, 0.5, 1.2}, mgl64.Vec3{0, -1, 2})
	f := ForceVector(mgl64.Vec3{2, 1, -1}, mgl64.Vec3{0.6, -0.3, 1.1})

	lhs := v.CrossF(f).Dot(u)
	rhs := -f.Dot(v.CrossM(u))
	if !almostEqual(lhs, rhs, 1e-12) {
		t.Errorf("Expected (v ×f f)·u = -f·(v ×m u), got %v and %v", lhs, rhs)
	}
}

func TestCrossMSelfIsZero(t *testing.T) {
	v := MotionVector(mgl64.Vec3{1, 2, -1}, mgl64.Vec3{0.5, -0.5, 3})
	if !v.CrossM(v).IsZero() {
		t.Errorf("Expected v ×m v = 0, got %v", v.CrossM(v))
	}
}
