package spatial

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/mat"
)

func sampleInertia() Inertia {
	icom := mgl64.Mat3{
		0.4, 0.02, -0.01,
		0.02, 0.3, 0.05,
		-0.01, 0.05, 0.25,
	}
	return NewInertia(2.5, mgl64.Vec3{0.1, -0.2, 0.3}, icom)
}

func denseMulVector(m *mat.Dense, v Vector) Vector {
	in := mat.NewVecDense(6, []float64{v.At(0), v.At(1), v.At(2), v.At(3), v.At(4), v.At(5)})
	out := mat.NewVecDense(6, nil)
	out.MulVec(m, in)
	var r Vector
	for i := 0; i < 6; i++ {
		r.SetAt(i, out.AtVec(i))
	}
	return r
}

func TestInertiaApplyMatchesDense(t *testing.T) {
	in := sampleInertia()
	v := MotionVector(mgl64.Vec3{0.5, -1, 0.2}, mgl64.Vec3{1, 0.3, -0.7})

	dense := mat.NewDense(6, 6, nil)
	in.ToMatrix(dense)
	want := denseMulVector(dense, v)
	got := in.Apply(v)
	if !vectorAlmostEqual(got, want, 1e-12) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestInertiaBlocksMatchApply(t *testing.T) {
	in := sampleInertia()
	v := MotionVector(mgl64.Vec3{-0.3, 0.8, 1}, mgl64.Vec3{0.2, -0.5, 0.9})

	got := in.ToBlocks().Apply(v)
	want := in.Apply(v)
	if !vectorAlmostEqual(got, want, 1e-12) {
		t.Errorf("Expected block form to agree with Apply, got %v and %v", got, want)
	}
}

func TestPointMassInertia(t *testing.T) {
	// A point mass at an offset: angular momentum about the origin comes
	// entirely from the parallel-axis shift.
	mass := 3.0
	c := mgl64.Vec3{0, 0, 1}
	in := NewInertia(mass, c, mgl64.Mat3{})

	// Spin about X: the mass moves with velocity omega x c = (0,-w,0).
	w := 2.0
	mom := in.Apply(MotionVector(mgl64.Vec3{w, 0, 0}, mgl64.Vec3{}))

	// I_xx about the origin is m*|c|^2 = m.
	if !almostEqual(mom.Angular[0], mass*w, 1e-12) {
		t.Errorf("Expected angular momentum %v, got %v", mass*w, mom.Angular[0])
	}
	// Linear momentum is m * (omega x c).
	if !vectorAlmostEqual(Vector{Linear: mom.Linear}, Vector{Linear: mgl64.Vec3{0, -mass * w, 0}}, 1e-12) {
		t.Errorf("Expected linear momentum (0,%v,0), got %v", -mass*w, mom.Linear)
	}
}

func TestInertiaTransformEnergyInvariant(t *testing.T) {
	// Pulling an inertia through a frame change must preserve kinetic
	// energy for every velocity.
	x := sampleTransformA()
	dst := sampleInertia()
	src := x.ApplyTransposeInertia(dst)

	velocities := []Vector{
		MotionVector(mgl64.Vec3{1, 0, 0}, mgl64.Vec3{0, 0, 0}),
		MotionVector(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{0, 1, 0}),
		MotionVector(mgl64.Vec3{0.3, -0.7, 1}, mgl64.Vec3{2, 0.5, -1}),
	}
	for _, v := range velocities {
		eSrc := v.Dot(src.Apply(v))
		vDst := x.Apply(v)
		eDst := vDst.Dot(dst.Apply(vDst))
		if !almostEqual(eSrc, eDst, 1e-10) {
			t.Errorf("Expected kinetic energy %v to survive the frame change, got %v", eDst, eSrc)
		}
	}
}

func TestInertiaTransformMatchesDenseSandwich(t *testing.T) {
	x := sampleTransformB()
	dst := sampleInertia()
	src := x.ApplyTransposeInertia(dst)

	xm := mat.NewDense(6, 6, nil)
	x.ToMatrix(xm)
	di := mat.NewDense(6, 6, nil)
	dst.ToMatrix(di)
	var want mat.Dense
	want.Product(xm.T(), di, xm)

	got := mat.NewDense(6, 6, nil)
	src.ToMatrix(got)
	for i := 0; i < 6; i++ {
		for j := 0; j < 6; j++ {
			if !almostEqual(got.At(i, j), want.At(i, j), 1e-10) {
				t.Errorf("Expected entry (%d,%d) = %v, got %v", i, j, want.At(i, j), got.At(i, j))
			}
		}
	}
}

func TestMatrixTransformTranspose(t *testing.T) {
	x := sampleTransformA()
	m := sampleInertia().ToBlocks()

	xm := mat.NewDense(6, 6, nil)
	x.ToMatrix(xm)
	dm := mat.NewDense(6, 6, nil)
	m.ToDense(dm)
	var want mat.Dense
	want.Product(xm.T(), dm, xm)

	got := mat.NewDense(6, 6, nil)
	m.TransformTranspose(x).ToDense(got)
	for i := 0; i < 6; i++ {
		for j := 0; j < 6; j++ {
			if !almostEqual(got.At(i, j), want.At(i, j), 1e-10) {
				t.Errorf("Expected entry (%d,%d) = %v, got %v", i, j, want.At(i, j), got.At(i, j))
			}
		}
	}
}

func TestOuter(t *testing.T) {
	a := MotionVector(mgl64.Vec3{1, -2, 0.5}, mgl64.Vec3{0.3, 1, -1})
	b := MotionVector(mgl64.Vec3{0.7, 0.2, -0.4}, mgl64.Vec3{2, -1, 0.6})
	v := MotionVector(mgl64.Vec3{-0.5, 1, 2}, mgl64.Vec3{1, 0, -0.3})

	got := Outer(a, b).Apply(v)
	want := a.Scale(b.Dot(v))
	if !vectorAlmostEqual(got, want, 1e-12) {
		t.Errorf("Expected a·(b·v) = %v, got %v", want, got)
	}
}
