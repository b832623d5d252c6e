package spatial

import (
	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/mat"
)

// Transform is a compact Plücker transform between two coordinate frames.
// E rotates source-frame coordinates into the destination frame and R is the
// destination origin expressed in source coordinates. A chain of transforms
// composes with Mul; Apply moves motion vectors, ApplyAdjoint and
// ApplyTranspose move force vectors.
type Transform struct {
	E mgl64.Mat3
	R mgl64.Vec3
}

// NewTransform builds a transform from its rotation and origin offset.
func NewTransform(e mgl64.Mat3, r mgl64.Vec3) Transform {
	return Transform{E: e, R: r}
}

// Identity returns the neutral transform.
func Identity() Transform {
	return Transform{E: mgl64.Ident3()}
}

// Translation returns a pure translation by r.
func Translation(r mgl64.Vec3) Transform {
	return Transform{E: mgl64.Ident3(), R: r}
}

// Rotation returns a pure rotation with destination orientation e.
func Rotation(e mgl64.Mat3) Transform {
	return Transform{E: e}
}

// AxisRotation returns the transform to a frame rotated by angle (radians)
// about the given axis of the source frame.
func AxisRotation(angle float64, axis mgl64.Vec3) Transform {
	// E maps source to destination, hence the transpose of the usual
	// rotation matrix.
	return Transform{E: mgl64.QuatRotate(angle, axis).Mat4().Mat3().Transpose()}
}

// Mul composes two transforms; x.Mul(y) applies y first, then x.
func (x Transform) Mul(y Transform) Transform {
	return Transform{
		E: x.E.Mul3(y.E),
		R: y.R.Add(y.E.Transpose().Mul3x1(x.R)),
	}
}

// Inverse returns the transform mapping destination back to source.
func (x Transform) Inverse() Transform {
	return Transform{
		E: x.E.Transpose(),
		R: x.E.Mul3x1(x.R).Mul(-1),
	}
}

// Apply moves a motion vector from the source frame into the destination
// frame: [E·ω; E·(v − r × ω)].
func (x Transform) Apply(v Vector) Vector {
	return Vector{
		Angular: x.E.Mul3x1(v.Angular),
		Linear:  x.E.Mul3x1(v.Linear.Sub(x.R.Cross(v.Angular))),
	}
}

// ApplyInverse moves a motion vector from the destination frame back into
// the source frame.
func (x Transform) ApplyInverse(v Vector) Vector {
	w := x.E.Transpose().Mul3x1(v.Angular)
	return Vector{
		Angular: w,
		Linear:  x.E.Transpose().Mul3x1(v.Linear).Add(x.R.Cross(w)),
	}
}

// ApplyTranspose moves a force vector from the destination frame back into
// the source frame: [Eᵀ·n + r × (Eᵀ·f); Eᵀ·f].
func (x Transform) ApplyTranspose(f Vector) Vector {
	lin := x.E.Transpose().Mul3x1(f.Linear)
	return Vector{
		Angular: x.E.Transpose().Mul3x1(f.Angular).Add(x.R.Cross(lin)),
		Linear:  lin,
	}
}

// ApplyAdjoint moves a force vector from the source frame into the
// destination frame: [E·(n − r × f); E·f].
func (x Transform) ApplyAdjoint(f Vector) Vector {
	return Vector{
		Angular: x.E.Mul3x1(f.Angular.Sub(x.R.Cross(f.Linear))),
		Linear:  x.E.Mul3x1(f.Linear),
	}
}

// TransformPoint maps a point given in source coordinates to destination
// coordinates.
func (x Transform) TransformPoint(p mgl64.Vec3) mgl64.Vec3 {
	return x.E.Mul3x1(p.Sub(x.R))
}

// InverseTransformPoint maps a point given in destination coordinates back
// to source coordinates.
func (x Transform) InverseTransformPoint(p mgl64.Vec3) mgl64.Vec3 {
	return x.E.Transpose().Mul3x1(p).Add(x.R)
}

// ToMatrix writes the 6×6 motion-vector map [[E, 0], [−E·r̂, E]] into dst,
// which must be 6×6.
func (x Transform) ToMatrix(dst *mat.Dense) {
	erx := x.E.Mul3(Skew(x.R))
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			dst.Set(i, j, x.E.At(i, j))
			dst.Set(i, j+3, 0)
			dst.Set(i+3, j, -erx.At(i, j))
			dst.Set(i+3, j+3, x.E.At(i, j))
		}
	}
}

// ToMatrixAdjoint writes the 6×6 force-vector map [[E, −E·r̂], [0, E]] into
// dst, which must be 6×6.
func (x Transform) ToMatrixAdjoint(dst *mat.Dense) {
	erx := x.E.Mul3(Skew(x.R))
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			dst.Set(i, j, x.E.At(i, j))
			dst.Set(i, j+3, -erx.At(i, j))
			dst.Set(i+3, j, 0)
			dst.Set(i+3, j+3, x.E.At(i, j))
		}
	}
}
