package spatial

import (
	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/mat"
)

// Inertia is the spatial inertia of a rigid body expressed at the body-frame
// origin: the mass, the first mass moment H = m·com, and the 3×3 rotational
// inertia about the origin.
type Inertia struct {
	Mass float64
	H    mgl64.Vec3
	I    mgl64.Mat3
}

// NewInertia builds the spatial inertia of a body with the given mass,
// center of mass (body coordinates) and rotational inertia about the center
// of mass, shifting the rotational part to the body origin.
func NewInertia(mass float64, com mgl64.Vec3, icom mgl64.Mat3) Inertia {
	cx := Skew(com)
	return Inertia{
		Mass: mass,
		H:    com.Mul(mass),
		I:    icom.Add(cx.Mul3(cx.Transpose()).Mul(mass)),
	}
}

// Apply maps a motion vector to the momentum-like force vector I·v.
func (in Inertia) Apply(v Vector) Vector {
	return Vector{
		Angular: in.I.Mul3x1(v.Angular).Add(in.H.Cross(v.Linear)),
		Linear:  v.Linear.Mul(in.Mass).Sub(in.H.Cross(v.Angular)),
	}
}

// Add combines two inertias expressed in the same frame.
func (in Inertia) Add(other Inertia) Inertia {
	return Inertia{
		Mass: in.Mass + other.Mass,
		H:    in.H.Add(other.H),
		I:    in.I.Add(other.I),
	}
}

// ApplyTransposeInertia moves an inertia expressed in the transform's
// destination frame back into its source frame (the 6×6 sandwich Xᵀ·I·X in
// compact form). This is the push step of the composite rigid-body
// algorithm.
func (x Transform) ApplyTransposeInertia(in Inertia) Inertia {
	etH := x.E.Transpose().Mul3x1(in.H)
	h := etH.Add(x.R.Mul(in.Mass))
	return Inertia{
		Mass: in.Mass,
		H:    h,
		I: x.E.Transpose().Mul3(in.I).Mul3(x.E).
			Sub(Skew(x.R).Mul3(Skew(etH))).
			Sub(Skew(h).Mul3(Skew(x.R))),
	}
}

// ToMatrix writes the 6×6 form [[I, ĥ], [ĥᵀ, m·1]] into dst, which must be
// 6×6.
func (in Inertia) ToMatrix(dst *mat.Dense) {
	hx := Skew(in.H)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			dst.Set(i, j, in.I.At(i, j))
			dst.Set(i, j+3, hx.At(i, j))
			dst.Set(i+3, j, -hx.At(i, j))
			var m float64
			if i == j {
				m = in.Mass
			}
			dst.Set(i+3, j+3, m)
		}
	}
}

// ToBlocks returns the same 6×6 operator as a block Matrix.
func (in Inertia) ToBlocks() Matrix {
	hx := Skew(in.H)
	return Matrix{
		A: in.I,
		B: hx,
		C: hx.Transpose(),
		D: mgl64.Ident3().Mul(in.Mass),
	}
}

// Matrix is a 6×6 spatial operator stored as four 3×3 blocks,
//
//	[ A  B ]
//	[ C  D ]
//
// used for articulated-body inertias, which do not stay in rigid-body form.
type Matrix struct {
	A, B, C, D mgl64.Mat3
}

func (m Matrix) Add(n Matrix) Matrix {
	return Matrix{m.A.Add(n.A), m.B.Add(n.B), m.C.Add(n.C), m.D.Add(n.D)}
}

func (m Matrix) Sub(n Matrix) Matrix {
	return Matrix{m.A.Sub(n.A), m.B.Sub(n.B), m.C.Sub(n.C), m.D.Sub(n.D)}
}

func (m Matrix) Scale(c float64) Matrix {
	return Matrix{m.A.Mul(c), m.B.Mul(c), m.C.Mul(c), m.D.Mul(c)}
}

// Apply multiplies the operator with a 6-D vector.
func (m Matrix) Apply(v Vector) Vector {
	return Vector{
		Angular: m.A.Mul3x1(v.Angular).Add(m.B.Mul3x1(v.Linear)),
		Linear:  m.C.Mul3x1(v.Angular).Add(m.D.Mul3x1(v.Linear)),
	}
}

// Outer returns the rank-one operator a·bᵀ of two 6-D vectors.
func Outer(a, b Vector) Matrix {
	return Matrix{
		A: outer3(a.Angular, b.Angular),
		B: outer3(a.Angular, b.Linear),
		C: outer3(a.Linear, b.Angular),
		D: outer3(a.Linear, b.Linear),
	}
}

func outer3(a, b mgl64.Vec3) mgl64.Mat3 {
	var m mgl64.Mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			m.Set(i, j, a[i]*b[j])
		}
	}
	return m
}

// TransformTranspose computes Xᵀ·m·X, moving an inertia-like operator from
// the transform's destination frame back into its source frame.
func (m Matrix) TransformTranspose(x Transform) Matrix {
	rx := Skew(x.R)
	et := x.E.Transpose()
	// M·X with X = [[E, 0], [−E·r̂, E]]
	erx := x.E.Mul3(rx)
	ma := m.A.Mul3(x.E).Sub(m.B.Mul3(erx))
	mb := m.B.Mul3(x.E)
	mc := m.C.Mul3(x.E).Sub(m.D.Mul3(erx))
	md := m.D.Mul3(x.E)
	// Xᵀ·(M·X) with Xᵀ = [[Eᵀ, r̂·Eᵀ], [0, Eᵀ]]
	rxet := rx.Mul3(et)
	return Matrix{
		A: et.Mul3(ma).Add(rxet.Mul3(mc)),
		B: et.Mul3(mb).Add(rxet.Mul3(md)),
		C: et.Mul3(mc),
		D: et.Mul3(md),
	}
}

// ToDense writes the operator into dst, which must be 6×6.
func (m Matrix) ToDense(dst *mat.Dense) {
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			dst.Set(i, j, m.A.At(i, j))
			dst.Set(i, j+3, m.B.At(i, j))
			dst.Set(i+3, j, m.C.At(i, j))
			dst.Set(i+3, j+3, m.D.At(i, j))
		}
	}
}
