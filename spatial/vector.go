// Package spatial implements the 6-D spatial algebra of articulated
// rigid-body dynamics: motion and force vectors, Plücker coordinate
// transforms and rigid-body inertias, built on mgl64 value types.
package spatial

import (
	"github.com/go-gl/mathgl/mgl64"
)

// Vector is a 6-D spatial vector. A motion vector holds [angular velocity;
// linear velocity] (rad/s, m/s), a force vector holds [moment; linear force]
// (N·m, N). Both share this representation; only the transform rules differ.
type Vector struct {
	Angular mgl64.Vec3
	Linear  mgl64.Vec3
}

// MotionVector builds a motion vector from its angular and linear parts.
func MotionVector(angular, linear mgl64.Vec3) Vector {
	return Vector{Angular: angular, Linear: linear}
}

// ForceVector builds a force vector from its moment and linear force parts.
func ForceVector(moment, force mgl64.Vec3) Vector {
	return Vector{Angular: moment, Linear: force}
}

func (v Vector) Add(u Vector) Vector {
	return Vector{v.Angular.Add(u.Angular), v.Linear.Add(u.Linear)}
}

func (v Vector) Sub(u Vector) Vector {
	return Vector{v.Angular.Sub(u.Angular), v.Linear.Sub(u.Linear)}
}

func (v Vector) Scale(c float64) Vector {
	return Vector{v.Angular.Mul(c), v.Linear.Mul(c)}
}

// Dot is the full 6-D scalar product. Pairing a motion with a force vector
// yields the instantaneous power.
func (v Vector) Dot(u Vector) float64 {
	return v.Angular.Dot(u.Angular) + v.Linear.Dot(u.Linear)
}

func (v Vector) IsZero() bool {
	return v.Angular == mgl64.Vec3{} && v.Linear == mgl64.Vec3{}
}

// At returns component i with the angular part in 0..2 and the linear part
// in 3..5.
func (v Vector) At(i int) float64 {
	if i < 3 {
		return v.Angular[i]
	}
	return v.Linear[i-3]
}

// SetAt assigns component i, same layout as At.
func (v *Vector) SetAt(i int, value float64) {
	if i < 3 {
		v.Angular[i] = value
	} else {
		v.Linear[i-3] = value
	}
}

// CrossM is the spatial cross product of two motion vectors,
//
//	v ×m u = [ω_v × ω_u; ω_v × u_lin + v_lin × ω_u]
//
// the time derivative of u seen from a frame moving with v.
func (v Vector) CrossM(u Vector) Vector {
	return Vector{
		Angular: v.Angular.Cross(u.Angular),
		Linear:  v.Angular.Cross(u.Linear).Add(v.Linear.Cross(u.Angular)),
	}
}

// CrossF is the spatial cross product of a motion vector with a force
// vector,
//
//	v ×f f = [ω_v × n + v_lin × f_lin; ω_v × f_lin]
//
// the rate of change of the force vector f seen from a frame moving with v.
func (v Vector) CrossF(f Vector) Vector {
	return Vector{
		Angular: v.Angular.Cross(f.Angular).Add(v.Linear.Cross(f.Linear)),
		Linear:  v.Angular.Cross(f.Linear),
	}
}

// Skew returns the cross-product matrix of v, so that Skew(v)·u = v × u.
func Skew(v mgl64.Vec3) mgl64.Mat3 {
	// column-major storage
	return mgl64.Mat3{
		0, v[2], -v[1],
		-v[2], 0, v[0],
		v[1], -v[0], 0,
	}
}
