package constraint

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/akmonengine/armature"
	"github.com/akmonengine/armature/spatial"
)

// sphericalPinModel hangs a body from the base through a ball joint; the
// tests pin its tip at (0,0,-1) laterally.
func sphericalPinModel() *armature.Model {
	m := armature.New(mgl64.Vec3{0, 0, -9.81})
	m.AddBody(0, spatial.Identity(), armature.SphericalJoint(),
		armature.Body{
			Mass:         1,
			CenterOfMass: mgl64.Vec3{0, 0, -0.5},
			Inertia:      mgl64.Diag3(mgl64.Vec3{0.05, 0.05, 0.01}),
		}, "bob")
	return m
}

func sphericalPinSet() *Set {
	s := NewSet()
	s.AddContactGroup(1, mgl64.Vec3{0, 0, -1},
		[]mgl64.Vec3{{1, 0, 0}, {0, 1, 0}}, "pin")
	c := s.Constraints()[0].(*Contact)
	c.PositionLevel = true
	c.GroundPoint = mgl64.Vec3{0, 0, -1}
	return s
}

func TestAssemblePositionFourBar(t *testing.T) {
	m := fourBarModel()
	s := fourBarSet()
	if err := s.Bind(m); err != nil {
		t.Fatal(err)
	}
	weights := []float64{1, 1, 1}

	t.Run("converges from a perturbed pose", func(t *testing.T) {
		q := fourBarQ()
		q[0] += 0.05
		q[1] -= 0.03
		q[2] += 0.08

		ok, err := s.AssemblePosition(m, q, weights, 1e-10, 50)
		if err != nil {
			t.Fatalf("Expected assembly to succeed, got %v", err)
		}
		if !ok {
			t.Fatal("Expected convergence from a small perturbation")
		}

		if err := s.PositionErrors(m, q, true); err != nil {
			t.Fatal(err)
		}
		for r, e := range s.Err {
			if !almostEqual(e, 0, 1e-9) {
				t.Errorf("Expected closed loop at row %d, error %v", r, e)
			}
		}

		// The two attachment points coincide again.
		m.UpdateKinematicsCustom(q, nil, nil)
		pp := m.BodyToBase(2, mgl64.Vec3{2, 0, 0})
		ps := m.BodyToBase(3, mgl64.Vec3{1, 0, 0})
		if gap := pp.Sub(ps).Len(); gap > 1e-8 {
			t.Errorf("Expected coincident attachment points, gap %v", gap)
		}
	})

	t.Run("assembled pose is untouched", func(t *testing.T) {
		q := fourBarQ()
		want := fourBarQ()
		ok, err := s.AssemblePosition(m, q, weights, 1e-8, 50)
		if err != nil || !ok {
			t.Fatalf("Expected immediate success, got ok=%v err=%v", ok, err)
		}
		for k := range q {
			if q[k] != want[k] {
				t.Errorf("Expected q[%d] unchanged at %v, got %v", k, want[k], q[k])
			}
		}
	})

	t.Run("weights must match the degrees of freedom", func(t *testing.T) {
		q := fourBarQ()
		if _, err := s.AssemblePosition(m, q, []float64{1, 1}, 1e-8, 10); !errors.Is(err, ErrDimension) {
			t.Errorf("Expected ErrDimension, got %v", err)
		}
	})
}

func TestAssembleVelocityFourBar(t *testing.T) {
	m := fourBarModel()
	s := fourBarSet()
	if err := s.Bind(m); err != nil {
		t.Fatal(err)
	}
	q := fourBarQ()
	weights := []float64{1, 1, 1}

	qdot := make([]float64, 3)
	if err := s.AssembleVelocity(m, q, []float64{1, 0.3, -0.2}, weights, qdot); err != nil {
		t.Fatal(err)
	}

	t.Run("projected rates close the loop", func(t *testing.T) {
		if err := s.VelocityErrors(m, q, qdot, true); err != nil {
			t.Fatal(err)
		}
		for r, e := range s.ErrD {
			if !almostEqual(e, 0, 1e-9) {
				t.Errorf("Expected zero loop velocity at row %d, got %v", r, e)
			}
		}
	})

	t.Run("feasible rates are a fixed point", func(t *testing.T) {
		again := make([]float64, 3)
		if err := s.AssembleVelocity(m, q, qdot, weights, again); err != nil {
			t.Fatal(err)
		}
		for k := range qdot {
			if !almostEqual(again[k], qdot[k], 1e-10) {
				t.Errorf("Expected qdot[%d] to stay %v, got %v", k, qdot[k], again[k])
			}
		}
	})

	t.Run("sizes are checked", func(t *testing.T) {
		if err := s.AssembleVelocity(m, q, []float64{1}, weights, qdot); !errors.Is(err, ErrDimension) {
			t.Errorf("Expected ErrDimension, got %v", err)
		}
	})
}

func TestAssemblePositionSpherical(t *testing.T) {
	m := sphericalPinModel()
	s := sphericalPinSet()
	if err := s.Bind(m); err != nil {
		t.Fatal(err)
	}

	q := make([]float64, m.QSize())
	m.SetQuaternion(1, mgl64.QuatRotate(0.15, mgl64.Vec3{1, 0, 0}), q)

	ok, err := s.AssemblePosition(m, q, []float64{1, 1, 1}, 1e-10, 50)
	if err != nil {
		t.Fatalf("Expected assembly to succeed, got %v", err)
	}
	if !ok {
		t.Fatal("Expected convergence for the swung pendulum")
	}

	quat := m.Quaternion(1, q)
	if !almostEqual(quat.Len(), 1, 1e-9) {
		t.Errorf("Expected a unit quaternion, got norm %v", quat.Len())
	}

	m.UpdateKinematicsCustom(q, nil, nil)
	tip := m.BodyToBase(1, mgl64.Vec3{0, 0, -1})
	if !almostEqual(tip[0], 0, 1e-8) || !almostEqual(tip[1], 0, 1e-8) {
		t.Errorf("Expected the tip back on the vertical axis, got %v", tip)
	}
	if !almostEqual(tip[2], -1, 1e-8) {
		t.Errorf("Expected the tip at depth -1, got %v", tip[2])
	}
}

func TestAssembleVelocitySpherical(t *testing.T) {
	m := sphericalPinModel()
	s := sphericalPinSet()
	if err := s.Bind(m); err != nil {
		t.Fatal(err)
	}

	q := make([]float64, m.QSize())
	m.SetQuaternion(1, mgl64.QuatIdent(), q)

	// With the tip pinned laterally only spin about the vertical axis
	// survives the projection.
	qdot := make([]float64, 3)
	if err := s.AssembleVelocity(m, q, []float64{0.4, 0.2, 0.7}, []float64{1, 1, 1}, qdot); err != nil {
		t.Fatal(err)
	}
	want := []float64{0, 0, 0.7}
	for k := range want {
		if !almostEqual(qdot[k], want[k], 1e-10) {
			t.Errorf("Expected qdot[%d] = %v, got %v", k, want[k], qdot[k])
		}
	}
}
