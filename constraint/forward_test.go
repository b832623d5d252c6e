package constraint

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/akmonengine/armature"
	"github.com/akmonengine/armature/spatial"
)

// scenario is one bound model/constraint pairing with an evaluation state.
type scenario struct {
	name string
	m    *armature.Model
	s    *Set
	q    []float64
	qdot []float64
	tau  []float64
}

// constrainedScenarios covers the three constraint families, including a
// square system (as many rows as degrees of freedom) and a redundant tree
// state off the constraint manifold.
func constrainedScenarios(t *testing.T) []scenario {
	t.Helper()

	particle := particleModel(2.5)
	particleSet := NewSet()
	particleSet.AddContact(3, mgl64.Vec3{}, mgl64.Vec3{0, 0, 1}, "plane", false)

	arm := armModel(2)
	armSet := armContactSet(2)

	fourBar := fourBarModel()
	loopSet := fourBarSet()

	locked := armModel(3)
	lockSet := NewSet()
	lockSet.AddCustom(&jointLock{joint: 1, target: -0.4}, Baumgarte{}, "lock")

	out := []scenario{
		{"particle on plane", particle, particleSet,
			[]float64{0.1, -0.2, 0}, []float64{0.2, -0.1, 0.3}, []float64{0, 0, 0}},
		{"arm tip contact", arm, armSet,
			[]float64{0.3, -0.4}, []float64{0.5, -0.2}, []float64{0.1, 0.05}},
		{"four-bar closure", fourBar, loopSet,
			fourBarQ(), []float64{0.2, 0, -0.1}, []float64{0.4, -0.4, 0.4}},
		{"locked joint", locked, lockSet,
			[]float64{0.3, -0.4, 0.7}, []float64{0.5, 0, -0.2}, []float64{0.1, 0, 0.2}},
	}
	for _, sc := range out {
		if err := sc.s.Bind(sc.m); err != nil {
			t.Fatalf("Expected %s to bind, got %v", sc.name, err)
		}
	}
	return out
}

func TestForwardDynamicsSolverAgreement(t *testing.T) {
	drivers := []struct {
		name  string
		solve func(*Set, *armature.Model, []float64, []float64, []float64, []spatial.Vector, []float64) error
	}{
		{"range-space", (*Set).ForwardDynamicsRangeSpaceSparse},
		{"null-space", (*Set).ForwardDynamicsNullSpace},
	}

	for _, sc := range constrainedScenarios(t) {
		t.Run(sc.name, func(t *testing.T) {
			dof := sc.m.DoF()
			ref := make([]float64, dof)
			if err := sc.s.ForwardDynamicsDirect(sc.m, sc.q, sc.qdot, sc.tau, nil, ref); err != nil {
				t.Fatalf("Expected the direct solve to succeed, got %v", err)
			}
			refForce := append([]float64(nil), sc.s.Force...)

			for _, d := range drivers {
				t.Run(d.name, func(t *testing.T) {
					got := make([]float64, dof)
					if err := d.solve(sc.s, sc.m, sc.q, sc.qdot, sc.tau, nil, got); err != nil {
						t.Fatalf("Expected the solve to succeed, got %v", err)
					}
					for k := range ref {
						if !almostEqual(got[k], ref[k], 1e-9) {
							t.Errorf("Expected qddot[%d] = %v, got %v", k, ref[k], got[k])
						}
					}
					for r := range refForce {
						if !almostEqual(sc.s.Force[r], refForce[r], 1e-9) {
							t.Errorf("Expected force[%d] = %v, got %v", r, refForce[r], sc.s.Force[r])
						}
					}
				})
			}
		})
	}
}

func TestForwardDynamicsEquationsHold(t *testing.T) {
	for _, sc := range constrainedScenarios(t) {
		t.Run(sc.name, func(t *testing.T) {
			dof := sc.m.DoF()
			rows := sc.s.Size()
			qddot := make([]float64, dof)
			if err := sc.s.ForwardDynamicsDirect(sc.m, sc.q, sc.qdot, sc.tau, nil, qddot); err != nil {
				t.Fatal(err)
			}

			// Equations of motion with the constraint forces applied.
			for i := 0; i < dof; i++ {
				lhs := sc.s.C[i] - sc.tau[i]
				for j := 0; j < dof; j++ {
					lhs += sc.s.H.At(i, j) * qddot[j]
				}
				for r := 0; r < rows; r++ {
					lhs -= sc.s.G.At(r, i) * sc.s.Force[r]
				}
				if !almostEqual(lhs, 0, 1e-9) {
					t.Errorf("Expected force balance at dof %d, residual %v", i, lhs)
				}
			}

			// Constraint accelerations meet the bias term.
			for r := 0; r < rows; r++ {
				sum := 0.0
				for j := 0; j < dof; j++ {
					sum += sc.s.G.At(r, j) * qddot[j]
				}
				if !almostEqual(sum, sc.s.Gamma[r], 1e-9) {
					t.Errorf("Expected G*qddot = Gamma at row %d, got %v vs %v", r, sum, sc.s.Gamma[r])
				}
			}
		})
	}
}

func TestParticleContactForce(t *testing.T) {
	mass := 2.5
	m := particleModel(mass)
	s := NewSet()
	s.AddContact(3, mgl64.Vec3{}, mgl64.Vec3{0, 0, 1}, "plane", false)
	if err := s.Bind(m); err != nil {
		t.Fatal(err)
	}

	t.Run("resting", func(t *testing.T) {
		qddot := make([]float64, 3)
		err := s.ForwardDynamicsDirect(m, make([]float64, 3), make([]float64, 3), make([]float64, 3), nil, qddot)
		if err != nil {
			t.Fatal(err)
		}
		for k := range qddot {
			if !almostEqual(qddot[k], 0, 1e-10) {
				t.Errorf("Expected the particle to rest, got qddot[%d] = %v", k, qddot[k])
			}
		}
		if want := mass * 9.81; !almostEqual(s.Force[0], want, 1e-9) {
			t.Errorf("Expected the plane to carry the weight %v, got %v", want, s.Force[0])
		}
	})

	t.Run("partially unloaded", func(t *testing.T) {
		qddot := make([]float64, 3)
		err := s.ForwardDynamicsDirect(m, make([]float64, 3), make([]float64, 3), []float64{1, 0, 5}, nil, qddot)
		if err != nil {
			t.Fatal(err)
		}
		if want := 1 / mass; !almostEqual(qddot[0], want, 1e-10) {
			t.Errorf("Expected free sliding qddot[0] = %v, got %v", want, qddot[0])
		}
		if !almostEqual(qddot[2], 0, 1e-10) {
			t.Errorf("Expected the normal acceleration pinned, got %v", qddot[2])
		}
		if want := mass*9.81 - 5; !almostEqual(s.Force[0], want, 1e-9) {
			t.Errorf("Expected normal force %v, got %v", want, s.Force[0])
		}
	})
}

func TestJointLockHoldsCoordinate(t *testing.T) {
	m := armModel(3)
	s := NewSet()
	s.AddCustom(&jointLock{joint: 1, target: -0.4}, Baumgarte{}, "lock")
	if err := s.Bind(m); err != nil {
		t.Fatal(err)
	}

	qddot := make([]float64, 3)
	err := s.ForwardDynamicsDirect(m, []float64{0.3, -0.4, 0.7}, []float64{0.5, 0, -0.2}, make([]float64, 3), nil, qddot)
	if err != nil {
		t.Fatal(err)
	}
	if !almostEqual(qddot[1], 0, 1e-10) {
		t.Errorf("Expected the locked coordinate to hold, got qddot[1] = %v", qddot[1])
	}
}

func TestBaumgarteStabilization(t *testing.T) {
	m := armModel(2)
	s := NewSet()
	s.AddContact(2, mgl64.Vec3{1, 0, 0}, mgl64.Vec3{0, 1, 0}, "tip", false)
	if err := s.Bind(m); err != nil {
		t.Fatal(err)
	}
	c := s.Constraints()[0].(*Contact)

	// Anchor the ground point at a reference pose, then evaluate slightly
	// off it so both error levels are populated.
	qRef := []float64{0.3, -0.4}
	m.UpdateKinematicsCustom(qRef, nil, nil)
	ground := m.BodyToBase(2, c.Point)

	q := []float64{0.35, -0.32}
	qdot := []float64{0.2, -0.1}
	tau := make([]float64, 2)

	t.Run("position errors follow the gate", func(t *testing.T) {
		if err := s.ComputeSystemVariables(m, q, qdot, tau, nil); err != nil {
			t.Fatal(err)
		}
		if s.Err[0] != 0 {
			t.Errorf("Expected no position error while gated off, got %v", s.Err[0])
		}

		c.PositionLevel = true
		c.GroundPoint = ground
		if err := s.ComputeSystemVariables(m, q, qdot, tau, nil); err != nil {
			t.Fatal(err)
		}
		m.UpdateKinematicsCustom(q, nil, nil)
		want := m.BodyToBase(2, c.Point).Sub(ground)[1]
		if !almostEqual(s.Err[0], want, 1e-12) {
			t.Errorf("Expected position error %v, got %v", want, s.Err[0])
		}
		if s.Err[0] == 0 {
			t.Error("Expected a nonzero gap for this pose")
		}
	})

	t.Run("feedback biases the target acceleration", func(t *testing.T) {
		c.PositionLevel = true
		c.GroundPoint = ground
		bg := c.Stabilization()
		bg.Enabled = false

		if err := s.ComputeSystemVariables(m, q, qdot, tau, nil); err != nil {
			t.Fatal(err)
		}
		plain := s.Gamma[0]
		errP, errV := s.Err[0], s.ErrD[0]
		if errP == 0 || errV == 0 {
			t.Fatal("Expected both error levels populated for this pose")
		}

		bg.Enabled = true
		bg.TimeConstant = 0.2
		if err := s.ComputeSystemVariables(m, q, qdot, tau, nil); err != nil {
			t.Fatal(err)
		}
		want := plain - (2/0.2)*errV - (1/(0.2*0.2))*errP
		if !almostEqual(s.Gamma[0], want, 1e-10) {
			t.Errorf("Expected stabilized bias %v, got %v", want, s.Gamma[0])
		}
	})

	t.Run("nonpositive time constant fails the assembly", func(t *testing.T) {
		bg := c.Stabilization()
		bg.Enabled = true
		bg.TimeConstant = 0
		if err := s.ComputeSystemVariables(m, q, qdot, tau, nil); err == nil {
			t.Error("Expected an error for a zero time constant")
		}
		bg.Enabled = false
	})
}

func TestLoopVelocityLevelGate(t *testing.T) {
	m := fourBarModel()
	s := fourBarSet()
	l := s.Constraints()[0].(*Loop)
	l.Axes[0].VelocityLevel = false
	if err := s.Bind(m); err != nil {
		t.Fatal(err)
	}

	// Spinning the crank alone drags the coupler attachment point with
	// velocity (-1, 2, 0) while the rocker holds still.
	q := fourBarQ()
	qdot := []float64{1, 0, 0}
	if err := s.ComputeSystemVariables(m, q, qdot, make([]float64, 3), nil); err != nil {
		t.Fatal(err)
	}
	if s.ErrD[0] != 0 {
		t.Errorf("Expected the gated axis to report zero, got %v", s.ErrD[0])
	}
	if !almostEqual(s.ErrD[1], -2, 1e-12) {
		t.Errorf("Expected velocity error -2 on the open axis, got %v", s.ErrD[1])
	}
}

func TestNullSpaceRequiresThinSystem(t *testing.T) {
	m := particleModel(1)
	s := NewSet()
	s.AddContactGroup(3, mgl64.Vec3{}, []mgl64.Vec3{
		{1, 0, 0}, {0, 1, 0}, {0, 0, 1}, {1, 1, 0},
	}, "overfull")
	if err := s.Bind(m); err != nil {
		t.Fatal(err)
	}

	qddot := make([]float64, 3)
	err := s.ForwardDynamicsNullSpace(m, make([]float64, 3), make([]float64, 3), make([]float64, 3), nil, qddot)
	if !errors.Is(err, ErrDimension) {
		t.Errorf("Expected ErrDimension with more rows than degrees of freedom, got %v", err)
	}
}
