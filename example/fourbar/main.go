package main

import (
	"fmt"
	"log"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/akmonengine/armature"
	"github.com/akmonengine/armature/config"
	"github.com/akmonengine/armature/constraint"
	"github.com/akmonengine/armature/spatial"
)

// SetupLinkage builds a planar four-bar: crank and rocker pivot on the
// base one and two meters apart, the coupler rides on the crank tip, and a
// loop constraint pins the coupler's far end onto the rocker tip.
func SetupLinkage(preset *config.Preset) (*armature.Model, *constraint.Set, error) {
	m := armature.New(mgl64.Vec3{0, -9.81, 0})
	short := armature.Body{
		Mass:         1,
		CenterOfMass: mgl64.Vec3{0.5, 0, 0},
		Inertia:      mgl64.Diag3(mgl64.Vec3{0.001, 1.0 / 12, 1.0 / 12}),
	}
	long := armature.Body{
		Mass:         1,
		CenterOfMass: mgl64.Vec3{1, 0, 0},
		Inertia:      mgl64.Diag3(mgl64.Vec3{0.001, 1.0 / 3, 1.0 / 3}),
	}
	crank := m.AddBody(0, spatial.Identity(), armature.RevoluteJoint(mgl64.Vec3{0, 0, 1}), short, "crank")
	coupler := m.AddBody(crank, spatial.Translation(mgl64.Vec3{1, 0, 0}), armature.RevoluteJoint(mgl64.Vec3{0, 0, 1}), long, "coupler")
	rocker := m.AddBody(0, spatial.Translation(mgl64.Vec3{2, 0, 0}), armature.RevoluteJoint(mgl64.Vec3{0, 0, 1}), short, "rocker")

	method, err := preset.Method()
	if err != nil {
		return nil, nil, err
	}
	s := constraint.NewSet()
	s.Method = method

	stab := constraint.Baumgarte{
		Enabled:      preset.BaumgarteTau > 0,
		TimeConstant: preset.BaumgarteTau,
	}
	axes := []constraint.LoopAxis{
		{Axis: spatial.Vector{Linear: mgl64.Vec3{1, 0, 0}}, PositionLevel: true, VelocityLevel: true},
		{Axis: spatial.Vector{Linear: mgl64.Vec3{0, 1, 0}}, PositionLevel: true, VelocityLevel: true},
	}
	if _, err := s.AddLoopGroup(coupler, rocker,
		spatial.Translation(mgl64.Vec3{2, 0, 0}),
		spatial.Translation(mgl64.Vec3{1, 0, 0}),
		axes, stab, "closure"); err != nil {
		return nil, nil, err
	}
	if err := s.Bind(m); err != nil {
		return nil, nil, err
	}
	return m, s, nil
}

// RunFourBar assembles the linkage, spins the crank, and integrates a few
// seconds of constrained dynamics with semi-implicit Euler steps.
func RunFourBar(preset *config.Preset) error {
	m, s, err := SetupLinkage(preset)
	if err != nil {
		return err
	}

	q := make([]float64, m.QSize())
	qdot := make([]float64, m.DoF())
	tau := make([]float64, m.DoF())
	qddot := make([]float64, m.DoF())

	// Start near the crank-up pose; the assembly solver lands the linkage
	// exactly on the closure.
	q[0] = math.Pi/2 + 0.05
	q[1] = -math.Pi / 2
	q[2] = math.Pi/2 - 0.08

	weights := preset.Weights
	if len(weights) != m.DoF() {
		weights = make([]float64, m.DoF())
		for i := range weights {
			weights[i] = 1
		}
	}

	ok, err := s.AssemblePosition(m, q, weights, preset.AssemblyTol, preset.AssemblyMaxIter)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("position assembly did not converge")
	}
	if err := s.AssembleVelocity(m, q, []float64{2, 0, 0}, weights, qdot); err != nil {
		return err
	}

	fmt.Printf("Four-bar linkage, %d constraint rows, solver %s\n", s.Size(), s.Method)
	fmt.Printf("Assembled: q=[%.4f %.4f %.4f] qdot=[%.4f %.4f %.4f]\n\n",
		q[0], q[1], q[2], qdot[0], qdot[1], qdot[2])

	const (
		dt    = 1.0 / 240.0
		steps = 720 // three seconds
	)

	for step := 0; step < steps; step++ {
		if err := s.ForwardDynamicsDirect(m, q, qdot, tau, nil, qddot); err != nil {
			return err
		}
		// Semi-implicit Euler: velocities first, then positions. Every
		// joint is revolute, so q and qdot share indexing.
		for i := range qdot {
			qdot[i] += dt * qddot[i]
			q[i] += dt * qdot[i]
		}

		if (step+1)%60 == 0 {
			if err := s.PositionErrors(m, q, true); err != nil {
				return err
			}
			gap := math.Hypot(s.Err[0], s.Err[1])
			tip := m.BodyToBase(2, mgl64.Vec3{2, 0, 0})
			fmt.Printf("t=%5.2fs  crank=%7.4f rad  tip=(%7.4f, %7.4f)  gap=%.2e  force=(%8.4f, %8.4f)\n",
				float64(step+1)*dt, q[0], tip[0], tip[1], gap, s.Force[0], s.Force[1])
		}
	}
	return nil
}

func main() {
	preset := config.DefaultPreset()
	if err := RunFourBar(preset); err != nil {
		log.Fatalf("fourbar: %v", err)
	}
}
