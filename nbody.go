package orrery

import (
	"errors"
	"fmt"
	"math"
	"runtime"
	"strings"
	"sync"
)

// G is the universal gravitational constant in m³/(kg·s²).
const G = 6.67430e-11

// defaultParallelThreshold is the body count below which force evaluation
// stays sequential, since goroutine dispatch overhead dominates at small n.
const defaultParallelThreshold = 64

// ErrNonFiniteForce is returned when a force evaluation produces NaN or Inf,
// so a corrupted step fails loudly instead of silently poisoning the system.
var ErrNonFiniteForce = errors.New("force evaluation produced a non-finite acceleration")

// IntegrationMethod defines an enum of integration schemes.
type IntegrationMethod uint8

const (
	// Euler is the first order explicit scheme. Cheapest, drifts over
	// orbital timescales.
	Euler IntegrationMethod = iota + 1
	// RK2 is the second order midpoint scheme.
	RK2
	// RK4 is the classic fourth order Runge-Kutta scheme, the default.
	RK4
)

func (m IntegrationMethod) String() string {
	switch m {
	case Euler:
		return "euler"
	case RK2:
		return "rk2"
	case RK4:
		return "rk4"
	}
	panic("cannot stringify unknown integration method")
}

// ParseIntegrationMethod returns the method matching the given name.
func ParseIntegrationMethod(name string) (IntegrationMethod, error) {
	switch strings.ToLower(name) {
	case "euler":
		return Euler, nil
	case "rk2", "midpoint":
		return RK2, nil
	case "rk4":
		return RK4, nil
	default:
		return 0, fmt.Errorf("unknown integration method '%s'", name)
	}
}

// System maintains the live set of simulated bodies and advances them through
// time using pairwise Newtonian gravity and the selected integration scheme.
type System struct {
	Bodies []*CelestialBody
	Method IntegrationMethod

	workers           int
	parallelThreshold int
}

// NewSystem returns an empty system using the given scheme. A non-positive
// worker count defaults to the machine CPU count; a non-positive threshold
// uses the package default.
func NewSystem(method IntegrationMethod, workers, parallelThreshold int) *System {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if parallelThreshold <= 0 {
		parallelThreshold = defaultParallelThreshold
	}
	return &System{Method: method, workers: workers, parallelThreshold: parallelThreshold}
}

// Step advances every body by dt seconds. On error no body state is modified.
// Bodies marked Analytic are held fixed for the caller to reposition from
// their elements; their mass still sources gravity for the others.
func (s *System) Step(dt float64) error {
	n := len(s.Bodies)
	if n == 0 {
		return nil
	}
	pos := make([]Vector3, n)
	vel := make([]Vector3, n)
	for i, b := range s.Bodies {
		pos[i] = b.Position
		vel[i] = b.Velocity
	}
	acc := make([]Vector3, n)
	var err error
	switch s.Method {
	case Euler:
		err = s.eulerStep(pos, vel, acc, dt)
	case RK2:
		err = s.rk2Step(pos, vel, acc, dt)
	case RK4:
		err = s.rk4Step(pos, vel, acc, dt)
	default:
		return fmt.Errorf("unknown integration method %d", s.Method)
	}
	if err != nil {
		return fmt.Errorf("%s step failed: %w", s.Method, err)
	}
	for i, b := range s.Bodies {
		if b.Analytic {
			continue
		}
		b.Position = pos[i]
		b.Velocity = vel[i]
		b.Acceleration = acc[i]
	}
	return nil
}

// eulerStep: one force evaluation, v += a·dt, x += v·dt.
func (s *System) eulerStep(pos, vel, acc []Vector3, dt float64) error {
	if err := s.accelerations(pos, acc); err != nil {
		return err
	}
	for i := range pos {
		vel[i] = vel[i].Add(acc[i].Scale(dt))
		pos[i] = pos[i].Add(vel[i].Scale(dt))
	}
	return nil
}

// rk2Step: midpoint scheme. Forces at t step everything half a dt, forces at
// the midpoint are applied over the full dt.
func (s *System) rk2Step(pos, vel, acc []Vector3, dt float64) error {
	n := len(pos)
	if err := s.accelerations(pos, acc); err != nil {
		return err
	}
	midPos := make([]Vector3, n)
	midVel := make([]Vector3, n)
	for i := range pos {
		midPos[i] = pos[i].Add(vel[i].Scale(dt / 2))
		midVel[i] = vel[i].Add(acc[i].Scale(dt / 2))
	}
	a2 := make([]Vector3, n)
	if err := s.accelerations(midPos, a2); err != nil {
		return err
	}
	for i := range pos {
		pos[i] = pos[i].Add(midVel[i].Scale(dt))
		vel[i] = vel[i].Add(a2[i].Scale(dt))
	}
	copy(acc, a2)
	return nil
}

// rk4Step: the classic four stage scheme on the coupled (x, v) system.
func (s *System) rk4Step(pos, vel, acc []Vector3, dt float64) error {
	n := len(pos)
	k1v := acc // k1x is vel itself
	if err := s.accelerations(pos, k1v); err != nil {
		return err
	}

	tmp := make([]Vector3, n)
	k2v := make([]Vector3, n)
	k2x := make([]Vector3, n)
	for i := range pos {
		tmp[i] = pos[i].Add(vel[i].Scale(dt / 2))
		k2x[i] = vel[i].Add(k1v[i].Scale(dt / 2))
	}
	if err := s.accelerations(tmp, k2v); err != nil {
		return err
	}

	k3v := make([]Vector3, n)
	k3x := make([]Vector3, n)
	for i := range pos {
		tmp[i] = pos[i].Add(k2x[i].Scale(dt / 2))
		k3x[i] = vel[i].Add(k2v[i].Scale(dt / 2))
	}
	if err := s.accelerations(tmp, k3v); err != nil {
		return err
	}

	k4v := make([]Vector3, n)
	for i := range pos {
		tmp[i] = pos[i].Add(k3x[i].Scale(dt))
	}
	if err := s.accelerations(tmp, k4v); err != nil {
		return err
	}

	for i := range pos {
		k4x := vel[i].Add(k3v[i].Scale(dt))
		dx := vel[i].Add(k2x[i].Scale(2)).Add(k3x[i].Scale(2)).Add(k4x).Scale(dt / 6)
		dv := k1v[i].Add(k2v[i].Scale(2)).Add(k3v[i].Scale(2)).Add(k4v[i]).Scale(dt / 6)
		pos[i] = pos[i].Add(dx)
		vel[i] = vel[i].Add(dv)
	}
	return nil
}

// accelerations computes the gravitational acceleration of every body at the
// given position snapshot. Each body's total is independent of every other
// body's, so the map over i is partitioned statically across workers which
// all read the same snapshot and write disjoint index ranges. Recombination
// is by original index, so the result does not depend on worker scheduling.
func (s *System) accelerations(pos []Vector3, acc []Vector3) error {
	n := len(pos)
	if n < s.parallelThreshold || s.workers < 2 {
		return s.accelerateRange(pos, acc, 0, n)
	}
	var wg sync.WaitGroup
	errs := make([]error, s.workers)
	chunk := (n + s.workers - 1) / s.workers
	for w := 0; w < s.workers; w++ {
		start := w * chunk
		end := start + chunk
		if end > n {
			end = n
		}
		if start >= end {
			break
		}
		wg.Add(1)
		go func(w, start, end int) {
			defer wg.Done()
			errs[w] = s.accelerateRange(pos, acc, start, end)
		}(w, start, end)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// accelerateRange accumulates the acceleration of bodies in [start, end).
// Coincident pairs contribute zero force; test particles exert none.
func (s *System) accelerateRange(pos, acc []Vector3, start, end int) error {
	for i := start; i < end; i++ {
		var a Vector3
		for j := range s.Bodies {
			if j == i || s.Bodies[j].Mass == 0 {
				continue
			}
			Δr := pos[j].Sub(pos[i])
			d2 := Δr.Dot(Δr)
			if d2 == 0 {
				continue
			}
			d := math.Sqrt(d2)
			a = a.Add(Δr.Scale(G * s.Bodies[j].Mass / (d2 * d)))
		}
		if !a.IsFinite() {
			return fmt.Errorf("body %s: %w", s.Bodies[i].ID, ErrNonFiniteForce)
		}
		acc[i] = a
	}
	return nil
}

// TotalEnergy returns the total mechanical energy, kinetic plus pairwise
// gravitational potential.
func (s *System) TotalEnergy() float64 {
	var kinetic, potential float64
	for i, b := range s.Bodies {
		v := b.Velocity.Norm()
		kinetic += 0.5 * b.Mass * v * v
		for j := i + 1; j < len(s.Bodies); j++ {
			o := s.Bodies[j]
			if d := o.Position.Sub(b.Position).Norm(); d > 0 {
				potential -= G * b.Mass * o.Mass / d
			}
		}
	}
	return kinetic + potential
}

// AngularMomentum returns the total angular momentum about the origin.
func (s *System) AngularMomentum() Vector3 {
	var h Vector3
	for _, b := range s.Bodies {
		h = h.Add(b.Position.Cross(b.Velocity.Scale(b.Mass)))
	}
	return h
}
