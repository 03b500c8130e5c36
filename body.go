package orrery

import (
	"fmt"
)

// CelestialBody is a simulated body. Position and velocity are heliocentric,
// in meters and meters per second; mass is in kg. Identity is the ID string.
type CelestialBody struct {
	ID     string
	Name   string
	Mass   float64 // kg, zero means test particle
	Radius float64 // m

	Position     Vector3
	Velocity     Vector3
	Acceleration Vector3 // scratch, recomputed each integration step

	// Orbit optionally holds the Keplerian element set of this body. When
	// Analytic is set the body is driven by closed-form propagation from
	// Orbit instead of by force accumulation.
	Orbit    *OrbitalElements
	Analytic bool

	// RotationRate is the sidereal spin rate in rad/s, zero if unknown.
	RotationRate float64

	// Group is a free-form label for external bookkeeping. Physics never
	// reads it.
	Group string

	initialPosition Vector3
	initialVelocity Vector3
}

// NewBody returns a body with the given identity and bulk properties.
// Negative mass is rejected; zero mass marks a test particle which feels
// gravity but exerts none.
func NewBody(id, name string, mass, radius float64) (*CelestialBody, error) {
	if id == "" {
		return nil, fmt.Errorf("body must have a non-empty ID")
	}
	if mass < 0 {
		return nil, fmt.Errorf("body %s: mass must be non-negative, got %e", id, mass)
	}
	if radius < 0 {
		return nil, fmt.Errorf("body %s: radius must be non-negative, got %e", id, radius)
	}
	return &CelestialBody{ID: id, Name: name, Mass: mass, Radius: radius}, nil
}

// GM returns the gravitational parameter μ of this body in m³/s².
func (b *CelestialBody) GM() float64 {
	return G * b.Mass
}

// IsTestParticle returns whether this body exerts no gravity.
func (b *CelestialBody) IsTestParticle() bool {
	return b.Mass == 0
}

// String implements the stringer interface.
func (b *CelestialBody) String() string {
	return fmt.Sprintf("%s (m=%.3e kg)", b.Name, b.Mass)
}

// snapshotInitialState records the current state as the one restored on
// simulation reset. Called once at body-add time.
func (b *CelestialBody) snapshotInitialState() {
	b.initialPosition = b.Position
	b.initialVelocity = b.Velocity
}

// restoreInitialState puts the body back to its add-time state and clears the
// acceleration scratch.
func (b *CelestialBody) restoreInitialState() {
	b.Position = b.initialPosition
	b.Velocity = b.initialVelocity
	b.Acceleration = Vector3{}
}

// RotationAt returns the accumulated rotation angle in [0, 2π) after the
// given number of simulation seconds, or zero if the spin rate is unknown.
func (b *CelestialBody) RotationAt(elapsed float64) float64 {
	if b.RotationRate == 0 {
		return 0
	}
	return NormalizeAngle(b.RotationRate * elapsed)
}
